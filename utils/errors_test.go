package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"record not found", gorm.ErrRecordNotFound, fiber.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load enrollment: %w", gorm.ErrRecordNotFound), fiber.StatusNotFound},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, fiber.StatusConflict},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, fiber.StatusConflict},
		{"sqlite unique", errors.New("UNIQUE constraint failed: enrollments.user_id, enrollments.course_id"), fiber.StatusConflict},
		{"postgres deadlock", &pgconn.PgError{Code: "40P01"}, fiber.StatusServiceUnavailable},
		{"context canceled", context.Canceled, fiber.StatusServiceUnavailable},
		{"tagged validation", ValidationError("bad minutes"), fiber.StatusUnprocessableEntity},
		{"tagged forbidden", ForbiddenError("not yours"), fiber.StatusForbidden},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(MapDBError(tt.err)))
		})
	}
}

func TestMapDBErrorNil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
	assert.Equal(t, fiber.StatusOK, StatusFor(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsUniqueViolation(errors.New("Error 1062: Duplicate entry 'x' for key 'idx'")))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))
	assert.False(t, IsUniqueViolation(nil))
}
