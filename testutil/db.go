// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"learnhub/database"
	"learnhub/models"
	courseModels "learnhub/models/course"
	"learnhub/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database private to the test.
// A single connection is used so every goroutine sees the same memory
// database; concurrent transactions therefore run one at a time.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	require.NoError(t, database.RunMigrations(db, utils.NopLogger()))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedCourse inserts a course owned by instructorID.
func SeedCourse(t *testing.T, db *gorm.DB, instructorID uuid.UUID, published bool) *courseModels.Course {
	t.Helper()
	c := &courseModels.Course{
		InstructorID: instructorID,
		Title:        "Course " + uuid.NewString()[:6],
		Published:    published,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// SeedLessons inserts n lessons in the course with the given published flag.
func SeedLessons(t *testing.T, db *gorm.DB, courseID uuid.UUID, n int, published bool) []courseModels.Lesson {
	t.Helper()
	lessons := make([]courseModels.Lesson, 0, n)
	for i := 0; i < n; i++ {
		l := courseModels.Lesson{
			CourseID:  courseID,
			Title:     fmt.Sprintf("Lesson %d", i+1),
			Position:  i + 1,
			Published: published,
		}
		require.NoError(t, db.Create(&l).Error)
		lessons = append(lessons, l)
	}
	return lessons
}

func Student() models.Identity {
	return models.Identity{UserID: uuid.New(), Role: models.RoleStudent}
}

func Instructor() models.Identity {
	return models.Identity{UserID: uuid.New(), Role: models.RoleInstructor}
}

func Admin() models.Identity {
	return models.Identity{UserID: uuid.New(), Role: models.RoleAdmin}
}
