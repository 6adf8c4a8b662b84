package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EventType string

const (
	EventView   EventType = "view"
	EventEnroll EventType = "enroll"
)

func (t EventType) Valid() bool {
	return t == EventView || t == EventEnroll
}

// AnalyticsEvent is an append-only audit row. It is never updated.
type AnalyticsEvent struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	EventType EventType `json:"event_type" gorm:"type:varchar(16);not null;index"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);not null;index"`
	CourseID  uuid.UUID `json:"course_id" gorm:"type:char(36);not null;index"`
	UserRole  string    `json:"user_role" gorm:"type:varchar(16)"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (e *AnalyticsEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// CourseDailyMetric holds one counter row per course per UTC day.
type CourseDailyMetric struct {
	Base
	CourseID         uuid.UUID      `json:"course_id" gorm:"type:char(36);not null;uniqueIndex:idx_course_metric_day"`
	MetricDate       datatypes.Date `json:"metric_date" gorm:"not null;uniqueIndex:idx_course_metric_day"`
	ViewsCount       int64          `json:"views_count" gorm:"not null;default:0"`
	EnrollmentsCount int64          `json:"enrollments_count" gorm:"not null;default:0"`
}
