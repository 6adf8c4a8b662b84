package course

import (
	"time"

	"learnhub/models"

	"github.com/google/uuid"
)

// Enrollment tracks a user's progress through a course. A user holds at most
// one enrollment per course.
type Enrollment struct {
	models.Base
	UserID                uuid.UUID  `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID              uuid.UUID  `json:"course_id" gorm:"type:char(36);not null;uniqueIndex:idx_enrollment_user_course;index"`
	EnrolledAt            time.Time  `json:"enrolled_at"`
	Completed             bool       `json:"completed" gorm:"default:false"`
	ProgressPercentage    float64    `json:"progress_percentage" gorm:"default:0"`
	LastAccessedAt        time.Time  `json:"last_accessed_at"`
	CompletedAt           *time.Time `json:"completed_at"`
	TotalTimeSpentMinutes int64      `json:"total_time_spent_minutes" gorm:"not null;default:0"`
	LastLessonID          *uuid.UUID `json:"last_lesson_id" gorm:"type:char(36)"`
}

// LessonProgress is the per-lesson record inside an enrollment.
type LessonProgress struct {
	models.Base
	EnrollmentID     uuid.UUID  `json:"enrollment_id" gorm:"type:char(36);not null;uniqueIndex:idx_progress_enrollment_lesson"`
	LessonID         uuid.UUID  `json:"lesson_id" gorm:"type:char(36);not null;uniqueIndex:idx_progress_enrollment_lesson"`
	CourseID         uuid.UUID  `json:"course_id" gorm:"type:char(36);not null;index"`
	Completed        bool       `json:"completed" gorm:"default:false"`
	TimeSpentMinutes int64      `json:"time_spent_minutes" gorm:"not null;default:0"`
	LastAccessedAt   time.Time  `json:"last_accessed_at"`
	CompletedAt      *time.Time `json:"completed_at"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
