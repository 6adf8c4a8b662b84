package course

import (
	"learnhub/models"

	"github.com/google/uuid"
)

type Feedback struct {
	models.Base
	UserID   uuid.UUID `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:idx_feedback_user_course"`
	CourseID uuid.UUID `json:"course_id" gorm:"type:char(36);not null;uniqueIndex:idx_feedback_user_course;index"`
	Rating   int       `json:"rating" gorm:"not null"`
	Comment  string    `json:"comment" gorm:"type:text"`
}
