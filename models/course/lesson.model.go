package course

import (
	"learnhub/models"

	"github.com/google/uuid"
)

// Lesson is ordered content within a course. Only published lessons count
// towards enrollment progress.
type Lesson struct {
	models.Base
	CourseID   uuid.UUID `json:"course_id" gorm:"type:char(36);index;not null"`
	Title      string    `json:"title" gorm:"not null"`
	Content    string    `json:"content" gorm:"type:text"`
	ContentURL string    `json:"content_url"`
	Position   int       `json:"position" gorm:"default:0"`
	Published  bool      `json:"published" gorm:"default:false"`
}
