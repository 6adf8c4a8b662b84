package course

import (
	"learnhub/models"

	"github.com/google/uuid"
)

// Course is a catalog entry owned by one instructor.
type Course struct {
	models.Base
	InstructorID     uuid.UUID `json:"instructor_id" gorm:"type:char(36);index;not null"`
	Title            string    `json:"title" gorm:"not null"`
	Description      string    `json:"description" gorm:"type:text"`
	Price            float64   `json:"price" gorm:"default:0"`
	ThumbnailURL     string    `json:"thumbnail_url"`
	Published        bool      `json:"published" gorm:"default:false;index"`
	TotalEnrollments int64     `json:"total_enrollments" gorm:"not null;default:0"`
}
