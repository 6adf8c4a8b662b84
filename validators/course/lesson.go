package courseValidator

import (
	"learnhub/validators"

	"github.com/gofiber/fiber/v2"
)

const (
	LessonKey       = "validatedLesson"
	LessonUpdateKey = "validatedLessonUpdate"
)

type CreateLessonRequest struct {
	Title     string `json:"title" validate:"required,min=1,max=200"`
	Content   string `json:"content"`
	Position  int    `json:"position" validate:"gte=0"`
	Published bool   `json:"published"`
}

type UpdateLessonRequest struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content   *string `json:"content"`
	Position  *int    `json:"position" validate:"omitempty,gte=0"`
	Published *bool   `json:"published"`
}

func CreateLesson() fiber.Handler {
	return validators.Body[CreateLessonRequest](LessonKey)
}

func UpdateLesson() fiber.Handler {
	return validators.Body[UpdateLessonRequest](LessonUpdateKey)
}

func LessonParams() fiber.Handler {
	return validators.UUIDParam("id", "lesson_id")
}
