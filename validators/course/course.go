package courseValidator

import (
	"learnhub/validators"

	"github.com/gofiber/fiber/v2"
)

const (
	CourseKey       = "validatedCourse"
	CourseUpdateKey = "validatedCourseUpdate"
	PublishKey      = "validatedPublish"
	CourseListKey   = "validatedCourseList"
	FeedbackKey     = "validatedFeedback"
)

type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Price       float64 `json:"price" validate:"gte=0"`
}

type UpdateCourseRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

type PublishRequest struct {
	Published *bool `json:"published" validate:"required"`
}

type ListCoursesQuery struct {
	InstructorID string `query:"instructor_id" validate:"omitempty,uuid"`
	Published    *bool  `query:"published"`
	Search       string `query:"search" validate:"max=100"`
	Page         int    `query:"page" validate:"gte=0"`
	Limit        int    `query:"limit" validate:"gte=0,lte=100"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func CreateCourse() fiber.Handler {
	return validators.Body[CreateCourseRequest](CourseKey)
}

func UpdateCourse() fiber.Handler {
	return validators.Body[UpdateCourseRequest](CourseUpdateKey)
}

func PublishCourse() fiber.Handler {
	return validators.Body[PublishRequest](PublishKey)
}

func ListCourses() fiber.Handler {
	return validators.Query[ListCoursesQuery](CourseListKey)
}

func SubmitFeedback() fiber.Handler {
	return validators.Body[FeedbackRequest](FeedbackKey)
}

func CourseParam() fiber.Handler {
	return validators.UUIDParam("id")
}
