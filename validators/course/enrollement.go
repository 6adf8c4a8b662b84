package courseValidator

import (
	"learnhub/validators"

	"github.com/gofiber/fiber/v2"
)

const (
	EnrollKey         = "validatedEnroll"
	ProgressKey       = "validatedProgress"
	EnrollmentListKey = "validatedEnrollmentList"
	PageKey           = "validatedPage"
)

type EnrollRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}

type ProgressRequest struct {
	LessonID         string `json:"lesson_id" validate:"required,uuid"`
	Completed        bool   `json:"completed"`
	TimeSpentMinutes int64  `json:"time_spent_minutes" validate:"gte=0"`
}

type EnrollmentListQuery struct {
	Completed *bool `query:"completed"`
	Page      int   `query:"page" validate:"gte=0"`
	Limit     int   `query:"limit" validate:"gte=0,lte=100"`
}

type PageQuery struct {
	Page  int `query:"page" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=0,lte=100"`
}

func EnrollCourse() fiber.Handler {
	return validators.Body[EnrollRequest](EnrollKey)
}

func UpdateProgress() fiber.Handler {
	return validators.Body[ProgressRequest](ProgressKey)
}

func GetUserEnrollments() fiber.Handler {
	return validators.Query[EnrollmentListQuery](EnrollmentListKey)
}

func Paginate() fiber.Handler {
	return validators.Query[PageQuery](PageKey)
}

func EnrollmentParam() fiber.Handler {
	return validators.UUIDParam("id")
}

func CourseIDParam() fiber.Handler {
	return validators.UUIDParam("course_id")
}
