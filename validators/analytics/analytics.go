package analyticsValidator

import (
	"learnhub/validators"

	"github.com/gofiber/fiber/v2"
)

const (
	EventKey      = "validatedEvent"
	TopCoursesKey = "validatedTopCourses"
)

type EventRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}

type TopCoursesQuery struct {
	Limit *int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func (q *TopCoursesQuery) LimitOrDefault() int {
	if q.Limit == nil {
		return 10
	}
	return *q.Limit
}

func RecordEvent() fiber.Handler {
	return validators.Body[EventRequest](EventKey)
}

func TopCourses() fiber.Handler {
	return validators.Query[TopCoursesQuery](TopCoursesKey)
}

func CourseParam() fiber.Handler {
	return validators.UUIDParam("course_id")
}
