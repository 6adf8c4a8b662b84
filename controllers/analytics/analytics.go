package controllers

import (
	"learnhub/middleware"
	"learnhub/models"
	analyticsService "learnhub/services/analytics"
	validators "learnhub/validators/analytics"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AnalyticsController struct {
	recorder *analyticsService.Recorder
	reader   *analyticsService.MetricsReader
}

func NewAnalyticsController(recorder *analyticsService.Recorder, reader *analyticsService.MetricsReader) *AnalyticsController {
	return &AnalyticsController{recorder: recorder, reader: reader}
}

func (a *AnalyticsController) RecordView(c *fiber.Ctx) error {
	return a.record(c, models.EventView)
}

func (a *AnalyticsController) RecordEnroll(c *fiber.Ctx) error {
	return a.record(c, models.EventEnroll)
}

func (a *AnalyticsController) record(c *fiber.Ctx, eventType models.EventType) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals(validators.EventKey).(*validators.EventRequest)

	event, err := a.recorder.RecordEvent(c.UserContext(), analyticsService.EventInput{
		EventType: eventType,
		UserID:    identity.UserID,
		CourseID:  uuid.MustParse(reqData.CourseID),
		UserRole:  identity.Role,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Event recorded.", event)
}

func (a *AnalyticsController) CourseMetrics(c *fiber.Ctx) error {
	courseID, _ := c.Locals("course_id").(uuid.UUID)
	metrics, err := a.reader.CourseMetrics(c.UserContext(), courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course metrics fetched.", metrics)
}

func (a *AnalyticsController) TopCourses(c *fiber.Ctx) error {
	query := c.Locals(validators.TopCoursesKey).(*validators.TopCoursesQuery)
	top, err := a.reader.TopCourses(c.UserContext(), query.LimitOrDefault())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Top courses fetched.", top)
}
