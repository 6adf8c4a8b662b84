package controllers

import (
	"learnhub/middleware"
	"learnhub/validators"
	courseValidator "learnhub/validators/course"

	"github.com/gofiber/fiber/v2"
)

func (cc *CourseController) ListFeedback(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	summary, err := cc.feedback.ListForCourse(c.UserContext(), viewer, validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Feedback fetched successfully!", summary)
}

// SubmitFeedback creates or replaces the viewer's review of the course.
func (cc *CourseController) SubmitFeedback(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals(courseValidator.FeedbackKey).(*courseValidator.FeedbackRequest)

	feedback, err := cc.feedback.Submit(c.UserContext(), viewer, validators.ParamID(c, "id"), reqData.Rating, reqData.Comment)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Feedback submitted successfully!", feedback)
}
