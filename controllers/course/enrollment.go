package controllers

import (
	"learnhub/middleware"
	enrollmentService "learnhub/services/enrollment"
	"learnhub/validators"
	courseValidator "learnhub/validators/course"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type EnrollmentController struct {
	engine *enrollmentService.Engine
}

func NewEnrollmentController(engine *enrollmentService.Engine) *EnrollmentController {
	return &EnrollmentController{engine: engine}
}

// EnrollInCourse answers 201 for a new enrollment and 200 when the viewer
// was already enrolled. The body is the enrollment either way.
func (ec *EnrollmentController) EnrollInCourse(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals(courseValidator.EnrollKey).(*courseValidator.EnrollRequest)

	enrollment, created, err := ec.engine.Enroll(c.UserContext(), viewer, uuid.MustParse(reqData.CourseID))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !created {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Already enrolled in this course.", enrollment)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Enrolled in course successfully!", enrollment)
}

func (ec *EnrollmentController) GetEnrollments(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	query := c.Locals(courseValidator.EnrollmentListKey).(*courseValidator.EnrollmentListQuery)

	page, err := ec.engine.ListForUser(c.UserContext(), viewer.UserID, enrollmentService.ListFilter{
		Completed: query.Completed,
		Page:      query.Page,
		Limit:     query.Limit,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", page)
}

func (ec *EnrollmentController) GetStats(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	stats, err := ec.engine.UserStats(c.UserContext(), viewer.UserID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment stats fetched successfully!", stats)
}

func (ec *EnrollmentController) GetCourseEnrollments(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	query := c.Locals(courseValidator.PageKey).(*courseValidator.PageQuery)

	page, err := ec.engine.ListForCourse(c.UserContext(), viewer, validators.ParamID(c, "course_id"), query.Page, query.Limit)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course enrollments fetched successfully!", page)
}

func (ec *EnrollmentController) GetInstructorEnrollments(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	query := c.Locals(courseValidator.PageKey).(*courseValidator.PageQuery)

	result, err := ec.engine.ListForInstructor(c.UserContext(), viewer, query.Page, query.Limit)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Instructor enrollments fetched successfully!", result)
}

func (ec *EnrollmentController) GetProgress(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	enr, err := ec.engine.Owned(c.UserContext(), viewer, validators.ParamID(c, "id"), false)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	summary, err := ec.engine.Summary(c.UserContext(), enr.ID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", summary)
}

func (ec *EnrollmentController) RecordAccess(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	enr, err := ec.engine.Owned(c.UserContext(), viewer, validators.ParamID(c, "id"), false)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	enr, err = ec.engine.RecordAccess(c.UserContext(), enr.ID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Access recorded.", enr)
}

func (ec *EnrollmentController) Unenroll(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	enr, err := ec.engine.Owned(c.UserContext(), viewer, validators.ParamID(c, "id"), true)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if err := ec.engine.Unenroll(c.UserContext(), enr.ID); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Unenrolled successfully!", nil)
}

func (ec *EnrollmentController) UpdateProgress(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals(courseValidator.ProgressKey).(*courseValidator.ProgressRequest)

	enr, err := ec.engine.Owned(c.UserContext(), viewer, validators.ParamID(c, "id"), false)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	result, err := ec.engine.UpdateLessonProgress(c.UserContext(), enrollmentService.ProgressUpdate{
		EnrollmentID:     enr.ID,
		LessonID:         uuid.MustParse(reqData.LessonID),
		Completed:        reqData.Completed,
		TimeSpentMinutes: reqData.TimeSpentMinutes,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated successfully!", result)
}
