package controllers

import (
	"learnhub/middleware"
	courseService "learnhub/services/course"
	"learnhub/validators"
	courseValidator "learnhub/validators/course"

	"github.com/gofiber/fiber/v2"
)

func (cc *CourseController) ListLessons(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lessons, err := cc.catalog.ListLessons(c.UserContext(), viewer, validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lessons fetched successfully!", lessons)
}

func (cc *CourseController) CreateLesson(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals(courseValidator.LessonKey).(*courseValidator.CreateLessonRequest)

	lesson, err := cc.catalog.CreateLesson(c.UserContext(), viewer, validators.ParamID(c, "id"), courseService.LessonInput{
		Title:     reqData.Title,
		Content:   reqData.Content,
		Position:  reqData.Position,
		Published: reqData.Published,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

func (cc *CourseController) UpdateLesson(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals(courseValidator.LessonUpdateKey).(*courseValidator.UpdateLessonRequest)

	lesson, err := cc.catalog.UpdateLesson(c.UserContext(), viewer,
		validators.ParamID(c, "id"), validators.ParamID(c, "lesson_id"),
		courseService.LessonUpdate{
			Title:     reqData.Title,
			Content:   reqData.Content,
			Position:  reqData.Position,
			Published: reqData.Published,
		})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson updated successfully!", lesson)
}

func (cc *CourseController) DeleteLesson(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	err := cc.catalog.DeleteLesson(c.UserContext(), viewer, validators.ParamID(c, "id"), validators.ParamID(c, "lesson_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson deleted successfully!", nil)
}

func (cc *CourseController) UploadLessonContent(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	file, err := c.FormFile("file")
	if err != nil {
		return middleware.ValidationErrorResponse(c, map[string]string{"file": "This field is required!"})
	}
	if file.Size > maxUploadBytes {
		return middleware.ValidationErrorResponse(c, map[string]string{"file": "File is too large!"})
	}
	src, err := file.Open()
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Unable to read uploaded file!", nil)
	}
	defer src.Close()

	lesson, err := cc.catalog.SetLessonContent(c.UserContext(), viewer,
		validators.ParamID(c, "id"), validators.ParamID(c, "lesson_id"), src, file.Filename)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson content uploaded successfully!", lesson)
}

func (cc *CourseController) GetLesson(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lesson, err := cc.catalog.GetLesson(c.UserContext(), viewer, validators.ParamID(c, "id"), validators.ParamID(c, "lesson_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson fetched successfully!", lesson)
}
