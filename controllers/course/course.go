package controllers

import (
	"learnhub/middleware"
	courseService "learnhub/services/course"
	"learnhub/validators"
	courseValidator "learnhub/validators/course"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxUploadBytes = 50 << 20

type CourseController struct {
	catalog  *courseService.Catalog
	feedback *courseService.FeedbackService
}

func NewCourseController(catalog *courseService.Catalog, feedback *courseService.FeedbackService) *CourseController {
	return &CourseController{catalog: catalog, feedback: feedback}
}


func (cc *CourseController) ListCourses(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	query := c.Locals(courseValidator.CourseListKey).(*courseValidator.ListCoursesQuery)

	filter := courseService.CourseFilter{
		Published: query.Published,
		Search:    query.Search,
		Page:      query.Page,
		Limit:     query.Limit,
	}
	if query.InstructorID != "" {
		id := uuid.MustParse(query.InstructorID)
		filter.InstructorID = &id
	}

	page, err := cc.catalog.ListCourses(c.UserContext(), viewer, filter)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", page)
}

func (cc *CourseController) GetCourse(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	course, err := cc.catalog.GetCourse(c.UserContext(), viewer, validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", course)
}

func (cc *CourseController) CreateCourse(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals(courseValidator.CourseKey).(*courseValidator.CreateCourseRequest)

	course, err := cc.catalog.CreateCourse(c.UserContext(), viewer, courseService.CourseInput{
		Title:       reqData.Title,
		Description: reqData.Description,
		Price:       reqData.Price,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

func (cc *CourseController) UpdateCourse(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals(courseValidator.CourseUpdateKey).(*courseValidator.UpdateCourseRequest)

	course, err := cc.catalog.UpdateCourse(c.UserContext(), viewer, validators.ParamID(c, "id"), courseService.CourseUpdate{
		Title:       reqData.Title,
		Description: reqData.Description,
		Price:       reqData.Price,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated successfully!", course)
}

func (cc *CourseController) PublishCourse(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals(courseValidator.PublishKey).(*courseValidator.PublishRequest)

	course, err := cc.catalog.PublishCourse(c.UserContext(), viewer, validators.ParamID(c, "id"), *reqData.Published)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	message := "Course unpublished successfully!"
	if course.Published {
		message = "Course published successfully!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, course)
}

func (cc *CourseController) DeleteCourse(c *fiber.Ctx) error {
	viewer, ok := middleware.CurrentIdentity(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	if err := cc.catalog.DeleteCourse(c.UserContext(), viewer, validators.ParamID(c, "id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course deleted successfully!", nil)
}

func (cc *CourseController) UploadThumbnail(c *fiber.Ctx) error {
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

	course, err := cc.catalog.SetCourseThumbnail(c.UserContext(), viewer, validators.ParamID(c, "id"), src, file.Filename)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Thumbnail uploaded successfully!", course)
}
