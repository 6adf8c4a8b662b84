package courseRoutes

import (
	controllers "learnhub/controllers/course"
	"learnhub/middleware"
	"learnhub/models"
	validators "learnhub/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes mounts the catalog, lesson and feedback routes.
func SetupCourseRoutes(app fiber.Router, jwtKey string, ctrl *controllers.CourseController) {
	courseGroup := app.Group("/courses", middleware.JWTMiddleware(jwtKey))
	authoring := middleware.RequireRole(models.RoleInstructor, models.RoleAdmin)

	courseGroup.Get("/", validators.ListCourses(), ctrl.ListCourses)
	courseGroup.Post("/", authoring, validators.CreateCourse(), ctrl.CreateCourse)
	courseGroup.Get("/:id", validators.CourseParam(), ctrl.GetCourse)
	courseGroup.Put("/:id", authoring, validators.CourseParam(), validators.UpdateCourse(), ctrl.UpdateCourse)
	courseGroup.Delete("/:id", authoring, validators.CourseParam(), ctrl.DeleteCourse)
	courseGroup.Post("/:id/publish", authoring, validators.CourseParam(), validators.PublishCourse(), ctrl.PublishCourse)
	courseGroup.Post("/:id/thumbnail", authoring, validators.CourseParam(), ctrl.UploadThumbnail)

	// Lessons
	courseGroup.Get("/:id/lessons", validators.CourseParam(), ctrl.ListLessons)
	courseGroup.Post("/:id/lessons", authoring, validators.CourseParam(), validators.CreateLesson(), ctrl.CreateLesson)
	courseGroup.Get("/:id/lessons/:lesson_id", validators.LessonParams(), ctrl.GetLesson)
	courseGroup.Put("/:id/lessons/:lesson_id", authoring, validators.LessonParams(), validators.UpdateLesson(), ctrl.UpdateLesson)
	courseGroup.Delete("/:id/lessons/:lesson_id", authoring, validators.LessonParams(), ctrl.DeleteLesson)
	courseGroup.Post("/:id/lessons/:lesson_id/content", authoring, validators.LessonParams(), ctrl.UploadLessonContent)

	// Feedback
	courseGroup.Get("/:id/feedback", validators.CourseParam(), ctrl.ListFeedback)
	courseGroup.Post("/:id/feedback", validators.CourseParam(), validators.SubmitFeedback(), ctrl.SubmitFeedback)
}
