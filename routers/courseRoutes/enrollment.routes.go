package courseRoutes

import (
	controllers "learnhub/controllers/course"
	"learnhub/middleware"
	"learnhub/models"
	validators "learnhub/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupEnrollmentRoutes mounts enrollment and progress tracking.
func SetupEnrollmentRoutes(app fiber.Router, jwtKey string, ctrl *controllers.EnrollmentController) {
	enrollGroup := app.Group("/enrollments", middleware.JWTMiddleware(jwtKey))

	enrollGroup.Post("/", validators.EnrollCourse(), ctrl.EnrollInCourse)
	enrollGroup.Get("/me", validators.GetUserEnrollments(), ctrl.GetEnrollments)
	enrollGroup.Get("/stats", ctrl.GetStats)
	enrollGroup.Get("/instructor", middleware.RequireRole(models.RoleInstructor, models.RoleAdmin), validators.Paginate(), ctrl.GetInstructorEnrollments)
	enrollGroup.Get("/course/:course_id", validators.CourseIDParam(), validators.Paginate(), ctrl.GetCourseEnrollments)

	enrollGroup.Get("/:id", validators.EnrollmentParam(), ctrl.GetProgress)
	enrollGroup.Post("/:id/access", validators.EnrollmentParam(), ctrl.RecordAccess)
	enrollGroup.Post("/:id/progress", validators.EnrollmentParam(), validators.UpdateProgress(), ctrl.UpdateProgress)
	enrollGroup.Delete("/:id", validators.EnrollmentParam(), ctrl.Unenroll)
}
