package analyticsRoutes

import (
	controllers "learnhub/controllers/analytics"
	"learnhub/middleware"
	validators "learnhub/validators/analytics"

	"github.com/gofiber/fiber/v2"
)

func SetupAnalyticsRoutes(app fiber.Router, jwtKey string, ctrl *controllers.AnalyticsController) {
	analyticsGroup := app.Group("/analytics", middleware.JWTMiddleware(jwtKey))

	analyticsGroup.Post("/events/view", validators.RecordEvent(), ctrl.RecordView)
	analyticsGroup.Post("/events/enroll", validators.RecordEvent(), ctrl.RecordEnroll)

	analyticsGroup.Get("/metrics/course/:course_id", validators.CourseParam(), ctrl.CourseMetrics)
	analyticsGroup.Get("/metrics/top-courses", validators.TopCourses(), ctrl.TopCourses)
}
