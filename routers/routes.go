// Package routers assembles the fiber app from the route sets each service
// contributes.
package routers

import (
	analyticsControllers "learnhub/controllers/analytics"
	courseControllers "learnhub/controllers/course"
	"learnhub/middleware"
	"learnhub/routers/analyticsRoutes"
	"learnhub/routers/courseRoutes"
	analyticsService "learnhub/services/analytics"
	courseService "learnhub/services/course"
	enrollmentService "learnhub/services/enrollment"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Services are the domain services behind the routes. A nil group is not
// mounted.
type Services struct {
	Catalog    *courseService.Catalog
	Feedback   *courseService.FeedbackService
	Engine     *enrollmentService.Engine
	Recorder   *analyticsService.Recorder
	Metrics    *analyticsService.MetricsReader
	StaticDir  string
	StaticPath string
}

type AppConfig struct {
	JWTKey    string
	AccessLog bool
}

func NewApp(cfg AppConfig, svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 64 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return middleware.JsonResponse(c, e.Code, false, e.Message, nil)
			}
			return middleware.ErrorResponse(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "OK", nil)
	})
	if svc.StaticDir != "" {
		app.Static(svc.StaticPath, svc.StaticDir)
	}

	if svc.Catalog != nil && svc.Engine != nil {
		courseRoutes.SetupCourseRoutes(app, cfg.JWTKey, courseControllers.NewCourseController(svc.Catalog, svc.Feedback))
		courseRoutes.SetupEnrollmentRoutes(app, cfg.JWTKey, courseControllers.NewEnrollmentController(svc.Engine))
	}
	if svc.Recorder != nil && svc.Metrics != nil {
		analyticsRoutes.SetupAnalyticsRoutes(app, cfg.JWTKey, analyticsControllers.NewAnalyticsController(svc.Recorder, svc.Metrics))
	}
	return app
}
