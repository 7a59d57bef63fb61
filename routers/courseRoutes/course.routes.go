package courseRoutes

import (
	courseController "lms/controllers/course"
	"lms/middleware"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/courses")

	// Public catalog
	courseGroup.Get("/", courseController.ListCourses)
	courseGroup.Get("/:id", courseValidator.CourseID(), courseController.GetCourse)

	// User routes
	app.Get("/enrollments", middleware.JWTMiddleware, courseController.GetMyEnrollments)

	// Admin routes
	adminGroup := courseGroup.Group("/admin")
	adminGroup.Post("/", courseValidator.CreateCourse(), middleware.JWTMiddleware, courseController.AdminCreateCourse)
	adminGroup.Post("/:id/publish", courseValidator.CourseID(), middleware.JWTMiddleware, courseController.AdminPublishCourse)
	adminGroup.Post("/:id/thumbnail", courseValidator.CourseID(), middleware.JWTMiddleware, courseController.AdminUploadThumbnail)
	adminGroup.Get("/dashboard", middleware.JWTMiddleware, courseController.AdminDashboard)
}
