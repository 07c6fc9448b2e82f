package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/handlers"
	admin_handlers "github.com/sahilchouksey/course-marketplace/handlers/admin"
	auth_handlers "github.com/sahilchouksey/course-marketplace/handlers/auth"
	catalog_handlers "github.com/sahilchouksey/course-marketplace/handlers/catalog"
	chat_handlers "github.com/sahilchouksey/course-marketplace/handlers/chat"
	commerce_handlers "github.com/sahilchouksey/course-marketplace/handlers/commerce"
	course_handlers "github.com/sahilchouksey/course-marketplace/handlers/course"
	learning_handlers "github.com/sahilchouksey/course-marketplace/handlers/learning"
	report_handlers "github.com/sahilchouksey/course-marketplace/handlers/report"
	review_handlers "github.com/sahilchouksey/course-marketplace/handlers/review"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils"
	"github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/cache"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/sse"
	"github.com/sahilchouksey/course-marketplace/utils/validation"
)

// Services bundles the domain services the routes are served by
type Services struct {
	Courses    *services.CourseService
	Content    *services.ContentService
	Cart       *services.CartService
	Checkout   *services.CheckoutService
	Learning   *services.LearningService
	Chat       *services.ChatService
	Reviews    *services.ReviewService
	Categories *services.CategoryService
	Banners    *services.BannerService
	Reports    *services.ReportService
	Email      *services.EmailService
}

// Dependencies is everything SetupRoutes needs, built once by the app package
type Dependencies struct {
	Store          database.Storage
	Redis          *cache.RedisCache // nil when redis is unavailable
	Log            *logger.Logger
	JWT            *auth.JWTManager
	Blacklist      *auth.BlacklistService
	BruteForce     *middleware.BruteForceProtection // nil disables brute force protection
	Validator      *validation.Validator
	Hub            *sse.Hub
	AllowedOrigins string
	CookieSecure   bool
	Services       Services
}

const webhookPath = "/stripe-webhook"

func SetupRoutes(app *fiber.App, deps Dependencies) {
	db := deps.Store.DB()
	svc := deps.Services
	log := deps.Log

	authMiddleware := middleware.NewAuthMiddleware(deps.JWT, deps.Blacklist, db)

	authHandler := auth_handlers.NewAuthHandler(db, auth_handlers.Config{
		JWTManager:   deps.JWT,
		Blacklist:    deps.Blacklist,
		BruteForce:   deps.BruteForce,
		Email:        svc.Email,
		Validator:    deps.Validator,
		CookieSecure: deps.CookieSecure,
		Log:          log,
	})
	courseHandler := course_handlers.NewCourseHandler(svc.Courses, svc.Content, deps.Validator)
	commerceHandler := commerce_handlers.NewCommerceHandler(svc.Cart, svc.Checkout)
	learningHandler := learning_handlers.NewLearningHandler(svc.Learning)
	chatHandler := chat_handlers.NewChatHandler(svc.Chat, deps.Hub, log)
	reviewHandler := review_handlers.NewReviewHandler(svc.Reviews)
	catalogHandler := catalog_handlers.NewCatalogHandler(svc.Categories, svc.Banners)
	tutorReports := report_handlers.NewTutorReportHandler(svc.Reports)
	platformReports := report_handlers.NewPlatformReportHandler(svc.Reports)

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    deps.AllowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
		SkipRateLimit:     []string{webhookPath, "/ping"},
	}, log)

	// Health check endpoint (public)
	app.Get("/ping", func(c *fiber.Ctx) error { return handlers.HandleCheckHealth(c, deps.Store, deps.Redis) })

	// Stripe calls this with the raw signed body
	app.Post(webhookPath, commerceHandler.Webhook)

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/signup/start", authHandler.SignupStart)
	authGroup.Post("/signup/finish", authHandler.SignupFinish)
	authGroup.Post("/login", deps.BruteForce.CheckAndRecordAttempt(), authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)

	// ==================== Catalog ====================

	api.Get("/categories", catalogHandler.ListCategories)
	api.Get("/banners", catalogHandler.ListBanners)

	courses := api.Group("/courses")
	courses.Get("/", authMiddleware.Optional(), courseHandler.Browse)                 // Public: browse published courses
	courses.Get("/home", authMiddleware.Optional(), courseHandler.Home)               // Public: home page sections
	courses.Get("/:id", authMiddleware.Optional(), courseHandler.GetCourse)           // Public: detail with chapters
	courses.Post("/", authMiddleware.Required(), courseHandler.CreateCourse)          // Tutor: create (multipart)
	courses.Put("/:id", authMiddleware.Required(), courseHandler.UpdateCourse)        // Tutor: edit while creating
	courses.Patch("/:id/price", authMiddleware.Required(), courseHandler.UpdatePrice) // Tutor: price and discount
	courses.Delete("/:id", authMiddleware.Required(), courseHandler.DeleteCourse)     // Tutor: delete while creating
	courses.Post("/:id/submit", authMiddleware.Required(), courseHandler.SubmitForReview)
	courses.Post("/:id/cancel-review", authMiddleware.Required(), courseHandler.CancelReview)

	// Course content
	courses.Get("/:id/chapters", courseHandler.ListChapters)
	courses.Post("/:id/chapters", authMiddleware.Required(), courseHandler.CreateChapter)

	chapters := api.Group("/chapters", authMiddleware.Required())
	chapters.Patch("/:id", courseHandler.UpdateChapter)
	chapters.Delete("/:id", courseHandler.DeleteChapter)
	chapters.Post("/:id/videos", courseHandler.CreateVideo)
	chapters.Post("/:id/exercises", courseHandler.CreateExercise)

	videos := api.Group("/videos", authMiddleware.Required())
	videos.Patch("/:id", courseHandler.UpdateVideo)
	videos.Delete("/:id", courseHandler.DeleteVideo)

	exercises := api.Group("/exercises", authMiddleware.Required())
	exercises.Patch("/:id", courseHandler.UpdateExercise)
	exercises.Delete("/:id", courseHandler.DeleteExercise)

	// Reviews
	courses.Get("/:id/reviews", reviewHandler.ListReviews)
	courses.Post("/:id/reviews", authMiddleware.Required(), reviewHandler.AddReview)
	reviews := api.Group("/reviews", authMiddleware.Required())
	reviews.Patch("/:id", reviewHandler.UpdateReview)
	reviews.Delete("/:id", reviewHandler.DeleteReview)

	// Chat rooms
	courses.Get("/:id/chat/stream", authMiddleware.Required(), chatHandler.Stream)
	courses.Get("/:id/chat/messages", authMiddleware.Required(), chatHandler.History)
	courses.Post("/:id/chat/messages", authMiddleware.Required(), chatHandler.SendMessage)

	// ==================== Commerce ====================

	cart := api.Group("/cart", authMiddleware.Required())
	cart.Get("/", commerceHandler.GetCart)
	cart.Post("/", commerceHandler.AddToCart)
	cart.Delete("/:courseId", commerceHandler.RemoveFromCart)

	wishlist := api.Group("/wishlist", authMiddleware.Required())
	wishlist.Get("/", commerceHandler.GetWishlist)
	wishlist.Post("/", commerceHandler.AddToWishlist)
	wishlist.Delete("/:courseId", commerceHandler.RemoveFromWishlist)
	wishlist.Post("/:courseId/move-to-cart", commerceHandler.MoveToCart)

	api.Post("/checkout", authMiddleware.Required(), commerceHandler.Checkout)

	// ==================== Learning ====================

	learning := api.Group("/learning", authMiddleware.Required())
	learning.Get("/", learningHandler.PurchasedCourses)
	learning.Get("/chapters/:id", learningHandler.ChapterEntry)
	learning.Get("/videos/:id", learningHandler.WatchVideo)
	learning.Get("/exercises/:id", learningHandler.OpenExercise)
	learning.Get("/courses/:id/progress", learningHandler.Progress)

	// ==================== Tutor dashboard ====================

	tutor := api.Group("/tutor", authMiddleware.Required())
	tutor.Get("/courses", courseHandler.TutorCourses)
	tutor.Get("/stats", tutorReports.Stats)
	tutor.Get("/reports", tutorReports.ListReports)
	tutor.Get("/reports/:id", tutorReports.GetReport)
	tutor.Get("/reports/:id/export", tutorReports.ExportReport)

	// ==================== Moderation (admin and moderator) ====================

	moderation := api.Group("/moderation", authMiddleware.RequireStaff())
	moderation.Get("/courses", courseHandler.ModerationQueue)
	moderation.Patch("/courses/:id/approve", middleware.AdminAuditLog(db, log, "course_approve", "courses"), courseHandler.Approve)
	moderation.Patch("/courses/:id/reject", middleware.AdminAuditLog(db, log, "course_reject", "courses"), courseHandler.Reject)
	moderation.Patch("/courses/:id/block", middleware.AdminAuditLog(db, log, "course_block", "courses"), courseHandler.SetBlocked(true))
	moderation.Patch("/courses/:id/unblock", middleware.AdminAuditLog(db, log, "course_unblock", "courses"), courseHandler.SetBlocked(false))

	// ==================== Admin Panel Endpoints ====================

	admin := api.Group("/admin", authMiddleware.RequireAdmin())

	// Admin User Management
	store := deps.Store
	admin.Get("/users/stats", utils.MakeHTTPHandleFunc(admin_handlers.GetUserStats, store))
	admin.Get("/users", utils.MakeHTTPHandleFunc(admin_handlers.ListUsers, store))
	admin.Get("/users/:id", utils.MakeHTTPHandleFunc(admin_handlers.GetUser, store))
	admin.Put("/users/:id/role", middleware.AdminAuditLog(db, log, "user_role_update", "users"), utils.MakeHTTPHandleFunc(admin_handlers.UpdateUserRole, store))
	admin.Patch("/users/:id/block", middleware.AdminAuditLog(db, log, "user_block", "users"), admin_handlers.SetUserBlocked(store, deps.Blacklist, true))
	admin.Patch("/users/:id/unblock", middleware.AdminAuditLog(db, log, "user_unblock", "users"), admin_handlers.SetUserBlocked(store, deps.Blacklist, false))

	// Admin Analytics
	admin.Get("/analytics/overview", utils.MakeHTTPHandleFunc(admin_handlers.GetOverviewAnalytics, store))
	admin.Get("/payments", utils.MakeHTTPHandleFunc(admin_handlers.ListPaymentEvents, store))
	admin.Get("/stats", platformReports.Stats)
	admin.Get("/reports", platformReports.ListReports)
	admin.Get("/reports/:id", platformReports.GetReport)
	admin.Get("/reports/:id/export", platformReports.ExportReport)

	// Admin Audit Logs
	admin.Get("/audit", utils.MakeHTTPHandleFunc(admin_handlers.ListAuditLogs, store))
	admin.Get("/audit/:id", utils.MakeHTTPHandleFunc(admin_handlers.GetAuditLog, store))

	// Categories
	admin.Post("/categories", middleware.AdminAuditLog(db, log, "category_create", "categories"), catalogHandler.CreateCategory)
	admin.Put("/categories/:id", middleware.AdminAuditLog(db, log, "category_update", "categories"), catalogHandler.UpdateCategory)
	admin.Delete("/categories/:id", middleware.AdminAuditLog(db, log, "category_delete", "categories"), catalogHandler.DeleteCategory)

	// Banners
	admin.Get("/banners", catalogHandler.ListAllBanners)
	admin.Post("/banners", middleware.AdminAuditLog(db, log, "banner_create", "banners"), catalogHandler.CreateBanner)
	admin.Patch("/banners/:id", middleware.AdminAuditLog(db, log, "banner_update", "banners"), catalogHandler.UpdateBanner)
	admin.Patch("/banners/:id/enable", middleware.AdminAuditLog(db, log, "banner_enable", "banners"), catalogHandler.SetBannerEnabled(true))
	admin.Patch("/banners/:id/disable", middleware.AdminAuditLog(db, log, "banner_disable", "banners"), catalogHandler.SetBannerEnabled(false))
	admin.Delete("/banners/:id", middleware.AdminAuditLog(db, log, "banner_delete", "banners"), catalogHandler.DeleteBanner)
}
