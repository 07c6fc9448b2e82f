package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/course-marketplace/api"
	"github.com/sahilchouksey/course-marketplace/config"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/router"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/services/cron"
	"github.com/sahilchouksey/course-marketplace/services/payment"
	"github.com/sahilchouksey/course-marketplace/services/realtime"
	"github.com/sahilchouksey/course-marketplace/services/storage"
	"github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/cache"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/sse"
	"github.com/sahilchouksey/course-marketplace/utils/validation"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}
	if err := env.Validate(); err != nil {
		return err
	}

	log, err := logger.New(env.LOG_MODE)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Initialize GORM database connection
	store, err := database.StartGORM(env, log)
	if err != nil {
		log.Error("Check whether the database is running", "host", env.DB_HOST, "port", env.DB_PORT)
		return err
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Error("Failed to initialize database tables", "error", err)
		return err
	}
	db := store.DB()

	// Redis backs locks, brute force protection and optionally the chat bus.
	// Without it the process still serves as a single replica.
	redisCache, err := cache.NewRedisCache(env.REDIS_URL)
	if err != nil {
		log.Warn("Failed to connect to Redis; brute force protection disabled, using in-process locks", "error", err)
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	var locker cache.Locker = cache.NewLocalLocker()
	var bruteForce *middleware.BruteForceProtection
	if redisCache != nil {
		locker = cache.NewRedisLocker(redisCache)
		bruteForce = middleware.NewBruteForceProtection(redisCache, log)
	}

	objectStore, err := newObjectStorage(env, log)
	if err != nil {
		return err
	}

	email := services.NewEmailService(newMailer(env, log), env.CLIENT_BASE_URL, log)

	if env.STRIPE_SECRET_KEY == "" || env.STRIPE_WEBHOOK_SECRET == "" {
		log.Warn("Stripe keys are not set; checkout and webhooks will fail")
	}
	gateway := payment.NewStripeGateway(env.STRIPE_SECRET_KEY, env.STRIPE_WEBHOOK_SECRET)

	bus, err := newChatBus(env, store, redisCache, log)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := sse.NewHub(log)
	if err := bus.StartForwarder(ctx, hub.Broadcast); err != nil {
		return fmt.Errorf("start chat forwarder: %w", err)
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        env.JWT_ISSUER,
	})
	blacklist := auth.NewBlacklistService(db)

	reports := services.NewReportService(db, log)
	courses := services.NewCourseService(db, objectStore, services.PriceRules{Min: env.MIN_COURSE_PRICE, Max: env.MAX_COURSE_PRICE}, log)
	if redisCache != nil {
		courses.SetCache(redisCache)
	}
	svc := router.Services{
		Courses:    courses,
		Content:    services.NewContentService(db, objectStore, log),
		Cart:       services.NewCartService(db, log),
		Checkout:   services.NewCheckoutService(db, gateway, locker, email, services.CheckoutConfig{Currency: env.PAYMENT_CURRENCY, ClientURL: env.CLIENT_BASE_URL}, log),
		Learning:   services.NewLearningService(db, log),
		Chat:       services.NewChatService(db, bus, log),
		Reviews:    services.NewReviewService(db, log),
		Categories: services.NewCategoryService(db, log),
		Banners:    services.NewBannerService(db, objectStore, log),
		Reports:    reports,
		Email:      email,
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	if env.CRON_ENABLED {
		cronManager := cron.NewCronManager(db, reports, blacklist, log)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Warn("Failed to start cron jobs", "error", err)
		} else {
			defer cronManager.Stop()
		}
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT), log)

	router.SetupRoutes(server.GetEngine(), router.Dependencies{
		Store:          store,
		Redis:          redisCache,
		Log:            log,
		JWT:            jwtManager,
		Blacklist:      blacklist,
		BruteForce:     bruteForce,
		Validator:      validation.NewValidator(),
		Hub:            hub,
		AllowedOrigins: env.ALLOWED_ORIGINS,
		CookieSecure:   env.COOKIE_SECURE,
		Services:       svc,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("Received signal", "signal", sig.String())
	}
	cancel()
	return server.Shutdown(10 * time.Second)
}

func newObjectStorage(env *config.EnvironmentVariable, log *logger.Logger) (storage.ObjectStorage, error) {
	cfg := storage.SpacesConfig{
		AccessKey: env.DO_SPACES_ACCESS_KEY,
		SecretKey: env.DO_SPACES_SECRET_KEY,
		Bucket:    env.DO_SPACES_BUCKET,
		Region:    env.DO_SPACES_REGION,
		Endpoint:  env.DO_SPACES_ENDPOINT,
		CDNURL:    env.DO_SPACES_CDN_ENDPOINT,
	}
	if !cfg.IsConfigured() {
		if env.GO_ENV == "production" {
			return nil, errors.New("DO_SPACES_* must be configured in production")
		}
		log.Warn("Spaces is not configured; uploads are kept in memory")
		return storage.NewMemoryStorage(env.CLIENT_BASE_URL + "/media"), nil
	}
	return storage.NewSpacesClient(cfg)
}

func newMailer(env *config.EnvironmentVariable, log *logger.Logger) services.Mailer {
	if env.SENDGRID_API_KEY != "" {
		return services.NewSendGridMailer(env.SENDGRID_API_KEY, env.MAIL_FROM)
	}
	smtpMailer := services.NewSMTPMailer(env.SMTP_HOST, env.SMTP_PORT, env.SMTP_USERNAME, env.SMTP_PASSWORD, env.MAIL_FROM)
	if smtpMailer.IsConfigured() {
		return smtpMailer
	}
	log.Warn("No mail transport configured; emails are written to the log")
	return services.NewLogMailer(log)
}

func newChatBus(env *config.EnvironmentVariable, store *database.GORMStore, rc *cache.RedisCache, log *logger.Logger) (realtime.Bus, error) {
	switch env.CHAT_BUS {
	case "redis":
		if rc == nil {
			return nil, errors.New("CHAT_BUS=redis requires a reachable REDIS_URL")
		}
		return realtime.NewRedisBus(rc, log)
	case "postgres":
		if env.DB_DRIVER == "sqlite" {
			return nil, errors.New("CHAT_BUS=postgres requires DB_DRIVER=postgres")
		}
		return realtime.NewPostgresBus(store.DB(), env.PostgresDSN(), log)
	default:
		return realtime.NewLocalBus(), nil
	}
}
