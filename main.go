package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/cache"
	"github.com/haatbazar/marketplace/controllers"
	"github.com/haatbazar/marketplace/database"
	"github.com/haatbazar/marketplace/logger"
	"github.com/haatbazar/marketplace/middleware"
	"github.com/haatbazar/marketplace/notifier"
	"github.com/haatbazar/marketplace/repository"
	"github.com/haatbazar/marketplace/routes"
	"github.com/haatbazar/marketplace/services"
	"github.com/haatbazar/marketplace/storage"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic("config load failed: " + err.Error())
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// --- Mongo ---
	client, db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("mongo connection failed", zap.Error(err))
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatal("index creation failed", zap.Error(err))
	}

	// --- Redis (optional; caching is disabled without it) ---
	var productCache *cache.Cache
	if cfg.RedisAddr != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			productCache = cache.New(redisClient)
			defer redisClient.Close()
		}
	}

	// --- Email dispatcher ---
	var sender notifier.EmailSender
	if cfg.SMTPHost != "" {
		smtpSender, err := notifier.NewSMTPSender(notifier.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPUser,
		})
		if err != nil {
			log.Warn("SMTP sender init failed, emails disabled", zap.Error(err))
		} else {
			sender = smtpSender
		}
	} else {
		log.Warn("SMTP not configured, emails disabled")
	}
	dispatcher := notifier.NewDispatcher(sender, log, notifier.DefaultDispatcherConfig())
	dispatcher.Start()

	// --- Media storage ---
	var media storage.MediaStore
	if cfg.S3Bucket != "" {
		media, err = storage.NewS3Store(ctx, storage.S3Config{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.AWSEndpoint,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			log.Fatal("S3 store init failed", zap.Error(err))
		}
	} else {
		media, err = storage.NewLocalStore(cfg.UploadDir, cfg.BaseURL)
		if err != nil {
			log.Fatal("local media store init failed", zap.Error(err))
		}
	}

	// --- Repositories ---
	userRepo := repository.NewMongoUserRepository(db)
	productRepo := repository.NewMongoProductRepository(db)
	categoryRepo := repository.NewMongoCategoryRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)
	reviewRepo := repository.NewMongoReviewRepository(db)

	// --- Services ---
	tokenService := services.NewTokenService(cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	authService := services.NewAuthService(userRepo, tokenService, dispatcher, cfg.BaseURL, log)
	productService := services.NewProductService(productRepo, categoryRepo, productCache, log)
	categoryService := services.NewCategoryService(categoryRepo, productRepo, productCache, log)
	orderService := services.NewOrderService(orderRepo, productRepo, userRepo, reviewRepo, dispatcher, log)
	reviewService := services.NewReviewService(reviewRepo, orderRepo, log)
	dashboardService := services.NewDashboardService(orderRepo, productRepo, userRepo, log)
	adminService := services.NewAdminService(userRepo, log)

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(log))
	r.Use(middleware.RateLimit())
	r.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})

	if cfg.S3Bucket == "" {
		r.Static("/uploads", cfg.UploadDir)
	}

	routes.Register(r, routes.Deps{
		Auth:     controllers.NewAuthController(authService, log),
		Product:  controllers.NewProductController(productService, reviewService, log),
		Category: controllers.NewCategoryController(categoryService, log),
		Order:    controllers.NewOrderController(orderService, log),
		Buyer:    controllers.NewBuyerController(orderService, reviewService, log),
		Seller:   controllers.NewSellerController(productService, orderService, dashboardService, media, log),
		Admin:    controllers.NewAdminController(adminService, orderService, dashboardService, log),
		Tokens:   tokenService,
		Users:    userRepo,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("marketplace starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Warn("notification dispatcher did not drain in time", zap.Error(err))
	}

	log.Info("stopped")
}
