package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yashrajoria/storefront/common/auth"
	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/common/logger"
	commonmw "github.com/yashrajoria/storefront/common/middleware"
	"github.com/yashrajoria/storefront/controllers"
	"github.com/yashrajoria/storefront/database"
	"github.com/yashrajoria/storefront/models"
	awspkg "github.com/yashrajoria/storefront/pkg/aws"
	"github.com/yashrajoria/storefront/routes"
	"github.com/yashrajoria/storefront/services"
)

const serviceName = "storefront-api"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Initialize(os.Getenv("APP_ENV"))
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- 1. Logging and AWS ---
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx, cfg.AWS)
	if cfg.CloudWatchLogs && awsErr == nil {
		if sink, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.LogGroup, serviceName); err == nil {
			logger.InitializeWithWriter(cfg.Env, sink)
		} else {
			logger.Initialize(cfg.Env)
			logger.Log.Warn("CloudWatch Logs disabled", zap.Error(err))
		}
	} else {
		logger.Initialize(cfg.Env)
	}
	log := logger.Log
	defer log.Sync()
	if awsErr != nil {
		log.Warn("AWS config unavailable, AWS features disabled", zap.Error(awsErr))
	}

	// --- 2. Storage ---
	mongoClient, db, err := database.ConnectMongo(log, cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	pg, err := database.ConnectPostgres(log, cfg.Postgres, &models.Coupon{})
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	catalog := models.NewCatalog(db, pg, models.Options{BaseURL: cfg.BaseURL})
	if err := catalog.EnsureIndexes(ctx); err != nil {
		log.Warn("Failed to ensure indexes", zap.Error(err))
	}
	carts := database.NewCartRepository(redisClient, cfg.CartTTL)

	// --- 3. Services ---
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal("Failed to create token service", zap.Error(err))
	}

	var metrics *awspkg.MetricsClient
	var publisher awspkg.SNSPublisher
	var counter services.CountRecorder
	var presigner services.PutPresigner
	var consumer *awspkg.SQSConsumer
	if awsErr == nil {
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.MetricsEnabled)
		if cfg.MetricsEnabled {
			counter = metrics
		}
		if cfg.OrderTopicARN != "" {
			publisher = awspkg.NewSNSClient(awsCfg)
			if cfg.OrderQueueURL != "" {
				consumer = awspkg.NewSQSConsumer(awsCfg, cfg.OrderQueueURL, log)
			}
		}
		if cfg.S3Bucket != "" {
			presigner = awspkg.NewPresigner(awsCfg, cfg.S3Bucket, cfg.PresignExpiry)
		}
	}

	resources := services.NewResourceService(catalog.Categories)
	authService := services.NewAuthService(catalog.Users, resources, tokens)
	cartService := services.NewCartService(carts, catalog.ProductStore, catalog.Coupons.Store())
	orderService := services.NewOrderService(catalog.OrderStore, catalog.ProductStore, carts, carts, publisher, counter,
		services.OrderConfig{
			TaxPrice:       cfg.TaxPrice,
			ShippingPrice:  cfg.ShippingPrice,
			SNSTopicArn:    cfg.OrderTopicARN,
			AsyncInventory: consumer != nil,
		}, log)

	if consumer != nil {
		go func() {
			if err := consumer.StartPolling(ctx, orderService.HandleOrderEvent); err != nil && ctx.Err() == nil {
				log.Error("Order event consumer stopped", zap.Error(err))
			}
		}()
	}

	// --- 4. HTTP Server & Middleware ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := commonmw.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, 10*time.Minute)
	go limiter.Run(ctx.Done())

	r := gin.New()
	r.Use(
		gin.Recovery(),
		commonmw.RequestID(),
		commonmw.RequestLogger(log),
		commonmw.SecurityHeaders(),
		routes.CORS(cfg.CORSOrigins),
		apperrors.ErrorMiddleware(cfg.Env != "production"),
		limiter.Middleware(),
		commonmw.RequestTimeout(30*time.Second),
	)
	if metrics != nil {
		r.Use(commonmw.MetricsMiddleware(metrics, serviceName))
	}

	routes.RegisterRoutes(r, routes.Handlers{
		Catalog:   catalog,
		Auth:      authService,
		Factory:   controllers.NewFactory(resources),
		Account:   controllers.NewAuthController(authService, catalog.UserStore),
		Cart:      controllers.NewCartController(cartService),
		Orders:    controllers.NewOrderController(orderService),
		UserLists: controllers.NewUserListsController(services.NewUserListsService(catalog.UserStore)),
		Uploads:   controllers.NewUploadController(services.NewUploadService(presigner)),
		Health:    controllers.NewHealthController(healthChecks(mongoClient, pg, redisClient)),
	})

	// --- 5. Graceful Shutdown ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("Storefront API starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down Storefront API...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close Redis", zap.Error(err))
	}
	if sqlDB, err := pg.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = database.DisconnectMongo(log, mongoClient)

	log.Info("Storefront API stopped gracefully")
}

func healthChecks(mongoClient *mongo.Client, pg *gorm.DB, redisClient *redis.Client) map[string]controllers.Pinger {
	return map[string]controllers.Pinger{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		"postgres": func(ctx context.Context) error {
			sqlDB, err := pg.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}
}
