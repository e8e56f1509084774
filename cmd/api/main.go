package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sparkpad-app/sparkpad/backend/internal/config"
	"github.com/sparkpad-app/sparkpad/backend/internal/llm/openai"
	"github.com/sparkpad-app/sparkpad/backend/internal/repository/postgres"
	"github.com/sparkpad-app/sparkpad/backend/internal/repository/redis"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/chat"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/cleanup"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/quota"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/session"
	transportHttp "github.com/sparkpad-app/sparkpad/backend/internal/transport/http"
	"github.com/sparkpad-app/sparkpad/backend/internal/transport/http/middleware"
	"github.com/sparkpad-app/sparkpad/backend/internal/transport/websocket"
	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found")
		}
	}

	cfg := config.LoadConfig()
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Apply pool settings
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMin) * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("Database unreachable:", err)
	}

	log.Println("Running database migrations...")
	if err := postgres.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Repositories (persistence layer)
	userRepo := postgres.NewUserRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)
	ideaRepo := postgres.NewIdeaRepo(db)
	messageRepo := postgres.NewMessageRepo(db)
	usageRepo := postgres.NewUsageRepo(db)

	if err := redis.InitRedis(); err != nil {
		log.Printf("Failed to initialize Redis: %v", err)
	}
	defer redis.CloseRedis()

	var cache session.CacheRepository
	if redis.IsRedisEnabled() && redis.RedisClient != nil {
		cache = redis.NewRedisCache(redis.RedisClient)
	}

	// Services (business logic layer)
	plans, err := config.LoadPlanCatalog(cfg.PlanCatalogPath)
	if err != nil {
		log.Fatalf("Failed to load plan catalog: %v", err)
	}

	authService := session.NewAuthService(sessionRepo, cache)
	quotaStore := quota.NewPostgresStore(usageRepo)
	provider := openai.New(cfg.LLMBaseURL, cfg.LLMAPIKey)
	chatService := chat.NewService(ideaRepo, messageRepo, usageRepo, quotaStore, provider, plans, cfg.LLMModel)

	// Background workers
	cleanupWorker := cleanup.NewWorker(sessionRepo, usageRepo)
	go cleanupWorker.Start()

	// HTTP handlers (API layer)
	authHandler := transportHttp.NewAuthHandler(userRepo, authService, cache)
	oauthHandler := transportHttp.NewOAuthHandler(userRepo, &cfg.OAuthConfig, authService)
	ideaHandler := transportHttp.NewIdeaHandler(ideaRepo, userRepo, plans)
	chatHandler := transportHttp.NewChatHandler(chatService, userRepo)
	billingHandler := transportHttp.NewBillingHandler(userRepo, quotaStore, plans, cache)
	wsHandler := websocket.NewHandler(chatService, userRepo, authService, plans)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware())

	authMW := middleware.AuthMiddleware(authService)
	sendLimiter := middleware.NewRateLimiter(cfg.ChatSendsPerMinute)

	// Public routes
	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)
	router.POST("/api/auth/refresh", authHandler.Refresh)
	router.GET("/api/auth/google/login", oauthHandler.GoogleLogin)
	router.GET("/api/auth/google/callback", oauthHandler.GoogleCallback)
	router.GET("/api/plans", billingHandler.ListPlans)

	// Protected routes
	protected := router.Group("/")
	protected.Use(authMW)
	{
		protected.POST("/api/auth/logout", authHandler.Logout)
		protected.GET("/api/auth/me", authHandler.Me)
		protected.PUT("/api/auth/profile", authHandler.UpdateProfile)

		protected.POST("/api/ideas", ideaHandler.Create)
		protected.GET("/api/ideas", ideaHandler.List)
		protected.GET("/api/ideas/:id", ideaHandler.Get)
		protected.PATCH("/api/ideas/:id", ideaHandler.Update)
		protected.POST("/api/ideas/:id/archive", ideaHandler.Archive)
		protected.POST("/api/ideas/:id/unarchive", ideaHandler.Unarchive)
		protected.DELETE("/api/ideas/:id", ideaHandler.Delete)

		protected.POST("/api/ideas/:id/chat", sendLimiter.Middleware(), chatHandler.SendMessage)
		protected.GET("/api/ideas/:id/chat", chatHandler.History)
		protected.GET("/api/quota", chatHandler.Quota)

		protected.GET("/api/billing/subscription", billingHandler.Subscription)
		protected.PUT("/api/billing/subscription", billingHandler.UpdateSubscription)
	}

	// WebSocket route (auth handled inside the WS handler itself)
	router.GET("/ws/chat", gin.WrapF(wsHandler.HandleWebSocket))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
