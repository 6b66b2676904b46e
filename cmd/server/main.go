package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	appconfig "github.com/madio/backend/internal/config"
	"github.com/madio/backend/internal/database"
	"github.com/madio/backend/internal/handlers"
	mW "github.com/madio/backend/internal/middleware"
	"github.com/madio/backend/internal/services"
	"github.com/madio/backend/internal/store"
)

// @title Madio Reconciliation API
// @version 1.0
// @description Sync and lockout reconciliation between the mobile document store and the console database
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize stores
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	defer redisClient.Close()

	documentStore := store.NewRedisDocumentStore(redisClient)
	relationalStore := store.NewPostgresStore(db)
	lockoutConfig := appconfig.LoadLockoutConfig()

	// Initialize services
	authService := services.NewAuthService(documentStore, redisClient, lockoutConfig)
	syncService := services.NewSyncService(documentStore, relationalStore)
	configService := services.NewConfigService(documentStore, relationalStore, lockoutConfig)
	accountService := services.NewAccountService(documentStore, relationalStore)
	qrService := services.NewQRService(relationalStore)
	qrHandler := handlers.NewQRHandler(qrService)

	// Initialize auth middleware with Redis (token blacklist)
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/reports/{id}/qr", qrHandler.LocationQR)

			// Console-only endpoints (manager role required)
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireManager)

				r.Post("/reports/sync", syncService.HandleSyncReports)
				r.Post("/reports/{id}/push", syncService.HandlePushReport)

				r.Post("/accounts/{id}/block", accountService.HandleBlock)
				r.Post("/accounts/{id}/unblock", accountService.HandleUnblock)
				r.Post("/accounts/{id}/push", accountService.HandlePushAccount)
				r.Get("/accounts/blocked", accountService.HandleListBlocked)

				r.Get("/configuration/max-attempts", configService.HandleGetMaxAttempts)
				r.Put("/configuration/max-attempts", configService.HandleSetMaxAttempts)
				r.Post("/configuration/sync", configService.HandlePropagate)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
