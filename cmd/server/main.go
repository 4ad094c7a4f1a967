// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/campuswell/wellness-loans/internal/config"
	"github.com/campuswell/wellness-loans/internal/database"
	"github.com/campuswell/wellness-loans/internal/lifecycle"
	"github.com/campuswell/wellness-loans/internal/router"
	"github.com/campuswell/wellness-loans/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Seed the admin account
	if err := database.SeedInitialData(db); err != nil {
		log.Fatal("Failed to seed initial data:", err)
	}

	// Redis client for loan event fan-out. The notification service tolerates
	// a dead connection, so a failed ping is not fatal in development.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		if cfg.Environment == "production" {
			log.Fatal("Failed to connect to Redis:", err)
		}
		log.Printf("Redis unavailable, loan events will not be published: %v", err)
	}
	defer redisClient.Close()

	// Lifecycle engine with the configured policy
	engine := lifecycle.New(lifecycle.Policy{
		MaxLoanDuration:  cfg.Loan.MaxDuration(),
		NearExpiryWindow: cfg.Loan.NearExpiryWindow(),
		MinRejectReason:  cfg.Loan.MinRejectReason,
	})

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r, loanService := router.Initialize(db, redisClient, engine, cfg)

	// Background sweep flips expired active loans to overdue
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	monitor := services.NewOverdueMonitor(loanService, cfg.Loan.SweepInterval())
	go monitor.Run(monitorCtx)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop the overdue monitor before draining requests
	stopMonitor()

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
