// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campuswell/wellness-loans/internal/config"
	"github.com/campuswell/wellness-loans/internal/handlers"
	"github.com/campuswell/wellness-loans/internal/lifecycle"
	"github.com/campuswell/wellness-loans/internal/middleware"
	"github.com/campuswell/wellness-loans/internal/services"
	"github.com/campuswell/wellness-loans/internal/utils"
)

// Initialize builds the full service and handler graph and returns the router
// together with the loan service, which main also feeds to the overdue monitor.
func Initialize(db *gorm.DB, redisClient *redis.Client, engine *lifecycle.Engine, cfg *config.Config) (*gin.Engine, *services.LoanService) {
	// Initialize services
	notificationService := services.NewNotificationService(db, redisClient, cfg.Redis.EventChannel)
	storageService, _ := services.NewStorageService(cfg)

	authService := services.NewAuthService(db, cfg)
	loanService := services.NewLoanService(db, engine, notificationService)
	equipmentService := services.NewEquipmentService(db, engine)
	userService := services.NewUserService(db)
	adminService := services.NewAdminService(db, engine)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	loanHandler := handlers.NewLoanHandler(loanService)
	equipmentHandler := handlers.NewEquipmentHandler(equipmentService, storageService)
	adminHandler := handlers.NewAdminHandler(adminService, userService, notificationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Loan routes
		loans := v1.Group("/loans")
		loans.Use(middleware.AuthRequired())
		{
			loans.POST("/request", loanHandler.RequestLoan)
			loans.GET("/mine", loanHandler.GetMyLoans)
			loans.GET("/:id", loanHandler.GetLoan)

			// Staff-side lifecycle transitions
			staff := loans.Group("")
			staff.Use(middleware.AdminRequired())
			{
				staff.GET("", loanHandler.SearchLoans)
				staff.POST("", loanHandler.RegisterLoan)
				staff.PUT("/:id/approve", loanHandler.ApproveLoan)
				staff.PUT("/:id/reject", loanHandler.RejectLoan)
				staff.PUT("/:id/finish", loanHandler.FinishLoan)
				staff.PUT("/:id/lost", loanHandler.MarkLoanLost)
			}
		}

		// Equipment catalog routes
		equipment := v1.Group("/equipment")
		{
			equipment.GET("", middleware.OptionalAuth(), equipmentHandler.SearchEquipment)
			equipment.GET("/:id", middleware.OptionalAuth(), equipmentHandler.GetEquipment)

			protected := equipment.Group("")
			protected.Use(middleware.AuthRequired(), middleware.AdminRequired())
			{
				protected.POST("", equipmentHandler.CreateEquipment)
				protected.PUT("/:id", equipmentHandler.UpdateEquipment)
				protected.DELETE("/:id", equipmentHandler.DeactivateEquipment)
				protected.POST("/:id/reactivate", equipmentHandler.ReactivateEquipment)
				protected.POST("/:id/photo", middleware.UploadRateLimit(), equipmentHandler.UploadPhoto)
			}
		}

		// Program routes
		programs := v1.Group("/programs")
		{
			programs.GET("", adminHandler.ListPrograms)

			protected := programs.Group("")
			protected.Use(middleware.AuthRequired(), middleware.AdminRequired())
			{
				protected.POST("", adminHandler.CreateProgram)
				protected.PUT("/:id", adminHandler.UpdateProgram)
				protected.DELETE("/:id", adminHandler.DeleteProgram)
			}
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			dashboard := admin.Group("/dashboard")
			{
				dashboard.GET("/stats", adminHandler.GetDashboardStats)
			}

			adminUsers := admin.Group("/users")
			{
				adminUsers.GET("", adminHandler.SearchUsers)
				adminUsers.GET("/:id", adminHandler.GetUser)
				adminUsers.PUT("/:id/status", adminHandler.UpdateUserStatus)
			}

			admin.GET("/events", adminHandler.GetRecentEvents)
		}
	}

	return r, loanService
}
