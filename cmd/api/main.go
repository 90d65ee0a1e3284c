package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/savelife/hospital-api/internal/booking"
	"github.com/savelife/hospital-api/internal/config"
	"github.com/savelife/hospital-api/internal/database"
	"github.com/savelife/hospital-api/internal/handlers"
	"github.com/savelife/hospital-api/internal/middleware"
	"github.com/savelife/hospital-api/internal/services"
	"github.com/savelife/hospital-api/internal/storage"
	"github.com/savelife/hospital-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if !cfg.IsProduction() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	zlog.Logger = logger

	// --- Database ---
	conn := database.New(cfg.Mongo.URI, cfg.Mongo.Database, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := conn.EnsureConnected(ctx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer conn.Disconnect(context.Background())

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = database.EnsureIndexes(ctx, db)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create indexes")
	}

	// --- Services ---
	tokens, err := utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("JWT_SECRET is not configured")
	}
	bookingSvc := booking.NewService(booking.NewMongoStore(db))
	mailer := services.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From, cfg.FrontendURL, logger)
	uploads, err := storage.NewUploadStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	h := handlers.NewHandler(conn, bookingSvc, mailer, uploads, tokens, logger)

	// --- Router ---
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/", h.Health)
	r.Static("/uploads", uploads.Dir())

	apiLimiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute)
	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute)

	// --- Routes ---
	authRoutes := r.Group("/api/auth")
	authRoutes.Use(authLimiter.Middleware())
	{
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/google", h.GoogleLogin)
		authRoutes.POST("/forgot-password", h.ForgotPassword)
		authRoutes.PUT("/reset-password/:resetToken", h.ResetPassword)
	}

	api := r.Group("/api")
	api.Use(apiLimiter.Middleware())

	// Department browsing is public so patients can pick a doctor before
	// signing in.
	api.GET("/departments", h.ListDepartments)
	api.GET("/departments/:id", h.GetDepartment)
	api.GET("/departments/:id/doctors", h.ListDoctorsByDepartment)

	protected := api.Group("")
	protected.Use(middleware.Auth(tokens))
	{
		protected.GET("/users/profile", h.GetProfile)

		// UpdateUser dispatches the own-profile path itself; see the
		// handler for why it is not a separate route.
		protected.PUT("/users/:id", h.UpdateUser)

		admin := protected.Group("")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.GET("/users", h.ListUsers)
			admin.POST("/users", h.CreateUser)
			admin.DELETE("/users/:id", h.DeleteUser)

			admin.POST("/departments", h.CreateDepartment)
			admin.PUT("/departments/:id", h.UpdateDepartment)
			admin.DELETE("/departments/:id", h.DeleteDepartment)
		}

		protected.GET("/appointments", h.ListAppointments)
		protected.POST("/appointments", h.CreateAppointment)
		// GetAppointment also serves /appointments/check-slot and the
		// admin-only /appointments/all.
		protected.GET("/appointments/:id", h.GetAppointment)
		protected.PUT("/appointments/:id", middleware.RequireRole("doctor", "admin"), h.UpdateAppointment)
		protected.DELETE("/appointments/:id", h.CancelAppointment)

		protected.GET("/medical-records", h.ListMedicalRecords)
		protected.POST("/medical-records", middleware.RequireRole("doctor", "admin"), h.CreateMedicalRecord)
		protected.GET("/medical-records/:id", h.GetMedicalRecord)
		protected.PUT("/medical-records/:id", middleware.RequireRole("doctor", "admin"), h.UpdateMedicalRecord)

		protected.GET("/prescriptions", h.ListPrescriptions)
		protected.POST("/prescriptions", middleware.RequireRole("doctor", "admin"), h.CreatePrescription)
		protected.GET("/prescriptions/:id", h.GetPrescription)
		protected.PUT("/prescriptions/:id", middleware.RequireRole("doctor", "admin"), h.UpdatePrescription)

		protected.GET("/test-results", h.ListTestResults)
		protected.POST("/test-results", middleware.RequireRole("doctor", "admin"), h.CreateTestResult)
		protected.GET("/test-results/:id", h.GetTestResult)
		protected.PUT("/test-results/:id", middleware.RequireRole("doctor", "admin"), h.UpdateTestResult)
		protected.POST("/test-results/:id/upload", h.UploadTestResultFile)
		protected.DELETE("/test-results/:id", middleware.RequireRole("doctor", "admin"), h.DeleteTestResult)
	}

	logger.Info().Str("port", cfg.App.Port).Str("env", cfg.App.Env).Msg("starting server")
	if err := r.Run(":" + cfg.App.Port); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
