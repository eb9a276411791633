package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minimart/internal/config"
	"minimart/internal/handler"
	"minimart/internal/logging"
	"minimart/internal/mailer"
	"minimart/internal/middleware"
	"minimart/internal/otp"
	"minimart/internal/repository"
	"minimart/internal/service"
	"minimart/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading, relying on environment variables")
	}

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	if err := os.MkdirAll(cfg.UploadsDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create uploads directory %s: %v", cfg.UploadsDir, err)
	}
	logger.Info(ctx, "uploads directory ready", "dir", cfg.UploadsDir)

	// --- Database Connection ---
	dbPool, err := config.ConnectDB(ctx, cfg.DB, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	if err := config.Migrate(ctx, dbPool); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- External Services ---
	var gateway otp.Gateway = otp.Unconfigured{}
	if cfg.OTP.Enabled() {
		gateway = otp.NewVerifyClient(otp.VerifyConfig{
			BaseURL:     cfg.OTP.BaseURL,
			AccountSID:  cfg.OTP.AccountSID,
			AuthToken:   cfg.OTP.AuthToken,
			ServiceSID:  cfg.OTP.ServiceSID,
			CountryCode: cfg.OTP.CountryCode,
			Timeout:     cfg.OTP.Timeout,
		}, logger)
	} else {
		logger.Warn(ctx, "OTP gateway credentials missing, verification codes are disabled")
	}
	mail := mailer.New(mailer.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		Timeout:  cfg.Mail.Timeout,
	}, logger)
	if !cfg.Mail.Enabled() {
		logger.Warn(ctx, "SMTP host missing, invitation mails are disabled")
	}

	jwtUtil := utils.NewJWTUtil(cfg.JWT.SecretKey, cfg.JWT.Expiration)

	// --- Initialize Repositories ---
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	voucherRepo := repository.NewVoucherRepository(dbPool)
	requestRepo := repository.NewProductRequestRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)

	// --- Initialize Services ---
	auditService := service.NewAuditService(auditRepo, logger)
	inviter := service.NewInviter(userRepo, mail, cfg.AppBaseURL, logger)
	authService := service.NewAuthService(userRepo, gateway, jwtUtil, service.AuthOptions{
		InitialAdminEmail:          cfg.InitialAdminEmail,
		AllowAdminSelfRegistration: cfg.AllowAdminSelfRegistration,
		RequireInvitationOTP:       cfg.RequireInvitationOTP,
	}, logger)
	userService := service.NewUserService(userRepo, inviter, auditService, logger)
	importService := service.NewImportService(userRepo, inviter, auditService, logger)
	productService := service.NewProductService(productRepo, auditService)
	voucherService := service.NewVoucherService(voucherRepo, auditService, cfg.UploadsDir, logger)
	requestService := service.NewProductRequestService(requestRepo, auditService)

	// --- Initialize Handlers ---
	authHandler := handler.NewAuthHandler(authService, cfg.JWT.Expiration, logger)
	userHandler := handler.NewUserHandler(userService, importService, cfg.UploadsDir, logger)
	productHandler := handler.NewProductHandler(productService, logger)
	voucherHandler := handler.NewVoucherHandler(voucherService, logger)
	requestHandler := handler.NewProductRequestHandler(requestService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	// --- Setup Gin Router ---
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// --- Initialize Middlewares ---
	jwtAuthMW := middleware.JWTAuthMiddleware(jwtUtil)
	activeMW := middleware.ActiveAccountMiddleware(authService, logger)

	// --- Register Routes ---
	apiGroup := router.Group("/api/v1")
	authHandler.RegisterAuthRoutes(apiGroup, jwtAuthMW, activeMW)

	authed := apiGroup.Group("", jwtAuthMW, activeMW)
	admin := authed.Group("/admin", middleware.AdminMiddleware())
	resident := authed.Group("", middleware.ResidentMiddleware())

	userHandler.RegisterUserRoutes(admin)
	productHandler.RegisterProductRoutes(authed, admin)
	voucherHandler.RegisterVoucherRoutes(authed, resident, admin)
	requestHandler.RegisterProductRequestRoutes(resident, admin)
	auditHandler.RegisterAuditRoutes(admin)

	router.GET("/health", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})

	if cfg.StaticDir != "" {
		router.NoRoute(handler.NewSPAHandler(cfg.StaticDir, jwtUtil).Serve)
	}

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "server starting", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", "error", err)
	}
	logger.Info(ctx, "server exiting")
}
