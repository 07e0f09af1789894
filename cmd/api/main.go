package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/murafiq/murafiq-api/api/swagger"
	"github.com/murafiq/murafiq-api/internal/handler"
	"github.com/murafiq/murafiq-api/internal/middleware"
	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/repository"
	"github.com/murafiq/murafiq-api/internal/service"
	"github.com/murafiq/murafiq-api/pkg/cache"
	"github.com/murafiq/murafiq-api/pkg/config"
	"github.com/murafiq/murafiq-api/pkg/database"
	"github.com/murafiq/murafiq-api/pkg/logger"
	corsmiddleware "github.com/murafiq/murafiq-api/pkg/middleware/cors"
	reqidmiddleware "github.com/murafiq/murafiq-api/pkg/middleware/requestid"
	"github.com/murafiq/murafiq-api/pkg/storage"
)

// @title Murafiq API
// @version 1.0.0
// @description Booking marketplace connecting parents of special-needs children with shadow teachers and therapy centers
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	documentStore, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	if cfg.Exports.Retention > 0 {
		if removed, err := exportStore.CleanupOlderThan(cfg.Exports.Retention); err != nil {
			logr.Sugar().Warnw("failed to prune old exports", "error", err)
		} else if len(removed) > 0 {
			logr.Sugar().Infow("pruned old exports", "count", len(removed))
		}
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	centerRepo := repository.NewCenterRepository(db)
	centerServiceRepo := repository.NewCenterServiceRepository(db)
	childRepo := repository.NewChildRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "murafiq-api",
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, reviewRepo, userRepo, nil, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, bookingRepo, centerServiceRepo, cacheRepo, nil, logr, cfg.Booking.AvailabilityCacheTTL)
	centerSvc := service.NewCenterService(centerRepo, centerServiceRepo, reviewRepo, nil, logr)
	childSvc := service.NewChildService(childRepo, nil, logr)
	bookingSvc := service.NewBookingService(bookingRepo, teacherRepo, centerServiceRepo, userRepo, availabilitySvc, metricsSvc, nil, logr, cfg.Booking.AutoAssign)
	reviewSvc := service.NewReviewService(reviewRepo, bookingRepo, nil, logr)
	sessionSvc := service.NewSessionService(sessionRepo, bookingRepo, documentStore, signer, nil, logr, cfg.Documents.MaxFileSizeBytes, cfg.Documents.AllowedMIMEs)
	messageSvc := service.NewMessageService(messageRepo, userRepo, nil, logr)
	communitySvc := service.NewCommunityService(communityRepo, userRepo, nil, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, logr, cfg.Dashboard.CacheTTL)
	exportSvc := service.NewExportService(bookingRepo, exportStore, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc, availabilitySvc)
	centerHandler := handler.NewCenterHandler(centerSvc, availabilitySvc, dashboardSvc, exportSvc)
	childHandler := handler.NewChildHandler(childSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc, teacherSvc, centerSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc, teacherSvc, centerSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	communityHandler := handler.NewCommunityHandler(communitySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
		users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Deactivate)
	}

	teachers := api.Group("/teachers")
	{
		teachers.GET("", middleware.OptionalJWT(authSvc), teacherHandler.Browse)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.GET("/:id/slots", teacherHandler.Slots)
		teachers.GET("/:id/reviews", reviewHandler.ForTeacher)
		teachers.POST("/:id/verify", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), teacherHandler.Verify)
		teachers.DELETE("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), teacherHandler.Deactivate)
	}

	centers := api.Group("/centers")
	{
		centers.GET("", middleware.OptionalJWT(authSvc), centerHandler.Browse)
		centers.GET("/:id", centerHandler.Get)
		centers.GET("/:id/services", middleware.OptionalJWT(authSvc), centerHandler.ListServices)
		centers.GET("/:id/services/:serviceId/slots", centerHandler.ServiceSlots)
		centers.GET("/:id/reviews", reviewHandler.ForCenter)
		centers.POST("/:id/verify", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), centerHandler.Verify)
	}

	// Own-profile routes live under /me so they never collide with the
	// public /teachers/:id and /centers/:id trees.
	me := api.Group("/me", middleware.JWT(authSvc))
	{
		teacherMe := me.Group("", middleware.RequireRoles(models.RoleTeacher))
		teacherMe.GET("/teacher", teacherHandler.MyProfile)
		teacherMe.POST("/teacher", teacherHandler.CreateProfile)
		teacherMe.PUT("/teacher", teacherHandler.UpdateProfile)
		teacherMe.GET("/availability", teacherHandler.ListWindows)
		teacherMe.POST("/availability", teacherHandler.AddWindow)
		teacherMe.PUT("/availability/:id", teacherHandler.UpdateWindow)
		teacherMe.DELETE("/availability/:id", teacherHandler.RemoveWindow)

		centerMe := me.Group("/center", middleware.RequireRoles(models.RoleCenter))
		centerMe.GET("", centerHandler.MyCenter)
		centerMe.POST("", centerHandler.CreateProfile)
		centerMe.PUT("", centerHandler.UpdateProfile)
		centerMe.GET("/roster", centerHandler.Roster)
		centerMe.POST("/roster", centerHandler.AddToRoster)
		centerMe.DELETE("/roster/:teacherProfileId", centerHandler.RemoveFromRoster)
		centerMe.POST("/services", centerHandler.CreateService)
		centerMe.PUT("/services/:serviceId", centerHandler.UpdateService)
		centerMe.DELETE("/services/:serviceId", centerHandler.DeactivateService)
		centerMe.POST("/services/:serviceId/teachers", centerHandler.AssignTeacher)
		centerMe.DELETE("/services/:serviceId/teachers/:teacherProfileId", centerHandler.UnassignTeacher)
		if cfg.Dashboard.Enabled {
			centerMe.GET("/dashboard", centerHandler.Dashboard)
		}
		centerMe.GET("/bookings/export", middleware.Audit(userRepo, "BOOKING_EXPORT", "bookings"), centerHandler.ExportBookings)
	}

	children := api.Group("/children", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleParent))
	{
		children.GET("", childHandler.List)
		children.POST("", childHandler.Create)
		children.GET("/:id", childHandler.Get)
		children.PUT("/:id", childHandler.Update)
		children.DELETE("/:id", childHandler.Remove)
	}

	bookings := api.Group("/bookings", middleware.JWT(authSvc))
	{
		bookings.POST("", middleware.RequireRoles(models.RoleParent), bookingHandler.Create)
		bookings.GET("", bookingHandler.List)
		bookings.GET("/:id", bookingHandler.Get)
		bookings.POST("/:id/confirm", bookingHandler.Confirm)
		bookings.POST("/:id/complete", bookingHandler.Complete)
		bookings.POST("/:id/cancel", bookingHandler.Cancel)
		bookings.GET("/:id/candidates", middleware.RequireRoles(models.RoleCenter, models.RoleAdmin), bookingHandler.Candidates)
		bookings.POST("/:id/assign", middleware.RequireRoles(models.RoleCenter, models.RoleAdmin), bookingHandler.Assign)
		bookings.POST("/:id/session", middleware.RequireRoles(models.RoleTeacher), sessionHandler.CreateRecord)
		bookings.GET("/:id/session", sessionHandler.GetForBooking)
	}

	sessions := api.Group("/sessions", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher))
	{
		sessions.PUT("/:id", sessionHandler.UpdateRecord)
		sessions.POST("/:id/documents", sessionHandler.UploadDocument)
	}

	documents := api.Group("/documents")
	{
		documents.POST("/:id/sign", middleware.JWT(authSvc), sessionHandler.SignDocument)
		documents.GET("/download", sessionHandler.DownloadDocument)
	}

	api.POST("/reviews", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleParent), reviewHandler.Create)

	messages := api.Group("", middleware.JWT(authSvc))
	{
		messages.POST("/messages", messageHandler.Send)
		messages.GET("/messages/unread-count", messageHandler.UnreadCount)
		messages.GET("/conversations", messageHandler.Conversations)
		messages.GET("/conversations/:id/messages", messageHandler.Messages)
	}

	if cfg.Community.Enabled {
		community := api.Group("/community")
		{
			community.GET("/posts", middleware.OptionalJWT(authSvc), communityHandler.ListPosts)
			community.GET("/posts/:id", middleware.OptionalJWT(authSvc), communityHandler.GetPost)
			community.GET("/events", communityHandler.UpcomingEvents)

			authed := community.Group("", middleware.JWT(authSvc))
			authed.POST("/posts", communityHandler.CreatePost)
			authed.POST("/posts/:id/comments", communityHandler.Comment)
			authed.POST("/posts/:id/moderate", middleware.RequireRoles(models.RoleAdmin), communityHandler.ModeratePost)
			authed.POST("/comments/:id/moderate", middleware.RequireRoles(models.RoleAdmin), communityHandler.ModerateComment)
			authed.POST("/events", communityHandler.CreateEvent)
			authed.POST("/events/:id/cancel", communityHandler.CancelEvent)
			authed.POST("/events/:id/register", communityHandler.RegisterForEvent)
		}
	}

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/metrics", metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
