package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/lgcert/indigene-certificate/config"
	_ "github.com/lgcert/indigene-certificate/docs"
	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/auth"
	"github.com/lgcert/indigene-certificate/internal/certificate"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/dynamicfield"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
	"github.com/lgcert/indigene-certificate/internal/identity"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/internal/notification"
	"github.com/lgcert/indigene-certificate/internal/payment"
	"github.com/lgcert/indigene-certificate/internal/reports"
	"github.com/lgcert/indigene-certificate/internal/superadmin"
	"github.com/lgcert/indigene-certificate/metrics"
	"github.com/lgcert/indigene-certificate/middleware"
)

// NewRouter builds the gin engine with the shared middleware stack.
func NewRouter(cfg *config.Config, infra Infra) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(infra.Log))
	r.Use(metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Content-Length", "X-Requested-With", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	return r
}

func Setup(r *gin.Engine, cfg *config.Config, infra Infra, s *Services) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authMW := middleware.AuthMiddleware(cfg, s.Auth)

	// Uploaded documents; names are random so any signed-in user may fetch
	// a URL they were given.
	r.GET("/files/*filepath", authMW, func(c *gin.Context) {
		full, err := s.Files.Resolve(c.Param("filepath"))
		if err != nil {
			httpctx.Fail(c, err)
			return
		}
		c.Header("Cache-Control", "private, max-age=300")
		c.File(full)
	})

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, infra.Redis, infra.Log))
	api.Use(middleware.AuditMiddleware())

	authHandler := auth.NewHandler(s.Auth)
	lgaHandler := localgovernment.NewHandler(s.LocalGovernment)
	fieldHandler := dynamicfield.NewHandler(s.Fields)
	appHandler := application.NewHandler(s.Applications, s.Files)
	digHandler := digitization.NewHandler(s.Digitization, s.Files)
	identityHandler := identity.NewHandler(s.Identity)
	paymentHandler := payment.NewHandler(s.Payments, s.Mock, cfg.PaymentReturnURL())
	certHandler := certificate.NewHandler(s.Certificates)
	notifHandler := notification.NewHandler(s.Notifications)
	reportsHandler := reports.NewHandler(s.Reports)
	superadminHandler := superadmin.NewHandler(s.SuperAdmin)
	auditHandler := auditlog.NewHandler(s.Audit)

	// ========== PUBLIC ==========
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/refresh/", authHandler.Refresh)
		authGroup.GET("/me", authMW, authHandler.Me)
		authGroup.POST("/logout", authMW, authHandler.Logout)
	}

	lgaRoutes := api.Group("/local-governments")
	{
		lgaRoutes.GET("", lgaHandler.List)
		lgaRoutes.GET("/:id", lgaHandler.Get)
		lgaRoutes.GET("/:id/fees", lgaHandler.GetFees)
		lgaRoutes.GET("/:id/fields", fieldHandler.ListForLGA)
	}

	api.GET("/certificates/verify/:certificateId", certHandler.Verify)

	// gateway callbacks and the mock checkout page arrive without a session
	api.POST("/payments/callback", paymentHandler.Callback)
	api.GET("/payments/checkout/:reference", paymentHandler.Checkout)
	api.POST("/payments/checkout/:reference", paymentHandler.CompleteCheckout)

	// ========== AUTHENTICATED ==========
	protected := api.Group("")
	protected.Use(authMW)

	appRoutes := protected.Group("/applications")
	{
		appRoutes.POST("", middleware.RBACMiddleware(middleware.RoleApplicant), appHandler.Submit)
		appRoutes.GET("/my", appHandler.ListMine)
		appRoutes.GET("/:id", appHandler.Get)
		appRoutes.PATCH("/:id", appHandler.Update)
		appRoutes.GET("/:id/history", appHandler.History)
	}

	digRoutes := protected.Group("/digitization")
	{
		digRoutes.POST("", middleware.RBACMiddleware(middleware.RoleApplicant), digHandler.Submit)
		digRoutes.GET("/my", digHandler.ListMine)
		digRoutes.GET("/:id", digHandler.Get)
		digRoutes.PATCH("/:id", digHandler.Update)
		digRoutes.GET("/:id/history", digHandler.History)
		digRoutes.POST("/:id/finalize", digHandler.Finalize)
	}

	protected.POST("/identity/verify-nin", identityHandler.VerifyNIN)

	payRoutes := protected.Group("/payments")
	{
		payRoutes.POST("/initialize", paymentHandler.Initialize)
		payRoutes.GET("/verify/:reference", paymentHandler.Verify)
		payRoutes.GET("/my", paymentHandler.ListMine)
	}

	certRoutes := protected.Group("/certificates")
	{
		certRoutes.GET("/my", certHandler.ListMine)
		certRoutes.GET("/:id/download", certHandler.Download)
		certRoutes.GET("/:id/qr", certHandler.QR)
	}

	notifRoutes := protected.Group("/notifications")
	{
		notifRoutes.GET("", notifHandler.ListInApp)
		notifRoutes.GET("/stream", notifHandler.Stream)
		notifRoutes.PATCH("/read-all", notifHandler.MarkAllRead)
		notifRoutes.PATCH("/:id/read", notifHandler.MarkRead)
		notifRoutes.POST("/devices", notifHandler.RegisterDevice)
		notifRoutes.DELETE("/devices/:token", notifHandler.RemoveDevice)
		notifRoutes.GET("/logs", notifHandler.ListLogs)
	}

	// ========== LG ADMIN + SUPERADMIN ==========
	admin := protected.Group("/admin")
	admin.Use(middleware.RBACMiddleware(middleware.RoleLGAdmin, middleware.RoleSuperAdmin))
	{
		admin.GET("/dashboard", superadminHandler.Dashboard)

		admin.GET("/applications", middleware.RequirePermission(auth.PermViewApplications), appHandler.AdminList)
		admin.GET("/applications/:id/attachments", middleware.RequirePermission(auth.PermViewApplications), appHandler.Attachments)
		admin.PATCH("/applications/:id/status", middleware.RequirePermission(auth.PermReviewApplications), appHandler.ChangeStatus)

		admin.GET("/digitization", middleware.RequirePermission(auth.PermViewDigitization), digHandler.AdminList)
		admin.GET("/digitization/:id/attachments", middleware.RequirePermission(auth.PermViewDigitization), digHandler.Attachments)
		admin.PATCH("/digitization/:id/status", middleware.RequirePermission(auth.PermReviewDigitization), digHandler.ChangeStatus)

		fields := admin.Group("/dynamic-fields")
		fields.Use(middleware.RequirePermission(auth.PermManageFields))
		fields.GET("", fieldHandler.ListAdmin)
		fields.POST("", fieldHandler.Create)
		fields.PUT("/:id", fieldHandler.Update)
		fields.DELETE("/:id", fieldHandler.Delete)

		admin.GET("/reports/:report", middleware.RequirePermission(auth.PermViewReports), reportsHandler.Export)
	}

	// ========== SUPERADMIN ==========
	superRoutes := protected.Group("/superadmin")
	superRoutes.Use(middleware.RBACMiddleware(middleware.RoleSuperAdmin))
	{
		superRoutes.POST("/users", superadminHandler.CreateAdmin)
		superRoutes.GET("/users", superadminHandler.ListAdmins)
		superRoutes.POST("/users/bulk-upload", superadminHandler.BulkUpload)
		superRoutes.PATCH("/users/:id/permissions", superadminHandler.UpdatePermissions)
		superRoutes.PATCH("/users/:id/status", superadminHandler.UpdateStatus)

		superRoutes.POST("/local-governments", lgaHandler.Create)
		superRoutes.PUT("/local-governments/:id", lgaHandler.Update)
		superRoutes.DELETE("/local-governments/:id", lgaHandler.Delete)
	}

	auditRoutes := protected.Group("/auditlogs")
	auditRoutes.Use(middleware.RBACMiddleware(middleware.RoleSuperAdmin))
	{
		auditRoutes.GET("", auditHandler.GetAuditLogs)
		auditRoutes.GET("/stats", auditHandler.GetAuditLogStats)
		auditRoutes.GET("/:id", auditHandler.GetAuditLogByID)
	}
}
