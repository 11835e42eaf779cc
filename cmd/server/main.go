package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trentora-system/config"
	"trentora-system/internal/database"
	"trentora-system/internal/gate"
	"trentora-system/internal/logger"
	"trentora-system/internal/mailer"
	"trentora-system/internal/middleware"
	"trentora-system/internal/utils"

	accounts "trentora-system/internal/services/accounts/handler"
	catalog "trentora-system/internal/services/catalog/handler"
	orders "trentora-system/internal/services/orders/handler"
	pricing "trentora-system/internal/services/pricing/handler"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.Server.Env, cfg.Log.Level)
	log := logger.Get()
	defer log.Sync()

	utils.SetSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}
	if err := database.SeedSiteAdmin(db, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatal("Admin seed failed", zap.Error(err))
	}
	if err := database.SeedGuestPricingSettings(db); err != nil {
		log.Fatal("Guest pricing seed failed", zap.Error(err))
	}
	if repaired, err := database.ReconcileChildRoles(db); err != nil {
		log.Warn("Child role reconciliation failed", zap.Error(err))
	} else if repaired > 0 {
		log.Info("Repaired child account roles", zap.Int64("count", repaired))
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	m := mailer.New(cfg.SMTP)

	pricingHandler := pricing.NewPricingHandler(db, redisClient)
	orderHandler := orders.NewOrderHandler(db, redisClient, m, pricingHandler.Resolver)
	catalogHandler := catalog.NewCatalogHandler(db, redisClient, pricingHandler.Resolver)
	accountsHandler := accounts.NewAccountsHandler(db, redisClient, m, pricingHandler.Resolver, orderHandler, cfg.Auth, cfg.Store)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.CORS())
	r.Use(middleware.RequestID())
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		auth.Use(middleware.RateLimit("20-M"))
		{
			auth.POST("/register", accountsHandler.Register)
			auth.POST("/login", accountsHandler.Login)
		}

		products := public.Group("/catalog/products")
		products.Use(middleware.OptionalAuth())
		{
			products.GET("", catalogHandler.ListProducts)
			products.GET("/:id", catalogHandler.GetProduct)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.RequireAuth(gate.NewResolver(db)))
	{
		protected.GET("/auth/me", accountsHandler.Me)

		protected.POST("/orders", orderHandler.Checkout)
		protected.GET("/orders", orderHandler.ListOrders)
		protected.GET("/orders/:id", orderHandler.GetOrder)

		// --- Company Self-Service Group ---
		company := protected.Group("/company")
		company.Use(middleware.RequireCompanyAdmin())
		{
			company.GET("", accountsHandler.GetCompanyProfile)
			company.PUT("", accountsHandler.UpdateCompanyProfile)
			company.GET("/dashboard", accountsHandler.GetCompanyDashboard)

			company.GET("/children", accountsHandler.ListChildren)
			company.POST("/children", accountsHandler.CreateChild)
			company.POST("/children/:id/suspend", accountsHandler.SuspendChild)
			company.POST("/children/:id/activate", accountsHandler.ActivateChild)

			company.GET("/orders", orderHandler.ListOrders)
			company.GET("/orders/export", orderHandler.ExportOrders)
		}

		// --- Back Office Group ---
		admin := protected.Group("/admin")
		admin.Use(middleware.RequireSiteAdmin())
		{
			admin.GET("/dashboard", accountsHandler.GetAdminDashboard)

			admin.GET("/companies", accountsHandler.ListCompanies)
			admin.GET("/companies/pending", accountsHandler.ListPendingCompanies)
			admin.GET("/companies/:id", accountsHandler.GetCompanyDetail)
			admin.POST("/companies/:id/approve", accountsHandler.ApproveCompany)
			admin.POST("/companies/:id/reject", accountsHandler.RejectCompany)
			admin.POST("/companies/:id/suspend", accountsHandler.SuspendCompany)
			admin.POST("/companies/:id/activate", accountsHandler.ActivateCompany)
			admin.POST("/companies/:id/admin-status", accountsHandler.SetAdminStatus)
			admin.POST("/companies/:id/tier", pricingHandler.AssignTier)
			admin.GET("/companies/:id/orders/export", orderHandler.ExportCompanyOrdersAdmin)

			admin.POST("/children/:id/suspend", accountsHandler.SuspendChildAdmin)
			admin.POST("/children/:id/activate", accountsHandler.ActivateChildAdmin)

			admin.GET("/tiers", pricingHandler.ListTiers)
			admin.POST("/tiers", pricingHandler.CreateTier)
			admin.PUT("/tiers/:id", pricingHandler.UpdateTier)
			admin.DELETE("/tiers/:id", pricingHandler.DeleteTier)

			admin.POST("/products", catalogHandler.CreateProduct)
			admin.PUT("/products/:id", catalogHandler.UpdateProduct)
			admin.GET("/guest-pricing", catalogHandler.GetGuestPricingSettings)
			admin.PUT("/guest-pricing", catalogHandler.UpdateGuestPricingSettings)

			admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
			admin.POST("/orders/backfill", orderHandler.RunBackfill)

			admin.POST("/data/clear", accountsHandler.ClearCompanyData)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
}
