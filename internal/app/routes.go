package app

import (
	"Ledger/internal/config"
	"Ledger/internal/handlers"
	"Ledger/internal/metrics"
	"Ledger/internal/repo"
	"Ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"

	_ "Ledger/docs"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, log logrus.FieldLogger, store repo.AccountRepo) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(302, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	userSvc := service.NewUserService(store, cfg.Ledger.BcryptCost, log)
	ledgerSvc := service.NewLedgerService(store, log)
	accountHandler := handlers.NewAccountHandler(userSvc, ledgerSvc)
	registerAccountRoutes(r, accountHandler)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Ledger API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"store":   cfg.Store.Driver,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"metrics": "/metrics",
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.Data(200, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerAccountRoutes(r *gin.Engine, h *handlers.AccountHandler) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/balance", h.Balance)
	r.POST("/updateBalance", h.UpdateBalance)
}
