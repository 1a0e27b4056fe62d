// Package api assembles the HTTP surface: route registration, the shared
// response envelope and request middleware.
package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xpertbrdev/thermal-print-service/internal/api/handlers"
	"github.com/xpertbrdev/thermal-print-service/internal/api/middleware"
	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/printer"
	"github.com/xpertbrdev/thermal-print-service/internal/printers"
)

type Dependencies struct {
	DB       *sql.DB
	Engine   *core.Engine
	Monitor  *core.Monitor
	Store    *printers.Store
	Executor *printer.Executor
	Hub      *handlers.EventHub
}

// NewRouter builds the full route table. Read endpoints are public;
// configuration and destructive queue operations require authentication.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	auth, err := middleware.NewAuthMiddleware(deps.DB)
	if err != nil {
		return nil, err
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now(),
		})
	})

	r.POST("/auth/setup", auth.SetupHandler)
	r.POST("/auth/login", auth.LoginHandler)
	r.POST("/auth/logout", auth.LogoutHandler)
	r.GET("/auth/status", auth.StatusHandler)

	printHandler := handlers.NewPrintHandler(deps.Engine, deps.Monitor)
	monitoringHandler := handlers.NewMonitoringHandler(deps.Engine, deps.Monitor)
	printerHandler := handlers.NewPrinterHandler(deps.Store, deps.Executor)
	webhookHandler := handlers.NewWebhookHandler(deps.DB)

	public := r.Group("/")
	handlers.RegisterPrintRoutes(public, printHandler)
	handlers.RegisterMonitoringRoutes(public, monitoringHandler, deps.Hub)

	protected := r.Group("/", auth.RequireAuth())
	handlers.RegisterPrintAdminRoutes(protected, printHandler)
	handlers.RegisterMonitoringAdminRoutes(protected, monitoringHandler)
	handlers.RegisterPrinterRoutes(protected, printerHandler)
	handlers.RegisterWebhookRoutes(protected, webhookHandler)

	return r, nil
}
