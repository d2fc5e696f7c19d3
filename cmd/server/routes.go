package main

import (
	"github.com/gin-gonic/gin"

	"finstack-p2p.backend/internal/interfaces/http/handlers"
	"finstack-p2p.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	catalogHandler     *handlers.CatalogHandler
	marketplaceHandler *handlers.MarketplaceHandler
	adHandler          *handlers.AdHandler
	orderHandler       *handlers.OrderHandler
	releaseHandler     *handlers.ReleaseHandler
	streamHandler      *handlers.StreamHandler
	authMiddleware     gin.HandlerFunc
}

func registerP2PRoutes(r *gin.Engine, d routeDeps) {
	p2p := r.Group("/api/p2p")
	p2p.Use(d.authMiddleware)
	{
		p2p.GET("/catalog", d.catalogHandler.GetCatalog)
		p2p.GET("/marketplace", d.marketplaceHandler.Search)

		// Merchant ad management
		ads := p2p.Group("/ads")
		{
			ads.GET("", d.adHandler.ListMyAds)
			ads.POST("", d.adHandler.CreateAd)
			ads.POST("/bulk-status", d.adHandler.BulkSetActive)
			ads.GET("/:id", d.adHandler.GetAd)
			ads.PUT("/:id", d.adHandler.UpdateAd)
			ads.DELETE("/:id", d.adHandler.DeleteAd)
			ads.POST("/:id/toggle", d.adHandler.ToggleAd)
		}

		orders := p2p.Group("/orders")
		{
			orders.POST("", middleware.IdempotencyMiddleware(), d.orderHandler.CreateOrder)
			orders.GET("", d.orderHandler.ListOrders)
			orders.GET("/:id", d.orderHandler.GetOrder)
			orders.POST("/:id/mark-paid", d.orderHandler.MarkPaid)
			orders.POST("/:id/cancel", d.orderHandler.CancelOrder)
			orders.POST("/:id/dispute", d.orderHandler.DisputeOrder)
			orders.POST("/:id/rate", d.orderHandler.RateOrder)
			orders.POST("/:id/initiate-release", d.releaseHandler.InitiateRelease)
			orders.POST("/:id/confirm-release", d.releaseHandler.ConfirmRelease)
			orders.GET("/:id/stream", d.streamHandler.Stream)
		}
	}
}

// registerProxyRoutes mounts the backend catch-alls. The backend check runs
// before the token check so a missing base URL is reported first.
func registerProxyRoutes(r *gin.Engine, proxy *handlers.ProxyHandler, admin *handlers.AdminHandler) {
	r.Any("/api/fstack/*path", proxy.RequireBackend(), middleware.RequireToken(), proxy.Fstack)
	r.Any("/api/admin/*path", proxy.RequireBackend(), middleware.RequireToken(), admin.Admin)
}
