package router

import (
	"net/http"

	_ "fulfillment-service/internal/docs"
	"fulfillment-service/internal/handlers"
	"fulfillment-service/internal/middleware"
	"fulfillment-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Webhook   *handlers.WebhookHandler
	Orders    *handlers.OrderHandler
	Returns   *handlers.ReturnHandler
	Inventory *handlers.InventoryHandler
	Shipping  *handlers.ShippingHandler
	Admin     *handlers.AdminHandler
}

func Router(h Handlers, tokens service.TokenParser, corsOrigins []string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")

	// тело вебхука читается целиком для проверки подписи, без auth
	api.POST("/payment/webhook", h.Webhook.Stripe)
	api.POST("/shipping/rates", h.Shipping.Rates)
	api.GET("/inventory/:productId", h.Inventory.Get)

	authed := api.Group("", middleware.AuthRequired(tokens, log))
	authed.GET("/orders", h.Orders.List)
	authed.GET("/orders/:id", h.Orders.Get)
	authed.POST("/returns", h.Returns.Create)
	authed.GET("/returns", h.Returns.List)
	authed.GET("/returns/:id", h.Returns.Get)
	authed.POST("/returns/:id/shipment", h.Returns.Ship)
	authed.POST("/inventory/reservations", h.Inventory.Reserve)

	admin := authed.Group("", middleware.AdminRequired())
	admin.PATCH("/returns/:id", h.Returns.Process)
	admin.POST("/admin/payments/:sessionId/replay", h.Admin.ReplayPayment)
	admin.POST("/admin/orders/:id/shipment", h.Admin.RetryShipment)
	admin.POST("/admin/reservations/release", h.Admin.ReleaseReservations)
	admin.PUT("/admin/inventory/:productId", h.Inventory.SetStock)

	return r
}

// Handler оборачивает роутер в otelhttp, чтобы входящие запросы попадали в трассировку.
func Handler(r *gin.Engine) http.Handler {
	return otelhttp.NewHandler(r, "fulfillment-http")
}
