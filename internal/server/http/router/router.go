package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/server/http/handlers"
	"github.com/polkiloo/fulfillment/internal/server/http/middleware"
)

// supplierActions are the transitions driven by the order's supplier.
var supplierActions = []string{"accept", "reject", "prepare", "pack", "transit", "out-for-delivery", "deliver"}

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.FulfillmentFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RouteSpan())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	orderHandler := handlers.NewOrderHandler(facade)
	materialHandler := handlers.NewMaterialHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	engine.GET("/healthz", healthHandler.Check)

	vendor := middleware.RequireRole(model.RoleVendor)
	supplier := middleware.RequireRole(model.RoleSupplier)
	party := middleware.RequireRole(model.RoleVendor, model.RoleSupplier)

	api := engine.Group("/api")
	api.Use(middleware.AuthRequired(facade))
	api.POST("/checkout", vendor, orderHandler.Checkout)

	orders := api.Group("/orders")
	orders.GET("", party, orderHandler.List)
	orders.GET("/:id", party, orderHandler.Get)
	for _, action := range supplierActions {
		orders.POST("/:id/"+action, supplier, orderHandler.Transition(handlers.TransitionActions[action]))
	}
	orders.POST("/:id/cancel", vendor, orderHandler.Transition(model.OrderStatusCancelled))

	materials := api.Group("/materials")
	materials.POST("", supplier, materialHandler.Register)
	materials.GET("", supplier, materialHandler.List)
	materials.GET("/:id", materialHandler.Get)
	materials.POST("/:id/restock", supplier, materialHandler.Restock)
	materials.PUT("/:id/price", supplier, materialHandler.Reprice)

	return engine
}
