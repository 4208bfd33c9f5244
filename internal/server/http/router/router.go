package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/mdnair2344/greenbasket/internal/server/http/handlers"
	"github.com/mdnair2344/greenbasket/internal/server/http/middleware"
)

// PendingOrdersPath serves the server-sent event stream. Response
// compression would buffer events, so it is excluded from gzip.
const PendingOrdersPath = "/api/producer/orders/pending"

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.MarketplaceFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{PendingOrdersPath})))

	orderHandler := handlers.NewOrderHandler(facade)
	reportHandler := handlers.NewReportHandler(facade)

	api := engine.Group("/api")
	api.Use(middleware.AuthRequired(facade))

	producer := api.Group("/producer")
	producer.GET("/orders/pending", orderHandler.Pending)
	producer.GET("/orders", orderHandler.List)
	producer.GET("/revenue", reportHandler.Revenue)
	producer.GET("/revenue/snapshot", reportHandler.Snapshot)
	producer.GET("/revenue/current/:product", reportHandler.CurrentMonthTotal)
	producer.GET("/sustainability", reportHandler.Sustainability)

	orders := api.Group("/orders/:id")
	orders.POST("/decision", orderHandler.Decide)
	orders.POST("/payment", orderHandler.Payment)
	orders.POST("/delivery", orderHandler.Delivery)

	return engine
}
