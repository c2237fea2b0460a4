package rest

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// NewRouter собирает gin-движок с маршрутами API.
func NewRouter(h *Handler, logger *log.Entry) *gin.Engine {
	if logger == nil {
		logger = log.WithField("component", "http")
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logger))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	engine.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "not_found", "route not found")
	})

	api := engine.Group("/api")
	api.Use(ActorRequired())

	orders := api.Group("/orders")
	orders.POST("", h.PlaceOrder)
	orders.GET("", h.ListMyOrders)
	orders.GET("/:id", h.GetOrder)
	orders.PUT("/:id/cancel", h.CancelOrder)

	admin := api.Group("/admin")
	admin.Use(AdminRequired())
	admin.GET("/orders", h.ListAllOrders)
	admin.PUT("/orders/:id/status", h.SetOrderStatus)
	admin.PUT("/orders/:id/payment", h.ConfirmPayment)
	admin.GET("/stats", h.AdminStats)
	admin.POST("/books/:id/stock", h.AdjustStock)

	return engine
}
