package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. A nil
// metricsHandler leaves /metrics unregistered.
func New(deals *handlers.DealHandler, streams *handlers.StreamHandler, metricsHandler http.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	d := r.Group("/deals")
	d.POST("", deals.CreateDeal)
	d.GET("/:id", deals.GetDeal)
	d.POST("/:id/bids", deals.SubmitBid)
	d.POST("/:id/bids/:bidId/respond", deals.RespondToBid)
	d.POST("/:id/buy-now", deals.BuyNow)
	d.POST("/:id/extension", deals.RequestExtension)
	d.POST("/:id/extension/respond", deals.RespondToExtension)
	d.POST("/:id/cancel", deals.CancelDeal)
	d.GET("/:id/messages", deals.ListMessages)
	d.POST("/:id/messages", deals.PostMessage)
	if streams != nil {
		d.GET("/:id/stream", streams.Subscribe)
	}

	r.POST("/transactions/:id/confirm", deals.ConfirmDelivery)
	r.POST("/users/:id/verification", deals.RefreshVerification)
	r.GET("/commission", deals.Commission)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
