// Package api is the HTTP surface: JSON raffle endpoints, a health check and
// the WebSocket upgrade route.
package api

import (
	"context"
	"net/http"
	"time"

	"rafflehub/domain/interfaces"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// WebSocketServer upgrades and serves realtime connections
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// RouterConfig holds the router's collaborators
type RouterConfig struct {
	RaffleService  interfaces.RaffleService
	Hub            WebSocketServer
	Database       Pinger
	AllowedOrigins []string
	Release        bool
}

// NewRouter builds the gin engine with every route and middleware attached
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), corsMiddleware(cfg.AllowedOrigins))

	router.GET("/health", healthHandler(cfg))
	if cfg.Hub != nil {
		router.GET("/ws", gin.WrapF(cfg.Hub.ServeWS))
	}

	NewRaffleHandler(cfg.RaffleService).RegisterRoutes(&router.RouterGroup)

	return router
}

func healthHandler(cfg RouterConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		status := http.StatusOK

		if cfg.Hub != nil {
			body["connections"] = cfg.Hub.ClientCount()
		}

		if cfg.Database != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Database.Ping(ctx); err != nil {
				body["status"] = "degraded"
				body["database"] = "unreachable"
				status = http.StatusServiceUnavailable
			} else {
				body["database"] = "ok"
			}
		}

		c.JSON(status, body)
	}
}
