// Package router wires HTTP paths to handlers and per-group middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/mymess-backend/internal/config"
	"github.com/iliyamo/mymess-backend/internal/handler"
	"github.com/iliyamo/mymess-backend/internal/middleware"
)

// Deps carries everything the route table needs. Redis may be nil, in
// which case the response cache is a no-op.
type Deps struct {
	Slots         *handler.SlotHandler
	Payments      *handler.PaymentHandler
	Notifications *handler.NotificationHandler

	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
}

// RegisterRoutes mounts the health check and every API group.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	actor := middleware.OptionalJWT(d.JWTSecret)
	registerSlots(e.Group("/slot", actor), d.Slots)
	registerPayments(e.Group("/payment", actor,
		middleware.InvalidateOnWrite(d.Cache, d.Redis),
		middleware.NewRedisCache(d.Cache, d.Redis),
	), d.Payments)
	registerNotifications(e.Group("/api/notifications", actor), d.Notifications)
}
