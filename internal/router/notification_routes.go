package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mymess-backend/internal/handler"
)

func registerNotifications(g *echo.Group, h *handler.NotificationHandler) {
	g.GET("/user/:userEmail", h.List)
	g.GET("/user/:userEmail/unread", h.Unread)
	g.GET("/user/:userEmail/unread/count", h.UnreadCount)
	g.PUT("/user/:userEmail/mark-all-read", h.MarkAllRead)
	g.DELETE("/user/:userEmail", h.DeleteAll)
	g.PUT("/:id/read", h.MarkRead)
	g.DELETE("/:id", h.Delete)
}
