package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mymess-backend/internal/handler"
)

func registerPayments(g *echo.Group, h *handler.PaymentHandler) {
	g.POST("/record", h.Record)
	g.GET("/pending/user/:userEmail/mess/:messId", h.Pending)
	g.GET("/total-pending/mess/:messId", h.TotalPending)
	g.GET("/user/:userEmail", h.ListByUser)
	g.GET("/mess/:messId", h.ListByMess)
	g.GET("/user/:userEmail/mess/:messId", h.ListByUserAndMess)
	g.GET("/date-range", h.ListByDateRange)
}
