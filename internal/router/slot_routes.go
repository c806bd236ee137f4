package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mymess-backend/internal/handler"
)

func registerSlots(g *echo.Group, h *handler.SlotHandler) {
	g.POST("/book", h.Book)
	g.GET("/check-availability", h.CheckAvailability)

	g.GET("/user/:userEmail", h.ListByUser)
	g.GET("/user/:userEmail/status/:status", h.ListByUserAndStatus)
	g.GET("/mess/:messEmail", h.ListByMess)
	g.GET("/pending/mess/:messEmail", h.ListPendingByMess)
	g.GET("/confirmed/mess/:messEmail", h.ListConfirmedByMess)
	g.GET("/date/:date", h.ListByDate)
	g.GET("/date/:date/mess/:messEmail", h.ListByDate)

	g.PUT("/approve/:id", h.Approve)
	g.PUT("/confirm/:id", h.Confirm)
	g.PUT("/cancel/:id", h.Cancel)
	g.PUT("/complete/:id", h.Complete)

	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
