package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mymess-backend/internal/middleware"
	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository"
	"github.com/iliyamo/mymess-backend/internal/service"
)

// SlotHandler serves the /slot routes.
type SlotHandler struct {
	Slots *service.SlotService
}

func NewSlotHandler(slots *service.SlotService) *SlotHandler {
	if slots == nil {
		panic("nil slot service passed to NewSlotHandler")
	}
	return &SlotHandler{Slots: slots}
}

// Book handles POST /slot/book and answers 201 with the PENDING booking.
func (h *SlotHandler) Book(c echo.Context) error {
	var body bookingBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	req := service.BookingRequest{
		UserEmail: body.UserEmail,
		UserName:  body.UserName,
		MessID:    body.MessID,
		MessEmail: body.MessEmail,
		MessName:  body.MessName,
		TimeSlot:  body.TimeSlot,
		Amount:    body.Amount,
	}
	if body.Date != "" {
		d, err := parseDate(body.Date)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		req.Date = d
	}
	res, err := h.Slots.Create(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationDTO(*res))
}

// Get handles GET /slot/:id.
func (h *SlotHandler) Get(c echo.Context) error {
	res, err := h.Slots.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toReservationDTO(*res))
}

func (h *SlotHandler) list(c echo.Context, f repository.SlotFilter) error {
	items, err := h.Slots.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, items, toReservationDTO)
}

// ListByUser handles GET /slot/user/:userEmail.
func (h *SlotHandler) ListByUser(c echo.Context) error {
	return h.list(c, repository.SlotFilter{UserEmail: c.Param("userEmail")})
}

// ListByUserAndStatus handles GET /slot/user/:userEmail/status/:status.
func (h *SlotHandler) ListByUserAndStatus(c echo.Context) error {
	status := model.SlotStatus(strings.ToUpper(c.Param("status")))
	return h.list(c, repository.SlotFilter{UserEmail: c.Param("userEmail"), Status: status})
}

// ListByMess handles GET /slot/mess/:messEmail.
func (h *SlotHandler) ListByMess(c echo.Context) error {
	return h.list(c, repository.SlotFilter{MessEmail: c.Param("messEmail")})
}

func (h *SlotHandler) ListPendingByMess(c echo.Context) error {
	return h.list(c, repository.SlotFilter{MessEmail: c.Param("messEmail"), Status: model.SlotPending})
}

func (h *SlotHandler) ListConfirmedByMess(c echo.Context) error {
	return h.list(c, repository.SlotFilter{MessEmail: c.Param("messEmail"), Status: model.SlotConfirmed})
}

// ListByDate handles GET /slot/date/:date and, when :messEmail is bound,
// GET /slot/date/:date/mess/:messEmail.
func (h *SlotHandler) ListByDate(c echo.Context) error {
	d, err := parseDate(c.Param("date"))
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	return h.list(c, repository.SlotFilter{Date: &d, MessEmail: c.Param("messEmail")})
}

// Approve handles PUT /slot/approve/:id.
func (h *SlotHandler) Approve(c echo.Context) error {
	res, err := h.Slots.Approve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toReservationDTO(*res))
}

// Confirm handles PUT /slot/confirm/:id?paymentId=.
func (h *SlotHandler) Confirm(c echo.Context) error {
	res, err := h.Slots.Confirm(c.Request().Context(), c.Param("id"), c.QueryParam("paymentId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toReservationDTO(*res))
}

// Cancel handles PUT /slot/cancel/:id. The actor comes from ?by=, then
// from the bearer token's role, and defaults to the user.
func (h *SlotHandler) Cancel(c echo.Context) error {
	by := model.Actor(strings.ToUpper(c.QueryParam("by")))
	if by == "" && middleware.Role(c) == string(model.ActorOwner) {
		by = model.ActorOwner
	}
	res, err := h.Slots.Cancel(c.Request().Context(), c.Param("id"), by)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toReservationDTO(*res))
}

// Complete handles PUT /slot/complete/:id.
func (h *SlotHandler) Complete(c echo.Context) error {
	res, err := h.Slots.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toReservationDTO(*res))
}

// Update handles PUT /slot/:id with a partial body.
func (h *SlotHandler) Update(c echo.Context) error {
	var body updateBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	patch := model.SlotPatch{TimeSlot: body.TimeSlot, Amount: body.Amount}
	if body.Date != nil {
		d, err := parseDate(*body.Date)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		patch.Date = &d
	}
	if patch.Empty() {
		return badRequest(c, "nothing to update: send date, timeSlot or amount")
	}
	res, err := h.Slots.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toReservationDTO(*res))
}

// Delete handles DELETE /slot/:id.
func (h *SlotHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.Slots.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Booking slot deleted successfully",
		"success": true,
		"payload": id,
	})
}

// CheckAvailability handles GET /slot/check-availability and answers a
// bare JSON boolean.
func (h *SlotHandler) CheckAvailability(c echo.Context) error {
	date, slot, mess := c.QueryParam("date"), c.QueryParam("timeSlot"), c.QueryParam("messEmail")
	if date == "" || slot == "" || mess == "" {
		return badRequest(c, "date, timeSlot and messEmail are required")
	}
	d, err := parseDate(date)
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	ok, err := h.Slots.CheckAvailability(c.Request().Context(), d, slot, mess)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ok)
}
