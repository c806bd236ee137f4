package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/service"
)

// PaymentHandler serves the /payment routes. Failures keep the legacy
// contract: a 500 with a prefixed message, except for bad input (400).
type PaymentHandler struct {
	Ledger *service.LedgerService
}

func NewPaymentHandler(ledger *service.LedgerService) *PaymentHandler {
	if ledger == nil {
		panic("nil ledger passed to NewPaymentHandler")
	}
	return &PaymentHandler{Ledger: ledger}
}

func paymentFail(c echo.Context, prefix string, err error) error {
	status := http.StatusInternalServerError
	if errors.Is(err, service.ErrValidation) {
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError && !errors.Is(err, service.ErrNotFound) {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": prefix + ": " + err.Error()})
}

func queryDecimal(c echo.Context, name string) (decimal.Decimal, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return decimal.Zero, errors.New(name + " is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New(name + " must be a number")
	}
	return d, nil
}

func queryDay(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	d, err := parseDate(raw)
	if err != nil {
		return nil, errors.New(name + " must be YYYY-MM-DD")
	}
	return &d, nil
}

// Record handles POST /payment/record. Every input is a query parameter.
func (h *PaymentHandler) Record(c echo.Context) error {
	const prefix = "Error recording payment"
	user, owner, mess := c.QueryParam("userEmail"), c.QueryParam("ownerEmail"), c.QueryParam("messId")
	if user == "" || owner == "" || mess == "" {
		return badRequest(c, prefix+": userEmail, ownerEmail and messId are required")
	}
	paid, err := queryDecimal(c, "amountPaid")
	if err != nil {
		return badRequest(c, prefix+": "+err.Error())
	}
	remaining, err := queryDecimal(c, "remainingDues")
	if err != nil {
		return badRequest(c, prefix+": "+err.Error())
	}
	opts := service.PaymentOptions{
		PaymentMethod: c.QueryParam("paymentMethod"),
		TransactionID: c.QueryParam("transactionId"),
		Notes:         c.QueryParam("notes"),
	}
	if opts.PeriodStart, err = queryDay(c, "periodStart"); err != nil {
		return badRequest(c, prefix+": "+err.Error())
	}
	if opts.PeriodEnd, err = queryDay(c, "periodEnd"); err != nil {
		return badRequest(c, prefix+": "+err.Error())
	}

	e, err := h.Ledger.RecordPayment(c.Request().Context(), user, owner, mess, paid, remaining, opts)
	if err != nil {
		return paymentFail(c, prefix, err)
	}
	return c.JSON(http.StatusOK, toPaymentDTO(model.LedgerView{LedgerEntry: *e}))
}

// Pending handles GET /payment/pending/user/:userEmail/mess/:messId.
func (h *PaymentHandler) Pending(c echo.Context) error {
	user, mess := c.Param("userEmail"), c.Param("messId")
	dues, err := h.Ledger.GetOutstandingDues(c.Request().Context(), user, mess)
	if err != nil {
		return paymentFail(c, "Error fetching pending dues", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"userEmail": user, "messId": mess, "pendingDues": dues})
}

// TotalPending handles GET /payment/total-pending/mess/:messId.
func (h *PaymentHandler) TotalPending(c echo.Context) error {
	mess := c.Param("messId")
	total, err := h.Ledger.GetTotalOutstandingForMess(c.Request().Context(), mess)
	if err != nil {
		return paymentFail(c, "Error fetching total pending dues", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messId": mess, "totalPendingDues": total})
}

func (h *PaymentHandler) respond(c echo.Context, items []model.LedgerView, err error) error {
	if err != nil {
		return paymentFail(c, "Error fetching payments", err)
	}
	return respondList(c, items, toPaymentDTO)
}

func (h *PaymentHandler) ListByUser(c echo.Context) error {
	items, err := h.Ledger.ListByUser(c.Request().Context(), c.Param("userEmail"))
	return h.respond(c, items, err)
}

func (h *PaymentHandler) ListByMess(c echo.Context) error {
	items, err := h.Ledger.ListByMess(c.Request().Context(), c.Param("messId"))
	return h.respond(c, items, err)
}

func (h *PaymentHandler) ListByUserAndMess(c echo.Context) error {
	items, err := h.Ledger.ListByUserAndMess(c.Request().Context(), c.Param("userEmail"), c.Param("messId"))
	return h.respond(c, items, err)
}

// ListByDateRange handles GET /payment/date-range?startDate&endDate. Both
// days are inclusive.
func (h *PaymentHandler) ListByDateRange(c echo.Context) error {
	from, err := parseDate(c.QueryParam("startDate"))
	if err != nil {
		return badRequest(c, "startDate must be YYYY-MM-DD")
	}
	to, err := parseDate(c.QueryParam("endDate"))
	if err != nil {
		return badRequest(c, "endDate must be YYYY-MM-DD")
	}
	items, err := h.Ledger.ListByDateRange(c.Request().Context(), from, to.Add(24*time.Hour-time.Nanosecond))
	return h.respond(c, items, err)
}
