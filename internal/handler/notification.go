package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mymess-backend/internal/service"
)

// NotificationHandler serves the /api/notifications routes.
type NotificationHandler struct {
	Inbox *service.Inbox
}

func NewNotificationHandler(inbox *service.Inbox) *NotificationHandler {
	if inbox == nil {
		panic("nil inbox passed to NewNotificationHandler")
	}
	return &NotificationHandler{Inbox: inbox}
}

// List handles GET /api/notifications/user/:userEmail.
func (h *NotificationHandler) List(c echo.Context) error {
	items, err := h.Inbox.List(c.Request().Context(), c.Param("userEmail"), false)
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, items, toNotificationDTO)
}

// Unread handles GET /api/notifications/user/:userEmail/unread.
func (h *NotificationHandler) Unread(c echo.Context) error {
	items, err := h.Inbox.List(c.Request().Context(), c.Param("userEmail"), true)
	if err != nil {
		return fail(c, err)
	}
	return respondList(c, items, toNotificationDTO)
}

// UnreadCount handles GET /api/notifications/user/:userEmail/unread/count.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	user := c.Param("userEmail")
	n, err := h.Inbox.CountUnread(c.Request().Context(), user)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"userEmail": user, "unreadCount": n})
}

// MarkRead handles PUT /api/notifications/:id/read?userEmail=.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user := c.QueryParam("userEmail")
	if user == "" {
		return badRequest(c, "userEmail is required")
	}
	n, err := h.Inbox.MarkRead(c.Request().Context(), c.Param("id"), user)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toNotificationDTO(*n))
}

// MarkAllRead handles PUT /api/notifications/user/:userEmail/mark-all-read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	user := c.Param("userEmail")
	n, err := h.Inbox.MarkAllRead(c.Request().Context(), user)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"userEmail": user, "updated": n})
}

// Delete handles DELETE /api/notifications/:id?userEmail=.
func (h *NotificationHandler) Delete(c echo.Context) error {
	user := c.QueryParam("userEmail")
	if user == "" {
		return badRequest(c, "userEmail is required")
	}
	id := c.Param("id")
	if err := h.Inbox.Delete(c.Request().Context(), id, user); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Notification deleted successfully",
		"success": true,
		"payload": id,
	})
}

// DeleteAll handles DELETE /api/notifications/user/:userEmail.
func (h *NotificationHandler) DeleteAll(c echo.Context) error {
	user := c.Param("userEmail")
	n, err := h.Inbox.DeleteAll(c.Request().Context(), user)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"userEmail": user, "deleted": n})
}
