package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraftwt/loan-backend-sub000/internal/notify"
)

type NotificationStore interface {
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]notify.Notification, int64, error)
	MarkRead(ctx context.Context, userID string, notificationID int64) error
}

type NotificationHandler struct {
	store NotificationStore
}

func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) List(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	page, limit := parsePage(c)
	items, total, err := h.store.ListByUser(c.Request.Context(), uid, limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "notifications", items, newPagination(total, page, limit))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	id, err := parseInt64(strings.TrimSpace(c.Param("notificationId")))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.store.MarkRead(c.Request.Context(), uid, id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "notification marked read", nil)
}
