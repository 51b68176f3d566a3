package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/services/notify"
	"github.com/subnido/subgate/utils"
)

// NotificationHandler handles the caller's notification feed
type NotificationHandler struct {
	notifications *notify.Service
	logger        *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *notify.Service, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// HandleList handles GET /api/v1/notifications
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	limit, offset := parsePagination(r)
	items, err := h.notifications.List(r.Context(), session.SubjectID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, items)
}

// HandleMarkRead handles POST /api/v1/notifications/{id}/read.
// Scoped to the caller: marking someone else's notification is a 404.
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid notification ID", nil)
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id, session.SubjectID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}
