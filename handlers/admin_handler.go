package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
	"github.com/subnido/subgate/services/account"
	"github.com/subnido/subgate/services/subdomain"
	"github.com/subnido/subgate/utils"
)

// ReviewSubdomainRequest is the request body for reviewing a subdomain request
type ReviewSubdomainRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Note    string `json:"note" validate:"max=500"`
}

// SetBanRequest is the request body for changing an account's ban state
type SetBanRequest struct {
	Banned *bool  `json:"banned" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// AdminHandler handles operator endpoints: review queue, bans, and the
// audit trail. The pipeline keeps non-operators out of these routes;
// the handlers re-check so they stay safe standalone.
type AdminHandler struct {
	subdomains *subdomain.Service
	accounts   *account.Service
	auditRepo  repositories.AuditRepository
	logger     *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(subdomains *subdomain.Service, accounts *account.Service, auditRepo repositories.AuditRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		subdomains: subdomains,
		accounts:   accounts,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// HandleListPending handles GET /api/v1/admin/subdomains/pending
func (h *AdminHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	limit, offset := parsePagination(r)
	subs, err := h.subdomains.ListPending(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, subs)
}

// HandleReview handles POST /api/v1/admin/subdomains/{id}/review
func (h *AdminHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	session, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid subdomain ID", nil)
		return
	}

	var req ReviewSubdomainRequest
	if err := decodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	sub, err := h.subdomains.Review(r.Context(), session.SubjectID, id, *req.Approve, req.Note)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("subdomain reviewed",
		zap.String("subdomain_id", id.String()),
		zap.String("reviewer_id", session.SubjectID.String()),
		zap.String("status", string(sub.Status)))

	_ = utils.WriteOK(w, sub)
}

// HandleSetBan handles POST /api/v1/admin/accounts/{id}/ban
func (h *AdminHandler) HandleSetBan(w http.ResponseWriter, r *http.Request) {
	session, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid account ID", nil)
		return
	}

	var req SetBanRequest
	if err := decodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.accounts.SetBanned(r.Context(), session.SubjectID, id, *req.Banned, req.Reason); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleListAudit handles GET /api/v1/admin/audit. Filter by action or
// by actor; one of the two is required to keep queries bounded.
func (h *AdminHandler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	limit, offset := parsePagination(r)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	if action := r.URL.Query().Get("action"); action != "" {
		entries, err := h.auditRepo.GetByAction(r.Context(), models.AuditAction(action), limit, offset)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, entries)
		return
	}

	if actor := r.URL.Query().Get("actor"); actor != "" {
		actorID, err := uuid.Parse(actor)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid actor ID", nil)
			return
		}
		entries, err := h.auditRepo.GetByActor(r.Context(), actorID, limit, offset)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, entries)
		return
	}

	_ = utils.WriteBadRequest(w, "Provide an action or actor filter", nil)
}
