package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/middleware"
	"github.com/subnido/subgate/services/subdomain"
	"github.com/subnido/subgate/utils"
)

// CreateSubdomainRequest is the request body for requesting a subdomain
type CreateSubdomainRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=63"`
	TargetURL   string `json:"target_url" validate:"required,url"`
	Description string `json:"description" validate:"max=500"`
}

// SubdomainHandler handles subdomain request endpoints
type SubdomainHandler struct {
	subdomains *subdomain.Service
	logger     *zap.Logger
}

// NewSubdomainHandler creates a new SubdomainHandler
func NewSubdomainHandler(subdomains *subdomain.Service, logger *zap.Logger) *SubdomainHandler {
	return &SubdomainHandler{
		subdomains: subdomains,
		logger:     logger,
	}
}

// HandleCreate handles POST /api/v1/subdomains
func (h *SubdomainHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req CreateSubdomainRequest
	if err := decodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	sub, err := h.subdomains.Request(r.Context(), session.SubjectID, req.Name, req.TargetURL, req.Description)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("subdomain requested",
		zap.String("name", sub.Name),
		zap.String("owner_id", session.SubjectID.String()))

	_ = utils.WriteCreated(w, sub)
}

// HandleListMine handles GET /api/v1/subdomains
func (h *SubdomainHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	limit, offset := parsePagination(r)
	subs, err := h.subdomains.ListMine(r.Context(), session.SubjectID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, subs)
}

// HandleGet handles GET /api/v1/subdomains/{id}. Owners see their own
// requests; operators see everything; anyone else gets a 404 so the
// endpoint does not confirm which IDs exist.
func (h *SubdomainHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid subdomain ID", nil)
		return
	}

	sub, err := h.subdomains.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if sub.OwnerID != session.SubjectID && !middleware.IsOperatorFromContext(r.Context()) {
		_ = utils.WriteNotFound(w, "subdomain not found")
		return
	}

	_ = utils.WriteOK(w, sub)
}
