package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/subnido/subgate/middleware"
	"github.com/subnido/subgate/services"
	"github.com/subnido/subgate/services/account"
	"github.com/subnido/subgate/utils"
)

// CurrentUserResponse is the response body for GET /api/v1/me
type CurrentUserResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name,omitempty"`
	AvatarURL  string     `json:"avatar_url,omitempty"`
	Role       string     `json:"role"`
	Operator   bool       `json:"operator"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// UserHandler handles the current-user endpoint
type UserHandler struct {
	accounts *account.Service
	logger   *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts *account.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// HandleMe handles GET /api/v1/me. A session whose profile row has not
// been provisioned yet is answered from the session claims, so a fresh
// login never 404s on its own identity.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	resp := CurrentUserResponse{
		ID:       session.SubjectID.String(),
		Email:    session.Email,
		FullName: session.FullName,
		Role:     "user",
		Operator: middleware.IsOperatorFromContext(r.Context()),
	}

	acct, err := h.accounts.Get(r.Context(), session.SubjectID)
	switch {
	case err == nil:
		resp.Email = acct.Email
		resp.FullName = acct.FullName
		resp.AvatarURL = acct.AvatarURL
		resp.Role = string(acct.Role)
		resp.LastSeenAt = acct.LastSeenAt
	case services.IsNotFoundError(err):
		// first request after signup can race the profile sync
	default:
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, resp)
}
