package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/subnido/subgate/identity"
	"github.com/subnido/subgate/middleware"
	"github.com/subnido/subgate/utils"
)

// decodeJSON decodes a request body into dst and validates it
func decodeJSON(r *http.Request, dst interface{}) error {
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return utils.ValidateStruct(dst)
}

// parsePagination reads limit/offset query parameters. Zero values let
// the service layer apply its defaults.
func parsePagination(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}

// requireSession pulls the pipeline-resolved session from the request
// context, writing a 401 when the request is anonymous.
func requireSession(w http.ResponseWriter, r *http.Request) (*identity.Session, bool) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return nil, false
	}
	return session, true
}

// requireAdmin additionally checks the operator flag resolved by the
// pipeline. The pipeline already turns non-operators away from admin
// routes; this keeps the API handlers safe if they are ever mounted
// elsewhere.
func requireAdmin(w http.ResponseWriter, r *http.Request) (*identity.Session, bool) {
	session, ok := requireSession(w, r)
	if !ok {
		return nil, false
	}
	if !middleware.IsOperatorFromContext(r.Context()) {
		_ = utils.WriteForbidden(w, "Operator access required")
		return nil, false
	}
	return session, true
}
