package handlers

import (
	"net/http"

	"github.com/subnido/subgate/app"
	"github.com/subnido/subgate/middleware"
	"github.com/subnido/subgate/utils"
)

// pageShell is the JSON descriptor the frontend hydrates for each route.
// The gateway owns routing decisions; the page bodies live client-side.
type pageShell struct {
	Page          string `json:"page"`
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Operator      bool   `json:"operator,omitempty"`
}

// PageHandler serves the shell for a named page. The pipeline has
// already settled who may see it; by the time this runs the request is
// authorized for the route.
func PageHandler(deps *app.Dependencies, page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shell := pageShell{Page: page}

		if session := middleware.GetSessionFromContext(r.Context()); session != nil {
			shell.Authenticated = true
			shell.Email = session.Email
			shell.Operator = middleware.IsOperatorFromContext(r.Context())
		}

		_ = utils.WriteOK(w, shell)
	}
}
