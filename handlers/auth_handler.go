package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/subnido/subgate/app"
)

// stateCookieName matches the cookie the callback gate verifies
const stateCookieName = "auth_state"

// AuthLoginHandler starts the OAuth2 flow: mint a one-time state value,
// pin it in a short-lived cookie, and send the caller to the hosted UI.
// The callback itself is handled inside the governance pipeline.
func AuthLoginHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.NewString()

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/",
			MaxAge:   300,
			HttpOnly: true,
			Secure:   deps.Config.IsProduction(),
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, deps.Identity.AuthorizeURL(state), http.StatusTemporaryRedirect)
	}
}
