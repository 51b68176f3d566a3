package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/subnido/subgate/app"
)

func TestPageHandler(t *testing.T) {
	deps := &app.Dependencies{Logger: zap.NewNop()}

	t.Run("anonymous shell", func(t *testing.T) {
		handler := PageHandler(deps, "home")

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "home", data["page"])
		assert.Equal(t, false, data["authenticated"])
	})

	t.Run("authenticated shell carries identity", func(t *testing.T) {
		handler := PageHandler(deps, "dashboard")
		session := testSession()

		req := withOperator(withSession(httptest.NewRequest(http.MethodGet, "/dashboard", nil), session))
		w := httptest.NewRecorder()

		handler(w, req)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, true, data["authenticated"])
		assert.Equal(t, session.Email, data["email"])
		assert.Equal(t, true, data["operator"])
	})
}
