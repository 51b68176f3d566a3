package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"message": "test"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteOK(w, map[string]string{"result": "success"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "success", dataMap["result"])
}

func TestWriteUnauthorized_DefaultMessage(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteUnauthorized(w, "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "unauthorized", response.Error)
	assert.Equal(t, "Authentication required", response.Message)
}

func TestWriteTooManyRequests(t *testing.T) {
	t.Run("sets retry-after header", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteTooManyRequests(w, "slow down", 900, map[string]interface{}{
			"reset_at": "2026-01-01T00:00:00Z",
		})
		require.NoError(t, err)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "900", w.Header().Get("Retry-After"))

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "rate_limit_exceeded", response.Error)
		assert.Equal(t, "slow down", response.Message)
		assert.Equal(t, "2026-01-01T00:00:00Z", response.Details["reset_at"])
	})

	t.Run("no retry-after when zero", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteTooManyRequests(w, "", 0, nil)
		require.NoError(t, err)

		assert.Empty(t, w.Header().Get("Retry-After"))

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Rate limit exceeded", response.Message)
	})
}
