package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteJSON(rec, 200, map[string]string{"hello": "world"})
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, rec.Body.String())
}

func TestWriteJSON_NilBody(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteJSON(rec, 204, nil))
	assert.Equal(t, 204, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteBadRequest(rec, "invalid payload", map[string]interface{}{"prompt": "Prompt is required"})
	require.NoError(t, err)

	assert.Equal(t, 400, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "bad_request", resp.Error)
	assert.Equal(t, "invalid payload", resp.Message)
	assert.Equal(t, "Prompt is required", resp.Details["prompt"])
}

func TestWriteNotFound_DefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteNotFound(rec, ""))
	assert.Equal(t, 404, rec.Code)
	assert.Equal(t, "Resource not found", decodeError(t, rec).Message)
}

func TestWriteTooManyRequests(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteTooManyRequests(rec, "", nil))
	assert.Equal(t, 429, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", decodeError(t, rec).Error)
}

func TestWriteServiceUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteServiceUnavailable(rec, "model unavailable"))
	assert.Equal(t, 503, rec.Code)
	assert.Equal(t, "model unavailable", decodeError(t, rec).Message)
}
