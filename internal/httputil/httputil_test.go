package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, map[string]bool{"started": true})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"started": true}`, w.Body.String())
}

func TestFail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus int
	}{
		{"explicit status", http.StatusNotFound, http.StatusNotFound},
		{"zero defaults to 500", 0, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Fail(discardLogger(), w, "session not found", errors.New("boom"), tt.status)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), "session not found")
		})
	}
}

func TestValidationError(t *testing.T) {
	type request struct {
		Question string `json:"question" validate:"required,max=10"`
	}

	w := httptest.NewRecorder()
	ValidationError(discardLogger(), w, Validator.Struct(&request{}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error  string   `json:"error"`
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, []string{"question failed on required"}, body.Fields)

	w = httptest.NewRecorder()
	ValidationError(discardLogger(), w, errors.New("not a validator error"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request")
}

func TestPlaintextValidation(t *testing.T) {
	type request struct {
		Paragraph string `validate:"plaintext"`
	}
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"ascii", "Google LLC is an American company.", false},
		{"multibyte", "Zürich, 東京", false},
		{"empty", "", false},
		{"invalid utf-8", "abc\xff\xfe", true},
		{"nul byte", "abc\x00def", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validator.Struct(&request{Paragraph: tt.text})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecovererReturns500(t *testing.T) {
	h := Recoverer(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthHandler(t *testing.T) {
	r := NewRouter(discardLogger())
	r.Get("/healthz", HealthHandler(discardLogger()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestServeHealthStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Port 0 lets the OS pick a free port.
	assert.NoError(t, ServeHealth(ctx, 0, discardLogger(), "test"))
}
