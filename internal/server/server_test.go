package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlers() *handlers {
	return &handlers{
		validate: validator.New(),
		logger:   zerolog.Nop(),
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateCapsuleRejectsInvalidBody(t *testing.T) {
	h := newTestHandlers()
	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing source", `{"guidance": "be gentle"}`},
		{"empty source", `{"source": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/capsules", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.handleCreateCapsule(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestGenerateRejectsInvalidCapsuleID(t *testing.T) {
	h := newTestHandlers()
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/capsules/nope/generate", nil), "capsuleID", "nope")
	rec := httptest.NewRecorder()
	h.handleGenerate(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid capsule ID")
}

func TestChatAskRejectsMissingQuestion(t *testing.T) {
	h := newTestHandlers()
	req := withURLParam(
		httptest.NewRequest(http.MethodPost, "/chat/lesson-1/messages", strings.NewReader(`{"material": "m"}`)),
		"subjectID", "lesson-1")
	rec := httptest.NewRecorder()
	h.handleChatAsk(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtifactRequestRejectsMissingMaterial(t *testing.T) {
	h := newTestHandlers()
	req := withURLParam(
		httptest.NewRequest(http.MethodPost, "/videos/v1/notes", strings.NewReader(`{"title": "t"}`)),
		"videoID", "v1")
	rec := httptest.NewRecorder()
	h.handleRequestArtifact("notes")(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSSEWriterFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.WriteEvent("chunk", map[string]string{"text": "hi"}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: chunk\n")
	assert.Contains(t, body, `data: {"text":"hi"}`)
	assert.True(t, strings.HasSuffix(body, "\n\n"))
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})
	rec := httptest.NewRecorder()
	RequestID(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsClientHeader(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-chosen")
	rec := httptest.NewRecorder()
	RequestID(next).ServeHTTP(rec, req)

	assert.Equal(t, "client-chosen", rec.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	h := newTestHandlers()
	rec := httptest.NewRecorder()
	h.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
