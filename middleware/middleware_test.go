package middleware

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"alumni-server/utils/errors"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (string, error) {
	id, ok := s[token]
	if !ok {
		return "", stderrors.New("bad token")
	}
	return id, nil
}

func decodeAPIError(t *testing.T, rr *httptest.ResponseRecorder) errors.APIError {
	t.Helper()
	var body errors.APIError
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestJWTMiddleware(t *testing.T) {
	var seen string
	protected := JWTMiddleware(stubVerifier{"good": "user-1"}, discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"no header", "", http.StatusUnauthorized, errors.ErrUnauthenticated.Code},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, errors.ErrUnauthenticated.Code},
		{"bare scheme", "Bearer", http.StatusUnauthorized, errors.ErrUnauthenticated.Code},
		{"bare scheme with spaces", "Bearer    ", http.StatusUnauthorized, errors.ErrUnauthenticated.Code},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusBadRequest, errors.ErrInvalidToken.Code},
		{"lower-case scheme", "bearer good", http.StatusBadRequest, errors.ErrInvalidToken.Code},
		{"token scheme", "Token good", http.StatusBadRequest, errors.ErrInvalidToken.Code},
		{"invalid token", "Bearer nope", http.StatusBadRequest, errors.ErrInvalidToken.Code},
		{"valid token", "Bearer good", http.StatusNoContent, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, decodeAPIError(t, rr).Code)
				assert.Empty(t, seen)
				return
			}
			assert.Equal(t, "user-1", seen)
		})
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	_, ok := UserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)

	rr := httptest.NewRecorder()
	WriteError(rr, req, errors.ErrStore.WithDetails("mongo: dial tcp 10.0.0.1:27017"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.1")

	rr = httptest.NewRecorder()
	WriteError(rr, req, stderrors.New("plain failure"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeAPIError(t, rr)
	assert.Equal(t, errors.ErrInternal.Code, body.Code)
	assert.Empty(t, body.Details)

	rr = httptest.NewRecorder()
	WriteError(rr, req, errors.ErrNoSuchRequest)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "No connection request found", decodeAPIError(t, rr).Message)
}

func TestErrorMiddleware_RecoversPanic(t *testing.T) {
	h := ErrorMiddleware(discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, errors.ErrInternal.Code, decodeAPIError(t, rr).Code)
}

func TestWriteError_UsesMiddlewareLogger(t *testing.T) {
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	h := ErrorMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/store":
			WriteError(w, r, errors.ErrStore.WithDetails("connection refused"))
		default:
			WriteError(w, r, errors.ErrNotFound)
		}
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/store", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, logs.String(), "server error")
	assert.Contains(t, logs.String(), "connection refused")
	assert.Contains(t, logs.String(), "path=/store")

	logs.Reset()
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, logs.String())
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware([]string{"http://localhost:3000"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsAndLogging(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	r := mux.NewRouter()
	r.Use(LoggingMiddleware(logger), metrics.Middleware)
	r.HandleFunc("/api/users/{id}/connections", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/"+id+"/connections", nil))
		assert.Equal(t, http.StatusTeapot, rr.Code)
	}

	count := testutil.ToFloat64(metrics.requests.WithLabelValues("/api/users/{id}/connections", http.MethodGet, "418"))
	assert.InDelta(t, 2, count, 0)
	assert.Contains(t, logs.String(), "status=418")
	assert.Contains(t, logs.String(), "path=/api/users/b/connections")
}
