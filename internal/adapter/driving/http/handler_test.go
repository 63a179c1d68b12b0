package httphandler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/crmvault/internal/adapter/driving/http"
	"github.com/ericfisherdev/crmvault/internal/domain/model"
)

// --- Mock implementations ---

type mockVault struct {
	creds   *model.Credentials
	saved   []model.Credentials
	cleared int
	panics  bool
}

func (m *mockVault) SaveCredentials(_ context.Context, login, password string) {
	m.saved = append(m.saved, model.Credentials{Login: login, Password: password})
	m.creds = &model.Credentials{Login: login, Password: password}
}

func (m *mockVault) GetSavedCredentials(_ context.Context) *model.Credentials {
	if m.panics {
		panic("vault exploded")
	}
	return m.creds
}

func (m *mockVault) ClearSavedCredentials(_ context.Context) {
	m.cleared++
	m.creds = nil
}

func (m *mockVault) HasSavedCredentials(ctx context.Context) bool {
	return m.GetSavedCredentials(ctx) != nil
}

// --- Test helpers ---

const testOrigin = "https://crm.example.com"

func setupMux(vault *mockVault) http.Handler {
	h := httphandler.NewHandler(vault, testOrigin, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	}), slog.Default())
	return httphandler.NewServeMux(h, slog.Default())
}

func serve(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

// --- Tests ---

func TestSaveCredentials(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantSaved  []model.Credentials
	}{
		{
			name:       "valid pair",
			body:       `{"login":"anna","password":"hunter2"}`,
			wantStatus: http.StatusNoContent,
			wantSaved:  []model.Credentials{{Login: "anna", Password: "hunter2"}},
		},
		{
			name:       "login and password kept verbatim",
			body:       `{"login":" anna ","password":" pw "}`,
			wantStatus: http.StatusNoContent,
			wantSaved:  []model.Credentials{{Login: " anna ", Password: " pw "}},
		},
		{
			name:       "missing login left to the vault",
			body:       `{"password":"pw"}`,
			wantStatus: http.StatusNoContent,
			wantSaved:  []model.Credentials{{Login: "", Password: "pw"}},
		},
		{
			name:       "invalid json",
			body:       `{login`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "oversized body",
			body:       `{"login":"anna","password":"` + strings.Repeat("x", 32<<10) + `"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := &mockVault{}
			rec := serve(setupMux(vault), http.MethodPost, "/api/v1/remembered-credentials", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSaved, vault.saved)
		})
	}
}

func TestSaveThenGet_RoundTripsLoginUnchanged(t *testing.T) {
	mux := setupMux(&mockVault{})

	rec := serve(mux, http.MethodPost, "/api/v1/remembered-credentials", `{"login":" anna ","password":"pw"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(mux, http.MethodGet, "/api/v1/remembered-credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body httphandler.CredentialsResponse
	decodeJSON(t, rec, &body)
	assert.Equal(t, " anna ", body.Login)
	assert.Equal(t, "pw", body.Password)
}

func TestSaveCredentials_ContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantStatus  int
	}{
		{"json", "application/json", http.StatusNoContent},
		{"json with charset", "application/json; charset=utf-8", http.StatusNoContent},
		{"plain text", "text/plain", http.StatusUnsupportedMediaType},
		{"form", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing", "", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := &mockVault{}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/remembered-credentials",
				strings.NewReader(`{"login":"attacker","password":"pw"}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			setupMux(vault).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusNoContent {
				assert.Empty(t, vault.saved)
			}
		})
	}
}

func TestStateChangingRequests_Origin(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
	}{
		{"save without origin", http.MethodPost, "", http.StatusNoContent},
		{"save same origin", http.MethodPost, testOrigin, http.StatusNoContent},
		{"save same origin default port", http.MethodPost, "https://CRM.example.com:443", http.StatusNoContent},
		{"save other site", http.MethodPost, "https://evil.example", http.StatusForbidden},
		{"save other scheme", http.MethodPost, "http://crm.example.com", http.StatusForbidden},
		{"save opaque origin", http.MethodPost, "null", http.StatusForbidden},
		{"clear same origin", http.MethodDelete, testOrigin, http.StatusNoContent},
		{"clear other site", http.MethodDelete, "https://evil.example", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := &mockVault{creds: &model.Credentials{Login: "anna", Password: "pw"}}
			req := httptest.NewRequest(tt.method, "/api/v1/remembered-credentials",
				strings.NewReader(`{"login":"attacker","password":"pw"}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			setupMux(vault).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Empty(t, vault.saved)
				assert.Zero(t, vault.cleared)
				require.NotNil(t, vault.creds)
				assert.Equal(t, "anna", vault.creds.Login)
			}
		})
	}
}

func TestGetCredentials(t *testing.T) {
	t.Run("remembered", func(t *testing.T) {
		vault := &mockVault{creds: &model.Credentials{Login: "anna", Password: "hunter2"}}
		rec := serve(setupMux(vault), http.MethodGet, "/api/v1/remembered-credentials", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body httphandler.CredentialsResponse
		decodeJSON(t, rec, &body)
		assert.Equal(t, "anna", body.Login)
		assert.Equal(t, "hunter2", body.Password)
	})

	t.Run("nothing remembered", func(t *testing.T) {
		rec := serve(setupMux(&mockVault{}), http.MethodGet, "/api/v1/remembered-credentials", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body map[string]string
		decodeJSON(t, rec, &body)
		assert.Equal(t, "no saved credentials", body["error"])
	})
}

func TestClearCredentials(t *testing.T) {
	vault := &mockVault{creds: &model.Credentials{Login: "anna"}}
	mux := setupMux(vault)

	rec := serve(mux, http.MethodDelete, "/api/v1/remembered-credentials", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(mux, http.MethodDelete, "/api/v1/remembered-credentials", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, vault.cleared)
}

func TestCredentialStatus(t *testing.T) {
	tests := []struct {
		name  string
		creds *model.Credentials
		want  bool
	}{
		{"saved", &model.Credentials{Login: "anna"}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(setupMux(&mockVault{creds: tt.creds}), http.MethodGet, "/api/v1/remembered-credentials/status", "")

			assert.Equal(t, http.StatusOK, rec.Code)
			var body httphandler.StatusResponse
			decodeJSON(t, rec, &body)
			assert.Equal(t, tt.want, body.Saved)
		})
	}
}

func TestHealth(t *testing.T) {
	rec := serve(setupMux(&mockVault{}), http.MethodGet, "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body httphandler.HealthResponse
	decodeJSON(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Time)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(setupMux(&mockVault{}), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestMetricsEndpointOmitted(t *testing.T) {
	h := httphandler.NewHandler(&mockVault{}, testOrigin, nil, slog.Default())
	rec := serve(httphandler.NewServeMux(h, slog.Default()), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	rec := serve(setupMux(&mockVault{panics: true}), http.MethodGet, "/api/v1/remembered-credentials", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "internal server error", body["error"])
}

func TestMethodNotAllowed(t *testing.T) {
	rec := serve(setupMux(&mockVault{}), http.MethodPut, "/api/v1/remembered-credentials", `{}`)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestID_Generated(t *testing.T) {
	rec := serve(setupMux(&mockVault{}), http.MethodGet, "/api/v1/health", "")

	id := rec.Header().Get(httphandler.RequestIDHeader)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestRequestID_Propagated(t *testing.T) {
	want := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(httphandler.RequestIDHeader, want)
	rec := httptest.NewRecorder()
	setupMux(&mockVault{}).ServeHTTP(rec, req)

	assert.Equal(t, want, rec.Header().Get(httphandler.RequestIDHeader))
}

func TestRequestID_MalformedReplaced(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(httphandler.RequestIDHeader, "not-a-uuid\r\ninjected")
	rec := httptest.NewRecorder()
	setupMux(&mockVault{}).ServeHTTP(rec, req)

	got := rec.Header().Get(httphandler.RequestIDHeader)
	assert.NotEqual(t, "not-a-uuid\r\ninjected", got)
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
}
