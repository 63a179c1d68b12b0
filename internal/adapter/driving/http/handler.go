package httphandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/crmvault/internal/application"
	"github.com/ericfisherdev/crmvault/internal/domain/model"
)

// maxBodyBytes caps request bodies; a login pair is tiny.
const maxBodyBytes = 16 << 10

// CredentialVault is the remember-me boundary the auth guard talks to.
// None of its methods fail; a broken vault looks like an empty one.
type CredentialVault interface {
	SaveCredentials(ctx context.Context, login, password string)
	GetSavedCredentials(ctx context.Context) *model.Credentials
	ClearSavedCredentials(ctx context.Context)
	HasSavedCredentials(ctx context.Context) bool
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	vault   CredentialVault
	origin  string
	metrics http.Handler
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. origin is the
// origin the CRM front end is served from; state-changing requests carrying
// any other Origin header are refused. metrics may be nil to omit the
// /metrics endpoint.
func NewHandler(vault CredentialVault, origin string, metrics http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		vault:   vault,
		origin:  application.NormalizeOrigin(origin),
		metrics: metrics,
		logger:  logger,
	}
}

// NewMetricsHandler exposes the default Prometheus registry.
func NewMetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RegisterAPIRoutes registers all REST API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/v1/remembered-credentials", h.sameOrigin(h.SaveCredentials))
	mux.HandleFunc("GET /api/v1/remembered-credentials", h.GetCredentials)
	mux.HandleFunc("DELETE /api/v1/remembered-credentials", h.sameOrigin(h.ClearCredentials))
	mux.HandleFunc("GET /api/v1/remembered-credentials/status", h.CredentialStatus)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

// NewServeMux creates an http.Handler with all API routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// SaveCredentials remembers the posted login pair exactly as sent. It answers
// 204 whether or not the vault accepted and persisted it.
func (h *Handler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	// Only a JSON content type forces a CORS preflight on cross-site callers.
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}

	var req SaveCredentialsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.vault.SaveCredentials(r.Context(), req.Login, req.Password)
	w.WriteHeader(http.StatusNoContent)
}

// sameOrigin refuses requests whose Origin header names a site other than the
// configured front end. Requests without an Origin header pass: browsers
// always send one on cross-origin POST and DELETE.
func (h *Handler) sameOrigin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get("Origin"); raw != "" {
			origin := application.NormalizeOrigin(raw)
			if origin == "null" || origin != h.origin {
				h.logger.Warn("cross-origin request refused", "origin", raw, "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "origin not allowed")
				return
			}
		}
		next(w, r)
	}
}

// GetCredentials returns the remembered login pair, or 404 when none is usable.
func (h *Handler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	creds := h.vault.GetSavedCredentials(r.Context())
	if creds == nil {
		writeError(w, http.StatusNotFound, "no saved credentials")
		return
	}

	writeJSON(w, http.StatusOK, toCredentialsResponse(*creds))
}

// ClearCredentials forgets the remembered login pair.
func (h *Handler) ClearCredentials(w http.ResponseWriter, r *http.Request) {
	h.vault.ClearSavedCredentials(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// CredentialStatus reports whether a usable login pair is remembered.
func (h *Handler) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, StatusResponse{Saved: h.vault.HasSavedCredentials(r.Context())})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
