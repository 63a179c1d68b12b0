// Package web implements the HTML status page driving adapter using templ components.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/crmvault/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/crmvault/internal/adapter/driving/web/templates/pages"
	"github.com/ericfisherdev/crmvault/internal/adapter/driving/web/viewmodel"
)

// CredentialVault is the part of the vault the status page needs.
type CredentialVault interface {
	HasSavedCredentials(ctx context.Context) bool
	ClearSavedCredentials(ctx context.Context)
}

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	vault        CredentialVault
	ttl          time.Duration
	noticeHTML   string
	secureCookie bool
	logger       *slog.Logger
}

// NewHandler creates a Handler. notice is operator-supplied markdown shown
// under the status; secureCookie marks the CSRF cookie Secure for HTTPS origins.
func NewHandler(vault CredentialVault, ttl time.Duration, notice string, secureCookie bool, logger *slog.Logger) *Handler {
	return &Handler{
		vault:        vault,
		ttl:          ttl,
		noticeHTML:   RenderNotice(notice),
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// Status renders whether a login is remembered on this device.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	view := viewmodel.StatusView{
		Saved:      h.vault.HasSavedCredentials(r.Context()),
		RetainDays: int(h.ttl / (24 * time.Hour)),
		CSRFField:  csrfFormField,
		CSRFToken:  csrfToken(w, r, h.secureCookie),
		NoticeHTML: h.noticeHTML,
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Layout("Remember me", pages.Status(view)).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render status page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// Forget clears the remembered login and redirects back to the status page.
func (h *Handler) Forget(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	h.vault.ClearSavedCredentials(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
