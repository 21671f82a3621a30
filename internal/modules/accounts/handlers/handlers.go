// Package handlers provides HTTP handlers for registration, login and logout.
package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/aristath/papertrade/internal/modules/sessions"
	"github.com/aristath/papertrade/internal/web"
)

// Handler handles account HTTP requests
type Handler struct {
	service  *accounts.Service
	sessions *sessions.Manager
	renderer *web.Renderer
	log      zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(
	service *accounts.Service,
	sessionManager *sessions.Manager,
	renderer *web.Renderer,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		sessions: sessionManager,
		renderer: renderer,
		log:      log.With().Str("handler", "accounts").Logger(),
	}
}

// HandleLoginForm handles GET /login
func (h *Handler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, web.PageLogin, web.NewPage(r, h.sessions, "Log In", nil))
}

// HandleLogin handles POST /login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, domain.ErrMissingField) {
			// the login form answers every incomplete submission with 403
			_, message := web.ErrorResponse(err)
			h.renderer.Apologize(w, http.StatusForbidden, message, web.NewPage(r, h.sessions, "Apology", nil))
			return
		}
		h.renderer.RenderError(w, r, h.sessions, err)
		return
	}

	if err := h.sessions.Login(w, r, account); err != nil {
		h.renderer.RenderError(w, r, h.sessions, err)
		return
	}

	h.log.Info().Int64("account_id", account.ID).Msg("Logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout handles GET /logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleRegisterForm handles GET /register
func (h *Handler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, web.PageRegister, web.NewPage(r, h.sessions, "Register", nil))
}

// HandleRegister handles POST /register.
// A new account is logged in straight away.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Register(r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("password"),
		r.PostFormValue("confirmation"),
	)
	if err != nil {
		h.renderer.RenderError(w, r, h.sessions, err)
		return
	}

	if err := h.sessions.Login(w, r, account); err != nil {
		h.renderer.RenderError(w, r, h.sessions, err)
		return
	}

	h.log.Info().Int64("account_id", account.ID).Str("username", account.Username).Msg("Registered")
	http.Redirect(w, r, "/", http.StatusFound)
}
