package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
)

// CookieName is the session cookie
const CookieName = "papertrade_session"

type contextKey struct{}

// Session is the resolved session of a request
type Session struct {
	Data  *Data
	Token string
}

// Manager ties the store to HTTP requests
type Manager struct {
	store  *Store
	log    zerolog.Logger
	secure bool
}

// NewManager creates a session manager. secure marks the cookie Secure (HTTPS only).
func NewManager(store *Store, secure bool, log zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		secure: secure,
		log:    log.With().Str("component", "sessions").Logger(),
	}
}

// Store returns the underlying store
func (m *Manager) Store() *Store {
	return m.store
}

// Middleware resolves the session cookie, if any, into the request context
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		data, err := m.store.Get(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				m.log.Error().Err(err).Msg("Failed to load session")
			}
			m.clearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, &Session{Token: cookie.Value, Data: data})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin redirects anonymous requests to the login page
func (m *Manager) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountID(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPIAccount answers anonymous API requests with 401
func (m *Manager) RequireAPIAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountID(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "login required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login replaces any current session with a new one for account
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, account *domain.Account) error {
	if current := FromContext(r.Context()); current != nil {
		if err := m.store.Delete(r.Context(), current.Token); err != nil {
			m.log.Warn().Err(err).Msg("Failed to drop previous session")
		}
	}

	token, err := m.store.Create(r.Context(), Data{AccountID: account.ID, Username: account.Username})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout deletes the current session and clears the cookie
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) {
	if current := FromContext(r.Context()); current != nil {
		if err := m.store.Delete(r.Context(), current.Token); err != nil {
			m.log.Warn().Err(err).Msg("Failed to delete session")
		}
	}
	m.clearCookie(w)
}

// AddFlash queues a one-time message shown on the next rendered page
func (m *Manager) AddFlash(r *http.Request, message string) {
	current := FromContext(r.Context())
	if current == nil {
		return
	}
	current.Data.Flashes = append(current.Data.Flashes, message)
	if err := m.store.Save(r.Context(), current.Token, current.Data); err != nil {
		m.log.Warn().Err(err).Msg("Failed to store flash message")
	}
}

// PopFlashes returns and clears the queued messages
func (m *Manager) PopFlashes(r *http.Request) []string {
	current := FromContext(r.Context())
	if current == nil || len(current.Data.Flashes) == 0 {
		return nil
	}
	flashes := current.Data.Flashes
	current.Data.Flashes = nil
	if err := m.store.Save(r.Context(), current.Token, current.Data); err != nil {
		m.log.Warn().Err(err).Msg("Failed to clear flash messages")
	}
	return flashes
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromContext returns the request's session or nil
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// AccountID returns the logged-in account id of the request
func AccountID(ctx context.Context) (int64, bool) {
	s := FromContext(ctx)
	if s == nil || s.Data == nil || s.Data.AccountID == 0 {
		return 0, false
	}
	return s.Data.AccountID, true
}

// WithAccount returns a context carrying a session for accountID (tests, CLI)
func WithAccount(ctx context.Context, accountID int64, username string) context.Context {
	return context.WithValue(ctx, contextKey{}, &Session{Data: &Data{AccountID: accountID, Username: username}})
}
