package web

import (
	"net/http"

	"github.com/aristath/papertrade/internal/modules/sessions"
)

// Flasher pops the one-time messages of a request's session
type Flasher interface {
	PopFlashes(r *http.Request) []string
}

// NewPage builds the template payload for a request: the logged-in username,
// pending flash messages and the page data.
func NewPage(r *http.Request, flasher Flasher, title string, data interface{}) Page {
	page := Page{Title: title, Data: data}
	if s := sessions.FromContext(r.Context()); s != nil && s.Data != nil {
		page.Username = s.Data.Username
	}
	if flasher != nil {
		page.Flashes = flasher.PopFlashes(r)
	}
	return page
}

// RenderError renders the apology page for err.
// Unexpected errors are logged here and shown to the user as a generic message.
func (r *Renderer) RenderError(w http.ResponseWriter, req *http.Request, flasher Flasher, err error) {
	status, message := ErrorResponse(err)
	if !IsClientError(err) {
		r.log.Error().Err(err).Str("path", req.URL.Path).Msg("Request failed")
	}
	r.Apologize(w, status, message, NewPage(req, flasher, "Apology", nil))
}
