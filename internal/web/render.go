// Package web renders the HTML pages of the papertrade site.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names
const (
	PageIndex    = "index"
	PageBuy      = "buy"
	PageSell     = "sell"
	PageQuote    = "quote"
	PageQuoted   = "quoted"
	PageHistory  = "history"
	PageLogin    = "login"
	PageRegister = "register"
	PageApology  = "apology"
)

var pages = []string{
	PageIndex, PageBuy, PageSell, PageQuote, PageQuoted,
	PageHistory, PageLogin, PageRegister, PageApology,
}

// Page is what every template receives
type Page struct {
	Data     interface{}
	Title    string
	Username string
	Flashes  []string
}

// Apology is the payload of the error page
type Apology struct {
	Message string
	Code    int
}

// Renderer executes the page templates
type Renderer struct {
	templates map[string]*template.Template
	log       zerolog.Logger
}

// FuncMap holds the helpers available to templates
var FuncMap = template.FuncMap{
	"usd": domain.FormatUSD,
	"usdp": func(d *decimal.Decimal) string {
		if d == nil {
			return ""
		}
		return domain.FormatUSD(*d)
	},
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05")
	},
}

// NewRenderer parses every page against the shared layout
func NewRenderer(log zerolog.Logger) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template, len(pages)),
		log:       log.With().Str("component", "web").Logger(),
	}

	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(FuncMap).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		r.templates[page] = tmpl
	}

	return r, nil
}

// Render writes a page with the given status code.
// The page is executed into a buffer first so a template error never produces half a page.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	tmpl, ok := r.templates[name]
	if !ok {
		r.log.Error().Str("page", name).Msg("Unknown page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.log.Error().Err(err).Str("page", name).Msg("Failed to render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Apologize renders the error page
func (r *Renderer) Apologize(w http.ResponseWriter, status int, message string, page Page) {
	page.Title = "Apology"
	page.Data = Apology{Code: status, Message: message}
	r.Render(w, status, PageApology, page)
}
