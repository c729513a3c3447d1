// Package server expõe o editor por HTTP (chi).
//
// Todas as rotas de escrita passam pelo Pipeline, que serializa o acesso ao
// documento; os handlers não guardam estado próprio.
package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"markdown-editor/consent"
	"markdown-editor/content/application"
	"markdown-editor/content/domain"
	"markdown-editor/export"
	"markdown-editor/logging"
	"markdown-editor/render"
)

type Deps struct {
	Pipeline *application.Pipeline
	Exporter *export.Exporter
	Renderer *render.Renderer
	Importer *render.Importer
	Consent  *consent.Service
	Logger   *zap.Logger

	// Middlewares rodam antes das rotas, na ordem dada (rate limit, headers).
	Middlewares []func(http.Handler) http.Handler

	// MaxBodyBytes limita o corpo das requisições JSON. Zero usa 4x o
	// tamanho máximo do documento, que cobre o escape do JSON.
	MaxBodyBytes int64
}

type handlers struct {
	Deps
}

func NewRouter(d Deps) (http.Handler, error) {
	if d.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if d.Consent == nil {
		return nil, errors.New("consent service is required")
	}
	if d.Exporter == nil {
		d.Exporter = export.New()
	}
	if d.Renderer == nil {
		d.Renderer = render.NewRenderer()
	}
	if d.Importer == nil {
		d.Importer = render.NewImporter()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = 4 * domain.DefaultMaxContentBytes
	}

	h := &handlers{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.AccessLog(d.Logger))
	r.Use(middleware.Recoverer)
	for _, mw := range d.Middlewares {
		r.Use(mw)
	}
	r.Use(preflight)

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/document", func(r chi.Router) {
			r.Get("/", h.getDocument)
			r.Put("/", h.putDocument)
			r.Delete("/", h.clearDocument)
			r.Post("/save", h.saveDocument)
			r.Get("/status", h.documentStatus)
		})
		r.Put("/locale", h.putLocale)
		r.Post("/preview", h.preview)
		r.Get("/export", h.exportDocument)
		r.Post("/import/html", h.importHTML)
		r.Get("/consent", h.getConsent)
		r.Put("/consent", h.putConsent)
	})

	return r, nil
}

// preflight responde OPTIONS antes do roteamento; os headers de CORS já
// foram postos pelos middlewares anteriores.
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
