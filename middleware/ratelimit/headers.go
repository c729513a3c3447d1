package ratelimit

import (
	"net/http"
	"strings"
)

// HeaderConfig são os headers aplicados às respostas que passaram pelo limite.
// Campos vazios não são enviados.
type HeaderConfig struct {
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
	CSP                string

	AllowOrigin  string
	AllowMethods string
	AllowHeaders string

	// HSTS só é enviado quando Production é true.
	HSTS       string
	Production bool
}

// DefaultCSP monta a política usada pelo editor: preview com imagens
// externas e fontes do Google, nada de frames.
func DefaultCSP() string {
	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-eval' 'unsafe-inline'",
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
		"style-src-elem 'self' 'unsafe-inline' https://fonts.googleapis.com",
		"img-src 'self' data: https: http: blob:",
		"font-src 'self' https://fonts.gstatic.com",
		"connect-src 'self' https://api.github.com https://ipapi.co",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
}

func DefaultHeaders() HeaderConfig {
	return HeaderConfig{
		FrameOptions:       "SAMEORIGIN",
		ContentTypeOptions: "nosniff",
		XSSProtection:      "1; mode=block",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		PermissionsPolicy:  "camera=(), microphone=(), geolocation=()",
		CSP:                DefaultCSP(),
		AllowOrigin:        "*",
		AllowMethods:       "GET, POST, PUT, DELETE, OPTIONS",
		AllowHeaders:       "Content-Type, Authorization",
		HSTS:               "max-age=31536000; includeSubDomains",
	}
}

func SecurityHeaders(cfg HeaderConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			set := func(name, value string) {
				if value != "" {
					h.Set(name, value)
				}
			}
			set("X-Frame-Options", cfg.FrameOptions)
			set("X-Content-Type-Options", cfg.ContentTypeOptions)
			set("X-XSS-Protection", cfg.XSSProtection)
			set("Referrer-Policy", cfg.ReferrerPolicy)
			set("Permissions-Policy", cfg.PermissionsPolicy)
			set("Content-Security-Policy", cfg.CSP)
			set("Access-Control-Allow-Origin", cfg.AllowOrigin)
			set("Access-Control-Allow-Methods", cfg.AllowMethods)
			set("Access-Control-Allow-Headers", cfg.AllowHeaders)
			if cfg.Production {
				set("Strict-Transport-Security", cfg.HSTS)
			}
			next.ServeHTTP(w, r)
		})
	}
}
