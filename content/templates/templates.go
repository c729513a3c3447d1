// Package templates embute os documentos de exemplo exibidos para quem abre
// o editor pela primeira vez, um por idioma.
package templates

import (
	_ "embed"
	"strings"

	"markdown-editor/content/domain"
)

var (
	//go:embed en.md
	english string
	//go:embed es.md
	spanish string
)

// Set é um conjunto de templates por idioma. Idioma sem template cai no
// fallback.
type Set struct {
	byLocale map[domain.Locale]string
	fallback domain.Locale
}

var _ domain.TemplateSource = (*Set)(nil)

// Default devolve os templates embutidos (en, es) com fallback em es.
func Default() *Set {
	return New(map[domain.Locale]string{
		domain.LocaleEN: english,
		domain.LocaleES: spanish,
	}, domain.DefaultLocale)
}

func New(byLocale map[domain.Locale]string, fallback domain.Locale) *Set {
	m := make(map[domain.Locale]string, len(byLocale))
	for k, v := range byLocale {
		m[k] = v
	}
	return &Set{byLocale: m, fallback: fallback}
}

func (s *Set) Template(locale domain.Locale) string {
	if t, ok := s.byLocale[locale]; ok {
		return t
	}
	return s.byLocale[s.fallback]
}

// IsDefault compara com trim nas pontas; qualquer outra diferença, mesmo um
// caractere, conta como edição do usuário.
func (s *Set) IsDefault(text string) bool {
	clean := strings.TrimSpace(text)
	for _, t := range s.byLocale {
		if clean == strings.TrimSpace(t) {
			return true
		}
	}
	return false
}
