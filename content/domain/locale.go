package domain

import (
	"fmt"
	"strings"
)

type Locale string

const (
	LocaleEN Locale = "en"
	LocaleES Locale = "es"

	DefaultLocale = LocaleES
)

func Locales() []Locale { return []Locale{LocaleEN, LocaleES} }

// ParseLocale aceita "en", "es" e variantes regionais ("es-AR", "en_US").
func ParseLocale(s string) (Locale, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(v, "-_"); i > 0 {
		v = v[:i]
	}
	switch Locale(v) {
	case LocaleEN, LocaleES:
		return Locale(v), nil
	}
	return "", fmt.Errorf("unsupported locale %q", s)
}

// TemplateSource fornece o documento de exemplo de cada idioma.
type TemplateSource interface {
	Template(locale Locale) string
	// IsDefault diz se text, sem espaços nas pontas, é exatamente um dos templates.
	IsDefault(text string) bool
}
