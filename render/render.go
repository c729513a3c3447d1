// Package render converte o documento para a pré-visualização e importa
// HTML de volta para Markdown.
//
// A extensão GFM já traz tabelas e listas de tarefas.
//
// O Markdown aceita HTML cru (como o preview do editor sempre aceitou); a
// saída do goldmark passa pelo bluemonday antes de sair, o que remove
// <script>, atributos on* e URLs javascript:.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

var languageClass = regexp.MustCompile(`^language-[a-zA-Z0-9_+#-]+$`)

type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

type RendererOption func(*rendererConfig)

type rendererConfig struct {
	hardWraps bool
}

// WithHardWraps trata cada quebra de linha como <br>.
func WithHardWraps(on bool) RendererOption {
	return func(c *rendererConfig) { c.hardWraps = on }
}

func NewRenderer(opts ...RendererOption) *Renderer {
	var cfg rendererConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	rendererOptions := []goldmark.Option{}
	htmlOptions := []renderer.Option{html.WithUnsafe()}
	if cfg.hardWraps {
		htmlOptions = append(htmlOptions, html.WithHardWraps())
	}
	rendererOptions = append(rendererOptions,
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(htmlOptions...),
	)

	return &Renderer{
		md:     goldmark.New(rendererOptions...),
		policy: previewPolicy(),
	}
}

func previewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	// blocos de código com realce por linguagem
	p.AllowAttrs("class").Matching(languageClass).OnElements("code")
	// listas de tarefas do GFM
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return p
}

// Render devolve o HTML saneado de src.
func (r *Renderer) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// Sanitize aplica só a política de HTML, sem passar pelo Markdown.
func (r *Renderer) Sanitize(htmlText string) string {
	return strings.TrimSpace(r.policy.Sanitize(htmlText))
}
