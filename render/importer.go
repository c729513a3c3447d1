package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var ErrEmptyImport = errors.New("imported html has no content")

// Importer converte HTML colado ou enviado em Markdown.
type Importer struct {
	conv *converter.Converter
}

func NewImporter() *Importer {
	return &Importer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert devolve o Markdown de htmlText. domain, se não vazio, resolve
// links relativos.
func (i *Importer) Convert(htmlText, domain string) (string, error) {
	var opts []converter.ConvertOptionFunc
	if domain != "" {
		opts = append(opts, converter.WithDomain(domain))
	}
	md, err := i.conv.ConvertString(htmlText, opts...)
	if err != nil {
		return "", fmt.Errorf("html import: %w", err)
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return "", ErrEmptyImport
	}
	return md, nil
}
