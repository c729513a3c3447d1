// Package export monta o arquivo que o usuário baixa: nome saneado,
// conteúdo em UTF-8 e limite de tamanho.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
)

// DefaultMaxBytes é o maior arquivo exportável (10 MiB).
const DefaultMaxBytes int64 = 10 * 1024 * 1024

const (
	maxFilenameLen = 255
	ContentType    = "text/markdown; charset=utf-8"
)

var (
	ErrExportTooLarge   = errors.New("export too large")
	ErrNothingToExport  = errors.New("nothing to export")
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	trailingBlanks      = regexp.MustCompile(`(?m)[ \t]+$`)
	extraNewlines       = regexp.MustCompile(`\n{3,}`)
)

// File é o resultado pronto para download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Exporter struct {
	maxBytes int64
	now      func() time.Time
	clean    bool
}

type Option func(*Exporter)

// WithMaxBytes troca o limite; n <= 0 mantém o padrão.
func WithMaxBytes(n int64) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithCleanContent normaliza o texto com CleanContent antes de exportar.
func WithCleanContent(clean bool) Option {
	return func(e *Exporter) { e.clean = clean }
}

func New(opts ...Option) *Exporter {
	e := &Exporter{maxBytes: DefaultMaxBytes, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exporter) MaxBytes() int64 { return e.maxBytes }

// Build gera o arquivo para content. Texto em branco devolve
// ErrNothingToExport; acima do limite, ErrExportTooLarge.
func (e *Exporter) Build(content string) (File, error) {
	if strings.TrimSpace(content) == "" {
		return File{}, ErrNothingToExport
	}
	if e.clean {
		content = CleanContent(content)
	}

	data := []byte(strings.ToValidUTF8(content, "\uFFFD"))
	if int64(len(data)) > e.maxBytes {
		return File{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrExportTooLarge, len(data), e.maxBytes)
	}

	return File{
		Name:        e.Filename(content),
		ContentType: ContentType,
		Data:        data,
	}, nil
}

// Filename usa o title do front matter quando existir; senão
// markdown-YYYY-MM-DD.md com a data de hoje.
func (e *Exporter) Filename(content string) string {
	if title := frontMatterTitle(content); title != "" {
		stem := SanitizeFilename(strings.ReplaceAll(strings.TrimSpace(title), " ", "-"))
		stem = strings.Trim(stem, ".")
		if stem != "" {
			return capLength(stem + ".md")
		}
	}
	return SanitizeFilename("markdown-" + e.now().Format("2006-01-02") + ".md")
}

func frontMatterTitle(content string) string {
	if !strings.HasPrefix(strings.TrimLeft(content, "\ufeff"), "---") {
		return ""
	}
	var meta struct {
		Title string `yaml:"title"`
	}
	if _, err := frontmatter.Parse(strings.NewReader(content), &meta); err != nil {
		return ""
	}
	return meta.Title
}

// SanitizeFilename mantém só [A-Za-z0-9._-], remove ".." e corta em 255.
// O resultado nunca contém separador de diretório.
func SanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "")
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "")
	}
	return capLength(s)
}

func capLength(s string) string {
	if len(s) > maxFilenameLen {
		return s[:maxFilenameLen]
	}
	return s
}

// AllowedExtension diz se name tem extensão de texto aceita para importar.
func AllowedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// CleanContent troca CRLF por LF, tira espaços no fim das linhas e reduz
// três ou mais quebras seguidas para duas.
func CleanContent(content string) string {
	s := strings.ReplaceAll(content, "\r\n", "\n")
	s = trailingBlanks.ReplaceAllString(s, "")
	return extraNewlines.ReplaceAllString(s, "\n\n")
}

// Reader devolve os bytes do arquivo para io.Copy.
func (f File) Reader() *bytes.Reader {
	return bytes.NewReader(f.Data)
}
