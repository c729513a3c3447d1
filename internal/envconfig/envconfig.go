// Package envconfig lê a configuração dos binários: variáveis de ambiente,
// opcionalmente um .env e um arquivo YAML com valores padrão.
//
// Precedência: ambiente (inclui o que veio do .env) > arquivo YAML > padrão
// do código. Valores inválidos caem no padrão, como sempre foi nos getenv.
package envconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileKey é a variável que aponta para o YAML de padrões.
const FileKey = "CONFIG_FILE"

type Source struct {
	lookup func(string) (string, bool)
	file   map[string]string
}

// Load carrega .env (se existir) e o YAML de CONFIG_FILE (se definido).
func Load(dotenvFiles ...string) (*Source, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	s := &Source{lookup: os.LookupEnv}
	if path := strings.TrimSpace(os.Getenv(FileKey)); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", FileKey, err)
		}
		file, err := ParseYAML(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		s.file = file
	}
	return s, nil
}

// New monta uma Source sem tocar no ambiente do processo (testes).
func New(env map[string]string, file map[string]string) *Source {
	return &Source{
		lookup: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
		file: file,
	}
}

// ParseYAML lê um mapa plano CHAVE: valor. Escalares viram string.
func ParseYAML(raw []byte) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		switch v.(type) {
		case nil:
			continue
		case map[string]any, []any:
			return nil, fmt.Errorf("key %s: nested values are not supported", k)
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = fmt.Sprint(v)
	}
	return out, nil
}

func (s *Source) raw(k string) string {
	if v, ok := s.lookup(k); ok && v != "" {
		return v
	}
	return s.file[k]
}

func (s *Source) IsSet(k string) bool {
	return s.raw(k) != ""
}

func (s *Source) String(k, def string) string {
	if v := s.raw(k); v != "" {
		return v
	}
	return def
}

func (s *Source) Int(k string, def int) int {
	v := s.raw(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func (s *Source) Int64(k string, def int64) int64 {
	v := s.raw(k)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func (s *Source) Float(k string, def float64) float64 {
	v := s.raw(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func (s *Source) Bool(k string, def bool) bool {
	v := s.raw(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Source) Duration(k string, def time.Duration) time.Duration {
	v := s.raw(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
