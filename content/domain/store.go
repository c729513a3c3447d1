package domain

import "context"

// Chaves usadas no armazenamento local.
const (
	ContentKey = "markdownContent"
	ConsentKey = "gdpr_consent"
)

// Store é o armazenamento local chave/valor (strings UTF-8).
//
// Get devolve ok=false quando a chave não existe; isso não é erro.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
