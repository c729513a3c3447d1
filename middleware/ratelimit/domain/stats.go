package domain

import (
	"context"
	"time"
)

// StatsEvent é uma decisão do rate limit, registrada depois do Check.
//
// Cuidado com cardinalidade: Key e Path sem controle explodem o número de
// chaves em Redis.
type StatsEvent struct {
	Key     Key
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas das decisões.
// O middleware trata erro como best-effort: nunca derruba a request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// StatsTotals é o agregado exposto no endpoint de estatísticas.
type StatsTotals struct {
	Allowed int64            `json:"allowed"`
	Denied  int64            `json:"denied"`
	ByRoute map[string]int64 `json:"denied_by_route,omitempty"`
	// ByKey só vem preenchido quando o store rastreia chaves.
	ByKey map[string]int64 `json:"denied_by_key,omitempty"`
}

// StatsReader é opcional: stores que sabem devolver os totais.
type StatsReader interface {
	Totals(ctx context.Context) (StatsTotals, error)
}
