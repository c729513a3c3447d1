package infra

import (
	"context"
	"maps"
	"sync"

	"markdown-editor/middleware/ratelimit/domain"
)

// MemoryStatsStore agrega as decisões do limiter em memória, sem expiração.
// Guarda só o que o endpoint de estatísticas expõe: totais, negações por
// rota e, opcionalmente, negações por chave.
type MemoryStatsStore struct {
	mu sync.Mutex

	allowed      int64
	denied       int64
	deniedRoutes map[string]int64
	deniedKeys   map[string]int64

	trackKeys   bool
	maxKeys     int
	droppedKeys int64
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

// WithMaxTrackedKeys limita a cardinalidade por chave; 0 desliga o limite.
func WithMaxTrackedKeys(n int) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.maxKeys = n }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		deniedRoutes: make(map[string]int64),
		deniedKeys:   make(map[string]int64),
		maxKeys:      500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ domain.StatsStore  = (*MemoryStatsStore)(nil)
	_ domain.StatsReader = (*MemoryStatsStore)(nil)
)

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Allowed {
		s.allowed++
		return nil
	}
	s.denied++
	s.deniedRoutes[routeField(ev.Method, ev.Path)]++

	if !s.trackKeys {
		return nil
	}
	key := string(ev.Key)
	if _, seen := s.deniedKeys[key]; !seen && s.maxKeys > 0 && len(s.deniedKeys) >= s.maxKeys {
		s.droppedKeys++
		return nil
	}
	s.deniedKeys[key]++
	return nil
}

func (s *MemoryStatsStore) Totals(_ context.Context) (domain.StatsTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := domain.StatsTotals{
		Allowed: s.allowed,
		Denied:  s.denied,
		ByRoute: maps.Clone(s.deniedRoutes),
	}
	if s.trackKeys {
		out.ByKey = maps.Clone(s.deniedKeys)
	}
	return out, nil
}

// DroppedKeys conta negações não atribuídas a uma chave por causa do limite.
func (s *MemoryStatsStore) DroppedKeys() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedKeys
}
