package infra

import (
	"sync"
	"time"

	"markdown-editor/middleware/ratelimit/domain"
)

// WindowStore guarda, por chave, os timestamps das requisições dentro da
// janela. Timestamps vencidos só saem no próximo Check da própria chave;
// não existe goroutine de limpeza.
//
// O número de chaves é limitado por capacity. Quando um Check passa do
// limite, sai a chave cujo timestamp retido mais antigo é o menor. Em empate
// exato sai a que foi inserida primeiro no store.
type WindowStore struct {
	mu       sync.Mutex
	entries  map[string]*windowEntry
	seq      uint64
	window   time.Duration
	capacity int
	now      func() time.Time
}

type windowEntry struct {
	hits []time.Time
	// seq é a ordem de inserção, usada só para desempate na evicção.
	seq uint64
}

type WindowOption func(*WindowStore)

// WithClock troca a fonte de tempo (testes).
func WithClock(now func() time.Time) WindowOption {
	return func(s *WindowStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewWindowStore cria o store. capacity <= 0 desliga o limite de chaves.
func NewWindowStore(window time.Duration, capacity int, opts ...WindowOption) *WindowStore {
	s := &WindowStore{
		entries:  make(map[string]*windowEntry),
		window:   window,
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ domain.WindowLimiter     = (*WindowStore)(nil)
	_ domain.RemainingReporter  = (*WindowStore)(nil)
	_ domain.RetryAfterReporter = (*WindowStore)(nil)
)

func (s *WindowStore) Window() time.Duration { return s.window }
func (s *WindowStore) Capacity() int         { return s.capacity }

// Check registra a requisição e diz se ela cabe em limit.
func (s *WindowStore) Check(key domain.Key, limit int) bool {
	now := s.now()
	windowStart := now.Add(-s.window)
	k := string(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[k]
	if !ok {
		s.seq++
		ent = &windowEntry{seq: s.seq}
		s.entries[k] = ent
	}

	kept := ent.hits[:0]
	for _, ts := range ent.hits {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	ent.hits = kept

	if s.capacity > 0 && len(s.entries) > s.capacity {
		s.evictOldestLocked()
	}

	return len(kept) <= limit
}

// Remaining diz quantas requisições ainda cabem na janela, sem registrar nada.
func (s *WindowStore) Remaining(key domain.Key, limit int) int {
	windowStart := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	used := 0
	if ent, ok := s.entries[string(key)]; ok {
		for _, ts := range ent.hits {
			if ts.After(windowStart) {
				used++
			}
		}
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

// RetryAfter é o tempo até timestamps suficientes saírem da janela para a
// próxima requisição caber em limit. Os hits ficam em ordem crescente.
func (s *WindowStore) RetryAfter(key domain.Key, limit int) time.Duration {
	now := s.now()
	windowStart := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[string(key)]
	if !ok {
		return 0
	}
	live := make([]time.Time, 0, len(ent.hits))
	for _, ts := range ent.hits {
		if ts.After(windowStart) {
			live = append(live, ts)
		}
	}
	if limit <= 0 || len(live) < limit {
		return 0
	}
	return live[len(live)-limit].Add(s.window).Sub(now)
}

// Has diz se a chave ainda está rastreada.
func (s *WindowStore) Has(key domain.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[string(key)]
	return ok
}

// Tracked retorna o número de chaves rastreadas.
func (s *WindowStore) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *WindowStore) evictOldestLocked() {
	var (
		victim    string
		victimAt  time.Time
		victimSeq uint64
		found     bool
	)
	for k, ent := range s.entries {
		if len(ent.hits) == 0 {
			continue
		}
		first := ent.hits[0]
		if !found ||
			first.Before(victimAt) ||
			(first.Equal(victimAt) && ent.seq < victimSeq) {
			victim, victimAt, victimSeq, found = k, first, ent.seq, true
		}
	}
	if found {
		delete(s.entries, victim)
	}
}
