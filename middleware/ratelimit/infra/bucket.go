package infra

import (
	"sync"
	"time"

	"markdown-editor/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// BucketStore é a estratégia alternativa: um token bucket (x/time/rate) por
// chave, dimensionado a partir do mesmo contrato da janela. Um limit de N por
// janela vira burst N com reposição de 1 token a cada window/N.
//
// Diferente do WindowStore, o bucket repõe aos poucos em vez de liberar tudo
// quando a janela vence. A capacidade de chaves segue a mesma regra: sai a
// chave vista pela primeira vez há mais tempo.
type BucketStore struct {
	mu       sync.Mutex
	entries  map[string]*bucketEntry
	seq      uint64
	window   time.Duration
	capacity int
	now      func() time.Time
}

type bucketEntry struct {
	lim       *rate.Limiter
	limit     int
	firstSeen time.Time
	seq       uint64
}

type BucketOption func(*BucketStore)

func WithBucketClock(now func() time.Time) BucketOption {
	return func(s *BucketStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewBucketStore(window time.Duration, capacity int, opts ...BucketOption) *BucketStore {
	s := &BucketStore{
		entries:  make(map[string]*bucketEntry),
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
	_ domain.WindowLimiter     = (*BucketStore)(nil)
	_ domain.RemainingReporter  = (*BucketStore)(nil)
	_ domain.RetryAfterReporter = (*BucketStore)(nil)
)

func (s *BucketStore) Check(key domain.Key, limit int) bool {
	if limit <= 0 {
		return false
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.entryLocked(string(key), limit, now)
	return ent.lim.AllowN(now, 1)
}

func (s *BucketStore) Remaining(key domain.Key, limit int) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[string(key)]
	if !ok || ent.limit != limit {
		return limit
	}
	tokens := int(ent.lim.TokensAt(now))
	if tokens < 0 {
		return 0
	}
	return tokens
}

// RetryAfter é o tempo até o bucket repor o token que falta.
func (s *BucketStore) RetryAfter(key domain.Key, limit int) time.Duration {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[string(key)]
	if !ok || ent.limit != limit {
		return 0
	}
	tokens := ent.lim.TokensAt(now)
	every := ent.lim.Limit()
	if tokens >= 1 || every == rate.Inf || every <= 0 {
		return 0
	}
	return time.Duration((1 - tokens) / float64(every) * float64(time.Second))
}

func (s *BucketStore) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *BucketStore) entryLocked(key string, limit int, now time.Time) *bucketEntry {
	if ent, ok := s.entries[key]; ok {
		if ent.limit != limit {
			// limite mudou (config recarregada): recria o bucket cheio
			ent.lim = s.newLimiter(limit)
			ent.limit = limit
		}
		return ent
	}

	s.seq++
	ent := &bucketEntry{
		lim:       s.newLimiter(limit),
		limit:     limit,
		firstSeen: now,
		seq:       s.seq,
	}
	s.entries[key] = ent

	if s.capacity > 0 && len(s.entries) > s.capacity {
		s.evictOldestLocked()
	}
	return ent
}

func (s *BucketStore) newLimiter(limit int) *rate.Limiter {
	every := s.window / time.Duration(limit)
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, limit)
	}
	return rate.NewLimiter(rate.Every(every), limit)
}

func (s *BucketStore) evictOldestLocked() {
	var (
		victim string
		oldest *bucketEntry
	)
	for k, ent := range s.entries {
		if oldest == nil ||
			ent.firstSeen.Before(oldest.firstSeen) ||
			(ent.firstSeen.Equal(oldest.firstSeen) && ent.seq < oldest.seq) {
			victim, oldest = k, ent
		}
	}
	if oldest != nil {
		delete(s.entries, victim)
	}
}
