package application

import (
	"context"
	"errors"
	"sync"
	"time"
)

// manualScheduler guarda os timers agendados; o teste decide quando disparar.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// FireAll dispara os timers ainda ativos, na ordem em que foram criados.
func (s *manualScheduler) FireAll() int {
	s.mu.Lock()
	pending := make([]*manualTimer, 0, len(s.timers))
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			pending = append(pending, t)
		}
	}
	s.mu.Unlock()

	for _, t := range pending {
		t.fn()
	}
	return len(pending)
}

// FireStale dispara inclusive timers já parados, simulando um timer que
// disparou no mesmo instante em que foi substituído.
func (s *manualScheduler) FireStale() {
	s.mu.Lock()
	all := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range all {
		t.fn()
	}
}

func (s *manualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

var errQuota = errors.New("quota exceeded")

type memStore struct {
	mu      sync.Mutex
	values  map[string]string
	sets    int
	failSet bool
	failGet bool
	failRm  bool
	removed int
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, errQuota
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errQuota
	}
	m.sets++
	m.values[key] = value
	return nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed++
	if m.failRm {
		return errQuota
	}
	delete(m.values, key)
	return nil
}

func (m *memStore) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}
