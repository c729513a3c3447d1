// Package consent guarda as preferências de cookies do usuário sob a chave
// domain.ConsentKey do store local.
//
// Leitura é fail-open: valor ausente, JSON inválido ou erro do store viram
// as preferências padrão (só "necessary") com Decided=false.
package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"markdown-editor/content/domain"
)

const (
	ChoiceAccept = "accept"
	ChoiceReject = "reject"
	ChoiceCustom = "custom"
)

type Preferences struct {
	Necessary     bool      `json:"necessary"`
	Functionality bool      `json:"functionality"`
	Analytics     bool      `json:"analytics"`
	Advertising   bool      `json:"advertising"`
	Timestamp     time.Time `json:"timestamp,omitzero"`
}

// Defaults é o que vale antes de qualquer escolha.
func Defaults() Preferences {
	return Preferences{Necessary: true}
}

// State é o que a API devolve: as preferências efetivas e se o usuário já
// decidiu (senão o banner deve aparecer).
type State struct {
	Preferences Preferences `json:"preferences"`
	Decided     bool        `json:"decided"`
}

// Choice é o pedido do banner. Os booleanos só contam para "custom".
type Choice struct {
	Type          string `json:"type"`
	Functionality bool   `json:"functionality"`
	Analytics     bool   `json:"analytics"`
	Advertising   bool   `json:"advertising"`
}

func (c Choice) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.In(ChoiceAccept, ChoiceReject, ChoiceCustom)),
	)
}

type Service struct {
	store  domain.Store
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(store domain.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("consent store is required")
	}
	s := &Service{store: store, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Get(ctx context.Context) State {
	raw, ok, err := s.store.Get(ctx, domain.ConsentKey)
	if err != nil {
		s.logger.Warn("could not read consent", zap.Error(err))
		return State{Preferences: Defaults()}
	}
	if !ok {
		return State{Preferences: Defaults()}
	}

	var p Preferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("stored consent is malformed, ignoring", zap.Error(err))
		return State{Preferences: Defaults()}
	}
	p.Necessary = true
	return State{Preferences: p, Decided: true}
}

// Apply grava a escolha e devolve as preferências resultantes.
func (s *Service) Apply(ctx context.Context, c Choice) (Preferences, error) {
	if err := c.Validate(); err != nil {
		return Preferences{}, err
	}

	p := Defaults()
	switch c.Type {
	case ChoiceAccept:
		p.Functionality, p.Analytics, p.Advertising = true, true, true
	case ChoiceCustom:
		p.Functionality, p.Analytics, p.Advertising = c.Functionality, c.Analytics, c.Advertising
	}
	p.Timestamp = s.now().UTC()

	raw, err := json.Marshal(p)
	if err != nil {
		return Preferences{}, fmt.Errorf("encode consent: %w", err)
	}
	if err := s.store.Set(ctx, domain.ConsentKey, string(raw)); err != nil {
		return Preferences{}, fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}
	return p, nil
}

// Reset apaga a escolha; o banner volta a aparecer.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.Remove(ctx, domain.ConsentKey)
}
