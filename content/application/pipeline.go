package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"markdown-editor/content/domain"
)

const (
	DefaultSaveDelay   = 1500 * time.Millisecond
	DefaultSaveTimeout = 5 * time.Second
)

type Config struct {
	// MaxBytes é o tamanho máximo aceito para o documento (padrão 5 MiB).
	MaxBytes    int64
	SaveDelay   time.Duration
	SaveTimeout time.Duration
	Locale      domain.Locale
	// Key é a chave do snapshot no store (padrão domain.ContentKey).
	Key string
}

func (c Config) withDefaults() Config {
	if c.MaxBytes <= 0 {
		c.MaxBytes = domain.DefaultMaxContentBytes
	}
	if c.SaveDelay <= 0 {
		c.SaveDelay = DefaultSaveDelay
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = DefaultSaveTimeout
	}
	if c.Locale == "" {
		c.Locale = domain.DefaultLocale
	}
	if c.Key == "" {
		c.Key = domain.ContentKey
	}
	return c
}

type LoadSource string

const (
	LoadedFromStore    LoadSource = "store"
	LoadedFromTemplate LoadSource = "template"
)

type LoadResult struct {
	Source LoadSource
	// DiscardedOversized indica que havia um snapshot maior que o limite.
	// Ele não é apagado do store; só não é adotado.
	DiscardedOversized bool
}

// Pipeline é a cópia autoritativa do documento em memória.
//
// Todo acesso passa por mu, inclusive o save disparado pelo timer; isso
// equivale ao modelo de uma única thread de eventos.
type Pipeline struct {
	mu        sync.Mutex
	store     domain.Store
	templates domain.TemplateSource
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
	debouncer *Debouncer

	content      string
	lines        int
	locale       domain.Locale
	persisted    string
	hasPersisted bool
	// keepStored protege um snapshot grande demais que não foi adotado:
	// nada é gravado por cima dele até o usuário editar, salvar ou limpar.
	keepStored bool
	status     domain.SaveStatus
	// saveSeq invalida saves agendados quando algo mais novo acontece
	// (outro ScheduleSave, SaveNow, Clear).
	saveSeq uint64
	closed  bool
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithAfterFunc troca o agendador do debounce (testes).
func WithAfterFunc(after AfterFunc) Option {
	return func(p *Pipeline) {
		if after != nil {
			p.debouncer.after = after
		}
	}
}

func New(store domain.Store, templates domain.TemplateSource, cfg Config, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("content store is required")
	}
	if templates == nil {
		return nil, errors.New("template source is required")
	}
	cfg = cfg.withDefaults()

	p := &Pipeline{
		store:     store,
		templates: templates,
		cfg:       cfg,
		logger:    zap.NewNop(),
		now:       time.Now,
		debouncer: NewDebouncer(cfg.SaveDelay, nil),
		lines:     1,
		locale:    cfg.Locale,
		status:    domain.SaveStatus{State: domain.SaveIdle},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Load define o conteúdo inicial: o snapshot salvo, se existir e couber no
// limite, ou o template do idioma. Não escreve no store.
func (p *Pipeline) Load(ctx context.Context) (LoadResult, error) {
	saved, ok, err := p.store.Get(ctx, p.cfg.Key)
	if err != nil {
		// armazenamento indisponível: abre com o template, sem derrubar nada
		p.logger.Warn("could not read saved content", zap.Error(err))
		ok = false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ok && saved != "" {
		if verr := domain.ValidateSize(saved, p.cfg.MaxBytes); verr == nil {
			p.setContentLocked(saved)
			p.persisted, p.hasPersisted = saved, true
			return LoadResult{Source: LoadedFromStore}, nil
		}
		p.logger.Warn("saved content exceeds the maximum size, loading template instead",
			zap.Int64("size", domain.EncodedSize(saved)),
			zap.Int64("max", p.cfg.MaxBytes),
		)
		p.setContentLocked(p.templates.Template(p.locale))
		p.keepStored = true
		return LoadResult{Source: LoadedFromTemplate, DiscardedOversized: true}, nil
	}

	p.setContentLocked(p.templates.Template(p.locale))
	return LoadResult{Source: LoadedFromTemplate}, nil
}

// Update troca o conteúdo. Texto acima do limite é rejeitado com
// ErrContentTooLarge e nada muda.
func (p *Pipeline) Update(text string) error {
	if err := domain.ValidateSize(text, p.cfg.MaxBytes); err != nil {
		p.logger.Warn("content update rejected", zap.Error(err))
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateLocked(text)
	return nil
}

// Edit é Update seguido de ScheduleSave na mesma seção crítica: duas
// edições concorrentes nunca agendam o texto mais velho por último.
func (p *Pipeline) Edit(text string) error {
	if err := domain.ValidateSize(text, p.cfg.MaxBytes); err != nil {
		p.logger.Warn("content update rejected", zap.Error(err))
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateLocked(text)
	p.scheduleSaveLocked(text)
	return nil
}

func (p *Pipeline) updateLocked(text string) {
	if text != p.content {
		p.keepStored = false
	}
	p.setContentLocked(text)
}

// ScheduleSave reinicia o debounce: text só é persistido depois de
// SaveDelay sem novas chamadas.
func (p *Pipeline) ScheduleSave(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduleSaveLocked(text)
}

func (p *Pipeline) scheduleSaveLocked(text string) {
	if p.closed || p.keepStored {
		return
	}
	p.saveSeq++
	seq := p.saveSeq

	if p.hasPersisted && text == p.persisted {
		// voltou ao que já está salvo: nada pendente
		p.debouncer.Cancel()
		if p.status.State == domain.SaveSaving {
			p.status = domain.SaveStatus{State: domain.SaveSaved, SavedAt: p.status.SavedAt}
		}
		return
	}

	p.status = domain.SaveStatus{State: domain.SaveSaving, SavedAt: p.status.SavedAt}
	p.debouncer.Schedule(func() { p.runScheduledSave(text, seq) })
}

func (p *Pipeline) runScheduledSave(text string, seq uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SaveTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || seq != p.saveSeq {
		return
	}
	if !p.persistLocked(ctx, text) {
		p.logger.Error("autosave failed", zap.String("error", p.status.Error))
	}
}

// Persist valida e grava text agora. Nunca entra em pânico: falhas viram
// false e status de erro, com o snapshot anterior intacto.
func (p *Pipeline) Persist(ctx context.Context, text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.persistLocked(ctx, text)
}

// SaveNow grava o conteúdo atual e descarta o autosave pendente.
func (p *Pipeline) SaveNow(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.saveSeq++
	p.debouncer.Cancel()
	return p.persistLocked(ctx, p.content)
}

func (p *Pipeline) persistLocked(ctx context.Context, text string) bool {
	if err := domain.ValidateSize(text, p.cfg.MaxBytes); err != nil {
		p.status = domain.SaveStatus{State: domain.SaveError, SavedAt: p.status.SavedAt, Error: err.Error()}
		return false
	}
	if err := p.store.Set(ctx, p.cfg.Key, text); err != nil {
		werr := fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
		p.status = domain.SaveStatus{State: domain.SaveError, SavedAt: p.status.SavedAt, Error: werr.Error()}
		return false
	}
	p.persisted, p.hasPersisted = text, true
	p.keepStored = false
	p.status = domain.SaveStatus{State: domain.SaveSaved, SavedAt: p.now()}
	return true
}

// Clear zera o documento e remove o snapshot. Não falha para quem chama:
// erro do store é só logado.
func (p *Pipeline) Clear(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.saveSeq++
	p.debouncer.Cancel()

	p.setContentLocked("")
	p.persisted, p.hasPersisted = "", true
	p.keepStored = false
	p.status = domain.SaveStatus{State: domain.SaveIdle}

	if err := p.store.Remove(ctx, p.cfg.Key); err != nil {
		p.logger.Error("could not remove saved content", zap.Error(err))
	}
}

func (p *Pipeline) IsDefaultContent(text string) bool {
	return p.templates.IsDefault(text)
}

// SwitchLocale muda o idioma. O conteúdo só é trocado pelo template do novo
// idioma se ainda for um template intocado. Devolve true quando trocou.
func (p *Pipeline) SwitchLocale(locale domain.Locale) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if locale == p.locale {
		return false
	}
	replaced := false
	if p.templates.IsDefault(p.content) {
		p.setContentLocked(p.templates.Template(locale))
		replaced = true
	}
	p.locale = locale
	return replaced
}

// MaxBytes é o limite de tamanho em vigor.
func (p *Pipeline) MaxBytes() int64 { return p.cfg.MaxBytes }

func (p *Pipeline) Content() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content
}

func (p *Pipeline) LineCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lines
}

func (p *Pipeline) Status() domain.SaveStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) Snapshot() domain.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return domain.Snapshot{
		Content:    p.content,
		Lines:      p.lines,
		Words:      domain.WordCount(p.content),
		Characters: domain.CharCount(p.content),
		Dirty:      !p.keepStored && (!p.hasPersisted || p.content != p.persisted),
		Default:    p.templates.IsDefault(p.content),
		Locale:     p.locale,
		Status:     p.status,
	}
}

// Close cancela o autosave pendente sem executá-lo. Uma edição feita dentro
// da janela de debounce se perde.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.debouncer.Stop()
}

func (p *Pipeline) setContentLocked(text string) {
	p.content = text
	p.lines = domain.LineCount(text)
}
