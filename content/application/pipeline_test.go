package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"markdown-editor/content/domain"
	"markdown-editor/content/templates"
)

var fixedNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, store *memStore, cfg Config) (*Pipeline, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	p, err := New(store, templates.Default(), cfg,
		WithAfterFunc(sched.AfterFunc),
		WithClock(func() time.Time { return fixedNow }),
	)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	t.Cleanup(p.Close)
	return p, sched
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(nil, templates.Default(), Config{}); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := New(newMemStore(), nil, Config{}); err == nil {
		t.Fatalf("expected error without templates")
	}
}

func TestLoad_EmptyStoreUsesLocaleTemplate(t *testing.T) {
	store := newMemStore()
	p, _ := newTestPipeline(t, store, Config{Locale: domain.LocaleEN})

	res, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != LoadedFromTemplate {
		t.Fatalf("expected template source, got %q", res.Source)
	}
	want := templates.Default().Template(domain.LocaleEN)
	if p.Content() != want {
		t.Fatalf("expected english template as content")
	}
	if p.LineCount() != domain.LineCount(want) {
		t.Fatalf("expected line count %d, got %d", domain.LineCount(want), p.LineCount())
	}
	if store.sets != 0 {
		t.Fatalf("expected Load not to write, got %d writes", store.sets)
	}
	if !p.Snapshot().Dirty {
		t.Fatalf("expected template content to be dirty until persisted")
	}
}

func TestLoad_UsesSavedSnapshot(t *testing.T) {
	store := newMemStore()
	store.values[domain.ContentKey] = "# mine\nline two"
	p, _ := newTestPipeline(t, store, Config{})

	res, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != LoadedFromStore {
		t.Fatalf("expected store source, got %q", res.Source)
	}
	snap := p.Snapshot()
	if snap.Content != "# mine\nline two" || snap.Lines != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Dirty {
		t.Fatalf("expected freshly loaded content not to be dirty")
	}
}

func TestLoad_OversizedSnapshotFallsBackWithoutDeleting(t *testing.T) {
	store := newMemStore()
	big := strings.Repeat("x", 11)
	store.values[domain.ContentKey] = big
	p, _ := newTestPipeline(t, store, Config{MaxBytes: 10})

	res, _ := p.Load(context.Background())
	if res.Source != LoadedFromTemplate || !res.DiscardedOversized {
		t.Fatalf("expected template fallback flagged as oversized, got %+v", res)
	}
	if !p.IsDefaultContent(p.Content()) {
		t.Fatalf("expected default template to be loaded")
	}
	if v, ok := store.value(domain.ContentKey); !ok || v != big {
		t.Fatalf("expected oversized snapshot to stay in the store")
	}
}

func TestLoad_OversizedSnapshotSurvivesShutdownFlush(t *testing.T) {
	store := newMemStore()
	big := strings.Repeat("x", 2<<20)
	store.values[domain.ContentKey] = big
	p, sched := newTestPipeline(t, store, Config{MaxBytes: 1 << 20, Locale: domain.LocaleEN})

	res, _ := p.Load(context.Background())
	if !res.DiscardedOversized {
		t.Fatalf("expected oversized snapshot to be discarded, got %+v", res)
	}
	if p.Snapshot().Dirty {
		t.Fatalf("expected untouched template not to be dirty while the stored snapshot is kept")
	}

	// troca de idioma substitui o template, mas não é edição do usuário
	if !p.SwitchLocale(domain.LocaleES) {
		t.Fatalf("expected template to be replaced on locale switch")
	}
	p.ScheduleSave(p.Content())
	if sched.Active() != 0 {
		t.Fatalf("expected no autosave while the stored snapshot is kept, got %d timers", sched.Active())
	}

	if p.Snapshot().Dirty {
		p.SaveNow(context.Background())
	}
	if v, _ := store.value(domain.ContentKey); v != big {
		t.Fatalf("expected stored snapshot to survive shutdown, got %d bytes", len(v))
	}
	if store.sets != 0 {
		t.Fatalf("expected no writes, got %d", store.sets)
	}
}

func TestLoad_OversizedSnapshotReplacedAfterEdit(t *testing.T) {
	store := newMemStore()
	store.values[domain.ContentKey] = strings.Repeat("x", 11)
	p, sched := newTestPipeline(t, store, Config{MaxBytes: 10})
	_, _ = p.Load(context.Background())

	if err := p.Edit("# new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Snapshot().Dirty {
		t.Fatalf("expected edited content to be dirty")
	}
	if sched.FireAll() != 1 {
		t.Fatalf("expected one autosave to fire")
	}
	if v, _ := store.value(domain.ContentKey); v != "# new" {
		t.Fatalf("expected edit to replace stored snapshot, got %q", v)
	}
}

func TestLoad_StoreReadFailureFallsBack(t *testing.T) {
	store := newMemStore()
	store.failGet = true
	p, _ := newTestPipeline(t, store, Config{})

	res, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("expected read failure to be non-fatal, got %v", err)
	}
	if res.Source != LoadedFromTemplate {
		t.Fatalf("expected template fallback, got %q", res.Source)
	}
}

func TestUpdate_RecomputesLineCount(t *testing.T) {
	p, _ := newTestPipeline(t, newMemStore(), Config{})

	if err := p.Update("a\nb\nc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.LineCount(); got != 3 {
		t.Fatalf("expected 3 lines, got %d", got)
	}
}

func TestUpdate_RejectsOversizedText(t *testing.T) {
	p, _ := newTestPipeline(t, newMemStore(), Config{})
	_ = p.Update("keep\nme")

	err := p.Update(strings.Repeat("a", 6*1024*1024))
	if !errors.Is(err, domain.ErrContentTooLarge) {
		t.Fatalf("expected ErrContentTooLarge, got %v", err)
	}
	if p.Content() != "keep\nme" || p.LineCount() != 2 {
		t.Fatalf("expected previous content to be kept, got %q (%d lines)", p.Content(), p.LineCount())
	}
}

func TestScheduleSave_PersistsAfterDelay(t *testing.T) {
	store := newMemStore()
	p, sched := newTestPipeline(t, store, Config{})

	p.ScheduleSave("draft")
	if got := p.Status().State; got != domain.SaveSaving {
		t.Fatalf("expected saving status, got %q", got)
	}
	if store.sets != 0 {
		t.Fatalf("expected nothing written before the delay")
	}

	if n := sched.FireAll(); n != 1 {
		t.Fatalf("expected one timer to fire, got %d", n)
	}
	st := p.Status()
	if st.State != domain.SaveSaved || !st.SavedAt.Equal(fixedNow) {
		t.Fatalf("expected saved status at %s, got %+v", fixedNow, st)
	}
	if v, _ := store.value(domain.ContentKey); v != "draft" {
		t.Fatalf("expected draft to be stored, got %q", v)
	}
}

func TestScheduleSave_RestartsOnEveryCall(t *testing.T) {
	store := newMemStore()
	p, sched := newTestPipeline(t, store, Config{})

	p.ScheduleSave("a")
	p.ScheduleSave("ab")
	p.ScheduleSave("abc")

	if got := sched.Active(); got != 1 {
		t.Fatalf("expected a single outstanding save, got %d", got)
	}
	sched.FireAll()
	if store.sets != 1 {
		t.Fatalf("expected exactly one write, got %d", store.sets)
	}
	if v, _ := store.value(domain.ContentKey); v != "abc" {
		t.Fatalf("expected last text to win, got %q", v)
	}
}

func TestScheduleSave_StaleTimerDoesNotWrite(t *testing.T) {
	store := newMemStore()
	p, sched := newTestPipeline(t, store, Config{})

	p.ScheduleSave("old")
	p.ScheduleSave("new")

	// o primeiro timer dispara mesmo depois de substituído
	sched.timers[0].fn()
	if store.sets != 0 {
		t.Fatalf("expected replaced save to be a no-op, got %d writes", store.sets)
	}

	sched.FireAll()
	if v, _ := store.value(domain.ContentKey); v != "new" {
		t.Fatalf("expected new text stored, got %q", v)
	}
}

func TestScheduleSave_StoreFailureKeepsMemoryAndSnapshot(t *testing.T) {
	store := newMemStore()
	store.values[domain.ContentKey] = "saved before"
	p, sched := newTestPipeline(t, store, Config{})
	_, _ = p.Load(context.Background())

	store.failSet = true
	_ = p.Update("unsaved edit")
	p.ScheduleSave("unsaved edit")
	sched.FireAll()

	st := p.Status()
	if st.State != domain.SaveError {
		t.Fatalf("expected error status, got %+v", st)
	}
	if !strings.Contains(st.Error, domain.ErrStorageWrite.Error()) {
		t.Fatalf("expected storage error in status, got %q", st.Error)
	}
	if p.Content() != "unsaved edit" {
		t.Fatalf("expected in-memory edit to survive, got %q", p.Content())
	}
	if v, _ := store.value(domain.ContentKey); v != "saved before" {
		t.Fatalf("expected prior snapshot untouched, got %q", v)
	}
	if !p.Snapshot().Dirty {
		t.Fatalf("expected document to stay dirty after a failed save")
	}
}

func TestScheduleSave_BackToPersistedTextCancelsPending(t *testing.T) {
	store := newMemStore()
	p, sched := newTestPipeline(t, store, Config{})

	if !p.Persist(context.Background(), "same") {
		t.Fatalf("expected persist to succeed")
	}
	p.ScheduleSave("changed")
	p.ScheduleSave("same")

	if got := sched.Active(); got != 0 {
		t.Fatalf("expected no pending save, got %d", got)
	}
	if got := p.Status().State; got != domain.SaveSaved {
		t.Fatalf("expected saved status, got %q", got)
	}
}

func TestPersist_IsIdempotent(t *testing.T) {
	store := newMemStore()
	p, _ := newTestPipeline(t, store, Config{})
	ctx := context.Background()

	if !p.Persist(ctx, "hello") || !p.Persist(ctx, "hello") {
		t.Fatalf("expected both persists to succeed")
	}
	if v, _ := store.value(domain.ContentKey); v != "hello" {
		t.Fatalf("expected hello stored, got %q", v)
	}
	if got := p.Status().State; got != domain.SaveSaved {
		t.Fatalf("expected saved status, got %q", got)
	}
}

func TestPersist_RejectsOversizedWithoutWriting(t *testing.T) {
	store := newMemStore()
	p, _ := newTestPipeline(t, store, Config{MaxBytes: 4})

	if p.Persist(context.Background(), "12345") {
		t.Fatalf("expected oversized persist to fail")
	}
	if store.sets != 0 {
		t.Fatalf("expected no write, got %d", store.sets)
	}
	if got := p.Status().State; got != domain.SaveError {
		t.Fatalf("expected error status, got %q", got)
	}
}

func TestSaveNow_WritesCurrentContentAndDropsPending(t *testing.T) {
	store := newMemStore()
	p, sched := newTestPipeline(t, store, Config{})

	_ = p.Update("current")
	p.ScheduleSave("current")
	if !p.SaveNow(context.Background()) {
		t.Fatalf("expected SaveNow to succeed")
	}
	if sched.Active() != 0 {
		t.Fatalf("expected pending autosave to be dropped")
	}
	if store.sets != 1 {
		t.Fatalf("expected a single write, got %d", store.sets)
	}
}

func TestClear_ResetsEverything(t *testing.T) {
	store := newMemStore()
	store.values[domain.ContentKey] = "one\ntwo"
	p, sched := newTestPipeline(t, store, Config{})
	_, _ = p.Load(context.Background())

	_ = p.Update("one\ntwo\nthree")
	p.ScheduleSave("one\ntwo\nthree")
	p.Clear(context.Background())

	if p.Content() != "" || p.LineCount() != 1 {
		t.Fatalf("expected empty content with 1 line, got %q (%d)", p.Content(), p.LineCount())
	}
	if _, ok := store.value(domain.ContentKey); ok {
		t.Fatalf("expected stored snapshot to be removed")
	}
	if sched.FireAll() != 0 {
		t.Fatalf("expected pending save to be cancelled by Clear")
	}
	snap := p.Snapshot()
	if snap.Dirty || snap.Status.State != domain.SaveIdle {
		t.Fatalf("expected clean idle document after clear, got %+v", snap)
	}
}

func TestClear_SwallowsStoreErrors(t *testing.T) {
	store := newMemStore()
	store.failRm = true
	p, _ := newTestPipeline(t, store, Config{})
	_ = p.Update("text")

	p.Clear(context.Background())

	if p.Content() != "" || store.removed != 1 {
		t.Fatalf("expected clear to proceed despite store error")
	}
}

func TestSwitchLocale_ReplacesOnlyUntouchedTemplate(t *testing.T) {
	p, _ := newTestPipeline(t, newMemStore(), Config{Locale: domain.LocaleES})
	_, _ = p.Load(context.Background())

	if !p.SwitchLocale(domain.LocaleEN) {
		t.Fatalf("expected default content to be replaced")
	}
	if p.Content() != templates.Default().Template(domain.LocaleEN) {
		t.Fatalf("expected english template after switching")
	}

	edited := p.Content() + "\nmy notes"
	_ = p.Update(edited)
	if p.SwitchLocale(domain.LocaleES) {
		t.Fatalf("expected user edits not to be replaced")
	}
	if p.Content() != edited {
		t.Fatalf("expected edited content to be kept")
	}
	if p.Snapshot().Locale != domain.LocaleES {
		t.Fatalf("expected locale to change even when content is kept")
	}
}

func TestSwitchLocale_SameLocaleIsNoop(t *testing.T) {
	p, _ := newTestPipeline(t, newMemStore(), Config{Locale: domain.LocaleEN})
	_, _ = p.Load(context.Background())
	if p.SwitchLocale(domain.LocaleEN) {
		t.Fatalf("expected no replacement for the current locale")
	}
}

func TestClose_CancelsPendingSave(t *testing.T) {
	store := newMemStore()
	p, sched := newTestPipeline(t, store, Config{})

	p.ScheduleSave("last words")
	p.Close()
	sched.FireStale()

	if store.sets != 0 {
		t.Fatalf("expected pending save to be dropped on close, got %d writes", store.sets)
	}
	p.ScheduleSave("after close")
	if sched.Active() != 0 {
		t.Fatalf("expected no scheduling after close")
	}
}

func TestScheduleSave_RealTimer(t *testing.T) {
	store := newMemStore()
	p, err := New(store, templates.Default(), Config{SaveDelay: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	defer p.Close()

	p.ScheduleSave("timed")

	deadline := time.Now().Add(time.Second)
	for p.Status().State != domain.SaveSaved {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for autosave, status %+v", p.Status())
		}
		time.Sleep(2 * time.Millisecond)
	}
	if v, _ := store.value(domain.ContentKey); v != "timed" {
		t.Fatalf("expected timed to be stored, got %q", v)
	}
}

func TestEdit_SchedulesLatestText(t *testing.T) {
	store := newMemStore()
	p, sched := newTestPipeline(t, store, Config{})
	_, _ = p.Load(context.Background())

	if err := p.Edit("first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Edit("second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status().State != domain.SaveSaving {
		t.Fatalf("expected saving status, got %q", p.Status().State)
	}

	sched.FireStale()
	if v, _ := store.value(domain.ContentKey); v != "second" {
		t.Fatalf("expected latest edit to be saved, got %q", v)
	}
	if store.sets != 1 {
		t.Fatalf("expected a single write, got %d", store.sets)
	}
}

func TestEdit_RejectsOversizedText(t *testing.T) {
	store := newMemStore()
	p, sched := newTestPipeline(t, store, Config{MaxBytes: 4})
	_, _ = p.Load(context.Background())
	before := p.Content()

	err := p.Edit("too long")
	if !errors.Is(err, domain.ErrContentTooLarge) {
		t.Fatalf("expected ErrContentTooLarge, got %v", err)
	}
	if p.Content() != before || sched.Active() != 0 {
		t.Fatalf("expected rejected edit to change nothing")
	}
}
