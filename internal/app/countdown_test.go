package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"live-quiz-service/internal/domain"
)

type snapshotSink struct {
	mu        sync.Mutex
	snapshots []domain.Snapshot
}

func (s *snapshotSink) Publish(events ...domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range events {
		if snap, ok := evt.Payload.(domain.Snapshot); ok && evt.Type == domain.EventStateChanged {
			s.snapshots = append(s.snapshots, snap)
		}
	}
}

func (s *snapshotSink) all() []domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Snapshot(nil), s.snapshots...)
}

func newCountdownEngine(t *testing.T, opts ...Option) (*Engine, *clockwork.FakeClock, *snapshotSink) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	sink := &snapshotSink{}
	opts = append([]Option{WithClock(clock), WithSink(sink)}, opts...)
	e, err := NewEngine(domain.SampleCatalog(), opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e, clock, sink
}

func currentEpoch(e *Engine) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.epoch
}

func TestTickClosesWindowAtZero(t *testing.T) {
	e, _, sink := newCountdownEngine(t)
	if _, err := e.StartSession(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	epoch := currentEpoch(e)

	for i := 0; i < 14; i++ {
		if !e.tick(epoch) {
			t.Fatalf("tick %d stopped the countdown early", i+1)
		}
	}
	snap := e.Snapshot()
	if snap.Status != domain.StatusQuestion || snap.Remaining != 1 {
		t.Fatalf("expected question with 1s left, got %s/%d", snap.Status, snap.Remaining)
	}

	if e.tick(epoch) {
		t.Fatalf("final tick should stop the countdown")
	}
	snap = e.Snapshot()
	if snap.Status != domain.StatusReviewing || snap.Remaining != 0 {
		t.Fatalf("expected reviewing with 0s, got %s/%d", snap.Status, snap.Remaining)
	}
	if snap.RevealedIndex == nil || *snap.RevealedIndex != 2 {
		t.Fatalf("expected the answer revealed while reviewing")
	}

	for _, s := range sink.all() {
		if s.Status == domain.StatusQuestion && s.Remaining == 0 {
			t.Fatalf("observed question status with 0 remaining: %+v", s)
		}
	}
	if e.tick(epoch) {
		t.Fatalf("tick after the window closed must be ignored")
	}
}

func TestStaleTickIsIgnored(t *testing.T) {
	e, _, _ := newCountdownEngine(t)
	if _, err := e.StartSession(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	stale := currentEpoch(e)
	if _, err := e.AdvanceQuestion(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	before := e.Snapshot()

	if e.tick(stale) {
		t.Fatalf("stale tick kept running")
	}
	after := e.Snapshot()
	if after.Remaining != before.Remaining || after.Version != before.Version {
		t.Fatalf("stale tick mutated state: %+v -> %+v", before, after)
	}
}

func TestSubmitAfterWindowClosesIsRejected(t *testing.T) {
	e, _, _ := newCountdownEngine(t)
	if _, err := e.RegisterParticipant("Alice", "a@x"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := e.StartSession(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	epoch := currentEpoch(e)
	for e.tick(epoch) {
	}

	if _, err := e.SubmitAnswer("a@x", "q1", 2, 100); !errors.Is(err, domain.ErrNotAcceptingAnswers) {
		t.Fatalf("expected ErrNotAcceptingAnswers, got %v", err)
	}
	if n := len(e.Answers()); n != 0 {
		t.Fatalf("ledger changed: %d records", n)
	}
	if score := e.Participants()[0].Score; score != 0 {
		t.Fatalf("score changed to %d", score)
	}
}

func TestAutoAdvanceAfterReview(t *testing.T) {
	e, _, _ := newCountdownEngine(t, WithReviewDelay(3*time.Second))
	if _, err := e.StartSession(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	epoch := currentEpoch(e)
	for e.tick(epoch) {
	}

	e.autoAdvance(epoch)
	snap := e.Snapshot()
	if snap.Status != domain.StatusQuestion || snap.Question == nil || snap.Question.ID != "q2" {
		t.Fatalf("expected q2 after review, got %+v", snap)
	}

	// A second timer from the old question must not skip q2.
	e.autoAdvance(epoch)
	if got := e.Snapshot().Question.ID; got != "q2" {
		t.Fatalf("stale auto-advance moved to %s", got)
	}
}

func TestCountdownRunsOnClock(t *testing.T) {
	e, clock, _ := newCountdownEngine(t)
	if _, err := e.StartSession(1); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for want := 14; want >= 0; want-- {
		if err := clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("waiting for ticker: %v", err)
		}
		clock.Advance(tickInterval)
		waitFor(t, func() bool { return e.Snapshot().Remaining == want })
	}

	if snap := e.Snapshot(); snap.Status != domain.StatusReviewing {
		t.Fatalf("expected reviewing once the clock ran out, got %s", snap.Status)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestSnapshotCarriesQuestionStart(t *testing.T) {
	e, clock, _ := newCountdownEngine(t)
	if snap := e.Snapshot(); snap.QuestionStartedAt != nil {
		t.Fatalf("no question is open yet, got start %v", snap.QuestionStartedAt)
	}

	opened := clock.Now()
	if _, err := e.StartSession(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := e.Snapshot()
	if snap.QuestionStartedAt == nil || !snap.QuestionStartedAt.Equal(opened) {
		t.Fatalf("expected q1 opened at %v, got %v", opened, snap.QuestionStartedAt)
	}

	clock.Advance(4 * time.Second)
	if _, err := e.AdvanceQuestion(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	snap = e.Snapshot()
	if snap.QuestionStartedAt == nil || !snap.QuestionStartedAt.Equal(opened.Add(4*time.Second)) {
		t.Fatalf("expected q2 start 4s later, got %v", snap.QuestionStartedAt)
	}

	e.ResetQuiz()
	if snap := e.Snapshot(); snap.QuestionStartedAt != nil {
		t.Fatalf("reset must clear the question start, got %v", snap.QuestionStartedAt)
	}
}
