package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
)

// Engine is the single authority over quiz state, participants and answers.
// Every mutation happens under mu; events are handed to the sink after the mutation is
// applied and before the lock is released, so subscribers observe them in commit order.
type Engine struct {
	mu          sync.RWMutex
	catalog     domain.Catalog
	clock       clockwork.Clock
	sink        domain.EventSink
	scorer      Scorer
	reviewDelay time.Duration

	status        domain.Status
	sessionIdx    int // index into catalog.Sessions, -1 before the first start
	questionIdx   int
	remaining     int
	questionStart time.Time
	sessions      map[int]domain.SessionStatus

	registry *registry
	ledger   *ledger

	version  uint64
	eventSeq uint64

	ctx           context.Context
	cancel        context.CancelFunc
	epoch         uint64
	stopCountdown context.CancelFunc

	lbMu      sync.Mutex
	lbVersion uint64
	lbCache   []domain.LeaderboardEntry
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSink sets where committed events go.
func WithSink(sink domain.EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithScorer overrides the default scoring rule.
func WithScorer(s Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithReviewDelay makes the engine advance on its own after a question has been under
// review for d. Zero leaves advancing to the admin.
func WithReviewDelay(d time.Duration) Option {
	return func(e *Engine) { e.reviewDelay = d }
}

// NewEngine validates the catalog and returns an engine in the waiting state.
func NewEngine(catalog domain.Catalog, opts ...Option) (*Engine, error) {
	normalized, err := catalog.Normalize()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		catalog:    normalized,
		clock:      clockwork.NewRealClock(),
		sink:       domain.EventSinkFunc(func(...domain.Event) {}),
		scorer:     DefaultScorer(),
		status:     domain.StatusWaiting,
		sessionIdx: -1,
		sessions:   make(map[int]domain.SessionStatus, len(normalized.Sessions)),
		registry:   newRegistry(),
		ledger:     newLedger(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, s := range normalized.Sessions {
		e.sessions[s.ID] = domain.SessionPending
	}
	return e, nil
}

// Close stops any running countdown. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCountdownLocked()
	e.cancel()
}

// Catalog returns the normalized catalog the engine runs.
func (e *Engine) Catalog() domain.Catalog {
	return e.catalog
}

// RegisterParticipant registers identity under name. A known identity is returned
// unchanged together with domain.ErrAlreadyRegistered.
func (e *Engine) RegisterParticipant(name, identity string) (domain.Participant, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, created, err := e.registry.register(name, identity, e.clock.Now())
	if err != nil {
		return domain.Participant{}, err
	}
	if !created {
		return p, domain.ErrAlreadyRegistered
	}

	e.commitLocked()
	log.Info().Str("identity", p.Identity).Str("name", p.Name).Msg("participant registered")
	e.publishLocked(
		e.eventLocked(domain.EventParticipantsChanged, domain.AudienceAll, e.registry.list()),
		e.eventLocked(domain.EventStateChanged, domain.AudienceAll, e.snapshotLocked()),
	)
	return p, nil
}

// StartSession displays the first question of sessionID.
func (e *Engine) StartSession(sessionID int) (domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != domain.StatusWaiting && e.status != domain.StatusLeaderboard {
		return e.snapshotLocked(), fmt.Errorf("%w: cannot start a session while %s", domain.ErrInvalidTransition, e.status)
	}
	if e.status == domain.StatusLeaderboard && !e.hasPendingLocked() {
		e.finishLocked()
		return e.snapshotLocked(), nil
	}

	idx := e.sessionIndex(sessionID)
	if idx < 0 {
		return e.snapshotLocked(), fmt.Errorf("%w: session %d not in catalog", domain.ErrInvalidSession, sessionID)
	}
	if len(e.catalog.Sessions[idx].Questions) == 0 {
		return e.snapshotLocked(), fmt.Errorf("%w: session %d has no questions", domain.ErrInvalidSession, sessionID)
	}
	if e.sessions[sessionID] == domain.SessionCompleted {
		return e.snapshotLocked(), fmt.Errorf("%w: session %d already completed", domain.ErrInvalidSession, sessionID)
	}

	e.sessions[sessionID] = domain.SessionActive
	e.sessionIdx = idx
	log.Info().Int("session_id", sessionID).Msg("session started")
	e.enterQuestionLocked(0)
	return e.snapshotLocked(), nil
}

// AdvanceQuestion moves past the current question: to the next one, or to the
// leaderboard after the last. From the leaderboard it finishes the quiz once no playable
// session is left.
func (e *Engine) AdvanceQuestion() (domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case domain.StatusQuestion, domain.StatusReviewing:
		e.stopCountdownLocked()
		e.nextQuestionLocked()
	case domain.StatusLeaderboard:
		if e.hasPendingLocked() {
			return e.snapshotLocked(), fmt.Errorf("%w: choose the next session to start", domain.ErrInvalidTransition)
		}
		e.finishLocked()
	default:
		return e.snapshotLocked(), fmt.Errorf("%w: cannot advance while %s", domain.ErrInvalidTransition, e.status)
	}
	return e.snapshotLocked(), nil
}

// EndSession jumps to the leaderboard regardless of the questions left.
func (e *Engine) EndSession() (domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != domain.StatusQuestion && e.status != domain.StatusReviewing {
		return e.snapshotLocked(), fmt.Errorf("%w: cannot end a session while %s", domain.ErrInvalidTransition, e.status)
	}
	e.toLeaderboardLocked()
	return e.snapshotLocked(), nil
}

// ResetQuiz returns to waiting, clears every answer and zeroes scores. Participants stay
// registered.
func (e *Engine) ResetQuiz() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopCountdownLocked()
	e.status = domain.StatusWaiting
	e.sessionIdx = -1
	e.questionIdx = 0
	e.remaining = 0
	e.questionStart = time.Time{}
	for id := range e.sessions {
		e.sessions[id] = domain.SessionPending
	}
	e.ledger.clear()
	e.registry.resetScores()
	e.commitLocked()

	log.Info().Int("participants", e.registry.len()).Msg("quiz reset")
	snap := e.snapshotLocked()
	e.publishLocked(
		e.eventLocked(domain.EventQuizReset, domain.AudienceAll, snap),
		e.eventLocked(domain.EventStateChanged, domain.AudienceAll, snap),
		e.eventLocked(domain.EventParticipantsChanged, domain.AudienceAll, e.registry.list()),
		e.eventLocked(domain.EventLeaderboardChanged, domain.AudienceAll, e.leaderboardLocked()),
	)
	return snap
}

// SubmitAnswer records identity's answer to the displayed question.
func (e *Engine) SubmitAnswer(identity, questionID string, optionIndex int, elapsedMillis int64) (domain.AnswerResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != domain.StatusQuestion {
		return domain.AnswerResult{}, fmt.Errorf("%w: quiz is %s", domain.ErrNotAcceptingAnswers, e.status)
	}
	q, ok := e.currentQuestionLocked()
	if !ok || q.ID != questionID {
		return domain.AnswerResult{}, fmt.Errorf("%w: question %q is not displayed", domain.ErrNotAcceptingAnswers, questionID)
	}
	p, ok := e.registry.get(identity)
	if !ok {
		return domain.AnswerResult{}, domain.ErrUnknownParticipant
	}
	if e.ledger.has(p.Identity, q.ID) {
		return domain.AnswerResult{}, domain.ErrDuplicateSubmission
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return domain.AnswerResult{}, fmt.Errorf("%w: %d", domain.ErrInvalidOption, optionIndex)
	}

	elapsed := clampElapsed(elapsedMillis, q.TimeLimit)
	correct := optionIndex == q.CorrectIndex
	score := e.scorer.Score(correct, elapsed, q.TimeLimit)

	rec, _ := e.ledger.append(domain.AnswerRecord{
		Identity:      p.Identity,
		QuestionID:    q.ID,
		SessionID:     q.SessionID,
		OptionIndex:   optionIndex,
		Correct:       correct,
		ElapsedMillis: elapsed,
		Score:         score,
		SubmittedAt:   e.clock.Now(),
	})
	p.Score += score
	e.commitLocked()

	e.publishLocked(
		e.eventLocked(domain.EventAnswerRecorded, domain.AudienceAdmin, rec),
		e.eventLocked(domain.EventLeaderboardChanged, domain.AudienceAll, e.leaderboardLocked()),
	)
	return domain.AnswerResult{
		QuestionID: q.ID,
		Correct:    correct,
		Awarded:    score,
		TotalScore: p.Score,
	}, nil
}

// Snapshot returns the current authoritative state.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Leaderboard returns the ranked standings.
func (e *Engine) Leaderboard() []domain.LeaderboardEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.leaderboardLocked()
}

// Participants lists registered participants in registration order.
func (e *Engine) Participants() []domain.Participant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.list()
}

// Answers lists every accepted answer in acceptance order.
func (e *Engine) Answers() []domain.AnswerRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.all()
}

// JoinState is what a late joiner needs to render the quiz, read in one critical section
// together with the sequence number of the last event published before it.
type JoinState struct {
	Snapshot     domain.Snapshot
	Participants []domain.Participant
	Leaderboard  []domain.LeaderboardEntry
	Seq          uint64
}

// JoinState returns the current state for a new subscriber. Events with Seq at or below
// the returned Seq are already reflected in it.
func (e *Engine) JoinState() JoinState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return JoinState{
		Snapshot:     e.snapshotLocked(),
		Participants: e.registry.list(),
		Leaderboard:  e.leaderboardLocked(),
		Seq:          e.eventSeq,
	}
}

// CurrentQuestion returns the full question (answer included) while one is displayed or
// under review.
func (e *Engine) CurrentQuestion() (domain.Question, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.status != domain.StatusQuestion && e.status != domain.StatusReviewing {
		return domain.Question{}, false
	}
	return e.currentQuestionLocked()
}

func (e *Engine) enterQuestionLocked(idx int) {
	session := e.catalog.Sessions[e.sessionIdx]
	q := session.Questions[idx]

	e.questionIdx = idx
	e.remaining = q.TimeLimit
	e.status = domain.StatusQuestion
	e.questionStart = e.clock.Now()
	e.commitLocked()
	e.startCountdownLocked()

	log.Info().
		Int("session_id", session.ID).
		Str("question_id", q.ID).
		Int("time_limit", q.TimeLimit).
		Msg("question displayed")
	e.publishLocked(
		e.eventLocked(domain.EventStateChanged, domain.AudienceAll, e.snapshotLocked()),
		e.eventLocked(domain.EventQuestionDisplayed, domain.AudienceParticipants, q.Public()),
		e.eventLocked(domain.EventQuestionDisplayed, domain.AudienceAdmin, domain.AdminQuestion{
			PublicQuestion: q.Public(),
			CorrectIndex:   q.CorrectIndex,
		}),
	)
}

func (e *Engine) nextQuestionLocked() {
	if e.sessionIdx < 0 {
		e.toLeaderboardLocked()
		return
	}
	next := e.questionIdx + 1
	if next < len(e.catalog.Sessions[e.sessionIdx].Questions) {
		e.enterQuestionLocked(next)
		return
	}
	e.toLeaderboardLocked()
}

func (e *Engine) toLeaderboardLocked() {
	e.stopCountdownLocked()
	if e.sessionIdx >= 0 {
		e.sessions[e.catalog.Sessions[e.sessionIdx].ID] = domain.SessionCompleted
	}
	e.status = domain.StatusLeaderboard
	e.remaining = 0
	e.commitLocked()

	log.Info().Int("session_id", e.currentSessionID()).Msg("session completed")
	e.publishLocked(
		e.eventLocked(domain.EventStateChanged, domain.AudienceAll, e.snapshotLocked()),
		e.eventLocked(domain.EventLeaderboardChanged, domain.AudienceAll, e.leaderboardLocked()),
	)
}

func (e *Engine) finishLocked() {
	e.stopCountdownLocked()
	e.status = domain.StatusFinished
	e.remaining = 0
	e.commitLocked()

	log.Info().Msg("quiz finished")
	e.publishLocked(e.eventLocked(domain.EventStateChanged, domain.AudienceAll, e.snapshotLocked()))
}

func (e *Engine) hasPendingLocked() bool {
	for _, s := range e.catalog.Sessions {
		if len(s.Questions) > 0 && e.sessions[s.ID] == domain.SessionPending {
			return true
		}
	}
	return false
}

func (e *Engine) sessionIndex(id int) int {
	for i, s := range e.catalog.Sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) currentSessionID() int {
	if e.sessionIdx < 0 {
		return 0
	}
	return e.catalog.Sessions[e.sessionIdx].ID
}

func (e *Engine) currentQuestionLocked() (domain.Question, bool) {
	if e.sessionIdx < 0 || e.sessionIdx >= len(e.catalog.Sessions) {
		return domain.Question{}, false
	}
	questions := e.catalog.Sessions[e.sessionIdx].Questions
	if e.questionIdx < 0 || e.questionIdx >= len(questions) {
		return domain.Question{}, false
	}
	return questions[e.questionIdx], true
}

func (e *Engine) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Version:          e.version,
		Status:           e.status,
		SessionID:        e.currentSessionID(),
		QuestionIndex:    e.questionIdx,
		Remaining:        e.remaining,
		ParticipantCount: e.registry.len(),
		Sessions:         make([]domain.SessionSummary, len(e.catalog.Sessions)),
	}
	for i, s := range e.catalog.Sessions {
		snap.Sessions[i] = domain.SessionSummary{
			ID:            s.ID,
			Name:          s.Name,
			Status:        e.sessions[s.ID],
			QuestionCount: len(s.Questions),
		}
	}
	if e.sessionIdx >= 0 {
		session := e.catalog.Sessions[e.sessionIdx]
		snap.SessionName = session.Name
		snap.TotalQuestions = len(session.Questions)
	}
	if e.status == domain.StatusQuestion || e.status == domain.StatusReviewing {
		if q, ok := e.currentQuestionLocked(); ok {
			pub := q.Public()
			snap.Question = &pub
			started := e.questionStart
			snap.QuestionStartedAt = &started
			if e.status == domain.StatusReviewing {
				revealed := q.CorrectIndex
				snap.RevealedIndex = &revealed
			}
		}
	}
	return snap
}

// leaderboardLocked requires mu to be held for reading or writing.
func (e *Engine) leaderboardLocked() []domain.LeaderboardEntry {
	e.lbMu.Lock()
	defer e.lbMu.Unlock()
	if e.lbCache == nil || e.lbVersion != e.version {
		e.lbCache = BuildLeaderboard(e.registry.list(), e.ledger.entries)
		e.lbVersion = e.version
	}
	return cloneLeaderboard(e.lbCache)
}

func (e *Engine) commitLocked() {
	e.version++
}

func (e *Engine) eventLocked(typ domain.EventType, audience domain.Audience, payload any) domain.Event {
	e.eventSeq++
	return domain.Event{
		ID:        uuid.NewString(),
		Seq:       e.eventSeq,
		Type:      typ,
		Audience:  audience,
		Timestamp: e.clock.Now(),
		Payload:   payload,
	}
}

func (e *Engine) publishLocked(events ...domain.Event) {
	e.sink.Publish(events...)
}
