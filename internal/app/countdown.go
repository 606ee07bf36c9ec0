package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
)

const tickInterval = time.Second

// startCountdownLocked replaces any running countdown with a new one bound to a fresh
// epoch. Ticks carrying an older epoch are ignored.
func (e *Engine) startCountdownLocked() {
	e.stopCountdownLocked()
	ctx, cancel := context.WithCancel(e.ctx)
	e.stopCountdown = cancel
	go e.runCountdown(ctx, e.epoch)
}

func (e *Engine) stopCountdownLocked() {
	if e.stopCountdown != nil {
		e.stopCountdown()
		e.stopCountdown = nil
	}
	e.epoch++
}

func (e *Engine) runCountdown(ctx context.Context, epoch uint64) {
	ticker := e.clock.NewTicker(tickInterval)
	for running := true; running; {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return
		case <-ticker.Chan():
			running = e.safeTick(epoch)
		}
	}
	ticker.Stop()

	if e.reviewDelay <= 0 {
		return
	}
	timer := e.clock.NewTimer(e.reviewDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.Chan():
		e.autoAdvance(epoch)
	}
}

func (e *Engine) safeTick(epoch uint64) (running bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Uint64("epoch", epoch).Msg("countdown tick panicked")
			running = true
		}
	}()
	return e.tick(epoch)
}

// tick decrements the countdown. The tick that reaches zero also closes the answer
// window, so no state with remaining 0 and status question is ever committed.
// It reports whether the countdown should keep ticking.
func (e *Engine) tick(epoch uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch != e.epoch || e.status != domain.StatusQuestion {
		return false
	}

	q, ok := e.currentQuestionLocked()
	if !ok {
		log.Error().
			Int("session_id", e.currentSessionID()).
			Int("question_index", e.questionIdx).
			Msg("countdown lost its question, moving to leaderboard")
		e.toLeaderboardLocked()
		return false
	}

	e.remaining--
	if e.remaining <= 0 {
		e.remaining = 0
		e.status = domain.StatusReviewing
		log.Info().Str("question_id", q.ID).Msg("question window closed")
	}
	e.commitLocked()
	e.publishLocked(e.eventLocked(domain.EventStateChanged, domain.AudienceAll, e.snapshotLocked()))
	return e.status == domain.StatusQuestion
}

// autoAdvance leaves reviewing once the review delay has elapsed, unless an admin
// command already moved the quiz on.
func (e *Engine) autoAdvance(epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch != e.epoch || e.status != domain.StatusReviewing {
		return
	}
	e.stopCountdownLocked()
	e.nextQuestionLocked()
}
