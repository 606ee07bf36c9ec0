package app

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
)

// Archiver writes the event stream into a ResultArchive: every accepted answer, and the
// standings published right after a session reaches the leaderboard.
type Archiver struct {
	archive ResultArchive
	clock   clockwork.Clock

	pending *domain.Snapshot
}

func NewArchiver(archive ResultArchive, clock clockwork.Clock) *Archiver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Archiver{archive: archive, clock: clock}
}

// Run consumes events until ctx is cancelled or the channel closes.
func (a *Archiver) Run(ctx context.Context, events <-chan domain.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := a.Apply(ctx, ev); err != nil {
				log.Error().Err(err).Str("event", string(ev.Type)).Uint64("seq", ev.Seq).Msg("archive write failed")
			}
		}
	}
}

// Apply handles a single event.
func (a *Archiver) Apply(ctx context.Context, ev domain.Event) error {
	switch ev.Type {
	case domain.EventAnswerRecorded:
		rec, ok := ev.Payload.(domain.AnswerRecord)
		if !ok {
			return nil
		}
		return a.archive.AppendAnswer(ctx, rec)
	case domain.EventStateChanged:
		snap, ok := ev.Payload.(domain.Snapshot)
		if !ok {
			return nil
		}
		if snap.Status == domain.StatusLeaderboard && snap.SessionID != 0 {
			a.pending = &snap
		} else {
			a.pending = nil
		}
	case domain.EventLeaderboardChanged:
		if a.pending == nil {
			return nil
		}
		entries, ok := ev.Payload.([]domain.LeaderboardEntry)
		if !ok {
			return nil
		}
		snap := a.pending
		a.pending = nil
		return a.archive.SaveLeaderboard(ctx, domain.LeaderboardRecord{
			SessionID:   snap.SessionID,
			SessionName: snap.SessionName,
			Entries:     entries,
			RecordedAt:  a.clock.Now(),
		})
	case domain.EventQuizReset:
		a.pending = nil
	}
	return nil
}
