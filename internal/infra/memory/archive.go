package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// Archive is an in-memory app.ResultArchive used when no archive database is configured.
type Archive struct {
	mu           sync.RWMutex
	answers      []domain.AnswerRecord
	leaderboards []domain.LeaderboardRecord
}

func NewArchive() *Archive {
	return &Archive{}
}

func (a *Archive) AppendAnswer(_ context.Context, rec domain.AnswerRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers = append(a.answers, rec)
	return nil
}

func (a *Archive) SaveLeaderboard(_ context.Context, rec domain.LeaderboardRecord) error {
	entries := make([]domain.LeaderboardEntry, len(rec.Entries))
	copy(entries, rec.Entries)
	rec.Entries = entries

	a.mu.Lock()
	defer a.mu.Unlock()
	a.leaderboards = append(a.leaderboards, rec)
	return nil
}

func (a *Archive) Leaderboards(_ context.Context) ([]domain.LeaderboardRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.LeaderboardRecord, len(a.leaderboards))
	copy(out, a.leaderboards)
	return out, nil
}

// Answers returns every archived answer in arrival order.
func (a *Archive) Answers() []domain.AnswerRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.AnswerRecord, len(a.answers))
	copy(out, a.answers)
	return out
}
