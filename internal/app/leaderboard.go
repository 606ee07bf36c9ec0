package app

import (
	"sort"

	"live-quiz-service/internal/domain"
)

// BuildLeaderboard ranks participants by total score descending, then by the summed
// elapsed time of their correct answers ascending, then by registration order.
// participants must be in registration order.
func BuildLeaderboard(participants []domain.Participant, answers []domain.AnswerRecord) []domain.LeaderboardEntry {
	type tally struct {
		entry domain.LeaderboardEntry
		seq   int
	}

	tallies := make([]tally, len(participants))
	byIdentity := make(map[string]int, len(participants))
	for i, p := range participants {
		tallies[i] = tally{
			entry: domain.LeaderboardEntry{
				Identity:      p.Identity,
				Name:          p.Name,
				SessionScores: make(map[int]int),
			},
			seq: p.Seq,
		}
		byIdentity[p.Identity] = i
	}

	for _, a := range answers {
		i, ok := byIdentity[a.Identity]
		if !ok {
			continue
		}
		e := &tallies[i].entry
		e.Score += a.Score
		e.SessionScores[a.SessionID] += a.Score
		if a.Correct {
			e.CorrectMillis += a.ElapsedMillis
		}
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.entry.Score != b.entry.Score {
			return a.entry.Score > b.entry.Score
		}
		if a.entry.CorrectMillis != b.entry.CorrectMillis {
			return a.entry.CorrectMillis < b.entry.CorrectMillis
		}
		return a.seq < b.seq
	})

	out := make([]domain.LeaderboardEntry, len(tallies))
	for i := range tallies {
		tallies[i].entry.Rank = i + 1
		out[i] = tallies[i].entry
	}
	return out
}

func cloneLeaderboard(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, len(entries))
	for i, e := range entries {
		scores := make(map[int]int, len(e.SessionScores))
		for k, v := range e.SessionScores {
			scores[k] = v
		}
		e.SessionScores = scores
		out[i] = e
	}
	return out
}
