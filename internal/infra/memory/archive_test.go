package memory

import (
	"context"
	"testing"

	"live-quiz-service/internal/domain"
)

func TestArchiveKeepsCopies(t *testing.T) {
	archive := NewArchive()
	ctx := context.Background()

	entries := []domain.LeaderboardEntry{{Identity: "alice", Name: "Alice", Score: 20, Rank: 1}}
	if err := archive.SaveLeaderboard(ctx, domain.LeaderboardRecord{SessionID: 1, Entries: entries}); err != nil {
		t.Fatalf("save leaderboard: %v", err)
	}
	entries[0].Score = 99

	got, err := archive.Leaderboards(ctx)
	if err != nil {
		t.Fatalf("leaderboards: %v", err)
	}
	if len(got) != 1 || got[0].Entries[0].Score != 20 {
		t.Fatalf("expected stored copy with score 20, got %+v", got)
	}

	if err := archive.AppendAnswer(ctx, domain.AnswerRecord{Identity: "alice", QuestionID: "q1"}); err != nil {
		t.Fatalf("append answer: %v", err)
	}
	if answers := archive.Answers(); len(answers) != 1 || answers[0].QuestionID != "q1" {
		t.Fatalf("unexpected answers %+v", answers)
	}
}

func TestStaticCatalogLoaderNormalizes(t *testing.T) {
	loader := NewStaticCatalogLoader(domain.Catalog{Sessions: []domain.Session{
		{ID: 2, Name: "B", Questions: []domain.Question{{ID: "x", Options: []string{"a", "b"}}}},
		{ID: 1, Name: "A"},
	}})

	catalog, err := loader.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if catalog.Sessions[0].ID != 1 {
		t.Fatalf("expected sessions sorted by id, got %+v", catalog.Sessions)
	}
	if q := catalog.Sessions[1].Questions[0]; q.TimeLimit != domain.DefaultTimeLimit || q.SessionID != 2 {
		t.Fatalf("expected defaults applied, got %+v", q)
	}

	_, err = NewStaticCatalogLoader(domain.Catalog{Sessions: []domain.Session{{ID: 1}, {ID: 1}}}).LoadCatalog(context.Background())
	if err == nil {
		t.Fatalf("expected duplicate session ids to be rejected")
	}
}
