package app

import (
	"context"

	"live-quiz-service/internal/domain"
)

// CatalogLoader fetches the session catalog from a backing store.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (domain.Catalog, error)
}

// ResultArchive keeps accepted answers and the final standings of every completed session.
type ResultArchive interface {
	AppendAnswer(ctx context.Context, rec domain.AnswerRecord) error
	SaveLeaderboard(ctx context.Context, rec domain.LeaderboardRecord) error
	Leaderboards(ctx context.Context) ([]domain.LeaderboardRecord, error)
}
