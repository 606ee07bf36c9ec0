package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"live-quiz-service/internal/domain"
)

// CatalogLoader loads quiz sessions from Postgres. Questions live in a JSONB column.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name, questions FROM quiz_sessions ORDER BY id`)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	var catalog domain.Catalog
	for rows.Next() {
		var (
			s   domain.Session
			raw []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &raw); err != nil {
			return domain.Catalog{}, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal(raw, &s.Questions); err != nil {
			return domain.Catalog{}, fmt.Errorf("unmarshal session %d questions: %w", s.ID, err)
		}
		catalog.Sessions = append(catalog.Sessions, s)
	}
	if err := rows.Err(); err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return catalog.Normalize()
}

// SaveCatalog upserts every session of catalog.
func (l *CatalogLoader) SaveCatalog(ctx context.Context, catalog domain.Catalog) error {
	normalized, err := catalog.Normalize()
	if err != nil {
		return err
	}
	return l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, s := range normalized.Sessions {
			raw, err := json.Marshal(s.Questions)
			if err != nil {
				return fmt.Errorf("marshal session %d: %w", s.ID, err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO quiz_sessions (id, name, questions, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name, questions = EXCLUDED.questions, updated_at = now()`,
				s.ID, s.Name, raw)
			if err != nil {
				return fmt.Errorf("save session %d: %w", s.ID, err)
			}
		}
		return nil
	})
}

// Ping reports whether the database is reachable.
func (l *CatalogLoader) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}
