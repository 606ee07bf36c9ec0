package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"live-quiz-service/internal/domain"
)

// Archive is an app.ResultArchive backed by a SQLite file.
type Archive struct {
	db *sql.DB
}

func NewArchive(path string) (*Archive, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz-archive.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &Archive{db: db}
	if err := a.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS answers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			seq INTEGER NOT NULL,
			session_id INTEGER NOT NULL,
			question_id TEXT NOT NULL,
			identity TEXT NOT NULL,
			option_index INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			score INTEGER NOT NULL,
			submitted_at_unix_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS leaderboards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL,
			session_name TEXT NOT NULL,
			entries_json TEXT NOT NULL,
			recorded_at_unix_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_session_question ON answers(session_id, question_id);`,
	}
	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init archive schema: %w", err)
		}
	}
	return nil
}

func (a *Archive) AppendAnswer(ctx context.Context, rec domain.AnswerRecord) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO answers (seq, session_id, question_id, identity, option_index, correct, elapsed_ms, score, submitted_at_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Seq, rec.SessionID, rec.QuestionID, rec.Identity, rec.OptionIndex,
		boolToInt(rec.Correct), rec.ElapsedMillis, rec.Score, rec.SubmittedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("archive answer: %w", err)
	}
	return nil
}

func (a *Archive) SaveLeaderboard(ctx context.Context, rec domain.LeaderboardRecord) error {
	raw, err := json.Marshal(rec.Entries)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO leaderboards (session_id, session_name, entries_json, recorded_at_unix_ms)
		VALUES (?, ?, ?, ?)`,
		rec.SessionID, rec.SessionName, string(raw), rec.RecordedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("archive leaderboard: %w", err)
	}
	return nil
}

func (a *Archive) Leaderboards(ctx context.Context) ([]domain.LeaderboardRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT session_id, session_name, entries_json, recorded_at_unix_ms
		FROM leaderboards
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list leaderboards: %w", err)
	}
	defer rows.Close()

	var out []domain.LeaderboardRecord
	for rows.Next() {
		var (
			rec        domain.LeaderboardRecord
			raw        string
			recordedMs int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.SessionName, &raw, &recordedMs); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Entries); err != nil {
			return nil, fmt.Errorf("decode leaderboard for session %d: %w", rec.SessionID, err)
		}
		rec.RecordedAt = time.UnixMilli(recordedMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AnswerCount returns how many answers were archived for a question.
func (a *Archive) AnswerCount(ctx context.Context, sessionID int, questionID string) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM answers WHERE session_id = ? AND question_id = ?`,
		sessionID, questionID).Scan(&n)
	return n, err
}

// Ping reports whether the database file is usable.
func (a *Archive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
