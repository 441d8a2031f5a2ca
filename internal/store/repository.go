package store

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateAttempt(ctx context.Context, a *Attempt) error
	FinishAttempt(ctx context.Context, id, status, message string, score *int, finishedAt time.Time) error
	GetAttempt(ctx context.Context, id string) (*Attempt, error)
	ListAttempts(ctx context.Context, limit int) ([]*Attempt, error)
	CountAttempts(ctx context.Context, status string) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const attemptColumns = `id, filename, mime_type, size_bytes, status, message, score, started_at, finished_at`

func (r *SQLiteRepository) CreateAttempt(ctx context.Context, a *Attempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attempts (`+attemptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Filename, a.MIMEType, a.Size, a.Status, nullString(a.Message), nullInt(a.Score),
		formatTime(a.StartedAt), nullTime(a.FinishedAt))
	return err
}

func (r *SQLiteRepository) FinishAttempt(ctx context.Context, id, status, message string, score *int, finishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attempts SET status = ?, message = ?, score = ?, finished_at = ? WHERE id = ?
	`, status, nullString(message), nullInt(score), formatTime(finishedAt), id)
	return err
}

func (r *SQLiteRepository) GetAttempt(ctx context.Context, id string) (*Attempt, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *SQLiteRepository) ListAttempts(ctx context.Context, limit int) ([]*Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+attemptColumns+`
		FROM attempts ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CountAttempts counts attempts with the given status, or all when status is empty.
func (r *SQLiteRepository) CountAttempts(ctx context.Context, status string) (int, error) {
	var count int
	var err error
	if status == "" {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attempts").Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attempts WHERE status = ?", status).Scan(&count)
	}
	return count, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')
	`, key, value)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (*Attempt, error) {
	var a Attempt
	var message, finishedAt sql.NullString
	var score sql.NullInt64
	var startedAt string

	if err := s.Scan(&a.ID, &a.Filename, &a.MIMEType, &a.Size, &a.Status, &message, &score, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	a.Message = message.String
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	a.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err == nil {
			a.FinishedAt = &t
		}
	}
	return &a, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
