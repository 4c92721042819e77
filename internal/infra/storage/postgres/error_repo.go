package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
	"github.com/vietddude/remedy/internal/infra/storage"
)

// ErrorRepo implements storage.ErrorRepository using PostgreSQL.
type ErrorRepo struct {
	db *DB
}

// NewErrorRepo creates a new PostgreSQL error repository.
func NewErrorRepo(db *DB) *ErrorRepo {
	return &ErrorRepo{db: db}
}

type errorRow struct {
	ID        string         `db:"id"`
	Source    string         `db:"source"`
	Severity  string         `db:"severity"`
	Message   string         `db:"message"`
	File      sql.NullString `db:"file"`
	Line      sql.NullInt32  `db:"line"`
	Col       sql.NullInt32  `db:"col"`
	Stack     sql.NullString `db:"stack"`
	URL       sql.NullString `db:"url"`
	Status    sql.NullInt32  `db:"status"`
	Method    sql.NullString `db:"method"`
	Timestamp time.Time      `db:"detected_at"`
	Resolved  bool           `db:"resolved"`
}

func (row errorRow) toDomain() *domain.ClassifiedError {
	return &domain.ClassifiedError{
		ID:        row.ID,
		Source:    domain.ErrorSource(row.Source),
		Severity:  domain.Severity(row.Severity),
		Message:   row.Message,
		File:      row.File.String,
		Line:      int(row.Line.Int32),
		Column:    int(row.Col.Int32),
		Stack:     row.Stack.String,
		URL:       row.URL.String,
		Status:    int(row.Status.Int32),
		Method:    row.Method.String,
		Timestamp: row.Timestamp,
		Resolved:  row.Resolved,
	}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(n), Valid: n != 0}
}

// Save stores a classified error.
func (r *ErrorRepo) Save(ctx context.Context, e *domain.ClassifiedError) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO detected_errors
			(id, source, severity, message, file, line, col, stack, url, status, method, detected_at, resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Source), string(e.Severity), e.Message,
		nullStr(e.File), nullInt(e.Line), nullInt(e.Column), nullStr(e.Stack),
		nullStr(e.URL), nullInt(e.Status), nullStr(e.Method), e.Timestamp, e.Resolved,
	)
	if err != nil {
		return fmt.Errorf("failed to save error: %w", err)
	}
	return nil
}

// MarkResolved marks a stored error as resolved.
func (r *ErrorRepo) MarkResolved(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE detected_errors SET resolved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark resolved: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrErrorNotFound
	}
	return nil
}

// MarkAllResolved marks every unresolved error as resolved.
func (r *ErrorRepo) MarkAllResolved(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE detected_errors SET resolved = TRUE WHERE resolved = FALSE`)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all resolved: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Unresolved retrieves all unresolved errors, newest first.
func (r *ErrorRepo) Unresolved(ctx context.Context) ([]*domain.ClassifiedError, error) {
	var rows []errorRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, source, severity, message, file, line, col, stack, url, status, method, detected_at, resolved
		FROM detected_errors
		WHERE resolved = FALSE
		ORDER BY detected_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved errors: %w", err)
	}

	out := make([]*domain.ClassifiedError, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Counts returns unresolved error counts grouped by source.
func (r *ErrorRepo) Counts(ctx context.Context) (map[domain.ErrorSource]int, error) {
	var rows []struct {
		Source string `db:"source"`
		Count  int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT source, COUNT(*) AS count
		FROM detected_errors
		WHERE resolved = FALSE
		GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to count errors: %w", err)
	}

	counts := make(map[domain.ErrorSource]int, len(rows))
	for _, row := range rows {
		counts[domain.ErrorSource(row.Source)] = row.Count
	}
	return counts, nil
}

// Prune deletes resolved errors older than the retention period.
func (r *ErrorRepo) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM detected_errors WHERE resolved = TRUE AND detected_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune errors: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
