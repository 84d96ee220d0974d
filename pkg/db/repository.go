package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const repoLogPrefix = "db:repository"

// Querier is the subset of *pgxpool.Pool the repository uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository provides access to the dispatch audit log.
type Repository struct {
	db Querier
}

// NewRepository creates a new Repository over a pool or transaction.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// InsertDispatch appends one record.
func (r *Repository) InsertDispatch(ctx context.Context, rec *DispatchRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO dispatch_log (id, request_id, transport, operation, variant, outcome, message, duration_ms, created)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9)`,
		rec.ID, rec.RequestID, rec.Transport, rec.Operation, rec.Variant, rec.Outcome, rec.Message, rec.DurationMs, rec.Created)
	if err != nil {
		return fmt.Errorf("%s - insert dispatch %s: %w", repoLogPrefix, rec.RequestID, err)
	}
	return nil
}

// RecentDispatches returns the newest records first.
func (r *Repository) RecentDispatches(ctx context.Context, limit int) ([]DispatchRecord, error) {
	slog.Debug(fmt.Sprintf("%s - RecentDispatches limit=%d", repoLogPrefix, limit))
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, request_id, transport, operation, COALESCE(variant, ''), outcome, COALESCE(message, ''), duration_ms, created
		 FROM dispatch_log
		 ORDER BY created DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - query recent dispatches: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []DispatchRecord
	for rows.Next() {
		var rec DispatchRecord
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.Transport, &rec.Operation, &rec.Variant,
			&rec.Outcome, &rec.Message, &rec.DurationMs, &rec.Created); err != nil {
			return nil, fmt.Errorf("%s - scan dispatch: %w", repoLogPrefix, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// OutcomeSummary counts dispatches per operation and outcome since the given time.
func (r *Repository) OutcomeSummary(ctx context.Context, since time.Time) ([]OutcomeCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT operation, outcome, COUNT(*)
		 FROM dispatch_log
		 WHERE created >= $1
		 GROUP BY operation, outcome
		 ORDER BY operation, outcome`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s - query outcome summary: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []OutcomeCount
	for rows.Next() {
		var c OutcomeCount
		if err := rows.Scan(&c.Operation, &c.Outcome, &c.Count); err != nil {
			return nil, fmt.Errorf("%s - scan outcome count: %w", repoLogPrefix, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
