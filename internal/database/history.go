package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/JonMunkholm/cardimport/internal/core"
)

const importRunsTable = "import_runs"

// runColumns is the select list for import_runs, in scan order.
var runColumns = []string{
	"id::text",
	"session_id::text",
	"target",
	"source",
	"file_name",
	"deck_name",
	"duplicate_mode",
	"total_rows",
	"total_batches",
	"imported",
	"updated",
	"skipped",
	"failed",
	"errors",
	"client_ip",
	"user_agent",
	"started_at",
	"finished_at",
}

// builder produces PostgreSQL-style $n placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// HistoryRepo persists finished commits in import_runs. It implements
// core.HistoryStore.
type HistoryRepo struct {
	q Querier
}

var _ core.HistoryStore = (*HistoryRepo)(nil)

// NewHistoryRepo creates a repository over q, usually a *pgxpool.Pool.
func NewHistoryRepo(q Querier) *HistoryRepo {
	return &HistoryRepo{q: q}
}

// RecordRun inserts one run.
func (r *HistoryRepo) RecordRun(ctx context.Context, run core.ImportRun) error {
	query, err := insertRunQuery(run)
	if err != nil {
		return err
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert import run %s: %w", run.ID, err)
	}
	return nil
}

func insertRunQuery(run core.ImportRun) (squirrel.InsertBuilder, error) {
	errs := run.Result.Errors
	if errs == nil {
		errs = []core.ImportRowError{}
	}
	errJSON, err := json.Marshal(errs)
	if err != nil {
		return squirrel.InsertBuilder{}, fmt.Errorf("encode row errors: %w", err)
	}

	return builder().
		Insert(importRunsTable).
		Columns(
			"id", "session_id", "target", "source", "file_name", "deck_name",
			"duplicate_mode", "total_rows", "total_batches",
			"imported", "updated", "skipped", "failed", "errors",
			"client_ip", "user_agent", "started_at", "finished_at", "duration_ms",
		).
		Values(
			run.ID, run.SessionID, string(run.Target), string(run.Source), run.FileName, run.DeckName,
			string(run.DuplicateMode), run.TotalRows, run.TotalBatches,
			run.Result.Imported, run.Result.Updated, run.Result.Skipped, run.Result.Failed, errJSON,
			run.ClientIP, run.UserAgent, run.StartedAt, run.FinishedAt, run.Duration().Milliseconds(),
		), nil
}

// ListRuns returns runs newest first, optionally for one target.
func (r *HistoryRepo) ListRuns(ctx context.Context, filter core.HistoryFilter) ([]core.ImportRun, error) {
	sql, args, err := listRunsQuery(filter.Normalize()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	runs := []core.ImportRun{}
	for rows.Next() {
		var (
			run                   core.ImportRun
			target, source, mode  string
			errJSON               []byte
			startedAt, finishedAt time.Time
		)
		if err := rows.Scan(
			&run.ID, &run.SessionID, &target, &source, &run.FileName, &run.DeckName,
			&mode, &run.TotalRows, &run.TotalBatches,
			&run.Result.Imported, &run.Result.Updated, &run.Result.Skipped, &run.Result.Failed, &errJSON,
			&run.ClientIP, &run.UserAgent, &startedAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}

		run.Target = core.TargetType(target)
		run.Source = core.ImportSource(source)
		run.DuplicateMode = core.DuplicateMode(mode)
		run.StartedAt, run.FinishedAt = startedAt, finishedAt

		run.Result.Errors = []core.ImportRowError{}
		if len(errJSON) > 0 {
			if err := json.Unmarshal(errJSON, &run.Result.Errors); err != nil {
				return nil, fmt.Errorf("decode row errors for run %s: %w", run.ID, err)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import runs: %w", err)
	}

	return runs, nil
}

func listRunsQuery(filter core.HistoryFilter) squirrel.SelectBuilder {
	query := builder().
		Select(runColumns...).
		From(importRunsTable).
		OrderBy("finished_at DESC").
		Limit(uint64(filter.Limit))

	if filter.Target != "" {
		query = query.Where(squirrel.Eq{"target": string(filter.Target)})
	}
	return query
}
