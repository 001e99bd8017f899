// Package tracker implements the Postgres-backed thread tracker (spec.md
// §4.10): one insert per top-level query at start, one update at
// completion, plus listing/lookup/archival for UIs.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ai/ragcore/internal/corerr"
	"github.com/meridian-ai/ragcore/internal/model"
)

// Tracker wraps a connection pool to the thread_tracking table (spec.md
// §6.3).
type Tracker struct {
	pool *pgxpool.Pool
}

// New creates a Tracker.
func New(pool *pgxpool.Pool) *Tracker {
	return &Tracker{pool: pool}
}

// InsertOnStart records a query invocation before the graph runs, so the
// tracker reflects in-flight queries even if the process dies mid-run
// (spec.md §4.10 "Insert is synchronous and returns before the query
// runs").
func (t *Tracker) InsertOnStart(ctx context.Context, userID, threadID, queryText string, entryPoint model.EntryPoint, pipelineType model.PipelineType, crossDoc bool) (int64, error) {
	var id int64
	err := t.pool.QueryRow(ctx, `
		INSERT INTO thread_tracking
			(user_id, thread_id, query_text, entry_point, pipeline_type, cross_doc, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, userID, threadID, queryText, string(entryPoint), string(pipelineType), crossDoc, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("tracker.InsertOnStart: %w: %w", corerr.ErrStoreUnavailable, err)
	}
	return id, nil
}

// UpdateOnCompletion records the terminal state of a query invocation.
// Called synchronously before the answer is returned to the caller
// (spec.md §4.10), so a UI refreshing immediately sees the thread.
func (t *Tracker) UpdateOnCompletion(ctx context.Context, recordID int64, finalAnswer string, docIDs []string, graphState any, metadata map[string]any) error {
	graphStateJSON, err := json.Marshal(graphState)
	if err != nil {
		return fmt.Errorf("tracker.UpdateOnCompletion: marshal graphstate: %w", err)
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("tracker.UpdateOnCompletion: marshal metadata: %w", err)
	}

	_, err = t.pool.Exec(ctx, `
		UPDATE thread_tracking
		SET final_answer = $1, doc_ids = $2, graphstate = $3, metadata = $4, completed_at = $5
		WHERE id = $6
	`, finalAnswer, docIDs, graphStateJSON, metadataJSON, time.Now().UTC(), recordID)
	if err != nil {
		return fmt.Errorf("tracker.UpdateOnCompletion: %w: %w", corerr.ErrStoreUnavailable, err)
	}
	return nil
}

// ListThreads returns the most recent threads for a user, sorted by last
// activity descending (spec.md §4.10). By default archived threads are
// excluded.
func (t *Tracker) ListThreads(ctx context.Context, userID string, limit int, includeArchived bool) ([]model.ThreadSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT DISTINCT ON (thread_id)
			thread_id, query_text, final_answer,
			COALESCE(completed_at, created_at) AS last_activity,
			archived
		FROM thread_tracking
		WHERE user_id = $1`
	if !includeArchived {
		query += ` AND archived = false`
	}
	query += `
		ORDER BY thread_id, created_at DESC`

	rows, err := t.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("tracker.ListThreads: %w: %w", corerr.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var summaries []model.ThreadSummary
	for rows.Next() {
		var s model.ThreadSummary
		if err := rows.Scan(&s.ThreadID, &s.QueryText, &s.FinalAnswer, &s.LastActivity, &s.Archived); err != nil {
			return nil, fmt.Errorf("tracker.ListThreads: scan: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracker.ListThreads: %w: %w", corerr.ErrStoreUnavailable, err)
	}

	sortSummariesByActivityDesc(summaries)
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// GetThread returns the full record for one thread, owned by userID.
func (t *Tracker) GetThread(ctx context.Context, userID, threadID string) (model.ThreadRecord, error) {
	var r model.ThreadRecord
	var entryPoint, pipelineType string
	err := t.pool.QueryRow(ctx, `
		SELECT id, user_id, thread_id, doc_ids, query_text, final_answer,
			graphstate, ingestion_meta, created_at, completed_at,
			entry_point, pipeline_type, cross_doc, archived, metadata
		FROM thread_tracking
		WHERE user_id = $1 AND thread_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, threadID).Scan(
		&r.ID, &r.UserID, &r.ThreadID, &r.DocIDs, &r.QueryText, &r.FinalAnswer,
		&r.GraphState, &r.IngestionMeta, &r.CreatedAt, &r.CompletedAt,
		&entryPoint, &pipelineType, &r.CrossDoc, &r.Archived, &r.Metadata,
	)
	if err != nil {
		return model.ThreadRecord{}, fmt.Errorf("tracker.GetThread: %w: %w", corerr.ErrStoreUnavailable, err)
	}
	r.EntryPoint = model.EntryPoint(entryPoint)
	r.PipelineType = model.PipelineType(pipelineType)
	return r, nil
}

// Archive sets or clears the archived flag on every row of a thread.
func (t *Tracker) Archive(ctx context.Context, threadID, userID string, archived bool) error {
	_, err := t.pool.Exec(ctx, `
		UPDATE thread_tracking SET archived = $1
		WHERE thread_id = $2 AND user_id = $3
	`, archived, threadID, userID)
	if err != nil {
		return fmt.Errorf("tracker.Archive: %w: %w", corerr.ErrStoreUnavailable, err)
	}
	return nil
}

func sortSummariesByActivityDesc(s []model.ThreadSummary) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1].LastActivity.Before(s[j].LastActivity); j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
