package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/action/internal/action"
)

// JournalEntry is one finished or stopped controller.
type JournalEntry struct {
	RunID      uuid.UUID
	Label      string
	RootID     uint64
	StartFrame uint64
	EndFrame   uint64
	Elapsed    time.Duration
	Stopped    bool
	FinishedAt time.Time
}

// NewJournalEntry stamps a driver record with the process run id.
func NewJournalEntry(runID uuid.UUID, rec action.Record, at time.Time) JournalEntry {
	return JournalEntry{
		RunID:      runID,
		Label:      rec.Label,
		RootID:     rec.RootID,
		StartFrame: rec.StartFrame,
		EndFrame:   rec.EndFrame,
		Elapsed:    rec.Elapsed,
		Stopped:    rec.Stopped,
		FinishedAt: at,
	}
}

// Frames returns how many frames the controller was registered for.
func (e JournalEntry) Frames() uint64 {
	if e.EndFrame < e.StartFrame {
		return 0
	}
	return e.EndFrame - e.StartFrame
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Write stores a batch of entries in a single transaction.
func (r *JournalRepo) Write(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO action_journal (run_id, label, root_id, start_frame, end_frame, elapsed_ms, stopped, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.RunID, e.Label, int64(e.RootID), int64(e.StartFrame), int64(e.EndFrame),
			e.Elapsed.Milliseconds(), e.Stopped, e.FinishedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return tx.Commit(ctx)
}

// Count returns the number of journal rows for a run.
func (r *JournalRepo) Count(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM action_journal WHERE run_id = $1`, runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("journal count: %w", err)
	}
	return n, nil
}

// Recent returns the latest entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT run_id, label, root_id, start_frame, end_frame, elapsed_ms, stopped, finished_at
		 FROM action_journal ORDER BY finished_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal recent: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var (
			e                         JournalEntry
			rootID, start, end, msecs int64
		)
		if err := rows.Scan(&e.RunID, &e.Label, &rootID, &start, &end, &msecs, &e.Stopped, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.RootID = uint64(rootID)
		e.StartFrame = uint64(start)
		e.EndFrame = uint64(end)
		e.Elapsed = time.Duration(msecs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
