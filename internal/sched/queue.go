// Package sched provides the SQLite-backed job queue behind the
// scheduler capability.
//
// The queue is passive: it stores jobs and hands back the due ones. The
// host drives execution and reports each job's outcome. Jobs settle
// into terminal states (done, failed, canceled) instead of being
// deleted, so the schedule history stays auditable.
package sched

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/wire"
)

//go:embed schema.sql
var schemaSQL string

// Job is one scheduled invocation.
type Job struct {
	ID    platform.JobID
	Ref   platform.FuncRef
	Args  wire.Value
	RunAt time.Time
}

// Queue is a durable scheduler queue.
type Queue struct {
	db  *sql.DB
	ids func() (platform.JobID, error)
	now func() time.Time
}

// Option adjusts queue construction.
type Option func(*Queue)

// WithIDFunc substitutes the job id generator.
func WithIDFunc(f func() (platform.JobID, error)) Option {
	return func(q *Queue) { q.ids = f }
}

// WithClock substitutes the enqueue-time clock.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// Open creates or opens the queue database at the given path, with the
// same pragma set as the document store.
func Open(path string, opts ...Option) (*Queue, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	q := &Queue{
		db: db,
		ids: func() (platform.JobID, error) {
			u, err := uuid.NewV7()
			if err != nil {
				return "", fmt.Errorf("mint job id: %w", err)
			}
			return platform.JobID(u.String()), nil
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Close closes the queue database.
func (q *Queue) Close() error {
	if q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Schedule enqueues an invocation of ref with args at the given time.
func (q *Queue) Schedule(ctx context.Context, at time.Time, ref platform.FuncRef, args wire.Value) (platform.JobID, error) {
	if args == nil {
		args = wire.Null{}
	}
	argsJSON, err := wire.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("schedule %s: %w", ref, err)
	}
	id, err := q.ids()
	if err != nil {
		return "", err
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO jobs (id, ref, args, run_at, enqueued_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(id), string(ref), string(argsJSON), at.UnixMilli(), q.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("schedule %s: %w", ref, err)
	}
	return id, nil
}

// Cancel moves a pending job to the canceled state. A job that is
// missing or already settled resolves to the typed NOT_FOUND failure:
// there is nothing left to cancel either way.
func (q *Queue) Cancel(ctx context.Context, id platform.JobID) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET state = 'canceled', completed_at = ?
		WHERE id = ? AND state = 'pending'
	`, q.now().UnixMilli(), string(id))
	if err != nil {
		return fmt.Errorf("cancel %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel %s: %w", id, err)
	}
	if n == 0 {
		return effect.Failf(effect.CodeNotFound, "no pending job %s", id)
	}
	return nil
}

// Due returns pending jobs whose run time has arrived, ordered by
// (run_at, id) so identical queues drain in identical order.
func (q *Queue) Due(ctx context.Context, now time.Time) ([]Job, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, ref, args, run_at
		FROM jobs
		WHERE state = 'pending' AND run_at <= ?
		ORDER BY run_at ASC, id ASC
	`, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			id, ref, argsJSON string
			runAt             int64
		)
		if err := rows.Scan(&id, &ref, &argsJSON, &runAt); err != nil {
			return nil, fmt.Errorf("due jobs: %w", err)
		}
		args, err := wire.ParseJSON([]byte(argsJSON))
		if err != nil {
			return nil, fmt.Errorf("due jobs: job %s: %w", id, err)
		}
		jobs = append(jobs, Job{
			ID:    platform.JobID(id),
			Ref:   platform.FuncRef(ref),
			Args:  args,
			RunAt: time.UnixMilli(runAt).UTC(),
		})
	}
	return jobs, rows.Err()
}

// MarkDone settles a job successfully.
func (q *Queue) MarkDone(ctx context.Context, id platform.JobID) error {
	return q.settle(ctx, id, "done", "")
}

// MarkFailed settles a job with its failure message.
func (q *Queue) MarkFailed(ctx context.Context, id platform.JobID, cause string) error {
	return q.settle(ctx, id, "failed", cause)
}

func (q *Queue) settle(ctx context.Context, id platform.JobID, state, cause string) error {
	var errVal any
	if cause != "" {
		errVal = cause
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, completed_at = ?, error = ?
		WHERE id = ? AND state = 'pending'
	`, state, q.now().UnixMilli(), errVal, string(id))
	if err != nil {
		return fmt.Errorf("settle %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("settle %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("settle %s: job is not pending", id)
	}
	return nil
}

// State reports a job's current state, for tests and introspection.
func (q *Queue) State(ctx context.Context, id platform.JobID) (string, error) {
	var state string
	err := q.db.QueryRowContext(ctx, `
		SELECT state FROM jobs WHERE id = ?
	`, string(id)).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", effect.Failf(effect.CodeNotFound, "no job %s", id)
	}
	if err != nil {
		return "", fmt.Errorf("job state %s: %w", id, err)
	}
	return state, nil
}
