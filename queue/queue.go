// Package queue implements the ingestion work queue: a visibility-timeout
// queue backed by SQLite.
//
// Rows are invisible to consumers for a configurable duration after being
// claimed. If the holder processes the row successfully it acks (deletes)
// it. If the holder crashes or exceeds the timeout the row reappears and
// another worker can claim it. No external broker is needed.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/ingestkit/dbopen"
)

// Task is the payload of an ingestion job: one file to classify,
// partition and deliver.
type Task struct {
	Path string `json:"path"`
}

// Job is a row in the queue.
type Job struct {
	ID        string
	Payload   []byte
	VisibleAt time.Time
	CreatedAt time.Time
	Attempts  int
}

// Task decodes the job payload.
func (j *Job) Task() (Task, error) {
	var t Task
	if err := json.Unmarshal(j.Payload, &t); err != nil {
		return Task{}, fmt.Errorf("queue: decode task %s: %w", j.ID, err)
	}
	return t, nil
}

// Options configures queue behaviour.
type Options struct {
	// Name is the logical queue name. Multiple queues can coexist in the
	// same table. Default: "ingest".
	Name string
	// Visibility is how long a claimed job stays invisible. Default: 30s.
	Visibility time.Duration
	// PollInterval is the delay between claim attempts in the Run loop.
	// Default: 1s.
	PollInterval time.Duration
	// MaxAttempts limits how many times a job can be redelivered before
	// being discarded. 0 means unlimited. Default: 5.
	MaxAttempts int
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Name == "" {
		o.Name = "ingest"
	}
	if o.Visibility <= 0 {
		o.Visibility = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 5
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Queue is the queue handle.
type Queue struct {
	db   *sql.DB
	opts Options
}

// New creates a queue handle. Call EnsureTable once at startup, then
// Publish and Claim (or Run) as needed.
func New(db *sql.DB, opts Options) *Queue {
	opts.defaults()
	return &Queue{db: db, opts: opts}
}

// EnsureTable creates the ingest_jobs table and index if they don't exist.
func (q *Queue) EnsureTable(ctx context.Context) error {
	_, err := dbopen.Exec(ctx, q.db, `
		CREATE TABLE IF NOT EXISTS ingest_jobs (
			id          TEXT PRIMARY KEY,
			queue       TEXT NOT NULL DEFAULT '',
			payload     BLOB,
			visible_at  INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			attempts    INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_ingest_jobs_visible ON ingest_jobs (queue, visible_at);
	`)
	return err
}

// Publish inserts a task that is immediately visible.
func (q *Queue) Publish(ctx context.Context, id string, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("queue: encode task: %w", err)
	}
	now := time.Now().UnixMilli()
	_, err = dbopen.Exec(ctx, q.db,
		`INSERT INTO ingest_jobs (id, queue, payload, visible_at, created_at) VALUES (?,?,?,?,?)`,
		id, q.opts.Name, payload, now, now,
	)
	return err
}

// Claim atomically picks the oldest visible job, marks it invisible for
// the configured visibility duration, and returns it. Returns nil, nil
// if no job is available.
func (q *Queue) Claim(ctx context.Context) (*Job, error) {
	now := time.Now()
	hideUntil := now.Add(q.opts.Visibility).UnixMilli()

	row := q.db.QueryRowContext(ctx, `
		UPDATE ingest_jobs
		SET visible_at = ?, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM ingest_jobs
			WHERE queue = ? AND visible_at <= ?
			ORDER BY visible_at ASC
			LIMIT 1
		)
		RETURNING id, payload, visible_at, created_at, attempts`,
		hideUntil, q.opts.Name, now.UnixMilli(),
	)

	var j Job
	var visAt, creAt int64
	err := row.Scan(&j.ID, &j.Payload, &visAt, &creAt, &j.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.VisibleAt = time.UnixMilli(visAt)
	j.CreatedAt = time.UnixMilli(creAt)
	return &j, nil
}

// Ack deletes a successfully processed job.
func (q *Queue) Ack(ctx context.Context, id string) error {
	_, err := dbopen.Exec(ctx, q.db,
		`DELETE FROM ingest_jobs WHERE id = ? AND queue = ?`, id, q.opts.Name,
	)
	return err
}

// Nack makes a job immediately visible again so another worker can pick
// it up.
func (q *Queue) Nack(ctx context.Context, id string) error {
	_, err := dbopen.Exec(ctx, q.db,
		`UPDATE ingest_jobs SET visible_at = 0 WHERE id = ? AND queue = ?`, id, q.opts.Name,
	)
	return err
}

// Extend pushes the visibility timeout forward for a job that needs more
// processing time (heartbeat pattern).
func (q *Queue) Extend(ctx context.Context, id string, extra time.Duration) error {
	hideUntil := time.Now().Add(extra).UnixMilli()
	_, err := dbopen.Exec(ctx, q.db,
		`UPDATE ingest_jobs SET visible_at = ? WHERE id = ? AND queue = ?`,
		hideUntil, id, q.opts.Name,
	)
	return err
}

// Purge deletes all jobs in the queue.
func (q *Queue) Purge(ctx context.Context) error {
	_, err := dbopen.Exec(ctx, q.db,
		`DELETE FROM ingest_jobs WHERE queue = ?`, q.opts.Name,
	)
	return err
}

// Len returns the total number of jobs (visible + invisible) in the queue.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ingest_jobs WHERE queue = ?`, q.opts.Name,
	).Scan(&n)
	return n, err
}

// Handler processes a claimed job. Return nil to ack, non-nil to nack.
type Handler func(ctx context.Context, job *Job) error

// Run polls for visible jobs and calls handler for each one with bounded
// concurrency. It blocks until ctx is cancelled, draining in-flight
// handlers before returning.
func (q *Queue) Run(ctx context.Context, workers int, handler Handler) {
	log := q.opts.Logger
	if workers < 1 {
		workers = 1
	}
	log.Info("queue: consumer started",
		"queue", q.opts.Name,
		"workers", workers,
		"visibility", q.opts.Visibility,
		"poll", q.opts.PollInterval,
	)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("queue: consumer stopping, draining in-flight handlers", "queue", q.opts.Name)
			wg.Wait()
			log.Info("queue: consumer stopped", "queue", q.opts.Name)
			return
		case <-ticker.C:
			q.poll(ctx, sem, &wg, handler, log)
		}
	}
}

func (q *Queue) poll(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup, handler Handler, log *slog.Logger) {
	for {
		job, err := q.Claim(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("queue: claim failed", "error", err, "queue", q.opts.Name)
			}
			return
		}
		if job == nil {
			return // nothing visible
		}

		if q.opts.MaxAttempts > 0 && job.Attempts > q.opts.MaxAttempts {
			log.Warn("queue: job exceeded max attempts, discarding",
				"id", job.ID, "attempts", job.Attempts, "queue", q.opts.Name)
			_ = q.Ack(ctx, job.ID)
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			_ = q.Nack(context.Background(), job.ID)
			return
		}

		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := handler(ctx, j); err != nil {
				log.Warn("queue: handler failed, nacking", "id", j.ID, "error", err, "queue", q.opts.Name)
				_ = q.Nack(context.Background(), j.ID)
			} else {
				_ = q.Ack(context.Background(), j.ID)
			}
		}(job)
	}
}
