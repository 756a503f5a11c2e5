// Package ingest drives the pipeline end to end: scan directory trees,
// enqueue files, then classify, partition and deliver each one.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazyhaar/ingestkit/dbopen"
	"github.com/hazyhaar/ingestkit/filetype"
	"github.com/hazyhaar/ingestkit/idgen"
	"github.com/hazyhaar/ingestkit/partition"
	"github.com/hazyhaar/ingestkit/queue"
	"github.com/hazyhaar/ingestkit/retry"
	"github.com/hazyhaar/ingestkit/sink"
)

// Ingester owns the full pipeline: queue, partitioning, identity and
// delivery.
type Ingester struct {
	cfg      *Config
	db       *sql.DB
	pipeline *partition.Pipeline
	store    *sink.SQLite
	sinks    sink.Fanout
	q        *queue.Queue
	exec     *retry.Executor
	strategy *retry.Strategy
	metrics  *Metrics
	logger   *slog.Logger
	newID    idgen.Generator
}

// Option customises New.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

// WithMetrics registers the ingester's collectors on reg instead of the
// default registry.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(i *Ingester) { i.metrics = NewMetrics(reg) }
}

// WithSink appends an extra delivery backend.
func WithSink(s sink.Sink) Option {
	return func(i *Ingester) { i.sinks = append(i.sinks, s) }
}

// WithIDGenerator overrides the document ID generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(i *Ingester) { i.newID = gen }
}

// New builds an ingester from config: opens the database, wires the
// SQLite store plus any configured webhook and stdout sinks, and
// prepares the work queue.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Ingester, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ing := &Ingester{
		cfg:    cfg,
		logger: slog.Default(),
		newID:  idgen.Prefixed("doc_", idgen.UUIDv7()),
		strategy: &retry.Strategy{
			MaxTries: cfg.Retry.MaxTries,
			MaxTime:  cfg.Retry.MaxTime,
		},
	}
	for _, opt := range opts {
		opt(ing)
	}
	if ing.metrics == nil {
		ing.metrics = NewMetrics(prometheus.DefaultRegisterer)
	}
	ing.exec = retry.New(retry.WithLogger(ing.logger))

	db, err := dbopen.Open(ctx, cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		return nil, err
	}
	ing.db = db

	store, err := sink.NewSQLiteDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	ing.store = store
	ing.sinks = append(sink.Fanout{store}, ing.sinks...)

	for _, wh := range cfg.Webhooks {
		ing.sinks = append(ing.sinks, sink.NewWebhook(wh.URL,
			sink.WithWebhookStrategy(ing.strategy),
			sink.WithWebhookLogger(ing.logger.With("webhook", wh.Name)),
		))
	}
	if cfg.Stdout {
		ing.sinks = append(ing.sinks, sink.NewStdout(nil))
	}

	ing.q = queue.New(db, queue.Options{
		Visibility:   cfg.Queue.Visibility,
		PollInterval: cfg.Queue.PollInterval,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		Logger:       ing.logger,
	})
	if err := ing.q.EnsureTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ingest: ensure queue table: %w", err)
	}

	ing.pipeline = partition.New(partition.Config{
		MaxFileSize: cfg.MaxFileBytes(),
		Logger:      ing.logger,
	})

	return ing, nil
}

// Pipeline exposes the partition pipeline (used by the HTTP server).
func (i *Ingester) Pipeline() *partition.Pipeline { return i.pipeline }

// Store exposes the document store.
func (i *Ingester) Store() *sink.SQLite { return i.store }

// Queue exposes the work queue.
func (i *Ingester) Queue() *queue.Queue { return i.q }

// Close releases the database handle and closes every sink.
func (i *Ingester) Close() error {
	err := i.sinks.Close()
	if cerr := i.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Scan walks the configured roots and enqueues every file whose
// extension maps to a partitionable file type. It returns the number of
// files enqueued.
func (i *Ingester) Scan(ctx context.Context) (int, error) {
	enqueued := 0
	for _, root := range i.cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				return nil
			}
			ft := filetype.FromExtension(filepath.Ext(path))
			if ft == nil || !ft.IsPartitionable() {
				i.logger.Debug("scan: skipping file", "path", path)
				return nil
			}
			id := idgen.Prefixed("job_", idgen.UUIDv7())()
			if err := i.q.Publish(ctx, id, queue.Task{Path: path}); err != nil {
				return fmt.Errorf("enqueue %s: %w", path, err)
			}
			enqueued++
			return nil
		})
		if err != nil {
			return enqueued, fmt.Errorf("ingest: scan %s: %w", root, err)
		}
	}
	i.logger.Info("scan complete", "roots", i.cfg.Roots, "enqueued", enqueued)
	return enqueued, nil
}

// Process ingests a single file: fingerprint, dedupe, partition,
// deliver. Unchanged files (fingerprint already stored) are skipped.
func (i *Ingester) Process(ctx context.Context, path string) error {
	start := time.Now()

	fp, err := Fingerprint(path)
	if err != nil {
		i.metrics.Failed.WithLabelValues("fingerprint").Inc()
		return err
	}

	seen, err := i.store.HasFingerprint(ctx, fp)
	if err != nil {
		i.metrics.Failed.WithLabelValues("dedupe").Inc()
		return err
	}
	if seen {
		i.metrics.Skipped.Inc()
		i.logger.Debug("skipping unchanged file", "path", path, "fingerprint", fp)
		return nil
	}

	doc, err := i.pipeline.Partition(ctx, path)
	if err != nil {
		i.metrics.Failed.WithLabelValues("partition").Inc()
		return err
	}

	rec := sink.Flatten(doc, i.newID(), fp)
	err = i.exec.Run(ctx, i.strategy, "ingest.deliver", func(ctx context.Context) error {
		return i.sinks.Deliver(ctx, rec)
	})
	if err != nil {
		i.metrics.Failed.WithLabelValues("deliver").Inc()
		return err
	}

	i.metrics.Ingested.WithLabelValues(doc.FileType).Inc()
	i.metrics.Duration.Observe(time.Since(start).Seconds())
	i.logger.Info("ingested document",
		"path", path,
		"file_type", doc.FileType,
		"elements", len(doc.Elements),
		"duration", time.Since(start),
	)
	return nil
}

// Run consumes the queue until ctx is cancelled.
func (i *Ingester) Run(ctx context.Context) {
	i.q.Run(ctx, i.cfg.Workers, func(ctx context.Context, job *queue.Job) error {
		task, err := job.Task()
		if err != nil {
			// Undecodable payloads would loop forever; drop them.
			i.logger.Error("dropping malformed job", "id", job.ID, "error", err)
			return nil
		}
		return i.Process(ctx, task.Path)
	})
}
