// Package eventlogger dedups, batches, and flushes exposure and custom
// events: a bounded FIFO drained by a periodic and a size-threshold
// flusher, POSTing batches to the ingestion endpoint with bounded retry,
// and never blocking the evaluation path that enqueues into it.
//
// Grounded on the teacher's internal/scheduler.Scheduler (the
// ticker-per-job loop shape, generalized here onto runtime.Supervisor-owned
// tasks) and on original_source/statsig-rust's hashset_with_ttl_tests.rs
// for the dedup semantics in ttlset.go.
package eventlogger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/statsig-io/go-core/internal/hashing"
	"github.com/statsig-io/go-core/internal/observability"
	"github.com/statsig-io/go-core/internal/runtime"
	"github.com/statsig-io/go-core/internal/spectypes"
)

// EventsClient delivers a batch of events to the ingestion endpoint.
// The default implementation is an HTTP POST to {log_event_url}/log_event;
// tests substitute a fake.
type EventsClient interface {
	PostEvents(ctx context.Context, events []spectypes.StatsigEvent) error
}

// Options configures a Logger. Zero values fall back to spec.md §6's
// documented defaults.
type Options struct {
	MaxQueueSize       int
	FlushInterval      time.Duration
	DedupTTL           time.Duration
	TTLResetInterval   time.Duration
	MaxFlushRetries    uint64
	Observability      *observability.Client
	Logger             *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxQueueSize <= 0 {
		o.MaxQueueSize = 1000
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 60 * time.Second
	}
	if o.DedupTTL <= 0 {
		o.DedupTTL = 60 * time.Second
	}
	if o.TTLResetInterval <= 0 {
		o.TTLResetInterval = o.DedupTTL
	}
	if o.MaxFlushRetries == 0 {
		o.MaxFlushRetries = 3
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return o
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Logger is the process-lifetime owner of the exposure/event queue.
type Logger struct {
	client EventsClient
	opts   Options
	dedup  *ttlSet

	mu       sync.Mutex
	queue    []spectypes.StatsigEvent
	started  bool
	flushing bool
}

// New builds a Logger that POSTs batches through client.
func New(client EventsClient, opts Options) *Logger {
	return &Logger{
		client: client,
		opts:   opts.withDefaults(),
		dedup:  newTTLSet(),
	}
}

// Start spawns the periodic flusher and TTL resetter on sup, tagged
// "event-logger-flush" and "event-logger-ttl-reset" per spec.md §4.6.
func (l *Logger) Start(sup *runtime.Supervisor) {
	l.mu.Lock()
	l.started = true
	l.mu.Unlock()

	sup.Spawn("event-logger-flush", func(ctx context.Context) {
		ticker := time.NewTicker(l.opts.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := l.Flush(ctx); err != nil {
					l.opts.Logger.Warn("periodic event flush failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	})

	sup.Spawn("event-logger-ttl-reset", func(ctx context.Context) {
		l.dedup.runResetLoop(ctx, l.opts.TTLResetInterval)
	})
}

// Enqueue adds event to the queue, deduplicating exposures seen within the
// TTL window and dropping silently (incrementing a counter) when the queue
// is full. Never blocks — the hot evaluation path calls this directly.
func (l *Logger) Enqueue(event spectypes.StatsigEvent, userHash string) {
	if key, dedupable := event.DedupKey(userHash); dedupable {
		if l.dedup.SeenRecently(key) {
			l.opts.Observability.EventDeduped()
			return
		}
	}

	l.mu.Lock()
	if len(l.queue) >= l.opts.MaxQueueSize {
		l.mu.Unlock()
		l.opts.Observability.EventDropped("queue_full")
		return
	}
	l.queue = append(l.queue, event)
	atThreshold := len(l.queue) >= l.opts.MaxQueueSize && !l.flushing
	if atThreshold {
		l.flushing = true
	}
	l.mu.Unlock()

	if atThreshold {
		// Size-threshold flush: fire asynchronously so Enqueue itself never
		// blocks on network I/O. Only one such flush runs at a time; the
		// periodic flusher is the fallback if this one is already in
		// flight.
		go func() {
			defer func() {
				l.mu.Lock()
				l.flushing = false
				l.mu.Unlock()
			}()
			if err := l.Flush(context.Background()); err != nil {
				l.opts.Logger.Warn("size-threshold event flush failed", "error", err)
			}
		}()
	}
}

// drain empties the queue and returns its contents, preserving enqueue
// order.
func (l *Logger) drain() []spectypes.StatsigEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	batch := l.queue
	l.queue = nil
	return batch
}

// Flush drains the current queue and POSTs it, retrying with exponential
// backoff up to opts.MaxFlushRetries times after the first attempt. On exhaustion the batch is
// dropped and a counter incremented, per spec.md §4.5's backpressure rule
// that the logger must never block or grow without bound.
func (l *Logger) Flush(ctx context.Context) error {
	batch := l.drain()
	if len(batch) == 0 {
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), l.opts.MaxFlushRetries)
	err := backoff.Retry(func() error {
		return l.client.PostEvents(ctx, batch)
	}, backoff.WithContext(bo, ctx))

	if err != nil {
		l.opts.Observability.EventDropped("flush_failed")
		return err
	}
	l.opts.Observability.EventsForwarded(len(batch))
	return nil
}

// Shutdown issues an out-of-band final flush and awaits it or timeout,
// per spec.md §4.5.
func (l *Logger) Shutdown(ctx context.Context, timeout time.Duration) error {
	l.dedup.Freeze()

	flushCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Flush(flushCtx) }()

	select {
	case err := <-done:
		return err
	case <-flushCtx.Done():
		return flushCtx.Err()
	}
}

// QueueLen reports the current queue depth, for observability and tests.
func (l *Logger) QueueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// UserHash computes the stable per-user key DedupKey folds into its tuple:
// the SHA-256 of the user's UserID, or of one of its custom ids (whichever
// the map yields first) when UserID is empty.
func UserHash(u *spectypes.User) string {
	if u == nil {
		return ""
	}
	id := u.UserID
	if id == "" {
		for _, v := range u.CustomIDs {
			id = v
			break
		}
	}
	return hashing.Sha256(id)
}
