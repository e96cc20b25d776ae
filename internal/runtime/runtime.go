// Package runtime owns the background-task registry every adapter, the
// event flusher, and the TTL resetter run on: tagged spawn, grouped await,
// and unconditional, cooperative shutdown.
//
// Grounded on original_source/statsig-rust/src/statsig_runtime.rs's
// StatsigRuntime (spawn/await_tasks_with_tag/await_join_handle/shutdown
// contract) and the teacher's internal/scheduler's slog-logged,
// context-driven goroutine loop. Tokio's hard task abort has no Go
// equivalent; cancellation here is cooperative via context.Context, the
// idiomatic substitute, and callers are expected to select on ctx.Done().
package runtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/statsig-io/go-core/internal/statsigerr"
)

// TaskFunc is the work a spawned task performs. ctx is cancelled when
// Shutdown is called; well-behaved tasks select on ctx.Done() at every
// suspension point, per spec.md §5.
type TaskFunc func(ctx context.Context)

type taskEntry struct {
	tag    string
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor is the process-lifetime owner of every background task
// spawned by the specs adapters, the event logger, and the facade's own
// housekeeping. The zero value is not usable; construct with New.
type Supervisor struct {
	logger *slog.Logger

	mu     sync.Mutex
	tasks  map[uint64]*taskEntry
	nextID atomic.Uint64

	rootCtx    context.Context
	rootCancel context.CancelFunc
	isShutdown atomic.Bool
}

// New builds a Supervisor. logger may be nil, in which case a discard
// logger is used.
func New(logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		logger:     logger,
		tasks:      make(map[uint64]*taskEntry),
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Spawn launches f on a new goroutine tagged tag and returns an opaque task
// id. A no-op once Shutdown has been called, per spec.md §4.6.
func (s *Supervisor) Spawn(tag string, f TaskFunc) uint64 {
	if s.isShutdown.Load() {
		return 0
	}

	taskCtx, cancel := context.WithCancel(s.rootCtx)
	id := s.nextID.Add(1)
	entry := &taskEntry{tag: tag, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.tasks[id] = entry
	s.mu.Unlock()

	s.logger.Debug("spawning task", "tag", tag, "id", id)
	go func() {
		defer close(entry.done)
		defer s.remove(id)
		f(taskCtx)
	}()
	return id
}

func (s *Supervisor) remove(id uint64) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

// AwaitTasksWithTag blocks until every currently-registered task carrying
// tag has completed. Tasks spawned after this call is made are not waited
// on, matching the reference's snapshot-then-join semantics.
func (s *Supervisor) AwaitTasksWithTag(ctx context.Context, tag string) error {
	s.mu.Lock()
	var dones []chan struct{}
	for _, e := range s.tasks {
		if e.tag == tag {
			dones = append(dones, e.done)
		}
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range dones {
		d := d
		g.Go(func() error {
			select {
			case <-d:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return statsigerr.New(statsigerr.CodeShutdownTimeout, err)
	}
	return nil
}

// AwaitTask blocks until the task named by id completes.
func (s *Supervisor) AwaitTask(ctx context.Context, id uint64) error {
	s.mu.Lock()
	entry, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		return statsigerr.New(statsigerr.CodeThreadFailure, errors.New("no running task found for id"))
	}

	select {
	case <-entry.done:
		return nil
	case <-ctx.Done():
		return statsigerr.New(statsigerr.CodeShutdownTimeout, ctx.Err())
	}
}

// Shutdown cancels every outstanding task's context, marks the supervisor
// closed (further Spawn calls are no-ops), and returns immediately without
// waiting for tasks to observe cancellation — callers that need to wait
// should follow with ShutdownAndAwait or AwaitTasksWithTag.
func (s *Supervisor) Shutdown() {
	s.isShutdown.Store(true)
	s.rootCancel()
}

// ShutdownAndAwait cancels every task and waits up to timeout for them to
// exit, returning a ShutdownTimeout error if any are still running when the
// deadline passes. GetNumActiveTasks() == 0 afterward iff it returns nil,
// per spec.md §8's quantified shutdown property.
func (s *Supervisor) ShutdownAndAwait(timeout time.Duration) error {
	s.Shutdown()

	s.mu.Lock()
	dones := make([]chan struct{}, 0, len(s.tasks))
	for _, e := range s.tasks {
		dones = append(dones, e.done)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range dones {
		d := d
		g.Go(func() error {
			select {
			case <-d:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return statsigerr.New(statsigerr.CodeShutdownTimeout, err)
	}
	return nil
}

// GetNumActiveTasks reports the number of tasks currently registered,
// for observability (spec.md §4.6).
func (s *Supervisor) GetNumActiveTasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// IsShutdown reports whether Shutdown has been called.
func (s *Supervisor) IsShutdown() bool {
	return s.isShutdown.Load()
}
