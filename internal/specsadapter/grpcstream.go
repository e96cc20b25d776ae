package specsadapter

import (
	"context"
	"sync"
	"time"

	"github.com/statsig-io/go-core/internal/observability"
	"github.com/statsig-io/go-core/internal/runtime"
	"github.com/statsig-io/go-core/internal/spectypes"
	"github.com/statsig-io/go-core/internal/statsigerr"
)

// retryState is the adapter's reconnect bookkeeping, kept as a single
// mutex-guarded record rather than three independent atomics, per Design
// Notes §9's preference to avoid transient inconsistent reads by
// observability code that reads all three fields together.
type retryState struct {
	mu         sync.Mutex
	attempts   int
	backoff    time.Duration
	isRetrying bool
}

func (r *retryState) snapshot() (attempts int, backoff time.Duration, isRetrying bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts, r.backoff, r.isRetrying
}

func (r *retryState) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = 0
	r.backoff = 0
	r.isRetrying = false
}

func (r *retryState) recordAttempt(backoff time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	r.backoff = backoff
	r.isRetrying = true
}

const (
	grpcInitialBackoff = 3000 * time.Millisecond
	grpcBackoffMult    = 2.0
	grpcMaxBackoff     = 60_000 * time.Millisecond
	grpcMaxRetries     = 10 * 24 * 60 * 60 // per spec.md §4.4
)

// GrpcStreamAdapter holds a persistent server-streaming connection to
// StatsigService.GetConfigSpec. Ported from statsig_grpc_specs_adapter.rs:
// Start connects and blocks for the first message (bounded by
// InitTimeout), a supervised background task keeps reading, and a
// disconnect triggers exponential backoff (initial 3s, ×2, capped at 60s,
// up to grpcMaxRetries attempts) that resets on the next successful
// message.
type GrpcStreamAdapter struct {
	client      GrpcClient
	target      string
	initTimeout time.Duration
	obs         *observability.Client

	mu       sync.Mutex
	stream   SpecsStream
	listener SpecsUpdateListener
	retry    retryState
}

// GrpcStreamOptions configures a GrpcStreamAdapter.
type GrpcStreamOptions struct {
	Target        string
	InitTimeout   time.Duration // default 3s, per spec.md §6
	Client        GrpcClient    // default: NewGrpcClient
	Observability *observability.Client
}

// NewGrpcStreamAdapter builds a GrpcStreamAdapter from opts.
func NewGrpcStreamAdapter(opts GrpcStreamOptions) *GrpcStreamAdapter {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 3 * time.Second
	}
	if opts.Client == nil {
		opts.Client = NewGrpcClient()
	}
	return &GrpcStreamAdapter{
		client:      opts.Client,
		target:      opts.Target,
		initTimeout: opts.InitTimeout,
		obs:         opts.Observability,
	}
}

// Start connects, opens the stream at the listener's current lcut, and
// blocks for the first message or InitTimeout, whichever comes first.
func (a *GrpcStreamAdapter) Start(ctx context.Context, listener SpecsUpdateListener) error {
	a.listener = listener

	if err := a.client.Connect(ctx, a.target); err != nil {
		return statsigerr.New(statsigerr.CodeGrpcError, err)
	}

	startCtx, cancel := context.WithTimeout(ctx, a.initTimeout)
	defer cancel()

	stream, resp, err := a.openAndRecvFirst(startCtx)
	if err != nil {
		return statsigerr.New(statsigerr.CodeGrpcError, err)
	}

	a.mu.Lock()
	a.stream = stream
	a.mu.Unlock()

	return a.pushMessage(resp)
}

func (a *GrpcStreamAdapter) openAndRecvFirst(ctx context.Context) (SpecsStream, *ConfigSpecResponse, error) {
	info := a.listener.CurrentSpecsInfo()
	var sinceTime int64
	if info.LCUT != nil {
		sinceTime = *info.LCUT
	}

	stream, err := a.client.OpenSpecsStream(ctx, sinceTime)
	if err != nil {
		return nil, nil, err
	}

	type recvResult struct {
		resp *ConfigSpecResponse
		err  error
	}
	resultCh := make(chan recvResult, 1)
	go func() {
		resp, err := stream.Recv()
		resultCh <- recvResult{resp, err}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			return nil, nil, r.err
		}
		return stream, r.resp, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// ScheduleBackgroundSync spawns the supervised read loop (tag
// "specs-grpc-stream") that keeps consuming messages and reconnects with
// backoff on disconnect.
func (a *GrpcStreamAdapter) ScheduleBackgroundSync(ctx context.Context, sup *runtime.Supervisor) error {
	sup.Spawn("specs-grpc-stream", a.readLoop)
	return nil
}

func (a *GrpcStreamAdapter) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		a.mu.Lock()
		stream := a.stream
		a.mu.Unlock()

		if stream == nil {
			var resp *ConfigSpecResponse
			var err error
			stream, resp, err = a.reconnect(ctx)
			if err != nil {
				return // ctx cancelled or retries exhausted
			}
			a.mu.Lock()
			a.stream = stream
			a.mu.Unlock()

			// reconnect's own openAndRecvFirst already consumed one message
			// to confirm the stream is live; push it now instead of
			// discarding it, and reset backoff state on it rather than
			// waiting for the next Recv, per spec.md §4.4's "backoff state
			// resets on the next successful message."
			a.retry.reset()
			_ = a.pushMessage(resp)
			continue
		}

		resp, err := stream.Recv()
		if err != nil {
			a.obs.SyncFailure("grpc-stream")
			a.mu.Lock()
			a.stream = nil
			a.mu.Unlock()
			continue
		}

		a.retry.reset()
		_ = a.pushMessage(resp)
	}
}

// reconnect retries Connect+OpenSpecsStream with exponential backoff until
// it succeeds, ctx is cancelled, or grpcMaxRetries is exceeded. It returns
// the one ConfigSpecResponse openAndRecvFirst consumed to confirm the new
// stream is live, so the caller can push it rather than drop it — mirroring
// Start, which pushes that same first message instead of discarding it.
func (a *GrpcStreamAdapter) reconnect(ctx context.Context) (SpecsStream, *ConfigSpecResponse, error) {
	backoffDur := grpcInitialBackoff
	for attempt := 0; attempt < grpcMaxRetries; attempt++ {
		a.client.Reset()
		if err := a.client.Connect(ctx, a.target); err == nil {
			stream, resp, err := a.openAndRecvFirst(ctx)
			if err == nil {
				return stream, resp, nil
			}
		}
		a.obs.AdapterRetry("grpc-stream")
		a.retry.recordAttempt(backoffDur)

		select {
		case <-time.After(backoffDur):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}

		backoffDur = time.Duration(float64(backoffDur) * grpcBackoffMult)
		if backoffDur > grpcMaxBackoff {
			backoffDur = grpcMaxBackoff
		}
	}
	return nil, nil, statsigerr.Newf(statsigerr.CodeGrpcError, "exceeded max reconnect attempts")
}

func (a *GrpcStreamAdapter) pushMessage(resp *ConfigSpecResponse) error {
	return a.listener.ApplyUpdate(spectypes.SpecsUpdate{
		Data:       []byte(resp.Spec),
		Source:     spectypes.SourceNetwork,
		ReceivedAt: nowMs(),
	})
}

// Shutdown notifies the read loop (via the supervisor's own context
// cancellation; the caller is expected to have already called
// Supervisor.Shutdown or let ctx expire) and releases the connection.
func (a *GrpcStreamAdapter) Shutdown(ctx context.Context, timeout time.Duration) error {
	a.client.Reset()
	return nil
}

// RetryState exposes the adapter's reconnect bookkeeping for observability
// and tests.
func (a *GrpcStreamAdapter) RetryState() (attempts int, backoff time.Duration, isRetrying bool) {
	return a.retry.snapshot()
}
