package specsadapter

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/statsig-io/go-core/internal/observability"
	"github.com/statsig-io/go-core/internal/runtime"
	"github.com/statsig-io/go-core/internal/spectypes"
)

// HTTPPollAdapter issues one GET on Start (2 internal retries), then
// schedules a ticker that repeats the fetch every SyncInterval using the
// listener's current lcut, per spec.md §4.4. Ported from
// statsig_http_specs_adapter.rs.
type HTTPPollAdapter struct {
	client       NetworkClient
	specsURL     string
	sdkKey       string
	syncInterval time.Duration
	obs          *observability.Client

	listener SpecsUpdateListener
}

// HTTPPollOptions configures an HTTPPollAdapter.
type HTTPPollOptions struct {
	SpecsURL     string
	SDKKey       string
	SyncInterval time.Duration // default 10s, per spec.md §6
	Client       NetworkClient // default: NewHTTPNetworkClient
	Observability *observability.Client
	SDKVersion   string
}

// NewHTTPPollAdapter builds an HTTPPollAdapter from opts.
func NewHTTPPollAdapter(opts HTTPPollOptions) *HTTPPollAdapter {
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = NewHTTPNetworkClient(opts.SDKVersion)
	}
	return &HTTPPollAdapter{
		client:       opts.Client,
		specsURL:     opts.SpecsURL,
		sdkKey:       opts.SDKKey,
		syncInterval: opts.SyncInterval,
		obs:          opts.Observability,
	}
}

// Start issues one fetch (with 2 internal retries on 5xx/network errors)
// and pushes the result to listener before returning.
func (a *HTTPPollAdapter) Start(ctx context.Context, listener SpecsUpdateListener) error {
	a.listener = listener
	return a.fetchAndPush(ctx)
}

// ScheduleBackgroundSync spawns a ticker task (tag "specs-http-poll") that
// repeats the fetch every SyncInterval, cancelled by the supervisor's
// shutdown.
func (a *HTTPPollAdapter) ScheduleBackgroundSync(ctx context.Context, sup *runtime.Supervisor) error {
	sup.Spawn("specs-http-poll", func(taskCtx context.Context) {
		ticker := time.NewTicker(a.syncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := a.fetchAndPush(taskCtx); err != nil {
					a.obs.SyncFailure("http-poll")
				}
			case <-taskCtx.Done():
				return
			}
		}
	})
	return nil
}

// Shutdown is a no-op beyond relying on the supervisor's own cancellation:
// the adapter holds no connection of its own to release.
func (a *HTTPPollAdapter) Shutdown(ctx context.Context, timeout time.Duration) error {
	return nil
}

// fetchAndPush performs one conditional GET (honoring the listener's
// current lcut) and pushes the result, retrying up to 2 times on a
// retryable (5xx/network) failure.
func (a *HTTPPollAdapter) fetchAndPush(ctx context.Context) error {
	info := a.listener.CurrentSpecsInfo()
	var sinceTime int64
	if info.LCUT != nil {
		sinceTime = *info.LCUT
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	var result FetchResult
	err := backoff.Retry(func() error {
		r, fetchErr := a.client.FetchSpecs(ctx, a.specsURL, a.sdkKey, sinceTime)
		if fetchErr != nil {
			var statusErr *StatusError
			if errors.As(fetchErr, &statusErr) && !statusErr.Retryable() {
				return backoff.Permanent(fetchErr)
			}
			a.obs.AdapterRetry("http-poll")
			return fetchErr
		}
		result = r
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return err
	}

	if result.NotModified {
		return a.listener.ApplyUpdate(spectypes.SpecsUpdate{
			Source:     spectypes.SourceNetworkNotModified,
			ReceivedAt: nowMs(),
		})
	}
	return a.listener.ApplyUpdate(spectypes.SpecsUpdate{
		Data:       result.Body,
		Source:     spectypes.SourceNetwork,
		ReceivedAt: nowMs(),
	})
}
