// Package specsadapter implements the three SpecsAdapter backends named in
// spec.md §4.4: an in-memory bootstrap payload, an interval HTTP poller, and a
// persistent gRPC stream. All three push SpecsUpdate messages to a shared
// SpecsUpdateListener (specstore.Store in production) and share nothing
// with each other — precedence between sources is resolved entirely inside
// SpecStore.ApplyUpdate's monotonic-lcut rule, per spec.md §4.4.
package specsadapter

import (
	"context"
	"time"

	"github.com/statsig-io/go-core/internal/runtime"
	"github.com/statsig-io/go-core/internal/spectypes"
)

// SpecsUpdateListener receives pushed updates. specstore.Store implements
// this; tests substitute a recorder.
type SpecsUpdateListener interface {
	ApplyUpdate(update spectypes.SpecsUpdate) error
	CurrentSpecsInfo() spectypes.SpecsInfo
}

// SpecsAdapter is the contract every source backend satisfies, per
// spec.md §4.4.
type SpecsAdapter interface {
	// Start must surface at least one update (or a startup error) to
	// listener before returning, bounded by the context's deadline
	// (init_timeout_ms).
	Start(ctx context.Context, listener SpecsUpdateListener) error
	// ScheduleBackgroundSync spawns whatever supervised background task
	// keeps the listener refreshed after Start returns.
	ScheduleBackgroundSync(ctx context.Context, sup *runtime.Supervisor) error
	// Shutdown releases any adapter-held resources, bounded by timeout.
	// The background task itself stops when the supervisor cancels it.
	Shutdown(ctx context.Context, timeout time.Duration) error
}
