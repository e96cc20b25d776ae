package specsadapter

import (
	"context"
	"sync"
	"time"

	"github.com/statsig-io/go-core/internal/runtime"
	"github.com/statsig-io/go-core/internal/spectypes"
)

// BootstrapAdapter holds a raw payload string in memory and pushes it once
// on Start. Ported directly from statsig_bootstrap_specs_adapter.rs:
// ScheduleBackgroundSync is a no-op, and SetData lets a caller replace the
// payload and re-push it (e.g. a file-watcher wrapper, out of scope here).
type BootstrapAdapter struct {
	mu       sync.Mutex
	data     []byte
	listener SpecsUpdateListener
}

// NewBootstrapAdapter builds a BootstrapAdapter seeded with data.
func NewBootstrapAdapter(data []byte) *BootstrapAdapter {
	return &BootstrapAdapter{data: data}
}

// Start pushes one SpecsUpdate{Source: Bootstrap} to listener immediately.
func (a *BootstrapAdapter) Start(ctx context.Context, listener SpecsUpdateListener) error {
	a.mu.Lock()
	a.listener = listener
	data := a.data
	a.mu.Unlock()

	return listener.ApplyUpdate(spectypes.SpecsUpdate{
		Data:       data,
		Source:     spectypes.SourceBootstrap,
		ReceivedAt: nowMs(),
	})
}

// ScheduleBackgroundSync is a no-op: a bootstrap payload never refreshes
// itself.
func (a *BootstrapAdapter) ScheduleBackgroundSync(ctx context.Context, sup *runtime.Supervisor) error {
	return nil
}

// Shutdown is a no-op: there is no connection or task to release.
func (a *BootstrapAdapter) Shutdown(ctx context.Context, timeout time.Duration) error {
	return nil
}

// SetData replaces the held payload and re-pushes it to the listener
// registered by Start, if any.
func (a *BootstrapAdapter) SetData(data []byte) error {
	a.mu.Lock()
	a.data = data
	listener := a.listener
	a.mu.Unlock()

	if listener == nil {
		return nil
	}
	return listener.ApplyUpdate(spectypes.SpecsUpdate{
		Data:       data,
		Source:     spectypes.SourceBootstrap,
		ReceivedAt: nowMs(),
	})
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
