package eventlogger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/statsig-io/go-core/internal/spectypes"
)

type fakeClient struct {
	mu     sync.Mutex
	batches [][]spectypes.StatsigEvent
	failN  int
}

func (f *fakeClient) PostEvents(ctx context.Context, events []spectypes.StatsigEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return errors.New("simulated failure")
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakeClient) totalEvents() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func exposureEvent(gate, ruleID string) spectypes.StatsigEvent {
	return spectypes.StatsigEvent{
		EventName: "statsig::gate_exposure",
		Metadata:  map[string]any{"gate": gate, "ruleID": ruleID, "value": "true"},
	}
}

func TestLogger_EnqueueAndFlush(t *testing.T) {
	client := &fakeClient{}
	l := New(client, Options{})

	l.Enqueue(exposureEvent("g1", "rule1"), "user1")
	require.Equal(t, 1, l.QueueLen())

	require.NoError(t, l.Flush(context.Background()))
	require.Equal(t, 0, l.QueueLen())
	require.Equal(t, 1, client.totalEvents())
}

func TestLogger_DedupSuppressesDuplicateWithinTTL(t *testing.T) {
	client := &fakeClient{}
	l := New(client, Options{})

	for i := 0; i < 5; i++ {
		l.Enqueue(exposureEvent("g1", "rule1"), "user1")
	}
	require.Equal(t, 1, l.QueueLen(), "only the first of N identical exposures should be enqueued")
}

func TestLogger_DedupResetAllowsReLogging(t *testing.T) {
	client := &fakeClient{}
	l := New(client, Options{})

	l.Enqueue(exposureEvent("g1", "rule1"), "user1")
	require.Equal(t, 1, l.QueueLen())

	l.dedup.Reset()
	l.Enqueue(exposureEvent("g1", "rule1"), "user1")
	require.Equal(t, 2, l.QueueLen())
}

func TestLogger_SizeThresholdFlushDrainsFullQueue(t *testing.T) {
	client := &fakeClient{}
	l := New(client, Options{MaxQueueSize: 2})

	l.Enqueue(exposureEvent("g1", "r1"), "u1")
	l.Enqueue(exposureEvent("g2", "r2"), "u1")
	// Queue is now at threshold and an async flush has been triggered; wait
	// briefly for it to drain before asserting no further growth.
	require.Eventually(t, func() bool { return l.QueueLen() == 0 }, time.Second, time.Millisecond)

	l.Enqueue(exposureEvent("g3", "r3"), "u1")
	require.LessOrEqual(t, l.QueueLen(), 1)
}

func TestLogger_FlushRetriesThenDropsOnExhaustion(t *testing.T) {
	client := &fakeClient{failN: 100}
	l := New(client, Options{MaxFlushRetries: 2})
	l.Enqueue(exposureEvent("g1", "r1"), "u1")

	err := l.Flush(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, l.QueueLen(), "batch is dropped after retries are exhausted")
}

func TestLogger_ShutdownFreezesDedupSet(t *testing.T) {
	client := &fakeClient{}
	l := New(client, Options{})

	require.NoError(t, l.Shutdown(context.Background(), time.Second))

	l.dedup.Reset()
	require.True(t, l.dedup.frozen)
}

func TestUserHash_StableForSameUser(t *testing.T) {
	u := &spectypes.User{UserID: "u1"}
	require.Equal(t, UserHash(u), UserHash(u))
	require.NotEqual(t, UserHash(u), UserHash(&spectypes.User{UserID: "u2"}))
}
