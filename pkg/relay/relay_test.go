package relay_test

import (
	"context"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yago-123/punch-relay/pkg/relay"
	"github.com/yago-123/punch-relay/pkg/transport"
)

type fakeTransport struct {
	polls  atomic.Int64
	closed atomic.Bool
	order  *[]string
	mu     *sync.Mutex
}

func (f *fakeTransport) Poll(h transport.Handler) int {
	f.mu.Lock()
	*f.order = append(*f.order, "poll")
	f.mu.Unlock()

	if f.polls.Add(1) == 1 {
		h.HandleIntroductionRequest(netip.MustParseAddrPort("10.0.0.2:4230"), netip.MustParseAddrPort("203.0.113.5:4240"), "shared1")
		return 1
	}
	return 0
}

func (f *fakeTransport) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeCoordinator struct {
	requests atomic.Int64
	sweeps   []time.Time
	order    *[]string
	mu       *sync.Mutex
}

func (f *fakeCoordinator) HandleIntroductionRequest(_, _ netip.AddrPort, _ string) {
	f.requests.Add(1)
}

func (f *fakeCoordinator) HandleUnconnectedMessage(_ netip.AddrPort, _ []byte) {}

func (f *fakeCoordinator) HandleIntroductionSuccess(_ netip.AddrPort, _ string) {}

func (f *fakeCoordinator) Sweep(now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.order = append(*f.order, "sweep")
	f.sweeps = append(f.sweeps, now)
	return 0
}

func newFakes() (*fakeTransport, *fakeCoordinator, func() []string) {
	var (
		mu    sync.Mutex
		order []string
	)
	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), order...)
	}
	return &fakeTransport{order: &order, mu: &mu}, &fakeCoordinator{order: &order, mu: &mu}, snapshot
}

func TestRunPollsThenSweepsUntilCancelled(t *testing.T) {
	t.Parallel()

	tr, coord, order := newFakes()
	r := relay.New(tr, coord, relay.WithTick(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(order()) >= 6 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.True(t, tr.closed.Load())
	assert.Equal(t, int64(1), coord.requests.Load())

	got := order()
	for i, step := range got {
		if i%2 == 0 {
			assert.Equal(t, "poll", step)
		} else {
			assert.Equal(t, "sweep", step)
		}
	}
}

func TestRunSweepsWithClockTime(t *testing.T) {
	t.Parallel()

	tr, coord, order := newFakes()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	r := relay.New(tr, coord, relay.WithClock(mock), relay.WithTick(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(order()) == 2 }, 2*time.Second, time.Millisecond)

	// the mock clock holds the loop until it is advanced
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, order(), 2)

	mock.Add(time.Second)
	assert.Eventually(t, func() bool { return len(order()) >= 4 }, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	coord.mu.Lock()
	defer coord.mu.Unlock()
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), coord.sweeps[0])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), coord.sweeps[1])
}
