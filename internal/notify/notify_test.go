package notify_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/exchange-coordinator/internal/notify"
	"github.com/swapbnb/exchange-coordinator/internal/worker"
)

func newTestInbox(t *testing.T) *notify.Inbox {
	t.Helper()
	in, err := notify.OpenInbox(filepath.Join(t.TempDir(), "inbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { in.Close() })
	return in
}

func TestInboxNewestFirst(t *testing.T) {
	in := newTestInbox(t)
	ctx := context.Background()

	require.NoError(t, in.Deliver(ctx, notify.Event{Kind: notify.KindRequested, ExchangeID: "ex", Recipients: []string{"host"}, Text: "first", At: time.Now()}))
	require.NoError(t, in.Deliver(ctx, notify.Event{Kind: notify.KindCancelled, ExchangeID: "ex", Recipients: []string{"host", "req"}, Text: "second", At: time.Now()}))

	got, err := in.List(ctx, "host", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Text)
	assert.Equal(t, "first", got[1].Text)

	got, err = in.List(ctx, "req", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = in.List(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = in.List(ctx, "host", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type recordingSink struct {
	mu   sync.Mutex
	got  []notify.Event
	fail bool
}

func (s *recordingSink) Deliver(_ context.Context, ev notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.got = append(s.got, ev)
	return nil
}

func TestRelayDeliversOnPool(t *testing.T) {
	pool := worker.NewPool(2, 10)
	sink := &recordingSink{}
	r := notify.NewRelay(pool, sink)

	r.Publish(notify.Event{Kind: notify.KindAccepted, Recipients: []string{"a"}})
	r.Publish(notify.Event{Kind: notify.KindRejected, Recipients: []string{"b"}})
	pool.Stop()

	assert.Len(t, sink.got, 2)
	for _, ev := range sink.got {
		assert.False(t, ev.At.IsZero())
	}
}

func TestRelaySwallowsSinkFailure(t *testing.T) {
	pool := worker.NewPool(1, 10)
	r := notify.NewRelay(pool, &recordingSink{fail: true})
	assert.NotPanics(t, func() { r.Publish(notify.Event{Kind: notify.KindAccepted}) })
	pool.Stop()
}
