package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(opts Options) *Bus {
	return NewBus(NewRegistry(), opts, nil, metrics.New(prometheus.NewRegistry()))
}

func recv(t *testing.T, c *Conn) models.Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return models.Event{}
	}
}

func TestPublish_FansOutToEveryConnection(t *testing.T) {
	b := newTestBus(Options{})
	phone := b.Register("alice")
	laptop := b.Register("alice")
	other := b.Register("bob")

	n := b.Publish("alice", models.EventFileUploaded, map[string]string{"file_id": "f1"})
	assert.Equal(t, 2, n)

	for _, c := range []*Conn{phone, laptop} {
		ev := recv(t, c)
		assert.Equal(t, models.EventFileUploaded, ev.Type)
		assert.Equal(t, "alice", ev.UserID)
	}
	assert.Empty(t, other.Events())
}

func TestPublish_NoConnectionsIsSilent(t *testing.T) {
	b := newTestBus(Options{})

	assert.NotPanics(t, func() {
		assert.Equal(t, 0, b.Publish("nobody", models.EventFileDeleted, nil))
	})

	c := b.Register("nobody")
	assert.Empty(t, c.Events(), "events published before registration are not replayed")
}

func TestPublish_SlowConnectionDoesNotBlockOthers(t *testing.T) {
	b := newTestBus(Options{QueueSize: 1})
	slow := b.Register("alice")
	fast := b.Register("alice")

	assert.Equal(t, 2, b.Publish("alice", "e1", nil))
	<-fast.Events()

	done := make(chan int)
	go func() { done <- b.Publish("alice", "e2", nil) }()

	select {
	case n := <-done:
		assert.Equal(t, 1, n, "only the drained connection accepts the second frame")
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full queue")
	}

	assert.Equal(t, "e2", recv(t, fast).Type)
	assert.Equal(t, "e1", recv(t, slow).Type)
}

func TestUnregister_Idempotent(t *testing.T) {
	b := newTestBus(Options{})
	c := b.Register("alice")
	require.Equal(t, 1, b.ConnectionCount("alice"))

	b.Unregister(c)
	b.Unregister(c)
	b.Unregister(nil)

	assert.Equal(t, 0, b.ConnectionCount("alice"))
	select {
	case <-c.Done():
	default:
		t.Fatal("connection must be closed")
	}
	assert.Equal(t, 0, b.Publish("alice", "e", nil))
}

func TestSweep_ReapsSilentConnections(t *testing.T) {
	b := newTestBus(Options{PingInterval: time.Second, PingTimeout: 3 * time.Second})
	now := time.Now()
	b.now = func() time.Time { return now }

	stale := b.Register("alice")
	live := b.Register("alice")

	now = now.Add(5 * time.Second)
	live.TouchAt(now.Add(-time.Second))

	b.sweep(context.Background())

	assert.Equal(t, 1, b.ConnectionCount("alice"))
	select {
	case <-stale.Done():
	default:
		t.Fatal("stale connection must be closed")
	}
	assert.Equal(t, models.EventPing, recv(t, live).Type)
}

func TestRun_StopsAndClosesOnCancel(t *testing.T) {
	b := newTestBus(Options{PingInterval: 10 * time.Millisecond})
	c := b.Register("alice")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	assert.Equal(t, models.EventPing, recv(t, c).Type)
	c.Touch()
	cancel()

	require.NoError(t, <-errCh)
	<-c.Done()
	assert.Equal(t, 0, b.ConnectionCount(""))

	late := b.Register("alice")
	<-late.Done()
	assert.Equal(t, 0, b.ConnectionCount(""))
}

func TestBus_ConcurrentRegisterPublish(t *testing.T) {
	b := newTestBus(Options{QueueSize: 4})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := b.Register("alice")
			b.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			b.Publish("alice", "e", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, b.ConnectionCount("alice"))
}
