// Package notify fans domain events out to every live connection of a user.
// Delivery is best effort: nothing is persisted, a user without connections
// simply misses the event, and a full connection queue drops the frame for
// that connection only.
package notify

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type Options struct {
	QueueSize    int
	PingInterval time.Duration
	PingTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 3 * o.PingInterval
	}
	return o
}

type Bus struct {
	registry *Registry
	opts     Options
	log      logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewBus(registry *Registry, opts Options, log logging.Logger, m *metrics.Metrics) *Bus {
	if log == nil {
		log = logging.Nop()
	}
	return &Bus{
		registry: registry,
		opts:     opts.withDefaults(),
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Register adds a new connection for userID. After Close the returned
// connection is already done.
func (b *Bus) Register(userID string) *Conn {
	c := newConn(userID, b.opts.QueueSize, b.now())
	if !b.registry.add(c) {
		c.close()
		return c
	}
	b.metrics.ConnectionOpened()
	b.log.Debug(context.Background(), "connection registered", "user_id", userID, "conn_id", c.ID)
	return c
}

// Unregister removes c and closes it. Calling it again is a no-op.
func (b *Bus) Unregister(c *Conn) {
	if c == nil {
		return
	}
	removed := b.registry.remove(c)
	c.close()
	if removed {
		b.metrics.ConnectionClosed()
		b.log.Debug(context.Background(), "connection unregistered", "user_id", c.UserID, "conn_id", c.ID)
	}
}

// Publish enqueues one event to every connection of userID without blocking
// and returns how many accepted it.
func (b *Bus) Publish(userID, eventType string, payload any) int {
	ev := models.NewEvent(userID, eventType, payload)
	ev.At = b.now().UTC()
	return b.deliver(b.registry.forUser(userID), ev)
}

func (b *Bus) deliver(conns []*Conn, ev models.Event) int {
	delivered := 0
	for _, c := range conns {
		if c.offer(ev) {
			delivered++
			b.metrics.EventDelivered()
			continue
		}
		b.metrics.EventDropped()
		b.log.Warn(context.Background(), "notification dropped",
			"user_id", c.UserID, "conn_id", c.ID, "type", ev.Type)
	}
	return delivered
}

// Run pings and reaps connections until ctx is done, then closes the bus.
func (b *Bus) Run(ctx context.Context) error {
	t := time.NewTicker(b.opts.PingInterval)
	defer t.Stop()
	defer b.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			b.sweep(ctx)
		}
	}
}

// sweep unregisters connections silent for longer than PingTimeout and
// pings the rest.
func (b *Bus) sweep(ctx context.Context) {
	now := b.now()
	for _, c := range b.registry.all() {
		if now.Sub(c.LastSeen()) > b.opts.PingTimeout {
			b.log.Info(ctx, "connection timed out", "user_id", c.UserID, "conn_id", c.ID)
			b.Unregister(c)
			continue
		}
		c.offer(models.Event{Type: models.EventPing, UserID: c.UserID, At: now.UTC()})
	}
}

// Close unregisters every connection. Later registrations are refused.
func (b *Bus) Close() {
	for _, c := range b.registry.drain() {
		c.close()
		b.metrics.ConnectionClosed()
	}
}

func (b *Bus) ConnectionCount(userID string) int {
	return b.registry.Count(userID)
}
