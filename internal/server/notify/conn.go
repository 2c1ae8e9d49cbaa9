package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/google/uuid"
)

// Conn is one live session channel of a user. The bus writes to its bounded
// queue; the transport drains it with Events until Done is closed.
type Conn struct {
	ID     string
	UserID string

	queue     chan models.Event
	done      chan struct{}
	closeOnce sync.Once
	lastSeen  atomic.Int64
}

func newConn(userID string, size int, now time.Time) *Conn {
	c := &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		queue:  make(chan models.Event, size),
		done:   make(chan struct{}),
	}
	c.lastSeen.Store(now.UnixNano())
	return c
}

// Events is never closed; select on Done to learn that the connection ended.
func (c *Conn) Events() <-chan models.Event { return c.queue }

func (c *Conn) Done() <-chan struct{} { return c.done }

// Touch records an inbound frame from the client.
func (c *Conn) Touch() { c.TouchAt(time.Now()) }

func (c *Conn) TouchAt(t time.Time) { c.lastSeen.Store(t.UnixNano()) }

func (c *Conn) LastSeen() time.Time { return time.Unix(0, c.lastSeen.Load()) }

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// offer enqueues ev without blocking and reports whether it was accepted.
func (c *Conn) offer(ev models.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.queue <- ev:
		return true
	default:
		return false
	}
}
