package http

import (
	"errors"
	"sync"

	"github.com/vovakirdan/huddle-server/internal/proto"
)

const outboundQueueSize = 64

var (
	errConnClosed = errors.New("connection closed")
	errQueueFull  = errors.New("outbound queue full")
)

// wsConn is the registry-facing side of one websocket. Send never blocks:
// a full queue closes the connection instead of stalling the caller.
type wsConn struct {
	id  string
	out chan proto.Outbound

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newWSConn(id string) *wsConn {
	return &wsConn{
		id:   id,
		out:  make(chan proto.Outbound, outboundQueueSize),
		done: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(msg proto.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.out <- msg:
		return nil
	default:
		c.closeLocked()
		return errQueueFull
	}
}

func (c *wsConn) close() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

func (c *wsConn) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
