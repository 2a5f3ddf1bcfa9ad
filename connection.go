package flowz

import (
	"fmt"
	"time"
)

// connection is a bounded FIFO between one output port and one input port.
// All fields are guarded by the executor's runtime lock. The waiter channels
// record which component goroutine is parked on which side, so the scheduler
// can wake exactly that goroutine and can report who is blocked on what.
type connection struct {
	src      *OutputPort
	dst      *InputPort
	capacity int

	queue  []*Packet
	closed bool

	sendWaiter chan struct{}
	recvWaiter chan struct{}
}

func (n *connection) id() string {
	return n.src.id() + " -> " + n.dst.id()
}

// send enqueues p, suspending the sender while the queue is at capacity.
// Fails with ErrConnectionClosed once the connection is closed.
func (n *connection) send(c *Component, p *Packet) error {
	e := c.exec
	e.mu.Lock()
	for {
		if n.closed {
			e.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrConnectionClosed, n.id())
		}
		if len(n.queue) < n.capacity {
			n.queue = append(n.queue, p)
			if n.recvWaiter != nil {
				close(n.recvWaiter)
				n.recvWaiter = nil
			}
			e.mu.Unlock()
			return nil
		}
		w := make(chan struct{})
		n.sendWaiter = w
		e.block(c, StateSuspSend, n, false)
		e.mu.Unlock()
		<-w
		e.mu.Lock()
		e.unblock(c)
	}
}

// receive dequeues the next packet, suspending the receiver while the queue
// is empty and the connection open. After close it drains the buffer and
// then reports ErrEndOfStream. A zero deadline waits forever.
func (n *connection) receive(c *Component, deadline time.Time) (*Packet, error) {
	e := c.exec
	e.mu.Lock()
	for {
		if len(n.queue) > 0 {
			p := n.queue[0]
			n.queue = n.queue[1:]
			if n.sendWaiter != nil {
				close(n.sendWaiter)
				n.sendWaiter = nil
			}
			e.mu.Unlock()
			return p, nil
		}
		if n.closed {
			e.mu.Unlock()
			return nil, ErrEndOfStream
		}
		timed := !deadline.IsZero()
		w := make(chan struct{})
		n.recvWaiter = w
		e.block(c, StateSuspRecv, n, timed)
		e.mu.Unlock()
		if timed {
			t := time.NewTimer(time.Until(deadline))
			select {
			case <-w:
				t.Stop()
			case <-t.C:
				e.mu.Lock()
				if n.recvWaiter == w {
					n.recvWaiter = nil
				}
				e.unblock(c)
				e.mu.Unlock()
				return nil, ErrTimeout
			}
		} else {
			<-w
		}
		e.mu.Lock()
		e.unblock(c)
	}
}

// closeLocked closes the connection and wakes both sides. Idempotent.
// Callers hold the runtime lock.
func (n *connection) closeLocked() {
	if n.closed {
		return
	}
	n.closed = true
	if n.sendWaiter != nil {
		close(n.sendWaiter)
		n.sendWaiter = nil
	}
	if n.recvWaiter != nil {
		close(n.recvWaiter)
		n.recvWaiter = nil
	}
}
