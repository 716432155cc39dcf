// Package router dispatches Messages between connected agents: direct
// delivery, broadcast fan-out, and a bounded per-agent outbound queue
// with a drop-oldest-non-terminal backpressure policy.
package router

import (
	"sync"

	"github.com/cloi-dev/hub/internal/hubcore"
)

// terminal message types are never evicted by backpressure; they carry
// a task's final word and are worth more than queue depth.
func terminal(t hubcore.MessageType) bool {
	switch t {
	case hubcore.MessageTaskCompleted, hubcore.MessageCoordinationConsensus:
		return true
	default:
		return false
	}
}

// Outbox is a bounded, mutex-guarded queue of messages awaiting
// delivery to one connection. When full, Push evicts the oldest
// non-terminal entry to make room; if every queued entry is terminal,
// it evicts the oldest entry outright rather than grow unbounded.
type Outbox struct {
	mu       sync.Mutex
	queue    []hubcore.Message
	capacity int
	notify   chan struct{}
	dropped  int
}

// NewOutbox creates an Outbox bounded at capacity. capacity <= 0 is
// treated as 1.
func NewOutbox(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = 1
	}
	return &Outbox{capacity: capacity, notify: make(chan struct{}, 1)}
}

// Push enqueues m, applying the drop-oldest-non-terminal policy if
// the outbox is at capacity.
func (o *Outbox) Push(m hubcore.Message) {
	o.mu.Lock()
	if len(o.queue) >= o.capacity {
		evictIdx := -1
		for i, q := range o.queue {
			if !terminal(q.Type) {
				evictIdx = i
				break
			}
		}
		if evictIdx < 0 {
			evictIdx = 0
		}
		o.queue = append(o.queue[:evictIdx], o.queue[evictIdx+1:]...)
		o.dropped++
	}
	o.queue = append(o.queue, m)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every currently queued message.
func (o *Outbox) Drain() []hubcore.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.queue
	o.queue = nil
	return out
}

// Notify returns the channel signaled after every Push (signals
// coalesce while one is pending); a connection's writer goroutine
// selects on it between Drain calls.
func (o *Outbox) Notify() <-chan struct{} { return o.notify }

// Dropped reports how many messages this outbox has evicted under
// backpressure.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Router owns one Outbox per connected agent plus the shared history
// ring buffer, and applies each connection's Policy before a message
// may be routed on its behalf.
type Router struct {
	mu       sync.RWMutex
	outboxes map[string]*Outbox
	policies map[string]Policy
	history  *History
	capacity int
}

// New creates a Router. outboxCapacity bounds each per-agent queue;
// historyCapacity bounds the shared ring buffer.
func New(outboxCapacity, historyCapacity int) *Router {
	return &Router{
		outboxes: make(map[string]*Outbox),
		policies: make(map[string]Policy),
		history:  NewHistory(historyCapacity),
		capacity: outboxCapacity,
	}
}

// Connect registers identity with the router, creating its outbox if
// absent, and installs policy for it. Calling Connect again for an
// already-connected identity just updates its policy.
func (r *Router) Connect(identity string, policy Policy) *Outbox {
	r.mu.Lock()
	defer r.mu.Unlock()

	ob, ok := r.outboxes[identity]
	if !ok {
		ob = NewOutbox(r.capacity)
		r.outboxes[identity] = ob
	}
	r.policies[identity] = policy
	return ob
}

// Disconnect removes identity's outbox and policy.
func (r *Router) Disconnect(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.outboxes, identity)
	delete(r.policies, identity)
}

// Route validates m against the sender's policy, records it in
// history, and delivers it to its recipient(s): a single outbox for a
// direct address, or every connected outbox but the sender's for
// hubcore.BroadcastTarget. It returns ErrPolicyDenied if the sender's
// policy rejects m.Type, and ErrUnknownRecipient if m.To names no
// connected agent and is not a broadcast.
func (r *Router) Route(m hubcore.Message) error {
	r.mu.RLock()
	policy, hasPolicy := r.policies[m.From]
	r.mu.RUnlock()
	if hasPolicy && !policy.Permits(m.Type) {
		return ErrPolicyDenied
	}

	r.history.Append(m)

	if m.To == hubcore.BroadcastTarget {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for identity, ob := range r.outboxes {
			if identity == m.From {
				continue
			}
			ob.Push(m)
		}
		return nil
	}

	r.mu.RLock()
	ob, ok := r.outboxes[m.To]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownRecipient
	}
	ob.Push(m)
	return nil
}

// History returns the shared message history.
func (r *Router) History() *History { return r.history }

// Connected reports whether identity currently has an outbox.
func (r *Router) Connected(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.outboxes[identity]
	return ok
}
