// Package events implements the pool's event taxonomy as a typed sum type
// rather than stringly-typed event names: each Kind pins down exactly which
// Event fields are meaningful, and the pool reference travels explicitly in
// the payload instead of relying on a closure's ambient receiver.
package events

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgvanniekerk/pgworker/job"
)

// Kind enumerates the events a Bus can carry.
type Kind int

const (
	PoolCreate Kind = iota
	PoolListenConnecting
	PoolListenSuccess
	PoolListenError
	PoolRelease
	PoolGracefulShutdown
	PoolGracefulShutdownWorkerError
	PoolGracefulShutdownComplete
	PoolGracefulShutdownError
	PoolForcefulShutdown
	PoolForcefulShutdownComplete
	PoolForcefulShutdownError
	ResetLockedStarted
	ResetLockedSuccess
	ResetLockedFailure
)

// String renders a Kind for logging.
func (k Kind) String() string {
	switch k {
	case PoolCreate:
		return "pool:create"
	case PoolListenConnecting:
		return "pool:listen:connecting"
	case PoolListenSuccess:
		return "pool:listen:success"
	case PoolListenError:
		return "pool:listen:error"
	case PoolRelease:
		return "pool:release"
	case PoolGracefulShutdown:
		return "pool:gracefulShutdown"
	case PoolGracefulShutdownWorkerError:
		return "pool:gracefulShutdown:workerError"
	case PoolGracefulShutdownComplete:
		return "pool:gracefulShutdown:complete"
	case PoolGracefulShutdownError:
		return "pool:gracefulShutdown:error"
	case PoolForcefulShutdown:
		return "pool:forcefulShutdown"
	case PoolForcefulShutdownComplete:
		return "pool:forcefulShutdown:complete"
	case PoolForcefulShutdownError:
		return "pool:forcefulShutdown:error"
	case ResetLockedStarted:
		return "resetLocked:started"
	case ResetLockedSuccess:
		return "resetLocked:success"
	case ResetLockedFailure:
		return "resetLocked:failure"
	default:
		return "unknown"
	}
}

// Event carries one occurrence from the taxonomy above. Only the fields
// relevant to Kind are populated; the rest are zero values.
type Event struct {
	Kind Kind

	// Pool identifies the emitting pool. Passed explicitly rather than
	// captured by a closure, per the design note about undefined `this`
	// in the original's arrow-function event sites.
	Pool any

	Attempts int
	Client   *pgxpool.Conn
	Error    error
	Message  string
	Job      *job.Job

	// Delay is the next reset-locked tick's delay, or nil if no further
	// tick was scheduled.
	Delay *time.Duration
}

// Sink receives events emitted on a Bus.
type Sink func(Event)

// Bus is a simple synchronous fan-out over subscribed Sinks.
type Bus struct {
	mu   chan struct{} // 1-buffered mutex, acquired/released as a slot
	subs map[int]Sink
	next int
}

// NewBus returns an empty, ready-to-use Bus.
func NewBus() *Bus {
	b := &Bus{
		mu:   make(chan struct{}, 1),
		subs: make(map[int]Sink),
	}
	b.mu <- struct{}{}
	return b
}

// Subscribe registers sink and returns a function that removes it.
func (b *Bus) Subscribe(sink Sink) (unsubscribe func()) {
	<-b.mu
	id := b.next
	b.next++
	b.subs[id] = sink
	b.mu <- struct{}{}

	return func() {
		<-b.mu
		delete(b.subs, id)
		b.mu <- struct{}{}
	}
}

// Emit fans e out to every subscribed Sink synchronously. Delivery order
// across sinks is not guaranteed.
func (b *Bus) Emit(e Event) {
	<-b.mu
	sinks := make([]Sink, 0, len(b.subs))
	for _, s := range b.subs {
		sinks = append(sinks, s)
	}
	b.mu <- struct{}{}

	for _, s := range sinks {
		s(e)
	}
}
