package events

import (
	"runtime/debug"
	"sync"

	"github.com/pders01/typx/internal/debuglog"
)

// Handler receives published events.
type Handler func(Event)

// Bus is a synchronous publish/subscribe hub. Handlers run on the
// publisher's goroutine in subscription order, so a publisher observes
// every side effect of its event once Publish returns.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Type][]subscription
	log      *debuglog.FieldLogger
}

type subscription struct {
	id int
	fn Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscription),
		log:      debuglog.Component("events"),
	}
}

// Subscribe registers fn for events of type t and returns an unsubscribe func.
func (b *Bus) Subscribe(t Type, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, s := range subs {
			if s.id == id {
				b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every current subscriber of its type. A panicking
// handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[e.Type()]))
	copy(subs, b.handlers[e.Type()])
	b.mu.RUnlock()

	b.log.Debugf("publish %s to %d handlers", e.Type(), len(subs))
	for _, s := range subs {
		b.deliver(s.fn, e)
	}
}

func (b *Bus) deliver(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("handler panic for %s: %v\n%s", e.Type(), r, debug.Stack())
		}
	}()
	fn(e)
}
