package store

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Subscriber is called with the cell value on subscription and after every Set.
type Subscriber[T any] func(T)

// Unsubscriber stops further notifications to a subscriber. Calling it more
// than once is a no-op.
type Unsubscriber func()

// Readable is the read side of a cell, accepted by consumers that never write.
type Readable[T any] interface {
	Get() T
	Subscribe(run Subscriber[T]) Unsubscriber
}

type subscription[T any] struct {
	id     uint64
	run    Subscriber[T]
	active atomic.Bool
}

// pending is one Set waiting to be delivered, with the subscribers that were
// registered when it happened.
type pending[T any] struct {
	value T
	subs  []*subscription[T]
}

// Writable is an observable single-slot cell.
//
// Notifications for a Set are delivered in registration order. A Set or
// Subscribe issued while a notification pass is running is queued behind it,
// so passes never interleave, even across goroutines.
type Writable[T any] struct {
	mu       sync.Mutex
	value    T
	subs     []*subscription[T]
	nextID   uint64
	queue    []pending[T]
	draining bool
}

// New creates a cell holding initial.
func New[T any](initial T) *Writable[T] {
	return &Writable[T]{value: initial}
}

// Get returns the current value
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set replaces the value and notifies subscribers
func (w *Writable[T]) Set(v T) {
	w.mu.Lock()
	w.value = v
	if len(w.subs) > 0 {
		w.queue = append(w.queue, pending[T]{value: v, subs: slices.Clone(w.subs)})
	}
	w.unlockAndDrain()
}

// Update sets the value to fn applied to the current value. It is not atomic
// with respect to writers on other goroutines.
func (w *Writable[T]) Update(fn func(T) T) {
	w.Set(fn(w.Get()))
}

// Subscribe registers run, calls it once with the current value and returns
// the handle that removes it.
//
// The initial call goes through the same queue as Set, so run always sees the
// value at registration first. If a notification pass is already running,
// the initial call is delivered by that pass after the values queued ahead
// of it, and Subscribe may return before run has been called.
func (w *Writable[T]) Subscribe(run Subscriber[T]) Unsubscriber {
	w.mu.Lock()
	w.nextID++
	sub := &subscription[T]{id: w.nextID, run: run}
	sub.active.Store(true)
	w.subs = append(w.subs, sub)
	w.queue = append(w.queue, pending[T]{value: w.value, subs: []*subscription[T]{sub}})
	w.unlockAndDrain()

	return func() {
		if !sub.active.CompareAndSwap(true, false) {
			return
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		w.subs = slices.DeleteFunc(w.subs, func(s *subscription[T]) bool {
			return s.id == sub.id
		})
	}
}

// Subscribers returns the number of active subscriptions
func (w *Writable[T]) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// unlockAndDrain releases w.mu and runs queued passes unless another call
// is already running them.
func (w *Writable[T]) unlockAndDrain() {
	if w.draining {
		w.mu.Unlock()
		return
	}
	w.draining = true
	w.mu.Unlock()

	w.drain()
}

func (w *Writable[T]) drain() {
	defer func() {
		if r := recover(); r != nil {
			// Drop whatever was queued so the cell is not stuck draining.
			w.mu.Lock()
			w.queue = nil
			w.draining = false
			w.mu.Unlock()
			panic(r)
		}
	}()

	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.draining = false
			w.mu.Unlock()
			return
		}
		next := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		for _, sub := range next.subs {
			if sub.active.Load() {
				sub.run(next.value)
			}
		}
	}
}
