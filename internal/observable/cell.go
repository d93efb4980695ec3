// Package observable provides a value cell that pushes every change to its
// registered listeners.
package observable

import "sync"

// Cell holds a value of type T and notifies listeners synchronously on Set.
// Listeners run on the caller's goroutine after the lock is released, so a
// listener may read the cell or even Set it again.
type Cell[T any] struct {
	mu        sync.Mutex
	value     T
	nextID    int
	listeners map[int]func(T)
	order     []int
}

// NewCell returns a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, listeners: make(map[int]func(T))}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores v and notifies every listener in subscription order.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	fns := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn and immediately calls it with the current value,
// mirroring a behaviour subject. The returned func unsubscribes.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.order = append(c.order, id)
	current := c.value
	c.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
			for i, v := range c.order {
				if v == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (c *Cell[T]) snapshotLocked() []func(T) {
	fns := make([]func(T), 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.listeners[id])
	}
	return fns
}
