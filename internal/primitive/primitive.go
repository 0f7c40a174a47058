// Package primitive provides the per-processor serialization primitive:
// a mutex whose acquisition can be interrupted via a context.Context, so
// an interrupted get() can return without incrementing the refcount or
// mutating state.
package primitive

import "context"

// Primitive is a binary semaphore supporting interruptible Lock.
type Primitive chan struct{}

// New returns an unlocked Primitive.
func New() Primitive {
	p := make(Primitive, 1)
	p <- struct{}{}
	return p
}

// Lock blocks until the primitive is acquired or ctx is done, whichever
// happens first. On ctx cancellation it returns ctx.Err() without having
// acquired the primitive.
func (p Primitive) Lock(ctx context.Context) error {
	select {
	case <-p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock releases the primitive. It must only be called by the goroutine
// that last acquired it via Lock.
func (p Primitive) Unlock() {
	p <- struct{}{}
}
