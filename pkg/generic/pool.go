package generic

import "sync"

// Pool is a typed sync.Pool. The zero value has no constructor; build one
// with NewPool.
type Pool[T any] struct {
	inner sync.Pool
}

func NewPool[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{
		inner: sync.Pool{
			New: func() any {
				return newFn()
			},
		},
	}
}

func (p *Pool[T]) Get() T {
	return p.inner.Get().(T)
}

func (p *Pool[T]) Put(value T) {
	p.inner.Put(value)
}
