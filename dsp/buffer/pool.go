package buffer

import "sync"

// Pool provides sync.Pool-based Block reuse so render loops can obtain
// scratch blocks without allocating once warmed up.
type Pool struct {
	pool sync.Pool
}

// NewPool returns a Pool ready for use.
func NewPool() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return &Block{}
			},
		},
	}
}

// Get returns a zeroed Block with the requested shape.
// Callers must return it via Put when done.
func (p *Pool) Get(channels, frames int) *Block {
	b := p.pool.Get().(*Block)
	b.Resize(channels, frames)
	b.Zero()
	return b
}

// Put returns a Block to the pool for reuse.
// The caller must not use the block after calling Put.
func (p *Pool) Put(b *Block) {
	if b == nil {
		return
	}
	p.pool.Put(b)
}
