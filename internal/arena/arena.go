// Package arena provides a fixed-capacity pool of same-sized cells
// backed by one contiguous slab. Cells are addressed by index, never by
// pointer, so a released handle can at worst read a zeroed or
// repurposed cell rather than freed memory. Acquire and release are
// O(1) via an intrusive free list kept outside the cells themselves.
package arena

import "errors"

// Ref is a handle to a pooled cell.
type Ref uint32

// None is the null handle.
const None Ref = ^Ref(0)

// DefaultCapacity is 1024 cells. Pools never grow; exhaustion is a
// reported error, not a resize.
const DefaultCapacity = 1024

var (
	ErrExhausted  = errors.New("arena: pool exhausted")
	ErrBadRelease = errors.New("arena: release of free or invalid cell")
)

type Pool[T any] struct {
	cells []T
	// next threads the free list through a parallel slice; an in-use
	// cell holds None here, which doubles as a double-free check.
	next []Ref
	free Ref
	used int
}

// New builds a pool of capacity cells. A capacity below one falls back
// to DefaultCapacity.
func New[T any](capacity int) *Pool[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	p := &Pool[T]{
		cells: make([]T, capacity),
		next:  make([]Ref, capacity),
	}
	for i := range p.next {
		p.next[i] = Ref(i + 1)
	}
	p.next[capacity-1] = None
	p.free = 0
	return p
}

// Alloc hands out a zeroed cell.
func (p *Pool[T]) Alloc() (Ref, error) {
	if p.free == None {
		return None, ErrExhausted
	}
	ref := p.free
	p.free = p.next[ref]
	p.next[ref] = None
	p.used++
	return ref, nil
}

// Free returns a cell to the pool and zeroes it so stale reads through
// a leaked handle surface as empty data in tests rather than garbage.
func (p *Pool[T]) Free(ref Ref) error {
	if int(ref) >= len(p.cells) || p.next[ref] != None {
		return ErrBadRelease
	}
	var zero T
	p.cells[ref] = zero
	p.next[ref] = p.free
	p.free = ref
	p.used--
	return nil
}

// At resolves a handle. The handle must be live; the pool does not
// guard reads, only releases.
func (p *Pool[T]) At(ref Ref) *T {
	return &p.cells[ref]
}

func (p *Pool[T]) Used() int { return p.used }

func (p *Pool[T]) Cap() int { return len(p.cells) }
