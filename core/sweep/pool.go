package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned by Acquire once the pool is closed.
var ErrPoolClosed = errors.New("slot pool closed")

// SlotPool hands out display slots 1..W. At most W slots are held at any
// time and a slot is never held twice.
type SlotPool struct {
	free chan int
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	held map[int]bool
}

// NewSlotPool returns a pool seeded with slots 1..w.
func NewSlotPool(w int) (*SlotPool, error) {
	if w < 1 {
		return nil, fmt.Errorf("slot pool size %d < 1", w)
	}
	p := &SlotPool{
		free: make(chan int, w),
		done: make(chan struct{}),
		held: make(map[int]bool, w),
	}
	for s := 1; s <= w; s++ {
		p.free <- s
	}
	return p, nil
}

// Size returns W.
func (p *SlotPool) Size() int { return cap(p.free) }

// Acquire blocks until a slot is free, ctx is done or the pool is closed.
// A closed pool never hands out a slot.
func (p *SlotPool) Acquire(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	select {
	case <-p.done:
		return 0, ErrPoolClosed
	default:
	}
	select {
	case s := <-p.free:
		select {
		case <-p.done:
			// closed while waiting; give the slot back untouched
			p.free <- s
			return 0, ErrPoolClosed
		default:
		}
		p.mu.Lock()
		p.held[s] = true
		p.mu.Unlock()
		return s, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-p.done:
		return 0, ErrPoolClosed
	}
}

// Release returns slot to the pool and wakes one waiter. Releasing a slot
// that is not held is a no-op and reports false.
func (p *SlotPool) Release(slot int) bool {
	p.mu.Lock()
	if !p.held[slot] {
		p.mu.Unlock()
		return false
	}
	delete(p.held, slot)
	p.mu.Unlock()
	// capacity is W and the slot was held, so this never blocks
	p.free <- slot
	return true
}

// InUse returns the number of held slots.
func (p *SlotPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.held)
}

// Close wakes every blocked Acquire with ErrPoolClosed.
func (p *SlotPool) Close() {
	p.once.Do(func() { close(p.done) })
}
