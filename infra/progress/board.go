// Package progress draws the aggregate scenario counter and one bar per
// worker slot on the terminal.
package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"gopkg.in/cheggaaa/pb.v1"

	"github.com/kilianp07/optses/core/mpc"
)

const idle = "idle"

// Board keeps row 0 for the total counter and rows 1..W for the slots. A
// slot row is reused by whichever scenario currently holds the slot.
type Board struct {
	out   io.Writer
	total *pb.ProgressBar
	slots []*pb.ProgressBar

	mu   sync.Mutex
	pool *pb.Pool

	done, failed atomic.Int64
}

// NewBoard prepares a board for w slots writing to out.
func NewBoard(out io.Writer, w int) *Board {
	b := &Board{out: out, total: newBar(out, "Total simulations")}
	for i := 0; i < w; i++ {
		b.slots = append(b.slots, newBar(out, fmt.Sprintf("slot %d: %s", i+1, idle)))
	}
	return b
}

func newBar(out io.Writer, prefix string) *pb.ProgressBar {
	bar := pb.New(0)
	bar.Output = out
	bar.ShowSpeed = false
	bar.Prefix(prefix)
	return bar
}

// Start sizes the total bar and starts rendering. Rendering is skipped when
// the terminal cannot be driven; counters keep working.
func (b *Board) Start(total int) {
	atomic.StoreInt64(&b.total.Total, int64(total))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool != nil {
		return
	}
	pool := pb.NewPool(append([]*pb.ProgressBar{b.total}, b.slots...)...)
	pool.Output = b.out
	if err := pool.Start(); err != nil {
		return
	}
	b.pool = pool
}

// Track implements mpc.Display.
func (b *Board) Track(slot int, label string, total int) mpc.Tracker {
	if slot < 1 || slot > len(b.slots) {
		return mpc.NopDisplay{}.Track(slot, label, total)
	}
	bar := b.slots[slot-1]
	bar.Set(0)
	atomic.StoreInt64(&bar.Total, int64(total))
	bar.Prefix(fmt.Sprintf("slot %d: %s", slot, label))
	return &tracker{bar: bar, slot: slot}
}

// Done advances the total counter.
func (b *Board) Done(_ string, err error) {
	b.done.Add(1)
	if err != nil {
		b.failed.Add(1)
		b.total.Prefix(fmt.Sprintf("Total simulations (%d failed)", b.failed.Load()))
	}
	b.total.Increment()
}

// Completed returns the finished and failed scenario counts.
func (b *Board) Completed() (done, failed int) {
	return int(b.done.Load()), int(b.failed.Load())
}

// Stop renders the final state and stops the board.
func (b *Board) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool != nil {
		_ = b.pool.Stop()
		b.pool = nil
	}
}

type tracker struct {
	bar  *pb.ProgressBar
	slot int
}

func (t *tracker) Increment() { t.bar.Increment() }

func (t *tracker) Finish() {
	t.bar.Prefix(fmt.Sprintf("slot %d: %s", t.slot, idle))
}
