// internal/switches/rotary.go
package switches

import (
	"sync"

	"github.com/tamzrod/flash-programmer/internal/hal"
	"github.com/tamzrod/flash-programmer/internal/kernel"
)

// Quadrature decode for the rotary knob. Both phases are watched; each
// edge combines the previous and current phase states and a transition
// table yields -1, 0 or +1 steps. The absolute count and the last delta
// are kept, and a rotary-change message carries each non-zero delta.

// Index is (prevState<<2)|state, each state is (A<<1)|B. Invalid
// transitions (both phases changing at once) count as zero.
var quadStep = [16]int8{
	0, -1, +1, 0,
	+1, 0, 0, -1,
	-1, 0, 0, +1,
	0, +1, -1, 0,
}

type rotary struct {
	k *kernel.Kernel

	a, b hal.EdgePin

	// Each phase pin delivers edges on its own watcher goroutine, so the
	// decode state is shared between them.
	mu    sync.Mutex
	state uint8
	count int32
	delta int16
}

func (r *Router) startRotary() {
	pins := r.brd.Pins()
	re := &rotary{k: r.k, a: pins.RotaryA, b: pins.RotaryB}
	re.state = re.sample()
	re.a.Watch(func(hal.Edge) { re.turn() })
	re.b.Watch(func(hal.Edge) { re.turn() })
	r.rot = re
}

func (re *rotary) sample() uint8 {
	var s uint8
	if re.a.Get() {
		s |= 0x02
	}
	if re.b.Get() {
		s |= 0x01
	}
	return s
}

// turn runs at interrupt level on any phase edge.
func (re *rotary) turn() {
	s := re.sample()
	re.mu.Lock()
	step := quadStep[(re.state<<2)|s]
	re.state = s
	if step != 0 {
		re.count += int32(step)
		re.delta = int16(step)
	}
	re.mu.Unlock()
	if step == 0 {
		return
	}
	msg := kernel.NewMsg(kernel.MsgRotaryChange)
	msg.Data.I16 = int16(step)
	// Discardable: a dropped knob step is better than a halted board.
	re.k.PostNoWait(kernel.CoreHW, msg)
}

// RotaryCount returns the absolute knob position since start.
func (r *Router) RotaryCount() int32 {
	if r.rot == nil {
		return 0
	}
	r.rot.mu.Lock()
	defer r.rot.mu.Unlock()
	return r.rot.count
}

// RotaryDelta returns the step delta carried by the last change.
func (r *Router) RotaryDelta() int16 {
	if r.rot == nil {
		return 0
	}
	r.rot.mu.Lock()
	defer r.rot.mu.Unlock()
	return r.rot.delta
}
