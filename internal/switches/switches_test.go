// internal/switches/switches_test.go
package switches

import (
	"sync"
	"testing"

	"github.com/tamzrod/flash-programmer/internal/board"
	"github.com/tamzrod/flash-programmer/internal/hal/sim"
	"github.com/tamzrod/flash-programmer/internal/kernel"
)

type rig struct {
	k   *kernel.Kernel
	sb  *sim.Board
	r   *Router
	got []kernel.SwitchAction
}

// newRig builds the router over the simulated board and records every
// switch action delivered to the interactive core.
func newRig(t *testing.T) *rig {
	t.Helper()
	sb := sim.NewBoard()
	k := kernel.New(sb.Clock)
	k.Init(false)
	brd := board.New(board.Pins{
		OpPort:    sb.OpPort,
		DataPort:  sb.DataPort,
		DataLatch: sb.DataLatch,
		DataRD:    sb.DataRD,
		DataWR:    sb.DataWR,
		DevicePwr: sb.DevicePwr,
		AttnSw:    sb.AttnSw,
		RotarySw:  sb.RotarySw,
		RotaryA:   sb.RotaryA,
		RotaryB:   sb.RotaryB,
	}, sb.Clock)
	rg := &rig{k: k, sb: sb, r: NewRouter(k, brd)}
	k.AddHandler(kernel.MsgSwitchAction, kernel.CoreUI, func(m *kernel.Msg) {
		rg.got = append(rg.got, m.Data.Switch)
	})
	rg.r.Start()
	return rg
}

// step advances the virtual time by whole ticks, pumping both cores dry
// after each one.
func (rg *rig) step(ticks int) {
	for i := 0; i < ticks; i++ {
		rg.k.Tick()
		for rg.k.PumpOne(kernel.CoreHW) {
		}
		for rg.k.PumpOne(kernel.CoreUI) {
		}
	}
}

func (rg *rig) press(sw kernel.SwitchID) {
	if sw == kernel.SwAttnCmd {
		rg.sb.AttnSw.SetInput(false)
	} else {
		rg.sb.RotarySw.SetInput(false)
	}
}

func (rg *rig) release(sw kernel.SwitchID) {
	if sw == kernel.SwAttnCmd {
		rg.sb.AttnSw.SetInput(true)
	} else {
		rg.sb.RotarySw.SetInput(true)
	}
}

// ---- debounce ----

func TestPressAfterDebounceWindow(t *testing.T) {
	rg := newRig(t)
	rg.press(kernel.SwAttnCmd)
	rg.step(DebounceMS - 1)
	if len(rg.got) != 0 {
		t.Fatalf("action before the window closed: %+v", rg.got)
	}
	rg.step(1)
	if len(rg.got) != 1 {
		t.Fatalf("actions = %d, want 1", len(rg.got))
	}
	act := rg.got[0]
	if act.Switch != kernel.SwAttnCmd || !act.Pressed || act.LongPress || act.Repeat {
		t.Fatalf("action = %+v", act)
	}
}

func TestBounceIsSuppressed(t *testing.T) {
	rg := newRig(t)
	rg.press(kernel.SwAttnCmd)
	rg.step(10)
	rg.release(kernel.SwAttnCmd) // contact bounce before the window closes
	rg.step(DebounceMS * 2)
	if len(rg.got) != 0 {
		t.Fatalf("bounce produced actions: %+v", rg.got)
	}
}

func TestReleasedBeforeSampleIsNoPress(t *testing.T) {
	rg := newRig(t)
	rg.press(kernel.SwAttnCmd)
	// A rising edge cancels the pending debounce, so re-falling arms a new
	// full window.
	rg.step(DebounceMS / 2)
	rg.release(kernel.SwAttnCmd)
	rg.press(kernel.SwAttnCmd)
	rg.step(DebounceMS - 1)
	if len(rg.got) != 0 {
		t.Fatalf("early action: %+v", rg.got)
	}
	rg.step(1)
	if len(rg.got) != 1 {
		t.Fatalf("actions = %d, want 1", len(rg.got))
	}
}

func TestReleasePostsReleaseAction(t *testing.T) {
	rg := newRig(t)
	rg.press(kernel.SwRotary)
	rg.step(DebounceMS)
	rg.release(kernel.SwRotary)
	rg.step(1)
	if len(rg.got) != 2 {
		t.Fatalf("actions = %d, want press+release", len(rg.got))
	}
	if rg.got[1].Pressed {
		t.Fatalf("second action is not a release: %+v", rg.got[1])
	}
}

// ---- long press / repeat ----

func TestLongPressAndRepeat(t *testing.T) {
	rg := newRig(t)
	rg.press(kernel.SwAttnCmd)
	rg.step(DebounceMS + LongpressMS)
	if len(rg.got) != 2 {
		t.Fatalf("actions = %d, want press+longpress", len(rg.got))
	}
	lp := rg.got[1]
	if !lp.Pressed || !lp.LongPress || !lp.Repeat {
		t.Fatalf("long press action = %+v", lp)
	}
	// Still held: repeats at the repeat interval.
	rg.step(RepeatMS)
	rg.step(RepeatMS)
	if len(rg.got) != 4 {
		t.Fatalf("actions = %d, want 2 repeats after long press", len(rg.got))
	}
}

func TestShortPressNeverLongPresses(t *testing.T) {
	rg := newRig(t)
	rg.press(kernel.SwAttnCmd)
	rg.step(DebounceMS + 10)
	rg.release(kernel.SwAttnCmd)
	rg.step(LongpressMS * 2)
	// Press and release only.
	if len(rg.got) != 2 {
		t.Fatalf("actions = %v", rg.got)
	}
	for _, act := range rg.got {
		if act.LongPress {
			t.Fatalf("long press fired for a short press: %+v", act)
		}
	}
}

func TestLongPressPerSwitchIsIndependent(t *testing.T) {
	rg := newRig(t)
	rg.press(kernel.SwAttnCmd)
	rg.press(kernel.SwRotary)
	rg.step(DebounceMS)
	// Release one switch; the other must still long-press.
	rg.release(kernel.SwRotary)
	rg.step(LongpressMS + 1)
	var attnLong, rotLong bool
	for _, act := range rg.got {
		if act.LongPress && act.Switch == kernel.SwAttnCmd {
			attnLong = true
		}
		if act.LongPress && act.Switch == kernel.SwRotary {
			rotLong = true
		}
	}
	if !attnLong {
		t.Fatal("held switch did not long-press")
	}
	if rotLong {
		t.Fatal("released switch long-pressed")
	}
}

func TestSetTiming(t *testing.T) {
	rg := newRig(t)
	rg.r.SetTiming(10, 50, 20)
	rg.press(kernel.SwAttnCmd)
	rg.step(10 + 50)
	if len(rg.got) != 2 || !rg.got[1].LongPress {
		t.Fatalf("actions with custom timing = %+v", rg.got)
	}
}

// ---- rotary ----

// cw drives one clockwise quadrature detent (both phases idle high).
func (rg *rig) cw() {
	rg.sb.RotaryA.SetInput(false)
	rg.sb.RotaryB.SetInput(false)
	rg.sb.RotaryA.SetInput(true)
	rg.sb.RotaryB.SetInput(true)
}

func (rg *rig) ccw() {
	rg.sb.RotaryB.SetInput(false)
	rg.sb.RotaryA.SetInput(false)
	rg.sb.RotaryB.SetInput(true)
	rg.sb.RotaryA.SetInput(true)
}

func TestRotaryCountsSteps(t *testing.T) {
	rg := newRig(t)
	rg.cw()
	rg.cw()
	if rg.r.RotaryCount() != 8 {
		t.Fatalf("count after 2 CW detents = %d, want 8", rg.r.RotaryCount())
	}
	rg.ccw()
	if rg.r.RotaryCount() != 4 {
		t.Fatalf("count after 1 CCW detent = %d, want 4", rg.r.RotaryCount())
	}
	if rg.r.RotaryDelta() != -1 {
		t.Fatalf("last delta = %d, want -1", rg.r.RotaryDelta())
	}
}

// Each pin delivers edges on its own watcher goroutine, so the two phases
// hit the decoder concurrently. The decode state must survive that and
// still track a clean detent afterwards.
func TestRotaryPhaseEdgesFromTwoGoroutines(t *testing.T) {
	rg := newRig(t)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 400; i++ {
			rg.sb.RotaryA.SetInput(i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 400; i++ {
			rg.sb.RotaryB.SetInput(i%2 == 0)
		}
	}()
	wg.Wait()

	// Settle both phases at the idle detent; one clockwise turn must then
	// decode as exactly one detent.
	rg.sb.RotaryA.SetInput(true)
	rg.sb.RotaryB.SetInput(true)
	before := rg.r.RotaryCount()
	rg.cw()
	if got := rg.r.RotaryCount() - before; got != 4 {
		t.Fatalf("detent after concurrent edges = %d counts, want 4", got)
	}
}

// Button edges arrive on a watcher goroutine while the hardware core runs
// the debounce and long-press handlers.
func TestSwitchEdgesConcurrentWithHandlers(t *testing.T) {
	rg := newRig(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			rg.press(kernel.SwAttnCmd)
			rg.release(kernel.SwAttnCmd)
		}
	}()
churn:
	for {
		select {
		case <-done:
			break churn
		default:
			rg.step(1)
		}
	}
	rg.step(DebounceMS * 2)

	// A deterministic press must still debounce normally.
	rg.got = nil
	rg.press(kernel.SwAttnCmd)
	rg.step(DebounceMS)
	if len(rg.got) != 1 || !rg.got[0].Pressed {
		t.Fatalf("press after concurrent edges = %+v", rg.got)
	}
}

func TestRotaryPostsChangeMessages(t *testing.T) {
	rg := newRig(t)
	var deltas []int16
	rg.k.AddHandler(kernel.MsgRotaryChange, kernel.CoreHW, func(m *kernel.Msg) {
		deltas = append(deltas, m.Data.I16)
	})
	rg.cw()
	rg.step(1)
	if len(deltas) != 4 {
		t.Fatalf("change messages = %d, want 4", len(deltas))
	}
	for _, d := range deltas {
		if d != 1 {
			t.Fatalf("deltas = %v", deltas)
		}
	}
}
