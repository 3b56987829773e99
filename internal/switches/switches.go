// internal/switches/switches.go

// Package switches turns raw button edges into debounced switch-action
// messages with long-press and auto-repeat detection, and rotary encoder
// movement into delta messages. Edge callbacks run on the pin watcher
// goroutines while the decisions run in handlers on the hardware core, so
// the state both sides touch is mutex-guarded.
package switches

import (
	"sync"

	"github.com/tamzrod/flash-programmer/internal/board"
	"github.com/tamzrod/flash-programmer/internal/hal"
	"github.com/tamzrod/flash-programmer/internal/kernel"
)

const (
	// A switch must stay low this long to count as a press.
	DebounceMS = 80
	// Held this long, a press becomes a long press.
	LongpressMS = 450
	// Repeat interval while a long press is held.
	RepeatMS = 250
)

// PressedFn samples the physical state of one switch.
type PressedFn func() bool

// Router owns the debounce and long-press state for both switches.
type Router struct {
	k   *kernel.Kernel
	brd *board.Board

	// pressed is written from watcher goroutines (release edges) and from
	// hardware-core handlers (debounce, long-press bookkeeping).
	mu        sync.Mutex
	pressed   [kernel.SwitchCount]bool
	pressedFn [kernel.SwitchCount]PressedFn
	// Distinct handler values per switch so a scheduled long-press delay
	// for one switch can be canceled without touching the other's.
	lpHdlr [kernel.SwitchCount]kernel.Handler

	debounceMS  int32
	longpressMS int32
	repeatMS    int32

	rot *rotary
}

// NewRouter wires the router to the board switches.
func NewRouter(k *kernel.Kernel, brd *board.Board) *Router {
	r := &Router{
		k: k, brd: brd,
		debounceMS:  DebounceMS,
		longpressMS: LongpressMS,
		repeatMS:    RepeatMS,
	}
	r.pressedFn[kernel.SwAttnCmd] = brd.AttnSwitchPressed
	r.pressedFn[kernel.SwRotary] = brd.RotarySwitchPressed
	r.lpHdlr[kernel.SwAttnCmd] = func(m *kernel.Msg) { r.longpressDelay(m) }
	r.lpHdlr[kernel.SwRotary] = func(m *kernel.Msg) { r.longpressDelay(m) }
	return r
}

// SetTiming overrides the default windows; zero values keep the default.
func (r *Router) SetTiming(debounceMS, longpressMS, repeatMS int32) {
	if debounceMS > 0 {
		r.debounceMS = debounceMS
	}
	if longpressMS > 0 {
		r.longpressMS = longpressMS
	}
	if repeatMS > 0 {
		r.repeatMS = repeatMS
	}
}

// Start registers the switch-action handler and hooks the button edges.
// Call from the hardware core once its loop is running.
func (r *Router) Start() {
	r.k.AddHandler(kernel.MsgSwitchAction, kernel.CoreHW, r.handleSwitchAction)
	pins := r.brd.Pins()
	pins.AttnSw.Watch(func(e hal.Edge) { r.SwitchEdge(kernel.SwAttnCmd, e) })
	pins.RotarySw.Watch(func(e hal.Edge) { r.SwitchEdge(kernel.SwRotary, e) })
	r.startRotary()
}

// SwitchEdge is the interrupt-level entry for a button edge. A falling
// edge arms the debounce delay (once); a rising edge cancels it and, if
// the switch was considered pressed, posts the release.
func (r *Router) SwitchEdge(sw kernel.SwitchID, e hal.Edge) {
	if e == hal.EdgeFall {
		if !r.k.ScheduledExists(kernel.MsgSwitchDebounce, r.debounce, kernel.CoreHW) {
			msg := kernel.NewMsgHdlr(kernel.MsgSwitchDebounce, r.debounce)
			msg.Data.Switch = kernel.SwitchAction{Switch: sw, Pressed: true}
			r.k.Schedule(kernel.CoreHW, r.debounceMS, msg)
		}
		return
	}
	r.k.Cancel(kernel.MsgSwitchDebounce, r.debounce, kernel.CoreHW)
	if r.setPressed(sw, false) {
		r.postAction(kernel.SwitchAction{Switch: sw, Pressed: false})
	}
}

// setPressed records the switch state and reports the previous one.
func (r *Router) setPressed(sw kernel.SwitchID, v bool) bool {
	r.mu.Lock()
	prev := r.pressed[sw]
	r.pressed[sw] = v
	r.mu.Unlock()
	return prev
}

func (r *Router) isPressed(sw kernel.SwitchID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pressed[sw]
}

// debounce fires after the debounce window; if the switch is still held
// it becomes a real press.
func (r *Router) debounce(m *kernel.Msg) {
	sw := m.Data.Switch.Switch
	held := r.pressedFn[sw]()
	r.setPressed(sw, held)
	if held {
		r.postAction(kernel.SwitchAction{Switch: sw, Pressed: true})
	}
}

// handleSwitchAction maintains the long-press state machine. A release
// cancels any delay in flight; an initial press arms the long-press
// delay. Repeats are armed by the delay handler itself.
func (r *Router) handleSwitchAction(m *kernel.Msg) {
	act := m.Data.Switch
	if !act.Pressed {
		r.k.Cancel(kernel.MsgSwitchLongpressDelay, r.lpHdlr[act.Switch], kernel.CoreHW)
		r.setPressed(act.Switch, false)
		return
	}
	r.setPressed(act.Switch, true)
	if !act.Repeat {
		r.scheduleLongpress(act.Switch, false)
	}
}

func (r *Router) scheduleLongpress(sw kernel.SwitchID, repeat bool) {
	msg := kernel.NewMsgHdlr(kernel.MsgSwitchLongpressDelay, r.lpHdlr[sw])
	msg.Data.Switch = kernel.SwitchAction{
		Switch: sw, Pressed: true, LongPress: repeat, Repeat: repeat,
	}
	delay := r.longpressMS
	if repeat {
		delay = r.repeatMS
	}
	r.k.Schedule(kernel.CoreHW, delay, msg)
}

// longpressDelay fires when the long-press (or repeat) delay elapses. If
// the switch is still physically held, post the long-press action and arm
// the next repeat.
func (r *Router) longpressDelay(m *kernel.Msg) {
	sw := m.Data.Switch.Switch
	if r.isPressed(sw) && r.pressedFn[sw]() {
		r.postAction(kernel.SwitchAction{
			Switch: sw, Pressed: true, LongPress: true, Repeat: true,
		})
		r.scheduleLongpress(sw, true)
	}
}

// postAction delivers a switch action to both cores.
func (r *Router) postAction(act kernel.SwitchAction) {
	msg := kernel.NewMsg(kernel.MsgSwitchAction)
	msg.Data.Switch = act
	r.k.Post(kernel.CoreHW, msg)
	r.k.Post(kernel.CoreUI, msg)
}
