// internal/kernel/msg.go

// Package kernel is the cooperative multitasking core: two message loops
// (one per execution context), per-ID multi-handler dispatch, scheduled
// delayed messages, fixed free-list pools, and the 1 ms tick source.
//
// Handlers must not block or sleep. Long latencies are expressed by
// scheduling a future message or with RunAfter.
package kernel

import "reflect"

// Core identifies an execution context. The original hardware runs one
// message loop per processor core; here each is a goroutine.
type Core int

const (
	// CoreHW runs the hardware runtime: switches, rotary, disk.
	CoreHW Core = 0
	// CoreUI runs the interactive side: terminal, shell, display, engine.
	CoreUI Core = 1
	// CoreBoth is a registration mask meaning "dispatch on either core".
	CoreBoth Core = 2

	coreCount = 2
)

// MsgID is drawn from a closed enumeration. The handler registry indexes
// by ID, so the space is capped at MsgIDCount.
type MsgID uint8

// MsgIDCount is the size of the handler registry index.
const MsgIDCount = 0x100

// Shared messages (both cores).
const (
	MsgNoop MsgID = iota
	MsgLoopStarted
	MsgHWStarted
	MsgUIStarted
	MsgPeriodic // every 16 ticks (62.5 Hz)
	MsgSleep
	MsgExec // general purpose, used with a preferred handler
	MsgConfigChanged
	MsgDebugChanged
	MsgSwitchAction
	MsgSwitchDebounce
	MsgSwitchLongpressDelay
	MsgTermCharRcvd
)

// Hardware-core-only messages.
const (
	MsgHWNoop MsgID = 0x60 + iota
	MsgHWTest
	MsgRotaryChange
)

// Interactive-core-only messages.
const (
	MsgUINoop MsgID = 0xC0 + iota
	MsgUITest
	MsgDisplayMessage
	MsgCmdKeyPressed
	MsgReinitTerminal
	MsgInputCharReady
)

// Handler processes one message. It runs on the core loop that retrieved
// the message and must return promptly.
type Handler func(*Msg)

// SleepFn is invoked by RunAfter once the delay elapses.
type SleepFn func(userData any)

// SwitchID identifies one of the two push buttons.
type SwitchID uint8

const (
	SwAttnCmd SwitchID = iota
	SwRotary

	SwitchCount = 2
)

// SwitchAction describes a debounced button event.
type SwitchAction struct {
	Switch    SwitchID
	Pressed   bool
	LongPress bool
	Repeat    bool
}

// SleepData carries the RunAfter callback.
type SleepData struct {
	Fn       SleepFn
	UserData any
}

// MsgData is the variant payload. Exactly the fields relevant to the
// message ID are meaningful.
type MsgData struct {
	Ch     byte
	Bool   bool
	I16    int16
	U16    uint16
	Status int32
	U32    uint32
	Str    string
	TsUS   uint64
	Switch SwitchAction
	Sleep  SleepData
}

// Msg is the unit of work. Seq and PostedMS are stamped by the posting
// system; OnCore is filled in by the retrieving loop.
type Msg struct {
	ID    MsgID
	Hdlr  Handler // preferred handler, run before the registered chain
	Abort bool    // true stops dispatch to the registered chain
	Data  MsgData

	Seq      int32
	PostedMS uint32
	OnCore   Core
}

// NewMsg initializes a message with no preferred handler.
func NewMsg(id MsgID) Msg {
	return Msg{ID: id}
}

// NewMsgHdlr initializes a message whose preferred handler runs before the
// registered chain.
func NewMsgHdlr(id MsgID, hdlr Handler) Msg {
	return Msg{ID: id, Hdlr: hdlr}
}

// NewExec builds an Exec message: only the given handler runs.
func NewExec(hdlr Handler) Msg {
	return Msg{ID: MsgExec, Hdlr: hdlr, Abort: true}
}

// EndHandling suppresses the rest of the registered chain for this message.
func (m *Msg) EndHandling() { m.Abort = true }

// handlerKey gives a comparable identity for a Handler, used for removal
// and for scheduled-message cancellation. Registrations and cancellations
// must pass the same function value.
func handlerKey(h Handler) uintptr {
	if h == nil {
		return 0
	}
	return reflect.ValueOf(h).Pointer()
}
