// internal/board/board.go

// Package board owns the shared on-board resources: the 3-to-8 operation
// decoder, the bidirectional 8-bit data bus, and the discrete control lines
// for the data latches and target-device power. All decoder and bus access
// is serialized through the board-op arbiter.
package board

import (
	"fmt"
	"log"
	"sync"

	"github.com/tamzrod/flash-programmer/internal/hal"
)

// Op is a 3-bit code driving the operation decoder.
type Op uint8

const (
	OpNone Op = iota
	OpAddrLowLd
	OpAddrMidLd
	OpAddrHighLd
	OpDeviceSel
	OpDisplayRes
	OpDisplayCtrl
)

// Token proves ownership of the board-op mutex. Its value is the identity
// of the single arbiter, which is how Op and End catch cross-component
// misuse.
type Token *Board

// Pins collects the HAL resources the board driver needs.
type Pins struct {
	OpPort   hal.Port // decoder select, always output
	DataPort hal.Port // shared data bus

	DataLatch hal.Pin
	DataRD    hal.Pin
	DataWR    hal.Pin
	DevicePwr hal.Pin

	AttnSw   hal.EdgePin
	RotarySw hal.EdgePin
	RotaryA  hal.EdgePin
	RotaryB  hal.EdgePin
}

type Board struct {
	pins  Pins
	clock hal.Clock

	mu   sync.Mutex
	held bool

	// Panicf is the fatal-condition hook. Tests replace it to observe
	// panics; on hardware it halts the board.
	Panicf func(format string, args ...any)
}

func New(pins Pins, clock hal.Clock) *Board {
	b := &Board{
		pins:   pins,
		clock:  clock,
		Panicf: func(format string, args ...any) { log.Panicf(format, args...) },
	}
	b.pins.OpPort.SetDir(hal.DirOut)
	b.pins.OpPort.Write(uint8(OpNone))
	return b
}

func (b *Board) Clock() hal.Clock { return b.clock }
func (b *Board) Pins() *Pins      { return &b.pins }

// OpStart is the non-blocking attempt to acquire the board-op mutex. It
// returns false when another context holds it; callers treat that as a
// transient condition and retry at the message level.
func (b *Board) OpStart() (Token, bool) {
	if !b.mu.TryLock() {
		log.Printf("board: op start: mutex already owned")
		return nil, false
	}
	b.held = true
	return Token(b), true
}

// Op drives a decoder code. The token must come from the OpStart that is
// currently held; anything else is a programming error and halts.
func (b *Board) Op(tkn Token, op Op) {
	b.checkToken(tkn, "op")
	b.pins.OpPort.Write(uint8(op))
}

// OpEnd releases the board-op mutex, leaving the decoder at OpNone.
func (b *Board) OpEnd(tkn Token) {
	b.checkToken(tkn, "op end")
	b.pins.OpPort.Write(uint8(OpNone))
	b.held = false
	b.mu.Unlock()
}

func (b *Board) checkToken(tkn Token, what string) {
	if (*Board)(tkn) != b || !b.held {
		b.Panicf("board: %s: called with incorrect token: %p should be: %p", what, tkn, b)
	}
}

// OpHeld reports whether some context currently owns the arbiter.
func (b *Board) OpHeld() bool {
	return b.held
}

// Panic funnels a fatal condition through the board hook.
func (b *Board) Panic(format string, args ...any) {
	b.Panicf("%s", fmt.Sprintf(format, args...))
}

// ---- Switches ----

// Switches are wired active low with pull-ups.
func (b *Board) AttnSwitchPressed() bool   { return !b.pins.AttnSw.Get() }
func (b *Board) RotarySwitchPressed() bool { return !b.pins.RotarySw.Get() }
