// internal/hal/sim/board.go

// Package sim is an in-memory model of the programmer board: the 3-to-8
// operation decoder, the three cascaded address latches, the bidirectional
// data bus with its input and output latches, the target-device power rail,
// and a socketed NOR flash device. It implements the hal interfaces at pin
// level, so the production drivers run against it unchanged.
package sim

import (
	"sync"

	"github.com/tamzrod/flash-programmer/internal/hal"
)

// Decoder output codes. These mirror the wiring of the on-board 3-to-8
// decoder and must match the codes the board driver writes.
const (
	opNone uint8 = iota
	opAddrLowLd
	opAddrMidLd
	opAddrHighLd
	opDeviceSel
	opDisplayRes
	opDisplayCtrl
)

// High-latch control bits (active low).
const (
	ctrlRDn = 0x80
	ctrlWRn = 0x40
)

// Board is the simulated programmer board. A nil Flash models an empty
// socket: the data lines float high, so every read returns 0xFF.
type Board struct {
	mu sync.Mutex

	Clock *Clock

	OpPort   *Port // 3-bit decoder select
	DataPort *Port // 8-bit shared data bus, MCU side

	DataLatch *Pin // clocks the in/out data latches (rising edge)
	DataRD    *Pin // active low: input latch drives the MCU bus
	DataWR    *Pin // active low: output latch drives the device bus
	DevicePwr *Pin // target VCC

	AttnSw   *Pin // command/attention button (low = pressed)
	RotarySw *Pin // rotary encoder push button (low = pressed)
	RotaryA  *Pin
	RotaryB  *Pin

	Flash *NORFlash

	addrLow  byte
	addrMid  byte
	addrHigh byte // top address bits plus RDn/WRn control
	outLatch byte
	inLatch  byte
}

func NewBoard() *Board {
	b := &Board{Clock: NewClock()}
	b.OpPort = &Port{width: 3, dir: hal.DirOut, onWrite: b.opChanged}
	b.DataPort = &Port{width: 8, dir: hal.DirIn, pullUp: true}
	b.DataPort.readValue = b.mcuBusValue
	b.DataLatch = b.newPin(true, b.dataLatchEdge)
	b.DataRD = b.newPin(true, nil)
	b.DataWR = b.newPin(true, nil)
	b.DevicePwr = b.newPin(false, b.powerEdge)
	b.AttnSw = b.newInputPin(true)
	b.RotarySw = b.newInputPin(true)
	b.RotaryA = b.newInputPin(true)
	b.RotaryB = b.newInputPin(true)
	return b
}

// InsertFlash sockets a device. Power is off until the driver raises VCC.
func (b *Board) InsertFlash(f *NORFlash) {
	b.mu.Lock()
	b.Flash = f
	b.mu.Unlock()
}

// Addr returns the address currently held in the latch trio.
func (b *Board) Addr() uint32 {
	return uint32(b.addrLow) | uint32(b.addrMid)<<8 | uint32(b.addrHigh&0x07)<<16
}

func (b *Board) rdActive() bool { return b.addrHigh&ctrlRDn == 0 }
func (b *Board) wrActive() bool { return b.addrHigh&ctrlWRn == 0 }

// mcuBusValue is what the MCU sees when it samples the bus as input: the
// input latch when its output is enabled, otherwise pulled-up lines.
func (b *Board) mcuBusValue() uint8 {
	if !b.DataRD.Get() {
		return b.inLatch
	}
	return 0xFF
}

// drivenBusValue is what the latches and the device see on the MCU side of
// the bus.
func (b *Board) drivenBusValue() uint8 {
	if b.DataPort.Dir() == hal.DirOut {
		return b.DataPort.driven
	}
	return 0xFF
}

// opChanged fires on every decoder write. Leaving a latch-load code takes
// that latch's clock back high, which captures the byte on the bus. Leaving
// device-select ends a device cycle; if write-enable was active that commits
// a write to the flash.
func (b *Board) opChanged(prev, next uint8) {
	if prev == next {
		return
	}
	switch prev {
	case opAddrLowLd:
		b.addrLow = b.drivenBusValue()
	case opAddrMidLd:
		b.addrMid = b.drivenBusValue()
	case opAddrHighLd:
		b.addrHigh = b.drivenBusValue()
	case opDeviceSel:
		if b.wrActive() && !b.DataWR.Get() && b.Flash != nil && b.DevicePwr.Get() {
			b.Flash.Write(b.Addr(), b.outLatch)
		}
	}
}

// dataLatchEdge fires on DataLatch transitions. The rising edge clocks both
// data latches: the output latch captures the MCU-driven bus, and, during a
// selected read cycle, the input latch captures the device's data.
func (b *Board) dataLatchEdge(rise bool) {
	if !rise {
		return
	}
	if b.DataPort.Dir() == hal.DirOut {
		b.outLatch = b.DataPort.driven
	}
	if b.OpPort.driven == opDeviceSel && b.rdActive() {
		b.inLatch = b.deviceRead()
	}
}

func (b *Board) deviceRead() byte {
	if b.Flash == nil || !b.DevicePwr.Get() {
		return 0xFF
	}
	return b.Flash.Read(b.Addr())
}

func (b *Board) powerEdge(rise bool) {
	if b.Flash == nil {
		return
	}
	if rise {
		b.Flash.PowerOn()
	} else {
		b.Flash.PowerOff()
	}
}
