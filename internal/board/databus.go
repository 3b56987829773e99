// internal/board/databus.go
package board

import "github.com/tamzrod/flash-programmer/internal/hal"

// The 8 data lines are shared between the MCU, the address latches, and the
// target device. Direction changes happen only inside an owned board-op;
// the RD-enable line is asserted only with the bus as input and WR-enable
// only with the bus as output, which keeps the latches and the MCU from
// driving the bus against each other.

// DataBusIsOut reports the current bus direction.
func (b *Board) DataBusIsOut() bool {
	return b.pins.DataPort.Dir() == hal.DirOut
}

// DataBusRead ensures input direction and samples the bus.
func (b *Board) DataBusRead() byte {
	if b.DataBusIsOut() {
		b.DataBusSetIn()
	}
	return b.pins.DataPort.Read()
}

// DataBusWrite ensures output direction and drives the value.
func (b *Board) DataBusWrite(v byte) {
	if !b.DataBusIsOut() {
		b.pins.DataPort.SetDir(hal.DirOut)
	}
	b.pins.DataPort.Write(v)
}

// DataBusSetIn releases the bus. RD-enable must already be inactive when
// the bus is driven; callers uphold the pairing rule.
func (b *Board) DataBusSetIn() {
	b.pins.DataPort.SetDir(hal.DirIn)
}

// DataBusSetOut takes the bus for driving.
func (b *Board) DataBusSetOut() {
	b.pins.DataPort.SetDir(hal.DirOut)
}

// ---- Discrete latch control lines ----

func (b *Board) DataLatchPut(level bool) { b.pins.DataLatch.Put(level) }
func (b *Board) DataRDPut(level bool)    { b.pins.DataRD.Put(level) }
func (b *Board) DataWRPut(level bool)    { b.pins.DataWR.Put(level) }
func (b *Board) DevicePwrPut(on bool)    { b.pins.DevicePwr.Put(on) }
func (b *Board) DevicePwrOn() bool       { return b.pins.DevicePwr.Get() }
