// internal/hal/sim/flash.go
package sim

// NORFlash models a JEDEC-style parallel NOR flash in the SST39SF/Am29F
// family: three-write unlock preamble, ID mode, byte program, chip and
// 4 KiB sector erase, and DQ6/DQ7 toggle-bit busy signalling.
//
// Programming can only clear bits; only erase sets them. Completion is
// spread over a number of reads so the toggle-bit poll loops in the engine
// see a realistic busy phase.

const (
	unlockAddr1 = 0x55555
	unlockAddr2 = 0x2AAAA

	cmdEraseStage1 = 0x80
	cmdEraseChip   = 0x10
	cmdEraseSector = 0x30
	cmdEnterID     = 0x90
	cmdProgram     = 0xA0
	cmdExit        = 0xF0

	sectorShift = 12 // 4 KiB sectors

	dq7 = 0x80
	dq6 = 0x40
)

type cmdState int

const (
	stIdle cmdState = iota
	stUnlock1
	stUnlock2
	stProgram
)

type NORFlash struct {
	MfgID byte
	DevID byte

	mem  []byte
	mask uint32

	state     cmdState
	idMode    bool
	erasePend bool

	busyReads int
	busyFinal byte
	busyDQ6   bool

	powered bool
	garbage bool // models latch power-up state; true until the first read

	// Fault injection for tests.
	BusyForever bool // operation never completes (toggle never stops)
	StuckAt     int  // address whose bits refuse to erase; -1 disables

	// Observability for tests.
	SecondStage int // count of second-stage erase commands accepted
	Programs    int // count of byte program operations
}

// NewNORFlash creates a device of the given size (power of two) with every
// byte erased.
func NewNORFlash(mfgID, devID byte, size int) *NORFlash {
	f := &NORFlash{
		MfgID:   mfgID,
		DevID:   devID,
		mem:     make([]byte, size),
		mask:    uint32(size - 1),
		StuckAt: -1,
		garbage: true,
	}
	for i := range f.mem {
		f.mem[i] = 0xFF
	}
	return f
}

// Preload fills the array starting at addr, clearing bits the way real
// programming would have.
func (f *NORFlash) Preload(addr uint32, data []byte) {
	for i, b := range data {
		f.mem[(addr+uint32(i))&f.mask] = b
	}
}

// Peek returns array contents without the side effects of a bus read.
func (f *NORFlash) Peek(addr uint32) byte {
	return f.mem[addr&f.mask]
}

func (f *NORFlash) PowerOn() {
	if f.powered {
		return
	}
	f.powered = true
	f.reset()
}

func (f *NORFlash) PowerOff() {
	f.powered = false
	f.busyReads = 0
	f.reset()
}

func (f *NORFlash) reset() {
	f.state = stIdle
	f.idMode = false
	f.erasePend = false
}

// Read is a bus read cycle at addr. While an operation is in progress the
// device returns toggle-bit status instead of array data.
func (f *NORFlash) Read(addr uint32) byte {
	if !f.powered {
		return 0xFF
	}
	if f.garbage {
		// Startup garbage; flushed by the first read after power-on.
		f.garbage = false
		return 0x5A
	}
	if f.busyReads > 0 || f.BusyForever {
		f.busyDQ6 = !f.busyDQ6
		if !f.BusyForever {
			f.busyReads--
		}
		v := (^f.busyFinal & dq7) | (f.busyFinal &^ (dq7 | dq6))
		if f.busyDQ6 {
			v |= dq6
		}
		return v
	}
	if f.idMode {
		switch addr {
		case 0:
			return f.MfgID
		case 1:
			return f.DevID
		}
	}
	return f.mem[addr&f.mask]
}

// Write is a bus write cycle at addr. It drives the command state machine.
func (f *NORFlash) Write(addr uint32, v byte) {
	if !f.powered || f.busyReads > 0 {
		return
	}
	switch f.state {
	case stIdle:
		if v == cmdExit {
			f.reset()
			return
		}
		if addr == unlockAddr1 && v == 0xAA {
			f.state = stUnlock1
		}
	case stUnlock1:
		if addr == unlockAddr2 && v == 0x55 {
			f.state = stUnlock2
		} else {
			f.state = stIdle
		}
	case stUnlock2:
		f.state = stIdle
		if f.erasePend {
			f.erasePend = false
			switch {
			case addr == unlockAddr1 && v == cmdEraseChip:
				f.SecondStage++
				f.eraseChip()
			case v == cmdEraseSector:
				f.SecondStage++
				f.eraseSector(addr >> sectorShift)
			}
			return
		}
		switch v {
		case cmdEnterID:
			f.idMode = true
		case cmdExit:
			f.reset()
		case cmdEraseStage1:
			f.erasePend = true
		case cmdProgram:
			f.state = stProgram
		}
	case stProgram:
		f.state = stIdle
		f.program(addr, v)
	}
}

func (f *NORFlash) program(addr uint32, v byte) {
	a := addr & f.mask
	f.mem[a] &= v // NOR programming clears bits only
	f.Programs++
	f.beginBusy(f.mem[a], 6)
}

func (f *NORFlash) eraseChip() {
	for i := range f.mem {
		f.mem[i] = 0xFF
	}
	f.applyStuck()
	f.beginBusy(0xFF, 30)
}

func (f *NORFlash) eraseSector(sector uint32) {
	start := (sector << sectorShift) & f.mask
	for i := uint32(0); i < 1<<sectorShift; i++ {
		f.mem[(start+i)&f.mask] = 0xFF
	}
	f.applyStuck()
	f.beginBusy(0xFF, 20)
}

func (f *NORFlash) applyStuck() {
	if f.StuckAt >= 0 && f.StuckAt < len(f.mem) {
		f.mem[f.StuckAt] = 0x00
	}
}

func (f *NORFlash) beginBusy(final byte, reads int) {
	f.busyFinal = final
	f.busyReads = reads
	f.busyDQ6 = false
	if f.StuckAt >= 0 {
		// A stuck location reports its (wrong) array data once the
		// toggle stops, which is how the engine detects erase failure.
		f.busyFinal = f.mem[uint32(f.StuckAt)&f.mask]
	}
}
