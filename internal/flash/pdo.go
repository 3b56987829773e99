// internal/flash/pdo.go
package flash

import (
	"errors"
	"log"
	"time"

	"github.com/tamzrod/flash-programmer/internal/board"
	"github.com/tamzrod/flash-programmer/internal/hal"
)

// PowerMode governs the target-device power rail.
type PowerMode int

const (
	// PowerModeOff keeps the device unpowered; operations fail.
	PowerModeOff PowerMode = iota
	// PowerModeOn keeps the device powered.
	PowerModeOn
	// PowerModeAuto keeps the power off but lets operations turn it on
	// as they need it.
	PowerModeAuto
)

func (m PowerMode) String() string {
	switch m {
	case PowerModeOff:
		return "off"
	case PowerModeOn:
		return "on"
	case PowerModeAuto:
		return "auto"
	}
	return "invalid"
}

// ParsePowerMode maps a configuration string to a PowerMode.
func ParsePowerMode(s string) (PowerMode, error) {
	switch s {
	case "off":
		return PowerModeOff, nil
	case "on":
		return PowerModeOn, nil
	case "auto", "":
		return PowerModeAuto, nil
	}
	return PowerModeOff, errors.New("power mode must be one of off|on|auto")
}

var (
	// ErrPowerOff reports an operation attempted with the device
	// unpowered while the power mode forbids turning it on.
	ErrPowerOff = errors.New("flash: target device is not powered")
	// ErrBoardBusy reports that the board-op arbiter could not be
	// acquired in a reasonable time.
	ErrBoardBusy = errors.New("flash: board operation arbiter is busy")
)

// Control bits carried in the high address latch alongside A16-A18. Both
// lines are active low at the device; the stored value is the pin level.
const (
	ctrlRD   = 0x80
	ctrlWR   = 0x40
	ctrlNone = 0x00
	ctrlMask = ctrlRD | ctrlWR

	addrHighMask = 0x07
)

const (
	// Latch data/clock setup. Generous for 74HCT parts.
	busSettle = 2 * time.Microsecond
	// Power-rail rise before the device is touched.
	powerSettle = 5 * time.Millisecond

	opStartRetries = 10
)

// PDO drives the low-level device operations: loading the three address
// latches, moving bytes across the shared data bus through the data-out
// and data-in latches, and managing device power. All bus activity happens
// inside an owned board op.
//
// A PDO is confined to the core that runs device operations; it is not
// safe for concurrent use.
type PDO struct {
	brd   *board.Board
	clock hal.Clock

	mode PowerMode
	// Top 3 address bits merged with the RD/WR control levels; mirrors
	// the content of the high address latch.
	addrHCtrl uint8

	tkn  board.Token
	opIP bool

	firstPowerOn bool
}

// NewPDO wires the low-level operations to a board. The power mode starts
// in auto and both enables inactive.
func NewPDO(brd *board.Board) *PDO {
	return &PDO{
		brd:       brd,
		clock:     brd.Clock(),
		mode:      PowerModeAuto,
		addrHCtrl: ctrlMask,
	}
}

// ---- board-op bracketing ----

func (p *PDO) opStart() error {
	if p.opIP {
		return nil
	}
	for i := 0; ; i++ {
		tkn, ok := p.brd.OpStart()
		if ok {
			p.tkn = tkn
			p.opIP = true
			return nil
		}
		if i >= opStartRetries {
			return ErrBoardBusy
		}
		p.clock.Sleep(time.Millisecond)
	}
}

func (p *PDO) opEnd() {
	if p.opIP {
		p.brd.OpEnd(p.tkn)
		p.opIP = false
	}
}

// cs selects or deselects the device. Must be inside an owned op.
func (p *PDO) cs(sel bool) {
	if sel {
		p.brd.Op(p.tkn, board.OpDeviceSel)
	} else {
		p.brd.Op(p.tkn, board.OpNone)
	}
}

// rwSet drives the requested enable low and the other high by rewriting
// the high address latch. Must be inside an owned op.
func (p *PDO) rwSet(bits uint8) {
	p.addrHCtrl = (p.addrHCtrl &^ ctrlMask) | (^bits & ctrlMask)
	p.brd.Op(p.tkn, board.OpAddrHighLd) // latch CLK low
	p.brd.DataBusWrite(p.addrHCtrl)
	p.clock.Sleep(busSettle)
	p.brd.Op(p.tkn, board.OpNone) // CLK high clocks the data through
}

func (p *PDO) pwrChk() error {
	if p.PowerIsOn() {
		return nil
	}
	if p.mode == PowerModeOff {
		log.Printf("flash: operation requires the target device to be powered")
		return ErrPowerOff
	}
	if !p.RequestPowerOn(true) {
		return ErrPowerOff
	}
	return nil
}

// ---- address and data ----

// AddrSet loads a 19-bit address into the three address latches. The top
// latch carries the RD/WR control levels, which are preserved.
func (p *PDO) AddrSet(addr uint32) error {
	if err := p.pwrChk(); err != nil {
		return err
	}
	addrL := uint8(addr)
	addrM := uint8(addr >> 8)
	addrH := uint8(addr>>16) & addrHighMask
	p.addrHCtrl = (p.addrHCtrl & ctrlMask) | addrH

	// Three latch loads under a single op so nothing interleaves.
	if err := p.opStart(); err != nil {
		return err
	}
	p.brd.Op(p.tkn, board.OpAddrHighLd)
	p.brd.DataBusWrite(p.addrHCtrl)
	p.clock.Sleep(busSettle)
	p.brd.Op(p.tkn, board.OpAddrMidLd) // previous CLK high, this one low
	p.brd.DataBusWrite(addrM)
	p.clock.Sleep(busSettle)
	p.brd.Op(p.tkn, board.OpAddrLowLd)
	p.brd.DataBusWrite(addrL)
	p.clock.Sleep(busSettle)
	p.brd.Op(p.tkn, board.OpNone) // last CLK high
	p.brd.DataBusSetIn()
	p.opEnd()
	return nil
}

// DataGet reads the byte at the current address: the device drives the
// data-in latch under RD-enable, then the latch output is read back over
// the shared bus. AddrSet must have run first.
func (p *PDO) DataGet() (byte, error) {
	if err := p.pwrChk(); err != nil {
		return EmptyByte, err
	}
	if err := p.opStart(); err != nil {
		return EmptyByte, err
	}
	p.rwSet(ctrlRD)
	p.cs(true)
	p.clock.Sleep(busSettle)
	p.brd.DataLatchPut(false)
	p.clock.Sleep(busSettle)
	p.brd.DataLatchPut(true) // capture the device byte in the data-in latch
	p.cs(false)
	p.rwSet(ctrlNone)
	p.brd.DataRDPut(false) // enable the data-in latch onto the bus
	data := p.brd.DataBusRead()
	p.brd.DataRDPut(true)
	p.opEnd()
	return data, nil
}

// DataSet writes a byte to the current address: the byte is captured in
// the data-out latch, then written to the device under WR-enable.
func (p *PDO) DataSet(data byte) error {
	if err := p.pwrChk(); err != nil {
		return err
	}
	p.opEnd() // in case something left an op in progress
	if err := p.opStart(); err != nil {
		return err
	}
	p.brd.DataBusWrite(data)
	p.brd.DataLatchPut(false)
	p.clock.Sleep(busSettle)
	p.brd.DataLatchPut(true) // capture in the data-out latch
	p.brd.DataWRPut(false)   // enable the latch onto the device bus
	p.rwSet(ctrlWR)
	p.cs(true)
	p.clock.Sleep(busSettle)
	p.cs(false)
	p.rwSet(ctrlNone)
	p.brd.DataWRPut(true)
	p.opEnd()
	return nil
}

// DataGetFrom sets the address and reads the byte there.
func (p *PDO) DataGetFrom(addr uint32) (byte, error) {
	if err := p.AddrSet(addr); err != nil {
		return EmptyByte, err
	}
	return p.DataGet()
}

// DataSetAt sets the address and writes the byte there.
func (p *PDO) DataSetAt(addr uint32, data byte) error {
	if err := p.AddrSet(addr); err != nil {
		return err
	}
	return p.DataSet(data)
}

// ---- power ----

// PowerIsOn reports the state of the device power rail.
func (p *PDO) PowerIsOn() bool {
	return p.brd.DevicePwrOn()
}

// SetPowerMode stores the mode and applies its immediate effect: off and
// on switch the rail now, auto leaves it off until an operation needs it.
func (p *PDO) SetPowerMode(mode PowerMode) {
	p.mode = mode
	switch mode {
	case PowerModeOff, PowerModeAuto:
		p.RequestPowerOn(false)
	case PowerModeOn:
		p.RequestPowerOn(true)
	}
}

// PowerModeGet returns the current power mode.
func (p *PDO) PowerModeGet() PowerMode {
	return p.mode
}

// RequestPowerOn asks for the rail on or off; the power mode decides
// whether the request is honored. The first power-on performs a throwaway
// read to flush the garbage byte the latches hold after power-up.
func (p *PDO) RequestPowerOn(on bool) bool {
	if on == p.PowerIsOn() {
		return true
	}
	allowed := p.mode == PowerModeAuto ||
		(p.mode == PowerModeOn && on) || (p.mode == PowerModeOff && !on)
	if !allowed {
		return false
	}
	if !on {
		// Drive the control lines low and release the bus so the
		// unpowered side of the circuit is not back-powered.
		p.brd.DataWRPut(false)
		p.brd.DataLatchPut(false)
		p.brd.DataBusWrite(0)
		p.brd.DataBusSetIn()
	}
	p.brd.DevicePwrPut(on)
	if on {
		p.brd.DataWRPut(true) // keep the data-out latch off the device bus
		// Leave DATA_LATCH alone; a low-to-high there latches data.
		p.clock.Sleep(powerSettle)
		if !p.firstPowerOn {
			p.firstPowerOn = true
			if err := p.AddrSet(0); err == nil {
				d, _ := p.DataGet()
				log.Printf("flash: first device read: %02X", d)
			}
		}
	}
	return true
}
