// internal/flash/engine.go
package flash

import "io/fs"

// JEDEC command bytes, written through the x555/x2AA unlock sequence.
const (
	cmdErase1     = 0x80 // first half; a second sequence picks sector or chip
	cmdEraseChip  = 0x10
	cmdEraseSect  = 0x30
	cmdGetID      = 0x90
	cmdProgram    = 0xA0
	cmdReset      = 0xF0
	unlockAddr1   = 0x55555
	unlockAddr2   = 0x2AAAA
	eraseChipAddr = 0x55555
)

// Completion status bits read back while an internal operation runs: DQ7
// is the inverse of the final data, DQ6 toggles on every read.
const (
	progStatusINV  = 0x80
	progStatusTGL  = 0x40
	progStatusBits = progStatusINV | progStatusTGL
)

// Sector number to erase-command address shift (4K sectors).
const sectEraseShift = 12

const imageBufSize = 1024

// defaultMaxPolls bounds completion polling; it is well past the number of
// reads the slowest supported chip erase can need, so hitting it means the
// device is stuck.
const defaultMaxPolls = 200000

// ProgressFn receives the last address handled, roughly once per KB, so
// long operations can report without the engine knowing about displays.
type ProgressFn func(addr uint32)

// Engine implements the device-level operations. It is confined to the
// core running device commands. Every operation latches its result, which
// Status returns until the next operation.
type Engine struct {
	pdo  *PDO
	fsys fs.FS

	buf      [imageBufSize]byte
	maxPolls int

	status OpStatus
}

// NewEngine builds an engine over the low-level operations and the file
// system image files are read from.
func NewEngine(pdo *PDO, fsys fs.FS) *Engine {
	return &Engine{pdo: pdo, fsys: fsys, maxPolls: defaultMaxPolls}
}

// PDO exposes the low-level operations for the command layer (raw address
// set, byte peeks, power control).
func (e *Engine) PDO() *PDO { return e.pdo }

// Status returns the latched result of the most recent operation.
func (e *Engine) Status() OpStatus { return e.status }

func (e *Engine) set(s OpStatus) OpStatus {
	e.status = s
	return s
}

// ---- command sequences ----

// cmdStart issues the unlock pair and a command byte at the unlock address.
func (e *Engine) cmdStart(cmd byte) error {
	if err := e.pdo.DataSetAt(unlockAddr1, 0xAA); err != nil {
		return err
	}
	if err := e.pdo.DataSetAt(unlockAddr2, 0x55); err != nil {
		return err
	}
	return e.pdo.DataSetAt(unlockAddr1, cmd)
}

// cmdSecond issues the unlock pair and a command byte at a caller-chosen
// address (sector erase encodes the sector in the address).
func (e *Engine) cmdSecond(addr uint32, cmd byte) error {
	if err := e.pdo.DataSetAt(unlockAddr1, 0xAA); err != nil {
		return err
	}
	if err := e.pdo.DataSetAt(unlockAddr2, 0x55); err != nil {
		return err
	}
	return e.pdo.DataSetAt(addr, cmd)
}

// cmdEnd resets the device command state machine. Issued before every
// command in case a prior operation left the device mid-sequence, and on
// every exit path afterwards. Best effort; a power problem here will be
// caught by the next real operation.
func (e *Engine) cmdEnd() {
	_ = e.pdo.DataSetAt(0, cmdReset)
}

// pollToggle reads the current address until DQ6 stops toggling or the
// data reads back as expected. It returns the final value and false if the
// poll bound was hit (a stuck device).
func (e *Engine) pollToggle(expected byte) (byte, bool) {
	v, err := e.pdo.DataGet()
	if err != nil {
		return v, false
	}
	sb := v & progStatusBits
	for i := 0; i < e.maxPolls; i++ {
		v2, err := e.pdo.DataGet()
		if err != nil {
			return v2, false
		}
		s2 := v2 & progStatusBits
		if sb&progStatusTGL == s2&progStatusTGL {
			return v2, true
		}
		if v2 == expected {
			return v2, true
		}
		sb = s2
	}
	return 0, false
}

// ---- operations ----

// Identify reads the manufacturer and device IDs with the software ID
// command and looks them up in the catalog. A nil Info with StatusNoDevice
// means the socket read empty; StatusNotIdentified means IDs came back but
// are unknown.
func (e *Engine) Identify() (*Info, OpStatus) {
	e.cmdEnd()
	if err := e.cmdStart(cmdGetID); err != nil {
		return nil, e.set(StatusNotReady)
	}
	// Power stayed on for the command start, so these reads are not
	// individually checked.
	mfgID, _ := e.pdo.DataGetFrom(0)
	devID, _ := e.pdo.DataGetFrom(1)
	e.cmdEnd()
	// Both floating high means an empty socket.
	if mfgID == 0xFF && devID == 0xFF {
		return nil, e.set(StatusNoDevice)
	}
	info := Lookup(mfgID, devID)
	if info == nil {
		return nil, e.set(StatusNotIdentified)
	}
	return info, e.set(StatusOK)
}

// EraseDevice erases the whole chip and polls for completion. Only the
// MicroChip parts support the erase sequences this programmer issues.
func (e *Engine) EraseDevice(info *Info) OpStatus {
	if info.MfgID != mfgMicroChip {
		return e.set(StatusDevNotSupported)
	}
	e.cmdEnd()
	if err := e.cmdStart(cmdErase1); err != nil {
		return e.set(StatusNotReady)
	}
	if err := e.cmdSecond(eraseChipAddr, cmdEraseChip); err != nil {
		return e.set(StatusNotErased)
	}
	if err := e.pdo.AddrSet(0); err != nil {
		return e.set(StatusNotReady)
	}
	sv, ok := e.pollToggle(EmptyByte)
	if !ok {
		return e.set(StatusTimedOut)
	}
	if sv != EmptyByte {
		return e.set(StatusEraseFailed)
	}
	return e.set(StatusOK)
}

// EraseSector erases one 4K sector and polls at the sector address.
func (e *Engine) EraseSector(info *Info, sect uint8) OpStatus {
	if info.MfgID != mfgMicroChip {
		return e.set(StatusDevNotSupported)
	}
	if sect >= info.SectCnt {
		return e.set(StatusAddrInvalid)
	}
	e.cmdEnd()
	seAddr := uint32(sect) << sectEraseShift
	if err := e.cmdStart(cmdErase1); err != nil {
		return e.set(StatusNotReady)
	}
	if err := e.cmdSecond(seAddr, cmdEraseSect); err != nil {
		return e.set(StatusNotErased)
	}
	// The address latches still hold the sector address from the command.
	sv, ok := e.pollToggle(EmptyByte)
	if !ok {
		return e.set(StatusTimedOut)
	}
	if sv != EmptyByte {
		return e.set(StatusEraseFailed)
	}
	return e.set(StatusOK)
}

// IsEmpty scans the whole device for a programmed byte. It identifies the
// device first; false with a non-OK status distinguishes "not empty" from
// "could not check".
func (e *Engine) IsEmpty(progress ProgressFn) bool {
	info, st := e.Identify()
	if st != StatusOK {
		return false
	}
	size := info.Size()
	addr := uint32(0)
	for addr < size {
		for i := 0; i < imageBufSize && addr < size; i++ {
			v, err := e.pdo.DataGetFrom(addr)
			addr++
			if err != nil {
				e.set(StatusNotReady)
				return false
			}
			if v != EmptyByte {
				e.set(StatusNotErased)
				return false
			}
		}
		if progress != nil {
			progress(addr - 1)
		}
	}
	e.set(StatusOK)
	return true
}

// IsSectorEmpty scans one sector for a programmed byte.
func (e *Engine) IsSectorEmpty(sect uint8) bool {
	info, st := e.Identify()
	if st != StatusOK {
		return false
	}
	saddr := info.SectStart(sect)
	if saddr == InvalidAddr {
		e.set(StatusAddrInvalid)
		return false
	}
	end := saddr + info.SectSize()
	for addr := saddr; addr < end; addr++ {
		v, err := e.pdo.DataGetFrom(addr)
		if err != nil {
			e.set(StatusNotReady)
			return false
		}
		if v != EmptyByte {
			e.set(StatusNotErased)
			return false
		}
	}
	e.set(StatusOK)
	return true
}

// ReadValue reads one byte after bounds-checking the address.
func (e *Engine) ReadValue(info *Info, addr uint32) (byte, OpStatus) {
	if addr > info.AddrMax() {
		return EmptyByte, e.set(StatusAddrInvalid)
	}
	v, err := e.pdo.DataGetFrom(addr)
	if err != nil {
		return EmptyByte, e.set(StatusNotReady)
	}
	return v, e.set(StatusOK)
}

// WriteValue programs one byte. The location must be erased.
func (e *Engine) WriteValue(info *Info, addr uint32, value byte) OpStatus {
	if addr > info.AddrMax() {
		return e.set(StatusAddrInvalid)
	}
	v, err := e.pdo.DataGetFrom(addr)
	if err != nil {
		return e.set(StatusNotReady)
	}
	if v != EmptyByte {
		return e.set(StatusNotErased)
	}
	e.cmdEnd()
	if err := e.cmdStart(cmdProgram); err != nil {
		return e.set(StatusNotReady)
	}
	if err := e.pdo.DataSetAt(addr, value); err != nil {
		return e.set(StatusNotReady)
	}
	v2, ok := e.pollToggle(value)
	if !ok {
		return e.set(StatusTimedOut)
	}
	if v2 != value {
		return e.set(StatusProgramFailed)
	}
	return e.set(StatusOK)
}

// ProgramFromFile programs the device from an image file, skipping bytes
// that already match and refusing locations that are not erased. The file
// must fit on the device.
func (e *Engine) ProgramFromFile(info *Info, filename string, progress ProgressFn) OpStatus {
	st, err := fs.Stat(e.fsys, filename)
	if err != nil {
		return e.set(StatusFileOpError)
	}
	size := st.Size()
	if size > int64(info.Size()) {
		return e.set(StatusDeviceSize)
	}
	f, err := e.fsys.Open(filename)
	if err != nil {
		return e.set(StatusFileOpError)
	}
	defer f.Close()

	addr := uint32(0)
	addrMax := info.AddrMax()
	e.cmdEnd()
	defer e.cmdEnd()
	for addr <= addrMax && int64(addr) < size {
		n, _ := f.Read(e.buf[:])
		if n == 0 {
			// Shorter than its stat size said, or a read error.
			return e.set(StatusFileOpError)
		}
		for i := 0; i < n; i++ {
			if addr%imageBufSize == 0 && progress != nil {
				progress(addr)
			}
			b := e.buf[i]
			v, err := e.pdo.DataGetFrom(addr)
			if err != nil {
				return e.set(StatusNotReady)
			}
			if v != b {
				if v != EmptyByte {
					return e.set(StatusNotErased)
				}
				if err := e.cmdStart(cmdProgram); err != nil {
					return e.set(StatusNotReady)
				}
				if err := e.pdo.DataSetAt(addr, b); err != nil {
					return e.set(StatusNotReady)
				}
				v2, ok := e.pollToggle(b)
				if !ok {
					return e.set(StatusTimedOut)
				}
				if v2 != b {
					return e.set(StatusProgramFailed)
				}
			}
			addr++
			if addr > addrMax || int64(addr) == size {
				break
			}
		}
	}
	if int64(addr) == size {
		return e.set(StatusOK)
	}
	return e.set(StatusProgramFailed)
}

// VerifyFromFile compares the device contents against an image file and
// returns the address one past the last byte that matched.
func (e *Engine) VerifyFromFile(info *Info, filename string, progress ProgressFn) (uint32, OpStatus) {
	st, err := fs.Stat(e.fsys, filename)
	if err != nil {
		return 0, e.set(StatusFileOpError)
	}
	size := st.Size()
	if size > int64(info.Size()) {
		return 0, e.set(StatusDeviceSize)
	}
	f, err := e.fsys.Open(filename)
	if err != nil {
		return 0, e.set(StatusFileOpError)
	}
	defer f.Close()

	addr := uint32(0)
	addrMax := info.AddrMax()
	e.cmdEnd()
	defer e.cmdEnd()
	for addr <= addrMax && int64(addr) < size {
		n, _ := f.Read(e.buf[:])
		if n == 0 {
			return addr, e.set(StatusFileOpError)
		}
		for i := 0; i < n; i++ {
			if addr%imageBufSize == 0 && progress != nil {
				progress(addr)
			}
			b := e.buf[i]
			v, err := e.pdo.DataGetFrom(addr)
			if err != nil {
				return addr, e.set(StatusNotReady)
			}
			if v != b {
				return addr, e.set(StatusVerifyFailed)
			}
			addr++
			if addr > addrMax || int64(addr) == size {
				break
			}
		}
	}
	if int64(addr) == size {
		return addr, e.set(StatusOK)
	}
	return addr, e.set(StatusVerifyFailed)
}
