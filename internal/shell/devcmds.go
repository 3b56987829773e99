// internal/shell/devcmds.go
package shell

import (
	"strconv"
	"strings"

	"github.com/tamzrod/flash-programmer/internal/flash"
	"github.com/tamzrod/flash-programmer/internal/kernel"
)

// Highest address the 19-bit latch chain can hold, independent of the
// installed device.
const latchAddrMax = 0x7FFFF

// Troubleshooting repeat interval for address-set/read/write loops.
const rdwrRepeatMS = 10

// ---- helpers ----

// getVal parses an unsigned value bounded by limit, leaving *val alone
// when the string is ".". Errors are reported to the terminal.
func (sh *Shell) getVal(val *uint32, s string, limit uint32, hex bool, errType string) bool {
	if s == "." {
		return true
	}
	base := 10
	if hex {
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		kind := "decimal"
		if hex {
			kind = "HEX"
		}
		sh.trm.Printf("Value error - '%s' is not valid %s.\n", s, kind)
		return false
	}
	if uint32(v) > limit {
		sh.trm.Printf("Value error - '%s' is not a valid %s.\n", s, errType)
		return false
	}
	*val = uint32(v)
	return true
}

// getAddr parses an address (or "." for current) and, when it changes,
// loads it into the device latches.
func (sh *Shell) getAddr(s string) bool {
	addr := sh.addr
	if !sh.getVal(&addr, s, latchAddrMax, true, "hex address") {
		return false
	}
	if addr != sh.addr {
		sh.addr = addr
		if err := sh.eng.PDO().AddrSet(sh.addr); err != nil {
			return false
		}
	}
	return true
}

// getSect parses a 0-based sector number for the identified device.
func (sh *Shell) getSect(s string, info *flash.Info) (uint8, bool) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil || uint8(v) >= info.SectCnt {
		sh.trm.Printf("Value error - '%s' is not valid. Must be 0-%d.\n", s, info.SectCnt-1)
		return 0, false
	}
	return uint8(v), true
}

// progressDot is the progress callback for long operations.
func (sh *Shell) progressDot(uint32) {
	sh.trm.PutChar('.')
}

func (sh *Shell) pwrOn() bool {
	return sh.eng.PDO().RequestPowerOn(true)
}

func (sh *Shell) pwrOff() {
	sh.eng.PDO().RequestPowerOn(false)
}

// identify powers expectations are the caller's; it reports the failure
// to the operator.
func (sh *Shell) identify() *flash.Info {
	info, _ := sh.eng.Identify()
	if info == nil {
		sh.trm.Puts("Device not identified.\n")
	}
	return info
}

// ---- repeat-operation machinery ----

// repeatHandler performs one repetition of the selected troubleshooting
// operation and schedules the next while the repeat is active.
func (sh *Shell) repeatHandler(*kernel.Msg) {
	sh.rptDlyIP = false
	switch sh.rop {
	case rptAddrSet:
		sh.eng.PDO().AddrSet(sh.addr)
	case rptWrData:
		sh.eng.PDO().DataSet(sh.data)
	case rptRdData:
		if d, err := sh.eng.PDO().DataGet(); err == nil {
			sh.data = d
		}
	default:
		sh.repeat = false
	}
	if sh.repeat {
		sh.k.Schedule(kernel.CoreUI, rdwrRepeatMS, kernel.NewExec(sh.repeatHandler))
		sh.rptDlyIP = true
	}
}

// cancelRepeat stops a pending repeat delay, if any.
func (sh *Shell) cancelRepeat() {
	if sh.rptDlyIP {
		sh.k.Cancel(kernel.MsgExec, sh.repeatHandler, kernel.CoreUI)
		sh.rptDlyIP = false
	}
}

// ---- device commands ----

func (sh *Shell) cmdInfo(args []string) int32 {
	if len(args) > 1 {
		return sh.usage(sh.findCmd("pinfo"))
	}
	sh.pwrOn()
	info := sh.identify()
	sh.pwrOff()
	if info == nil {
		return int32(sh.eng.Status())
	}
	sh.trm.Printf("Device - MFG:%s DEV:%s Size: %dK Sectors:%d x %dK\n",
		info.Mfg, info.Dev, info.Size()/1024, info.SectCnt, info.SectSize()/1024)
	return 0
}

func (sh *Shell) cmdErase(args []string) int32 {
	if len(args) != 1 {
		return sh.usage(sh.findCmd("perase"))
	}
	var retval int32
	if !sh.pwrOn() {
		sh.trm.Puts("Cannot select device.\n")
		return -1
	}
	defer sh.pwrOff()
	info := sh.identify()
	if info == nil {
		return int32(sh.eng.Status())
	}
	sh.trm.Puts("erasing device...")
	if st := sh.eng.EraseDevice(info); st != flash.StatusOK {
		sh.trm.Printf("\nError erasing device: (%d) %s\n", st, st)
		retval = int32(st)
	} else {
		sh.trm.Puts("\nDevice erased.\n")
	}
	return retval
}

func (sh *Shell) cmdSectErase(args []string) int32 {
	if len(args) != 2 {
		return sh.usage(sh.findCmd("psecterase"))
	}
	if !sh.pwrOn() {
		sh.trm.Puts("Cannot select device.\n")
		return -1
	}
	defer sh.pwrOff()
	info := sh.identify()
	if info == nil {
		return int32(sh.eng.Status())
	}
	sect, ok := sh.getSect(args[1], info)
	if !ok {
		return -1
	}
	sh.trm.Printf("erasing sector %d...", sect)
	if st := sh.eng.EraseSector(info, sect); st != flash.StatusOK {
		sh.trm.Printf("\nError erasing sector %d: (%d) %s\n", sect, st, st)
		return int32(st)
	}
	sh.trm.Printf("\nSector %d erased.\n", sect)
	return 0
}

func (sh *Shell) cmdIsEmpty(args []string) int32 {
	if len(args) > 1 {
		return sh.usage(sh.findCmd("pisempty"))
	}
	if !sh.pwrOn() {
		return -1
	}
	defer sh.pwrOff()
	sh.trm.Puts("checking device...")
	empty := sh.eng.IsEmpty(sh.progressDot)
	mod := ""
	if !empty {
		mod = "not "
	}
	sh.trm.Printf("\nDevice is %sempty\n", mod)
	return 0
}

func (sh *Shell) cmdSectEmpty(args []string) int32 {
	if len(args) != 2 {
		return sh.usage(sh.findCmd("psectempty"))
	}
	if !sh.pwrOn() {
		sh.trm.Puts("Cannot check device.\n")
		return -1
	}
	defer sh.pwrOff()
	info := sh.identify()
	if info == nil {
		return int32(sh.eng.Status())
	}
	sect, ok := sh.getSect(args[1], info)
	if !ok {
		return -1
	}
	sh.trm.Puts("checking device...")
	empty := sh.eng.IsSectorEmpty(sect)
	mod := ""
	if !empty {
		mod = "not "
	}
	sh.trm.Printf("\nDevice sector %d is %sempty\n", sect, mod)
	return 0
}

func (sh *Shell) cmdSectAddr(args []string) int32 {
	if len(args) != 2 {
		return sh.usage(sh.findCmd("psectaddr"))
	}
	if !sh.pwrOn() {
		sh.trm.Puts("Cannot check device.\n")
		return -1
	}
	defer sh.pwrOff()
	info := sh.identify()
	if info == nil {
		return int32(sh.eng.Status())
	}
	sect, ok := sh.getSect(args[1], info)
	if !ok {
		return -1
	}
	start := info.SectStart(sect)
	end := start + info.SectSize() - 1
	sh.trm.Printf("\nDevice sector %d address: Start=%05X End=%05X\n", sect, start, end)
	return 0
}

func (sh *Shell) cmdAddrToSect(args []string) int32 {
	if len(args) != 2 {
		return sh.usage(sh.findCmd("patos"))
	}
	addr := sh.addr
	if !sh.getVal(&addr, args[1], latchAddrMax, true, "hex address") {
		return -1
	}
	sh.pwrOn()
	defer sh.pwrOff()
	info := sh.identify()
	if info == nil {
		return int32(sh.eng.Status())
	}
	sect := info.SectForAddr(addr)
	if sect == flash.InvalidSect {
		sh.trm.Printf("%X isn't a valid address for this device.\n", addr)
		return int32(flash.StatusAddrInvalid)
	}
	sh.addr = addr
	sh.sect = sect
	sh.trm.Printf("Addr: %05X  Sector: %d\n", addr, sect)
	return 0
}

func (sh *Shell) cmdAddr(args []string) int32 {
	if len(args) > 2 {
		return sh.usage(sh.findCmd("paddr"))
	}
	sh.pwrOn()
	defer sh.pwrOff()
	// Using this command with other than 'R' stops any repeat operation.
	sh.rop = rptNone
	sh.repeat = false
	if len(args) > 1 {
		if strings.EqualFold(args[1], "r") {
			sh.rop = rptAddrSet
			sh.repeat = true
		} else if !sh.getAddr(args[1]) {
			return -1
		}
	}
	sh.trm.Printf("%05X\n", sh.addr)
	if !sh.repeat {
		sh.cancelRepeat()
	} else {
		sh.repeatHandler(nil)
	}
	return 0
}

func (sh *Shell) cmdAddrNext(args []string) int32 {
	if len(args) > 1 {
		return sh.usage(sh.findCmd("paaddr"))
	}
	sh.pwrOn()
	defer sh.pwrOff()
	sh.addr++
	if err := sh.eng.PDO().AddrSet(sh.addr); err != nil {
		return -1
	}
	sh.trm.Printf("%05X\n", sh.addr)
	return 0
}

func (sh *Shell) cmdDump(args []string) int32 {
	if len(args) > 3 {
		return sh.usage(sh.findCmd("pdump"))
	}
	sh.pwrOn()
	defer sh.pwrOff()
	if len(args) > 1 {
		saddr := sh.addr
		length := sh.dumpLen
		if !sh.getVal(&saddr, args[1], latchAddrMax, true, "hex address") {
			return -1
		}
		if len(args) > 2 {
			if !sh.getVal(&length, args[2], 1024, false, "length") {
				return -1
			}
		}
		if saddr != sh.addr {
			sh.addr = saddr
			if err := sh.eng.PDO().AddrSet(sh.addr); err != nil {
				return -1
			}
		}
		sh.dumpLen = length
	}
	// Rows of up to 16 bytes: address, hex values, then the ASCII.
	var v [16]byte
	count := uint32(0)
	for count < sh.dumpLen {
		sh.trm.Printf("%05X  ", sh.addr)
		n := 0
		for i := 0; i < 16; i++ {
			d, err := sh.eng.PDO().DataGet()
			if err != nil {
				return -1
			}
			v[i] = d
			sh.trm.Printf("%02X ", d)
			n++
			count++
			sh.addr++
			if err := sh.eng.PDO().AddrSet(sh.addr); err != nil {
				return -1
			}
			if count == sh.dumpLen {
				break
			}
		}
		for i := n; i < 16; i++ {
			sh.trm.Puts("   ")
		}
		sh.trm.Puts("  ")
		for i := 0; i < n; i++ {
			c := v[i]
			if c < 0x20 || c > 0x7E {
				c = '.'
			}
			sh.trm.Printf("%c ", c)
		}
		sh.trm.Puts("\n")
	}
	return 0
}

func (sh *Shell) cmdPower(args []string) int32 {
	if len(args) > 2 {
		return sh.usage(sh.findCmd("ppwr"))
	}
	pdo := sh.eng.PDO()
	if len(args) > 1 {
		if strings.EqualFold(args[1], "a") {
			pdo.SetPowerMode(flash.PowerModeAuto)
		} else if boolFromStr(args[1]) {
			pdo.SetPowerMode(flash.PowerModeOn)
		} else {
			pdo.SetPowerMode(flash.PowerModeOff)
		}
	}
	state := "OFF"
	if pdo.PowerIsOn() {
		state = "ON"
	}
	sh.trm.Printf("Power Mode: PM_%s  Device Power: %s\n",
		strings.ToUpper(pdo.PowerModeGet().String()), state)
	return 0
}

func (sh *Shell) cmdRead(args []string) int32 {
	if len(args) > 2 {
		return sh.usage(sh.findCmd("prd"))
	}
	sh.pwrOn()
	defer sh.pwrOff()
	sh.rop = rptNone
	sh.repeat = false
	if len(args) > 1 {
		if strings.EqualFold(args[1], "r") {
			sh.rop = rptRdData
			sh.repeat = true
		} else if !sh.getAddr(args[1]) {
			return -1
		}
	}
	if !sh.repeat {
		sh.cancelRepeat()
	}
	d, err := sh.eng.PDO().DataGet()
	if err != nil {
		return -1
	}
	sh.trm.Printf("%05X %02X\n", sh.addr, d)
	if sh.repeat {
		sh.repeatHandler(nil)
	}
	return 0
}

func (sh *Shell) cmdReadNext(args []string) int32 {
	if len(args) > 1 {
		return sh.usage(sh.findCmd("prn"))
	}
	sh.pwrOn()
	defer sh.pwrOff()
	sh.rop = rptRdData
	sh.addr++
	if err := sh.eng.PDO().AddrSet(sh.addr); err != nil {
		return -1
	}
	d, err := sh.eng.PDO().DataGet()
	if err != nil {
		return -1
	}
	sh.trm.Printf("%05X %02X\n", sh.addr, d)
	return 0
}

func (sh *Shell) cmdWrite(args []string) int32 {
	if len(args) < 2 || len(args) > 3 {
		return sh.usage(sh.findCmd("pwr"))
	}
	sh.pwrOn()
	defer sh.pwrOff()
	sh.rop = rptNone
	sh.repeat = false
	arg := 1
	if len(args) > 2 {
		if !sh.getAddr(args[arg]) {
			return -1
		}
		arg++
	}
	if strings.EqualFold(args[arg], "r") {
		sh.rop = rptWrData
		sh.repeat = true
	} else {
		v, err := strconv.ParseUint(args[arg], 16, 8)
		if err != nil {
			sh.trm.Printf("Value error - '%s' is not a valid hex byte.\n", args[arg])
			return -1
		}
		sh.data = byte(v)
	}
	if !sh.repeat {
		sh.cancelRepeat()
	}
	if err := sh.eng.PDO().DataSet(sh.data); err != nil {
		return -1
	}
	if sh.repeat {
		sh.repeatHandler(nil)
	}
	return 0
}

func (sh *Shell) cmdWriteNext(args []string) int32 {
	if len(args) != 2 {
		return sh.usage(sh.findCmd("pwn"))
	}
	sh.pwrOn()
	defer sh.pwrOff()
	sh.rop = rptWrData
	sh.addr++
	if err := sh.eng.PDO().AddrSet(sh.addr); err != nil {
		return -1
	}
	v, err := strconv.ParseUint(args[1], 16, 8)
	if err != nil {
		sh.trm.Printf("Value error - '%s' is not a valid hex byte.\n", args[1])
		return -1
	}
	sh.data = byte(v)
	if err := sh.eng.PDO().DataSet(sh.data); err != nil {
		return -1
	}
	return 0
}

func (sh *Shell) cmdWriteVal(args []string) int32 {
	rest := args[1:]
	if len(rest) < 2 {
		return sh.usage(sh.findCmd("pwrval"))
	}
	// Using this command stops any repeat operation.
	sh.rop = rptNone
	sh.repeat = false
	sh.cancelRepeat()
	if !sh.pwrOn() {
		sh.trm.Puts("Unable to power on the device.\n")
		return -1
	}
	defer sh.pwrOff()
	info := sh.identify()
	if info == nil {
		return int32(sh.eng.Status())
	}
	addr := sh.addr
	if !sh.getVal(&addr, rest[0], info.AddrMax(), true, "hex address") {
		return -1
	}
	values := rest[1:]
	// Validate every value before touching the device.
	for i, av := range values {
		if _, err := strconv.ParseUint(av, 16, 8); err != nil {
			sh.trm.Printf("Value error - value %d '%s' is not a valid hex byte.\n", i+1, av)
			return -1
		}
	}
	sh.addr = addr
	for _, av := range values {
		v, _ := strconv.ParseUint(av, 16, 8)
		sh.data = byte(v)
		if st := sh.eng.WriteValue(info, sh.addr, sh.data); st != flash.StatusOK {
			sh.trm.Printf("Write operation to %05X of %02X failed (%d) %s\n",
				sh.addr, sh.data, st, st)
			return int32(st)
		}
		dr, _ := sh.eng.ReadValue(info, sh.addr)
		sh.trm.Printf("%05X %02X\n", sh.addr, dr)
		sh.addr++
	}
	return 0
}
