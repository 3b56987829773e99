// internal/flash/catalog.go

// Package flash identifies and operates on the parallel NOR flash device in
// the programming socket: JEDEC command sequences, toggle-bit completion
// polling, erase, byte program, image program and verify from a file
// system, plus the low-level address/data/power operations they are built
// on.
package flash

import "fmt"

// Sentinels for address and sector lookups that have no answer.
const (
	InvalidAddr uint32 = 0xFFFFFFFF
	InvalidSect uint8  = 0xFF
)

// EmptyByte is the value of an erased flash cell.
const EmptyByte byte = 0xFF

// Manufacturer IDs as reported by the software ID command.
const (
	mfgAMD       = 0x01
	mfgMicroChip = 0xBF
	mfgMacronix  = 0xC2
)

// Info describes one supported device type.
type Info struct {
	MfgID      uint8
	DevID      uint8
	SectCnt    uint8 // number of uniform sectors
	AddrBitMax uint8 // highest address bit (16 for a 128K device)
	Mfg        string
	Dev        string
}

// catalog is the closed set of devices this programmer knows how to drive.
var catalog = []*Info{
	{MfgID: mfgAMD, DevID: 0xA4, SectCnt: 8, AddrBitMax: 18, Mfg: "AMD", Dev: "Am29F040"},
	{MfgID: mfgMicroChip, DevID: 0xB5, SectCnt: 32, AddrBitMax: 16, Mfg: "MicroChip", Dev: "SST39SF010A"},
	{MfgID: mfgMicroChip, DevID: 0xB6, SectCnt: 64, AddrBitMax: 17, Mfg: "MicroChip", Dev: "SST39SF020A"},
	{MfgID: mfgMicroChip, DevID: 0xB7, SectCnt: 128, AddrBitMax: 18, Mfg: "MicroChip", Dev: "SST39SF040"},
	{MfgID: mfgMacronix, DevID: 0xA4, SectCnt: 8, AddrBitMax: 18, Mfg: "Micronix", Dev: "MX29F040"},
}

// Lookup returns the catalog entry for a manufacturer/device ID pair, or
// nil when the pair is not a supported device.
func Lookup(mfgID, devID uint8) *Info {
	for _, ci := range catalog {
		if ci.MfgID == mfgID && ci.DevID == devID {
			return ci
		}
	}
	return nil
}

// Size is the device capacity in bytes.
func (i *Info) Size() uint32 {
	return 1 << (i.AddrBitMax + 1)
}

// AddrMax is the highest valid address.
func (i *Info) AddrMax() uint32 {
	return i.Size() - 1
}

// SectSize is the size of each (uniform) sector in bytes.
func (i *Info) SectSize() uint32 {
	return i.Size() / uint32(i.SectCnt)
}

// SectStart returns the first address of a sector, or InvalidAddr when the
// sector number is out of range.
func (i *Info) SectStart(sect uint8) uint32 {
	if sect >= i.SectCnt {
		return InvalidAddr
	}
	return uint32(sect) * i.SectSize()
}

// SectForAddr returns the sector containing addr, or InvalidSect when the
// address is past the end of the device.
func (i *Info) SectForAddr(addr uint32) uint8 {
	sect := addr / i.SectSize()
	if sect >= uint32(i.SectCnt) {
		return InvalidSect
	}
	return uint8(sect)
}

func (i *Info) String() string {
	return fmt.Sprintf("%s %s (%02X:%02X) %dKB %d sectors",
		i.Mfg, i.Dev, i.MfgID, i.DevID, i.Size()/1024, i.SectCnt)
}
