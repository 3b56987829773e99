// internal/flash/catalog_test.go
package flash

import "testing"

func TestLookup(t *testing.T) {
	if info := Lookup(0xBF, 0xB7); info == nil || info.Dev != "SST39SF040" {
		t.Fatalf("lookup BF:B7 = %v", info)
	}
	if info := Lookup(0x01, 0xA4); info == nil || info.Dev != "Am29F040" {
		t.Fatalf("lookup 01:A4 = %v", info)
	}
	if info := Lookup(0xBF, 0xFF); info != nil {
		t.Fatalf("unknown device ID resolved to %v", info)
	}
}

func TestGeometrySST39SF010A(t *testing.T) {
	info := Lookup(0xBF, 0xB5)
	if info.Size() != 128*1024 {
		t.Fatalf("size = %d", info.Size())
	}
	if info.AddrMax() != 128*1024-1 {
		t.Fatalf("addr max = %05X", info.AddrMax())
	}
	if info.SectSize() != 4096 {
		t.Fatalf("sector size = %d", info.SectSize())
	}
}

func TestSectStart(t *testing.T) {
	info := Lookup(0xBF, 0xB5)
	if got := info.SectStart(0); got != 0 {
		t.Fatalf("sector 0 start = %05X", got)
	}
	if got := info.SectStart(5); got != 0x5000 {
		t.Fatalf("sector 5 start = %05X", got)
	}
	if got := info.SectStart(info.SectCnt); got != InvalidAddr {
		t.Fatalf("out-of-range sector start = %08X", got)
	}
}

func TestSectForAddr(t *testing.T) {
	info := Lookup(0xBF, 0xB5)
	cases := []struct {
		addr uint32
		want uint8
	}{
		{0, 0},
		{0x0FFF, 0},
		{0x1000, 1},
		{0x1FFFF, 31},
	}
	for _, tc := range cases {
		if got := info.SectForAddr(tc.addr); got != tc.want {
			t.Errorf("SectForAddr(%05X) = %d, want %d", tc.addr, got, tc.want)
		}
	}
	if got := info.SectForAddr(0x20000); got != InvalidSect {
		t.Fatalf("past-end address mapped to sector %d", got)
	}
}

func TestStatusStrings(t *testing.T) {
	if StatusOK.String() != "OK" {
		t.Fatalf("OK string = %q", StatusOK.String())
	}
	if s := StatusTimedOut.String(); s == "" {
		t.Fatal("timed-out status has no text")
	}
}
