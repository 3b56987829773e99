// internal/board/board_test.go
package board

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/tamzrod/flash-programmer/internal/hal/sim"
)

func newTestBoard() (*Board, *sim.Board) {
	sb := sim.NewBoard()
	pins := Pins{
		OpPort:    sb.OpPort,
		DataPort:  sb.DataPort,
		DataLatch: sb.DataLatch,
		DataRD:    sb.DataRD,
		DataWR:    sb.DataWR,
		DevicePwr: sb.DevicePwr,
		AttnSw:    sb.AttnSw,
		RotarySw:  sb.RotarySw,
		RotaryA:   sb.RotaryA,
		RotaryB:   sb.RotaryB,
	}
	return New(pins, sb.Clock), sb
}

func TestOpStartIsExclusive(t *testing.T) {
	b, _ := newTestBoard()
	tkn, ok := b.OpStart()
	if !ok {
		t.Fatal("first OpStart refused")
	}
	if !b.OpHeld() {
		t.Fatal("OpHeld false while held")
	}
	if _, ok := b.OpStart(); ok {
		t.Fatal("second OpStart succeeded while held")
	}
	b.OpEnd(tkn)
	if b.OpHeld() {
		t.Fatal("OpHeld true after release")
	}
	if _, ok := b.OpStart(); !ok {
		t.Fatal("OpStart refused after release")
	}
}

func TestOpStartContentionLogs(t *testing.T) {
	b, _ := newTestBoard()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	tkn, _ := b.OpStart()
	defer b.OpEnd(tkn)
	if _, ok := b.OpStart(); ok {
		t.Fatal("second OpStart succeeded while held")
	}
	if !strings.HasSuffix(buf.String(), "board: op start: mutex already owned\n") {
		t.Fatalf("contention log = %q", buf.String())
	}
}

func TestOpDrivesDecoderAndEndsAtNone(t *testing.T) {
	b, sb := newTestBoard()
	tkn, _ := b.OpStart()
	b.Op(tkn, OpAddrLowLd)
	if got := sb.OpPort.Read(); got != uint8(OpAddrLowLd) {
		t.Fatalf("decoder = %d, want %d", got, OpAddrLowLd)
	}
	b.OpEnd(tkn)
	if got := sb.OpPort.Read(); got != uint8(OpNone) {
		t.Fatalf("decoder after OpEnd = %d, want none", got)
	}
}

func TestOpWithWrongTokenIsFatal(t *testing.T) {
	b, _ := newTestBoard()
	var got []string
	b.Panicf = func(format string, args ...any) {
		got = append(got, fmt.Sprintf(format, args...))
		panic(got[len(got)-1])
	}
	tkn, _ := b.OpStart()
	defer b.OpEnd(tkn)

	func() {
		defer func() { recover() }()
		b.Op(nil, OpDeviceSel)
	}()
	if len(got) != 1 || !strings.Contains(got[0], "incorrect token") {
		t.Fatalf("panics = %v", got)
	}
}

func TestOpWithoutStartIsFatal(t *testing.T) {
	b, _ := newTestBoard()
	fatal := false
	b.Panicf = func(format string, args ...any) {
		fatal = true
		panic("halt")
	}
	func() {
		defer func() { recover() }()
		b.Op(Token(b), OpDeviceSel)
	}()
	if !fatal {
		t.Fatal("token accepted with no op in progress")
	}
}

func TestDataBusDirectionHelpers(t *testing.T) {
	b, _ := newTestBoard()
	if b.DataBusIsOut() {
		t.Fatal("bus starts in output direction")
	}
	b.DataBusWrite(0xA5)
	if !b.DataBusIsOut() {
		t.Fatal("bus not output after write")
	}
	b.DataBusSetIn()
	if b.DataBusIsOut() {
		t.Fatal("bus still output after SetIn")
	}
	// Idle bus reads pulled-up lines.
	if got := b.DataBusRead(); got != 0xFF {
		t.Fatalf("idle bus = %02X, want FF", got)
	}
}

func TestSwitchesAreActiveLow(t *testing.T) {
	b, sb := newTestBoard()
	if b.AttnSwitchPressed() || b.RotarySwitchPressed() {
		t.Fatal("switch pressed at rest")
	}
	sb.AttnSw.SetInput(false)
	sb.RotarySw.SetInput(false)
	if !b.AttnSwitchPressed() || !b.RotarySwitchPressed() {
		t.Fatal("switch not pressed when line low")
	}
}
