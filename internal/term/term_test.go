// internal/term/term_test.go
package term

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/tamzrod/flash-programmer/internal/hal/sim"
	"github.com/tamzrod/flash-programmer/internal/kernel"
)

// rwBuf is a byte stream with separate read and write sides.
type rwBuf struct {
	r io.Reader
	w bytes.Buffer
}

func (b *rwBuf) Read(p []byte) (int, error)  { return b.r.Read(p) }
func (b *rwBuf) Write(p []byte) (int, error) { return b.w.Write(p) }

func newTestTerm(input string) (*Term, *rwBuf, *kernel.Kernel) {
	k := kernel.New(sim.NewClock())
	k.Init(false)
	buf := &rwBuf{r: strings.NewReader(input)}
	return New(buf, k), buf, k
}

func TestOutputHelpers(t *testing.T) {
	trm, buf, _ := newTestTerm("")
	trm.Printf("addr %05X", 0x1A2B)
	trm.Puts(" ok")
	trm.PutChar('!')
	if got := buf.w.String(); got != "addr 01A2B ok!" {
		t.Fatalf("wrote %q", got)
	}
}

func TestClearEmitsANSI(t *testing.T) {
	trm, buf, _ := newTestTerm("")
	trm.Clear()
	if buf.w.String() != "\x1b[2J\x1b[H" {
		t.Fatalf("wrote %q", buf.w.String())
	}
}

func TestRingBuffer(t *testing.T) {
	trm, _, _ := newTestTerm("")
	if trm.GetChar() != -1 {
		t.Fatal("empty buffer did not return -1")
	}
	trm.push('a')
	trm.push('b')
	if trm.GetChar() != 'a' || trm.GetChar() != 'b' {
		t.Fatal("ring buffer is not FIFO")
	}
	if trm.GetChar() != -1 {
		t.Fatal("drained buffer did not return -1")
	}
}

func TestRingBufferDropsOnOverflow(t *testing.T) {
	trm, _, _ := newTestTerm("")
	for i := 0; i < rxBufSize+10; i++ {
		trm.push(byte(i))
	}
	// Capacity is one less than the array; the oldest bytes survive.
	for i := 0; i < rxBufSize-1; i++ {
		if got := trm.GetChar(); got != int(byte(i)) {
			t.Fatalf("byte %d = %d", i, got)
		}
	}
	if trm.GetChar() != -1 {
		t.Fatal("overflow bytes were not dropped")
	}
}

func TestStartPumpsInputAndPostsCharReady(t *testing.T) {
	trm, _, k := newTestTerm("hi")
	trm.Start()

	deadline := time.Now().Add(2 * time.Second)
	var got []byte
	for len(got) < 2 && time.Now().Before(deadline) {
		if c := trm.GetChar(); c >= 0 {
			got = append(got, byte(c))
		}
	}
	if string(got) != "hi" {
		t.Fatalf("received %q", got)
	}
	// At least one char-ready message was posted.
	var ids []kernel.MsgID
	k.AddHandler(kernel.MsgTermCharRcvd, kernel.CoreUI, func(m *kernel.Msg) {
		ids = append(ids, m.ID)
	})
	for k.PumpOne(kernel.CoreUI) {
	}
	if len(ids) == 0 {
		t.Fatal("no char-ready message was posted")
	}
}
