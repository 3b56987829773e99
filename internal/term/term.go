// internal/term/term.go

// Package term is the host terminal: a serial (or any byte-stream)
// connection carrying the interactive shell. Received characters land in
// a small ring buffer and a char-ready message is posted to the
// interactive core; output goes straight out the stream.
package term

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goburrow/serial"

	"github.com/tamzrod/flash-programmer/internal/kernel"
)

const rxBufSize = 256

// Config is minimal transport config for the serial console.
type Config struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration
}

// Term owns the console stream. Writes may come from any goroutine;
// input is consumed from the interactive core.
type Term struct {
	k *kernel.Kernel

	wmu sync.Mutex
	rw  io.ReadWriter
	cl  io.Closer

	rmu  sync.Mutex
	rx   [rxBufSize]byte
	rin  int
	rout int
}

// Open connects the console to a serial port.
func Open(cfg Config, k *kernel.Kernel) (*Term, error) {
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("term: open %s: %w", cfg.Address, err)
	}
	t := New(port, k)
	t.cl = port
	return t, nil
}

// New wraps an existing byte stream (tests pass a pipe or buffer).
func New(rw io.ReadWriter, k *kernel.Kernel) *Term {
	return &Term{k: k, rw: rw}
}

// Start launches the receive pump. Each received byte is buffered and a
// char-ready message posted; a full message queue just drops the posting,
// the buffered byte is picked up with the next one.
func (t *Term) Start() {
	go func() {
		var b [1]byte
		for {
			n, err := t.rw.Read(b[:])
			if n == 1 {
				t.push(b[0])
				msg := kernel.NewMsg(kernel.MsgTermCharRcvd)
				msg.Data.Ch = b[0]
				t.k.PostNoWait(kernel.CoreUI, msg)
			}
			if err != nil && err != serial.ErrTimeout {
				return
			}
		}
	}()
}

// Close closes the underlying port if one was opened.
func (t *Term) Close() error {
	if t.cl == nil {
		return nil
	}
	return t.cl.Close()
}

func (t *Term) push(c byte) {
	t.rmu.Lock()
	next := (t.rin + 1) % rxBufSize
	if next != t.rout { // drop on overflow
		t.rx[t.rin] = c
		t.rin = next
	}
	t.rmu.Unlock()
}

// GetChar returns the next buffered input character, or -1 when none is
// ready.
func (t *Term) GetChar() int {
	t.rmu.Lock()
	defer t.rmu.Unlock()
	if t.rout == t.rin {
		return -1
	}
	c := t.rx[t.rout]
	t.rout = (t.rout + 1) % rxBufSize
	return int(c)
}

// ---- output ----

func (t *Term) Printf(format string, args ...any) {
	t.wmu.Lock()
	fmt.Fprintf(t.rw, format, args...)
	t.wmu.Unlock()
}

func (t *Term) Puts(s string) {
	t.wmu.Lock()
	io.WriteString(t.rw, s)
	t.wmu.Unlock()
}

func (t *Term) PutChar(c byte) {
	t.wmu.Lock()
	t.rw.Write([]byte{c})
	t.wmu.Unlock()
}

// Clear clears the screen and homes the cursor (ANSI).
func (t *Term) Clear() {
	t.Puts("\x1b[2J\x1b[H")
}
