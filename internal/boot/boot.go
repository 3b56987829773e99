// internal/boot/boot.go

// Package boot assembles the programmer: board backend, kernel, engine,
// terminal, and the routers, in the order the hardware needs. Module init
// chains run from inside the message loops via the loop-started message.
package boot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/tamzrod/flash-programmer/internal/board"
	"github.com/tamzrod/flash-programmer/internal/config"
	"github.com/tamzrod/flash-programmer/internal/display"
	"github.com/tamzrod/flash-programmer/internal/flash"
	"github.com/tamzrod/flash-programmer/internal/hal"
	"github.com/tamzrod/flash-programmer/internal/hal/gpio"
	"github.com/tamzrod/flash-programmer/internal/hal/sim"
	"github.com/tamzrod/flash-programmer/internal/kernel"
	"github.com/tamzrod/flash-programmer/internal/shell"
	"github.com/tamzrod/flash-programmer/internal/switches"
	"github.com/tamzrod/flash-programmer/internal/term"
)

// App owns every long-lived component of the programmer.
type App struct {
	cfg *config.Config

	K   *kernel.Kernel
	Brd *board.Board
	PDO *flash.PDO
	Eng *flash.Engine
	Trm *term.Term

	Shell    *shell.Shell
	Switches *switches.Router
	Display  *display.Router

	// Sim is non-nil when the sim backend is selected; tests and the
	// interactive simulator reach the modeled hardware through it.
	Sim *sim.Board

	hwStarted bool
	uiStarted bool
}

// New builds the full component graph from a validated, normalized config.
// Nothing runs yet; Run starts the tick source and the message loops.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}
	p := &cfg.Programmer

	// --------------------
	// Board backend
	// --------------------

	var pins board.Pins
	switch p.Backend {
	case "sim":
		a.Sim = sim.NewBoard()
		pins = board.Pins{
			OpPort:    a.Sim.OpPort,
			DataPort:  a.Sim.DataPort,
			DataLatch: a.Sim.DataLatch,
			DataRD:    a.Sim.DataRD,
			DataWR:    a.Sim.DataWR,
			DevicePwr: a.Sim.DevicePwr,
			AttnSw:    a.Sim.AttnSw,
			RotarySw:  a.Sim.RotarySw,
			RotaryA:   a.Sim.RotaryA,
			RotaryB:   a.Sim.RotaryB,
		}
	case "gpio":
		gb, err := gpio.Open(gpio.PinMap{
			OpBase:    p.Pins.OpBase,
			DataBase:  p.Pins.DataBase,
			DataLatch: p.Pins.DataLatch,
			DataRD:    p.Pins.DataRD,
			DataWR:    p.Pins.DataWR,
			DevicePwr: p.Pins.DevicePwr,
			AttnSw:    p.Pins.AttnSw,
			RotarySw:  p.Pins.RotarySw,
			RotaryA:   p.Pins.RotaryA,
			RotaryB:   p.Pins.RotaryB,
		})
		if err != nil {
			return nil, err
		}
		pins = board.Pins{
			OpPort:    gb.OpPort,
			DataPort:  gb.DataPort,
			DataLatch: gb.DataLatch,
			DataRD:    gb.DataRD,
			DataWR:    gb.DataWR,
			DevicePwr: gb.DevicePwr,
			AttnSw:    gb.AttnSw,
			RotarySw:  gb.RotarySw,
			RotaryA:   gb.RotaryA,
			RotaryB:   gb.RotaryB,
		}
	default:
		return nil, fmt.Errorf("boot: unknown backend %q", p.Backend)
	}

	a.Brd = board.New(pins, hal.WallClock{})

	// --------------------
	// Kernel: queues, pools, scheduler
	// --------------------

	a.K = kernel.New(hal.WallClock{})
	a.K.Init(false)

	// --------------------
	// Flash engine
	// --------------------

	a.PDO = flash.NewPDO(a.Brd)
	mode, err := flash.ParsePowerMode(p.PowerMode)
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	a.PDO.SetPowerMode(mode)
	a.Eng = flash.NewEngine(a.PDO, os.DirFS(p.SDMount))

	// --------------------
	// Console
	// --------------------

	if p.Serial.Port != "" {
		a.Trm, err = term.Open(term.Config{
			Address:  p.Serial.Port,
			BaudRate: p.Serial.Baud,
			DataBits: p.Serial.DataBits,
			StopBits: p.Serial.StopBits,
			Parity:   p.Serial.Parity,
			Timeout:  time.Duration(p.Serial.TimeoutMs) * time.Millisecond,
		}, a.K)
		if err != nil {
			return nil, err
		}
	} else {
		// A sim run without a serial port takes the console over stdio.
		a.Trm = term.New(stdioRW{}, a.K)
	}

	// --------------------
	// Routers
	// --------------------

	a.Shell = shell.New(a.K, a.Eng, a.Trm)
	a.Shell.SetDebug(p.Debug)
	a.Switches = switches.NewRouter(a.K, a.Brd)
	a.Switches.SetTiming(
		int32(p.Timing.DebounceMs),
		int32(p.Timing.LongpressMs),
		int32(p.Timing.RepeatMs),
	)
	var disp display.Display
	if p.Debug {
		disp = display.Logged{}
	}
	a.Display = display.NewRouter(disp)

	return a, nil
}

// Run starts the tick source, launches the interactive core, and runs the
// hardware core's loop on the calling goroutine until the context ends.
func (a *App) Run(ctx context.Context) {
	a.K.StartTicker(ctx)
	go a.K.MessageLoop(ctx, kernel.CoreUI, a.uiStart)
	a.K.MessageLoop(ctx, kernel.CoreHW, a.hwStart)
}

// Close releases the console port.
func (a *App) Close() {
	if a.Trm != nil {
		a.Trm.Close()
	}
}

// hwStart is the hardware core's init chain. It runs inside the loop, so
// every module it starts registers handlers from its own core.
func (a *App) hwStart(*kernel.Msg) {
	if a.hwStarted {
		a.Brd.Panic("boot: hardware init reentered")
		return
	}
	a.hwStarted = true

	a.Switches.Start()
	if a.PDO.PowerModeGet() == flash.PowerModeOn {
		a.PDO.RequestPowerOn(true)
	}

	log.Printf("boot: hardware core up")
	a.K.Post(kernel.CoreUI, kernel.NewMsg(kernel.MsgHWStarted))
}

// uiStart is the interactive core's init chain: terminal input, display
// routing, shell, greeting.
func (a *App) uiStart(*kernel.Msg) {
	if a.uiStarted {
		a.Brd.Panic("boot: interactive init reentered")
		return
	}
	a.uiStarted = true

	a.Trm.Start()
	a.Display.Start(a.K)
	a.Trm.Printf("\r\nFlash Programmer\r\n")
	a.Shell.Start()
	display.Post(a.K, "READY")

	log.Printf("boot: interactive core up")
	a.K.Post(kernel.CoreHW, kernel.NewMsg(kernel.MsgUIStarted))
}

// stdioRW adapts the process stdio to the console stream interface.
type stdioRW struct{}

func (stdioRW) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioRW) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

var _ io.ReadWriter = stdioRW{}
