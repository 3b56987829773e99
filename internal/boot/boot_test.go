// internal/boot/boot_test.go
package boot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tamzrod/flash-programmer/internal/config"
	"github.com/tamzrod/flash-programmer/internal/flash"
	"github.com/tamzrod/flash-programmer/internal/kernel"
)

func simConfig() *config.Config {
	cfg := &config.Config{}
	config.Normalize(cfg)
	return cfg
}

func TestNewBuildsSimBackend(t *testing.T) {
	app, err := New(simConfig())
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	defer app.Close()
	if app.Sim == nil {
		t.Fatal("sim backend not selected")
	}
	if app.K == nil || app.Brd == nil || app.Eng == nil || app.Trm == nil {
		t.Fatal("component graph incomplete")
	}
	if app.PDO.PowerModeGet() != flash.PowerModeAuto {
		t.Fatalf("power mode = %v, want auto", app.PDO.PowerModeGet())
	}
}

func TestNewRejectsBadPowerMode(t *testing.T) {
	cfg := simConfig()
	cfg.Programmer.PowerMode = "half"
	if _, err := New(cfg); err == nil {
		t.Fatal("bad power mode accepted")
	}
}

func TestInitChainsRunOncePerCore(t *testing.T) {
	app, err := New(simConfig())
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	defer app.Close()

	// The chains cross-announce to the other core.
	found := map[kernel.MsgID]bool{}
	app.K.AddHandler(kernel.MsgHWStarted, kernel.CoreUI, func(m *kernel.Msg) { found[m.ID] = true })
	app.K.AddHandler(kernel.MsgUIStarted, kernel.CoreHW, func(m *kernel.Msg) { found[m.ID] = true })

	app.hwStart(nil)
	app.uiStart(nil)
	if !app.hwStarted || !app.uiStarted {
		t.Fatal("init chains did not mark themselves done")
	}
	for app.K.PumpOne(kernel.CoreHW) {
	}
	for app.K.PumpOne(kernel.CoreUI) {
	}
	if !found[kernel.MsgHWStarted] || !found[kernel.MsgUIStarted] {
		t.Fatalf("cross announcements = %v", found)
	}
}

func TestReentrantInitIsFatal(t *testing.T) {
	app, err := New(simConfig())
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	defer app.Close()

	var msg string
	app.Brd.Panicf = func(format string, args ...any) {
		msg = fmt.Sprintf(format, args...)
		panic(msg)
	}
	app.hwStart(nil)
	func() {
		defer func() { recover() }()
		app.hwStart(nil)
	}()
	if !strings.Contains(msg, "reentered") {
		t.Fatalf("second init did not halt: %q", msg)
	}
}
