// internal/config/validate_test.go
package config

import (
	"strings"
	"testing"
)

func validBase() *Config {
	return &Config{
		Programmer: ProgrammerConfig{
			Backend:   "gpio",
			PowerMode: "auto",
			Serial: SerialConfig{
				Port: "/dev/ttyAMA0",
			},
			Pins: PinConfig{
				OpBase:    2,  // 2,3,4
				DataBase:  5,  // 5..12
				DataLatch: 13,
				DataRD:    16,
				DataWR:    17,
				DevicePwr: 18,
				AttnSw:    19,
				RotarySw:  20,
				RotaryA:   21,
				RotaryB:   22,
			},
		},
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	if err := Validate(validBase()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAcceptsEmptySimConfig(t *testing.T) {
	// The sim backend needs no serial port and no pin map.
	if err := Validate(&Config{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := validBase()
	cfg.Programmer.Backend = "spi"
	mustFail(t, cfg, "backend")
}

func TestValidateRejectsUnknownPowerMode(t *testing.T) {
	cfg := validBase()
	cfg.Programmer.PowerMode = "half"
	mustFail(t, cfg, "power_mode")
}

func TestValidateRejectsGpioWithoutSerialPort(t *testing.T) {
	cfg := validBase()
	cfg.Programmer.Serial.Port = ""
	mustFail(t, cfg, "serial port")
}

func TestValidateRejectsPinCollision(t *testing.T) {
	cfg := validBase()
	cfg.Programmer.Pins.DataRD = cfg.Programmer.Pins.DataLatch
	mustFail(t, cfg, "collision")
}

func TestValidateRejectsOverlappingPinGroups(t *testing.T) {
	cfg := validBase()
	cfg.Programmer.Pins.DataBase = cfg.Programmer.Pins.OpBase + 2
	mustFail(t, cfg, "collision")
}

func TestValidateRejectsNegativePin(t *testing.T) {
	cfg := validBase()
	cfg.Programmer.Pins.DevicePwr = -1
	mustFail(t, cfg, "device_pwr")
}

func TestValidateRejectsBadSerial(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"data bits", func(c *Config) { c.Programmer.Serial.DataBits = 9 }, "data_bits"},
		{"stop bits", func(c *Config) { c.Programmer.Serial.StopBits = 3 }, "stop_bits"},
		{"parity", func(c *Config) { c.Programmer.Serial.Parity = "M" }, "parity"},
		{"baud", func(c *Config) { c.Programmer.Serial.Baud = -1 }, "baud"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBase()
			tc.mut(cfg)
			mustFail(t, cfg, tc.want)
		})
	}
}

func TestValidateRejectsLongpressInsideDebounce(t *testing.T) {
	cfg := validBase()
	cfg.Programmer.Timing.DebounceMs = 100
	cfg.Programmer.Timing.LongpressMs = 100
	mustFail(t, cfg, "longpress_ms")
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{}
	Normalize(cfg)
	p := cfg.Programmer
	if p.Backend != "sim" {
		t.Errorf("backend = %q, want sim", p.Backend)
	}
	if p.PowerMode != "auto" {
		t.Errorf("power_mode = %q, want auto", p.PowerMode)
	}
	if p.SDMount != "." {
		t.Errorf("sd_mount = %q, want .", p.SDMount)
	}
	if p.Serial.Baud != 115200 || p.Serial.DataBits != 8 ||
		p.Serial.StopBits != 1 || p.Serial.Parity != "N" {
		t.Errorf("serial defaults wrong: %+v", p.Serial)
	}
	if p.Timing.DebounceMs != 80 || p.Timing.LongpressMs != 450 || p.Timing.RepeatMs != 250 {
		t.Errorf("timing defaults wrong: %+v", p.Timing)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Programmer.Serial.Baud = 9600
	cfg.Programmer.Timing.LongpressMs = 800
	Normalize(cfg)
	if cfg.Programmer.Serial.Baud != 9600 {
		t.Errorf("baud = %d, want 9600", cfg.Programmer.Serial.Baud)
	}
	if cfg.Programmer.Timing.LongpressMs != 800 {
		t.Errorf("longpress_ms = %d, want 800", cfg.Programmer.Timing.LongpressMs)
	}
}

func mustFail(t *testing.T, cfg *Config, want string) {
	t.Helper()
	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q does not mention %q", err, want)
	}
}
