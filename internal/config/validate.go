// internal/config/validate.go
package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	p := &cfg.Programmer

	// ------------------------------------------------------------
	// BACKEND / POWER MODE
	// ------------------------------------------------------------

	switch p.Backend {
	case "", "sim", "gpio":
	default:
		return fmt.Errorf("backend %q: must be sim or gpio", p.Backend)
	}

	switch p.PowerMode {
	case "", "off", "on", "auto":
	default:
		return fmt.Errorf("power_mode %q: must be off, on or auto", p.PowerMode)
	}

	// ------------------------------------------------------------
	// SERIAL
	// ------------------------------------------------------------

	if p.Serial.Baud < 0 {
		return fmt.Errorf("serial baud %d: must be positive", p.Serial.Baud)
	}
	switch p.Serial.DataBits {
	case 0, 5, 6, 7, 8:
	default:
		return fmt.Errorf("serial data_bits %d: must be 5-8", p.Serial.DataBits)
	}
	switch p.Serial.StopBits {
	case 0, 1, 2:
	default:
		return fmt.Errorf("serial stop_bits %d: must be 1 or 2", p.Serial.StopBits)
	}
	switch p.Serial.Parity {
	case "", "N", "E", "O":
	default:
		return fmt.Errorf("serial parity %q: must be N, E or O", p.Serial.Parity)
	}

	// ------------------------------------------------------------
	// PIN MAP (gpio backend only)
	// ------------------------------------------------------------

	if p.Backend == "gpio" {
		if p.Serial.Port == "" {
			return fmt.Errorf("gpio backend requires serial port for the console")
		}
		// Every assigned GPIO must be unique. The op and data groups
		// occupy consecutive numbers from their base.
		owner := make(map[int]string)
		claim := func(pin int, name string) error {
			if pin < 0 {
				return fmt.Errorf("pin %s: %d is not a valid GPIO", name, pin)
			}
			if prev, exists := owner[pin]; exists {
				return fmt.Errorf("pin collision: GPIO%d assigned to both %s and %s", pin, prev, name)
			}
			owner[pin] = name
			return nil
		}
		for i := 0; i < 3; i++ {
			if err := claim(p.Pins.OpBase+i, fmt.Sprintf("op_base+%d", i)); err != nil {
				return err
			}
		}
		for i := 0; i < 8; i++ {
			if err := claim(p.Pins.DataBase+i, fmt.Sprintf("data_base+%d", i)); err != nil {
				return err
			}
		}
		singles := []struct {
			pin  int
			name string
		}{
			{p.Pins.DataLatch, "data_latch"},
			{p.Pins.DataRD, "data_rd"},
			{p.Pins.DataWR, "data_wr"},
			{p.Pins.DevicePwr, "device_pwr"},
			{p.Pins.AttnSw, "attn_sw"},
			{p.Pins.RotarySw, "rotary_sw"},
			{p.Pins.RotaryA, "rotary_a"},
			{p.Pins.RotaryB, "rotary_b"},
		}
		for _, s := range singles {
			if err := claim(s.pin, s.name); err != nil {
				return err
			}
		}
	}

	// ------------------------------------------------------------
	// TIMING
	// ------------------------------------------------------------

	if p.Timing.DebounceMs < 0 || p.Timing.LongpressMs < 0 || p.Timing.RepeatMs < 0 {
		return fmt.Errorf("timing values must not be negative")
	}
	if p.Timing.LongpressMs > 0 && p.Timing.DebounceMs > 0 &&
		p.Timing.LongpressMs <= p.Timing.DebounceMs {
		return fmt.Errorf("timing: longpress_ms (%d) must exceed debounce_ms (%d)",
			p.Timing.LongpressMs, p.Timing.DebounceMs)
	}

	return nil
}
