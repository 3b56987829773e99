// internal/config/normalize.go
package config

// Normalize fills in defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	p := &cfg.Programmer

	if p.Backend == "" {
		p.Backend = "sim"
	}
	if p.PowerMode == "" {
		p.PowerMode = "auto"
	}
	if p.SDMount == "" {
		p.SDMount = "."
	}

	// ---- SERIAL ----

	if p.Serial.Baud == 0 {
		p.Serial.Baud = 115200
	}
	if p.Serial.DataBits == 0 {
		p.Serial.DataBits = 8
	}
	if p.Serial.StopBits == 0 {
		p.Serial.StopBits = 1
	}
	if p.Serial.Parity == "" {
		p.Serial.Parity = "N"
	}
	if p.Serial.TimeoutMs == 0 {
		p.Serial.TimeoutMs = 100
	}

	// ---- TIMING ----

	if p.Timing.DebounceMs == 0 {
		p.Timing.DebounceMs = 80
	}
	if p.Timing.LongpressMs == 0 {
		p.Timing.LongpressMs = 450
	}
	if p.Timing.RepeatMs == 0 {
		p.Timing.RepeatMs = 250
	}
}
