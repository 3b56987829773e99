// internal/config/config.go
package config

type Config struct {
	Programmer ProgrammerConfig `yaml:"programmer"`
}

type ProgrammerConfig struct {
	// Backend selects the hardware layer: "sim" or "gpio".
	Backend string `yaml:"backend"`

	// PowerMode is the startup target-device power mode: off|on|auto.
	PowerMode string `yaml:"power_mode"`

	Debug bool `yaml:"debug"`

	// SDMount is the directory image files are read from.
	SDMount string `yaml:"sd_mount"`

	Serial SerialConfig `yaml:"serial"`
	Pins   PinConfig    `yaml:"pins"`
	Timing TimingConfig `yaml:"timing"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Port      string `yaml:"port"`
	Baud      int    `yaml:"baud"`
	DataBits  int    `yaml:"data_bits"`
	StopBits  int    `yaml:"stop_bits"`
	Parity    string `yaml:"parity"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- PINS (gpio backend only) ----

// PinConfig holds BCM GPIO numbers. OpBase is the first of three
// consecutive decoder-select lines; DataBase the first of eight
// consecutive data-bus lines.
type PinConfig struct {
	OpBase   int `yaml:"op_base"`
	DataBase int `yaml:"data_base"`

	DataLatch int `yaml:"data_latch"`
	DataRD    int `yaml:"data_rd"`
	DataWR    int `yaml:"data_wr"`
	DevicePwr int `yaml:"device_pwr"`

	AttnSw   int `yaml:"attn_sw"`
	RotarySw int `yaml:"rotary_sw"`
	RotaryA  int `yaml:"rotary_a"`
	RotaryB  int `yaml:"rotary_b"`
}

// ---- TIMING ----

type TimingConfig struct {
	DebounceMs  int `yaml:"debounce_ms"`
	LongpressMs int `yaml:"longpress_ms"`
	RepeatMs    int `yaml:"repeat_ms"`
}
