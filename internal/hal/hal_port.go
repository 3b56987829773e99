// internal/hal/hal_port.go
package hal

// Port is a group of pins read and written as one value, the way the
// microcontroller writes a masked GPIO bank in a single operation. The
// board's 3-bit operation decoder and the 8-bit data bus are Ports.
type Port interface {
	// Read returns the current value on the port lines.
	Read() uint8
	// Write drives a value. The port must be in output direction.
	Write(v uint8)
	// SetDir reconfigures the direction of every line in the port.
	SetDir(d Dir)
	// Dir returns the configured direction.
	Dir() Dir
}
