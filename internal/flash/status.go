// internal/flash/status.go
package flash

// OpStatus is the latched result of the most recent device operation.
// Success is zero; every failure is a distinct negative code, which lets
// the command layer use a status directly as a command exit value.
type OpStatus int32

const (
	StatusOK OpStatus = 0

	StatusNoDevice        OpStatus = -1  // socket reads empty
	StatusNotIdentified   OpStatus = -2  // IDs read back but are not in the catalog
	StatusDevNotSupported OpStatus = -3  // device known, operation not supported on it
	StatusAddrInvalid     OpStatus = -4  // address or sector out of range
	StatusNotErased       OpStatus = -5  // target byte/sector/device not erased
	StatusEraseFailed     OpStatus = -6  // erase finished but cells are not empty
	StatusProgramFailed   OpStatus = -7  // program did not take
	StatusVerifyFailed    OpStatus = -8  // device contents differ from the file
	StatusNotReady        OpStatus = -9  // device/bus not ready for the command
	StatusFileOpError     OpStatus = -10 // file stat/open/read failed
	StatusDeviceSize      OpStatus = -11 // file is larger than the device
	StatusTimedOut        OpStatus = -12 // completion polling gave up
)

func (s OpStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoDevice:
		return "no device installed"
	case StatusNotIdentified:
		return "device not identified"
	case StatusDevNotSupported:
		return "device not supported"
	case StatusAddrInvalid:
		return "address invalid"
	case StatusNotErased:
		return "not erased"
	case StatusEraseFailed:
		return "erase failed"
	case StatusProgramFailed:
		return "program failed"
	case StatusVerifyFailed:
		return "verify failed"
	case StatusNotReady:
		return "device not ready"
	case StatusFileOpError:
		return "file operation error"
	case StatusDeviceSize:
		return "file larger than device"
	case StatusTimedOut:
		return "operation timed out"
	}
	return "unknown status"
}
