// internal/status/encode.go
package status

import "fmt"

// window the accumulators roll over, in microseconds.
const windowUS = 1_000_000

// Encode converts a Snapshot into report lines for the terminal.
// No IO. No side effects.
func Encode(s Snapshot) []string {
	lines := make([]string, 0, 3)
	for core, ps := range s.Cores {
		idle := int64(windowUS) - ps.ActiveUS
		lines = append(lines, fmt.Sprintf(
			"Core %d: R:%d ACT:%dus IDLE:%dus LMSG:%02X LMT:%dus QD:%d",
			core, ps.Retrieved, ps.ActiveUS, idle,
			uint8(ps.LongestID), ps.LongestUS, ps.QueueDepth))
	}
	lines = append(lines, fmt.Sprintf(
		"Scheduled messages: %d (hw:%d ui:%d sleeps:%d)",
		s.Sched.Total, s.Sched.CoreHW, s.Sched.CoreUI, s.Sched.Sleeps))
	return lines
}
