// internal/status/snapshot.go

// Package status carries the last-second process-status report: a pure
// snapshot of both core loops plus the scheduled-message tally, and the
// encoding of that snapshot into terminal lines. No IO, no side effects.
package status

import "github.com/tamzrod/flash-programmer/internal/kernel"

// Snapshot represents exactly what the report is allowed to show. It
// contains no logic and no memory of the past beyond the last window.
type Snapshot struct {
	Cores [2]kernel.ProcStatus
	Sched kernel.SchedCounts
}

// Collect captures a snapshot from the kernel.
func Collect(k *kernel.Kernel) Snapshot {
	return Snapshot{
		Cores: [2]kernel.ProcStatus{
			k.ProcStatusSec(kernel.CoreHW),
			k.ProcStatusSec(kernel.CoreUI),
		},
		Sched: k.ScheduledCounts(),
	}
}
