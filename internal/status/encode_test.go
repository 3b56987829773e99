// internal/status/encode_test.go
package status

import (
	"strings"
	"testing"

	"github.com/tamzrod/flash-programmer/internal/kernel"
)

func TestEncode(t *testing.T) {
	s := Snapshot{}
	s.Cores[0] = kernel.ProcStatus{
		Retrieved: 12, ActiveUS: 3400, LongestID: 0x61, LongestUS: 900, QueueDepth: 2,
	}
	s.Sched = kernel.SchedCounts{Total: 3, CoreHW: 1, CoreUI: 2, Sleeps: 1}

	lines := Encode(s)
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if lines[0] != "Core 0: R:12 ACT:3400us IDLE:996600us LMSG:61 LMT:900us QD:2" {
		t.Fatalf("core line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Core 1: R:0") {
		t.Fatalf("idle core line = %q", lines[1])
	}
	if lines[2] != "Scheduled messages: 3 (hw:1 ui:2 sleeps:1)" {
		t.Fatalf("sched line = %q", lines[2])
	}
}
