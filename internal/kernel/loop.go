// internal/kernel/loop.go
package kernel

import (
	"context"
	"runtime"
	"time"
)

const oneSecondUS = int64(time.Second / time.Microsecond)

// procAccum is the per-core process-status accumulator. It rolls into a
// one-second snapshot that observability code can retrieve.
type procAccum struct {
	windowStartUS int64
	activeUS      int64
	retrieved     int
	longestID     MsgID
	longestUS     int64
	queueDepth    int
}

// ProcStatus is the retrievable last-second snapshot for one core.
type ProcStatus struct {
	WindowStartUS int64
	ActiveUS      int64
	Retrieved     int
	LongestID     MsgID
	LongestUS     int64
	QueueDepth    int
}

// ProcStatusSec returns the last one-second snapshot for a core.
func (k *Kernel) ProcStatusSec(core Core) ProcStatus {
	k.psaMu.Lock()
	defer k.psaMu.Unlock()
	a := &k.psaSec[core&1]
	return ProcStatus{
		WindowStartUS: a.windowStartUS,
		ActiveUS:      a.activeUS,
		Retrieved:     a.retrieved,
		LongestID:     a.longestID,
		LongestUS:     a.longestUS,
		QueueDepth:    a.queueDepth,
	}
}

// MessageLoop runs the endless retrieve-and-dispatch loop for one core.
// It posts a loop-started message carrying the given handler first, so
// module init chains run from inside the loop. It returns only when the
// context is canceled.
func (k *Kernel) MessageLoop(ctx context.Context, core Core, started Handler) {
	core &= 1
	k.psaMu.Lock()
	k.psa[core].windowStartUS = k.nowUS()
	k.psaMu.Unlock()
	k.loopRunning[core].Store(true)
	defer k.loopRunning[core].Store(false)

	if started != nil {
		k.Post(core, NewMsgHdlr(MsgLoopStarted, started))
	}

	for ctx.Err() == nil {
		if !k.PumpOne(core) {
			// Cooperative spin between messages.
			runtime.Gosched()
		}
	}
}

// PumpOne retrieves and dispatches at most one message for a core,
// reporting whether one was processed. The message loop is built on it;
// tests drive it directly.
func (k *Kernel) PumpOne(core Core) bool {
	core &= 1
	tStart := k.nowUS()
	k.rollStatusWindow(core, tStart)

	m, ok := k.getNoWait(core)
	if !ok {
		return false
	}
	m.OnCore = core

	k.psaMu.Lock()
	k.psa[core].retrieved++
	k.curLast[core] = m.ID
	k.psaMu.Unlock()

	// Preferred handler first, then every registered handler for the ID
	// whose core mask matches, unless the abort flag stops the chain.
	if m.Hdlr != nil {
		m.Hdlr(&m)
	}
	if !m.Abort {
		for _, fn := range k.handlersFor(m.ID, core) {
			if m.Abort {
				break
			}
			fn(&m)
		}
	}

	tMsg := k.nowUS() - tStart
	k.psaMu.Lock()
	psa := &k.psa[core]
	psa.activeUS += tMsg
	if tMsg > psa.longestUS {
		psa.longestUS = tMsg
		psa.longestID = m.ID
	}
	k.psaMu.Unlock()
	return true
}

// rollStatusWindow copies the running accumulator into the last-second
// snapshot once a second and resets it.
func (k *Kernel) rollStatusWindow(core Core, nowUS int64) {
	k.psaMu.Lock()
	defer k.psaMu.Unlock()
	psa := &k.psa[core]
	if nowUS-psa.windowStartUS < oneSecondUS {
		return
	}
	sec := &k.psaSec[core]
	*sec = *psa
	sec.queueDepth = k.QueueDepth(core)
	*psa = procAccum{windowStartUS: nowUS, longestID: MsgNoop}
}
