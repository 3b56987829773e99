// internal/kernel/kernel.go
package kernel

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/flash-programmer/internal/hal"
)

const queueDepth = 64

// Kernel holds the state shared by the two message loops: the core queues,
// the handler registry, the scheduled-message list, and the free pools.
type Kernel struct {
	clock hal.Clock
	epoch time.Time

	// Panicf is the fatal-condition hook (pool exhaustion, required post
	// on a full queue, token misuse). Tests replace it.
	Panicf func(format string, args ...any)

	queues [coreCount]chan Msg
	seq    atomic.Int32

	regMu    sync.RWMutex
	handlers [MsgIDCount]*handlerEnt
	hpool    *handlerPool

	schedMu   sync.Mutex
	schedHead *schedEnt
	spool     *schedPool

	psaMu   sync.Mutex
	psa     [coreCount]procAccum
	psaSec  [coreCount]procAccum
	curLast [coreCount]MsgID

	loopRunning [coreCount]atomic.Bool

	tickCount   uint8 // 4-bit, periodic message every 16 ticks
	perPending  [coreCount]atomic.Bool
	periodCount atomic.Uint32

	postErrs    [coreCount]atomic.Int32
	noPostPanic bool // debug aid: drop required posts instead of halting

	initialized bool
}

// New creates the kernel. A second call with the same clock is fine; the
// single-init guard lives in module wiring, not here.
func New(clock hal.Clock) *Kernel {
	k := &Kernel{
		clock:  clock,
		epoch:  clock.Now(),
		Panicf: func(format string, args ...any) { log.Panicf(format, args...) },
		hpool:  newHandlerPool(),
		spool:  newSchedPool(),
	}
	for c := range k.queues {
		k.queues[c] = make(chan Msg, queueDepth)
	}
	return k
}

// Init finishes module initialization. Calling it twice is fatal.
func (k *Kernel) Init(noPostPanic bool) {
	if k.initialized {
		k.Panicf("kernel: init called more than once")
		return
	}
	k.initialized = true
	k.noPostPanic = noPostPanic
	k.VerifyHandlers()
}

func (k *Kernel) nowUS() int64 {
	return k.clock.Now().Sub(k.epoch).Microseconds()
}

func (k *Kernel) nowMS() uint32 {
	return uint32(k.clock.Now().Sub(k.epoch).Milliseconds())
}

// LoopRunning reports whether the given core's loop has started.
func (k *Kernel) LoopRunning(core Core) bool {
	return k.loopRunning[core].Load()
}

// LoopsRunning reports whether both loops are up.
func (k *Kernel) LoopsRunning() bool {
	return k.loopRunning[CoreHW].Load() && k.loopRunning[CoreUI].Load()
}

// CurLastMsg returns the message ID currently or last processed by a core.
func (k *Kernel) CurLastMsg(core Core) MsgID {
	k.psaMu.Lock()
	defer k.psaMu.Unlock()
	return k.curLast[core&1]
}

// PostErrs returns the count of failed required posts for a core (only
// meaningful when the post panic is disabled for debugging).
func (k *Kernel) PostErrs(core Core) int {
	return int(k.postErrs[core&1].Load())
}
