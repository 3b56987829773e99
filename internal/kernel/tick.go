// internal/kernel/tick.go
package kernel

import (
	"context"
	"time"
)

// TickPeriod is the resolution of scheduled messages.
const TickPeriod = time.Millisecond

// registry sanity check roughly every 30 s (1875 * 16 ms).
const verifyEvery = 1875

// Tick is the 1 ms recurring handler. It expires scheduled messages and,
// every 16 ticks, posts the periodic message to each core that does not
// already have one outstanding.
func (k *Kernel) Tick() {
	k.schedMu.Lock()
	if head := k.schedHead; head != nil {
		head.remaining--
		for k.schedHead != nil && k.schedHead.remaining <= 0 {
			ent := k.schedHead
			k.schedHead = ent.next
			// Successors are relative to this entry, so no adjustment.
			k.Post(ent.core, ent.msg)
			k.spool.ret(ent, k.Panicf)
		}
	}
	k.schedMu.Unlock()

	k.tickCount = (k.tickCount + 1) & 0x0F
	if k.tickCount != 0 {
		return
	}
	if k.perPending[CoreHW].CompareAndSwap(false, true) {
		k.Post(CoreHW, NewMsgHdlr(MsgPeriodic, k.periodicHW))
	}
	if k.perPending[CoreUI].CompareAndSwap(false, true) {
		k.Post(CoreUI, NewMsgHdlr(MsgPeriodic, k.periodicUI))
	}
}

// periodicHW clears the pending flag so another periodic message can post,
// and advances the overall period count.
func (k *Kernel) periodicHW(*Msg) {
	k.perPending[CoreHW].Store(false)
	k.periodCount.Add(1)
}

// periodicUI clears the pending flag and runs the registry sanity check
// about every 30 seconds.
func (k *Kernel) periodicUI(*Msg) {
	k.perPending[CoreUI].Store(false)
	if k.periodCount.Load()%verifyEvery == 0 {
		k.VerifyHandlers()
	}
}

// StartTicker runs the 1 ms tick until the context is canceled. On
// hardware this role is played by a timer interrupt; here it is a
// goroutine that only posts and returns, like an ISR.
func (k *Kernel) StartTicker(ctx context.Context) {
	go func() {
		t := time.NewTicker(TickPeriod)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				k.Tick()
			}
		}
	}()
}
