// internal/kernel/sched.go
package kernel

// Scheduled messages live in a single sorted singly-linked list keyed by
// remaining time. Each entry's remaining-ms is relative to its predecessor:
// the head's is absolute from now, each successor's is the increment beyond
// the previous. The tick only ever decrements the head, so expiry is O(1).
//
// Invariant: the sum of remaining-ms from the head to any node equals that
// node's absolute remaining delay from now.

// Schedule posts msg to core after ms milliseconds (±1 ms of tick
// quantization).
func (k *Kernel) Schedule(core Core, ms int32, msg Msg) {
	ent := k.spool.alloc(k.Panicf)
	ent.core = core & 1
	ent.requested = ms
	ent.remaining = ms
	ent.msg = msg

	k.schedMu.Lock()
	pnext := &k.schedHead
	for *pnext != nil {
		cur := *pnext
		if ent.remaining <= cur.remaining {
			// Insert before cur; cur's remaining becomes relative to
			// the new entry.
			cur.remaining -= ent.remaining
			break
		}
		// Move past cur; the new entry's remaining becomes relative to it.
		ent.remaining -= cur.remaining
		pnext = &cur.next
	}
	ent.next = *pnext
	*pnext = ent
	k.schedMu.Unlock()
}

// Cancel removes the first scheduled entry matching {core, id, fn} and
// returns the absolute time that was remaining, or 0 if none matched. Its
// remaining time is folded into the successor to keep the list invariant.
func (k *Kernel) Cancel(id MsgID, fn Handler, core Core) int32 {
	return k.cancel(id, handlerKey(fn), core)
}

// CancelAny cancels the first {core, id} entry with no preferred handler.
func (k *Kernel) CancelAny(id MsgID, core Core) int32 {
	return k.cancel(id, 0, core)
}

func (k *Kernel) cancel(id MsgID, key uintptr, core Core) int32 {
	var remaining int32
	k.schedMu.Lock()
	pnext := &k.schedHead
	for *pnext != nil {
		ent := *pnext
		if ent.core == core&1 && ent.msg.ID == id && handlerKey(ent.msg.Hdlr) == key {
			remaining = ent.remaining
			if ent.next != nil {
				ent.next.remaining += remaining
			}
			// The returned time is absolute: fold in the predecessors.
			for e := k.schedHead; e != ent; e = e.next {
				remaining += e.remaining
			}
			*pnext = ent.next
			k.schedMu.Unlock()
			k.spool.ret(ent, k.Panicf)
			return remaining
		}
		pnext = &ent.next
	}
	k.schedMu.Unlock()
	return 0
}

// ScheduledExists reports whether a {core, id} entry is pending; a non-nil
// fn narrows the match to that preferred handler.
func (k *Kernel) ScheduledExists(id MsgID, fn Handler, core Core) bool {
	key := handlerKey(fn)
	k.schedMu.Lock()
	defer k.schedMu.Unlock()
	for ent := k.schedHead; ent != nil; ent = ent.next {
		if ent.core == core&1 && ent.msg.ID == id && (key == 0 || handlerKey(ent.msg.Hdlr) == key) {
			return true
		}
	}
	return false
}

// SchedCounts is a diagnostic tally of the scheduled-message list.
type SchedCounts struct {
	Total  int
	CoreHW int
	CoreUI int
	Sleeps int
}

// ScheduledCounts walks the list and tallies entries per core and sleeps.
func (k *Kernel) ScheduledCounts() SchedCounts {
	var c SchedCounts
	sleepKey := handlerKey(k.handleSleep)
	k.schedMu.Lock()
	defer k.schedMu.Unlock()
	for ent := k.schedHead; ent != nil; ent = ent.next {
		c.Total++
		if ent.core == CoreHW {
			c.CoreHW++
		} else {
			c.CoreUI++
		}
		if handlerKey(ent.msg.Hdlr) == sleepKey {
			c.Sleeps++
		}
	}
	return c
}

// RunAfter schedules fn(userData) on the given core after ms milliseconds.
// It is sugar over a sleep message whose preferred handler makes the call.
func (k *Kernel) RunAfter(core Core, ms int32, fn SleepFn, userData any) {
	msg := NewMsgHdlr(MsgSleep, k.handleSleep)
	msg.Data.Sleep = SleepData{Fn: fn, UserData: userData}
	k.Schedule(core, ms, msg)
}

func (k *Kernel) handleSleep(m *Msg) {
	if fn := m.Data.Sleep.Fn; fn != nil {
		fn(m.Data.Sleep.UserData)
	}
}
