// internal/kernel/registry.go
package kernel

// The handler registry maps message ID to a chain of {core, fn} entries.
// Insertion is push-front; lookup walks the chain. Registrations normally
// happen before the loops reach steady state or from within handlers.

// AddHandler registers fn for id on the given core. CoreBoth registers for
// dispatch on either core; such handlers must be idempotent, because a
// message posted to both cores runs them once per core.
func (k *Kernel) AddHandler(id MsgID, core Core, fn Handler) {
	ent := k.hpool.alloc(k.Panicf)
	ent.fn = fn
	ent.key = handlerKey(fn)
	ent.core = core
	k.regMu.Lock()
	ent.next = k.handlers[id]
	k.handlers[id] = ent
	k.regMu.Unlock()
}

// RemoveHandler removes the registration matching {core, fn} for id.
func (k *Kernel) RemoveHandler(id MsgID, core Core, fn Handler) {
	key := handlerKey(fn)
	k.regMu.Lock()
	var prev *handlerEnt
	for ent := k.handlers[id]; ent != nil; ent = ent.next {
		if ent.core == core && ent.key == key {
			if prev != nil {
				prev.next = ent.next
			} else {
				k.handlers[id] = ent.next
			}
			k.regMu.Unlock()
			k.hpool.ret(ent)
			return
		}
		prev = ent
	}
	k.regMu.Unlock()
}

// handlersFor snapshots the chain for one ID filtered to a core. The
// snapshot keeps dispatch safe while handlers mutate the registry; an
// entry removed mid-dispatch may still run once for the current message.
func (k *Kernel) handlersFor(id MsgID, core Core) []Handler {
	k.regMu.RLock()
	defer k.regMu.RUnlock()
	var out []Handler
	for ent := k.handlers[id]; ent != nil; ent = ent.next {
		if ent.core == core || ent.core == CoreBoth {
			out = append(out, ent.fn)
		}
	}
	return out
}

// VerifyHandlers walks the whole registry and halts if any chain entry is
// not a live member of the handler pool. Run periodically as a sanity
// check against memory corruption.
func (k *Kernel) VerifyHandlers() {
	bad := -1
	k.regMu.RLock()
	for id := 0; id < MsgIDCount && bad < 0; id++ {
		for ent := k.handlers[id]; ent != nil; ent = ent.next {
			if !k.hpool.owns(ent) || !ent.inUse {
				bad = id
				break
			}
		}
	}
	k.regMu.RUnlock()
	if bad >= 0 {
		k.Panicf("kernel: handler registry entry for msg %02X is not a live pool entry", bad)
	}
}
