// internal/kernel/pool.go
package kernel

import (
	"fmt"
	"strings"
	"sync"
)

// Fixed free-list pools, used instead of per-registration allocation so a
// leak or a runaway schedule shows up as a hard fault instead of slow
// memory growth. Exhaustion of either pool is fatal.

// Enough entries for 4 handlers for each possible message ID.
const handlerPoolSize = MsgIDCount * 4

// Allow for 32 outstanding scheduled messages (including sleeps).
const schedPoolSize = 32

type handlerEnt struct {
	core  Core
	fn    Handler
	key   uintptr
	next  *handlerEnt
	inUse bool
	pool  *handlerPool
}

type handlerPool struct {
	mu      sync.Mutex
	entries [handlerPoolSize]handlerEnt
	free    *handlerEnt
}

func newHandlerPool() *handlerPool {
	p := &handlerPool{}
	for i := range p.entries {
		p.entries[i].pool = p
		p.entries[i].next = p.free
		p.free = &p.entries[i]
	}
	return p
}

func (p *handlerPool) alloc(panicf func(string, ...any)) *handlerEnt {
	p.mu.Lock()
	defer p.mu.Unlock()
	ent := p.free
	if ent == nil {
		panicf("kernel: out of message handler entries")
		return nil
	}
	p.free = ent.next
	ent.inUse = true
	ent.next = nil
	return ent
}

func (p *handlerPool) ret(ent *handlerEnt) {
	if ent == nil {
		return
	}
	p.mu.Lock()
	ent.inUse = false
	ent.fn = nil
	ent.key = 0
	ent.next = p.free
	p.free = ent
	p.mu.Unlock()
}

// owns reports whether the entry belongs to this pool. The registry sanity
// walk uses it to catch corruption.
func (p *handlerPool) owns(ent *handlerEnt) bool {
	return ent != nil && ent.pool == p
}

type schedEnt struct {
	core      Core
	requested int32 // ms, as asked for
	remaining int32 // ms, relative to the predecessor entry
	msg       Msg
	next      *schedEnt
	inUse     bool
	pool      *schedPool
}

type schedPool struct {
	mu      sync.Mutex
	entries [schedPoolSize]schedEnt
	free    *schedEnt
}

func newSchedPool() *schedPool {
	p := &schedPool{}
	for i := range p.entries {
		p.entries[i].pool = p
		p.entries[i].next = p.free
		p.free = &p.entries[i]
	}
	return p
}

func (p *schedPool) alloc(panicf func(string, ...any)) *schedEnt {
	p.mu.Lock()
	defer p.mu.Unlock()
	ent := p.free
	if ent == nil {
		// Dump every entry before halting so the runaway scheduler can
		// be identified from the console.
		var sb strings.Builder
		for i := range p.entries {
			e := &p.entries[i]
			fmt.Fprintf(&sb, "\n ent[%2d]: msg=%02X core=%d req=%5d rem=%5d inuse=%v",
				i, e.msg.ID, e.core, e.requested, e.remaining, e.inUse)
		}
		panicf("kernel: out of scheduled message entries%s", sb.String())
		return nil
	}
	p.free = ent.next
	ent.inUse = true
	ent.next = nil
	return ent
}

func (p *schedPool) ret(ent *schedEnt, panicf func(string, ...any)) {
	if ent == nil {
		panicf("kernel: scheduled entry return with nil entry")
		return
	}
	p.mu.Lock()
	ent.inUse = false
	ent.msg = Msg{}
	ent.next = p.free
	p.free = ent
	p.mu.Unlock()
}
