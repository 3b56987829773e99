// internal/kernel/queue.go
package kernel

import (
	"fmt"
	"strings"
)

// The two core queues carry messages by value. Posting stamps the sequence
// number and the millisecond post time.

func (k *Kernel) stamp(m *Msg) {
	m.Seq = k.seq.Add(1)
	m.PostedMS = k.nowMS()
}

// Post enqueues a required message. A full queue is fatal: the queue
// contents are dumped first so the stall can be diagnosed from the console.
func (k *Kernel) Post(core Core, m Msg) {
	k.stamp(&m)
	select {
	case k.queues[core&1] <- m:
		return
	default:
	}
	k.postErrs[core&1].Add(1)
	if k.noPostPanic {
		return
	}
	var sb strings.Builder
	for {
		select {
		case q := <-k.queues[core&1]:
			fmt.Fprintf(&sb, " %02X", uint8(q.ID))
			continue
		default:
		}
		break
	}
	k.Panicf("kernel: required msg %02X could not post to core %d; cur/last %02X; queued:%s",
		uint8(m.ID), core&1, uint8(k.CurLastMsg(core)), sb.String())
}

// PostNoWait enqueues if there is room and reports whether it did.
func (k *Kernel) PostNoWait(core Core, m Msg) bool {
	k.stamp(&m)
	select {
	case k.queues[core&1] <- m:
		return true
	default:
		return false
	}
}

// getNoWait retrieves the next message without waiting.
func (k *Kernel) getNoWait(core Core) (Msg, bool) {
	select {
	case m := <-k.queues[core&1]:
		return m, true
	default:
		return Msg{}, false
	}
}

// GetBlocking retrieves the next message, waiting for one to arrive.
func (k *Kernel) GetBlocking(core Core) Msg {
	return <-k.queues[core&1]
}

// QueueDepth returns the number of messages waiting for a core.
func (k *Kernel) QueueDepth(core Core) int {
	return len(k.queues[core&1])
}
