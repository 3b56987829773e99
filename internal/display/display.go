// internal/display/display.go

// Package display abstracts the on-board status display. The interactive
// core drives it through display messages; boards without a panel use the
// null implementation.
package display

import (
	"log"

	"github.com/tamzrod/flash-programmer/internal/kernel"
)

// Display is the minimal surface the rest of the system needs.
type Display interface {
	Clear()
	// Message shows a short status line to the operator.
	Message(s string)
}

// Null is the no-panel implementation.
type Null struct{}

func (Null) Clear()         {}
func (Null) Message(string) {}

// Logged echoes display traffic to the log; useful on development hosts.
type Logged struct{}

func (Logged) Clear()           { log.Print("display: clear") }
func (Logged) Message(s string) { log.Printf("display: %s", s) }

// Router delivers display messages to the configured implementation.
type Router struct {
	d Display
}

func NewRouter(d Display) *Router {
	if d == nil {
		d = Null{}
	}
	return &Router{d: d}
}

// Start registers for display messages on the interactive core.
func (r *Router) Start(k *kernel.Kernel) {
	k.AddHandler(kernel.MsgDisplayMessage, kernel.CoreUI, r.handleMessage)
}

func (r *Router) handleMessage(m *kernel.Msg) {
	r.d.Message(m.Data.Str)
}

// Post queues a message for the display from any core.
func Post(k *kernel.Kernel, s string) {
	msg := kernel.NewMsg(kernel.MsgDisplayMessage)
	msg.Data.Str = s
	k.PostNoWait(kernel.CoreUI, msg)
}
