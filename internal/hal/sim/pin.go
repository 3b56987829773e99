// internal/hal/sim/pin.go
package sim

import (
	"sync"

	"github.com/tamzrod/flash-programmer/internal/hal"
)

// Pin is a simulated GPIO line. Output pins notify the board model on level
// changes; input pins deliver edges to a watch callback the way a GPIO
// interrupt would. Input levels may be driven and sampled from different
// goroutines, as real pins are.
type Pin struct {
	b      *Board
	dir    hal.Dir
	mu     sync.Mutex
	level  bool
	onEdge func(rise bool)  // board-side hook for MCU-driven pins
	watch  func(e hal.Edge) // MCU-side interrupt callback for input pins
}

func (b *Board) newPin(initial bool, onEdge func(rise bool)) *Pin {
	return &Pin{b: b, dir: hal.DirOut, level: initial, onEdge: onEdge}
}

func (b *Board) newInputPin(initial bool) *Pin {
	return &Pin{b: b, dir: hal.DirIn, level: initial}
}

func (p *Pin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *Pin) Put(level bool) {
	p.mu.Lock()
	if p.level == level {
		p.mu.Unlock()
		return
	}
	p.level = level
	p.mu.Unlock()
	if p.onEdge != nil {
		p.onEdge(level)
	}
}

func (p *Pin) SetDir(d hal.Dir) { p.dir = d }
func (p *Pin) Dir() hal.Dir     { return p.dir }

// Watch registers an edge callback, mirroring a GPIO edge interrupt.
func (p *Pin) Watch(fn func(e hal.Edge)) { p.watch = fn }

// SetInput drives the pin from the outside world (a button, the encoder).
// The registered watch callback fires on the transition.
func (p *Pin) SetInput(level bool) {
	p.mu.Lock()
	if p.level == level {
		p.mu.Unlock()
		return
	}
	p.level = level
	p.mu.Unlock()
	if p.watch != nil {
		if level {
			p.watch(hal.EdgeRise)
		} else {
			p.watch(hal.EdgeFall)
		}
	}
}

// Port is a simulated pin bank written as a unit.
type Port struct {
	width     int
	dir       hal.Dir
	driven    uint8
	pullUp    bool
	onWrite   func(prev, next uint8)
	readValue func() uint8
}

func (p *Port) Read() uint8 {
	if p.dir == hal.DirOut {
		return p.driven
	}
	if p.readValue != nil {
		return p.readValue()
	}
	if p.pullUp {
		return uint8(1<<p.width - 1)
	}
	return 0
}

func (p *Port) Write(v uint8) {
	v &= uint8(1<<p.width - 1)
	prev := p.driven
	p.driven = v
	if p.onWrite != nil {
		p.onWrite(prev, v)
	}
}

func (p *Port) SetDir(d hal.Dir) { p.dir = d }
func (p *Port) Dir() hal.Dir     { return p.dir }
