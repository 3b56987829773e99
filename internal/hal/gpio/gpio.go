// internal/hal/gpio/gpio.go

// Package gpio implements the hal interfaces on Raspberry Pi GPIO lines
// through periph.io. It exposes the same pin set the simulated board does,
// so the boot sequence treats both backends alike.
package gpio

import (
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/tamzrod/flash-programmer/internal/hal"
)

// PinMap holds BCM GPIO numbers for every board line. OpBase and DataBase
// are the first of 3 and 8 consecutive lines.
type PinMap struct {
	OpBase   int
	DataBase int

	DataLatch int
	DataRD    int
	DataWR    int
	DevicePwr int

	AttnSw   int
	RotarySw int
	RotaryA  int
	RotaryB  int
}

// Board is the physical programmer board reached over the Pi header.
type Board struct {
	OpPort   *Port
	DataPort *Port

	DataLatch *Pin
	DataRD    *Pin
	DataWR    *Pin
	DevicePwr *Pin

	AttnSw   *Pin
	RotarySw *Pin
	RotaryA  *Pin
	RotaryB  *Pin
}

// Open initializes the host GPIO driver and claims every line in the map.
func Open(pm PinMap) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: host init: %w", err)
	}

	b := &Board{}
	var err error
	if b.OpPort, err = openPort(pm.OpBase, 3, hal.DirOut); err != nil {
		return nil, err
	}
	if b.DataPort, err = openPort(pm.DataBase, 8, hal.DirIn); err != nil {
		return nil, err
	}
	outs := []struct {
		dst   **Pin
		num   int
		level bool
	}{
		{&b.DataLatch, pm.DataLatch, true},
		{&b.DataRD, pm.DataRD, true},
		{&b.DataWR, pm.DataWR, true},
		{&b.DevicePwr, pm.DevicePwr, false},
	}
	for _, o := range outs {
		if *o.dst, err = openOutput(o.num, o.level); err != nil {
			return nil, err
		}
	}
	ins := []struct {
		dst **Pin
		num int
	}{
		{&b.AttnSw, pm.AttnSw},
		{&b.RotarySw, pm.RotarySw},
		{&b.RotaryA, pm.RotaryA},
		{&b.RotaryB, pm.RotaryB},
	}
	for _, i := range ins {
		if *i.dst, err = openInput(i.num); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func lookup(num int) (pgpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", num)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: no pin named %s", name)
	}
	return p, nil
}

// ---- Pin ----

// Pin is one GPIO line. Watch runs edge callbacks on a dedicated goroutine
// blocked in WaitForEdge, the closest the Pi gets to an edge interrupt.
type Pin struct {
	p      pgpio.PinIO
	dir    hal.Dir
	driven bool
}

func openOutput(num int, level bool) (*Pin, error) {
	p, err := lookup(num)
	if err != nil {
		return nil, err
	}
	if err := p.Out(pgpio.Level(level)); err != nil {
		return nil, fmt.Errorf("gpio: %s out: %w", p.Name(), err)
	}
	return &Pin{p: p, dir: hal.DirOut, driven: level}, nil
}

func openInput(num int) (*Pin, error) {
	p, err := lookup(num)
	if err != nil {
		return nil, err
	}
	if err := p.In(pgpio.PullUp, pgpio.BothEdges); err != nil {
		return nil, fmt.Errorf("gpio: %s in: %w", p.Name(), err)
	}
	return &Pin{p: p, dir: hal.DirIn}, nil
}

func (p *Pin) Get() bool {
	if p.dir == hal.DirOut {
		return p.driven
	}
	return p.p.Read() == pgpio.High
}

func (p *Pin) Put(level bool) {
	p.driven = level
	p.p.Out(pgpio.Level(level))
}

func (p *Pin) SetDir(d hal.Dir) {
	if d == p.dir {
		return
	}
	p.dir = d
	if d == hal.DirOut {
		p.p.Out(pgpio.Level(p.driven))
	} else {
		p.p.In(pgpio.PullUp, pgpio.BothEdges)
	}
}

func (p *Pin) Dir() hal.Dir { return p.dir }

// Watch starts edge delivery. The callback runs on the watch goroutine and
// must only post messages and return.
func (p *Pin) Watch(fn func(hal.Edge)) {
	go func() {
		for {
			if !p.p.WaitForEdge(-1) {
				continue
			}
			if p.p.Read() == pgpio.High {
				fn(hal.EdgeRise)
			} else {
				fn(hal.EdgeFall)
			}
		}
	}()
}

// ---- Port ----

// Port groups consecutive GPIO lines into one value, bit 0 on the lowest
// number. The Pi has no banked masked write, so Write walks the bits.
type Port struct {
	pins   []pgpio.PinIO
	dir    hal.Dir
	driven uint8
}

func openPort(base, width int, d hal.Dir) (*Port, error) {
	port := &Port{pins: make([]pgpio.PinIO, width), dir: d}
	for i := 0; i < width; i++ {
		p, err := lookup(base + i)
		if err != nil {
			return nil, err
		}
		port.pins[i] = p
	}
	port.SetDir(d)
	return port, nil
}

func (p *Port) Read() uint8 {
	if p.dir == hal.DirOut {
		return p.driven
	}
	var v uint8
	for i, pin := range p.pins {
		if pin.Read() == pgpio.High {
			v |= 1 << i
		}
	}
	return v
}

func (p *Port) Write(v uint8) {
	p.driven = v
	for i, pin := range p.pins {
		pin.Out(pgpio.Level(v&(1<<i) != 0))
	}
}

func (p *Port) SetDir(d hal.Dir) {
	p.dir = d
	for _, pin := range p.pins {
		if d == hal.DirOut {
			pin.Out(pgpio.Low)
		} else {
			pin.In(pgpio.PullUp, pgpio.NoEdge)
		}
	}
	if d == hal.DirOut {
		p.driven = 0
	}
}

func (p *Port) Dir() hal.Dir { return p.dir }
