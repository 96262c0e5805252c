// Package pit drives channel 0 of the legacy 8254 Programmable Interval
// Timer: the 1 kHz square wave that ticks the kernel's uptime counter, the
// halt-until-tick Sleep built on it, and the one-shot countdown used to
// calibrate the Local APIC timer against the PIT's known oscillator rate.
package pit

import "nocciolo/kernel/cpu"

const (
	// baseFrequency is the PIT's fixed oscillator frequency in Hz.
	baseFrequency = 1193182

	// tickHz is the interrupt rate Init programs channel 0 for; one tick
	// per millisecond so Now/Sleep can work in milliseconds directly.
	tickHz = 1000

	channel0Data    = 0x40
	modeCommandPort = 0x43

	// Mode/command register fields (channel, access mode, operating mode).
	selectChannel0    = 0 << 6
	accessLoAndHiByte = 3 << 4
	modeSquareWave    = 3 << 1
	modeOneShot       = 0 << 1
)

// Pit drives PIT channel 0.
type Pit struct {
	ticks uint64
}

// New returns a Pit handle. It does not touch hardware until Init is
// called.
func New() *Pit { return &Pit{} }

// Init programs channel 0 as a 1 kHz square-wave generator, so an
// interrupt fires every millisecond once the line is unmasked at whichever
// interrupt controller currently routes IRQ0.
func (p *Pit) Init() {
	reload := uint16(baseFrequency / tickHz)

	cpu.Outb(modeCommandPort, selectChannel0|accessLoAndHiByte|modeSquareWave)
	cpu.Outb(channel0Data, uint8(reload&0xFF))
	cpu.Outb(channel0Data, uint8(reload>>8))
}

// Tick increments the tick counter. Called from the timer interrupt
// handler; every increment must happen before the CPU resumes from the
// halt in Sleep, which the interrupt delivery order already guarantees.
func (p *Pit) Tick() { p.ticks++ }

// Now returns the number of timer ticks observed since boot. With Init's
// 1 kHz programming a tick is one millisecond.
func (p *Pit) Now() uint64 { return p.ticks }

// Sleep blocks for at least ms timer ticks. The CPU is halted between
// ticks; the timer interrupt both advances the counter and wakes the halt,
// so the loop re-checks exactly once per tick. Interrupts must be enabled
// or the first halt never returns.
func (p *Pit) Sleep(ms uint64) {
	end := p.Now() + ms
	for p.Now() < end {
		cpu.Halt()
	}
}

// CalibrateApicFrequency busy-waits for a fixed interval measured by a
// channel 0 one-shot countdown and returns the number of Local APIC timer
// counts observed over that interval, letting the caller derive the bus
// frequency: apicHz = (apicCountsObserved * 1000) / milliseconds. Channel 0
// is re-programmed back to its periodic square wave before returning.
func (p *Pit) CalibrateApicFrequency(milliseconds uint32, readApicCount func() uint32) uint32 {
	count := uint16((uint64(baseFrequency) * uint64(milliseconds)) / 1000)

	cpu.Outb(modeCommandPort, selectChannel0|accessLoAndHiByte|modeOneShot)
	cpu.Outb(channel0Data, uint8(count&0xFF))
	cpu.Outb(channel0Data, uint8(count>>8))

	start := readApicCount()
	for {
		cpu.Outb(modeCommandPort, selectChannel0) // counter-latch channel 0
		lo := cpu.Inb(channel0Data)
		hi := cpu.Inb(channel0Data)
		remaining := uint16(lo) | uint16(hi)<<8
		if remaining == 0 || remaining > count {
			break
		}
	}
	end := readApicCount()

	p.Init()

	if start < end {
		return 0
	}
	return start - end
}
