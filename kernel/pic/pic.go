// Package pic drives the legacy 8259A programmable interrupt controller
// pair. Modern systems route interrupts through the Local/IO APIC instead,
// but the PIC still powers on unmasked and must be reprogrammed (or fully
// masked) before the APIC takes over, or stray legacy vectors collide with
// CPU exceptions.
package pic

import "nocciolo/kernel/cpu"

const (
	masterCommandPort = 0x20
	masterDataPort    = 0x21
	slaveCommandPort  = 0xA0
	slaveDataPort     = 0xA1

	cmdInit     = 0x11 // ICW1: edge triggered, cascade mode, ICW4 present
	cmdICW48086 = 0x01
	cmdEOI      = 0x20
)

// Pic drives one master/slave 8259 pair.
type Pic struct {
	masterOffset uint8
	slaveOffset  uint8
}

// New returns a Pic whose master chain is remapped to start at masterOffset
// and whose slave chain starts at slaveOffset. Both must be 8-aligned and
// land above the CPU exception range (vector 32 and up).
func New(masterOffset, slaveOffset uint8) *Pic {
	return &Pic{masterOffset: masterOffset, slaveOffset: slaveOffset}
}

// Initialize remaps both chains away from the CPU exception range and
// restores the interrupt masks saved before remapping (i.e. leaves every
// line enabled; callers that want the APIC to own IRQ routing should call
// Disable immediately afterwards instead).
func (p *Pic) Initialize() {
	savedMaster := cpu.Inb(masterDataPort)
	savedSlave := cpu.Inb(slaveDataPort)

	cpu.Outb(masterCommandPort, cmdInit)
	cpu.Outb(slaveCommandPort, cmdInit)

	cpu.Outb(masterDataPort, p.masterOffset)
	cpu.Outb(slaveDataPort, p.slaveOffset)

	cpu.Outb(masterDataPort, 4) // tell master a slave sits on IRQ2
	cpu.Outb(slaveDataPort, 2)  // tell slave its cascade identity

	cpu.Outb(masterDataPort, cmdICW48086)
	cpu.Outb(slaveDataPort, cmdICW48086)

	cpu.Outb(masterDataPort, savedMaster)
	cpu.Outb(slaveDataPort, savedSlave)
}

// Disable masks every line on both chains. Called once the Local/IO APIC
// has taken over interrupt routing; the PIC remains remapped (so a stray
// spurious vector lands outside the CPU exception range) but delivers
// nothing.
func (p *Pic) Disable() {
	cpu.Outb(masterDataPort, 0xFF)
	cpu.Outb(slaveDataPort, 0xFF)
}

// NotifyEndOfInterrupt acknowledges the interrupt identified by vector. The
// slave chain is also notified when the vector originated there.
func (p *Pic) NotifyEndOfInterrupt(vector uint8) {
	if vector >= p.slaveOffset && vector < p.slaveOffset+8 {
		cpu.Outb(slaveCommandPort, cmdEOI)
	}
	cpu.Outb(masterCommandPort, cmdEOI)
}
