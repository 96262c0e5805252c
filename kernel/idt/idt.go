// Package idt assembles package gate's raw vector table into the
// kernel-wide interrupt policy: installing handlers for every architectural
// CPU exception and dispatching hardware IRQs (keyboard, timer) to their
// consumers before acknowledging whichever interrupt controller delivered
// them.
package idt

import (
	"nocciolo/kernel/cpu"
	"nocciolo/kernel/gate"
	"nocciolo/kernel/kfmt"
)

// EOINotifier acknowledges completion of interrupt handling to whichever
// controller is currently routing IRQs: the legacy PIC until the APIC pair
// is brought up, the Local APIC afterwards.
type EOINotifier interface {
	NotifyEndOfInterrupt(vector uint8)
}

var activeEOI EOINotifier

// SetEOINotifier installs the controller that IRQ handlers should
// acknowledge through. It may be called again after switching from the
// legacy PIC to the Local/IO APIC pair.
func SetEOINotifier(n EOINotifier) { activeEOI = n }

// NotifyEOI acknowledges vector through the currently installed EOINotifier.
// Handlers for IRQs that Init does not wire itself (Timer, the IoApic
// spurious pool) call this instead of holding their own reference to
// whichever controller is active, so a mid-boot switch from the legacy PIC
// to the Local/IO APIC pair is transparent to them.
func NotifyEOI(vector uint8) {
	if activeEOI != nil {
		activeEOI.NotifyEndOfInterrupt(vector)
	}
}

// KeyboardScancodeSink receives raw scancode bytes read off port 0x60 in
// interrupt context. Implementations must not block.
type KeyboardScancodeSink interface {
	PushScancode(b byte)
}

var keyboardSink KeyboardScancodeSink

// SetKeyboardSink installs the consumer of PS/2 keyboard scancodes.
func SetKeyboardSink(s KeyboardScancodeSink) { keyboardSink = s }

// Init installs gate handlers for every architectural CPU exception this
// kernel recognizes (terminal exceptions panic with diagnostics; recoverable
// ones are limited to what the current scope needs) and for the hardware
// IRQs routed to fixed vectors (timer, keyboard). It must run after
// gate.Init.
func Init() {
	gate.HandleInterrupt(gate.DivideByZero, 0, fatal("divide by zero"))
	gate.HandleInterrupt(gate.Debug, 0, ignored)
	gate.HandleInterrupt(gate.NMI, 0, fatal("non-maskable interrupt"))
	gate.HandleInterrupt(gate.Breakpoint, 0, ignored)
	gate.HandleInterrupt(gate.Overflow, 0, fatal("overflow"))
	gate.HandleInterrupt(gate.BoundRangeExceeded, 0, fatal("bound range exceeded"))
	gate.HandleInterrupt(gate.InvalidOpcode, 0, fatal("invalid opcode"))
	gate.HandleInterrupt(gate.DeviceNotAvailable, 0, fatal("device not available"))
	gate.HandleInterrupt(gate.DoubleFault, 0, fatal("double fault"))
	gate.HandleInterrupt(gate.InvalidTSS, 0, fatal("invalid TSS"))
	gate.HandleInterrupt(gate.SegmentNotPresent, 0, fatal("segment not present"))
	gate.HandleInterrupt(gate.StackSegmentFault, 0, fatal("stack segment fault"))
	gate.HandleInterrupt(gate.GPFException, 0, fatal("general protection fault"))
	gate.HandleInterrupt(gate.PageFaultException, 0, handlePageFault)
	gate.HandleInterrupt(gate.AlignmentCheck, 0, fatal("alignment check"))
	gate.HandleInterrupt(gate.MachineCheck, 0, fatal("machine check"))
	gate.HandleInterrupt(gate.SIMDFloatingPointException, 0, fatal("SIMD floating point exception"))
	gate.HandleInterrupt(gate.VirtualizationException, 0, fatal("virtualization exception"))
	gate.HandleInterrupt(gate.ControlProtectionException, 0, fatal("control protection exception"))
	gate.HandleInterrupt(gate.HypervisorInjectionException, 0, fatal("hypervisor injection exception"))
	gate.HandleInterrupt(gate.VMMCommunicationException, 0, fatal("VMM communication exception"))
	gate.HandleInterrupt(gate.SecurityException, 0, fatal("security exception"))

	gate.HandleInterrupt(gate.Keyboard, 0, handleKeyboard)

	// Timer and the IoApic spurious pool get their vectors wired by the
	// caller that owns the corresponding subsystem (pit/localapic for
	// Timer, ioapic for the spurious pool) since each needs to close over
	// state (the scheduler tick, the masked entry) idt has no access to.
}

func handlePageFault(r *gate.Registers) {
	addr := cpu.ReadCR2()
	kfmt.Printf("page fault at %x (rip=%x)\n", addr, r.RIP)
	kfmt.Panic("page fault")
}

func handleKeyboard(r *gate.Registers) {
	scancode := cpu.Inb(0x60)
	if keyboardSink != nil {
		keyboardSink.PushScancode(scancode)
	}
	if activeEOI != nil {
		activeEOI.NotifyEndOfInterrupt(uint8(gate.Keyboard))
	}
}

func ignored(r *gate.Registers) {}

func fatal(msg string) func(*gate.Registers) {
	return func(r *gate.Registers) {
		kfmt.Printf("fatal exception: %s (rip=%x)\n", msg, r.RIP)
		kfmt.Panic("unrecoverable CPU exception")
	}
}
