package gate

import (
	"io"
	"nocciolo/kernel/kfmt"
)

// Registers contains a snapshot of all register values when an exception,
// interrupt or syscall occurs.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	// Info contains the interrupt/exception vector number. Any hardware
	// error code the CPU pushed for the vector is discarded by the gate
	// stub before this struct is built; handlers that need it (e.g. the
	// page-fault handler) read the supplementary state they need directly
	// (CR2 for the faulting address) rather than through this field.
	Info uint64

	// The return frame used by IRETQ.
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x\n", r.RBP)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}

// InterruptNumber describes an x86 interrupt/exception/IRQ vector.
type InterruptNumber uint8

// PIC1Offset is the vector the legacy PIC's master chain (and the Local
// APIC timer LVT entry, and IoApic's IRQ2 override) is remapped to. It sits
// above the CPU-reserved exception range (0-31).
const PIC1Offset = InterruptNumber(32)

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// Debug occurs after single-step execution or when a breakpoint
	// condition set in one of the DRx registers is met.
	Debug = InterruptNumber(1)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems. It may also be
	// raised by the CPU when a watchdog timer is enabled.
	NMI = InterruptNumber(2)

	// Breakpoint is raised by the INT3 instruction, typically inserted
	// by a debugger.
	Breakpoint = InterruptNumber(3)

	// Overflow occurs when an overflow occurs (e.g result of division
	// cannot fit into the registers used).
	Overflow = InterruptNumber(4)

	// BoundRangeExceeded occurs when the BOUND instruction is invoked with
	// an index out of range.
	BoundRangeExceeded = InterruptNumber(5)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DeviceNotAvailable occurs when the CPU attempts to execute an
	// FPU/MMX/SSE instruction while no FPU is available or while
	// FPU/MMX/SSE support has been disabled by manipulating the CR0
	// register.
	DeviceNotAvailable = InterruptNumber(7)

	// DoubleFault occurs when an unhandled exception occurs or when an
	// exception occurs within a running exception handler.
	DoubleFault = InterruptNumber(8)

	// InvalidTSS occurs when the TSS points to an invalid task segment
	// selector.
	InvalidTSS = InterruptNumber(10)

	// SegmentNotPresent occurs when the CPU attempts to invoke a present
	// gate with an invalid stack segment selector.
	SegmentNotPresent = InterruptNumber(11)

	// StackSegmentFault occurs when attempting to push/pop from a
	// non-canonical stack address or when the stack base/limit (set in
	// GDT) checks fail.
	StackSegmentFault = InterruptNumber(12)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page directory table (PDT) or one
	// of its entries is not present or when a privilege and/or RW
	// protection check fails.
	PageFaultException = InterruptNumber(14)

	// AlignmentCheck occurs when alignment checks are enabled and an
	// unaligned memory access is performed.
	AlignmentCheck = InterruptNumber(17)

	// MachineCheck occurs when the CPU detects internal errors such as
	// memory-, bus- or cache-related errors.
	MachineCheck = InterruptNumber(18)

	// SIMDFloatingPointException occurs when an unmasked SSE exception
	// occurs while CR4.OSXMMEXCPT is set to 1.
	SIMDFloatingPointException = InterruptNumber(19)

	// VirtualizationException is raised by EPT violations under certain
	// hypervisor configurations.
	VirtualizationException = InterruptNumber(20)

	// ControlProtectionException is raised by a CET shadow-stack
	// violation.
	ControlProtectionException = InterruptNumber(21)

	// HypervisorInjectionException is reserved for hypervisor use under
	// AMD SEV-SNP.
	HypervisorInjectionException = InterruptNumber(28)

	// VMMCommunicationException is raised by AMD SEV-ES #VC events.
	VMMCommunicationException = InterruptNumber(29)

	// SecurityException is raised by SGX/SEV security violations.
	SecurityException = InterruptNumber(30)

	// Timer is the vector the Local APIC/IoApic deliver the periodic
	// timer interrupt to.
	Timer = InterruptNumber(32)

	// Keyboard is the vector the IoApic delivers IRQ1 (PS/2 keyboard) to.
	Keyboard = InterruptNumber(33)

	// ioapicSpuriousBase is the first of a small pool of vectors handed
	// out to IoApic redirection entries that were already unmasked by
	// firmware at boot (see IoApic.SanitizeRouting). The pool covers up to
	// ioapicSpuriousCount concurrently unmasked legacy lines; a system
	// whose firmware left more than that many IRQ lines unmasked would
	// need a larger pool.
	ioapicSpuriousBase  = InterruptNumber(0x90)
	ioapicSpuriousCount = 8

	// SpuriousIoApic is the first vector of the IoApic spurious pool.
	SpuriousIoApic = ioapicSpuriousBase

	// LvtError is delivered when the Local APIC's error status register
	// latches a new error condition.
	LvtError = InterruptNumber(0xF1)

	// SpuriousLocalApic is programmed into the Local APIC's Spurious
	// Interrupt Vector Register.
	SpuriousLocalApic = InterruptNumber(0xFF)
)

// IoApicSpuriousVector returns the vector assigned to the i-th slot of the
// IoApic spurious pool. i must be < ioapicSpuriousCount.
func IoApicSpuriousVector(i int) InterruptNumber {
	return ioapicSpuriousBase + InterruptNumber(i)
}

// IoApicSpuriousCount returns the number of vectors available in the IoApic
// spurious pool.
func IoApicSpuriousCount() int { return ioapicSpuriousCount }

var handlers [256]func(*Registers)

// Init runs the appropriate CPU-specific initialization code for enabling
// support for interrupt handling. It must be called before any call to
// HandleInterrupt.
func Init() {
	installIDT()
}

// HandleInterrupt ensures that the provided handler will be invoked when a
// particular interrupt number occurs. The istOffset argument is recorded for
// diagnostic purposes; this kernel does not build a TSS with a dedicated
// Interrupt Stack Table, so every gate runs on the stack active at the time
// the interrupt is delivered regardless of istOffset.
func HandleInterrupt(intNumber InterruptNumber, istOffset uint8, handler func(*Registers)) {
	_ = istOffset
	handlers[intNumber] = handler
}

// handleInterrupt is invoked by the assembly trampoline (commonStub) for
// every vector this kernel installed a gate for. It is the single point
// that routes a raw hardware interrupt to the handler registered through
// HandleInterrupt.
func handleInterrupt(regs *Registers) {
	if h := handlers[regs.Info]; h != nil {
		h(regs)
		return
	}

	kfmt.Printf("gate: unhandled interrupt vector %d at rip=%x\n", regs.Info, regs.RIP)
	kfmt.Panic("gate: unhandled interrupt")
}

// installIDT populates the IDT with present gates for every vector this
// kernel knows how to handle and loads it into the CPU. All other vectors
// are left non-present.
func installIDT()
