package cpu

var (
	cpuidFn = ID
)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr

// ReadCR2 returns the value stored in the CR2 register.
func ReadCR2() uint64

// ID returns information about the CPU and its features. It
// is implemented as a CPUID instruction with EAX=leaf and
// returns the values in EAX, EBX, ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

// LoadIDT loads the interrupt descriptor table register (IDTR) with the
// address and limit described by idtPtr, which must point to a 10-byte
// pseudo-descriptor (2-byte limit followed by an 8-byte base address).
func LoadIDT(idtPtr uintptr)

// Inb reads a single byte from the given I/O port.
func Inb(port uint16) uint8

// Outb writes a single byte to the given I/O port.
func Outb(port uint16, val uint8)

// Inw reads a 16-bit word from the given I/O port.
func Inw(port uint16) uint16

// Outw writes a 16-bit word to the given I/O port.
func Outw(port uint16, val uint16)

// Inl reads a 32-bit double-word from the given I/O port.
func Inl(port uint16) uint32

// Outl writes a 32-bit double-word to the given I/O port.
func Outl(port uint16, val uint32)

// Rdmsr reads the model-specific register identified by id and returns its
// 64-bit value.
func Rdmsr(id uint32) uint64

// Wrmsr writes val to the model-specific register identified by id.
func Wrmsr(id uint32, val uint64)

// InterruptsEnabled reports whether the interrupt flag (RFLAGS.IF) is
// currently set on this CPU.
func InterruptsEnabled() bool

// IsIntel returns true if the code is running on an Intel processor.
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}
