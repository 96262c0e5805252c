// Package shutdown implements the ACPI S5 ("soft off") power state
// transition: invoking the firmware-provided _PTS and _S5_ control methods,
// then writing the resulting sleep-type values to the PM1a/PM1b control
// blocks. A handful of hypervisors also expose a much simpler
// debug-exit-style I/O port; this is tried first since it avoids AML
// evaluation entirely where it is available.
package shutdown

import (
	"nocciolo/device/acpi/aml"
	"nocciolo/device/acpi/table"
	"nocciolo/kernel/cpu"
)

// hypervisorQuirk is one well-known emulator's debug-exit shutdown port:
// writing magic to port exits the VM on a real instance of that hypervisor,
// and is a harmless no-op on anything else (including real hardware, where
// the port is simply unassigned). brand is the CPUID leaf 0x40000000 vendor
// signature the hypervisor identifies itself with; empty means the
// hypervisor predates that leaf and its port is poked unconditionally.
type hypervisorQuirk struct {
	name  string
	brand string
	port  uint16
	magic uint16
}

// hypervisorQuirks lists the fast-path shutdown ports this kernel tries
// before falling back to the full ACPI S5 sequence.
var hypervisorQuirks = []hypervisorQuirk{
	{name: "bochs", brand: "", port: 0xB004, magic: 0x2000},
	{name: "qemu", brand: "TCGTCGTCGTCG", port: 0x604, magic: 0x2000},
	{name: "virtualbox", brand: "VBoxVBoxVBox", port: 0x4004, magic: 0x3400},
}

// FailureKind classifies why an ACPI S5 transition could not be completed.
// Whatever remains when Shutdown returns a non-nil *Failure is not
// considered recoverable.
type FailureKind uint8

const (
	// NoAml means the platform has no usable AML namespace (ACPI ingest
	// never found or parsed a DSDT).
	NoAml FailureKind = iota
	// NoFadt means the platform has no FADT, so there is no PM1a/PM1b
	// control block to write to regardless of what \_S5_ says.
	NoFadt
	// S5PathNotPackage means \_S5_ exists but did not evaluate to a
	// Package literal.
	S5PathNotPackage
	// S5ValueNotInteger means one of the \_S5_ package's first two
	// elements (the PM1a/PM1b sleep type values) is not an integer.
	S5ValueNotInteger
	// S5ValueOutsideWordSize means a sleep type value does not fit the
	// 3-bit SLP_TYPx field it is destined for.
	S5ValueOutsideWordSize
	// PmControlBlockNotSystemIo means the FADT's PM1 control block
	// GenericAddress names an address space this kernel cannot write to
	// (only System I/O is supported).
	PmControlBlockNotSystemIo
	// PmControlAddressNotInIoRange means the control block's address does
	// not fit in a 16-bit I/O port number.
	PmControlAddressNotInIoRange
)

// Failure describes why Shutdown could not complete the S5 transition.
type Failure struct {
	Kind FailureKind
}

func (f *Failure) Error() string {
	switch f.Kind {
	case NoAml:
		return "shutdown: no AML namespace available"
	case NoFadt:
		return "shutdown: no FADT present"
	case S5PathNotPackage:
		return "shutdown: \\_S5_ did not evaluate to a Package"
	case S5ValueNotInteger:
		return "shutdown: \\_S5_ sleep type value is not an integer"
	case S5ValueOutsideWordSize:
		return "shutdown: \\_S5_ sleep type value does not fit in 3 bits"
	case PmControlBlockNotSystemIo:
		return "shutdown: PM1 control block is not in System I/O space"
	case PmControlAddressNotInIoRange:
		return "shutdown: PM1 control block address exceeds the I/O port range"
	default:
		return "shutdown: unknown failure"
	}
}

const (
	slpEnBit    = 1 << 13
	slpTypShift = 10
)

// Exit codes understood by an attached emulator's isa-debug-exit device.
const (
	debugExitPort = 0xF4

	// ExitSuccess terminates the emulator reporting success.
	ExitSuccess uint32 = 0x10
	// ExitFailed terminates the emulator reporting failure.
	ExitFailed uint32 = 0x11
)

// ExitEmulator writes code to the debug-exit port. Under an emulator
// configured with an isa-debug-exit device the write terminates the VM and
// never returns; on real hardware it is ignored and the caller should fall
// back to Shutdown.
func ExitEmulator(code uint32) {
	cpu.Outl(debugExitPort, code)
}

// Machine drives the ACPI S5 shutdown sequence.
type Machine struct {
	vm   *aml.VM
	fadt *table.FADT
}

// New returns a Machine that will evaluate AML through vm and read the PM1
// control blocks from fadt. Either may be nil, in which case Shutdown
// degrades to the hypervisor fast path only.
func New(vm *aml.VM, fadt *table.FADT) *Machine {
	return &Machine{vm: vm, fadt: fadt}
}

// Shutdown attempts to power off the machine. It first tries a handful of
// well-known hypervisor debug-exit ports (Bochs/old QEMU, VirtualBox),
// which never return on success. If none apply, it falls back to the full
// ACPI S5 sequence; a non-nil return means neither path worked and the
// caller should fall back to something else (e.g. instructing the operator
// to power off manually).
func (m *Machine) Shutdown() *Failure {
	tryHypervisorFastPath()

	if f := m.acpiS5(); f != nil {
		m.recoverWithWak()
		return f
	}

	return nil
}

// tryHypervisorFastPath pokes the magic shutdown ports of the emulators the
// CPUID hypervisor vendor signature identifies, plus those too old to have
// one. A real ACPI BIOS ignores writes to these ports, so a miss is
// harmless; on an actual instance of that hypervisor the write never
// returns.
func tryHypervisorFastPath() {
	brand := hypervisorBrand()
	for _, q := range hypervisorQuirks {
		if q.brand == "" || brandMatches(brand, q.brand) {
			cpu.Outw(q.port, q.magic)
		}
	}
}

// hypervisorBrand returns the 12-byte vendor signature reported through
// CPUID leaf 0x40000000, or the empty string on bare metal (CPUID.1 ECX
// bit 31 clear).
func hypervisorBrand() string {
	_, _, ecx, _ := cpu.ID(1)
	if ecx&(1<<31) == 0 {
		return ""
	}

	_, ebx, ecx2, edx := cpu.ID(0x40000000)
	var sig [12]byte
	for i, reg := range []uint32{ebx, ecx2, edx} {
		sig[i*4+0] = byte(reg)
		sig[i*4+1] = byte(reg >> 8)
		sig[i*4+2] = byte(reg >> 16)
		sig[i*4+3] = byte(reg >> 24)
	}
	return string(sig[:])
}

func brandMatches(brand, want string) bool {
	return len(brand) >= len(want) && brand[:len(want)] == want
}

// acpiS5 runs the full ACPI S5 sequence: _PTS(5), read \_S5_, and write the
// resulting sleep-type values (with SLP_EN set) to PM1a and, if present,
// PM1b.
func (m *Machine) acpiS5() *Failure {
	if m.vm == nil {
		return &Failure{Kind: NoAml}
	}
	if m.fadt == nil {
		return &Failure{Kind: NoFadt}
	}

	// _PTS ("Prepare To Sleep") tells the firmware which state is about to
	// be entered; its return value is not meaningful here.
	_, _ = m.vm.Execute("\\_PTS", uint64(5))

	s5 := m.vm.Lookup("\\_S5_")
	elems, ok := m.vm.PackageElements(s5)
	if !ok || len(elems) == 0 {
		return &Failure{Kind: S5PathNotPackage}
	}

	slpTypA, f := asSlpType(elems[0])
	if f != nil {
		return f
	}

	if f := m.writePM1Control(m.fadt.Ext.PM1aControlBlock, m.pm1aControl(), slpTypA); f != nil {
		return f
	}

	// The second package element carries the PM1b sleep type; platforms
	// without a PM1b control block usually omit it.
	if len(elems) < 2 {
		return nil
	}
	if pm1b := m.pm1bControl(); pm1b != 0 || m.fadt.Ext.PM1bControlBlock.Address != 0 {
		slpTypB, f := asSlpType(elems[1])
		if f != nil {
			return f
		}
		if f := m.writePM1Control(m.fadt.Ext.PM1bControlBlock, pm1b, slpTypB); f != nil {
			return f
		}
	}

	return nil
}

// asSlpType extracts a sleep-type value from a resolved \_S5_ package
// element and checks it fits the 3-bit SLP_TYPx field.
func asSlpType(v interface{}) (uint16, *Failure) {
	i, ok := v.(uint64)
	if !ok {
		return 0, &Failure{Kind: S5ValueNotInteger}
	}
	if i > 0x7 {
		return 0, &Failure{Kind: S5ValueOutsideWordSize}
	}
	return uint16(i), nil
}

// pm1aControl resolves the PM1a control block port, preferring the ACPI
// 2.0+ 64-bit GenericAddress when present.
func (m *Machine) pm1aControl() uint16 {
	if m.fadt.SDTHeader.Revision >= 2 && m.fadt.Ext.PM1aControlBlock.Address != 0 {
		return uint16(m.fadt.Ext.PM1aControlBlock.Address)
	}
	return uint16(m.fadt.PM1aControlBlock)
}

func (m *Machine) pm1bControl() uint16 {
	if m.fadt.SDTHeader.Revision >= 2 && m.fadt.Ext.PM1bControlBlock.Address != 0 {
		return uint16(m.fadt.Ext.PM1bControlBlock.Address)
	}
	return uint16(m.fadt.PM1bControlBlock)
}

// writePM1Control validates ext, the extended PM1 control GenericAddress
// for whichever block (PM1a or PM1b) port resolves to, when present, and
// writes SLP_TYP|SLP_EN to the resolved port.
func (m *Machine) writePM1Control(ext table.GenericAddress, port uint16, slpTyp uint16) *Failure {
	if m.fadt.SDTHeader.Revision >= 2 && ext.Address != 0 {
		if ext.Space != table.AddressSpaceSysIO {
			return &Failure{Kind: PmControlBlockNotSystemIo}
		}
		if ext.Address > 0xFFFF {
			return &Failure{Kind: PmControlAddressNotInIoRange}
		}
	}

	value := (slpTyp << slpTypShift) | slpEnBit
	cpu.Outw(port, value)
	return nil
}

// recoverWithWak invokes _WAK(5) to tell the firmware the system did not
// actually enter S5, restoring it to a consistent running state after a
// failed shutdown attempt.
func (m *Machine) recoverWithWak() {
	if m.vm == nil {
		return
	}
	_, _ = m.vm.Execute("\\_WAK", uint64(5))
}
