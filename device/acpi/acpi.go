// Package acpi implements AcpiIngest: discovery and parsing of the ACPI
// firmware tables (RSDP, RSDT/XSDT, FADT, MADT, MCFG) and the AML
// namespace they describe (DSDT/SSDT), so the rest of the kernel can query
// interrupt routing, PCIe configuration space layout and the S5 shutdown
// sequence without re-implementing table discovery itself.
package acpi

import (
	"strings"
	"unsafe"

	"nocciolo/device"
	"nocciolo/device/acpi/aml"
	"nocciolo/device/acpi/table"
	"nocciolo/kernel"
	"nocciolo/kernel/boot"
	"nocciolo/kernel/bootlog"
	"nocciolo/kernel/kfmt"
	"nocciolo/kernel/mm/acpimapper"
)

// log tags every recoverable-at-boot warning this package emits with the
// "acpi" target.
var log = bootlog.New("acpi")

const (
	acpiRev1     uint8 = 0
	acpiRev2Plus uint8 = 2

	// biosLow and biosHigh bound the legacy BIOS region the RSDP lives in
	// when the bootloader did not hand us its address directly.
	biosLow  uintptr = 0xE0000
	biosHigh uintptr = 0xFFFFF

	ebdaPointer uintptr = 0x40E

	rsdpAlignment uintptr = 16

	fadtSignature = "FACP"
	madtSignature = "APIC"
	mcfgSignature = "MCFG"

	// maxTableSize bounds how much we map per ACPI table. Every table this
	// kernel cares about (FADT, MADT, MCFG, and the DSDT/SSDT produced by
	// the hypervisor firmware this kernel targets) comfortably fits; a
	// system with an unusually large DSDT would need a bigger bound.
	maxTableSize = 1 << 16
)

var (
	errMissingRSDP           = &kernel.Error{Module: "acpi", Message: "could not locate ACPI RSDP"}
	errTableChecksumMismatch = &kernel.Error{Module: "acpi", Message: "checksum mismatch while parsing ACPI table"}
	errNoFADT                = &kernel.Error{Module: "acpi", Message: "no FADT present"}

	rsdpSignature = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}
)

type rawTable [maxTableSize]byte

// errSink adapts kfmt's global console sink to the io.Writer the AML parser
// wants for diagnostic output.
type errSink struct{}

func (errSink) Write(p []byte) (int, error) {
	kfmt.Printf("%s", string(p))
	return len(p), nil
}

// AcpiIngest owns every ACPI table this kernel has mapped and the AML
// interpreter evaluating the DSDT/SSDT namespace they define.
type AcpiIngest struct {
	am *acpimapper.Mapper

	tables map[string]*table.SDTHeader

	madt *table.MADT
	fadt *table.FADT
	mcfg *table.MCFG

	vm *aml.VM
}

// New discovers the RSDP (from the bootloader-provided address, falling
// back to a BIOS region scan), walks the RSDT/XSDT, caches the FADT/MADT/
// MCFG tables, and parses the DSDT/SSDT AML namespace.
func New(contract *boot.Contract, am *acpimapper.Mapper) (*AcpiIngest, *kernel.Error) {
	ing := &AcpiIngest{am: am, tables: make(map[string]*table.SDTHeader)}

	rootAddr, useXSDT, err := ing.locateRoot(contract)
	if err != nil {
		return nil, err
	}

	if err := ing.enumerateTables(rootAddr, useXSDT); err != nil {
		return nil, err
	}

	ing.vm = aml.NewVM(errSink{}, ing)
	ing.vm.SetHost(&platformHost{am: am})
	if err := ing.vm.Init(); err != nil {
		// A broken DSDT is recoverable: everything except AML-backed
		// shutdown still works, so drop the namespace and keep booting.
		devErr := &device.Error{Kind: device.ErrorKindAML, Region: "DSDT", Err: err}
		log.Warn("%s; continuing without an AML namespace", devErr.Error())
		ing.vm = nil
	}

	return ing, nil
}

// LookupTable implements table.Resolver so the AML parser can resolve
// the DSDT/SSDT tables it was handed a signature for.
func (ing *AcpiIngest) LookupTable(signature string) *table.SDTHeader {
	return ing.tables[signature]
}

// MADT returns the cached Multiple APIC Description Table, or nil if the
// platform did not provide one.
func (ing *AcpiIngest) MADT() *table.MADT { return ing.madt }

// FADT returns the cached Fixed ACPI Description Table, or nil.
func (ing *AcpiIngest) FADT() *table.FADT { return ing.fadt }

// MCFG returns the cached PCIe Memory-Mapped Configuration table, or nil if
// the platform has no PCIe configuration space (legacy CF8/CFC access
// should be used instead).
func (ing *AcpiIngest) MCFG() *table.MCFG { return ing.mcfg }

// AML returns the interpreter over the DSDT/SSDT namespace.
func (ing *AcpiIngest) AML() *aml.VM { return ing.vm }

// InitializeObjects evaluates _STA and _INI on every Device entity in the
// AML namespace, giving ACPI-described devices a chance to run firmware-
// provided setup code before this kernel's own drivers probe them. Devices
// whose _STA reports them absent do not get their _INI invoked.
func (ing *AcpiIngest) InitializeObjects() {
	const staPresent = 1 << 0

	if ing.vm == nil {
		return
	}

	ing.vm.Visit(aml.EntityTypeDevice, func(depth int, dev aml.Entity) bool {
		scope, ok := dev.(aml.ScopeEntity)
		if !ok {
			return true
		}

		path := absolutePath(dev)

		if hasChild(scope, "_STA") {
			ret, err := ing.vm.Execute(path + "._STA")
			if err != nil {
				log.Warn("_STA failed for %s: %s", path, err.Error())
			} else if sta, isInt := ret.(uint64); isInt && sta&staPresent == 0 {
				return true
			}
		}

		if hasChild(scope, "_INI") {
			if _, err := ing.vm.Execute(path + "._INI"); err != nil {
				log.Warn("_INI failed for %s: %s", path, err.Error())
			}
		}

		return true
	})
}

func hasChild(scope aml.ScopeEntity, name string) bool {
	for _, child := range scope.Children() {
		if child.Name() == name {
			return true
		}
	}
	return false
}

// absolutePath reconstructs the dotted, backslash-rooted AML path of ent by
// walking its Parent() chain up to (but not including) the root scope.
func absolutePath(ent aml.Entity) string {
	var parts []string
	for e := ent; e != nil; e = e.Parent() {
		name := e.Name()
		if name == "" || name == `\` {
			break
		}
		parts = append([]string{name}, parts...)
	}
	return `\` + strings.Join(parts, ".")
}

// locateRoot returns the physical address of the RSDT or XSDT, and whether
// it is the 64-bit XSDT.
func (ing *AcpiIngest) locateRoot(contract *boot.Contract) (uintptr, bool, *kernel.Error) {
	if contract.RSDPAddr != 0 {
		if addr, useXSDT, ok := ing.parseRSDP(contract.RSDPAddr); ok {
			return addr, useXSDT, nil
		}
	}

	if ebdaBase, ok := ing.readEBDABase(); ok {
		if addr, useXSDT, found := ing.scanFixedRegion(ebdaBase, 1024); found {
			return addr, useXSDT, nil
		}
	}

	if addr, useXSDT, found := ing.scanFixedRegion(biosLow, biosHigh-biosLow+1); found {
		return addr, useXSDT, nil
	}

	return 0, false, errMissingRSDP
}

// readEBDABase maps the first page of physical memory to read the segment
// pointer the BIOS leaves at 0x40E, returning the Extended BIOS Data Area's
// physical base address.
func (ing *AcpiIngest) readEBDABase() (uintptr, bool) {
	mapping, err := acpimapper.MapPhysicalRegion[[4096]byte](ing.am, 0, 4096, 0)
	if err != nil {
		return 0, false
	}
	defer ing.am.UnmapPhysicalRegion(mapping.VirtualStart, mapping.MappedLength)

	segPtr := (*uint16)(unsafe.Pointer(mapping.VirtualStart + ebdaPointer))
	base := uintptr(*segPtr) << 4
	if base == 0 {
		return 0, false
	}
	return base, true
}

// scanWindow is sized to cover the entire legacy BIOS region in one
// mapping; an EBDA scan just maps the same window at a different base and
// only walks its first limit bytes.
type scanWindow [0x20000]byte

// scanFixedRegion looks for the "RSD PTR " signature on a 16-byte boundary
// within the first limit bytes starting at physical address low and, if
// found and checksum-valid, returns the RSDT/XSDT address it points to.
func (ing *AcpiIngest) scanFixedRegion(low, limit uintptr) (uintptr, bool, bool) {
	mapping, err := acpimapper.MapPhysicalRegion[scanWindow](ing.am, low, uintptr(len(scanWindow{})), 0)
	if err != nil {
		return 0, false, false
	}
	defer ing.am.UnmapPhysicalRegion(mapping.VirtualStart, mapping.MappedLength)

	if limit > uintptr(len(scanWindow{})) {
		limit = uintptr(len(scanWindow{}))
	}

	base := mapping.VirtualStart
	for off := uintptr(0); off+rsdpAlignment <= limit; off += rsdpAlignment {
		ptr := base + off
		sig := (*[8]byte)(unsafe.Pointer(ptr))
		if *sig != rsdpSignature {
			continue
		}

		if addr, useXSDT, ok := ing.parseRSDPAt(ptr); ok {
			return addr, useXSDT, true
		}
	}

	return 0, false, false
}

// parseRSDP maps the physical address phys and parses it as an RSDP.
func (ing *AcpiIngest) parseRSDP(phys uintptr) (uintptr, bool, bool) {
	mapping, err := acpimapper.MapPhysicalRegion[table.ExtRSDPDescriptor](ing.am, phys, uintptr(unsafe.Sizeof(table.ExtRSDPDescriptor{})), 0)
	if err != nil {
		return 0, false, false
	}
	defer ing.am.UnmapPhysicalRegion(mapping.VirtualStart, mapping.MappedLength)

	return ing.parseRSDPAt(mapping.VirtualStart)
}

func (ing *AcpiIngest) parseRSDPAt(virt uintptr) (uintptr, bool, bool) {
	rsdp := (*table.RSDPDescriptor)(unsafe.Pointer(virt))

	if rsdp.Revision == acpiRev1 {
		if !validChecksum(virt, uint32(unsafe.Sizeof(*rsdp))) {
			return 0, false, false
		}
		return uintptr(rsdp.RSDTAddr), false, true
	}

	rsdp2 := (*table.ExtRSDPDescriptor)(unsafe.Pointer(virt))
	if !validChecksum(virt, uint32(unsafe.Sizeof(*rsdp2))) {
		return 0, false, false
	}
	return uintptr(rsdp2.XSDTAddr), true, true
}

// enumerateTables maps the RSDT/XSDT and every table it points to, caching
// the ones this kernel queries by signature.
func (ing *AcpiIngest) enumerateTables(rootAddr uintptr, useXSDT bool) *kernel.Error {
	header, mapping, err := ing.mapTable(rootAddr)
	if err != nil {
		return err
	}

	sizeofHeader := unsafe.Sizeof(table.SDTHeader{})
	payloadLen := uintptr(header.Length) - sizeofHeader
	base := mapping.VirtualStart + sizeofHeader

	var addrs []uintptr
	if useXSDT {
		addrs = make([]uintptr, payloadLen/8)
		for i := range addrs {
			addrs[i] = uintptr(*(*uint64)(unsafe.Pointer(base + uintptr(i)*8)))
		}
	} else {
		addrs = make([]uintptr, payloadLen/4)
		for i := range addrs {
			addrs[i] = uintptr(*(*uint32)(unsafe.Pointer(base + uintptr(i)*4)))
		}
	}

	for _, addr := range addrs {
		h, hMapping, err := ing.mapTable(addr)
		if err == errTableChecksumMismatch {
			log.Warn("table at %x failed checksum, skipping", addr)
			continue
		} else if err != nil {
			return err
		}

		sig := string(h.Signature[:])
		ing.tables[sig] = h

		switch sig {
		case fadtSignature:
			ing.fadt = (*table.FADT)(unsafe.Pointer(h))
			ing.mapDSDT()
		case madtSignature:
			ing.madt = (*table.MADT)(unsafe.Pointer(h))
		case mcfgSignature:
			ing.mcfg = (*table.MCFG)(unsafe.Pointer(h))
		}

		_ = hMapping
	}

	return nil
}

// mapDSDT follows the FADT's Dsdt/Ext.Dsdt pointer (whichever the table
// revision indicates) and caches it under its own signature, so the AML
// parser can find it via LookupTable("DSDT").
func (ing *AcpiIngest) mapDSDT() {
	if ing.fadt == nil {
		return
	}

	dsdtAddr := uintptr(ing.fadt.Dsdt)
	if ing.fadt.SDTHeader.Revision >= acpiRev2Plus && ing.fadt.Ext.Dsdt != 0 {
		dsdtAddr = uintptr(ing.fadt.Ext.Dsdt)
	}
	if dsdtAddr == 0 {
		return
	}

	h, _, err := ing.mapTable(dsdtAddr)
	if err != nil {
		log.Warn("failed to map DSDT: %s", err.Error())
		return
	}
	ing.tables[string(h.Signature[:])] = h
}

// mapTable maps maxTableSize bytes starting at tableAddr (enough to cover
// the header plus contents of every table this kernel handles), validates
// the checksum over the header's reported Length, and returns a pointer to
// the header.
func (ing *AcpiIngest) mapTable(tableAddr uintptr) (*table.SDTHeader, *acpimapper.PhysicalMapping[rawTable], *kernel.Error) {
	mapping, err := acpimapper.MapPhysicalRegion[rawTable](ing.am, tableAddr, maxTableSize, 0)
	if err != nil {
		return nil, nil, err
	}

	header := (*table.SDTHeader)(unsafe.Pointer(mapping.Value()))
	if !validChecksum(mapping.VirtualStart, header.Length) {
		return header, mapping, errTableChecksumMismatch
	}

	return header, mapping, nil
}

// validChecksum sums tableLength bytes starting at tablePtr and reports
// whether the result (mod 256) is zero, as required by the ACPI spec for
// every table with a Checksum field in its header.
func validChecksum(tablePtr uintptr, tableLength uint32) bool {
	var sum uint8
	for i := uint32(0); i < tableLength; i++ {
		sum += *(*uint8)(unsafe.Pointer(tablePtr + uintptr(i)))
	}
	return sum == 0
}

// FADTOrErr returns the cached FADT or errNoFADT, used by callers (e.g. the
// shutdown state machine) that cannot proceed without one.
func (ing *AcpiIngest) FADTOrErr() (*table.FADT, *kernel.Error) {
	if ing.fadt == nil {
		return nil, errNoFADT
	}
	return ing.fadt, nil
}
