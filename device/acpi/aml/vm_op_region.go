package aml

// Host bridges the AML interpreter's OperationRegion field reads/writes to
// the actual hardware backing them. The interpreter core this package was
// built around ships with no region-access implementation at all: callers
// that never touch a field (most of _INI/_STA evaluation) work without one,
// but anything that reads or writes a System Memory, System I/O or PCI
// configuration OperationRegion field needs a Host installed via VM.SetHost
// first.
type Host interface {
	ReadMem(addr uintptr, width uint8) uint64
	WriteMem(addr uintptr, width uint8, val uint64)
	ReadIO(port uint16, width uint8) uint64
	WriteIO(port uint16, width uint8, val uint64)
	ReadPCI(seg uint16, bus, dev, fn uint8, offset uint16, width uint8) uint64
	WritePCI(seg uint16, bus, dev, fn uint8, offset uint16, width uint8, val uint64)
}

// SetHost installs the hardware bridge used to service field unit
// reads/writes against System Memory, System I/O and PCI configuration
// operation regions.
func (vm *VM) SetHost(h Host) { vm.host = h }

// resolveFieldUnit lazily resolves ent's backing region (the interpreter
// core never does this automatically) and returns the region's byte
// address. Only byte-aligned offsets/lengths are supported: the offset and
// length expressions regionEntity carries are themselves constant AML
// expressions, evaluated here through vmLoad.
func (vm *VM) resolveFieldUnit(ctx *execContext, ent *fieldUnitEntity) (*regionEntity, uintptr, *Error) {
	if ent.resolvedRegion == nil {
		if !ent.Resolve(vm.errWriter, vm.rootNS) {
			return nil, 0, &Error{message: "vm: could not resolve field region for " + ent.Name()}
		}
	}

	region := ent.resolvedRegion
	if len(region.args) < 1 {
		return nil, 0, &Error{message: "vm: region " + region.Name() + " missing offset expression"}
	}

	rawOffset, err := vmLoad(ctx, region.args[0])
	if err != nil {
		return nil, 0, err
	}

	offset, ok := rawOffset.(uint64)
	if !ok {
		return nil, 0, &Error{message: "vm: region offset did not evaluate to an integer"}
	}

	return region, uintptr(offset), nil
}

// fieldAccessWidth picks the transfer width (in bits) for a field unit,
// defaulting to the smallest width that covers bitWidth when accessType is
// FieldAccessTypeAny.
func fieldAccessWidth(ent *fieldUnitEntity) uint8 {
	switch ent.accessType {
	case FieldAccessTypeByte:
		return 8
	case FieldAccessTypeWord:
		return 16
	case FieldAccessTypeDword:
		return 32
	default:
		switch {
		case ent.bitWidth <= 8:
			return 8
		case ent.bitWidth <= 16:
			return 16
		default:
			return 32
		}
	}
}

// vmLoadFieldUnit reads ent's value off the hardware Host. Only
// byte-aligned fields within a System Memory, System I/O or PCI
// configuration region are supported, which covers every fixed hardware register ACPI control
// methods on this kernel's target platforms actually touch.
func vmLoadFieldUnit(ctx *execContext, ent *fieldUnitEntity) (interface{}, *Error) {
	if ctx.vm.host == nil {
		return nil, &Error{message: "vm: no Host installed; cannot read field " + ent.Name()}
	}
	if ent.bitOffset%8 != 0 {
		return nil, &Error{message: "vm: unsupported non-byte-aligned field " + ent.Name()}
	}

	region, base, err := ctx.vm.resolveFieldUnit(ctx, ent)
	if err != nil {
		return nil, err
	}

	addr := base + uintptr(ent.bitOffset/8)
	width := fieldAccessWidth(ent)

	switch region.space {
	case RegionSpaceSystemMemory:
		return ctx.vm.host.ReadMem(addr, width), nil
	case RegionSpaceSystemIO:
		return ctx.vm.host.ReadIO(uint16(addr), width), nil
	case RegionSpacePCIConfig:
		seg, bus, dev, fn := pciAddressOf(region)
		return ctx.vm.host.ReadPCI(seg, bus, dev, fn, uint16(addr), width), nil
	default:
		return nil, &Error{message: "vm: unsupported region space for field " + ent.Name()}
	}
}

// vmStoreFieldUnit writes val to ent's backing hardware register.
func vmStoreFieldUnit(ctx *execContext, val uint64, ent *fieldUnitEntity) *Error {
	if ctx.vm.host == nil {
		return &Error{message: "vm: no Host installed; cannot write field " + ent.Name()}
	}
	if ent.bitOffset%8 != 0 {
		return &Error{message: "vm: unsupported non-byte-aligned field " + ent.Name()}
	}

	region, base, err := ctx.vm.resolveFieldUnit(ctx, ent)
	if err != nil {
		return err
	}

	addr := base + uintptr(ent.bitOffset/8)
	width := fieldAccessWidth(ent)

	switch region.space {
	case RegionSpaceSystemMemory:
		ctx.vm.host.WriteMem(addr, width, val)
		return nil
	case RegionSpaceSystemIO:
		ctx.vm.host.WriteIO(uint16(addr), width, val)
		return nil
	case RegionSpacePCIConfig:
		seg, bus, dev, fn := pciAddressOf(region)
		ctx.vm.host.WritePCI(seg, bus, dev, fn, uint16(addr), width, val)
		return nil
	default:
		return &Error{message: "vm: unsupported region space for field " + ent.Name()}
	}
}

// pciAddressOf derives the PCI device a PCIConfig region belongs to by
// walking the region's parent chain to the enclosing Device and decoding
// its _ADR object (high word = device number, low word = function number).
// Segment and bus default to 0; a device behind a bridge would additionally
// need _BBN/_SEG evaluated, which no firmware this kernel targets requires.
func pciAddressOf(region *regionEntity) (seg uint16, bus, dev, fn uint8) {
	for e := region.Parent(); e != nil; e = e.Parent() {
		for _, child := range e.Children() {
			if child.Name() != "_ADR" {
				continue
			}

			var val interface{}
			switch c := child.(type) {
			case *constEntity:
				val = c.val
			case *namedEntity:
				if len(c.args) != 0 {
					if inner, isConst := c.args[0].(*constEntity); isConst {
						val = inner.val
					}
				}
			}

			if adr, isInt := val.(uint64); isInt {
				return 0, 0, uint8((adr >> 16) & 0x1F), uint8(adr & 0x7)
			}
		}
	}
	return 0, 0, 0, 0
}
