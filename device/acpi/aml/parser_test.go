package aml

import (
	"io/ioutil"
	"testing"
	"unsafe"

	"nocciolo/device/acpi/table"
)

// fixedPayloadResolver serves a synthetic DSDT whose AML payload is the
// supplied byte slice, prefixed with a well-formed SDT header.
type fixedPayloadResolver struct {
	payload []byte
}

func (f fixedPayloadResolver) LookupTable(name string) *table.SDTHeader {
	hdrLen := int(unsafe.Sizeof(table.SDTHeader{}))
	buf := make([]byte, len(f.payload)+hdrLen)
	copy(buf[hdrLen:], f.payload)

	hdr := (*table.SDTHeader)(unsafe.Pointer(&buf[0]))
	hdr.Length = uint32(len(buf))

	return hdr
}

func genDefaultTestScopes() ScopeEntity {
	rootNS := &scopeEntity{op: opScope, name: `\`}
	rootNS.Append(&scopeEntity{op: opScope, name: `_SB_`})
	return rootNS
}

func parsePayload(t *testing.T, root ScopeEntity, payload []byte) {
	t.Helper()

	p := NewParser(ioutil.Discard, root)
	resolver := fixedPayloadResolver{payload}
	if err := p.ParseAML(1, "DSDT", resolver.LookupTable("DSDT")); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
}

func TestParseNamedPackage(t *testing.T) {
	root := genDefaultTestScopes()

	// Name(_S5_, Package(2){ 0x05, Zero })
	parsePayload(t, root, []byte{
		0x08, '_', 'S', '5', '_',
		0x12, 0x05, 0x02,
		0x0a, 0x05,
		0x00,
	})

	ent := scopeFindRelative(root, "_S5_")
	if ent == nil {
		t.Fatal("expected _S5_ to be defined at the root scope")
	}

	named, ok := ent.(*namedEntity)
	if !ok {
		t.Fatalf("expected _S5_ to be a named entity; got %#v", ent)
	}

	pkg, ok := named.args[0].(*packageEntity)
	if !ok {
		t.Fatalf("expected _S5_ to wrap a package; got %#v", named.args[0])
	}

	elems := pkg.Children()
	if len(elems) != 2 {
		t.Fatalf("expected package to contain 2 elements; got %d", len(elems))
	}

	if val := elems[0].(*constEntity).val; val != uint64(5) {
		t.Errorf("expected element 0 to be 5; got %v", val)
	}
	if val := elems[1].(*constEntity).val; val != uint64(0) {
		t.Errorf("expected element 1 to be 0; got %v", val)
	}
}

func TestParseDeviceWithADR(t *testing.T) {
	root := genDefaultTestScopes()

	// Device(DEV0){ Name(_ADR, 0x00020000) }
	parsePayload(t, root, []byte{
		0x5b, 0x82, 0x0f, 'D', 'E', 'V', '0',
		0x08, '_', 'A', 'D', 'R',
		0x0c, 0x00, 0x00, 0x02, 0x00,
	})

	dev, ok := scopeFindRelative(root, "DEV0").(*Device)
	if ok == false {
		t.Fatal("expected DEV0 to be a Device")
	}

	adr, ok := scopeFindRelative(dev, "_ADR").(*namedEntity)
	if !ok {
		t.Fatal("expected DEV0 to contain _ADR")
	}

	if val := adr.args[0].(*constEntity).val; val != uint64(0x00020000) {
		t.Errorf("expected _ADR to be 0x00020000; got %#x", val)
	}

	if seg, bus, devNo, fn := pciAddressOf(&regionEntity{namedEntity: namedEntity{parent: dev}}); seg != 0 || bus != 0 || devNo != 2 || fn != 0 {
		t.Errorf("expected PCI address 0:0:2.0; got %d:%d:%d.%d", seg, bus, devNo, fn)
	}
}

func TestParseScopeBlock(t *testing.T) {
	root := genDefaultTestScopes()

	// Scope(\_SB_){ Device(DEV2){} }
	parsePayload(t, root, []byte{
		0x10, 0x0d, '\\', '_', 'S', 'B', '_',
		0x5b, 0x82, 0x05, 'D', 'E', 'V', '2',
	})

	if dev := scopeFindRelative(root, "_SB_.DEV2"); dev == nil {
		t.Fatal("expected \\_SB_.DEV2 to be defined")
	}
}

func TestParseRegionAndFieldUnits(t *testing.T) {
	root := genDefaultTestScopes()

	// OperationRegion(GPI0, SystemIO, 0x00, 0x10)
	// Field(GPI0, ByteAcc, NoLock, Preserve){ FLD0, 8, Offset(2), FLD1, 8 }
	parsePayload(t, root, []byte{
		0x5b, 0x80, 'G', 'P', 'I', '0', 0x01, 0x0a, 0x00, 0x0a, 0x10,
		0x5b, 0x81, 0x12, 'G', 'P', 'I', '0', 0x01,
		'F', 'L', 'D', '0', 0x08,
		0x00, 0x08,
		'F', 'L', 'D', '1', 0x08,
	})

	region, ok := scopeFindRelative(root, "GPI0").(*regionEntity)
	if !ok {
		t.Fatal("expected GPI0 to be a region")
	}
	if region.space != RegionSpaceSystemIO {
		t.Errorf("expected GPI0 space to be SystemIO; got %d", region.space)
	}

	specs := []struct {
		name      string
		bitOffset uint32
	}{
		{"FLD0", 0},
		{"FLD1", 16},
	}

	for _, spec := range specs {
		fld, ok := scopeFindRelative(root, spec.name).(*fieldUnitEntity)
		if !ok {
			t.Fatalf("expected %s to be a field unit", spec.name)
		}

		if fld.regionName != "GPI0" {
			t.Errorf("%s: expected region name GPI0; got %s", spec.name, fld.regionName)
		}
		if fld.bitOffset != spec.bitOffset {
			t.Errorf("%s: expected bit offset %d; got %d", spec.name, spec.bitOffset, fld.bitOffset)
		}
		if fld.bitWidth != 8 {
			t.Errorf("%s: expected bit width 8; got %d", spec.name, fld.bitWidth)
		}
		if fld.accessType != FieldAccessTypeByte {
			t.Errorf("%s: expected byte access; got %d", spec.name, fld.accessType)
		}
		if fld.resolvedRegion != region {
			t.Errorf("%s: expected field to resolve to GPI0", spec.name)
		}
	}
}

func TestParseMethodDeclaration(t *testing.T) {
	root := genDefaultTestScopes()

	// Method(MTH0, 1){ Return(Add(Arg0, 5)) }
	parsePayload(t, root, []byte{
		0x14, 0x0c, 'M', 'T', 'H', '0', 0x01,
		0xa4, 0x72, 0x68, 0x0a, 0x05, 0x00,
	})

	method, ok := scopeFindRelative(root, "MTH0").(*Method)
	if !ok {
		t.Fatal("expected MTH0 to be a method")
	}

	if method.argCount != 1 {
		t.Errorf("expected MTH0 to declare 1 arg; got %d", method.argCount)
	}

	if got := len(method.Children()); got != 1 {
		t.Fatalf("expected MTH0 body to contain 1 opcode; got %d", got)
	}

	if op := method.Children()[0].getOpcode(); op != opReturn {
		t.Errorf("expected MTH0 body to start with Return; got %s", op.String())
	}
}

func TestParseForwardMethodInvocation(t *testing.T) {
	root := genDefaultTestScopes()

	// Method(MAIN, 0){ Return(MTH0(3)) }
	// Method(MTH0, 1){ Return(Arg0) }
	// MAIN references MTH0 before its declaration; arg counts still
	// resolve because method bodies parse in a second pass.
	parsePayload(t, root, []byte{
		0x14, 0x0d, 'M', 'A', 'I', 'N', 0x00,
		0xa4, 'M', 'T', 'H', '0', 0x0a, 0x03,
		0x14, 0x08, 'M', 'T', 'H', '0', 0x01,
		0xa4, 0x68,
	})

	main, ok := scopeFindRelative(root, "MAIN").(*Method)
	if !ok {
		t.Fatal("expected MAIN to be a method")
	}

	ret := main.Children()[0]
	inv, ok := ret.getArgs()[0].(*methodInvocationEntity)
	if !ok {
		t.Fatalf("expected Return arg to be a method invocation; got %#v", ret.getArgs()[0])
	}

	if inv.methodDef == nil || inv.methodDef.Name() != "MTH0" {
		t.Error("expected invocation to reference MTH0")
	}

	if len(inv.args) != 1 {
		t.Fatalf("expected invocation to carry 1 arg; got %d", len(inv.args))
	}
}

func TestParseIfElse(t *testing.T) {
	root := genDefaultTestScopes()

	// Method(MIF0, 1){ If(Arg0){ Return(One) } Else { Return(Zero) } }
	parsePayload(t, root, []byte{
		0x14, 0x0f, 'M', 'I', 'F', '0', 0x01,
		0xa0, 0x04, 0x68, 0xa4, 0x01,
		0xa1, 0x03, 0xa4, 0x00,
	})

	method := scopeFindRelative(root, "MIF0").(*Method)
	if got := len(method.Children()); got != 1 {
		t.Fatalf("expected the else block to fold into the if entity; got %d body opcodes", got)
	}

	ifEnt := method.Children()[0]
	if op := ifEnt.getOpcode(); op != opIf {
		t.Fatalf("expected an If entity; got %s", op.String())
	}

	if got := len(ifEnt.getArgs()); got != 3 {
		t.Fatalf("expected If entity to carry predicate, then and else args; got %d", got)
	}
}

func TestParseErrors(t *testing.T) {
	specs := []struct {
		descr   string
		payload []byte
	}{
		{"incomplete extended opcode", []byte{extOpPrefix}},
		{"else without matching if", []byte{0xa1, 0x03, 0xa4, 0x00}},
		{"undefined scope", []byte{0x10, 0x06, 'F', 'O', 'O', 'F'}},
		{"truncated package length", []byte{0x12, 0xc0}},
		{"garbage name string", []byte{0x08, 0x05, 0x05, 0x05, 0x05}},
	}

	for _, spec := range specs {
		root := genDefaultTestScopes()
		p := NewParser(ioutil.Discard, root)
		resolver := fixedPayloadResolver{spec.payload}

		if err := p.ParseAML(0, "DSDT", resolver.LookupTable("DSDT")); err == nil {
			t.Errorf("%s: expected ParseAML to fail", spec.descr)
		}
	}
}

func TestParseNameStringForms(t *testing.T) {
	specs := []struct {
		descr   string
		payload []byte
		exp     string
	}{
		{"root prefixed", []byte{'\\', '_', 'S', 'B', '_'}, `\_SB_`},
		{"parent prefixed", []byte{'^', '^', 'F', 'O', 'O', '_'}, `^^FOO_`},
		{"dual name", []byte{0x2e, 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H'}, "ABCD.EFGH"},
		{"multi name", []byte{0x2f, 0x03, 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L'}, "ABCD.EFGH.IJKL"},
		{"null name", []byte{0x00}, ""},
	}

	for _, spec := range specs {
		p := NewParser(ioutil.Discard, genDefaultTestScopes())
		p.r.Init(uintptr(unsafe.Pointer(&spec.payload[0])), uint32(len(spec.payload)), 0)

		got, ok := p.parseNameString()
		if !ok {
			t.Errorf("%s: parseNameString failed", spec.descr)
			continue
		}
		if got != spec.exp {
			t.Errorf("%s: expected %q; got %q", spec.descr, spec.exp, got)
		}
	}
}

func TestParsePkgLengthEncodings(t *testing.T) {
	specs := []struct {
		payload []byte
		exp     uint32
	}{
		{[]byte{0x3f}, 0x3f},
		{[]byte{0x4a, 0xbc}, 0xbca},
		{[]byte{0x8a, 0xbc, 0xde}, 0xdebca},
		{[]byte{0xca, 0xbc, 0xde, 0xf0}, 0xf0debca},
	}

	for specIndex, spec := range specs {
		p := NewParser(ioutil.Discard, genDefaultTestScopes())
		p.r.Init(uintptr(unsafe.Pointer(&spec.payload[0])), uint32(len(spec.payload)), 0)

		got, ok := p.parsePkgLength()
		if !ok {
			t.Errorf("[spec %d] parsePkgLength failed", specIndex)
			continue
		}
		if got != spec.exp {
			t.Errorf("[spec %d] expected pkgLen %#x; got %#x", specIndex, spec.exp, got)
		}
	}
}
