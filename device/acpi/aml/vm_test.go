package aml

import (
	"os"
	"reflect"
	"testing"
)

func TestVMInit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		// Method(MTH0, 1){ Return(Add(Arg0, 5)) }
		// Method(MAIN, 0){ Return(MTH0(3)) }
		resolver := &fixedPayloadResolver{
			payload: []byte{
				0x14, 0x0c, 'M', 'T', 'H', '0', 0x01,
				0xa4, 0x72, 0x68, 0x0a, 0x05, 0x00,
				0x14, 0x0d, 'M', 'A', 'I', 'N', 0x00,
				0xa4, 'M', 'T', 'H', '0', 0x0a, 0x03,
			},
		}

		vm := NewVM(os.Stderr, resolver)
		if err := vm.Init(); err != nil {
			t.Fatal(err)
		}

		got, err := vm.Execute(`\MAIN`)
		if err != nil {
			t.Fatal(err)
		}

		if exp := uint64(8); !reflect.DeepEqual(got, exp) {
			t.Fatalf("expected \\MAIN to evaluate to %d; got %v", exp, got)
		}
	})

	t.Run("parse error", func(t *testing.T) {
		resolver := &fixedPayloadResolver{
			// invalid payload (incomplete opcode)
			payload: []byte{extOpPrefix},
		}

		expErr := &Error{message: errParsingAML.Module + ": " + errParsingAML.Error()}
		vm := NewVM(os.Stderr, resolver)
		if err := vm.Init(); !reflect.DeepEqual(err, expErr) {
			t.Fatalf("expected Init() to return errParsingAML; got %v", err)
		}
	})
}

func TestVMExecuteControlFlow(t *testing.T) {
	// Method(MIF0, 1){ If(Arg0){ Return(One) } Else { Return(Zero) } }
	// Method(MWHL, 1){ While(Arg0){ Decrement(Arg0) } Return(Zero) }
	resolver := &fixedPayloadResolver{
		payload: []byte{
			0x14, 0x0f, 'M', 'I', 'F', '0', 0x01,
			0xa0, 0x04, 0x68, 0xa4, 0x01,
			0xa1, 0x03, 0xa4, 0x00,
			0x14, 0x0d, 'M', 'W', 'H', 'L', 0x01,
			0xa2, 0x04, 0x68, 0x76, 0x68,
			0xa4, 0x00,
		},
	}

	vm := NewVM(os.Stderr, resolver)
	if err := vm.Init(); err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		method string
		input  uint64
		exp    uint64
	}{
		{`\MIF0`, 1, 1},
		{`\MIF0`, 0, 0},
		{`\MWHL`, 3, 0},
	}

	for specIndex, spec := range specs {
		got, err := vm.Execute(spec.method, spec.input)
		if err != nil {
			t.Errorf("[spec %d] %s: %v", specIndex, spec.method, err)
			continue
		}

		if !reflect.DeepEqual(got, spec.exp) {
			t.Errorf("[spec %d] %s(%d): expected %d; got %v", specIndex, spec.method, spec.input, spec.exp, got)
		}
	}
}

func TestVMPackageElements(t *testing.T) {
	// Name(_S5_, Package(2){ 0x05, Zero })
	resolver := &fixedPayloadResolver{
		payload: []byte{
			0x08, '_', 'S', '5', '_',
			0x12, 0x05, 0x02,
			0x0a, 0x05,
			0x00,
		},
	}

	vm := NewVM(os.Stderr, resolver)
	if err := vm.Init(); err != nil {
		t.Fatal(err)
	}

	elems, ok := vm.PackageElements(vm.Lookup(`\_S5_`))
	if !ok {
		t.Fatal("expected \\_S5_ to resolve to a package")
	}

	exp := []interface{}{uint64(5), uint64(0)}
	if !reflect.DeepEqual(elems, exp) {
		t.Fatalf("expected package elements %v; got %v", exp, elems)
	}

	t.Run("not a package", func(t *testing.T) {
		if _, ok := vm.PackageElements(nil); ok {
			t.Error("expected PackageElements(nil) to fail")
		}

		if _, ok := vm.PackageElements(&unnamedEntity{op: opAdd}); ok {
			t.Error("expected PackageElements on a non-package entity to fail")
		}
	})
}

func TestVMLookup(t *testing.T) {
	vm := NewVM(os.Stderr, nil)

	if got := vm.Lookup(`\`); got != vm.rootNS {
		t.Error("expected Lookup(\\) to return the root namespace")
	}

	if got := vm.Lookup(`_SB_`); got != nil {
		t.Error("expected relative lookups to fail")
	}

	if got := vm.Lookup(`\_SB_`); got == nil {
		t.Error("expected \\_SB_ to be one of the default scopes")
	}
}
