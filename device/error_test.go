package device

import (
	"testing"

	"nocciolo/kernel"
)

func TestErrorFormatting(t *testing.T) {
	cause := &kernel.Error{Module: "acpi", Message: "checksum mismatch"}

	specs := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: ErrorKindACPI, Region: "FACP", Err: cause}, "acpi [FACP]: [acpi] checksum mismatch"},
		{&Error{Kind: ErrorKindAML, Region: "DSDT", Err: cause}, "aml [DSDT]: [acpi] checksum mismatch"},
		{&Error{Kind: ErrorKindAML, Err: cause}, "aml: [acpi] checksum mismatch"},
		{&Error{Kind: ErrorKindACPI, Region: "XSDT"}, "acpi [XSDT]"},
	}

	for _, spec := range specs {
		if got := spec.err.Error(); got != spec.want {
			t.Errorf("expected %q; got %q", spec.want, got)
		}
	}
}

func TestErrorWithRegion(t *testing.T) {
	cause := &kernel.Error{Module: "acpi", Message: "bad table"}
	base := &Error{Kind: ErrorKindACPI, Err: cause}

	tagged := base.WithRegion("MCFG")
	if tagged.Region != "MCFG" || tagged.Kind != base.Kind || tagged.Err != base.Err {
		t.Errorf("expected WithRegion to copy kind and cause; got %+v", tagged)
	}
	if base.Region != "" {
		t.Error("expected WithRegion to leave the original untouched")
	}
	if tagged.Unwrap() != cause {
		t.Error("expected Unwrap to return the wrapped cause")
	}
}
