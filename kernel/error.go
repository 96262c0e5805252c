package kernel

// Error describes an error that occurred inside a kernel package. Unlike the
// standard error interface, it also exposes the name of the module that
// generated it so that callers can filter or annotate diagnostics without
// parsing the message.
type Error struct {
	// Module contains the name of the module that generated this error.
	Module string

	// Message contains the error description.
	Message string
}

// Error implements the error interface.
func (err *Error) Error() string {
	return "[" + err.Module + "] " + err.Message
}
