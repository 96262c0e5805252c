package aml

// vmLoad returns the value contained inside arg. To obtain the actual stored
// value vmLoad will automatically peek into const entities and lookup
// local/global args.
func vmLoad(ctx *execContext, arg interface{}) (interface{}, *Error) {
	// We need to keep evaluating types till we reach a type that can be
	// returned.  For example, a local arg may contain a const entity for
	// which we want to fetch the contained value.
	for {
		switch typ := arg.(type) {
		case *constEntity:
			arg = typ.val
		case *fieldUnitEntity:
			return vmLoadFieldUnit(ctx, typ)
		case *namedReference:
			// References inside method bodies resolve lazily on first
			// use; everything else was resolved right after parsing.
			if typ.target == nil {
				if ctx == nil || ctx.vm == nil || !typ.Resolve(ctx.vm.errWriter, ctx.vm.rootNS) {
					return nil, &Error{message: "vmLoad: unresolved reference: " + typ.targetName}
				}
			}
			arg = typ.target
		case *namedEntity:
			// Name(FOO, value) loads as the wrapped value.
			if len(typ.args) == 0 {
				return nil, &Error{message: "vmLoad: named entity " + typ.name + " wraps no value"}
			}
			arg = typ.args[0]
		case Entity:
			op := typ.getOpcode()
			switch {
			case opIsLocalArg(op):
				arg = ctx.localArg[op-opLocal0]
			case opIsMethodArg(op):
				arg = ctx.methodArg[op-opArg0]
			case op == opBuffer:
				if buf, isBuf := typ.(*bufferEntity); isBuf {
					return buf.data, nil
				}
				return nil, &Error{message: "readArg: unsupported entity type: " + op.String()}
			default:
				// Val may be a nested opcode (e.g Add(Add(1,1), 2))
				// In this case, try evaluating the opcode and replace arg with the
				// output value that gets stored stored into ctx.retVal
				if err := ctx.vm.jumpTable[typ.getOpcode()](ctx, typ); err != nil {
					return nil, err
				}

				arg = ctx.retVal
			}
		case bool:
			// Convert boolean results to ints so they can be used
			// by the ALU comparators.
			if typ {
				return uint64(1), nil
			}
			return uint64(0), nil
		case *objRef:
			// According to p. 884 of the spec, reading from a
			// method argument reference automatically dereferences
			// the value
			if typ.isArgRef {
				return typ.ref, nil
			}

			// In all other cases we return back the reference itself
			return typ, nil
		default:
			return typ, nil
		}
	}
}

// vmCondStore is a wrapper around vmStore that checks whether argIndex
// contains a non-nil target before attempting to write val to it. If argIndex
// is out of bounds or it points to a nil target then this function behaves as
// a no-op.
func vmCondStore(ctx *execContext, val interface{}, ent Entity, argIndex int) *Error {
	args := ent.getArgs()
	if len(args) <= argIndex || vmIsNilTarget(args[argIndex]) {
		return nil
	}

	return vmStore(ctx, val, args[argIndex])
}

// vmStore attempts to write the value contained in src to dst.
func vmStore(ctx *execContext, src, dst interface{}) *Error {
	if dst == nil || src == nil {
		return errNilStoreOperands
	}

	// The target should be some type of AML Entity
	dstEnt, ok := dst.(Entity)
	if !ok {
		return errInvalidStoreDestination
	}

	// Follow named references to their resolved target, resolving lazily
	// for references inside method bodies.
	if ref, isRef := dst.(*namedReference); isRef {
		if ref.target == nil {
			if ctx == nil || ctx.vm == nil || !ref.Resolve(ctx.vm.errWriter, ctx.vm.rootNS) {
				return &Error{message: "vmStore: unresolved reference: " + ref.targetName}
			}
		}
		return vmStore(ctx, src, ref.target)
	}

	// A named entity wrapping a storable object (e.g. Name(FOO, 0x42))
	// stores through to the wrapped object.
	if named, isNamed := dst.(*namedEntity); isNamed {
		if len(named.args) != 0 {
			if inner, isEnt := named.args[0].(Entity); isEnt {
				return vmStore(ctx, src, inner)
			}
		}
	}

	dstOp := dstEnt.getOpcode()

	// According to the spec, storing to a constant is a no-op and not a
	// fatal error. In addition, if the destination is the Debug opbject,
	// the interpreter must display the value written to it. This
	// interpreter implementation just treats this as a no-op.
	if _, ok := dst.(*constEntity); ok || dstOp == opDebug {
		return nil
	}

	// The spec requires the interpreter to make a copy of the src object
	// and apply the appropriate conversions depending on the destination
	// object type
	srcCopy, err := vmCopyObject(ctx, src)
	if err != nil {
		return err
	}

	if fu, ok := dst.(*fieldUnitEntity); ok {
		v, ok := srcCopy.(uint64)
		if !ok {
			return &Error{message: "vmStore: field write requires an integer value"}
		}
		return vmStoreFieldUnit(ctx, v, fu)
	}

	switch {
	case opIsLocalArg(dstOp):
		// According to p.897 of the spec, writing to a local object
		// always overwrites the previous value with a copy of src even
		// if this is an object reference
		ctx.localArg[dstOp-opLocal0] = srcCopy
		return nil
	case opIsMethodArg(dstOp):
		// According to p.896 of the spec, if ArgX is a reference
		// we need to dereference it and store the copied object
		// in the reference. In all other cases we just overwrite the
		// value in ArgX with the object copy
		if dstRef, isRef := ctx.methodArg[dstOp-opArg0].(*objRef); isRef {
			dstRef.ref = srcCopy
		} else {
			ctx.methodArg[dstOp-opArg0] = srcCopy
		}

		return nil
	}

	return &Error{message: "vmStore: unsupported opcode: " + dstOp.String()}
}

// vmIsNilTarget returns true if t is nil or a nil const entity (a const
// with a nil value, or the empty-string const the parser emits for a
// NullName target).
func vmIsNilTarget(target interface{}) bool {
	if target == nil {
		return true
	}

	if ent, ok := target.(*constEntity); ok {
		return ent.val == nil || ent.val == ""
	}

	return false
}

// vmCopyObject returns a copy of obj.
func vmCopyObject(ctx *execContext, obj interface{}) (interface{}, *Error) {
	switch typ := obj.(type) {
	case string:
		return typ, nil
	case uint64:
		return typ, nil
	}
	return nil, errCopyFailed
}
