package aml

// valueType represents the data types that the AML interpreter can process.
type valueType uint8

// The list of supporte AML value types (see p. 876 of ACPI 6.2 standard)
const (
	valueTypeUninitialized valueType = iota
	valueTypeBuffer
	valueTypeBufferField
	valueTypeDDBHandle
	valueTypeDebugObject
	valueTypeDevice
	valueTypeEvent
	valueTypeFieldUnit
	valueTypeInteger // we also treat constants as integers
	valueTypeMethod
	valueTypeMutex
	valueTypeObjectRef
	valueTypeRegion
	valueTypePackage
	valueTypeString
	valueTypePowerResource
	valueTypeProcessor
	valueTypeRawDataBuffer
	valueTypeThermalZone
)

// String implements fmt.Stringer for valueType.
func (vt valueType) String() string {
	switch vt {
	case valueTypeBuffer:
		return "Buffer"
	case valueTypeBufferField:
		return "BufferField"
	case valueTypeDDBHandle:
		return "DDBHandle"
	case valueTypeDebugObject:
		return "DebugObject"
	case valueTypeDevice:
		return "Device"
	case valueTypeEvent:
		return "Event"
	case valueTypeFieldUnit:
		return "FieldUnit"
	case valueTypeInteger:
		return "Integer"
	case valueTypeMethod:
		return "Method"
	case valueTypeMutex:
		return "Mutex"
	case valueTypeObjectRef:
		return "ObjectRef"
	case valueTypeRegion:
		return "Region"
	case valueTypePackage:
		return "Package"
	case valueTypeString:
		return "String"
	case valueTypePowerResource:
		return "PowerResource"
	case valueTypeProcessor:
		return "Processor"
	case valueTypeRawDataBuffer:
		return "RawDataBuffer"
	case valueTypeThermalZone:
		return "ThermalZone"
	default:
		return "Uninitialized"
	}
}

var errConversionFailed = &Error{message: "vmConvert: conversion failed"}

// vmConvert loads the value contained in arg and attempts to convert it to
// the requested value type. Only the subset of the conversion rules from
// p.121 of the ACPI 6.2 spec that fixed-hardware control methods actually
// exercise (integer <-> string) is implemented.
func vmConvert(ctx *execContext, arg interface{}, toType valueType) (interface{}, *Error) {
	res, err := vmLoad(ctx, arg)
	if err != nil {
		return nil, &Error{message: "vmLoad: " + err.message}
	}

	from := vmTypeOf(ctx, res)
	if from == toType {
		return res, nil
	}

	switch {
	case from == valueTypeString && toType == valueTypeInteger:
		return vmConvertStringToInt(ctx, res.(string))
	case from == valueTypeInteger && toType == valueTypeString:
		return vmConvertIntToString(res.(uint64)), nil
	}

	return nil, errConversionFailed
}

// vmConvertStringToInt parses a hex value out of the leading characters of
// str, stopping at the first non-hex character. The number of characters
// consumed is capped by the DSDT's integer width.
func vmConvertStringToInt(ctx *execContext, str string) (interface{}, *Error) {
	maxDigits := 16
	if ctx != nil && ctx.vm != nil && ctx.vm.sizeOfIntInBits == 32 {
		maxDigits = 8
	}

	var (
		val    uint64
		digits int
	)

	for ; digits < len(str) && digits < maxDigits; digits++ {
		c := str[digits]
		switch {
		case c >= '0' && c <= '9':
			val = val<<4 | uint64(c-'0')
		case c >= 'a' && c <= 'f':
			val = val<<4 | uint64(c-'a'+10)
		case c >= 'A' && c <= 'F':
			val = val<<4 | uint64(c-'A'+10)
		default:
			if digits == 0 {
				return nil, errConversionFailed
			}
			return val, nil
		}
	}

	if digits == 0 {
		return nil, errConversionFailed
	}

	return val, nil
}

// vmConvertIntToString formats val as a lowercase hex string without a 0x
// prefix or leading zeroes.
func vmConvertIntToString(val uint64) string {
	const hexDigits = "0123456789abcdef"

	if val == 0 {
		return "0"
	}

	var buf [16]byte
	pos := len(buf)
	for ; val != 0; val >>= 4 {
		pos--
		buf[pos] = hexDigits[val&0xf]
	}

	return string(buf[pos:])
}

// vmToIntArg loads the arg with index argIndex attached to ent and converts
// it to an integer.
func vmToIntArg(ctx *execContext, ent Entity, argIndex int) (uint64, *Error) {
	args := ent.getArgs()
	if len(args) <= argIndex {
		return 0, errArgIndexOutOfBounds
	}

	res, err := vmConvert(ctx, args[argIndex], valueTypeInteger)
	if err != nil {
		return 0, err
	}

	return res.(uint64), nil
}

// vmToIntArgs2 loads the args with indices argIndex1 and argIndex2 attached
// to ent and converts them both to integers.
func vmToIntArgs2(ctx *execContext, ent Entity, argIndex1, argIndex2 int) (uint64, uint64, *Error) {
	args := ent.getArgs()
	if len(args) <= argIndex1 || len(args) <= argIndex2 {
		return 0, 0, errArgIndexOutOfBounds
	}

	val1, err := vmConvert(ctx, args[argIndex1], valueTypeInteger)
	if err != nil {
		return 0, 0, err
	}

	val2, err := vmConvert(ctx, args[argIndex2], valueTypeInteger)
	if err != nil {
		return 0, 0, err
	}

	return val1.(uint64), val2.(uint64), nil
}

// vmTypeOf returns the type of data stored inside the supplied argument.
func vmTypeOf(ctx *execContext, arg interface{}) valueType {
	// Some objects (e.g args, constEntity contents) may require to perform
	// more than one pass to figure out their type
	for {
		switch typ := arg.(type) {
		case *constEntity:
			// check the value stored inside
			arg = typ.val
		case *Device:
			return valueTypeDevice
		case *Method:
			return valueTypeMethod
		case *bufferEntity:
			return valueTypeBuffer
		case *bufferFieldEntity:
			return valueTypeBufferField
		case *fieldUnitEntity, *indexFieldEntity:
			return valueTypeFieldUnit
		case *regionEntity:
			return valueTypeRegion
		case *objRef:
			return valueTypeObjectRef
		case *eventEntity:
			return valueTypeEvent
		case *mutexEntity:
			return valueTypeMutex
		case Entity:
			op := typ.getOpcode()

			switch op {
			case opPackage:
				return valueTypePackage
			case opPowerRes:
				return valueTypePowerResource
			case opProcessor:
				return valueTypeProcessor
			case opThermalZone:
				return valueTypeThermalZone
			}

			// Check if this a local or method arg; if so we need to
			// fetch the arg and check its type
			if op >= opLocal0 && op <= opLocal7 {
				arg = ctx.localArg[op-opLocal0]
			} else if op >= opArg0 && op <= opArg6 {
				arg = ctx.methodArg[op-opArg0]
			} else {
				return valueTypeUninitialized
			}
		case string:
			return valueTypeString
		case uint64, bool:
			return valueTypeInteger
		case []byte:
			return valueTypeRawDataBuffer
		default:
			return valueTypeUninitialized
		}
	}
}
