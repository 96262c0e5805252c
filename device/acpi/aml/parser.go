package aml

import (
	"io"
	"nocciolo/device/acpi/table"
	"nocciolo/kernel"
	"nocciolo/kernel/kfmt"
	"unsafe"
)

var (
	errParsingAML        = &kernel.Error{Module: "acpi_aml_parser", Message: "could not parse AML bytecode"}
	errResolvingEntities = &kernel.Error{Module: "acpi_aml_parser", Message: "AML bytecode contains unresolvable entities"}
)

type parseOpt uint8

const (
	parseOptSkipMethodBodies parseOpt = iota
	parseOptParseMethodBodies
)

// Parser implements an AML parser.
type Parser struct {
	r           amlStreamReader
	errWriter   io.Writer
	root        ScopeEntity
	scopeStack  []ScopeEntity
	tableName   string
	tableHandle uint8

	parseOptions parseOpt
}

// NewParser returns a new AML parser instance that attaches the entities it
// creates under rootEntity and emits parse errors to errWriter.
func NewParser(errWriter io.Writer, rootEntity ScopeEntity) *Parser {
	return &Parser{
		errWriter: errWriter,
		root:      rootEntity,
	}
}

// ParseAML attempts to parse the AML byte-code contained in the supplied ACPI
// table tagging each scoped entity with the supplied table handle. The parser
// emits any encountered errors to the specified errWriter.
func (p *Parser) ParseAML(tableHandle uint8, tableName string, header *table.SDTHeader) *kernel.Error {
	p.tableHandle = tableHandle
	p.tableName = tableName
	p.r.Init(
		uintptr(unsafe.Pointer(header)),
		header.Length,
		uint32(unsafe.Sizeof(table.SDTHeader{})),
	)

	// Pass 1: decode bytecode and build entities without recursing into
	// method bodies.
	p.parseOptions = parseOptSkipMethodBodies
	p.scopeStack = nil
	p.scopeEnter(p.root)
	if !p.parseObjList(header.Length) {
		lastOp, _ := p.r.LastByte()
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] error parsing AML bytecode (last op 0x%x)\n", p.tableName, p.r.Offset()-1, lastOp)
		return errParsingAML
	}
	p.scopeExit()

	// Pass 2: parse method bodies, check entity parents and resolve all
	// symbol references.
	var resolveFailed bool
	scopeVisit(0, p.root, EntityTypeAny, func(_ int, ent Entity) bool {
		if method, isMethod := ent.(*Method); isMethod {
			// Only methods declared by the table being parsed: bodies of
			// methods from previously parsed tables are already populated.
			if method.TableHandle() == p.tableHandle {
				resolveFailed = resolveFailed || !p.parseMethodBody(method)
			}

			// Don't recurse into method bodies; their contents
			// will be lazily resolved by the VM.
			return false
		}

		// Populate parents for any entity args that are also entities but
		// are not linked to a parent (e.g. a package inside a named entity).
		for _, arg := range ent.getArgs() {
			if argEnt, isArgEnt := arg.(Entity); isArgEnt && argEnt.Parent() == nil {
				argEnt.setParent(ent.Parent())
			}
		}

		// Resolve any symbol references
		if lazyRef, ok := ent.(resolver); ok && !lazyRef.Resolve(p.errWriter, p.root) {
			resolveFailed = true
			return false
		}

		return true
	})

	if resolveFailed {
		return errResolvingEntities
	}

	return nil
}

// parseObjList tries to parse an AML object list. Object lists are usually
// specified together with a pkgLen block which is used to calculate the max
// read offset that the parser may reach.
func (p *Parser) parseObjList(maxOffset uint32) bool {
	for !p.r.EOF() && p.r.Offset() < maxOffset {
		if !p.parseObj() {
			return false
		}
	}

	return true
}

func (p *Parser) parseObj() bool {
	var (
		curOffset uint32
		pkgLen    uint32
		info      *opcodeInfo
		ok        bool
	)

	// If we cannot decode the next opcode then this may be a method
	// invocation or a name reference.
	curOffset = p.r.Offset()
	if info, ok = p.nextOpcode(); !ok {
		p.r.SetOffset(curOffset)
		return p.parseNamedRef()
	}

	hasPkgLen := info.flags.is(opFlagHasPkgLen) || info.argFlags.contains(opArgTermList) || info.argFlags.contains(opArgFieldList)

	if hasPkgLen {
		curOffset = p.r.Offset()
		if pkgLen, ok = p.parsePkgLength(); !ok {
			return false
		}
	}

	// If we encounter a named scope we need to look it up and parse the
	// arg list relative to it. Field elements are appended to the current
	// scope directly and bypass the generic arg machinery.
	switch {
	case info.op == opScope:
		return p.parseScope(curOffset + pkgLen)
	case info.op == opField || info.op == opIndexField || info.op == opBankField:
		return p.parseFieldElements(info.op, curOffset+pkgLen)
	case info.flags.is(opFlagNamed | opFlagScoped):
		return p.parseNamespacedObj(info, curOffset+pkgLen)
	}

	// Create appropriate object for opcode type and attach it to the
	// current scope.
	obj := p.makeObjForOpcode(info)
	p.scopeCurrent().Append(obj)

	if argCount := info.argFlags.argCount(); argCount > 0 {
		for argIndex := uint8(0); argIndex < argCount; argIndex++ {
			if !p.parseArg(
				info,
				obj,
				argIndex,
				info.argFlags.arg(argIndex),
				curOffset+pkgLen,
			) {
				return false
			}
		}
	}

	return p.finalizeObj(info.op, obj)
}

// finalizeObj applies post-parse logic for special object types.
func (p *Parser) finalizeObj(op opcode, obj Entity) bool {
	switch op {
	case opElse:
		// If this is an else block we need to append it as an argument to
		// the matching If block. Pop the Else block off the current scope.
		curScope := p.scopeCurrent()
		curScope.removeChild(curScope.lastChild())
		if len(curScope.Children()) == 0 {
			kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] encountered else block without a matching if block\n", p.tableName, p.r.Offset())
			return false
		}
		prevObj := curScope.lastChild()
		if prevObj.getOpcode() != opIf {
			kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] encountered else block without a matching if block\n", p.tableName, p.r.Offset())
			return false
		}

		// If predicate(0) then(1) else(2)
		prevObj.setArg(2, obj)
	}

	return true
}

// parseScope reads a scope name from the AML bytestream, enters it and parses
// an objlist relative to it. The referenced scope must be one of:
// - one of the pre-defined scopes
// - device
// - processor
// - thermal zone
// - power resource
func (p *Parser) parseScope(maxReadOffset uint32) bool {
	name, ok := p.parseNameString()
	if !ok {
		return false
	}

	target := scopeFind(p.scopeCurrent(), p.root, name)
	if target == nil {
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] undefined scope: %s\n", p.tableName, p.r.Offset(), name)
		return false
	}

	switch target.getOpcode() {
	case opDevice, opProcessor, opThermalZone, opPowerRes:
		// ok
	default:
		// Only allow if this is a named scope
		if target.Name() == "" {
			kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] %s does not refer to a scoped object\n", p.tableName, p.r.Offset(), name)
			return false
		}
	}

	p.scopeEnter(target.(ScopeEntity))
	ok = p.parseObjList(maxReadOffset)
	p.scopeExit()

	return ok
}

// parseNamespacedObj reads a scope target name from the AML bytestream,
// attaches the appropriate object depending on the opcode to the correct
// parent scope and then parses any contained objects. The contained objects
// will be appended inside the newly constructed scope.
func (p *Parser) parseNamespacedObj(info *opcodeInfo, maxReadOffset uint32) bool {
	scopeExpr, ok := p.parseNameString()
	if !ok {
		return false
	}

	parent, name := scopeResolvePath(p.scopeCurrent(), p.root, scopeExpr)
	if parent == nil {
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] undefined scope target: %s (current scope: %s)\n", p.tableName, p.r.Offset(), scopeExpr, p.scopeCurrent().Name())
		return false
	}

	var obj ScopeEntity
	switch info.op {
	case opDevice:
		obj = &Device{scopeEntity: scopeEntity{op: opDevice, name: name}}
	case opProcessor, opPowerRes, opThermalZone:
		obj = &scopeEntity{op: info.op, name: name}
	case opMethod:
		obj = &Method{scopeEntity: scopeEntity{op: opMethod, name: name}}
	default:
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] unsupported namespaced op: %s (current scope: %s)\n", p.tableName, p.r.Offset(), info.op.String(), p.scopeCurrent().Name())
		return false
	}
	obj.setTableHandle(p.tableHandle)

	// Parse any args that follow the name. The last arg is always an
	// ArgTermList.
	parent.Append(obj)
	for argIndex := uint8(1); argIndex < info.argFlags.argCount(); argIndex++ {
		if !p.parseArg(info, obj, argIndex, info.argFlags.arg(argIndex), maxReadOffset) {
			return false
		}
	}

	return ok && p.finalizeObj(info.op, obj)
}

func (p *Parser) parseArg(info *opcodeInfo, obj Entity, argIndex uint8, argType opArgFlag, maxReadOffset uint32) bool {
	var (
		arg interface{}
		ok  bool
	)

	switch argType {
	case opArgNameString:
		arg, ok = p.parseNameString()
	case opArgByteData:
		arg, ok = p.parseNumConstant(1)
	case opArgWord:
		arg, ok = p.parseNumConstant(2)
	case opArgDword:
		arg, ok = p.parseNumConstant(4)
	case opArgQword:
		arg, ok = p.parseNumConstant(8)
	case opArgString:
		arg, ok = p.parseString()
	case opArgTermObj, opArgDataRefObj:
		arg, ok = p.parseArgObj()
	case opArgSimpleName:
		arg, ok = p.parseSimpleName()
	case opArgSuperName:
		arg, ok = p.parseSuperName()
	case opArgTarget:
		arg, ok = p.parseTarget()
	case opArgTermList:
		// If this is a method and the SkipMethodBodies option is set
		// then record the body start and end offset so we can parse
		// it at a later stage.
		if method, isMethod := obj.(*Method); isMethod && p.parseOptions == parseOptSkipMethodBodies {
			method.bodyStartOffset = p.r.Offset()
			method.bodyEndOffset = maxReadOffset
			p.r.SetOffset(maxReadOffset)
			return true
		}

		// If object is a scoped entity enter its scope before parsing
		// the term list. Otherwise, create an unnamed scope, attach it
		// as the next argument to obj and enter that.
		if s, isScopeEnt := obj.(ScopeEntity); isScopeEnt {
			p.scopeEnter(s)
		} else {
			// Create an unnamed scope (e.g if, else, while scope)
			ns := &scopeEntity{op: info.op, tableHandle: p.tableHandle}
			p.scopeEnter(ns)
			obj.setArg(argIndex, ns)
		}

		ok = p.parseObjList(maxReadOffset)
		p.scopeExit()
		return ok
	case opArgByteList:
		var bl []byte
		for p.r.Offset() < maxReadOffset {
			b, err := p.r.ReadByte()
			if err != nil {
				return false
			}
			bl = append(bl, b)
		}
		arg, ok = bl, true
	}

	if !ok {
		return false
	}

	return obj.setArg(argIndex, arg)
}

func (p *Parser) parseArgObj() (Entity, bool) {
	if ok := p.parseObj(); !ok {
		return nil, false
	}

	curScope := p.scopeCurrent()
	obj := curScope.lastChild()
	curScope.removeChild(obj)
	return obj, true
}

func (p *Parser) makeObjForOpcode(info *opcodeInfo) Entity {
	var obj Entity

	switch {
	case info.op == opOpRegion:
		obj = &regionEntity{namedEntity: namedEntity{op: opOpRegion}}
	case info.op == opBuffer:
		obj = &bufferEntity{unnamedEntity: unnamedEntity{op: opBuffer}}
	case info.op == opMutex:
		obj = &mutexEntity{}
	case info.op == opEvent:
		obj = &eventEntity{namedEntity: namedEntity{op: opEvent}}
	case opIsBufferField(info.op):
		obj = &bufferFieldEntity{namedEntity: namedEntity{op: info.op}}
	case info.op == opPackage || info.op == opVarPackage:
		obj = &packageEntity{scopeEntity: scopeEntity{op: info.op}}
	case info.flags.is(opFlagConstant):
		c := &constEntity{}
		c.setOpcode(info.op)
		obj = c
	case info.flags.is(opFlagScoped):
		obj = &scopeEntity{op: info.op}
	case info.flags.is(opFlagNamed):
		obj = &namedEntity{op: info.op}
	default:
		obj = &unnamedEntity{op: info.op}
	}

	obj.setTableHandle(p.tableHandle)
	return obj
}

// parseMethodBody parses the entities that make up a method's body. After the
// entire AML tree has been parsed, the parser makes a second pass and calls
// parseMethodBody for each Method entity.
//
// By deferring the parsing of the method body, we ensure that the parser can
// look up the method declarations (even when forward declarations are used)
// for each method invocation. As method declarations contain information
// about the expected argument count, the parser can use this information to
// properly parse the invocation arguments. For more details see parseNamedRef.
func (p *Parser) parseMethodBody(method *Method) bool {
	p.parseOptions = parseOptParseMethodBodies
	p.scopeEnter(method)
	p.r.SetOffset(method.bodyStartOffset)
	ok := p.parseArg(&opcodeTable[methodOpInfoIndex], method, 2, opArgTermList, method.bodyEndOffset)
	p.scopeExit()

	return ok
}

// parseNamedRef attempts to parse either a method invocation or a named
// reference. As AML allows for forward references, the actual contents for
// this entity will not be known until the entire AML stream has been parsed.
//
// Grammar:
// MethodInvocation := NameString TermArgList
// TermArgList = Nothing | TermArg TermArgList
// TermArg = Type2Opcode | DataObject | ArgObj | LocalObj | MethodInvocation
func (p *Parser) parseNamedRef() bool {
	name, ok := p.parseNameString()
	if !ok {
		return false
	}

	// Check if this is a method invocation
	ent := scopeFind(p.scopeCurrent(), p.root, name)
	if methodDef, isMethod := ent.(*Method); isMethod {
		var (
			curOffset uint32
			argIndex  uint8
			arg       Entity
			argList   []interface{}
		)

		for argIndex < methodDef.argCount && !p.r.EOF() {
			// Peek next opcode
			curOffset = p.r.Offset()
			nextOpcode, ok := p.nextOpcode()
			p.r.SetOffset(curOffset)

			switch {
			case ok && (opIsType2(nextOpcode.op) || opIsArg(nextOpcode.op) || opIsDataObject(nextOpcode.op)):
				arg, ok = p.parseArgObj()
			default:
				// It may be a nested invocation or named ref
				ok = p.parseNamedRef()
				if ok {
					arg = p.scopeCurrent().lastChild()
					p.scopeCurrent().removeChild(arg)
				}
			}

			// No more TermArgs to parse
			if !ok {
				p.r.SetOffset(curOffset)
				break
			}

			argList = append(argList, arg)
			argIndex++
		}

		// Check whether all expected arguments have been parsed
		if argIndex != methodDef.argCount {
			kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] unexpected arglist end for method %s invocation: expected %d; got %d\n", p.tableName, p.r.Offset(), name, methodDef.argCount, argIndex)
			return false
		}

		return p.scopeCurrent().Append(&methodInvocationEntity{
			unnamedEntity: unnamedEntity{op: opMethodInvocation, args: argList, tableHandle: p.tableHandle},
			methodDef:     methodDef,
		})
	}

	// Otherwise this is a reference to a named entity
	return p.scopeCurrent().Append(&namedReference{
		unnamedEntity: unnamedEntity{tableHandle: p.tableHandle},
		targetName:    name,
	})
}

func (p *Parser) nextOpcode() (*opcodeInfo, bool) {
	next, err := p.r.ReadByte()
	if err != nil {
		return nil, false
	}

	if next != extOpPrefix {
		index := opcodeMap[next]
		if index == badOpcode {
			return nil, false
		}
		return &opcodeTable[index], true
	}

	// Scan next byte to figure out the opcode
	if next, err = p.r.ReadByte(); err != nil {
		return nil, false
	}

	index := extendedOpcodeMap[next]
	if index == badOpcode {
		return nil, false
	}
	return &opcodeTable[index], true
}

// parseFieldElements parses the field prologue (the referenced region or
// index/data registers plus the field flags byte) followed by a list of
// FieldElements which are appended to the current scope as field unit
// entities. Per the ACPI spec, field units are visible at the same scope as
// the Field declaration itself.
//
// Grammar:
// FieldElement := NamedField | ReservedField | AccessField |
//  ExtendedAccessField | ConnectField
// NamedField := NameSeg PkgLength
// ReservedField := 0x00 PkgLength
// AccessField := 0x1 AccessType AccessAttrib
// ConnectField := 0x02 NameString | 0x02 BufferData
// ExtendedAccessField := 0x3 AccessType ExtendedAccessType AccessLength
func (p *Parser) parseFieldElements(op opcode, maxReadOffset uint32) bool {
	var (
		ok           bool
		regionName   string
		indexRegName string
		dataRegName  string
		flags        uint64
	)

	switch op {
	case opField, opBankField:
		if regionName, ok = p.parseNameString(); !ok {
			return false
		}
		if op == opBankField {
			// The bank register name and bank value select which bank the
			// field units below refer to; this interpreter does not
			// implement bank switching so both are parsed and dropped.
			if _, ok = p.parseNameString(); !ok {
				return false
			}
			if _, ok = p.parseArgObj(); !ok {
				return false
			}
		}
	case opIndexField:
		if indexRegName, ok = p.parseNameString(); !ok {
			return false
		}
		if dataRegName, ok = p.parseNameString(); !ok {
			return false
		}
	}

	if flags, ok = p.parseNumConstant(1); !ok {
		return false
	}

	var (
		accessType   = FieldAccessType(flags & 0xf)
		lock         = flags&(1<<4) != 0
		updateRule   = FieldUpdateRule((flags >> 5) & 0x3)
		accessAttrib FieldAccessAttrib
		byteCount    uint8

		bitWidth       uint32
		curBitOffset   uint32
		connectionName string
	)

	for p.r.Offset() < maxReadOffset {
		next, err := p.r.ReadByte()
		if err != nil {
			return false
		}

		switch next {
		case 0x00: // ReservedField; generated by the Offset() command
			if bitWidth, ok = p.parsePkgLength(); !ok {
				return false
			}

			curBitOffset += bitWidth
			continue
		case 0x1: // AccessField; set access attributes for following fields
			accessByte, err := p.r.ReadByte()
			if err != nil {
				return false
			}
			accessType = FieldAccessType(accessByte & 0xf) // bits[0:3]

			attrib, err := p.r.ReadByte()
			if err != nil {
				return false
			}

			// To specify AccessAttribBytes, RawBytes and RawProcessBytes
			// the ASL compiler will emit an ExtendedAccessField opcode.
			byteCount = 0
			accessAttrib = FieldAccessAttrib(attrib)

			continue
		case 0x2: // ConnectField => <0x2> NameString | <0x02> TermObj => Buffer
			curOffset := p.r.Offset()
			if connectionName, ok = p.parseNameString(); !ok {
				// Rewind and try parsing it as an object
				p.r.SetOffset(curOffset)
				if _, ok = p.parseArgObj(); !ok {
					return false
				}
			}
		case 0x3: // ExtendedAccessField => <0x03> AccessType ExtendedAccessAttrib AccessLength
			accessByte, err := p.r.ReadByte()
			if err != nil {
				return false
			}
			accessType = FieldAccessType(accessByte & 0xf) // bits[0:3]

			extAccessAttrib, err := p.r.ReadByte()
			if err != nil {
				return false
			}

			if byteCount, err = p.r.ReadByte(); err != nil {
				return false
			}

			switch extAccessAttrib {
			case 0x0b:
				accessAttrib = FieldAccessAttribBytes
			case 0xe:
				accessAttrib = FieldAccessAttribRawBytes
			case 0x0f:
				accessAttrib = FieldAccessAttribRawProcessBytes
			}
		default: // NamedField
			_ = p.r.UnreadByte()
			var unitName string
			if unitName, ok = p.parseNameString(); !ok {
				return false
			}

			if bitWidth, ok = p.parsePkgLength(); !ok {
				return false
			}

			shared := fieldEntity{
				namedEntity:  namedEntity{name: unitName, tableHandle: p.tableHandle},
				bitOffset:    curBitOffset,
				bitWidth:     bitWidth,
				lock:         lock,
				updateRule:   updateRule,
				accessType:   accessType,
				accessAttrib: accessAttrib,
				byteCount:    byteCount,
			}

			var unit Entity
			if op == opIndexField {
				shared.op = opIndexField
				unit = &indexFieldEntity{
					fieldEntity:    shared,
					connectionName: connectionName,
					indexRegName:   indexRegName,
					dataRegName:    dataRegName,
				}
			} else {
				shared.op = opField
				unit = &fieldUnitEntity{
					fieldEntity:    shared,
					connectionName: connectionName,
					regionName:     regionName,
				}
			}

			p.scopeCurrent().Append(unit)
			curBitOffset += bitWidth
			ok = true
		}
	}

	return ok && p.r.Offset() == maxReadOffset
}

// parsePkgLength parses a PkgLength value from the AML bytestream.
func (p *Parser) parsePkgLength() (uint32, bool) {
	lead, err := p.r.ReadByte()
	if err != nil {
		return 0, false
	}

	// The high 2 bits of the lead byte indicate how many bytes follow.
	var pkgLen uint32
	switch lead >> 6 {
	case 0:
		pkgLen = uint32(lead)
	case 1:
		b1, err := p.r.ReadByte()
		if err != nil {
			return 0, false
		}

		// lead bits 0-3 are the lsb of the length nybble
		pkgLen = uint32(b1)<<4 | uint32(lead&0xf)
	case 2:
		b1, err := p.r.ReadByte()
		if err != nil {
			return 0, false
		}

		b2, err := p.r.ReadByte()
		if err != nil {
			return 0, false
		}

		// lead bits 0-3 are the lsb of the length nybble
		pkgLen = uint32(b2)<<12 | uint32(b1)<<4 | uint32(lead&0xf)
	case 3:
		b1, err := p.r.ReadByte()
		if err != nil {
			return 0, false
		}

		b2, err := p.r.ReadByte()
		if err != nil {
			return 0, false
		}

		b3, err := p.r.ReadByte()
		if err != nil {
			return 0, false
		}

		// lead bits 0-3 are the lsb of the length nybble
		pkgLen = uint32(b3)<<20 | uint32(b2)<<12 | uint32(b1)<<4 | uint32(lead&0xf)
	}

	return pkgLen, true
}

// parseNumConstant parses a byte/word/dword or qword value from the AML
// bytestream.
func (p *Parser) parseNumConstant(numBytes uint8) (uint64, bool) {
	var (
		next byte
		err  error
		res  uint64
	)

	for c := uint8(0); c < numBytes; c++ {
		if next, err = p.r.ReadByte(); err != nil {
			return 0, false
		}

		res = res | (uint64(next) << (8 * c))
	}

	return res, true
}

// parseString parses a string from the AML bytestream.
func (p *Parser) parseString() (string, bool) {
	// Read ASCII chars till we reach a null byte
	var (
		next byte
		err  error
		str  []byte
	)

	for {
		next, err = p.r.ReadByte()
		if err != nil {
			return "", false
		}

		if next == 0x00 {
			break
		} else if next >= 0x01 && next <= 0x7f { // AsciiChar
			str = append(str, next)
		} else {
			return "", false
		}
	}
	return string(str), true
}

// parseSuperName attempts to parse a SuperName from the AML bytestream.
//
// Grammar:
// SuperName := SimpleName | DebugObj | Type6Opcode
// SimpleName := NameString | ArgObj | LocalObj
func (p *Parser) parseSuperName() (interface{}, bool) {
	// Try parsing as SimpleName
	curOffset := p.r.Offset()
	if obj, ok := p.parseSimpleName(); ok {
		return obj, ok
	}

	// Rewind and try parsing as object
	p.r.SetOffset(curOffset)
	return p.parseArgObj()
}

// parseSimpleName attempts to parse a SimpleName from the AML bytestream.
// Name strings are wrapped into namedReference entities so forward
// references can be resolved once the whole stream has been parsed.
//
// Grammar:
// SimpleName := NameString | ArgObj | LocalObj
func (p *Parser) parseSimpleName() (interface{}, bool) {
	// Peek next opcode
	curOffset := p.r.Offset()
	nextOpcode, ok := p.nextOpcode()

	var obj interface{}

	switch {
	case ok && opIsArg(nextOpcode.op):
		obj, ok = &unnamedEntity{op: nextOpcode.op, tableHandle: p.tableHandle}, true
	default:
		// Rewind and try parsing as NameString
		p.r.SetOffset(curOffset)

		var name string
		if name, ok = p.parseNameString(); ok {
			obj = &namedReference{
				unnamedEntity: unnamedEntity{tableHandle: p.tableHandle, parent: p.scopeCurrent()},
				targetName:    name,
			}
		}
	}

	return obj, ok
}

// parseTarget attempts to parse a Target from the AML bytestream.
//
// Grammar:
// Target := SuperName | NullName
// NullName := 0x00
// SuperName := SimpleName | DebugObj | Type6Opcode
// Type6Opcode := DefRefOf | DefDerefOf | DefIndex | UserTermObj
// SimpleName := NameString | ArgObj | LocalObj
//
// UserTermObj is a control method invocation.
func (p *Parser) parseTarget() (interface{}, bool) {
	// Peek next opcode
	curOffset := p.r.Offset()
	nextOpcode, ok := p.nextOpcode()
	p.r.SetOffset(curOffset)

	if ok {
		switch {
		case nextOpcode.op == opZero: // this is actually a NullName
			p.r.SetOffset(curOffset + 1)
			return &constEntity{op: opStringPrefix, val: ""}, true
		case opIsArg(nextOpcode.op) || nextOpcode.op == opRefOf || nextOpcode.op == opDerefOf || nextOpcode.op == opIndex || nextOpcode.op == opDebug: // LocalObj | ArgObj | Type6 | DebugObj
		default:
			// Unexpected opcode
			return nil, false
		}

		// We can use parseObj for parsing
		return p.parseArgObj()
	}

	// In this case, this is either a NameString or a control method
	// invocation.
	if ok := p.parseNamedRef(); ok {
		obj := p.scopeCurrent().lastChild()
		p.scopeCurrent().removeChild(obj)
		return obj, ok
	}

	return nil, false
}

// parseNameString parses a NameString from the AML bytestream.
//
// Grammar:
// NameString := RootChar NamePath | PrefixPath NamePath
// PrefixPath := Nothing | '^' PrefixPath
// NamePath := NameSeg | DualNamePath | MultiNamePath | NullName
func (p *Parser) parseNameString() (string, bool) {
	var str []byte

	// NameString := RootChar NamePath | PrefixPath NamePath
	next, err := p.r.PeekByte()
	if err != nil {
		return "", false
	}

	switch next {
	case '\\': // RootChar
		str = append(str, next)
		_, _ = p.r.ReadByte()
	case '^': // PrefixPath := Nothing | '^' PrefixPath
		str = append(str, next)
		_, _ = p.r.ReadByte()
		for {
			next, err = p.r.PeekByte()
			if err != nil {
				return "", false
			}

			if next != '^' {
				break
			}

			str = append(str, next)
			_, _ = p.r.ReadByte()
		}
	}

	// NamePath := NameSeg | DualNamePath | MultiNamePath | NullName
	next, err = p.r.ReadByte()
	if err != nil {
		return "", false
	}
	var readCount int
	switch next {
	case 0x00: // NullName
	case 0x2e: // DualNamePath := DualNamePrefix NameSeg NameSeg
		readCount = 8 // NameSeg x 2
	case 0x2f: // MultiNamePath := MultiNamePrefix SegCount NameSeg(SegCount)
		segCount, err := p.r.ReadByte()
		if segCount == 0 || err != nil {
			return "", false
		}

		readCount = int(segCount) * 4
	default: // NameSeg := LeadNameChar NameChar NameChar NameChar
		// LeadNameChar := 'A' - 'Z' | '_'
		if (next < 'A' || next > 'Z') && next != '_' {
			return "", false
		}

		str = append(str, next) // LeadNameChar
		readCount = 3           // NameChar x 3
	}

	for index := 0; readCount > 0; readCount, index = readCount-1, index+1 {
		next, err := p.r.ReadByte()
		if err != nil {
			return "", false
		}

		// Inject a '.' every 4 chars except for the last segment so
		// scoped lookups can work properly.
		if index > 0 && index%4 == 0 && readCount > 1 {
			str = append(str, '.')
		}

		str = append(str, next)
	}

	return string(str), true
}

// scopeCurrent returns the currently active scope.
func (p *Parser) scopeCurrent() ScopeEntity {
	return p.scopeStack[len(p.scopeStack)-1]
}

// scopeEnter enters the given scope.
func (p *Parser) scopeEnter(s ScopeEntity) {
	p.scopeStack = append(p.scopeStack, s)
}

// scopeExit exits the current scope.
func (p *Parser) scopeExit() {
	p.scopeStack = p.scopeStack[:len(p.scopeStack)-1]
}
