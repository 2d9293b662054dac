package elftest

import (
	"github.com/pattyshack/elfscope/dwarf"
	"github.com/pattyshack/elfscope/elf"
)

type StringForm int

const (
	StringFormInline   = StringForm(0) // DW_FORM_string
	StringFormStrp     = StringForm(1) // DW_FORM_strp
	StringFormLineStrp = StringForm(2) // DW_FORM_line_strp (dwarf 5)
	StringFormStrx     = StringForm(3) // DW_FORM_strx1 (dwarf 5)
)

type DWARFFunction struct {
	Name string
	Low  uint64
	Size uint64
}

type DWARFUnit struct {
	Version     uint16 // defaults to 4
	Is64        bool   // 64-bit dwarf format
	AddressSize int    // defaults to the elf class's address size

	StringForm

	Producer string
	Language dwarf.Language
	Name     string
	CompDir  string

	// Unit pc range.  Ignored when Size is zero or Ranges is set.
	Low  uint64
	Size uint64

	// [low, high) pairs encoded in .debug_ranges (dwarf 2 - 4) or
	// .debug_rnglists (dwarf 5).
	Ranges [][2]uint64

	// Encode low pc values as .debug_addr indices (dwarf 5).
	UseAddressIndex bool

	Functions []DWARFFunction

	// Emit an unsupported unit version instead.
	Malformed bool
}

type dwarfBuilder struct {
	*Builder

	abbrev        []byte
	info          []byte
	strings       []byte
	lineStrings   []byte
	stringOffsets []byte
	addresses     []byte
	ranges        []byte
	rangeLists    []byte
}

// AddDWARF appends the .debug_* sections describing the units.
func (builder *Builder) AddDWARF(units ...DWARFUnit) *Builder {
	dw := &dwarfBuilder{Builder: builder}
	for _, unit := range units {
		if unit.Version == 0 {
			unit.Version = 4
		}
		if unit.AddressSize == 0 {
			unit.AddressSize = 4
			if builder.is64() {
				unit.AddressSize = 8
			}
		}

		if unit.Malformed {
			dw.appendMalformedUnit(unit)
		} else {
			dw.appendUnit(unit)
		}
	}

	sections := []struct {
		name    string
		content []byte
	}{
		{dwarf.ElfDebugAbbreviationSection, dw.abbrev},
		{dwarf.ElfDebugInformationSection, dw.info},
		{dwarf.ElfDebugStringSection, dw.strings},
		{dwarf.ElfDebugLineStringSection, dw.lineStrings},
		{dwarf.ElfDebugStringOffsetsSection, dw.stringOffsets},
		{dwarf.ElfDebugAddressSection, dw.addresses},
		{dwarf.ElfDebugRangesSection, dw.ranges},
		{dwarf.ElfDebugRangeListsSection, dw.rangeLists},
	}

	for _, section := range sections {
		if section.content == nil {
			continue
		}

		builder.AddSection(
			Section{
				Name:      section.name,
				Type:      elf.SectionTypeProgramDefinedInfo,
				Content:   section.content,
				Alignment: 1,
			})
	}

	return builder
}

func appendULEB128(buffer []byte, value uint64) []byte {
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value == 0 {
			return append(buffer, b)
		}
		buffer = append(buffer, b|0x80)
	}
}

func (dw *dwarfBuilder) appendUint(buffer []byte, size int, value uint64) []byte {
	switch size {
	case 1:
		return append(buffer, byte(value))
	case 2:
		return dw.Order.AppendUint16(buffer, uint16(value))
	case 4:
		return dw.Order.AppendUint32(buffer, uint32(value))
	default:
		return dw.Order.AppendUint64(buffer, value)
	}
}

func offsetSize(unit DWARFUnit) int {
	if unit.Is64 {
		return 8
	}
	return 4
}

// appendLength reserves a (32 or 64-bit dwarf) unit length field.  The
// returned position is passed to patchLength once the unit is complete.
func (dw *dwarfBuilder) appendLength(
	buffer []byte,
	unit DWARFUnit,
) (
	[]byte,
	int,
) {
	if unit.Is64 {
		buffer = dw.Order.AppendUint32(buffer, ^uint32(0))
	}

	pos := len(buffer)
	return dw.appendUint(buffer, offsetSize(unit), 0), pos
}

func (dw *dwarfBuilder) patchLength(buffer []byte, unit DWARFUnit, pos int) {
	length := len(buffer) - pos - offsetSize(unit)
	patched := dw.appendUint(nil, offsetSize(unit), uint64(length))
	copy(buffer[pos:], patched)
}

func (dw *dwarfBuilder) appendMalformedUnit(unit DWARFUnit) {
	var pos int
	dw.info, pos = dw.appendLength(dw.info, unit)
	dw.info = dw.Order.AppendUint16(dw.info, 99)
	dw.info = dw.appendUint(dw.info, offsetSize(unit), 0)
	dw.info = append(dw.info, byte(unit.AddressSize), 0, 0, 0)
	dw.patchLength(dw.info, unit, pos)

	if dw.abbrev == nil {
		dw.abbrev = []byte{0}
	}
}

type dwarfAttribute struct {
	attr   dwarf.Attribute
	format dwarf.Format
	value  func([]byte) []byte
}

type dwarfUnitBuilder struct {
	*dwarfBuilder
	DWARFUnit

	stringIndices map[string]int
	addressIndex  int
}

func (ub *dwarfUnitBuilder) stringFormat() dwarf.Format {
	switch ub.StringForm {
	case StringFormStrp:
		return dwarf.DW_FORM_strp
	case StringFormLineStrp:
		return dwarf.DW_FORM_line_strp
	case StringFormStrx:
		return dwarf.DW_FORM_strx1
	default:
		return dwarf.DW_FORM_string
	}
}

func (ub *dwarfUnitBuilder) stringAttribute(
	attr dwarf.Attribute,
	value string,
) dwarfAttribute {
	return dwarfAttribute{
		attr:   attr,
		format: ub.stringFormat(),
		value: func(buffer []byte) []byte {
			switch ub.StringForm {
			case StringFormStrp:
				offset := len(ub.strings)
				ub.strings = append(append(ub.strings, value...), 0)
				return ub.appendUint(buffer, offsetSize(ub.DWARFUnit), uint64(offset))
			case StringFormLineStrp:
				offset := len(ub.lineStrings)
				ub.lineStrings = append(append(ub.lineStrings, value...), 0)
				return ub.appendUint(buffer, offsetSize(ub.DWARFUnit), uint64(offset))
			case StringFormStrx:
				return append(buffer, byte(ub.stringIndices[value]))
			default:
				return append(append(buffer, value...), 0)
			}
		},
	}
}

func (ub *dwarfUnitBuilder) offsetAttribute(
	attr dwarf.Attribute,
	value uint64,
) dwarfAttribute {
	format := dwarf.DW_FORM_sec_offset
	if ub.Version < 4 {
		format = dwarf.DW_FORM_data4
		if ub.Is64 {
			format = dwarf.DW_FORM_data8
		}
	}

	return dwarfAttribute{
		attr:   attr,
		format: format,
		value: func(buffer []byte) []byte {
			return ub.appendUint(buffer, offsetSize(ub.DWARFUnit), value)
		},
	}
}

func (ub *dwarfUnitBuilder) pcAttributes(low uint64, size uint64) []dwarfAttribute {
	lowPC := dwarfAttribute{
		attr:   dwarf.DW_AT_low_pc,
		format: dwarf.DW_FORM_addr,
		value: func(buffer []byte) []byte {
			return ub.appendUint(buffer, ub.AddressSize, low)
		},
	}

	if ub.UseAddressIndex {
		index := ub.addressIndex
		ub.addressIndex++
		ub.addresses = ub.appendUint(ub.addresses, ub.AddressSize, low)

		lowPC.format = dwarf.DW_FORM_addrx1
		lowPC.value = func(buffer []byte) []byte {
			return append(buffer, byte(index))
		}
	}

	highPC := dwarfAttribute{
		attr:   dwarf.DW_AT_high_pc,
		format: dwarf.DW_FORM_data8,
		value: func(buffer []byte) []byte {
			return ub.Order.AppendUint64(buffer, size)
		},
	}

	if ub.Version < 4 {
		highPC.format = dwarf.DW_FORM_addr
		highPC.value = func(buffer []byte) []byte {
			return ub.appendUint(buffer, ub.AddressSize, low+size)
		}
	}

	return []dwarfAttribute{lowPC, highPC}
}

func (ub *dwarfUnitBuilder) appendAbbreviation(
	code uint64,
	tag dwarf.Tag,
	hasChildren bool,
	attrs []dwarfAttribute,
) {
	ub.abbrev = appendULEB128(ub.abbrev, code)
	ub.abbrev = appendULEB128(ub.abbrev, uint64(tag))
	if hasChildren {
		ub.abbrev = append(ub.abbrev, dwarf.DW_CHILDREN_yes)
	} else {
		ub.abbrev = append(ub.abbrev, dwarf.DW_CHILDREN_no)
	}

	for _, attr := range attrs {
		ub.abbrev = appendULEB128(ub.abbrev, uint64(attr.attr))
		ub.abbrev = appendULEB128(ub.abbrev, uint64(attr.format))
	}
	ub.abbrev = append(ub.abbrev, 0, 0)
}

func (ub *dwarfUnitBuilder) appendEntry(
	buffer []byte,
	code uint64,
	attrs []dwarfAttribute,
) []byte {
	buffer = appendULEB128(buffer, code)
	for _, attr := range attrs {
		buffer = attr.value(buffer)
	}
	return buffer
}

// appendStringOffsets writes the unit's .debug_str_offsets contribution and
// returns its base (the first entry's offset).
func (ub *dwarfUnitBuilder) appendStringOffsets() uint64 {
	values := []string{ub.Producer, ub.Name, ub.CompDir}
	for _, function := range ub.Functions {
		values = append(values, function.Name)
	}

	var pos int
	ub.stringOffsets, pos = ub.appendLength(ub.stringOffsets, ub.DWARFUnit)
	ub.stringOffsets = ub.Order.AppendUint16(ub.stringOffsets, 5)
	ub.stringOffsets = ub.Order.AppendUint16(ub.stringOffsets, 0)
	base := uint64(len(ub.stringOffsets))

	for _, value := range values {
		_, ok := ub.stringIndices[value]
		if ok {
			continue
		}

		ub.stringIndices[value] = len(ub.stringIndices)
		offset := len(ub.strings)
		ub.strings = append(append(ub.strings, value...), 0)
		ub.stringOffsets = ub.appendUint(
			ub.stringOffsets,
			offsetSize(ub.DWARFUnit),
			uint64(offset))
	}

	ub.patchLength(ub.stringOffsets, ub.DWARFUnit, pos)
	return base
}

// appendAddressHeader starts the unit's .debug_addr contribution and
// returns its base.
func (ub *dwarfUnitBuilder) appendAddressHeader() (uint64, int) {
	var pos int
	ub.addresses, pos = ub.appendLength(ub.addresses, ub.DWARFUnit)
	ub.addresses = ub.Order.AppendUint16(ub.addresses, 5)
	ub.addresses = append(ub.addresses, byte(ub.AddressSize), 0)
	return uint64(len(ub.addresses)), pos
}

func (ub *dwarfUnitBuilder) appendRanges() uint64 {
	if ub.Version < 5 {
		if ub.ranges == nil {
			ub.ranges = []byte{}
		}

		offset := uint64(len(ub.ranges))
		for _, pair := range ub.Ranges {
			ub.ranges = ub.appendUint(ub.ranges, ub.AddressSize, pair[0])
			ub.ranges = ub.appendUint(ub.ranges, ub.AddressSize, pair[1])
		}
		ub.ranges = ub.appendUint(ub.ranges, ub.AddressSize, 0)
		ub.ranges = ub.appendUint(ub.ranges, ub.AddressSize, 0)
		return offset
	}

	var pos int
	ub.rangeLists, pos = ub.appendLength(ub.rangeLists, ub.DWARFUnit)
	ub.rangeLists = ub.Order.AppendUint16(ub.rangeLists, 5)
	ub.rangeLists = append(ub.rangeLists, byte(ub.AddressSize), 0)
	ub.rangeLists = ub.Order.AppendUint32(ub.rangeLists, 0)

	offset := uint64(len(ub.rangeLists))
	for _, pair := range ub.Ranges {
		ub.rangeLists = append(ub.rangeLists, dwarf.DW_RLE_start_end)
		ub.rangeLists = ub.appendUint(ub.rangeLists, ub.AddressSize, pair[0])
		ub.rangeLists = ub.appendUint(ub.rangeLists, ub.AddressSize, pair[1])
	}
	ub.rangeLists = append(ub.rangeLists, dwarf.DW_RLE_end_of_list)
	ub.patchLength(ub.rangeLists, ub.DWARFUnit, pos)

	return offset
}

func (dw *dwarfBuilder) appendUnit(unit DWARFUnit) {
	ub := &dwarfUnitBuilder{
		dwarfBuilder:  dw,
		DWARFUnit:     unit,
		stringIndices: map[string]int{},
	}

	abbrevOffset := uint64(len(dw.abbrev))

	rootAttrs := []dwarfAttribute{
		ub.stringAttribute(dwarf.DW_AT_producer, unit.Producer),
		{
			attr:   dwarf.DW_AT_language,
			format: dwarf.DW_FORM_data2,
			value: func(buffer []byte) []byte {
				return dw.Order.AppendUint16(buffer, uint16(unit.Language))
			},
		},
		ub.stringAttribute(dwarf.DW_AT_name, unit.Name),
		ub.stringAttribute(dwarf.DW_AT_comp_dir, unit.CompDir),
		ub.offsetAttribute(dwarf.DW_AT_stmt_list, 0),
	}

	if unit.StringForm == StringFormStrx {
		base := ub.appendStringOffsets()
		rootAttrs = append(
			rootAttrs,
			ub.offsetAttribute(dwarf.DW_AT_str_offsets_base, base))
	}

	addrPos := -1
	if unit.UseAddressIndex {
		var base uint64
		base, addrPos = ub.appendAddressHeader()
		rootAttrs = append(
			rootAttrs,
			ub.offsetAttribute(dwarf.DW_AT_addr_base, base))
	}

	if len(unit.Ranges) > 0 {
		rootAttrs = append(
			rootAttrs,
			ub.offsetAttribute(dwarf.DW_AT_ranges, ub.appendRanges()))
	} else if unit.Size > 0 {
		rootAttrs = append(rootAttrs, ub.pcAttributes(unit.Low, unit.Size)...)
	}

	functionAttrs := [][]dwarfAttribute{}
	for _, function := range unit.Functions {
		attrs := []dwarfAttribute{
			ub.stringAttribute(dwarf.DW_AT_name, function.Name),
		}
		attrs = append(attrs, ub.pcAttributes(function.Low, function.Size)...)
		functionAttrs = append(functionAttrs, attrs)
	}

	if addrPos >= 0 {
		dw.patchLength(dw.addresses, unit, addrPos)
	}

	ub.appendAbbreviation(1, dwarf.DW_TAG_compile_unit, true, rootAttrs)
	if len(functionAttrs) > 0 {
		ub.appendAbbreviation(2, dwarf.DW_TAG_subprogram, false, functionAttrs[0])
	}
	dw.abbrev = append(dw.abbrev, 0)

	var pos int
	dw.info, pos = dw.appendLength(dw.info, unit)
	dw.info = dw.Order.AppendUint16(dw.info, unit.Version)
	if unit.Version >= 5 {
		dw.info = append(dw.info, dwarf.DW_UT_compile, byte(unit.AddressSize))
		dw.info = dw.appendUint(dw.info, offsetSize(unit), abbrevOffset)
	} else {
		dw.info = dw.appendUint(dw.info, offsetSize(unit), abbrevOffset)
		dw.info = append(dw.info, byte(unit.AddressSize))
	}

	dw.info = ub.appendEntry(dw.info, 1, rootAttrs)
	for _, attrs := range functionAttrs {
		dw.info = ub.appendEntry(dw.info, 2, attrs)
	}
	dw.info = append(dw.info, 0) // end of root's children

	dw.patchLength(dw.info, unit, pos)
}
