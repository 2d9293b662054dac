package dwarf

import (
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/pattyshack/elfscope/elf"
)

const (
	dwarf64LengthFlag   = ^uint32(0)
	reservedLengthStart = uint32(0xfffffff0)
	minSupportedVersion = 2
	maxSupportedVersion = 5

	// Contribution header sizes (32-bit dwarf).  64-bit dwarf headers are
	// 8 bytes larger.
	offsetTableHeaderSize = 8  // .debug_str_offsets / .debug_addr
	rangeListsHeaderSize  = 12 // .debug_rnglists
)

type ProcessFunc func(*DebugInfoEntry) error

type UnitHeader struct {
	Version  uint16
	UnitType uint8 // always DW_UT_compile prior to dwarf 5

	Is64        bool // 64-bit dwarf format (8 bytes section offsets)
	AddressSize int

	AbbreviationIndex SectionOffset
}

func (header UnitHeader) OffsetSize() int {
	if header.Is64 {
		return 8
	}
	return 4
}

type CompileUnit struct {
	*File
	UnitHeader

	Start        SectionOffset
	ContentStart SectionOffset
	End          SectionOffset

	Content []byte

	// nil indicates the compile unit's content has not been parsed yet.
	root    *DebugInfoEntry
	entries []*DebugInfoEntry

	// Root entry with only the attributes of interest decoded (see
	// scanRoot).
	partialRoot *DebugInfoEntry
}

// parseUnitHeader decodes a unit header.  When the unit's extent is known
// (i.e., end > 0), the caller may skip the unit on error.
func parseUnitHeader(
	decode *Cursor,
) (
	*CompileUnit,
	int, // end position
	error,
) {
	start := decode.Position

	size32, err := decode.U32()
	if err != nil {
		return nil, 0, fmt.Errorf("%w. invalid size: %w", ErrMalformedUnit, err)
	}

	header := UnitHeader{}
	size := uint64(size32)
	if size32 == dwarf64LengthFlag {
		header.Is64 = true
		size, err = decode.U64()
		if err != nil {
			return nil, 0, fmt.Errorf("%w. invalid size: %w", ErrMalformedUnit, err)
		}
	} else if size32 >= reservedLengthStart {
		return nil, 0, fmt.Errorf(
			"%w. reserved unit length (%#x)",
			ErrMalformedUnit,
			size32)
	}

	// NOTE: size does not include the size field itself, but includes other
	// header fields.
	contentEnd := uint64(decode.Position) + size
	if size > uint64(len(decode.Content)) ||
		contentEnd > uint64(len(decode.Content)) {

		return nil, 0, fmt.Errorf(
			"%w. unit (%d) size (%d) exceeds section: %w",
			ErrMalformedUnit,
			start,
			size,
			elf.ErrOutOfBounds)
	}
	end := int(contentEnd)

	header.Version, err = decode.U16()
	if err != nil {
		return nil, end, fmt.Errorf("%w. invalid version: %w", ErrMalformedUnit, err)
	}
	if header.Version < minSupportedVersion ||
		header.Version > maxSupportedVersion {

		return nil, end, fmt.Errorf(
			"%w. dwarf version %d not supported",
			ErrMalformedUnit,
			header.Version)
	}

	header.UnitType = DW_UT_compile
	var addrSize uint8
	var abbrevIndex uint64
	if header.Version >= 5 {
		header.UnitType, err = decode.U8()
		if err == nil {
			addrSize, err = decode.U8()
		}
		if err == nil {
			abbrevIndex, err = decode.UintN(header.OffsetSize())
		}

		if err == nil {
			switch header.UnitType {
			case DW_UT_skeleton, DW_UT_split_compile:
				_, err = decode.U64() // dwo id
			case DW_UT_type, DW_UT_split_type:
				_, err = decode.U64() // type signature
				if err == nil {
					_, err = decode.UintN(header.OffsetSize()) // type offset
				}
			}
		}
	} else {
		abbrevIndex, err = decode.UintN(header.OffsetSize())
		if err == nil {
			addrSize, err = decode.U8()
		}
	}

	if err != nil {
		return nil, end, fmt.Errorf(
			"%w. invalid unit header: %w",
			ErrMalformedUnit,
			err)
	}

	if addrSize != 2 && addrSize != 4 && addrSize != 8 {
		return nil, end, fmt.Errorf(
			"%w. address size %d not supported",
			ErrMalformedUnit,
			addrSize)
	}
	header.AddressSize = int(addrSize)
	header.AbbreviationIndex = SectionOffset(abbrevIndex)

	contentStart := decode.Position
	if contentStart > end {
		return nil, end, fmt.Errorf(
			"%w. unit header exceeds unit size",
			ErrMalformedUnit)
	}

	unitContent, err := decode.Bytes(end - contentStart)
	if err != nil {
		return nil, end, fmt.Errorf(
			"%w. invalid content: %w",
			ErrMalformedUnit,
			err)
	}

	return &CompileUnit{
		UnitHeader:   header,
		Start:        SectionOffset(start),
		ContentStart: SectionOffset(contentStart),
		End:          SectionOffset(end),
		Content:      unitContent,
	}, end, nil
}

func (unit *CompileUnit) Contains(offset SectionOffset) bool {
	return unit.Start <= offset && offset < unit.End
}

func (unit *CompileUnit) Root() (*DebugInfoEntry, error) {
	err := unit.maybeParseDebugInfoEntries()
	if err != nil {
		return nil, err
	}

	return unit.root, nil
}

func (unit *CompileUnit) DebugInfoEntries() ([]*DebugInfoEntry, error) {
	err := unit.maybeParseDebugInfoEntries()
	if err != nil {
		return nil, err
	}

	return unit.entries, nil
}

func (unit *CompileUnit) EntryAt(
	offset SectionOffset,
) (
	*DebugInfoEntry,
	error,
) {
	entries, err := unit.DebugInfoEntries()
	if err != nil {
		return nil, err
	}

	// entries are in ascending offset order
	low := 0
	high := len(entries)
	for low < high {
		mid := (low + high) / 2

		entry := entries[mid]
		if offset == entry.SectionOffset {
			return entry, nil
		} else if offset < entry.SectionOffset {
			high = mid
		} else {
			low = mid + 1
		}
	}

	return nil, fmt.Errorf("invalid debug info entry location (%d)", offset)
}

func (unit *CompileUnit) ForEach(process ProcessFunc) error {
	err := unit.maybeParseDebugInfoEntries()
	if err != nil {
		return err
	}

	for _, entry := range unit.entries {
		err := process(entry)
		if err != nil {
			return err
		}
	}

	return nil
}

func (unit *CompileUnit) Visit(enter ProcessFunc, exit ProcessFunc) error {
	root, err := unit.Root()
	if err != nil {
		return err
	}

	return root.Visit(enter, exit)
}

// SourcePath returns the unit's primary source file (DW_AT_name), joined
// with the compilation directory when relative.
func (unit *CompileUnit) SourcePath() (string, bool) {
	root, err := unit.Root()
	if err != nil {
		return "", false
	}

	name, ok := root.String(DW_AT_name)
	if !ok || name == "" {
		return "", false
	}

	if path.IsAbs(name) {
		return path.Clean(name), true
	}

	dir, ok := root.String(DW_AT_comp_dir)
	if !ok || dir == "" {
		return path.Clean(name), true
	}

	return path.Join(dir, name), true
}

// baseAttribute returns the root entry's section offset base attribute, or
// the first contribution's base if the attribute is absent.
func (unit *CompileUnit) baseAttribute(
	headerSize SectionOffset,
	attrs ...Attribute,
) SectionOffset {
	root := unit.root
	if root == nil {
		root = unit.partialRoot
	}

	if root != nil {
		for _, attr := range attrs {
			base, ok := root.Offset(attr)
			if ok {
				return base
			}
		}
	}

	if unit.Is64 {
		return headerSize + 8
	}
	return headerSize
}

func (unit *CompileUnit) StringAtIndex(index StringIndex) (string, error) {
	base := unit.baseAttribute(offsetTableHeaderSize, DW_AT_str_offsets_base)
	offset, err := unit.File.StringOffsets.EntryAt(
		base,
		uint64(index),
		unit.OffsetSize())
	if err != nil {
		return "", fmt.Errorf("failed to resolve string index %d: %w", index, err)
	}

	return unit.File.Strings.StringAt(SectionOffset(offset))
}

func (unit *CompileUnit) AddressAtIndex(
	index AddressIndex,
) (
	elf.FileAddress,
	error,
) {
	base := unit.baseAttribute(
		offsetTableHeaderSize,
		DW_AT_addr_base,
		DW_AT_GNU_addr_base)
	addr, err := unit.File.Addresses.EntryAt(
		base,
		uint64(index),
		unit.AddressSize)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve address index %d: %w", index, err)
	}

	return elf.FileAddress(addr), nil
}

func (unit *CompileUnit) rangeListOffset(index ListIndex) (SectionOffset, error) {
	base := unit.baseAttribute(rangeListsHeaderSize, DW_AT_rnglists_base)

	decode, err := unit.File.RangeLists.cursorAt(base)
	if err != nil {
		return 0, err
	}

	_, err = decode.Seek(int(index)*unit.OffsetSize(), io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	offset, err := decode.UintN(unit.OffsetSize())
	if err != nil {
		return 0, err
	}

	return base + SectionOffset(offset), nil
}

func (unit *CompileUnit) addressRangesAt(
	value interface{},
) (
	AddressRanges,
	error,
) {
	var baseAddress elf.FileAddress
	if unit.root != nil {
		baseAddress, _ = unit.root.Address(DW_AT_low_pc)
	}

	// NOTE: dwarf 2 and 3 encode DW_AT_ranges as data4 / data8.
	if val, ok := value.(uint64); ok {
		value = SectionOffset(val)
	}

	switch val := value.(type) {
	case ListIndex:
		offset, err := unit.rangeListOffset(val)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve range list index: %w", err)
		}

		return unit.File.RangeLists.RangeListAt(
			offset,
			baseAddress,
			unit.AddressSize,
			unit.AddressAtIndex)
	case SectionOffset:
		if unit.Version >= 5 {
			return unit.File.RangeLists.RangeListAt(
				val,
				baseAddress,
				unit.AddressSize,
				unit.AddressAtIndex)
		}

		return unit.File.AddressRangesAt(val, baseAddress, unit.AddressSize)
	default:
		return nil, fmt.Errorf("unexpected DW_AT_ranges value (%v)", value)
	}
}

func (unit *CompileUnit) maybeParseDebugInfoEntries() error {
	if unit.root != nil {
		return nil
	}

	abbrevTable, err := unit.AbbreviationTableAt(unit.AbbreviationIndex)
	if err != nil {
		return fmt.Errorf("failed to parse DIEs: %w", err)
	}

	var root *DebugInfoEntry
	entries := []*DebugInfoEntry{}
	scope := []*DebugInfoEntry{}

	decode := NewCursor(unit.ByteOrder(), unit.Content)
	for !decode.HasReachedEnd() {
		code, entry, err := parseDebugInfoEntry(unit, abbrevTable, decode)
		if err != nil {
			return err
		}

		if code == 0 { // end of scope
			if len(scope) == 0 {
				// NOTE: some producers pad the unit with trailing null entries.
				if root != nil {
					continue
				}
				return fmt.Errorf("failed to parse DIEs. too many null DIEs")
			}

			scope = scope[:len(scope)-1]
			continue
		}

		entries = append(entries, entry)

		if root == nil {
			root = entry
		} else if len(scope) > 0 {
			parent := scope[len(scope)-1]
			parent.Children = append(parent.Children, entry)
		} else {
			return fmt.Errorf("failed to parse DIEs. DIE not rooted")
		}

		if entry.HasChildren {
			scope = append(scope, entry)
		}
	}

	if root == nil {
		return fmt.Errorf("failed to parse DIEs. empty unit")
	}

	if len(scope) != 0 {
		return fmt.Errorf("failed to parse DIES. not enough null DIEs")
	}

	unit.root = root
	unit.entries = entries

	return nil
}

type InformationSection struct {
	*File

	CompileUnits []*CompileUnit

	// Malformed units which were skipped.
	Diagnostics []error
}

func NewInformationSection(file *elf.File) (*InformationSection, error) {
	section := file.GetSection(ElfDebugInformationSection)
	if section == nil {
		return nil, fmt.Errorf("elf .debug_info %w", elf.ErrSectionNotFound)
	}

	content, err := section.RawContent()
	if err != nil {
		return nil, fmt.Errorf("failed to read .debug_info section: %w", err)
	}

	units := []*CompileUnit{}
	diagnostics := []error{}

	decode := NewCursor(file.ByteOrder(), content)
	for !decode.HasReachedEnd() {
		start := decode.Position
		unit, end, err := parseUnitHeader(decode)
		if err != nil {
			diagnostics = append(
				diagnostics,
				fmt.Errorf("skipped .debug_info unit at %d: %w", start, err))

			if end <= start {
				break
			}

			decode.Position = end
			continue
		}

		units = append(units, unit)
	}

	return &InformationSection{
		CompileUnits: units,
		Diagnostics:  diagnostics,
	}, nil
}

func (section *InformationSection) SetParent(file *File) {
	section.File = file
	for _, unit := range section.CompileUnits {
		unit.File = file
	}
}

func (section *InformationSection) EntryAt(
	offset SectionOffset,
) (
	*DebugInfoEntry,
	error,
) {
	for _, unit := range section.CompileUnits {
		if unit.Contains(offset) {
			return unit.EntryAt(offset)
		}
	}

	return nil, fmt.Errorf("invalid debug info entry location (%d)", offset)
}

func (section *InformationSection) ForEach(process ProcessFunc) error {
	for _, unit := range section.CompileUnits {
		err := unit.ForEach(process)
		if err != nil {
			return err
		}
	}
	return nil
}

func (section *InformationSection) Visit(
	enter ProcessFunc,
	exit ProcessFunc,
) error {
	for _, unit := range section.CompileUnits {
		err := unit.Visit(enter, exit)
		if err != nil {
			return err
		}
	}
	return nil
}

func (section *InformationSection) CompileUnitContainingAddress(
	address elf.FileAddress,
) (
	*CompileUnit,
	error,
) {
	for _, unit := range section.CompileUnits {
		root, err := unit.Root()
		if err != nil {
			return nil, err
		}

		ok, err := root.ContainsAddress(address)
		if err != nil {
			return nil, err
		}

		if ok {
			return unit, nil
		}
	}

	return nil, nil
}

var errEarlyExit = errors.New("early exit")

func (section *InformationSection) FunctionEntryContainingAddress(
	address elf.FileAddress,
) (
	*DebugInfoEntry,
	error,
) {
	unit, err := section.CompileUnitContainingAddress(address)
	if err != nil {
		return nil, fmt.Errorf("failed to get function entry: %w", err)
	}
	if unit == nil {
		return nil, nil
	}

	var result *DebugInfoEntry

	retErr := unit.ForEach(
		func(entry *DebugInfoEntry) error {
			// NOTE: DW_TAG_subprogram is the outer most function entry containing
			// the address other DW_TAG_inlined_subroutine entries are ignored.
			if entry.Tag != DW_TAG_subprogram {
				return nil
			}

			ok, err := entry.ContainsAddress(address)
			if err != nil {
				return err
			}

			if ok {
				result = entry
				return errEarlyExit
			}

			return nil
		})

	if retErr == errEarlyExit {
		return result, nil
	}

	if retErr != nil {
		return nil, retErr
	}

	return nil, nil
}

func (section *InformationSection) FunctionEntriesWithName(
	name string,
) (
	[]*DebugInfoEntry,
	error,
) {
	result := []*DebugInfoEntry{}
	retErr := section.ForEach(
		func(entry *DebugInfoEntry) error {
			if entry.Tag != DW_TAG_subprogram &&
				entry.Tag != DW_TAG_inlined_subroutine {

				return nil
			}

			entryName, ok, err := entry.Name()
			if err != nil {
				return err
			}
			if !ok || name != entryName {
				return nil
			}

			addrRanges, err := entry.AddressRanges()
			if err != nil {
				return err
			}
			if len(addrRanges) == 0 {
				return nil
			}

			result = append(result, entry)
			return nil
		})

	if retErr != nil {
		return nil, retErr
	}

	return result, nil
}
