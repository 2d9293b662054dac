package dwarf

import (
	"errors"
	"fmt"

	"github.com/pattyshack/elfscope/elf"
)

// Reference attribute value
type DebugInfoEntryReference struct {
	*File
	SectionOffset
}

func (ref DebugInfoEntryReference) String() string {
	return fmt.Sprintf("DIE@%08x", ref.SectionOffset)
}

func newDebugInfoEntryReference(
	file *File,
	offset SectionOffset,
) *DebugInfoEntryReference {
	return &DebugInfoEntryReference{
		File:          file,
		SectionOffset: offset,
	}
}

func (ref DebugInfoEntryReference) Get() (*DebugInfoEntry, error) {
	entry, err := ref.File.EntryAt(ref.SectionOffset)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get referenced entry (%d): %w",
			ref.SectionOffset,
			err)
	}
	return entry, nil
}

type DebugInfoEntry struct {
	*CompileUnit
	SectionOffset

	*Abbreviation
	Values []interface{}

	Children []*DebugInfoEntry
}

func parseDebugInfoEntry(
	unit *CompileUnit,
	abbrevTable AbbreviationTable,
	decode *Cursor,
) (
	uint64,
	*DebugInfoEntry,
	error,
) {
	startAddr := unit.ContentStart + SectionOffset(decode.Position)

	code, err := decode.ULEB128(64)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to parse DIE. invalid code: %w", err)
	}

	if code == 0 {
		return 0, nil, nil
	}

	abbrev, ok := abbrevTable[code]
	if !ok {
		return 0, nil, fmt.Errorf(
			"failed to parse DIE. abbreviation (%d) not found",
			code)
	}

	values := make([]interface{}, 0, len(abbrev.AttributeSpecs))
	for _, spec := range abbrev.AttributeSpecs {
		value, err := decode.Value(unit, spec)
		if err != nil {
			return 0, nil, fmt.Errorf(
				"failed to parse DIE (%d) %s: %w",
				startAddr,
				spec.Attribute,
				err)
		}
		values = append(values, value)
	}

	entry := &DebugInfoEntry{
		CompileUnit:   unit,
		SectionOffset: startAddr,
		Abbreviation:  abbrev,
		Values:        values,
	}

	return code, entry, nil
}

func (entry *DebugInfoEntry) SpecIndex(attr Attribute) int {
	for idx, spec := range entry.AttributeSpecs {
		if attr == spec.Attribute {
			return idx
		}
	}
	return -1
}

func (entry *DebugInfoEntry) Any(attr Attribute) (interface{}, bool) {
	idx := entry.SpecIndex(attr)
	if idx == -1 {
		return nil, false
	}
	return entry.Values[idx], true
}

func (entry *DebugInfoEntry) Address(
	attr Attribute,
) (
	elf.FileAddress,
	bool,
) {
	val, ok := entry.Any(attr)
	if !ok {
		return 0, false
	}

	switch addr := val.(type) {
	case elf.FileAddress:
		return addr, true
	case AddressIndex:
		resolved, err := entry.CompileUnit.AddressAtIndex(addr)
		if err != nil {
			return 0, false
		}
		return resolved, true
	default:
		return 0, false
	}
}

func (entry *DebugInfoEntry) Offset(attr Attribute) (SectionOffset, bool) {
	val, ok := entry.Any(attr)
	if !ok {
		return 0, false
	}
	offset, ok := val.(SectionOffset)
	return offset, ok
}

func (entry *DebugInfoEntry) Bool(attr Attribute) (bool, bool) {
	val, ok := entry.Any(attr)
	if !ok {
		return false, false
	}
	flag, ok := val.(bool)
	return flag, ok
}

// Uint returns unsigned constant values (including non-negative implicit
// constants).
func (entry *DebugInfoEntry) Uint(attr Attribute) (uint64, bool) {
	val, ok := entry.Any(attr)
	if !ok {
		return 0, false
	}

	switch num := val.(type) {
	case uint64:
		return num, true
	case int64:
		if num < 0 {
			return 0, false
		}
		return uint64(num), true
	default:
		return 0, false
	}
}

func (entry *DebugInfoEntry) Int(attr Attribute) (int64, bool) {
	val, ok := entry.Any(attr)
	if !ok {
		return 0, false
	}
	num, ok := val.(int64)
	return num, ok
}

func (entry *DebugInfoEntry) Bytes(attr Attribute) ([]byte, bool) {
	val, ok := entry.Any(attr)
	if !ok {
		return nil, false
	}
	content, ok := val.([]byte)
	return content, ok
}

// String returns string values, resolving string offset table indices.
func (entry *DebugInfoEntry) String(attr Attribute) (string, bool) {
	val, ok := entry.Any(attr)
	if !ok {
		return "", false
	}

	switch str := val.(type) {
	case string:
		return str, true
	case StringIndex:
		resolved, err := entry.CompileUnit.StringAtIndex(str)
		if err != nil {
			return "", false
		}
		return resolved, true
	default:
		return "", false
	}
}

func (entry *DebugInfoEntry) Reference(
	attr Attribute,
) (
	*DebugInfoEntryReference,
	bool,
) {
	val, ok := entry.Any(attr)
	if !ok {
		return nil, false
	}
	ref, ok := val.(*DebugInfoEntryReference)
	return ref, ok
}

func (entry *DebugInfoEntry) Name() (
	string,
	bool, // false if not found
	error,
) {
	name, ok := entry.String(DW_AT_name)
	if ok {
		return name, true, nil
	}

	// Current entry is a function declaration (the real definition is in the
	// referenced entry), or an inlined function (the referenced entry is the
	// abstract function).
	ref, ok := entry.Reference(DW_AT_specification)
	if !ok {
		ref, ok = entry.Reference(DW_AT_abstract_origin)
	}
	if !ok {
		return "", false, nil
	}

	refEntry, err := ref.Get()
	if err != nil {
		return "", false, err
	}

	return refEntry.Name()
}

func (entry *DebugInfoEntry) Language() (Language, bool) {
	lang, ok := entry.Uint(DW_AT_language)
	return Language(lang), ok
}

func (entry *DebugInfoEntry) AddressRanges() (AddressRanges, error) {
	lowAddr, lowOk := entry.Address(DW_AT_low_pc)
	high, highOk := entry.Any(DW_AT_high_pc)

	if lowOk && highOk {
		switch val := high.(type) {
		case elf.FileAddress:
			return AddressRanges{{Low: lowAddr, High: val}}, nil
		case AddressIndex:
			highAddr, ok := entry.Address(DW_AT_high_pc)
			if !ok {
				return nil, fmt.Errorf("invalid DW_AT_high_pc address index")
			}
			return AddressRanges{{Low: lowAddr, High: highAddr}}, nil
		case uint64:
			return AddressRanges{
				{
					Low:  lowAddr,
					High: lowAddr + elf.FileAddress(val),
				},
			}, nil
		case int64:
			return AddressRanges{
				{
					Low:  lowAddr,
					High: lowAddr + elf.FileAddress(val),
				},
			}, nil
		default:
			return nil, fmt.Errorf("unexpected DW_AT_high_pc value (%v)", high)
		}
	}

	ranges, ok := entry.Any(DW_AT_ranges)
	if !ok {
		return nil, nil
	}

	return entry.CompileUnit.addressRangesAt(ranges)
}

func (entry *DebugInfoEntry) ContainsAddress(
	address elf.FileAddress,
) (
	bool,
	error,
) {
	addressRanges, err := entry.AddressRanges()
	if err != nil {
		return false, err
	}

	return addressRanges.Contains(address), nil
}

func (entry *DebugInfoEntry) Visit(enter ProcessFunc, exit ProcessFunc) error {
	skipVisitingChildren := false
	if enter != nil {
		err := enter(entry)
		if err != nil {
			if errors.Is(err, ErrSkipVisitingChildren) {
				skipVisitingChildren = true
			} else {
				return err
			}
		}
	}

	if !skipVisitingChildren {
		for _, child := range entry.Children {
			err := child.Visit(enter, exit)
			if err != nil {
				return err
			}
		}
	}

	if exit != nil {
		err := exit(entry)
		if err != nil {
			return err
		}
	}

	return nil
}
