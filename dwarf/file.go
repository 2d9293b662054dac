package dwarf

import (
	"github.com/pattyshack/elfscope/elf"
)

type SectionOffset int

// File provides access to an elf file's .debug_* sections.  Only
// .debug_abbrev and .debug_info are required; the remaining sections are
// resolved lazily and report elf.ErrSectionNotFound when referenced but
// absent.
type File struct {
	*elf.File

	*AbbreviationSection
	*InformationSection
	*AddressRangesSection // .debug_ranges

	Strings       *StringSection // .debug_str
	LineStrings   *StringSection // .debug_line_str
	StringOffsets *OffsetTableSection
	Addresses     *OffsetTableSection
	RangeLists    *AddressRangesSection // .debug_rnglists
}

func NewFile(elfFile *elf.File) (*File, error) {
	abbrevSection, err := NewAbbreviationSection(elfFile)
	if err != nil {
		return nil, err
	}

	infoSection, err := NewInformationSection(elfFile)
	if err != nil {
		return nil, err
	}

	strings, err := NewStringSection(elfFile, ElfDebugStringSection)
	if err != nil {
		return nil, err
	}

	lineStrings, err := NewStringSection(elfFile, ElfDebugLineStringSection)
	if err != nil {
		return nil, err
	}

	stringOffsets, err := NewOffsetTableSection(
		elfFile,
		ElfDebugStringOffsetsSection)
	if err != nil {
		return nil, err
	}

	addresses, err := NewOffsetTableSection(elfFile, ElfDebugAddressSection)
	if err != nil {
		return nil, err
	}

	ranges, err := NewAddressRangesSection(elfFile, ElfDebugRangesSection)
	if err != nil {
		return nil, err
	}

	rangeLists, err := NewAddressRangesSection(
		elfFile,
		ElfDebugRangeListsSection)
	if err != nil {
		return nil, err
	}

	file := &File{
		File:                 elfFile,
		AbbreviationSection:  abbrevSection,
		InformationSection:   infoSection,
		AddressRangesSection: ranges,
		Strings:              strings,
		LineStrings:          lineStrings,
		StringOffsets:        stringOffsets,
		Addresses:            addresses,
		RangeLists:           rangeLists,
	}
	infoSection.SetParent(file)

	return file, nil
}

// UnitDiagnostics returns the problems encountered while splitting
// .debug_info into units.
func (file *File) UnitDiagnostics() []error {
	return file.InformationSection.Diagnostics
}
