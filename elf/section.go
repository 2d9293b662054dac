package elf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

type FileAddress uint64

type Section interface {
	Header() SectionHeaderEntry
	Index() SectionIndex

	BindSectionNameTable(sectionNames *StringTableSection) error
	Name() string

	// Returns the section's bytes.  The slice is shared with the parsed file
	// and must not be modified.
	RawContent() ([]byte, error)

	// See elf spec. Figure 1-12. sh_link and sh_info interpretation.
	BindStringTable(stringTable *StringTableSection) error
}

type BaseSection struct {
	SectionHeaderEntry

	index            SectionIndex
	sectionNameTable *StringTableSection
	name             string

	content []byte
}

func newBaseSection(
	index SectionIndex,
	header SectionHeaderEntry,
	content []byte,
) BaseSection {
	return BaseSection{
		SectionHeaderEntry: header,
		index:              index,
		content:            content,
	}
}

func (base *BaseSection) Header() SectionHeaderEntry {
	return base.SectionHeaderEntry
}

func (base *BaseSection) Index() SectionIndex {
	return base.index
}

func (base *BaseSection) Name() string {
	return base.name
}

func (base *BaseSection) BindSectionNameTable(
	sectionNames *StringTableSection,
) error {
	base.sectionNameTable = sectionNames

	name, err := sectionNames.Get(base.NameIndex)
	if err != nil {
		return fmt.Errorf("section %d name: %w", base.index, err)
	}

	base.name = name
	return nil
}

func (base *BaseSection) RawContent() ([]byte, error) {
	if !base.SectionType.HasContent() {
		return nil, fmt.Errorf(
			"section %d (%s) has no content",
			base.index,
			base.SectionType)
	}

	if base.content == nil && base.Size > 0 {
		return nil, fmt.Errorf(
			"%w: section %d (%s) content [%d:%d+%d]",
			ErrOutOfBounds,
			base.index,
			base.name,
			base.Offset,
			base.Offset,
			base.Size)
	}

	return base.content, nil
}

// Contains returns true if the file address lies within the section's
// virtual address range.
func (base *BaseSection) Contains(address FileAddress) bool {
	start := FileAddress(base.Address)
	return start <= address && address < start+FileAddress(base.Size)
}

func (BaseSection) BindStringTable(table *StringTableSection) error {
	return nil
}

type RawSection struct {
	BaseSection
}

func newRawSection(
	index SectionIndex,
	header SectionHeaderEntry,
	content []byte,
) *RawSection {
	return &RawSection{
		BaseSection: newBaseSection(index, header, content),
	}
}

type StringTableSection struct {
	BaseSection
}

func NewStringTableSection(
	index SectionIndex,
	header SectionHeaderEntry,
	content []byte,
) *StringTableSection {
	return &StringTableSection{
		BaseSection: newBaseSection(index, header, content),
	}
}

// Get returns the string at the name offset.  An out of bound offset is a
// malformed string table reference.
func (table *StringTableSection) Get(index uint32) (string, error) {
	if index >= uint32(len(table.content)) {
		return "", fmt.Errorf(
			"%w: name offset (%d) exceeds string table %d size (%d)",
			ErrMalformedStringTable,
			index,
			table.index,
			len(table.content))
	}

	reader := NewReader(nil, table.content)
	return reader.CString(uint64(index))
}

func (table *StringTableSection) NumEntries() int {
	if len(table.content) == 0 {
		return 0
	}

	count := 0
	for _, b := range table.content[1:] {
		if b == 0 {
			count += 1
		}
	}
	return count
}

type Symbol struct {
	SymbolEntry

	Parent *SymbolTableSection
	Index  int // position within the parent table

	Name          string
	DemangledName string // human readable c++ name
	BaseName      string // demangled name without parameters
}

func (symbol Symbol) PrettyName() string {
	if symbol.DemangledName != "" {
		return symbol.DemangledName
	}

	return symbol.Name
}

// Matches returns true if name exactly matches the raw name, the demangled
// name, or the demangled name without parameters.
func (symbol Symbol) Matches(name string) bool {
	if name == "" {
		return false
	}

	return symbol.Name == name ||
		symbol.DemangledName == name ||
		symbol.BaseName == name
}

func (symbol Symbol) Type() SymbolType {
	return SymbolInfoToType(symbol.Info)
}

func (symbol Symbol) Binding() SymbolBinding {
	return SymbolInfoToBinding(symbol.Info)
}

func (symbol Symbol) IsDefined() bool {
	return symbol.SectionIndex != SectionIndexUndefined
}

func (symbol Symbol) AddressRange() (FileAddress, FileAddress, bool) {
	if symbol.Value == 0 ||
		symbol.NameIndex == 0 ||
		symbol.Type() == SymbolTypeTLSObject {

		return 0, 0, false
	}

	start := FileAddress(symbol.Value)
	end := FileAddress(symbol.Value + symbol.Size)
	return start, end, true
}

type SymbolTableSection struct {
	BaseSection

	Symbols []*Symbol

	stringTable *StringTableSection
}

func (table *SymbolTableSection) StringTable() *StringTableSection {
	return table.stringTable
}

func (table *SymbolTableSection) BindStringTable(
	names *StringTableSection,
) error {
	table.stringTable = names

	var errs []error
	for _, symbol := range table.Symbols {
		name, err := names.Get(symbol.NameIndex)
		if err != nil {
			errs = append(
				errs,
				fmt.Errorf(
					"%s symbol %d: %w",
					table.name,
					symbol.Index,
					err))
			continue
		}

		symbol.Name = name

		// Only itanium c++ mangling is recognized.
		if !strings.HasPrefix(name, "_Z") {
			continue
		}

		val, err := demangle.ToString(name)
		if err == nil {
			symbol.DemangledName = val
		}

		val, err = demangle.ToString(name, demangle.NoParams)
		if err == nil {
			symbol.BaseName = val
		}
	}

	return errors.Join(errs...)
}

func (table *SymbolTableSection) SymbolsByName(name string) []*Symbol {
	result := []*Symbol{}
	for _, symbol := range table.Symbols {
		if symbol.Matches(name) {
			result = append(result, symbol)
		}
	}
	return result
}

func (table *SymbolTableSection) SymbolAt(address FileAddress) *Symbol {
	for _, symbol := range table.Symbols {
		low, _, ok := symbol.AddressRange()
		if ok && low == address {
			return symbol
		}
	}

	return nil
}

func (table *SymbolTableSection) SymbolSpans(address FileAddress) *Symbol {
	for _, symbol := range table.Symbols {
		low, high, ok := symbol.AddressRange()
		if ok && low <= address && address < high {
			return symbol
		}
	}

	return nil
}

type NoteEntry struct {
	Name        string // name is usually human readable
	Description string // description has no standard format and may be unreadable
	Type        uint32
}

const (
	NoteTypeGNUBuildId = 3 // NT_GNU_BUILD_ID
)

type NoteSection struct {
	BaseSection

	Entries []NoteEntry
}

func newNoteSection(
	index SectionIndex,
	header SectionHeaderEntry,
	content []byte,
	entries []NoteEntry,
) *NoteSection {
	return &NoteSection{
		BaseSection: newBaseSection(index, header, content),
		Entries:     entries,
	}
}

// BuildId returns the hex encoded GNU build id, if present.
func (note *NoteSection) BuildId() (string, bool) {
	for _, entry := range note.Entries {
		if entry.Type == NoteTypeGNUBuildId &&
			strings.TrimRight(entry.Name, "\x00") == "GNU" {

			return fmt.Sprintf("%x", entry.Description), true
		}
	}

	return "", false
}
