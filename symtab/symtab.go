// Package symtab extracts a file's symbol table into size ordered symbols
// and answers name / kind / boundary queries over them.
package symtab

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pattyshack/elfscope/elf"
)

// nm style symbol kind.
type Kind byte

const (
	KindUnknown   = Kind('?')
	KindText      = Kind('T')
	KindData      = Kind('D')
	KindReadOnly  = Kind('R')
	KindBSS       = Kind('B')
	KindCommon    = Kind('C')
	KindAbsolute  = Kind('A')
	KindUndefined = Kind('U')
)

func (kind Kind) String() string {
	switch kind {
	case KindText:
		return "TEXT"
	case KindData:
		return "DATA"
	case KindReadOnly:
		return "RODATA"
	case KindBSS:
		return "BSS"
	case KindCommon:
		return "COMMON"
	case KindAbsolute:
		return "ABS"
	case KindUndefined:
		return "UNDEF"
	default:
		return "OTHER"
	}
}

type Symbol struct {
	*elf.Symbol

	Kind Kind

	// Value with the arm thumb bit cleared (the symbol's first instruction
	// address).
	Address uint64

	// Set for arm functions whose value has the thumb bit set.
	IsThumb bool

	// Originating source file, if known.
	SourceFile string
}

func (symbol *Symbol) IsFunction() bool {
	return symbol.Type() == elf.SymbolTypeFunction ||
		symbol.Type() == elf.SymbolTypeIndirectFunction
}

// Letter returns the nm style type letter.  Local symbols use lower case.
func (symbol *Symbol) Letter() byte {
	if symbol.Binding() == elf.SymbolBindingWeak {
		if symbol.IsDefined() {
			return 'W'
		}
		return 'w'
	}

	letter := byte(symbol.Kind)
	if symbol.Binding() == elf.SymbolBindingLocal &&
		letter >= 'A' &&
		letter <= 'Z' {

		letter += 'a' - 'A'
	}
	return letter
}

// Classify returns the kind of memory the symbol's section occupies.
func Classify(file *elf.File, symbol *elf.Symbol) Kind {
	switch symbol.SectionIndex {
	case elf.SectionIndexUndefined:
		return KindUndefined
	case elf.SectionIndexAbsolute:
		return KindAbsolute
	case elf.SectionIndexCommon:
		return KindCommon
	}

	section, ok := file.SectionAt(symbol.SectionIndex)
	if !ok {
		return KindUnknown
	}

	return ClassifySection(section.Header())
}

func ClassifySection(header elf.SectionHeaderEntry) Kind {
	flags := header.SectionFlags
	if !flags.IsAllocated() {
		return KindUnknown
	}

	switch {
	case header.SectionType == elf.SectionTypeNoSpace:
		return KindBSS
	case flags.IsExecutable():
		return KindText
	case flags.IsWritable():
		return KindData
	default:
		return KindReadOnly
	}
}

// SourceResolver maps a code address to its originating source file.
type SourceResolver interface {
	SourceFileAt(address uint64) (string, bool)
}

type Table struct {
	Section *elf.SymbolTableSection

	// Ordered ascending by size, ties by table order.
	Symbols []*Symbol

	// Table order.
	ordered []*Symbol

	file *elf.File
}

func findSymbolTable(file *elf.File) (*elf.SymbolTableSection, error) {
	for _, name := range []string{
		elf.SymbolTableName,
		elf.DynamicSymbolTableName,
	} {
		table, ok := file.GetSection(name).(*elf.SymbolTableSection)
		if ok {
			return table, nil
		}
	}

	for _, sectionType := range []elf.SectionType{
		elf.SectionTypeSymbolTable,
		elf.SectionTypeDynamicSymbolTable,
	} {
		for _, section := range file.SectionsOfType(sectionType) {
			table, ok := section.(*elf.SymbolTableSection)
			if ok {
				return table, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: symbol table", elf.ErrSectionNotFound)
}

// Extract returns the file's symbols (excluding the null entry).  The
// result doesn't alias any state beyond the immutable file, i.e.,
// extracting twice yields identical sequences.
func Extract(file *elf.File) (*Table, error) {
	section, err := findSymbolTable(file)
	if err != nil {
		return nil, err
	}

	isArm := file.MachineArchitecture == elf.MachineArchitectureARM

	ordered := make([]*Symbol, 0, len(section.Symbols))
	currentFile := ""
	for idx, entry := range section.Symbols {
		if idx == 0 {
			continue
		}

		symbol := &Symbol{
			Symbol:  entry,
			Kind:    Classify(file, entry),
			Address: entry.Value,
		}

		if isArm && symbol.IsFunction() && entry.Value&1 == 1 {
			symbol.Address = entry.Value &^ 1
			symbol.IsThumb = true
		}

		switch {
		case entry.Type() == elf.SymbolTypeSourceFile:
			currentFile = entry.Name
		case entry.Binding() == elf.SymbolBindingLocal:
			symbol.SourceFile = currentFile
		}

		ordered = append(ordered, symbol)
	}

	symbols := make([]*Symbol, len(ordered))
	copy(symbols, ordered)
	sort.SliceStable(
		symbols,
		func(i int, j int) bool {
			return symbols[i].Size < symbols[j].Size
		})

	return &Table{
		Section: section,
		Symbols: symbols,
		ordered: ordered,
		file:    file,
	}, nil
}

// Empty returns a table without symbols.
func Empty(file *elf.File) *Table {
	return &Table{
		file: file,
	}
}

// Ordered returns the symbols in table order.
func (table *Table) Ordered() []*Symbol {
	return table.ordered
}

// AttributeSources assigns source files to defined function and object
// symbols using the resolver.  Symbols the resolver doesn't know keep their
// STT_FILE attribution.  Relocatable objects (section relative addresses,
// unrelocated debug info) keep STT_FILE attribution only.
func (table *Table) AttributeSources(resolver SourceResolver) {
	if table.file != nil && table.file.FileType == elf.FileTypeRelocatable {
		return
	}

	for _, symbol := range table.ordered {
		if !symbol.IsDefined() || symbol.SectionIndex.IsReserved() {
			continue
		}

		if !symbol.IsFunction() && symbol.Type() != elf.SymbolTypeObject {
			continue
		}

		path, ok := resolver.SourceFileAt(symbol.Address)
		if ok {
			symbol.SourceFile = path
		}
	}
}

// Lookup returns symbols whose raw, demangled, or parameterless demangled
// name exactly matches name, in table order.
func (table *Table) Lookup(name string) []*Symbol {
	result := []*Symbol{}
	for _, symbol := range table.ordered {
		if symbol.Matches(name) {
			result = append(result, symbol)
		}
	}
	return result
}

// Functions returns defined function symbols matching name.
func (table *Table) Functions(name string) []*Symbol {
	result := []*Symbol{}
	for _, symbol := range table.Lookup(name) {
		if symbol.IsFunction() && symbol.IsDefined() {
			result = append(result, symbol)
		}
	}
	return result
}

// Defined returns the size ordered defined symbols.
func (table *Table) Defined() []*Symbol {
	result := []*Symbol{}
	for _, symbol := range table.Symbols {
		if symbol.IsDefined() {
			result = append(result, symbol)
		}
	}
	return result
}

// OfKind returns the size ordered symbols of the given kinds.
func (table *Table) OfKind(kinds ...Kind) []*Symbol {
	result := []*Symbol{}
	for _, symbol := range table.Symbols {
		for _, kind := range kinds {
			if symbol.Kind == kind {
				result = append(result, symbol)
				break
			}
		}
	}
	return result
}

// Named returns the size ordered symbols of the given kinds whose names are
// non-empty, excluding section and file symbols.
func (table *Table) Named(kinds ...Kind) []*Symbol {
	result := []*Symbol{}
	for _, symbol := range table.OfKind(kinds...) {
		switch symbol.Type() {
		case elf.SymbolTypeSection, elf.SymbolTypeSourceFile:
			continue
		}

		if strings.TrimSpace(symbol.Name) == "" {
			continue
		}

		result = append(result, symbol)
	}
	return result
}

// NextBoundary returns the address where the symbol's region ends when its
// size is unreliable: the closest following symbol address within the same
// section, or the section end.
func (table *Table) NextBoundary(symbol *Symbol) (uint64, bool) {
	section, ok := table.file.SectionAt(symbol.SectionIndex)
	if !ok {
		return 0, false
	}

	header := section.Header()
	end := header.Address + header.Size
	if symbol.Address >= end {
		return 0, false
	}

	for _, other := range table.ordered {
		if other.SectionIndex != symbol.SectionIndex ||
			other.Type() == elf.SymbolTypeSection ||
			other.Type() == elf.SymbolTypeSourceFile {

			continue
		}

		if other.Address > symbol.Address && other.Address < end {
			end = other.Address
		}
	}

	return end, true
}
