// Package disasm decodes the machine code of elf functions and address
// ranges.
package disasm

import (
	"fmt"
	"sort"

	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/symtab"
)

type Disassembler struct {
	file  *elf.File
	table *symtab.Table // may be nil

	// Set for thumb only (Cortex-M) arm files.
	thumbOnly bool

	symbols []*symtab.Symbol // address ordered defined code / data symbols
}

// New returns a disassembler for the file.  table (which may be nil) is used
// for function lookups and target annotation.
func New(file *elf.File, table *symtab.Table) *Disassembler {
	disassembler := &Disassembler{
		file:  file,
		table: table,
	}

	if file.MachineArchitecture == elf.MachineArchitectureARM {
		attrs, err := elf.ParseARMAttributes(file)
		if err == nil && attrs != nil {
			disassembler.thumbOnly = attrs.IsMicrocontroller()
		}
	}

	if table != nil {
		for _, symbol := range table.Ordered() {
			if !symbol.IsDefined() || symbol.Name == "" {
				continue
			}

			switch symbol.Type() {
			case elf.SymbolTypeFunction, elf.SymbolTypeObject, elf.SymbolTypeNone:
				disassembler.symbols = append(disassembler.symbols, symbol)
			}
		}

		sort.SliceStable(
			disassembler.symbols,
			func(i int, j int) bool {
				return disassembler.symbols[i].Address <
					disassembler.symbols[j].Address
			})
	}

	return disassembler
}

// SymbolAt returns the name and start address of the closest symbol at or
// before the address, provided the address is within the symbol's extent.
func (disassembler *Disassembler) SymbolAt(address uint64) (string, uint64) {
	return disassembler.symbolAt(address, nil)
}

func (disassembler *Disassembler) symbolAt(
	address uint64,
	section elf.Section,
) (
	string,
	uint64,
) {
	symbols := disassembler.symbols
	idx := sort.Search(
		len(symbols),
		func(i int) bool { return symbols[i].Address > address })

	for idx--; idx >= 0; idx-- {
		symbol := symbols[idx]
		if section != nil && symbol.SectionIndex != section.Index() {
			continue
		}

		if symbol.Address == address ||
			address < symbol.Address+symbol.Size {

			return symbol.PrettyName(), symbol.Address
		}

		if symbol.Size != 0 {
			break
		}
	}

	return "", 0
}

// lookupIn returns the symbol lookup for code in the given section.
// Relocatable objects place every section at address zero, so lookups are
// restricted to the section's own symbols.
func (disassembler *Disassembler) lookupIn(section elf.Section) SymbolLookup {
	if len(disassembler.symbols) == 0 {
		return nil
	}

	if disassembler.file.FileType != elf.FileTypeRelocatable {
		return disassembler.SymbolAt
	}

	return func(address uint64) (string, uint64) {
		return disassembler.symbolAt(address, section)
	}
}

// Function disassembles the function's [value, value + size) region of its
// own section.  Zero sized functions extend to the next symbol boundary or
// section end.
func (disassembler *Disassembler) Function(name string) ([]Instruction, error) {
	if disassembler.table == nil {
		return nil, fmt.Errorf("%w: %s (no symbol table)", ErrFunctionNotFound, name)
	}

	functions := disassembler.table.Functions(name)
	if len(functions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}

	function := functions[0]
	section, ok := disassembler.file.SectionAt(function.SectionIndex)
	if !ok {
		return nil, fmt.Errorf(
			"%w: %s's section (%d)",
			elf.ErrSectionNotFound,
			name,
			function.SectionIndex)
	}

	size := function.Size
	if size == 0 {
		end, ok := disassembler.table.NextBoundary(function)
		if !ok {
			return nil, fmt.Errorf(
				"failed to determine %s's extent: %w",
				name,
				elf.ErrOutOfBounds)
		}
		size = end - function.Address
	}

	mode := ModeDefault
	if function.IsThumb || disassembler.thumbOnly {
		mode = ModeThumb
	}

	return disassembler.disassemble(section, function.Address, size, mode)
}

// Range disassembles an arbitrary [address, address + size) region.  For
// arm files, an odd address selects thumb state.
func (disassembler *Disassembler) Range(
	address uint64,
	size uint64,
) (
	[]Instruction,
	error,
) {
	mode := ModeDefault
	if disassembler.file.MachineArchitecture == elf.MachineArchitectureARM {
		if address&1 != 0 {
			address &^= 1
			mode = ModeThumb
		} else if disassembler.thumbOnly {
			mode = ModeThumb
		}
	}

	section := disassembler.file.SectionContaining(elf.FileAddress(address))
	if section == nil {
		return nil, fmt.Errorf(
			"%w: no section contains address %#x",
			elf.ErrSectionNotFound,
			address)
	}

	return disassembler.disassemble(section, address, size, mode)
}

// code returns the section's bytes for [address, address + size).  The
// region must lie entirely within the section's content.
func code(section elf.Section, address uint64, size uint64) ([]byte, error) {
	content, err := section.RawContent()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", section.Name(), err)
	}

	header := section.Header()
	contentSize := uint64(len(content))
	if address < header.Address ||
		address-header.Address > contentSize ||
		size > contentSize-(address-header.Address) {

		return nil, fmt.Errorf(
			"%w: [%#x, %#x) outside of %s [%#x, %#x)",
			elf.ErrOutOfBounds,
			address,
			address+size,
			section.Name(),
			header.Address,
			header.Address+contentSize)
	}

	start := address - header.Address
	return content[start : start+size], nil
}

func (disassembler *Disassembler) disassemble(
	section elf.Section,
	address uint64,
	size uint64,
	mode Mode,
) (
	[]Instruction,
	error,
) {
	lookup := disassembler.lookupIn(section)

	decoder, err := NewDecoder(disassembler.file, mode, lookup)
	if err != nil {
		return nil, err
	}

	content, err := code(section, address, size)
	if err != nil {
		return nil, err
	}

	result := Decode(decoder, content, address)

	if lookup != nil {
		for idx, inst := range result {
			if !inst.HasTarget {
				continue
			}

			name, base := lookup(inst.Target)
			if name == "" {
				continue
			}
			if base != inst.Target {
				name = fmt.Sprintf("%s+0x%x", name, inst.Target-base)
			}
			result[idx].TargetSymbol = name
		}
	}

	return result, nil
}

// Decode decodes the whole code region.  Undecodable bytes produce unknown
// placeholders spanning the decoder's minimum instruction unit.
func Decode(decoder Decoder, code []byte, address uint64) []Instruction {
	result := []Instruction{}
	for len(code) > 0 {
		inst, err := decoder.Decode(code, address)
		if err != nil || inst.Length() == 0 {
			inst = unknownInstruction(code, address, decoder.MinLength())
		}

		result = append(result, inst)
		code = code[inst.Length():]
		address += uint64(inst.Length())
	}

	return result
}

// Disassemble disassembles the named function.
func Disassemble(
	file *elf.File,
	table *symtab.Table,
	name string,
) (
	[]Instruction,
	error,
) {
	return New(file, table).Function(name)
}

// DisassembleRange disassembles the [address, address + size) region.
func DisassembleRange(
	file *elf.File,
	address uint64,
	size uint64,
) (
	[]Instruction,
	error,
) {
	return New(file, nil).Range(address, size)
}
