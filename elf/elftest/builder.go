// Package elftest assembles small, well formed (or deliberately broken) elf
// images for tests.
package elftest

import (
	"encoding/binary"

	"github.com/pattyshack/elfscope/elf"
)

type Section struct {
	Name    string
	Type    elf.SectionType
	Flags   elf.SectionFlags
	Address uint64
	Content []byte

	Size      uint64 // only used by NOBITS sections
	Link      uint32
	Info      uint32
	Alignment uint64
	EntrySize uint64

	NameIndex uint32 // overrides the generated sh_name when non-zero
}

type Symbol struct {
	Name       string
	Value      uint64
	Size       uint64
	Type       elf.SymbolType
	Binding    elf.SymbolBinding
	Visibility elf.SymbolVisibility

	// Section name.  When empty, SectionIndex is used as is.
	Section      string
	SectionIndex elf.SectionIndex

	NameIndex uint32 // overrides the generated st_name when non-zero
}

type Builder struct {
	Class    elf.Class
	Order    binary.AppendByteOrder
	Machine  elf.MachineArchitecture
	FileType elf.FileType
	Flags    uint32
	Entry    uint64

	Sections       []Section
	Symbols        []Symbol
	ProgramHeaders []elf.ProgramHeaderEntry

	// Use extended section numbering (e_shnum = 0, e_shstrndx = SHN_XINDEX).
	ExtendedNumbering bool
}

func NewBuilder(
	class elf.Class,
	order binary.AppendByteOrder,
	machine elf.MachineArchitecture,
) *Builder {
	return &Builder{
		Class:    class,
		Order:    order,
		Machine:  machine,
		FileType: elf.FileTypeExecutable,
	}
}

func (builder *Builder) AddSection(section Section) *Builder {
	builder.Sections = append(builder.Sections, section)
	return builder
}

func (builder *Builder) AddSymbol(symbol Symbol) *Builder {
	builder.Symbols = append(builder.Symbols, symbol)
	return builder
}

type stringTable struct {
	content []byte
}

func newStringTable() *stringTable {
	return &stringTable{content: []byte{0}}
}

func (table *stringTable) add(name string) uint32 {
	if name == "" {
		return 0
	}

	offset := uint32(len(table.content))
	table.content = append(table.content, name...)
	table.content = append(table.content, 0)
	return offset
}

func (builder *Builder) is64() bool {
	return builder.Class == elf.Class64
}

func (builder *Builder) sectionIndex(name string) elf.SectionIndex {
	for idx, section := range builder.Sections {
		if section.Name == name {
			return elf.SectionIndex(idx + 1)
		}
	}
	panic("unknown section " + name)
}

func (builder *Builder) appendAddress(buffer []byte, value uint64) []byte {
	if builder.is64() {
		return builder.Order.AppendUint64(buffer, value)
	}
	return builder.Order.AppendUint32(buffer, uint32(value))
}

func (builder *Builder) symbolTableContent(names *stringTable) []byte {
	content := []byte{}
	entries := append([]Symbol{{}}, builder.Symbols...)
	for _, symbol := range entries {
		nameIndex := names.add(symbol.Name)
		if symbol.NameIndex != 0 {
			nameIndex = symbol.NameIndex
		}

		index := symbol.SectionIndex
		if symbol.Section != "" {
			index = builder.sectionIndex(symbol.Section)
		}

		info := byte(symbol.Binding)<<4 | byte(symbol.Type)&0xf

		content = builder.Order.AppendUint32(content, nameIndex)
		if builder.is64() {
			content = append(content, info, byte(symbol.Visibility))
			content = builder.Order.AppendUint16(content, uint16(index))
			content = builder.Order.AppendUint64(content, symbol.Value)
			content = builder.Order.AppendUint64(content, symbol.Size)
		} else {
			content = builder.Order.AppendUint32(content, uint32(symbol.Value))
			content = builder.Order.AppendUint32(content, uint32(symbol.Size))
			content = append(content, info, byte(symbol.Visibility))
			content = builder.Order.AppendUint16(content, uint16(index))
		}
	}
	return content
}

func align(value uint64, alignment uint64) uint64 {
	return (value + alignment - 1) / alignment * alignment
}

// Build returns the encoded elf image.  Sections are laid out in order
// after the elf header (and program header table), followed by .symtab and
// .strtab (only when symbols are present), .shstrtab, and finally the
// section header table.
func (builder *Builder) Build() []byte {
	sections := append([]Section{}, builder.Sections...)

	if len(builder.Symbols) > 0 {
		names := newStringTable()
		symbolEntrySize := uint64(elf.Elf32SymbolEntrySize)
		if builder.is64() {
			symbolEntrySize = elf.Elf64SymbolEntrySize
		}

		symbolContent := builder.symbolTableContent(names)
		sections = append(
			sections,
			Section{
				Name:      elf.SymbolTableName,
				Type:      elf.SectionTypeSymbolTable,
				Content:   symbolContent,
				Link:      uint32(len(sections) + 2),
				Info:      1,
				Alignment: 8,
				EntrySize: symbolEntrySize,
			},
			Section{
				Name:    elf.StringTableName,
				Type:    elf.SectionTypeStringTable,
				Content: names.content,
			})
	}

	sectionNames := newStringTable()
	sections = append(
		sections,
		Section{
			Name: elf.SectionStringTableName,
			Type: elf.SectionTypeStringTable,
		})

	nameIndices := make([]uint32, len(sections))
	for idx, section := range sections {
		nameIndices[idx] = sectionNames.add(section.Name)
		if section.NameIndex != 0 {
			nameIndices[idx] = section.NameIndex
		}
	}
	sections[len(sections)-1].Content = sectionNames.content

	headerSize := uint64(elf.Elf32HeaderSize)
	sectionHeaderSize := uint64(elf.Elf32SectionHeaderEntrySize)
	programHeaderSize := uint64(elf.Elf32ProgramHeaderEntrySize)
	if builder.is64() {
		headerSize = elf.Elf64HeaderSize
		sectionHeaderSize = elf.Elf64SectionHeaderEntrySize
		programHeaderSize = elf.Elf64ProgramHeaderEntrySize
	}

	programHeaderOffset := uint64(0)
	offset := headerSize
	if len(builder.ProgramHeaders) > 0 {
		programHeaderOffset = offset
		offset += programHeaderSize * uint64(len(builder.ProgramHeaders))
	}

	offsets := make([]uint64, len(sections))
	for idx, section := range sections {
		offset = align(offset, 8)
		offsets[idx] = offset
		if section.Type != elf.SectionTypeNoSpace {
			offset += uint64(len(section.Content))
		}
	}

	sectionHeaderOffset := align(offset, 8)
	numSections := uint64(len(sections) + 1)
	nameTableIndex := uint64(len(sections))

	// elf header
	image := []byte{0x7f, 'E', 'L', 'F', byte(builder.Class)}
	if builder.Order == binary.BigEndian {
		image = append(image, byte(elf.DataEncodingTwosComplementBigEndian))
	} else {
		image = append(image, byte(elf.DataEncodingTwosComplementLittleEndian))
	}
	image = append(image, elf.IdentifierVersion)
	image = append(image, make([]byte, elf.ElfIdentifierSize-len(image))...)

	headerNumSections := uint16(numSections)
	headerNameTableIndex := uint16(nameTableIndex)
	if builder.ExtendedNumbering {
		headerNumSections = 0
		headerNameTableIndex = uint16(elf.SectionIndexExtendedHeld)
	}

	image = builder.Order.AppendUint16(image, uint16(builder.FileType))
	image = builder.Order.AppendUint16(image, uint16(builder.Machine))
	image = builder.Order.AppendUint32(image, elf.FormatVersion)
	image = builder.appendAddress(image, builder.Entry)
	image = builder.appendAddress(image, programHeaderOffset)
	image = builder.appendAddress(image, sectionHeaderOffset)
	image = builder.Order.AppendUint32(image, builder.Flags)
	image = builder.Order.AppendUint16(image, uint16(headerSize))
	image = builder.Order.AppendUint16(image, uint16(programHeaderSize))
	image = builder.Order.AppendUint16(
		image,
		uint16(len(builder.ProgramHeaders)))
	image = builder.Order.AppendUint16(image, uint16(sectionHeaderSize))
	image = builder.Order.AppendUint16(image, headerNumSections)
	image = builder.Order.AppendUint16(image, headerNameTableIndex)

	for _, header := range builder.ProgramHeaders {
		image = builder.appendProgramHeader(image, header)
	}

	for idx, section := range sections {
		image = append(image, make([]byte, offsets[idx]-uint64(len(image)))...)
		if section.Type != elf.SectionTypeNoSpace {
			image = append(image, section.Content...)
		}
	}

	image = append(image, make([]byte, sectionHeaderOffset-uint64(len(image)))...)

	// section 0
	first := elf.SectionHeaderEntry{}
	if builder.ExtendedNumbering {
		first.Size = numSections
		first.Link = uint32(nameTableIndex)
	}
	image = builder.appendSectionHeader(image, first)

	for idx, section := range sections {
		size := uint64(len(section.Content))
		if section.Type == elf.SectionTypeNoSpace {
			size = section.Size
		}

		image = builder.appendSectionHeader(
			image,
			elf.SectionHeaderEntry{
				NameIndex:        nameIndices[idx],
				SectionType:      section.Type,
				SectionFlags:     section.Flags,
				Address:          section.Address,
				Offset:           offsets[idx],
				Size:             size,
				Link:             section.Link,
				Info:             section.Info,
				AddressAlignment: section.Alignment,
				EntrySize:        section.EntrySize,
			})
	}

	return image
}

func (builder *Builder) appendSectionHeader(
	image []byte,
	header elf.SectionHeaderEntry,
) []byte {
	image = builder.Order.AppendUint32(image, header.NameIndex)
	image = builder.Order.AppendUint32(image, uint32(header.SectionType))
	image = builder.appendAddress(image, uint64(header.SectionFlags))
	image = builder.appendAddress(image, header.Address)
	image = builder.appendAddress(image, header.Offset)
	image = builder.appendAddress(image, header.Size)
	image = builder.Order.AppendUint32(image, header.Link)
	image = builder.Order.AppendUint32(image, header.Info)
	image = builder.appendAddress(image, header.AddressAlignment)
	image = builder.appendAddress(image, header.EntrySize)
	return image
}

func (builder *Builder) appendProgramHeader(
	image []byte,
	header elf.ProgramHeaderEntry,
) []byte {
	image = builder.Order.AppendUint32(image, uint32(header.ProgramType))
	if builder.is64() {
		image = builder.Order.AppendUint32(image, uint32(header.ProgramFlags))
	}
	image = builder.appendAddress(image, header.ContentOffset)
	image = builder.appendAddress(image, header.VirtualAddress)
	image = builder.appendAddress(image, header.PhysicalAddress)
	image = builder.appendAddress(image, header.FileImageSize)
	image = builder.appendAddress(image, header.MemoryImageSize)
	if !builder.is64() {
		image = builder.Order.AppendUint32(image, uint32(header.ProgramFlags))
	}
	image = builder.appendAddress(image, header.Alignment)
	return image
}

// Parse builds and parses the image, panicking on failure.
func (builder *Builder) Parse() *elf.File {
	file, err := elf.ParseBytes(builder.Build())
	if err != nil {
		panic(err)
	}
	return file
}
