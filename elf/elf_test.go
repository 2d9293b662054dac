package elf_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/pattyshack/gt/testing/suite"

	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/elf/elftest"
)

type ElfSuite struct{}

func TestElf(t *testing.T) {
	suite.RunTests(t, &ElfSuite{})
}

func (ElfSuite) newBuilder(
	class elf.Class,
	order binary.AppendByteOrder,
) *elftest.Builder {
	builder := elftest.NewBuilder(class, order, elf.MachineArchitectureARM)
	builder.AddSection(
		elftest.Section{
			Name:    ".text",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Address: 0x1000,
			Content: make([]byte, 0x100),
		})
	builder.AddSection(
		elftest.Section{
			Name:    ".data",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsWritableData,
			Address: 0x2000,
			Content: make([]byte, 0x20),
		})
	builder.AddSection(
		elftest.Section{
			Name:    ".bss",
			Type:    elf.SectionTypeNoSpace,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsWritableData,
			Address: 0x2020,
			Size:    0x40,
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "main",
			Value:   0x1000,
			Size:    0x40,
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingGlobal,
			Section: ".text",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "_ZN3foo3barEi",
			Value:   0x1040,
			Size:    0x10,
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingGlobal,
			Section: ".text",
		})
	return builder
}

func (s ElfSuite) checkBasic(t *testing.T, file *elf.File, is64 bool) {
	expect.Equal(t, is64, file.Is64())
	expect.Equal(t, elf.MachineArchitectureARM, file.MachineArchitecture)
	expect.Equal(t, 0, len(file.Diagnostics))

	// null, .text, .data, .bss, .symtab, .strtab, .shstrtab
	expect.Equal(t, 7, len(file.Sections))

	text := file.GetSection(".text")
	expect.NotNil(t, text)
	expect.Equal(t, uint64(0x100), text.Header().Size)
	expect.Equal(t, uint64(0x1000), text.Header().Address)

	bss := file.GetSection(".bss")
	expect.NotNil(t, bss)
	expect.Equal(t, uint64(0x40), bss.Header().Size)
	_, err := bss.RawContent()
	expect.NotNil(t, err)

	expect.Nil(t, file.GetSection(".rodata"))

	section, ok := file.SectionAt(2)
	expect.True(t, ok)
	expect.Equal(t, ".data", section.Name())

	_, ok = file.SectionAt(elf.SectionIndexAbsolute)
	expect.False(t, ok)

	tables := file.SectionsOfType(elf.SectionTypeSymbolTable)
	expect.Equal(t, 1, len(tables))

	table, ok := tables[0].(*elf.SymbolTableSection)
	expect.True(t, ok)
	expect.Equal(t, 3, len(table.Symbols))

	mainSymbol := table.Symbols[1]
	expect.Equal(t, "main", mainSymbol.Name)
	expect.Equal(t, "", mainSymbol.DemangledName)
	expect.Equal(t, uint64(0x1000), mainSymbol.Value)
	expect.Equal(t, uint64(0x40), mainSymbol.Size)
	expect.Equal(t, elf.SymbolTypeFunction, mainSymbol.Type())
	expect.Equal(t, elf.SymbolBindingGlobal, mainSymbol.Binding())
	expect.Equal(t, elf.SectionIndex(1), mainSymbol.SectionIndex)

	mangled := table.Symbols[2]
	expect.Equal(t, "_ZN3foo3barEi", mangled.Name)
	expect.Equal(t, "foo::bar(int)", mangled.DemangledName)
	expect.Equal(t, "foo::bar", mangled.BaseName)
	expect.Equal(t, "foo::bar(int)", mangled.PrettyName())

	expect.Equal(t, mangled, table.SymbolAt(0x1040))
	expect.Equal(t, mainSymbol, table.SymbolSpans(0x1020))
	expect.Equal(t, 1, len(table.SymbolsByName("foo::bar")))
}

func (s ElfSuite) TestParse64LittleEndian(t *testing.T) {
	file, err := elf.ParseBytes(
		s.newBuilder(elf.Class64, binary.LittleEndian).Build())
	expect.Nil(t, err)
	expect.Equal(t, binary.ByteOrder(binary.LittleEndian), file.ByteOrder())
	s.checkBasic(t, file, true)
}

func (s ElfSuite) TestParse32BigEndian(t *testing.T) {
	file, err := elf.ParseBytes(
		s.newBuilder(elf.Class32, binary.BigEndian).Build())
	expect.Nil(t, err)
	expect.Equal(t, binary.ByteOrder(binary.BigEndian), file.ByteOrder())
	s.checkBasic(t, file, false)
}

func (s ElfSuite) TestParse32LittleEndian(t *testing.T) {
	file, err := elf.ParseBytes(
		s.newBuilder(elf.Class32, binary.LittleEndian).Build())
	expect.Nil(t, err)
	s.checkBasic(t, file, false)
}

func (s ElfSuite) TestExtendedNumbering(t *testing.T) {
	builder := s.newBuilder(elf.Class64, binary.LittleEndian)
	builder.ExtendedNumbering = true

	file, err := elf.ParseBytes(builder.Build())
	expect.Nil(t, err)
	expect.Equal(t, uint16(0), file.NumSectionHeaderEntries)
	s.checkBasic(t, file, true)
}

func (s ElfSuite) TestProgramHeaders(t *testing.T) {
	for _, class := range []elf.Class{elf.Class32, elf.Class64} {
		builder := s.newBuilder(class, binary.BigEndian)
		builder.ProgramHeaders = []elf.ProgramHeaderEntry{
			{
				ProgramType:     elf.ProgramLoadable,
				ProgramFlags:    elf.ProgramFlagReadableBit | elf.ProgramFlagExecutableBit,
				ContentOffset:   0x1000,
				VirtualAddress:  0x8000,
				PhysicalAddress: 0x8000,
				FileImageSize:   0x120,
				MemoryImageSize: 0x160,
				Alignment:       0x1000,
			},
		}

		file, err := elf.ParseBytes(builder.Build())
		expect.Nil(t, err)
		expect.Equal(t, 1, len(file.ProgramHeaders))

		header := file.ProgramHeaders[0]
		expect.Equal(t, elf.ProgramLoadable, header.ProgramType)
		expect.Equal(
			t,
			elf.ProgramFlagReadableBit|elf.ProgramFlagExecutableBit,
			header.ProgramFlags)
		expect.Equal(t, uint64(0x8000), header.VirtualAddress)
		expect.Equal(t, uint64(0x120), header.FileImageSize)
		expect.Equal(t, uint64(0x160), header.MemoryImageSize)
		expect.Equal(t, uint64(0x1000), header.Alignment)
	}
}

func (s ElfSuite) TestOpen(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "firmware.elf")
	err := os.WriteFile(
		path,
		s.newBuilder(elf.Class32, binary.LittleEndian).Build(),
		0o644)
	expect.Nil(t, err)

	file, err := elf.Open(path)
	expect.Nil(t, err)
	s.checkBasic(t, file.File, false)

	expect.Nil(t, file.Close())
	expect.Nil(t, file.Close())

	_, err = elf.Open(filepath.Join(dir, "missing.elf"))
	expect.Error(t, err, "failed to open")

	empty := filepath.Join(dir, "empty")
	err = os.WriteFile(empty, nil, 0o644)
	expect.Nil(t, err)

	_, err = elf.Open(empty)
	expect.True(t, errors.Is(err, elf.ErrInvalidMagic))
}

func (s ElfSuite) TestNoSections(t *testing.T) {
	builder := elftest.NewBuilder(
		elf.Class32,
		binary.LittleEndian,
		elf.MachineArchitectureAVR)
	content := builder.Build()

	// zero out e_shnum.  Section 0's sh_size is 0 so there are no sections.
	content[48] = 0
	content[49] = 0

	file, err := elf.ParseBytes(content)
	expect.Nil(t, err)
	expect.Equal(t, 0, len(file.Sections))
	expect.Nil(t, file.GetSection(".text"))
}

func (ElfSuite) TestInvalidMagic(t *testing.T) {
	_, err := elf.ParseBytes([]byte("\x7fELG\x01\x01\x01"))
	expect.True(t, errors.Is(err, elf.ErrInvalidMagic))

	_, err = elf.ParseBytes([]byte("\x7fEL"))
	expect.True(t, errors.Is(err, elf.ErrInvalidMagic))

	_, err = elf.ParseBytes(nil)
	expect.True(t, errors.Is(err, elf.ErrInvalidMagic))
}

func (s ElfSuite) TestUnsupportedClass(t *testing.T) {
	content := s.newBuilder(elf.Class64, binary.LittleEndian).Build()
	content[4] = 3

	_, err := elf.ParseBytes(content)
	expect.True(t, errors.Is(err, elf.ErrUnsupportedClass))
}

func (s ElfSuite) TestUnsupportedDataEncoding(t *testing.T) {
	content := s.newBuilder(elf.Class64, binary.LittleEndian).Build()
	content[5] = 0

	_, err := elf.ParseBytes(content)
	expect.True(t, errors.Is(err, elf.ErrUnsupportedDataEncoding))
}

func (s ElfSuite) TestTruncatedHeader(t *testing.T) {
	content := s.newBuilder(elf.Class64, binary.LittleEndian).Build()

	_, err := elf.ParseBytes(content[:40])
	expect.NotNil(t, err)
	expect.True(t, errors.Is(err, elf.ErrOutOfBounds))
}

func (s ElfSuite) TestTruncatedSectionHeaderTable(t *testing.T) {
	content := s.newBuilder(elf.Class32, binary.LittleEndian).Build()

	_, err := elf.ParseBytes(content[:len(content)-10])
	expect.True(t, errors.Is(err, elf.ErrOutOfBounds))
	expect.Error(t, err, "section header table")
}

func (s ElfSuite) TestOutOfBoundsSectionContent(t *testing.T) {
	builder := s.newBuilder(elf.Class32, binary.LittleEndian)
	builder.AddSection(
		elftest.Section{
			Name:    ".rodata",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory,
			Content: []byte("hello"),
		})
	content := builder.Build()

	file, err := elf.ParseBytes(content)
	expect.Nil(t, err)

	rodata := file.GetSection(".rodata")
	expect.NotNil(t, rodata)

	// Patch .rodata's sh_size (section header 4, field offset 20).
	shoff := binary.LittleEndian.Uint32(content[32:])
	sizeOffset := shoff + 4*elf.Elf32SectionHeaderEntrySize + 20
	binary.LittleEndian.PutUint32(content[sizeOffset:], 0xffffff)

	file, err = elf.ParseBytes(content)
	expect.Nil(t, err)
	expect.Equal(t, 1, len(file.Diagnostics))
	expect.True(t, errors.Is(file.Diagnostics[0], elf.ErrOutOfBounds))

	rodata = file.GetSection(".rodata")
	expect.NotNil(t, rodata)
	_, err = rodata.RawContent()
	expect.True(t, errors.Is(err, elf.ErrOutOfBounds))

	// other sections are unaffected
	text, err := file.GetSection(".text").RawContent()
	expect.Nil(t, err)
	expect.Equal(t, 0x100, len(text))
}

func (s ElfSuite) TestMalformedSymbolName(t *testing.T) {
	builder := s.newBuilder(elf.Class64, binary.LittleEndian)
	builder.AddSymbol(
		elftest.Symbol{
			Name:      "broken",
			NameIndex: 0xffff,
			Value:     0x1050,
			Size:      4,
			Type:      elf.SymbolTypeFunction,
			Section:   ".text",
		})

	file, err := elf.ParseBytes(builder.Build())
	expect.Nil(t, err)
	expect.Equal(t, 1, len(file.Diagnostics))
	expect.True(t, errors.Is(file.Diagnostics[0], elf.ErrMalformedStringTable))

	table := file.GetSection(".symtab").(*elf.SymbolTableSection)
	expect.Equal(t, 4, len(table.Symbols))
	expect.Equal(t, "", table.Symbols[3].Name)
	expect.Equal(t, "main", table.Symbols[1].Name)
}

func (s ElfSuite) TestMalformedSectionName(t *testing.T) {
	builder := s.newBuilder(elf.Class64, binary.LittleEndian)
	builder.AddSection(
		elftest.Section{
			Name:      ".bad",
			NameIndex: 0xffff,
			Type:      elf.SectionTypeProgramDefinedInfo,
		})

	file, err := elf.ParseBytes(builder.Build())
	expect.Nil(t, err)
	expect.Equal(t, 1, len(file.Diagnostics))
	expect.True(t, errors.Is(file.Diagnostics[0], elf.ErrMalformedStringTable))
	expect.NotNil(t, file.GetSection(".text"))
}

func (s ElfSuite) TestDanglingLink(t *testing.T) {
	builder := s.newBuilder(elf.Class64, binary.LittleEndian)
	builder.AddSection(
		elftest.Section{
			Name: ".rel.text",
			Type: elf.SectionTypeRelocationNoAddends,
			Link: 100,
		})

	file, err := elf.ParseBytes(builder.Build())
	expect.Nil(t, err)
	expect.Equal(t, 1, len(file.Diagnostics))
	expect.Error(t, file.Diagnostics[0], "out of bound")
}

func (ElfSuite) TestStringTable(t *testing.T) {
	table := elf.NewStringTableSection(
		0,
		elf.SectionHeaderEntry{
			SectionType: elf.SectionTypeStringTable,
		},
		[]byte("\x00Milkshake\x00shake\x00no\x00"))

	get := func(index uint32) string {
		value, err := table.Get(index)
		expect.Nil(t, err)
		return value
	}

	expect.Equal(t, "Milkshake", get(1))
	expect.Equal(t, "shake", get(5))
	expect.Equal(t, "", get(10))
	expect.Equal(t, "shake", get(11))
	expect.Equal(t, "no", get(17))
	expect.Equal(t, "o", get(18))
	expect.Equal(t, "", get(19))
	expect.Equal(t, 3, table.NumEntries())

	_, err := table.Get(20)
	expect.True(t, errors.Is(err, elf.ErrMalformedStringTable))
}

func (ElfSuite) TestReader(t *testing.T) {
	reader := elf.NewReader(
		binary.BigEndian,
		[]byte{0x01, 0x02, 0x03, 0x04, 'h', 'i', 0, 'x', 0xe5, 0x8e, 0x26})

	u16, err := reader.U16(0)
	expect.Nil(t, err)
	expect.Equal(t, uint16(0x0102), u16)

	u32, err := reader.U32(0)
	expect.Nil(t, err)
	expect.Equal(t, uint32(0x01020304), u32)

	_, err = reader.U64(4)
	expect.True(t, errors.Is(err, elf.ErrOutOfBounds))

	_, err = reader.U32(0xffffffffffffffff)
	expect.True(t, errors.Is(err, elf.ErrOutOfBounds))

	str, err := reader.CString(4)
	expect.Nil(t, err)
	expect.Equal(t, "hi", str)

	_, err = reader.CString(11)
	expect.True(t, errors.Is(err, elf.ErrOutOfBounds))

	value, n, err := reader.ULEB128(8)
	expect.Nil(t, err)
	expect.Equal(t, uint64(624485), value)
	expect.Equal(t, 3, n)

	_, _, err = elf.NewReader(nil, []byte{0x80, 0x80}).ULEB128(0)
	expect.True(t, errors.Is(err, elf.ErrOutOfBounds))
}

func (s ElfSuite) TestNoteSection(t *testing.T) {
	note := []byte{}
	note = binary.LittleEndian.AppendUint32(note, 4) // name size
	note = binary.LittleEndian.AppendUint32(note, 4) // desc size
	note = binary.LittleEndian.AppendUint32(note, elf.NoteTypeGNUBuildId)
	note = append(note, 'G', 'N', 'U', 0)
	note = append(note, 0xde, 0xad, 0xbe, 0xef)

	builder := s.newBuilder(elf.Class64, binary.LittleEndian)
	builder.AddSection(
		elftest.Section{
			Name:    ".note.gnu.build-id",
			Type:    elf.SectionTypeNote,
			Flags:   elf.SectionOccupiesMemory,
			Content: note,
		})

	file, err := elf.ParseBytes(builder.Build())
	expect.Nil(t, err)

	section, ok := file.GetSection(".note.gnu.build-id").(*elf.NoteSection)
	expect.True(t, ok)
	expect.Equal(t, 1, len(section.Entries))

	id, ok := section.BuildId()
	expect.True(t, ok)
	expect.Equal(t, "deadbeef", id)
}

func (ElfSuite) TestARMAttributes(t *testing.T) {
	tags := append(
		elftest.CortexMTags(),
		elf.ARMTagConformance, '2', '.', '0', '9', 0)

	builder := elftest.NewBuilder(
		elf.Class32,
		binary.LittleEndian,
		elf.MachineArchitectureARM)
	builder.Flags = 0x05000400
	builder.AddARMAttributes(tags)

	file := builder.Parse()
	expect.Equal(t, uint32(5), file.ARMEABIVersion())
	expect.Equal(t, "hard", file.ARMFloatABI())

	attrs, err := elf.ParseARMAttributes(file)
	expect.Nil(t, err)
	expect.NotNil(t, attrs)
	expect.Equal(t, "cortex-m4", attrs.CPUName)
	expect.Equal(t, "v7E-M", attrs.CPUArchName())
	expect.True(t, attrs.IsMicrocontroller())
	expect.Equal(t, "VFPv4-D16", attrs.FPArchName())
	expect.Equal(t, "hard", attrs.FloatCallingConvention())
	expect.Equal(t, "2.09", attrs.Strings[elf.ARMTagConformance])
}

func (s ElfSuite) TestMissingARMAttributes(t *testing.T) {
	file := s.newBuilder(elf.Class32, binary.LittleEndian).Parse()

	attrs, err := elf.ParseARMAttributes(file)
	expect.Nil(t, err)
	expect.True(t, attrs == nil)
	expect.Equal(t, "", file.ARMFloatABI())
}
