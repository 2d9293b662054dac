package dwarf_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/pattyshack/gt/testing/suite"

	"github.com/pattyshack/elfscope/dwarf"
	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/elf/elftest"
)

const (
	gccCProducer   = "GNU C17 12.2.1 -mcpu=cortex-m4 -mthumb -O2"
	gccCXXProducer = "GNU C++17 12.2.1 -mcpu=cortex-m4 -mthumb -Os"
	clangProducer  = "clang version 17.0.6 (https://github.com/llvm/llvm-project)"
)

type DwarfSuite struct{}

func TestDwarf(t *testing.T) {
	suite.RunTests(t, &DwarfSuite{})
}

func (DwarfSuite) build(
	class elf.Class,
	order binary.AppendByteOrder,
	units ...elftest.DWARFUnit,
) *elf.File {
	builder := elftest.NewBuilder(class, order, elf.MachineArchitectureARM)
	builder.AddSection(
		elftest.Section{
			Name:    ".text",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Address: 0x1000,
			Content: make([]byte, 0x200),
		})
	builder.AddDWARF(units...)

	return builder.Parse()
}

func (s DwarfSuite) TestProducerInlineString(t *testing.T) {
	file := s.build(
		elf.Class64,
		binary.LittleEndian,
		elftest.DWARFUnit{
			Producer: gccCProducer,
			Language: dwarf.DW_LANG_C11,
			Name:     "main.c",
			CompDir:  "/work",
		})

	producer, ok := dwarf.FindProducer(file, dwarf.DW_LANG_C)
	expect.True(t, ok)
	expect.Equal(t, gccCProducer, producer)

	_, ok = dwarf.FindProducer(file, dwarf.DW_LANG_C_plus_plus)
	expect.False(t, ok)

	producers, diagnostics := dwarf.ScanProducers(file)
	expect.Equal(t, 0, len(diagnostics))
	expect.Equal(t, 1, len(producers))
	expect.Equal(t, "main.c", producers[0].Name)
	expect.True(t, producers[0].HasLanguage)
	expect.Equal(t, dwarf.DW_LANG_C11, producers[0].Language)
}

func (s DwarfSuite) TestProducerFirstMatchingUnit(t *testing.T) {
	file := s.build(
		elf.Class32,
		binary.LittleEndian,
		elftest.DWARFUnit{
			Producer: gccCProducer,
			Language: dwarf.DW_LANG_C11,
			Name:     "startup.c",
		},
		elftest.DWARFUnit{
			Producer:   gccCXXProducer,
			Language:   dwarf.DW_LANG_C_plus_plus_14,
			Name:       "main.cpp",
			StringForm: elftest.StringFormStrp,
		},
		elftest.DWARFUnit{
			Producer: "GNU C++17 13.1.0",
			Language: dwarf.DW_LANG_C_plus_plus_14,
			Name:     "other.cpp",
		})

	producer, ok := dwarf.FindProducer(file, dwarf.DW_LANG_C_plus_plus)
	expect.True(t, ok)
	expect.Equal(t, gccCXXProducer, producer)

	producer, ok = dwarf.FindProducer(file, dwarf.DW_LANG_C)
	expect.True(t, ok)
	expect.Equal(t, gccCProducer, producer)
}

func (s DwarfSuite) TestProducerClang(t *testing.T) {
	file := s.build(
		elf.Class64,
		binary.LittleEndian,
		elftest.DWARFUnit{
			Producer: clangProducer,
			Language: dwarf.DW_LANG_C_plus_plus_14,
			Name:     "main.cpp",
		})

	producer, ok := dwarf.FindProducer(file, dwarf.DW_LANG_C_plus_plus)
	expect.True(t, ok)
	expect.Equal(t, clangProducer, producer)

	_, ok = dwarf.FindProducer(file, dwarf.DW_LANG_C)
	expect.False(t, ok)
}

func (DwarfSuite) TestProducerMatches(t *testing.T) {
	c := dwarf.Producer{Producer: "GNU C11 9.2.1"}
	expect.True(t, c.Matches(dwarf.DW_LANG_C))
	expect.False(t, c.Matches(dwarf.DW_LANG_C_plus_plus))

	cxx := dwarf.Producer{Producer: "GNU C++14 9.2.1"}
	expect.False(t, cxx.Matches(dwarf.DW_LANG_C))
	expect.True(t, cxx.Matches(dwarf.DW_LANG_C_plus_plus_11))

	clangC := dwarf.Producer{
		Producer:    "clang version 15.0.0",
		Language:    dwarf.DW_LANG_C99,
		HasLanguage: true,
	}
	expect.True(t, clangC.Matches(dwarf.DW_LANG_C))
	expect.False(t, clangC.Matches(dwarf.DW_LANG_C_plus_plus))

	clangUnknown := dwarf.Producer{Producer: "clang version 15.0.0"}
	expect.False(t, clangUnknown.Matches(dwarf.DW_LANG_C))
	expect.False(t, clangUnknown.Matches(dwarf.DW_LANG_C_plus_plus))

	asm := dwarf.Producer{Producer: "GNU AS 2.40"}
	expect.False(t, asm.Matches(dwarf.DW_LANG_C))
	expect.False(t, asm.Matches(dwarf.DW_LANG_Rust))
}

func (s DwarfSuite) TestProducerDwarf5StringIndex(t *testing.T) {
	file := s.build(
		elf.Class32,
		binary.BigEndian,
		elftest.DWARFUnit{
			Version:    5,
			Is64:       true,
			StringForm: elftest.StringFormStrx,
			Producer:   "clang version 16.0.0",
			Language:   dwarf.DW_LANG_C11,
			Name:       "first.c",
		},
		elftest.DWARFUnit{
			Version:    5,
			StringForm: elftest.StringFormStrx,
			Producer:   gccCXXProducer,
			Language:   dwarf.DW_LANG_C_plus_plus_14,
			Name:       "second.cpp",
		})

	producers, diagnostics := dwarf.ScanProducers(file)
	expect.Equal(t, 0, len(diagnostics))
	expect.Equal(t, 2, len(producers))
	expect.Equal(t, "clang version 16.0.0", producers[0].Producer)
	expect.Equal(t, "first.c", producers[0].Name)
	expect.Equal(t, gccCXXProducer, producers[1].Producer)
	expect.Equal(t, "second.cpp", producers[1].Name)

	producer, ok := dwarf.FindProducer(file, dwarf.DW_LANG_C)
	expect.True(t, ok)
	expect.Equal(t, "clang version 16.0.0", producer)
}

func (s DwarfSuite) TestProducerDwarf5LineString(t *testing.T) {
	file := s.build(
		elf.Class64,
		binary.LittleEndian,
		elftest.DWARFUnit{
			Version:    5,
			StringForm: elftest.StringFormLineStrp,
			Producer:   gccCProducer,
			Language:   dwarf.DW_LANG_C17,
			Name:       "main.c",
		})

	producer, ok := dwarf.FindProducer(file, dwarf.DW_LANG_C)
	expect.True(t, ok)
	expect.Equal(t, gccCProducer, producer)
}

func (s DwarfSuite) TestProducerDwarf2(t *testing.T) {
	file := s.build(
		elf.Class32,
		binary.BigEndian,
		elftest.DWARFUnit{
			Version:    2,
			StringForm: elftest.StringFormStrp,
			Producer:   "GNU C 4.4.7",
			Language:   dwarf.DW_LANG_C89,
			Name:       "legacy.c",
			Low:        0x1000,
			Size:       0x40,
		})

	producer, ok := dwarf.FindProducer(file, dwarf.DW_LANG_C)
	expect.True(t, ok)
	expect.Equal(t, "GNU C 4.4.7", producer)
}

func (s DwarfSuite) TestMalformedUnitSkipped(t *testing.T) {
	file := s.build(
		elf.Class64,
		binary.LittleEndian,
		elftest.DWARFUnit{Malformed: true},
		elftest.DWARFUnit{
			Producer: gccCProducer,
			Language: dwarf.DW_LANG_C11,
			Name:     "main.c",
		})

	producers, diagnostics := dwarf.ScanProducers(file)
	expect.Equal(t, 1, len(producers))
	expect.Equal(t, gccCProducer, producers[0].Producer)
	expect.Equal(t, 1, len(diagnostics))
	expect.Error(t, diagnostics[0], "dwarf version 99 not supported")
	expect.True(t, errors.Is(diagnostics[0], dwarf.ErrMalformedUnit))

	producer, ok := dwarf.FindProducer(file, dwarf.DW_LANG_C)
	expect.True(t, ok)
	expect.Equal(t, gccCProducer, producer)
}

func (s DwarfSuite) TestMissingDebugSections(t *testing.T) {
	file := s.build(elf.Class64, binary.LittleEndian)

	_, ok := dwarf.FindProducer(file, dwarf.DW_LANG_C)
	expect.False(t, ok)

	producers, diagnostics := dwarf.ScanProducers(file)
	expect.Equal(t, 0, len(producers))
	expect.Equal(t, 0, len(diagnostics))

	_, err := dwarf.NewFile(file)
	expect.Error(t, err, ".debug_abbrev")
	expect.True(t, errors.Is(err, elf.ErrSectionNotFound))

	_, err = dwarf.SourceFiles(file)
	expect.True(t, errors.Is(err, elf.ErrSectionNotFound))
}

func (s DwarfSuite) TestDebugInfoEntries(t *testing.T) {
	file := s.build(
		elf.Class64,
		binary.LittleEndian,
		elftest.DWARFUnit{
			Producer: gccCProducer,
			Language: dwarf.DW_LANG_C11,
			Name:     "main.c",
			CompDir:  "/work",
			Low:      0x1000,
			Size:     0x100,
			Functions: []elftest.DWARFFunction{
				{Name: "main", Low: 0x1000, Size: 0x40},
				{Name: "blink", Low: 0x1040, Size: 0x20},
			},
		})

	dwarfFile, err := dwarf.NewFile(file)
	expect.Nil(t, err)
	expect.Equal(t, 1, len(dwarfFile.CompileUnits))

	unit := dwarfFile.CompileUnits[0]
	expect.Equal(t, uint16(4), unit.Version)
	expect.Equal(t, 8, unit.AddressSize)

	root, err := unit.Root()
	expect.Nil(t, err)
	expect.Equal(t, dwarf.DW_TAG_compile_unit, root.Tag)
	expect.Equal(t, 2, len(root.Children))

	name, ok, err := root.Name()
	expect.Nil(t, err)
	expect.True(t, ok)
	expect.Equal(t, "main.c", name)

	path, ok := unit.SourcePath()
	expect.True(t, ok)
	expect.Equal(t, "/work/main.c", path)

	lang, ok := root.Language()
	expect.True(t, ok)
	expect.Equal(t, dwarf.DW_LANG_C11, lang)

	ranges, err := root.AddressRanges()
	expect.Nil(t, err)
	expect.Equal(
		t,
		dwarf.AddressRanges{{Low: 0x1000, High: 0x1100}},
		ranges)

	entries, err := dwarfFile.FunctionEntriesWithName("blink")
	expect.Nil(t, err)
	expect.Equal(t, 1, len(entries))

	entry, err := dwarfFile.FunctionEntryContainingAddress(0x1010)
	expect.Nil(t, err)
	expect.NotNil(t, entry)
	name, _, err = entry.Name()
	expect.Nil(t, err)
	expect.Equal(t, "main", name)

	found, err := dwarfFile.EntryAt(entry.SectionOffset)
	expect.Nil(t, err)
	expect.True(t, found == entry)

	entry, err = dwarfFile.FunctionEntryContainingAddress(0x1080)
	expect.Nil(t, err)
	expect.True(t, entry == nil)

	_, err = dwarfFile.EntryAt(0x7fff)
	expect.Error(t, err, "invalid debug info entry location")
}

func (s DwarfSuite) TestSourceMap(t *testing.T) {
	file := s.build(
		elf.Class32,
		binary.LittleEndian,
		elftest.DWARFUnit{
			Producer:   gccCProducer,
			Language:   dwarf.DW_LANG_C11,
			Name:       "src/led.c",
			CompDir:    "/work",
			StringForm: elftest.StringFormStrp,
			Low:        0x1000,
			Size:       0x80,
			Functions: []elftest.DWARFFunction{
				{Name: "led_on", Low: 0x1000, Size: 0x10},
			},
		},
		elftest.DWARFUnit{
			Version:  3,
			Producer: gccCProducer,
			Language: dwarf.DW_LANG_C11,
			Name:     "/abs/uart.c",
			CompDir:  "/work",
			Low:      0x1080,
			Size:     0x40,
			Functions: []elftest.DWARFFunction{
				{Name: "uart_init", Low: 0x1080, Size: 0x20},
			},
		})

	sourceMap, err := dwarf.SourceFiles(file)
	expect.Nil(t, err)
	expect.Equal(t, 0, len(sourceMap.Diagnostics))
	expect.Equal(t, 4, sourceMap.Len())

	path, ok := sourceMap.SourceFileAt(0x1004)
	expect.True(t, ok)
	expect.Equal(t, "/work/src/led.c", path)

	// Covered by the unit range only.
	path, ok = sourceMap.SourceFileAt(0x1040)
	expect.True(t, ok)
	expect.Equal(t, "/work/src/led.c", path)

	path, ok = sourceMap.SourceFileAt(0x1090)
	expect.True(t, ok)
	expect.Equal(t, "/abs/uart.c", path)

	_, ok = sourceMap.SourceFileAt(0x10c0)
	expect.False(t, ok)

	_, ok = sourceMap.SourceFileAt(0x0fff)
	expect.False(t, ok)
}

func (s DwarfSuite) TestSourceMapDebugRanges(t *testing.T) {
	file := s.build(
		elf.Class64,
		binary.BigEndian,
		elftest.DWARFUnit{
			Producer: gccCProducer,
			Language: dwarf.DW_LANG_C11,
			Name:     "split.c",
			Ranges:   [][2]uint64{{0x1000, 0x1010}, {0x1100, 0x1120}},
		})

	sourceMap, err := dwarf.SourceFiles(file)
	expect.Nil(t, err)

	path, ok := sourceMap.SourceFileAt(0x1108)
	expect.True(t, ok)
	expect.Equal(t, "split.c", path)

	_, ok = sourceMap.SourceFileAt(0x1050)
	expect.False(t, ok)
}

func (s DwarfSuite) TestSourceMapDwarf5(t *testing.T) {
	file := s.build(
		elf.Class64,
		binary.LittleEndian,
		elftest.DWARFUnit{
			Version:         5,
			StringForm:      elftest.StringFormStrx,
			UseAddressIndex: true,
			Producer:        gccCProducer,
			Language:        dwarf.DW_LANG_C11,
			Name:            "timer.c",
			CompDir:         "/work",
			Ranges:          [][2]uint64{{0x1000, 0x1030}, {0x1100, 0x1140}},
			Functions: []elftest.DWARFFunction{
				{Name: "timer_isr", Low: 0x1100, Size: 0x40},
			},
		})

	dwarfFile, err := dwarf.NewFile(file)
	expect.Nil(t, err)

	entries, err := dwarfFile.FunctionEntriesWithName("timer_isr")
	expect.Nil(t, err)
	expect.Equal(t, 1, len(entries))

	ranges, err := entries[0].AddressRanges()
	expect.Nil(t, err)
	expect.Equal(
		t,
		dwarf.AddressRanges{{Low: 0x1100, High: 0x1140}},
		ranges)

	sourceMap := dwarf.NewSourceMap(dwarfFile)
	expect.Equal(t, 0, len(sourceMap.Diagnostics))

	path, ok := sourceMap.SourceFileAt(0x1010)
	expect.True(t, ok)
	expect.Equal(t, "/work/timer.c", path)

	path, ok = sourceMap.SourceFileAt(0x1120)
	expect.True(t, ok)
	expect.Equal(t, "/work/timer.c", path)

	_, ok = sourceMap.SourceFileAt(0x1050)
	expect.False(t, ok)
}
