package symtab

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/pattyshack/gt/testing/suite"

	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/elf/elftest"
)

type SymtabSuite struct{}

func TestSymtab(t *testing.T) {
	suite.RunTests(t, &SymtabSuite{})
}

func (SymtabSuite) newBuilder(class elf.Class) *elftest.Builder {
	builder := elftest.NewBuilder(
		class,
		binary.LittleEndian,
		elf.MachineArchitectureARM)

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
			Name:    ".rodata",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory,
			Address: 0x1100,
			Content: make([]byte, 0x10),
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
			Name:         "blink.c",
			Type:         elf.SymbolTypeSourceFile,
			Binding:      elf.SymbolBindingLocal,
			SectionIndex: elf.SectionIndexAbsolute,
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "counter",
			Value:   0x2020,
			Size:    4,
			Type:    elf.SymbolTypeObject,
			Binding: elf.SymbolBindingLocal,
			Section: ".bss",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "toggle",
			Value:   0x1001,
			Size:    0x20,
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingLocal,
			Section: ".text",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "main",
			Value:   0x1021,
			Size:    0x40,
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingGlobal,
			Section: ".text",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "_ZN3led3setEb",
			Value:   0x1061,
			Size:    0x20,
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingGlobal,
			Section: ".text",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "handler",
			Value:   0x1081,
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingWeak,
			Section: ".text",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "banner",
			Value:   0x1100,
			Size:    0x10,
			Type:    elf.SymbolTypeObject,
			Binding: elf.SymbolBindingGlobal,
			Section: ".rodata",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "state",
			Value:   0x2000,
			Size:    8,
			Type:    elf.SymbolTypeObject,
			Binding: elf.SymbolBindingGlobal,
			Section: ".data",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "printf",
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingGlobal,
		})
	return builder
}

func names(symbols []*Symbol) []string {
	result := []string{}
	for _, symbol := range symbols {
		result = append(result, symbol.Name)
	}
	return result
}

func (s SymtabSuite) TestExtract(t *testing.T) {
	for _, class := range []elf.Class{elf.Class32, elf.Class64} {
		file := s.newBuilder(class).Parse()

		table, err := Extract(file)
		expect.Nil(t, err)
		expect.Equal(t, 9, len(table.Symbols))
		expect.Equal(t, 9, len(table.Ordered()))

		for idx := 1; idx < len(table.Symbols); idx++ {
			expect.True(
				t,
				table.Symbols[idx-1].Size <= table.Symbols[idx].Size)
		}

		// ties are broken by table order
		expect.Equal(
			t,
			[]string{
				"blink.c",
				"handler",
				"printf",
				"counter",
				"state",
				"banner",
				"toggle",
				"_ZN3led3setEb",
				"main",
			},
			names(table.Symbols))
	}
}

func (s SymtabSuite) TestExtractIsIdempotent(t *testing.T) {
	content := s.newBuilder(elf.Class32).Build()

	file1, err := elf.ParseBytes(content)
	expect.Nil(t, err)
	table1, err := Extract(file1)
	expect.Nil(t, err)

	file2, err := elf.ParseBytes(content)
	expect.Nil(t, err)
	table2, err := Extract(file2)
	expect.Nil(t, err)

	expect.Equal(t, names(table1.Symbols), names(table2.Symbols))
	for idx, symbol := range table1.Symbols {
		expect.Equal(t, symbol.SymbolEntry, table2.Symbols[idx].SymbolEntry)
		expect.Equal(t, symbol.Kind, table2.Symbols[idx].Kind)
	}
}

func (SymtabSuite) TestMissingSymbolTable(t *testing.T) {
	builder := elftest.NewBuilder(
		elf.Class32,
		binary.LittleEndian,
		elf.MachineArchitectureAVR)
	file := builder.Parse()

	_, err := Extract(file)
	expect.True(t, errors.Is(err, elf.ErrSectionNotFound))

	table := Empty(file)
	expect.Equal(t, 0, len(table.Symbols))
	expect.Equal(t, 0, len(table.Lookup("main")))
}

func (s SymtabSuite) TestClassify(t *testing.T) {
	table, err := Extract(s.newBuilder(elf.Class64).Parse())
	expect.Nil(t, err)

	kinds := map[string]Kind{}
	letters := map[string]byte{}
	for _, symbol := range table.Symbols {
		kinds[symbol.Name] = symbol.Kind
		letters[symbol.Name] = symbol.Letter()
	}

	expect.Equal(t, KindBSS, kinds["counter"])
	expect.Equal(t, KindText, kinds["main"])
	expect.Equal(t, KindReadOnly, kinds["banner"])
	expect.Equal(t, KindData, kinds["state"])
	expect.Equal(t, KindUndefined, kinds["printf"])
	expect.Equal(t, KindAbsolute, kinds["blink.c"])

	expect.Equal(t, byte('b'), letters["counter"])
	expect.Equal(t, byte('t'), letters["toggle"])
	expect.Equal(t, byte('T'), letters["main"])
	expect.Equal(t, byte('R'), letters["banner"])
	expect.Equal(t, byte('D'), letters["state"])
	expect.Equal(t, byte('U'), letters["printf"])
	expect.Equal(t, byte('W'), letters["handler"])

	expect.Equal(t, []string{"counter"}, names(table.Named(KindBSS)))
	expect.Equal(t, []string{"state"}, names(table.Named(KindData)))
	expect.Equal(
		t,
		[]string{"handler", "toggle", "_ZN3led3setEb", "main"},
		names(table.Named(KindText)))
}

func (s SymtabSuite) TestLookup(t *testing.T) {
	table, err := Extract(s.newBuilder(elf.Class32).Parse())
	expect.Nil(t, err)

	symbols := table.Lookup("led::set(bool)")
	expect.Equal(t, 1, len(symbols))
	expect.Equal(t, "_ZN3led3setEb", symbols[0].Name)

	symbols = table.Lookup("led::set")
	expect.Equal(t, 1, len(symbols))

	symbols = table.Lookup("_ZN3led3setEb")
	expect.Equal(t, 1, len(symbols))

	expect.Equal(t, 0, len(table.Lookup("Main")))
	expect.Equal(t, 0, len(table.Lookup("")))

	expect.Equal(t, 1, len(table.Functions("main")))
	expect.Equal(t, 0, len(table.Functions("printf")))
	expect.Equal(t, 0, len(table.Functions("state")))

	defined := table.Defined()
	expect.Equal(t, 8, len(defined))
}

func (s SymtabSuite) TestThumbAddress(t *testing.T) {
	table, err := Extract(s.newBuilder(elf.Class32).Parse())
	expect.Nil(t, err)

	main := table.Functions("main")[0]
	expect.True(t, main.IsThumb)
	expect.Equal(t, uint64(0x1020), main.Address)
	expect.Equal(t, uint64(0x1021), main.Value)

	state := table.Lookup("state")[0]
	expect.False(t, state.IsThumb)
	expect.Equal(t, uint64(0x2000), state.Address)
}

func (s SymtabSuite) TestNextBoundary(t *testing.T) {
	table, err := Extract(s.newBuilder(elf.Class32).Parse())
	expect.Nil(t, err)

	toggle := table.Functions("toggle")[0]
	end, ok := table.NextBoundary(toggle)
	expect.True(t, ok)
	expect.Equal(t, uint64(0x1020), end)

	// last symbol in .text extends to the section end
	handler := table.Functions("handler")[0]
	end, ok = table.NextBoundary(handler)
	expect.True(t, ok)
	expect.Equal(t, uint64(0x1100), end)

	printf := table.Lookup("printf")[0]
	_, ok = table.NextBoundary(printf)
	expect.False(t, ok)
}

type fakeResolver map[uint64]string

func (resolver fakeResolver) SourceFileAt(address uint64) (string, bool) {
	path, ok := resolver[address]
	return path, ok
}

func (s SymtabSuite) TestSourceAttribution(t *testing.T) {
	table, err := Extract(s.newBuilder(elf.Class32).Parse())
	expect.Nil(t, err)

	// STT_FILE attribution only applies to local symbols.
	expect.Equal(t, "blink.c", table.Lookup("toggle")[0].SourceFile)
	expect.Equal(t, "blink.c", table.Lookup("counter")[0].SourceFile)
	expect.Equal(t, "", table.Lookup("main")[0].SourceFile)

	table.AttributeSources(
		fakeResolver{
			0x1020: "/src/app/main.cpp",
			0x1060: "/src/app/led.cpp",
		})

	expect.Equal(t, "blink.c", table.Lookup("toggle")[0].SourceFile)
	expect.Equal(t, "/src/app/main.cpp", table.Lookup("main")[0].SourceFile)
	expect.Equal(
		t,
		"/src/app/led.cpp",
		table.Lookup("led::set")[0].SourceFile)
	expect.Equal(t, "", table.Lookup("printf")[0].SourceFile)
}

func (s SymtabSuite) TestRelocatableSourceAttribution(t *testing.T) {
	builder := s.newBuilder(elf.Class32)
	builder.FileType = elf.FileTypeRelocatable

	table, err := Extract(builder.Parse())
	expect.Nil(t, err)

	table.AttributeSources(
		fakeResolver{
			0x1020: "/src/app/main.cpp",
			0x1060: "/src/app/led.cpp",
		})

	expect.Equal(t, "blink.c", table.Lookup("toggle")[0].SourceFile)
	expect.Equal(t, "", table.Lookup("main")[0].SourceFile)
	expect.Equal(t, "", table.Lookup("led::set")[0].SourceFile)
}
