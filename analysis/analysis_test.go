package analysis

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/pattyshack/gt/testing/suite"

	"github.com/pattyshack/elfscope/config"
	"github.com/pattyshack/elfscope/disasm"
	"github.com/pattyshack/elfscope/dwarf"
	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/elf/elftest"
)

const (
	gccCProducer   = "GNU C17 12.2.1 -mcpu=cortex-m4 -mthumb -O2"
	gccCXXProducer = "GNU C++17 12.2.1 -mcpu=cortex-m4 -mthumb -Os"
)

type AnalysisSuite struct{}

func TestAnalysis(t *testing.T) {
	suite.RunTests(t, &AnalysisSuite{})
}

func function(name string, value uint64, size uint64) elftest.Symbol {
	return elftest.Symbol{
		Name:    name,
		Value:   value,
		Size:    size,
		Type:    elf.SymbolTypeFunction,
		Binding: elf.SymbolBindingGlobal,
		Section: ".text",
	}
}

func object(name string, section string, value uint64, size uint64) elftest.Symbol {
	return elftest.Symbol{
		Name:    name,
		Value:   value,
		Size:    size,
		Type:    elf.SymbolTypeObject,
		Binding: elf.SymbolBindingGlobal,
		Section: section,
	}
}

// A cortex-m image with .text 0x100, .data 0x20 and .bss 0x40.
func (AnalysisSuite) firmware(withDebugInfo bool) *elf.File {
	builder := elftest.NewBuilder(
		elf.Class32,
		binary.LittleEndian,
		elf.MachineArchitectureARM)
	builder.Flags = 0x05000400

	text := make([]byte, 0x100)
	for idx := 0; idx < len(text); idx += 2 {
		binary.LittleEndian.PutUint16(text[idx:], 0xbf00) // nop
	}
	binary.LittleEndian.PutUint16(text[0x0e:], 0x4770) // main: bx lr

	builder.AddSection(
		elftest.Section{
			Name:    ".text",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Address: 0x1000,
			Content: text,
		})
	builder.AddSection(
		elftest.Section{
			Name:    ".rodata",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory,
			Address: 0x1100,
			Content: []byte("ABCD\x00ok\x00"),
		})
	builder.AddSection(
		elftest.Section{
			Name:    ".data",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsWritableData,
			Address: 0x20000000,
			Content: make([]byte, 0x20),
		})
	builder.AddSection(
		elftest.Section{
			Name:    ".bss",
			Type:    elf.SectionTypeNoSpace,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsWritableData,
			Address: 0x20000020,
			Size:    0x40,
		})
	builder.AddARMAttributes(elftest.CortexMTags())

	builder.AddSymbol(function("main", 0x1001, 0x10))
	builder.AddSymbol(function("malloc", 0x1011, 0x20))
	builder.AddSymbol(function("free", 0x1031, 0x8))
	builder.AddSymbol(function("__aeabi_fadd", 0x1041, 0x4))
	builder.AddSymbol(function("led_on", 0x1081, 0x10))
	builder.AddSymbol(function("led_off", 0x1091, 0x8))
	builder.AddSymbol(function("uart_init", 0x10c1, 0x20))
	builder.AddSymbol(object("table", ".data", 0x20000000, 0x20))
	builder.AddSymbol(object("counter", ".bss", 0x20000020, 0x4))
	builder.AddSymbol(object("buffer", ".bss", 0x20000024, 0x3c))
	builder.AddSymbol(object("version", ".rodata", 0x1100, 0x5))

	if withDebugInfo {
		builder.AddDWARF(
			elftest.DWARFUnit{
				Producer:   gccCProducer,
				Language:   dwarf.DW_LANG_C11,
				Name:       "src/led.c",
				CompDir:    "/work",
				StringForm: elftest.StringFormStrp,
				Low:        0x1080,
				Size:       0x40,
				Functions: []elftest.DWARFFunction{
					{Name: "led_on", Low: 0x1080, Size: 0x10},
					{Name: "led_off", Low: 0x1090, Size: 0x8},
				},
			},
			elftest.DWARFUnit{
				Producer: gccCXXProducer,
				Language: dwarf.DW_LANG_C_plus_plus_14,
				Name:     "/work/src/uart.cpp",
				Low:      0x10c0,
				Size:     0x40,
				Functions: []elftest.DWARFFunction{
					{Name: "uart_init", Low: 0x10c0, Size: 0x20},
				},
			})
	}

	return builder.Parse()
}

func (s AnalysisSuite) analyze(t *testing.T, file *elf.File) *Analyzer {
	analyzer, err := New(file, nil, nil)
	expect.Nil(t, err)
	expect.NotNil(t, analyzer)
	return analyzer
}

func (s AnalysisSuite) TestMemoryUsage(t *testing.T) {
	analyzer := s.analyze(t, s.firmware(false))

	usage := analyzer.MemoryUsage()
	expect.Equal(t, uint64(0x100), usage.Text)
	expect.Equal(t, uint64(0x20), usage.Data)
	expect.Equal(t, uint64(0x40), usage.BSS)
	expect.Equal(t, uint64(0x120), usage.Flash)
	expect.Equal(t, uint64(0x60), usage.RAM)

	sizes := map[string]uint64{}
	for _, section := range usage.Sections {
		sizes[section.Name] = section.Size
	}
	expect.Equal(t, uint64(0x100), sizes[".text"])
	expect.Equal(t, uint64(8), sizes[".rodata"])
	expect.Equal(t, uint64(0x40), sizes[".bss"])

	_, ok := sizes[""]
	expect.False(t, ok)
}

func (s AnalysisSuite) TestMemoryUsageMissingSections(t *testing.T) {
	builder := elftest.NewBuilder(
		elf.Class64,
		binary.BigEndian,
		elf.MachineArchitectureAArch64)
	builder.AddSection(
		elftest.Section{
			Name:    ".text",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Address: 0x400000,
			Content: make([]byte, 0x30),
		})

	analyzer := s.analyze(t, builder.Parse())

	usage := analyzer.MemoryUsage()
	expect.Equal(t, uint64(0x30), usage.Flash)
	expect.Equal(t, uint64(0), usage.RAM)

	// No symbol table.
	expect.Equal(t, 0, len(analyzer.Symbols.Symbols))
	expect.Equal(t, []string{}, analyzer.DynamicMemoryUsage())

	found := false
	for _, err := range analyzer.Diagnostics {
		if errors.Is(err, elf.ErrSectionNotFound) {
			found = true
		}
	}
	expect.True(t, found)
}

func (s AnalysisSuite) TestNoSections(t *testing.T) {
	builder := elftest.NewBuilder(
		elf.Class32,
		binary.LittleEndian,
		elf.MachineArchitectureAVR)

	analyzer := s.analyze(t, builder.Parse())
	usage := analyzer.MemoryUsage()
	expect.Equal(t, uint64(0), usage.Flash)
	expect.Equal(t, uint64(0), usage.RAM)
	expect.Equal(t, 0, len(analyzer.Strings))
}

func (s AnalysisSuite) TestDynamicMemoryUsage(t *testing.T) {
	analyzer := s.analyze(t, s.firmware(false))
	expect.Equal(t, []string{"free", "malloc"}, analyzer.DynamicMemoryUsage())
}

func (s AnalysisSuite) TestDynamicMemoryUsageCPlusPlus(t *testing.T) {
	builder := elftest.NewBuilder(
		elf.Class64,
		binary.LittleEndian,
		elf.MachineArchitectureX86_64)
	builder.AddSection(
		elftest.Section{
			Name:    ".text",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Address: 0x1000,
			Content: make([]byte, 0x40),
		})
	builder.AddSymbol(function("_Znwm", 0x1000, 0x10))
	builder.AddSymbol(function("_ZdlPvm", 0x1010, 0x10))
	builder.AddSymbol(function("_malloc_r", 0x1020, 0x10))
	builder.AddSymbol(function("pool_alloc", 0x1030, 0x10))
	// undefined reference
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "calloc",
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingGlobal,
		})

	file := builder.Parse()
	analyzer := s.analyze(t, file)
	expect.Equal(
		t,
		[]string{"_ZdlPvm", "_Znwm", "_malloc_r"},
		analyzer.DynamicMemoryUsage())

	cfg := config.Default()
	cfg.ExtraAllocators = []string{"pool_alloc"}
	analyzer, err := New(file, cfg, nil)
	expect.Nil(t, err)
	expect.Equal(
		t,
		[]string{"_ZdlPvm", "_Znwm", "_malloc_r", "pool_alloc"},
		analyzer.DynamicMemoryUsage())
}

func (s AnalysisSuite) TestSoftwareFloatUsage(t *testing.T) {
	file := s.firmware(false)
	analyzer := s.analyze(t, file)
	expect.Equal(t, []string{"__aeabi_fadd"}, analyzer.SoftwareFloatUsage())

	cfg := config.Default()
	cfg.ExtraSoftFloat = []string{"led_on"}
	analyzer, err := New(file, cfg, nil)
	expect.Nil(t, err)
	expect.Equal(
		t,
		[]string{"__aeabi_fadd", "led_on"},
		analyzer.SoftwareFloatUsage())
}

func (s AnalysisSuite) TestComponentSize(t *testing.T) {
	analyzer := s.analyze(t, s.firmware(true))

	for _, name := range []string{"led.c", "src/led.c", "/work/src/led.c", "led"} {
		size, err := analyzer.ComponentSize(name)
		expect.Nil(t, err)
		expect.Equal(t, uint64(0x18), size)
	}

	size, err := analyzer.ComponentSize("uart.cpp")
	expect.Nil(t, err)
	expect.Equal(t, uint64(0x20), size)

	size, err = analyzer.ComponentSize("rc/led.c")
	expect.Error(t, err, "rc/led.c")
	expect.True(t, errors.Is(err, ErrComponentNotFound))
	expect.Equal(t, uint64(0), size)
}

func (s AnalysisSuite) TestComponentSizeWithoutDebugInfo(t *testing.T) {
	analyzer := s.analyze(t, s.firmware(false))
	expect.True(t, analyzer.Sources == nil)

	_, err := analyzer.ComponentSize("led.c")
	expect.True(t, errors.Is(err, ErrComponentNotFound))
}

func (s AnalysisSuite) TestBuildFlags(t *testing.T) {
	analyzer := s.analyze(t, s.firmware(true))

	flags := analyzer.BuildFlags()
	expect.Equal(t, gccCProducer, flags.C)
	expect.Equal(t, gccCXXProducer, flags.CPlusPlus)

	analyzer = s.analyze(t, s.firmware(false))
	expect.Equal(t, BuildFlags{}, analyzer.BuildFlags())
}

func (s AnalysisSuite) TestDisassemble(t *testing.T) {
	analyzer := s.analyze(t, s.firmware(false))

	instructions, err := analyzer.Disassemble("main")
	expect.Nil(t, err)
	expect.Equal(t, 8, len(instructions))
	expect.Equal(t, "nop", instructions[0].Mnemonic)
	expect.Equal(t, "bx lr", instructions[7].Text())

	// Cortex-M files decode thumb even without the symbol's thumb bit.
	instructions, err = disasm.DisassembleRange(analyzer.File, 0x1000, 4)
	expect.Nil(t, err)
	expect.Equal(t, 2, len(instructions))
	expect.Equal(t, "nop", instructions[1].Mnemonic)

	instructions, err = analyzer.Disassemble("nonexistent_fn")
	expect.True(t, errors.Is(err, disasm.ErrFunctionNotFound))
	expect.Equal(t, 0, len(instructions))
}

func (s AnalysisSuite) TestReport(t *testing.T) {
	analyzer := s.analyze(t, s.firmware(true))
	report := analyzer.Report()

	expect.Equal(t, "ELF32", report.Header.Class)
	expect.Equal(t, uint64(0x120), report.Memory.Flash)
	expect.Equal(t, uint64(0x60), report.Memory.RAM)

	expect.Equal(t, "little", report.ABI.Endianness)
	expect.Equal(t, uint32(5), report.ABI.EABIVersion)
	expect.Equal(t, "hard", report.ABI.FloatABI)
	expect.Equal(t, "cortex-m4", report.ABI.CPUName)
	expect.Equal(t, "M", report.ABI.CPUProfile)

	expect.Equal(t, gccCProducer, report.BuildFlags.C)

	expect.Equal(t, 1, len(report.Strings))
	expect.Equal(t, "ABCD", report.Strings[0].Text)
	expect.Equal(t, ".rodata", report.Strings[0].Section)

	for idx := 1; idx < len(report.Symbols); idx++ {
		expect.True(t, report.Symbols[idx-1].Size <= report.Symbols[idx].Size)
	}

	names := func(records []SymbolRecord) []string {
		result := []string{}
		for _, record := range records {
			result = append(result, record.Name)
		}
		return result
	}

	expect.Equal(t, []string{"counter", "buffer"}, names(report.BSS))
	expect.Equal(t, []string{"table"}, names(report.Data))
	expect.Equal(
		t,
		[]string{
			"__aeabi_fadd",
			"free",
			"led_off",
			"main",
			"led_on",
			"malloc",
			"uart_init",
		},
		names(report.Text))

	expect.Equal(t, "B", report.BSS[0].Letter)
	expect.Equal(t, ".bss", report.BSS[0].Section)
	expect.Equal(t, uint64(0x1080), report.Text[4].Address)
	expect.Equal(t, "/work/src/led.c", report.Text[4].SourceFile)

	section, err := report.Section(ReportBSS)
	expect.Nil(t, err)
	expect.Equal(t, report.BSS, section.([]SymbolRecord))

	_, err = report.Section(ReportKind("bogus"))
	expect.Error(t, err, "unknown report kind")
}

func (s AnalysisSuite) TestMinStringLength(t *testing.T) {
	file := s.firmware(false)

	cfg := config.Default()
	cfg.MinStringLength = 2
	analyzer, err := New(file, cfg, nil)
	expect.Nil(t, err)

	texts := []string{}
	for _, match := range analyzer.Strings {
		texts = append(texts, match.Text)
	}
	expect.Equal(t, []string{"ok", "ABCD"}, texts)

	cfg.MinStringLength = 0
	_, err = New(file, cfg, nil)
	expect.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func (s AnalysisSuite) TestMalformedDebugInfo(t *testing.T) {
	builder := elftest.NewBuilder(
		elf.Class32,
		binary.LittleEndian,
		elf.MachineArchitectureARM)
	builder.AddDWARF(
		elftest.DWARFUnit{Malformed: true},
		elftest.DWARFUnit{
			Producer: gccCProducer,
			Language: dwarf.DW_LANG_C99,
			Name:     "main.c",
		})

	buffer := &bytes.Buffer{}
	logger := slog.New(
		slog.NewTextHandler(buffer, &slog.HandlerOptions{Level: slog.LevelWarn}))

	analyzer, err := New(builder.Parse(), nil, logger)
	expect.Nil(t, err)
	expect.Equal(t, gccCProducer, analyzer.BuildFlags().C)

	found := false
	for _, err := range analyzer.Diagnostics {
		if errors.Is(err, dwarf.ErrMalformedUnit) {
			found = true
		}
	}
	expect.True(t, found)
	expect.True(t, strings.Contains(buffer.String(), "recovered debug info problem"))
}
