// Package analysis aggregates a file's symbols, strings and debug info into
// memory usage, symbol usage and report queries.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pattyshack/elfscope/config"
	"github.com/pattyshack/elfscope/disasm"
	"github.com/pattyshack/elfscope/dwarf"
	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/strscan"
	"github.com/pattyshack/elfscope/symtab"
)

var (
	ErrComponentNotFound = fmt.Errorf("component not found")
)

const (
	textSectionName = ".text"
	dataSectionName = ".data"
	bssSectionName  = ".bss"
)

// Analyzer holds the extracted views of one immutable file.  Queries are
// safe for concurrent use.
type Analyzer struct {
	File   *elf.File
	Config *config.Config

	Symbols   *symtab.Table
	Strings   []strscan.Match // length ascending, ties in scan order
	Producers []dwarf.Producer
	Sources   *dwarf.SourceMap // nil when the file has no debug info

	// Problems recovered during extraction.
	Diagnostics []error

	allocators nameSet
	softFloat  nameSet

	disassembler *disasm.Disassembler
	logger       *slog.Logger
}

// New extracts the file's symbols, strings and debug info concurrently.
// Missing optional sections produce empty views.  A nil config uses
// config.Default() and a nil logger discards.
func New(
	file *elf.File,
	cfg *config.Config,
	logger *slog.Logger,
) (
	*Analyzer,
	error,
) {
	if cfg == nil {
		cfg = config.Default()
	}
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	analyzer := &Analyzer{
		File:       file,
		Config:     cfg,
		allocators: newNameSet(allocatorNames, cfg.ExtraAllocators),
		softFloat:  newNameSet(softFloatNames, cfg.ExtraSoftFloat),
		logger:     logger,
	}

	var symbolDiagnostics []error
	var debugDiagnostics []error

	group := &errgroup.Group{}
	group.Go(func() error {
		table, err := symtab.Extract(file)
		if err != nil {
			if !errors.Is(err, elf.ErrSectionNotFound) {
				return fmt.Errorf("failed to extract symbols: %w", err)
			}

			logger.Debug("no symbol table", "error", err)
			symbolDiagnostics = append(symbolDiagnostics, err)
			table = symtab.Empty(file)
		}

		analyzer.Symbols = table
		return nil
	})

	group.Go(func() error {
		analyzer.Strings = strscan.Extract(file, cfg.MinStringLength)
		return nil
	})

	group.Go(func() error {
		debugFile, err := dwarf.NewFile(file)
		if err != nil {
			if !errors.Is(err, elf.ErrSectionNotFound) {
				debugDiagnostics = append(debugDiagnostics, err)
				logger.Warn("failed to load debug info", "error", err)
			} else {
				logger.Debug("no debug info", "error", err)
			}
			return nil
		}

		producers, errs := debugFile.Producers()
		analyzer.Producers = producers

		analyzer.Sources = dwarf.NewSourceMap(debugFile)
		debugDiagnostics = append(debugDiagnostics, errs...)
		// Unit split problems are already reported by the producer scan.
		debugDiagnostics = append(
			debugDiagnostics,
			analyzer.Sources.Diagnostics[len(debugFile.UnitDiagnostics()):]...)

		for _, err := range debugDiagnostics {
			logger.Warn("recovered debug info problem", "error", err)
		}
		return nil
	})

	err = group.Wait()
	if err != nil {
		return nil, err
	}

	if analyzer.Sources != nil && analyzer.Sources.Len() > 0 {
		analyzer.Symbols.AttributeSources(analyzer.Sources)
	}

	for _, err := range file.Diagnostics {
		logger.Warn("recovered elf problem", "error", err)
	}

	analyzer.Diagnostics = append(analyzer.Diagnostics, file.Diagnostics...)
	analyzer.Diagnostics = append(analyzer.Diagnostics, symbolDiagnostics...)
	analyzer.Diagnostics = append(analyzer.Diagnostics, debugDiagnostics...)

	analyzer.disassembler = disasm.New(file, analyzer.Symbols)

	logger.Debug(
		"analyzed file",
		"machine", file.MachineArchitecture.String(),
		"sections", len(file.Sections),
		"symbols", len(analyzer.Symbols.Symbols),
		"strings", len(analyzer.Strings),
		"producers", len(analyzer.Producers))

	return analyzer, nil
}

type SectionSize struct {
	Index   elf.SectionIndex
	Name    string
	Type    elf.SectionType
	Flags   elf.SectionFlags
	Address uint64
	Size    uint64
}

type MemoryUsage struct {
	Text uint64
	Data uint64
	BSS  uint64

	Flash uint64 // text + data
	RAM   uint64 // bss + data (.data's runtime copy)

	Sections []SectionSize // every non-null section, in header order
}

func (analyzer *Analyzer) sectionSize(name string) uint64 {
	section := analyzer.File.GetSection(name)
	if section == nil {
		analyzer.logger.Debug("section not found", "section", name)
		return 0
	}
	return section.Header().Size
}

func (analyzer *Analyzer) MemoryUsage() MemoryUsage {
	usage := MemoryUsage{
		Text: analyzer.sectionSize(textSectionName),
		Data: analyzer.sectionSize(dataSectionName),
		BSS:  analyzer.sectionSize(bssSectionName),
	}
	usage.Flash = usage.Text + usage.Data
	usage.RAM = usage.BSS + usage.Data

	for _, section := range analyzer.File.Sections {
		header := section.Header()
		if header.SectionType == elf.SectionTypeNull {
			continue
		}

		usage.Sections = append(
			usage.Sections,
			SectionSize{
				Index:   section.Index(),
				Name:    section.Name(),
				Type:    header.SectionType,
				Flags:   header.SectionFlags,
				Address: header.Address,
				Size:    header.Size,
			})
	}

	return usage
}

func matchesComponent(path string, name string) bool {
	if path == "" || name == "" {
		return false
	}

	if path == name || strings.HasSuffix(path, "/"+name) {
		return true
	}

	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) == name
}

// ComponentSize sums the sizes of defined functions attributed to the named
// source file.  name matches the full path, a path suffix (e.g., "led.c" or
// "src/led.c"), or the file name without extension.
func (analyzer *Analyzer) ComponentSize(name string) (uint64, error) {
	total := uint64(0)
	found := false
	for _, symbol := range analyzer.Symbols.Ordered() {
		if !symbol.IsFunction() || !symbol.IsDefined() {
			continue
		}

		if !matchesComponent(symbol.SourceFile, name) {
			continue
		}

		found = true
		total += symbol.Size
	}

	if !found {
		return 0, fmt.Errorf("%w: %s", ErrComponentNotFound, name)
	}

	return total, nil
}

func (analyzer *Analyzer) scanNames(
	set nameSet,
	accept func(*symtab.Symbol) bool,
) []string {
	seen := map[string]struct{}{}
	result := []string{}
	for _, symbol := range analyzer.Symbols.Ordered() {
		if !symbol.IsDefined() || !accept(symbol) {
			continue
		}

		if !set.contains(symbol.Name) {
			continue
		}

		_, ok := seen[symbol.Name]
		if ok {
			continue
		}
		seen[symbol.Name] = struct{}{}
		result = append(result, symbol.Name)
	}

	sort.Strings(result)
	return result
}

// DynamicMemoryUsage returns the sorted well-known allocator names defined
// as functions.
func (analyzer *Analyzer) DynamicMemoryUsage() []string {
	return analyzer.scanNames(
		analyzer.allocators,
		func(symbol *symtab.Symbol) bool { return symbol.IsFunction() })
}

// SoftwareFloatUsage returns the sorted well-known soft-float helper names
// defined in the file.
func (analyzer *Analyzer) SoftwareFloatUsage() []string {
	return analyzer.scanNames(
		analyzer.softFloat,
		func(symbol *symtab.Symbol) bool {
			return symbol.Type() != elf.SymbolTypeSection &&
				symbol.Type() != elf.SymbolTypeSourceFile
		})
}

// Disassemble disassembles the named function.
func (analyzer *Analyzer) Disassemble(name string) ([]disasm.Instruction, error) {
	return analyzer.disassembler.Function(name)
}

// BuildFlags returns the first C and C++ producer strings.
func (analyzer *Analyzer) BuildFlags() BuildFlags {
	flags := BuildFlags{}
	for _, producer := range analyzer.Producers {
		if flags.C == "" && producer.Matches(dwarf.DW_LANG_C) {
			flags.C = producer.Producer
		}
		if flags.CPlusPlus == "" && producer.Matches(dwarf.DW_LANG_C_plus_plus) {
			flags.CPlusPlus = producer.Producer
		}
	}
	return flags
}
