package analysis

import (
	"encoding/binary"
	"fmt"

	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/symtab"
)

// The analysis mode's distinct report streams.
type ReportKind string

const (
	ReportInfo    = ReportKind("info")
	ReportStrings = ReportKind("strings")
	ReportSymbols = ReportKind("symbols")
	ReportBSS     = ReportKind("bss")
	ReportData    = ReportKind("data")
	ReportText    = ReportKind("text")
)

var ReportKinds = []ReportKind{
	ReportInfo,
	ReportStrings,
	ReportSymbols,
	ReportBSS,
	ReportData,
	ReportText,
}

type HeaderInfo struct {
	Class             string `yaml:"class"`
	DataEncoding      string `yaml:"data_encoding"`
	OSABI             string `yaml:"os_abi"`
	FileType          string `yaml:"file_type"`
	Machine           string `yaml:"machine"`
	Entry             uint64 `yaml:"entry"`
	Flags             uint32 `yaml:"flags"`
	NumSections       int    `yaml:"num_sections"`
	NumProgramHeaders int    `yaml:"num_program_headers"`
}

type SectionRecord struct {
	Index   int    `yaml:"index"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Flags   string `yaml:"flags"`
	Address uint64 `yaml:"address"`
	Size    uint64 `yaml:"size"`
}

type MemoryRecord struct {
	Text     uint64          `yaml:"text"`
	Data     uint64          `yaml:"data"`
	BSS      uint64          `yaml:"bss"`
	Flash    uint64          `yaml:"flash"`
	RAM      uint64          `yaml:"ram"`
	Sections []SectionRecord `yaml:"sections"`
}

type ABIInfo struct {
	Endianness  string `yaml:"endianness"`
	AddressSize int    `yaml:"address_size"`

	// arm only
	EABIVersion      uint32 `yaml:"eabi_version,omitempty"`
	FloatABI         string `yaml:"float_abi,omitempty"`
	CPUName          string `yaml:"cpu_name,omitempty"`
	CPUArch          string `yaml:"cpu_arch,omitempty"`
	CPUProfile       string `yaml:"cpu_profile,omitempty"`
	FPArch           string `yaml:"fp_arch,omitempty"`
	FloatArgsPassing string `yaml:"float_args,omitempty"`
}

type BuildFlags struct {
	C         string `yaml:"c,omitempty"`
	CPlusPlus string `yaml:"cplusplus,omitempty"`
}

type StringRecord struct {
	Offset  uint64 `yaml:"offset"`
	Section string `yaml:"section"`
	Length  int    `yaml:"length"`
	Text    string `yaml:"text"`
}

type SymbolRecord struct {
	Name       string `yaml:"name"`
	Address    uint64 `yaml:"address"`
	Size       uint64 `yaml:"size"`
	Letter     string `yaml:"letter"`
	Kind       string `yaml:"kind"`
	Type       string `yaml:"type"`
	Binding    string `yaml:"binding"`
	Section    string `yaml:"section"`
	SourceFile string `yaml:"source_file,omitempty"`
}

type Report struct {
	Header     HeaderInfo   `yaml:"header"`
	Memory     MemoryRecord `yaml:"memory"`
	ABI        ABIInfo      `yaml:"abi"`
	BuildFlags BuildFlags   `yaml:"build_flags"`

	Strings []StringRecord `yaml:"strings"`

	// Size ascending, ties in symbol table order.
	Symbols []SymbolRecord `yaml:"symbols"`
	BSS     []SymbolRecord `yaml:"bss"`
	Data    []SymbolRecord `yaml:"data"`
	Text    []SymbolRecord `yaml:"text"`

	Diagnostics []string `yaml:"diagnostics,omitempty"`
}

// Section returns the value backing the report stream of the given kind.
func (report *Report) Section(kind ReportKind) (interface{}, error) {
	switch kind {
	case ReportInfo:
		return struct {
			Header      HeaderInfo   `yaml:"header"`
			Memory      MemoryRecord `yaml:"memory"`
			ABI         ABIInfo      `yaml:"abi"`
			BuildFlags  BuildFlags   `yaml:"build_flags"`
			Diagnostics []string     `yaml:"diagnostics,omitempty"`
		}{
			Header:      report.Header,
			Memory:      report.Memory,
			ABI:         report.ABI,
			BuildFlags:  report.BuildFlags,
			Diagnostics: report.Diagnostics,
		}, nil
	case ReportStrings:
		return report.Strings, nil
	case ReportSymbols:
		return report.Symbols, nil
	case ReportBSS:
		return report.BSS, nil
	case ReportData:
		return report.Data, nil
	case ReportText:
		return report.Text, nil
	default:
		return nil, fmt.Errorf("unknown report kind: %s", kind)
	}
}

func (analyzer *Analyzer) headerInfo() HeaderInfo {
	file := analyzer.File
	return HeaderInfo{
		Class:             file.Class.String(),
		DataEncoding:      file.DataEncoding.String(),
		OSABI:             file.OperatingSystemABI.String(),
		FileType:          file.FileType.String(),
		Machine:           file.MachineArchitecture.String(),
		Entry:             file.EntryPointAddress,
		Flags:             file.ArchitectureFlags,
		NumSections:       len(file.Sections),
		NumProgramHeaders: len(file.ProgramHeaders),
	}
}

// ABI summarizes the file's calling convention relevant attributes.
func (analyzer *Analyzer) ABI() ABIInfo {
	file := analyzer.File

	info := ABIInfo{
		Endianness:  "little",
		AddressSize: file.AddressSize(),
	}
	if file.ByteOrder() == binary.BigEndian {
		info.Endianness = "big"
	}

	if file.MachineArchitecture != elf.MachineArchitectureARM {
		return info
	}

	info.EABIVersion = file.ARMEABIVersion()
	info.FloatABI = file.ARMFloatABI()

	attrs, err := elf.ParseARMAttributes(file)
	if err != nil {
		analyzer.logger.Warn("failed to parse arm attributes", "error", err)
		return info
	}
	if attrs == nil {
		return info
	}

	info.CPUName = attrs.CPUName
	info.CPUArch = attrs.CPUArchName()
	if attrs.CPUArchProfile != 0 {
		info.CPUProfile = string(attrs.CPUArchProfile)
	}
	info.FPArch = attrs.FPArchName()
	info.FloatArgsPassing = attrs.FloatCallingConvention()
	if info.FloatABI == "" {
		info.FloatABI = info.FloatArgsPassing
	}

	return info
}

func (analyzer *Analyzer) sectionName(index elf.SectionIndex) string {
	if index.IsReserved() {
		return index.String()
	}

	section, ok := analyzer.File.SectionAt(index)
	if !ok {
		return index.String()
	}
	return section.Name()
}

func (analyzer *Analyzer) symbolRecords(symbols []*symtab.Symbol) []SymbolRecord {
	records := make([]SymbolRecord, 0, len(symbols))
	for _, symbol := range symbols {
		records = append(
			records,
			SymbolRecord{
				Name:       symbol.PrettyName(),
				Address:    symbol.Address,
				Size:       symbol.Size,
				Letter:     string(symbol.Letter()),
				Kind:       symbol.Kind.String(),
				Type:       symbol.Type().String(),
				Binding:    symbol.Binding().String(),
				Section:    analyzer.sectionName(symbol.SectionIndex),
				SourceFile: symbol.SourceFile,
			})
	}
	return records
}

// NamedSymbols returns the size ascending symbols with a name, excluding
// section and file symbols.
func (analyzer *Analyzer) NamedSymbols() []*symtab.Symbol {
	result := []*symtab.Symbol{}
	for _, symbol := range analyzer.Symbols.Symbols {
		switch symbol.Type() {
		case elf.SymbolTypeSection, elf.SymbolTypeSourceFile:
			continue
		}

		if symbol.Name == "" {
			continue
		}
		result = append(result, symbol)
	}
	return result
}

// Report assembles every report stream.
func (analyzer *Analyzer) Report() *Report {
	usage := analyzer.MemoryUsage()
	memory := MemoryRecord{
		Text:     usage.Text,
		Data:     usage.Data,
		BSS:      usage.BSS,
		Flash:    usage.Flash,
		RAM:      usage.RAM,
		Sections: []SectionRecord{},
	}
	for _, section := range usage.Sections {
		memory.Sections = append(
			memory.Sections,
			SectionRecord{
				Index:   int(section.Index),
				Name:    section.Name,
				Type:    section.Type.String(),
				Flags:   section.Flags.String(),
				Address: section.Address,
				Size:    section.Size,
			})
	}

	strs := make([]StringRecord, 0, len(analyzer.Strings))
	for _, match := range analyzer.Strings {
		strs = append(
			strs,
			StringRecord{
				Offset:  match.Offset,
				Section: match.SectionName,
				Length:  match.Length(),
				Text:    match.Text,
			})
	}

	diagnostics := []string{}
	for _, err := range analyzer.Diagnostics {
		diagnostics = append(diagnostics, err.Error())
	}

	return &Report{
		Header:      analyzer.headerInfo(),
		Memory:      memory,
		ABI:         analyzer.ABI(),
		BuildFlags:  analyzer.BuildFlags(),
		Strings:     strs,
		Symbols:     analyzer.symbolRecords(analyzer.NamedSymbols()),
		BSS:         analyzer.symbolRecords(analyzer.Symbols.Named(symtab.KindBSS)),
		Data:        analyzer.symbolRecords(analyzer.Symbols.Named(symtab.KindData)),
		Text:        analyzer.symbolRecords(analyzer.Symbols.Named(symtab.KindText)),
		Diagnostics: diagnostics,
	}
}
