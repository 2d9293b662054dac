package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pattyshack/elfscope/analysis"
)

func writeTextReport(
	output io.Writer,
	report *analysis.Report,
	kind analysis.ReportKind,
) error {
	switch kind {
	case analysis.ReportInfo:
		writeInfo(output, report)
	case analysis.ReportStrings:
		writeStrings(output, report.Strings)
	case analysis.ReportSymbols:
		writeSymbols(output, "Symbols", report.Symbols)
	case analysis.ReportBSS:
		writeSymbols(output, "BSS", report.BSS)
	case analysis.ReportData:
		writeSymbols(output, "Data", report.Data)
	case analysis.ReportText:
		writeSymbols(output, "Text", report.Text)
	default:
		return fmt.Errorf("unknown report kind: %s", kind)
	}
	return nil
}

func writeInfo(output io.Writer, report *analysis.Report) {
	header := report.Header
	fmt.Fprintln(output, "Header:")
	fmt.Fprintf(output, "  Class:           %s\n", header.Class)
	fmt.Fprintf(output, "  Data:            %s\n", header.DataEncoding)
	fmt.Fprintf(output, "  OS/ABI:          %s\n", header.OSABI)
	fmt.Fprintf(output, "  Type:            %s\n", header.FileType)
	fmt.Fprintf(output, "  Machine:         %s\n", header.Machine)
	fmt.Fprintf(output, "  Entry:           %#x\n", header.Entry)
	fmt.Fprintf(output, "  Flags:           %#x\n", header.Flags)
	fmt.Fprintf(output, "  Sections:        %d\n", header.NumSections)
	fmt.Fprintf(output, "  Program headers: %d\n", header.NumProgramHeaders)

	abi := report.ABI
	fmt.Fprintln(output, "ABI:")
	fmt.Fprintf(output, "  Endianness:      %s\n", abi.Endianness)
	fmt.Fprintf(output, "  Address size:    %d\n", abi.AddressSize)
	if abi.EABIVersion != 0 || abi.CPUName != "" || abi.CPUArch != "" {
		fmt.Fprintf(output, "  EABI version:    %d\n", abi.EABIVersion)
		fmt.Fprintf(output, "  Float ABI:       %s\n", abi.FloatABI)
		fmt.Fprintf(output, "  CPU:             %s\n", abi.CPUName)
		fmt.Fprintf(output, "  CPU arch:        %s\n", abi.CPUArch)
		fmt.Fprintf(output, "  CPU profile:     %s\n", abi.CPUProfile)
		fmt.Fprintf(output, "  FP arch:         %s\n", abi.FPArch)
		fmt.Fprintf(output, "  Float args:      %s\n", abi.FloatArgsPassing)
	}

	memory := report.Memory
	fmt.Fprintln(output, "Memory:")
	fmt.Fprintf(output, "  FLASH: %8d (text %d + data %d)\n",
		memory.Flash, memory.Text, memory.Data)
	fmt.Fprintf(output, "  RAM:   %8d (bss %d + data %d)\n",
		memory.RAM, memory.BSS, memory.Data)

	fmt.Fprintln(output, "Sections:")
	for _, section := range memory.Sections {
		fmt.Fprintf(
			output,
			"  [%2d] %-20s %-14s %-8s %#010x %8d\n",
			section.Index,
			section.Name,
			section.Type,
			section.Flags,
			section.Address,
			section.Size)
	}

	fmt.Fprintln(output, "Build flags:")
	fmt.Fprintf(output, "  C:   %s\n", report.BuildFlags.C)
	fmt.Fprintf(output, "  C++: %s\n", report.BuildFlags.CPlusPlus)

	if len(report.Diagnostics) > 0 {
		fmt.Fprintln(output, "Diagnostics:")
		for _, diagnostic := range report.Diagnostics {
			fmt.Fprintln(output, " ", diagnostic)
		}
	}
}

func writeStrings(output io.Writer, records []analysis.StringRecord) {
	fmt.Fprintf(output, "Strings: %d\n", len(records))
	for _, record := range records {
		fmt.Fprintf(
			output,
			"  %-12s %#08x %5d %s\n",
			record.Section,
			record.Offset,
			record.Length,
			strconv.Quote(record.Text))
	}
}

func writeSymbols(
	output io.Writer,
	title string,
	records []analysis.SymbolRecord,
) {
	total := uint64(0)
	for _, record := range records {
		total += record.Size
	}

	fmt.Fprintf(output, "%s: %d (total size %d)\n", title, len(records), total)
	for _, record := range records {
		source := ""
		if record.SourceFile != "" {
			source = "  [" + record.SourceFile + "]"
		}

		fmt.Fprintf(
			output,
			"  %08x %8d %s %-8s %-6s %-12s %s%s\n",
			record.Address,
			record.Size,
			record.Letter,
			record.Type,
			record.Binding,
			record.Section,
			record.Name,
			source)
	}
}
