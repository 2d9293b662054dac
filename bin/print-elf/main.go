package main

import (
	"fmt"
	"os"

	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/symtab"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("USAGE: print-elf <file>")
		os.Exit(1)
	}

	mapped, err := elf.Open(os.Args[1])
	if err != nil {
		panic(err)
	}
	defer mapped.Close()

	file := mapped.File

	fmt.Printf("Header: %v\n", file.ElfHeader)
	fmt.Printf(
		"  %s %s %s %s entry=%#x flags=%#x\n",
		file.Class,
		file.DataEncoding,
		file.FileType,
		file.MachineArchitecture,
		file.EntryPointAddress,
		file.ArchitectureFlags)

	fmt.Println("Sections:", len(file.Sections))
	for _, section := range file.Sections {
		header := section.Header()
		fmt.Printf(
			"  [%2d] %-20s %-14s %-8s addr=%#08x off=%#06x size=%#06x link=%d info=%d\n",
			section.Index(),
			section.Name(),
			header.SectionType,
			header.SectionFlags,
			header.Address,
			header.Offset,
			header.Size,
			header.Link,
			header.Info)

		switch s := section.(type) {
		case *elf.StringTableSection:
			fmt.Printf("       Number of string entries: %d\n", s.NumEntries())
		case *elf.NoteSection:
			for noteIdx, entry := range s.Entries {
				fmt.Printf(
					"       %d: Name = %s Type = %d Description length = %d\n",
					noteIdx,
					entry.Name,
					entry.Type,
					len(entry.Description))
			}
		}
	}

	fmt.Println("Program headers:", len(file.ProgramHeaders))
	for headerIdx, header := range file.ProgramHeaders {
		fmt.Printf("  [%d] %v\n", headerIdx, header)
	}

	table, err := symtab.Extract(file)
	if err != nil {
		fmt.Println("Symbols:", err)
	} else {
		fmt.Printf(
			"Symbols (%s, size ascending): %d\n",
			table.Section.Name(),
			len(table.Symbols))
		for _, symbol := range table.Symbols {
			fmt.Printf(
				"  %08x %6d %c %-8s %-6s %-8s %s\n",
				symbol.Address,
				symbol.Size,
				symbol.Letter(),
				symbol.Type(),
				symbol.Binding(),
				symbol.SymbolVisibility,
				symbol.PrettyName())
		}
	}

	if file.MachineArchitecture == elf.MachineArchitectureARM {
		fmt.Printf(
			"ARM: EABI version %d, float abi %q\n",
			file.ARMEABIVersion(),
			file.ARMFloatABI())

		attrs, err := elf.ParseARMAttributes(file)
		if err != nil {
			fmt.Println("  attributes:", err)
		} else if attrs != nil {
			fmt.Printf(
				"  cpu=%s arch=%s profile=%q fp=%s vfp args=%s\n",
				attrs.CPUName,
				attrs.CPUArchName(),
				attrs.CPUArchProfile,
				attrs.FPArchName(),
				attrs.FloatCallingConvention())
		}
	}

	if len(file.Diagnostics) > 0 {
		fmt.Println("Diagnostics:", len(file.Diagnostics))
		for _, err := range file.Diagnostics {
			fmt.Println(" ", err)
		}
	}
}
