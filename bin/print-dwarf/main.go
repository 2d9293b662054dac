package main

import (
	"fmt"
	"os"

	"github.com/pattyshack/elfscope/dwarf"
	"github.com/pattyshack/elfscope/elf"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("USAGE: print-dwarf <file>")
		os.Exit(1)
	}

	mapped, err := elf.Open(os.Args[1])
	if err != nil {
		panic(err)
	}
	defer mapped.Close()

	file, err := dwarf.NewFile(mapped.File)
	if err != nil {
		panic(err)
	}

	if file.Strings != nil {
		entries, err := file.Strings.StringEntries()
		if err != nil {
			panic(err)
		}

		fmt.Println(".debug_str:")
		for idx, value := range entries {
			fmt.Printf("  %d: %s\n", idx, value)
		}
	}

	fmt.Println(".debug_info:")
	for _, unit := range file.CompileUnits {
		format := "32-bit"
		if unit.Is64 {
			format = "64-bit"
		}

		fmt.Printf(
			"  CompileUnit: Start = %d End = %d Version = %d (%s) AddressSize = %d\n",
			unit.Start,
			unit.End,
			unit.Version,
			format,
			unit.AddressSize)

		table, err := file.AbbreviationTableAt(unit.AbbreviationIndex)
		if err != nil {
			fmt.Println("    abbreviations:", err)
			continue
		}

		fmt.Printf("    abbreviations (%d):\n", unit.AbbreviationIndex)
		for _, code := range table.Codes() {
			abbrev := table[code]
			fmt.Printf(
				"      Code: %d\tHasChildren: %v\tTag: %s\n",
				abbrev.Code,
				abbrev.HasChildren,
				abbrev.Tag)
			for _, spec := range abbrev.AttributeSpecs {
				fmt.Printf(
					"        Attribute: %s\tFormat: %s\n",
					spec.Attribute,
					spec.Format)
			}
		}

		entries, err := unit.DebugInfoEntries()
		if err != nil {
			fmt.Println("    entries:", err)
			continue
		}

		path, ok := unit.SourcePath()
		if ok {
			fmt.Printf("    Source: %s (%d entries)\n", path, len(entries))
		}

		root, err := unit.Root()
		if err != nil {
			panic(err)
		}

		printDebugInfoEntry(root, 0)
	}

	for _, err := range file.UnitDiagnostics() {
		fmt.Println("skipped:", err)
	}

	producers, _ := file.Producers()
	fmt.Println("Producers:", len(producers))
	for _, producer := range producers {
		fmt.Printf("  %d: %s (%s)\n", producer.UnitOffset, producer.Producer, producer.Name)
	}
}

func printDebugInfoEntry(entry *dwarf.DebugInfoEntry, level int) {
	indent := ""
	for i := 0; i < level; i++ {
		indent += "| "
	}

	name, found, err := entry.Name()
	if err != nil {
		name = fmt.Sprintf(" (%s)", err)
	} else if found {
		name = " (" + name + ")"
	}

	fmt.Printf("    %s%08x: %s%s\n", indent, entry.SectionOffset, entry.Tag, name)
	for idx, spec := range entry.AttributeSpecs {
		fmt.Printf(
			"    %s    %s (%s):\t%v\n",
			indent,
			spec.Attribute,
			spec.Format,
			entry.Values[idx])
	}

	ranges, err := entry.AddressRanges()
	if err == nil && len(ranges) > 0 {
		fmt.Printf("    %s    ranges: %v\n", indent, ranges)
	}

	for _, child := range entry.Children {
		printDebugInfoEntry(child, level+1)
	}
}
