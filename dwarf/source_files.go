package dwarf

import (
	"fmt"
	"sort"

	"github.com/pattyshack/elfscope/elf"
)

type sourceRange struct {
	AddressRange
	path string
}

type sourceRanges []sourceRange

func (ranges sourceRanges) sort() {
	sort.SliceStable(
		ranges,
		func(i int, j int) bool { return ranges[i].Low < ranges[j].Low })
}

func (ranges sourceRanges) find(address elf.FileAddress) (string, bool) {
	// first range starting after the address.
	idx := sort.Search(
		len(ranges),
		func(i int) bool { return ranges[i].Low > address })

	// NOTE: ranges may nest / overlap (e.g., compile unit ranges), so scan
	// backward for the closest containing range.
	for idx--; idx >= 0; idx-- {
		if ranges[idx].Contains(address) {
			return ranges[idx].path, true
		}
	}

	return "", false
}

// SourceMap maps code addresses to the source file of the compile unit
// which defines them.  Function (DW_TAG_subprogram) ranges take precedence
// over compile unit ranges.
type SourceMap struct {
	functions sourceRanges
	units     sourceRanges

	Diagnostics []error
}

// SourceFiles builds the source map from the elf file's debug information.
func SourceFiles(elfFile *elf.File) (*SourceMap, error) {
	file, err := NewFile(elfFile)
	if err != nil {
		return nil, err
	}

	return NewSourceMap(file), nil
}

func NewSourceMap(file *File) *SourceMap {
	sourceMap := &SourceMap{
		Diagnostics: append([]error{}, file.UnitDiagnostics()...),
	}

	for _, unit := range file.CompileUnits {
		err := sourceMap.addUnit(unit)
		if err != nil {
			sourceMap.Diagnostics = append(
				sourceMap.Diagnostics,
				fmt.Errorf(
					"skipped .debug_info unit at %d source ranges: %w",
					unit.Start,
					err))
		}
	}

	sourceMap.functions.sort()
	sourceMap.units.sort()

	return sourceMap
}

func (sourceMap *SourceMap) addUnit(unit *CompileUnit) error {
	root, err := unit.Root()
	if err != nil {
		return err
	}

	path, ok := unit.SourcePath()
	if !ok {
		return nil
	}

	unitRanges, err := root.AddressRanges()
	if err != nil {
		return err
	}

	functions := sourceRanges{}
	err = unit.ForEach(
		func(entry *DebugInfoEntry) error {
			if entry.Tag != DW_TAG_subprogram {
				return nil
			}

			ranges, err := entry.AddressRanges()
			if err != nil {
				return err
			}

			for _, addrRange := range ranges {
				if addrRange.Low >= addrRange.High {
					continue
				}
				functions = append(functions, sourceRange{addrRange, path})
			}
			return nil
		})
	if err != nil {
		return err
	}

	for _, addrRange := range unitRanges {
		if addrRange.Low >= addrRange.High {
			continue
		}
		sourceMap.units = append(sourceMap.units, sourceRange{addrRange, path})
	}
	sourceMap.functions = append(sourceMap.functions, functions...)

	return nil
}

func (sourceMap *SourceMap) Len() int {
	return len(sourceMap.functions) + len(sourceMap.units)
}

// SourceFileAt returns the source file containing the address.
func (sourceMap *SourceMap) SourceFileAt(address uint64) (string, bool) {
	path, ok := sourceMap.functions.find(elf.FileAddress(address))
	if ok {
		return path, true
	}

	return sourceMap.units.find(elf.FileAddress(address))
}
