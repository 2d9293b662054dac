package dwarf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pattyshack/elfscope/elf"
)

// Root entry attributes decoded by scanRoot.  Everything else is skipped.
var producerScanAttributes = map[Attribute]struct{}{
	DW_AT_producer:         {},
	DW_AT_language:         {},
	DW_AT_name:             {},
	DW_AT_str_offsets_base: {},
}

// Producer is a compile unit's toolchain identification.
type Producer struct {
	UnitOffset SectionOffset

	Producer    string
	Language    Language
	HasLanguage bool

	// The unit's DW_AT_name, if any.
	Name string
}

// Matches reports whether the producer follows the naming convention of
// the given language's compilers.  Only C and C++ are recognized.
func (producer Producer) Matches(language Language) bool {
	isClang := strings.Contains(producer.Producer, "clang")

	if language.IsCPlusPlus() {
		if strings.Contains(producer.Producer, "GNU C++") {
			return true
		}
		return isClang && producer.HasLanguage && producer.Language.IsCPlusPlus()
	}

	if language.IsC() {
		if hasGNUCProducer(producer.Producer) {
			return true
		}
		return isClang && producer.HasLanguage && producer.Language.IsC()
	}

	return false
}

func hasGNUCProducer(producer string) bool {
	const prefix = "GNU C"
	for {
		idx := strings.Index(producer, prefix)
		if idx == -1 {
			return false
		}

		producer = producer[idx+len(prefix):]
		if !strings.HasPrefix(producer, "++") {
			return true
		}
	}
}

// scanRoot decodes the unit's first entry, interpreting only the producer
// scan attributes.
func (unit *CompileUnit) scanRoot() (*DebugInfoEntry, error) {
	if unit.root != nil {
		return unit.root, nil
	}

	if unit.partialRoot != nil {
		return unit.partialRoot, nil
	}

	abbrevTable, err := unit.AbbreviationTableAt(unit.AbbreviationIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to scan root DIE: %w", err)
	}

	decode := NewCursor(unit.ByteOrder(), unit.Content)
	code, err := decode.ULEB128(64)
	if err != nil {
		return nil, fmt.Errorf("failed to scan root DIE. invalid code: %w", err)
	}

	if code == 0 {
		return nil, fmt.Errorf("failed to scan root DIE. empty unit")
	}

	abbrev, ok := abbrevTable[code]
	if !ok {
		return nil, fmt.Errorf(
			"failed to scan root DIE. abbreviation (%d) not found",
			code)
	}

	values := make([]interface{}, len(abbrev.AttributeSpecs))
	for idx, spec := range abbrev.AttributeSpecs {
		_, ok := producerScanAttributes[spec.Attribute]
		if !ok {
			err = decode.Skip(unit.UnitHeader, spec)
		} else {
			values[idx], err = decode.Value(unit, spec)
		}

		if err != nil {
			return nil, fmt.Errorf(
				"failed to scan root DIE %s: %w",
				spec.Attribute,
				err)
		}
	}

	unit.partialRoot = &DebugInfoEntry{
		CompileUnit:   unit,
		SectionOffset: unit.ContentStart,
		Abbreviation:  abbrev,
		Values:        values,
	}

	return unit.partialRoot, nil
}

// Producers returns the producer of every compile unit that declares one,
// in unit order, along with the problems of units that were skipped.
func (file *File) Producers() ([]Producer, []error) {
	result := []Producer{}
	diagnostics := append([]error{}, file.UnitDiagnostics()...)

	for _, unit := range file.CompileUnits {
		root, err := unit.scanRoot()
		if err != nil {
			diagnostics = append(
				diagnostics,
				fmt.Errorf("skipped .debug_info unit at %d: %w", unit.Start, err))
			continue
		}

		if root.Tag != DW_TAG_compile_unit && root.Tag != DW_TAG_partial_unit {
			continue
		}

		producer, ok := root.String(DW_AT_producer)
		if !ok {
			continue
		}

		name, _ := root.String(DW_AT_name)
		lang, hasLang := root.Language()
		result = append(
			result,
			Producer{
				UnitOffset:  unit.Start,
				Producer:    producer,
				Language:    lang,
				HasLanguage: hasLang,
				Name:        name,
			})
	}

	return result, diagnostics
}

// ScanProducers returns the producer strings of every compile unit in the
// elf file.  Missing debug sections yield no producers and no diagnostics.
func ScanProducers(elfFile *elf.File) ([]Producer, []error) {
	file, err := NewFile(elfFile)
	if err != nil {
		if errors.Is(err, elf.ErrSectionNotFound) {
			return nil, nil
		}
		return nil, []error{err}
	}

	return file.Producers()
}

// FindProducer returns the first compile unit producer matching the
// language's compiler convention (DW_LANG_C* or DW_LANG_C_plus_plus*).
func FindProducer(elfFile *elf.File, language Language) (string, bool) {
	producers, _ := ScanProducers(elfFile)
	for _, producer := range producers {
		if producer.Matches(language) {
			return producer.Producer, true
		}
	}

	return "", false
}
