package dwarf

import (
	"fmt"
	"io"
	"sort"

	"github.com/pattyshack/elfscope/elf"
)

type AttributeSpec struct {
	Attribute
	Format

	// Only used by DW_FORM_implicit_const.
	ImplicitConst int64
}

type Abbreviation struct {
	Code uint64
	Tag
	HasChildren    bool
	AttributeSpecs []AttributeSpec
}

type AbbreviationTable map[uint64]*Abbreviation

// Codes returns the table's abbreviation codes in ascending order.
func (table AbbreviationTable) Codes() []uint64 {
	codes := make([]uint64, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i int, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Abbreviation tables are decoded on demand (per unit) so that a corrupted
// table only affects the units that reference it.
type AbbreviationSection struct {
	cursor *Cursor

	AbbreviationTables map[SectionOffset]AbbreviationTable
}

func NewAbbreviationSection(file *elf.File) (*AbbreviationSection, error) {
	section := file.GetSection(ElfDebugAbbreviationSection)
	if section == nil {
		return nil, fmt.Errorf("elf .debug_abbrev %w", elf.ErrSectionNotFound)
	}

	content, err := section.RawContent()
	if err != nil {
		return nil, fmt.Errorf("failed to read elf .debug_abbrev section: %w", err)
	}

	return &AbbreviationSection{
		cursor:             NewCursor(file.ByteOrder(), content),
		AbbreviationTables: map[SectionOffset]AbbreviationTable{},
	}, nil
}

func (section *AbbreviationSection) AbbreviationTableAt(
	offset SectionOffset,
) (
	AbbreviationTable,
	error,
) {
	table, ok := section.AbbreviationTables[offset]
	if ok {
		return table, nil
	}

	decode := section.cursor.Clone()
	_, err := decode.Seek(int(offset), io.SeekStart)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to parse abbreviation table (%d): %w",
			offset,
			err)
	}

	table, err = parseAbbreviationTable(decode)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to parse abbreviation table (%d): %w",
			offset,
			err)
	}

	section.AbbreviationTables[offset] = table
	return table, nil
}

func parseAbbreviationTable(decode *Cursor) (AbbreviationTable, error) {
	table := AbbreviationTable{}
	for {
		// NOTE: some producers omit the table's terminating null code at the
		// end of the section.
		if decode.HasReachedEnd() {
			return table, nil
		}

		code, err := decode.ULEB128(64)
		if err != nil {
			return nil, fmt.Errorf("invalid code: %w", err)
		}

		if code == 0 {
			return table, nil
		}

		tag, err := decode.ULEB128(64)
		if err != nil {
			return nil, fmt.Errorf("invalid tag: %w", err)
		}

		hasChildren, err := decode.U8()
		if err != nil {
			return nil, fmt.Errorf("invalid hasChildren: %w", err)
		}

		var specs []AttributeSpec
		for {
			attribute, err := decode.ULEB128(64)
			if err != nil {
				return nil, fmt.Errorf("invalid attribute: %w", err)
			}

			format, err := decode.ULEB128(64)
			if err != nil {
				return nil, fmt.Errorf("invalid format: %w", err)
			}

			if attribute == 0 {
				break
			}

			spec := AttributeSpec{
				Attribute: Attribute(attribute),
				Format:    Format(format),
			}

			if spec.Format == DW_FORM_implicit_const {
				spec.ImplicitConst, err = decode.SLEB128(64)
				if err != nil {
					return nil, fmt.Errorf("invalid implicit const: %w", err)
				}
			}

			specs = append(specs, spec)
		}

		table[code] = &Abbreviation{
			Code:           code,
			Tag:            Tag(tag),
			HasChildren:    hasChildren == DW_CHILDREN_yes,
			AttributeSpecs: specs,
		}
	}
}
