package dwarf

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pattyshack/elfscope/elf"
)

// .debug_str or .debug_line_str.
type StringSection struct {
	name    string
	found   bool
	content []byte
}

func NewStringSection(file *elf.File, name string) (*StringSection, error) {
	section := file.GetSection(name)

	var content []byte
	if section != nil {
		var err error
		content, err = section.RawContent()
		if err != nil {
			return nil, fmt.Errorf(
				"failed to read %s section from elf: %w",
				name,
				err)
		}
	}

	return &StringSection{
		name:    name,
		found:   section != nil,
		content: content,
	}, nil
}

func (table *StringSection) StringAt(offset SectionOffset) (string, error) {
	value, _, err := table.getStringAt(int(offset))
	return value, err
}

func (table *StringSection) getStringAt(offset int) (string, int, error) {
	if !table.found {
		return "", 0, fmt.Errorf("elf %s %w", table.name, elf.ErrSectionNotFound)
	}

	if offset < 0 || len(table.content) <= offset {
		return "", 0, fmt.Errorf(
			"%w: %s string reference (%d)",
			elf.ErrOutOfBounds,
			table.name,
			offset)
	}

	content := table.content[offset:]
	end := bytes.IndexByte(content, 0)
	if end == -1 {
		return "", 0, fmt.Errorf("%s string reference not terminated", table.name)
	}

	return string(content[:end]), offset + end + 1, nil
}

func (table *StringSection) StringEntries() ([]string, error) {
	result := []string{}
	offset := 0
	for len(table.content) > offset {
		value, next, err := table.getStringAt(offset)
		if err != nil {
			return nil, err
		}

		result = append(result, value)
		offset = next
	}

	return result, nil
}

// Offset tables (.debug_str_offsets, .debug_addr) are arrays of fixed size
// entries.  Each unit's contribution starts at the unit's base attribute
// (DW_AT_str_offsets_base / DW_AT_addr_base), right after the contribution
// header.
type OffsetTableSection struct {
	name      string
	byteOrder binary.ByteOrder
	found     bool
	content   []byte
}

func NewOffsetTableSection(
	file *elf.File,
	name string,
) (
	*OffsetTableSection,
	error,
) {
	section := file.GetSection(name)

	var content []byte
	if section != nil {
		var err error
		content, err = section.RawContent()
		if err != nil {
			return nil, fmt.Errorf(
				"failed to read %s section from elf: %w",
				name,
				err)
		}
	}

	return &OffsetTableSection{
		name:      name,
		byteOrder: file.ByteOrder(),
		found:     section != nil,
		content:   content,
	}, nil
}

func (section *OffsetTableSection) EntryAt(
	base SectionOffset,
	index uint64,
	entrySize int,
) (
	uint64,
	error,
) {
	if !section.found {
		return 0, fmt.Errorf("elf %s %w", section.name, elf.ErrSectionNotFound)
	}

	reader := elf.NewReader(section.byteOrder, section.content)
	offset := uint64(base) + index*uint64(entrySize)
	switch entrySize {
	case 4:
		val, err := reader.U32(offset)
		return uint64(val), err
	case 8:
		return reader.U64(offset)
	case 2:
		val, err := reader.U16(offset)
		return uint64(val), err
	default:
		return 0, fmt.Errorf("unsupported %s entry size (%d)", section.name, entrySize)
	}
}
