package dwarf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pattyshack/elfscope/elf"
)

const (
	signExtensionMask = ^uint64(0)
)

// Index into .debug_str_offsets (relative to the unit's
// DW_AT_str_offsets_base).  Resolved lazily since the base attribute may
// follow the indexed attribute within the same entry.
type StringIndex uint64

// Index into .debug_addr (relative to the unit's DW_AT_addr_base).
type AddressIndex uint64

// Index into the unit's range / location list offset table.
type ListIndex uint64

type Cursor struct {
	binary.ByteOrder

	Content  []byte
	Position int
}

func NewCursor(
	byteOrder binary.ByteOrder,
	content []byte,
) *Cursor {
	return &Cursor{
		ByteOrder: byteOrder,
		Content:   content,
		Position:  0,
	}
}

func (cursor *Cursor) Clone() *Cursor {
	return &Cursor{
		ByteOrder: cursor.ByteOrder,
		Content:   cursor.Content,
		Position:  cursor.Position,
	}
}

func (cursor *Cursor) remaining() []byte {
	return cursor.Content[cursor.Position:]
}

func (cursor *Cursor) HasReachedEnd() bool {
	return len(cursor.remaining()) == 0
}

func (cursor *Cursor) Seek(offset int, whence int) (int, error) {
	pos := 0
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = cursor.Position + offset
	case io.SeekEnd:
		pos = len(cursor.Content) + offset
	}

	if pos < 0 || len(cursor.Content) < pos {
		return 0, fmt.Errorf("%w: seek (%d)", elf.ErrOutOfBounds, pos)
	}

	cursor.Position = pos
	return pos, nil
}

func (cursor *Cursor) Bytes(size int) ([]byte, error) {
	content := cursor.remaining()
	if size < 0 || len(content) < size {
		return nil, fmt.Errorf(
			"%w: slice %d [%d:%d+%d]",
			elf.ErrOutOfBounds,
			len(content),
			cursor.Position,
			cursor.Position,
			size)
	}

	content = content[:size]
	cursor.Position += size
	return content, nil
}

func (cursor *Cursor) String() (string, error) {
	content := cursor.remaining()
	if len(content) == 0 {
		return "", fmt.Errorf("cannot decode string: %w", io.EOF)
	}

	end := -1
	for idx, char := range content {
		if char == 0 {
			end = idx
			break
		}
	}

	if end == -1 {
		return "", fmt.Errorf("string not terminated (%d)", cursor.Position)
	}

	cursor.Position += end + 1 // +1 for trailing \0

	// exclude trailing \0
	return string(content[:end]), nil
}

func (cursor *Cursor) decode(out interface{}, name string) error {
	n, err := binary.Decode(cursor.remaining(), cursor.ByteOrder, out)
	if err != nil {
		return fmt.Errorf(
			"failed to decode %s (%d): %w",
			name,
			cursor.Position,
			err)
	}

	cursor.Position += n
	return nil
}

func (cursor *Cursor) U8() (uint8, error) {
	var result uint8
	err := cursor.decode(&result, "U8")
	return result, err
}

func (cursor *Cursor) U16() (uint16, error) {
	var result uint16
	err := cursor.decode(&result, "U16")
	return result, err
}

func (cursor *Cursor) U32() (uint32, error) {
	var result uint32
	err := cursor.decode(&result, "U32")
	return result, err
}

func (cursor *Cursor) U64() (uint64, error) {
	var result uint64
	err := cursor.decode(&result, "U64")
	return result, err
}

// UintN decodes a size bytes wide unsigned value (size in 1, 2, 3, 4, 8).
func (cursor *Cursor) UintN(size int) (uint64, error) {
	switch size {
	case 1:
		val, err := cursor.U8()
		return uint64(val), err
	case 2:
		val, err := cursor.U16()
		return uint64(val), err
	case 3:
		content, err := cursor.Bytes(3)
		if err != nil {
			return 0, err
		}

		if cursor.ByteOrder == binary.BigEndian {
			return uint64(content[0])<<16 |
				uint64(content[1])<<8 |
				uint64(content[2]), nil
		}
		return uint64(content[2])<<16 |
			uint64(content[1])<<8 |
			uint64(content[0]), nil
	case 4:
		val, err := cursor.U32()
		return uint64(val), err
	case 8:
		return cursor.U64()
	default:
		return 0, fmt.Errorf("unsupported integer size (%d)", size)
	}
}

func (cursor *Cursor) uleb128(
	bitSize int,
) (
	uint64, // decoded uint
	int, // shift
	byte, // upper byte
	error,
) {
	content := cursor.remaining()
	if len(content) == 0 {
		return 0, 0, 0, fmt.Errorf("cannot decode LEB128: %w", io.EOF)
	}

	result := uint64(0)
	shift := 0
	numBytes := 0
	current := byte(0)
	for len(content) > 0 && bitSize > shift {
		current = content[0]
		content = content[1:]

		result |= uint64(current&0x7f) << shift
		shift += 7
		numBytes += 1

		if (current & 0x80) == 0 {
			cursor.Position += numBytes
			return result, shift, current, nil
		}
	}

	return 0, 0, 0, fmt.Errorf("LEB128 not terminated (%d)", cursor.Position)
}

func (cursor *Cursor) ULEB128(bitSize int) (uint64, error) {
	result, _, _, err := cursor.uleb128(bitSize)
	if err != nil {
		return 0, err
	}

	return result, err
}

func (cursor *Cursor) SLEB128(bitSize int) (int64, error) {
	result, shift, upper, err := cursor.uleb128(bitSize)
	if err != nil {
		return 0, err
	}

	if shift < bitSize && (upper&0x40) != 0 {
		result |= signExtensionMask << shift
	}

	return int64(result), nil
}

func (cursor *Cursor) Value(
	unit *CompileUnit,
	spec AttributeSpec,
) (
	interface{},
	error,
) {
	val, err := cursor.value(unit, spec)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to decode value (%s): %w",
			spec.Format,
			err)
	}

	return val, nil
}

func (cursor *Cursor) value(
	unit *CompileUnit,
	spec AttributeSpec,
) (
	interface{},
	error,
) {
	format := spec.Format
	if format == DW_FORM_implicit_const { // NOTE: value is in the abbreviation
		return spec.ImplicitConst, nil
	}

	uintField, err := cursor.uintField(unit.UnitHeader, format)
	if err != nil {
		return nil, err
	}

	switch format {
	case DW_FORM_addr:
		return elf.FileAddress(uintField), nil

	case DW_FORM_addrx,
		DW_FORM_addrx1,
		DW_FORM_addrx2,
		DW_FORM_addrx3,
		DW_FORM_addrx4,
		DW_FORM_GNU_addr_index:

		return AddressIndex(uintField), nil

	case DW_FORM_sec_offset,
		DW_FORM_strp_sup,
		DW_FORM_GNU_strp_alt,
		DW_FORM_ref_sup4,
		DW_FORM_ref_sup8,
		DW_FORM_GNU_ref_alt:

		return SectionOffset(uintField), nil

	case DW_FORM_loclistx, DW_FORM_rnglistx:
		return ListIndex(uintField), nil

	case DW_FORM_flag:
		return uintField != 0, nil

	case DW_FORM_flag_present: // NOTE: this has no encoded value bytes
		return true, nil

	case DW_FORM_data1,
		DW_FORM_data2,
		DW_FORM_data4,
		DW_FORM_data8,
		DW_FORM_udata,
		DW_FORM_ref_sig8:

		return uintField, nil

	case DW_FORM_data16:
		return cursor.Bytes(16)

	case DW_FORM_sdata:
		return cursor.SLEB128(64)

	case DW_FORM_block1,
		DW_FORM_block2,
		DW_FORM_block4,
		DW_FORM_block,
		DW_FORM_exprloc:

		return cursor.Bytes(int(uintField))

	case DW_FORM_string:
		return cursor.String()

	case DW_FORM_strp:
		return unit.File.Strings.StringAt(SectionOffset(uintField))

	case DW_FORM_line_strp:
		return unit.File.LineStrings.StringAt(SectionOffset(uintField))

	case DW_FORM_strx,
		DW_FORM_strx1,
		DW_FORM_strx2,
		DW_FORM_strx3,
		DW_FORM_strx4,
		DW_FORM_GNU_str_index:

		return StringIndex(uintField), nil

	case DW_FORM_ref1,
		DW_FORM_ref2,
		DW_FORM_ref4,
		DW_FORM_ref8,
		DW_FORM_ref_udata:

		addr := unit.Start + SectionOffset(uintField)

		return newDebugInfoEntryReference(unit.File, addr), nil

	case DW_FORM_ref_addr:
		return newDebugInfoEntryReference(
			unit.File,
			SectionOffset(uintField)), nil

	case DW_FORM_indirect:
		return cursor.Value(
			unit,
			AttributeSpec{
				Attribute: spec.Attribute,
				Format:    Format(uintField),
			})

	default:
		return nil, fmt.Errorf("unsupported format (%s)", format)
	}
}

// This return 0 if the format's first field does not involve uint.
func (cursor *Cursor) uintField(
	header UnitHeader,
	format Format,
) (
	uint64,
	error,
) {
	switch format {
	case DW_FORM_flag,
		DW_FORM_data1,
		DW_FORM_block1,
		DW_FORM_ref1,
		DW_FORM_strx1,
		DW_FORM_addrx1:

		return cursor.UintN(1)

	case DW_FORM_data2,
		DW_FORM_block2,
		DW_FORM_ref2,
		DW_FORM_strx2,
		DW_FORM_addrx2:

		return cursor.UintN(2)

	case DW_FORM_strx3, DW_FORM_addrx3:
		return cursor.UintN(3)

	case DW_FORM_data4,
		DW_FORM_block4,
		DW_FORM_ref4,
		DW_FORM_ref_sup4,
		DW_FORM_strx4,
		DW_FORM_addrx4:

		return cursor.UintN(4)

	case DW_FORM_data8,
		DW_FORM_ref8,
		DW_FORM_ref_sig8,
		DW_FORM_ref_sup8:

		return cursor.UintN(8)

	case DW_FORM_addr:
		return cursor.UintN(header.AddressSize)

	case DW_FORM_sec_offset,
		DW_FORM_strp,
		DW_FORM_line_strp,
		DW_FORM_strp_sup,
		DW_FORM_GNU_strp_alt,
		DW_FORM_GNU_ref_alt:

		return cursor.UintN(header.OffsetSize())

	case DW_FORM_ref_addr:
		// NOTE: dwarf 2 encodes ref_addr using the target address size.
		if header.Version <= 2 {
			return cursor.UintN(header.AddressSize)
		}
		return cursor.UintN(header.OffsetSize())

	case DW_FORM_block,
		DW_FORM_exprloc,
		DW_FORM_ref_udata:

		return cursor.ULEB128(32)

	case DW_FORM_udata,
		DW_FORM_indirect,
		DW_FORM_strx,
		DW_FORM_addrx,
		DW_FORM_loclistx,
		DW_FORM_rnglistx,
		DW_FORM_GNU_str_index,
		DW_FORM_GNU_addr_index:

		return cursor.ULEB128(64)
	}

	return 0, nil
}

// Skip advances past a value without interpreting it.
func (cursor *Cursor) Skip(header UnitHeader, spec AttributeSpec) error {
	format := spec.Format
	switch format {
	case DW_FORM_implicit_const, DW_FORM_flag_present:
		return nil
	case DW_FORM_string:
		_, err := cursor.String()
		return err
	case DW_FORM_sdata:
		_, err := cursor.SLEB128(64)
		return err
	case DW_FORM_data16:
		_, err := cursor.Bytes(16)
		return err
	case DW_FORM_indirect:
		actual, err := cursor.ULEB128(64)
		if err != nil {
			return err
		}
		return cursor.Skip(
			header,
			AttributeSpec{
				Attribute: spec.Attribute,
				Format:    Format(actual),
			})
	}

	if _, ok := formatNames[format]; !ok {
		return fmt.Errorf("cannot skip unsupported format (%s)", format)
	}

	size, err := cursor.uintField(header, format)
	if err != nil {
		return err
	}

	switch format {
	case DW_FORM_block1,
		DW_FORM_block2,
		DW_FORM_block4,
		DW_FORM_block,
		DW_FORM_exprloc:

		_, err := cursor.Bytes(int(size))
		return err
	}

	return nil
}
