package elf

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Reader provides bounds checked, byte order aware random access to an elf
// file's content.  The content is never modified.
type Reader struct {
	binary.ByteOrder

	Content []byte
}

func NewReader(byteOrder binary.ByteOrder, content []byte) Reader {
	return Reader{
		ByteOrder: byteOrder,
		Content:   content,
	}
}

func (reader Reader) Len() int {
	return len(reader.Content)
}

func (reader Reader) Slice(offset uint64, size uint64) ([]byte, error) {
	end := offset + size
	if end < offset || end > uint64(len(reader.Content)) {
		return nil, fmt.Errorf(
			"%w: [%d:%d+%d] exceeds buffer length (%d)",
			ErrOutOfBounds,
			offset,
			offset,
			size,
			len(reader.Content))
	}

	return reader.Content[offset:end], nil
}

// Decode decodes a fixed size value (or slice of fixed size values) located
// at offset.
func (reader Reader) Decode(offset uint64, out interface{}) error {
	size := binary.Size(out)
	if size < 0 {
		panic("should never happen")
	}

	content, err := reader.Slice(offset, uint64(size))
	if err != nil {
		return err
	}

	_, err = binary.Decode(content, reader.ByteOrder, out)
	return err
}

func (reader Reader) U8(offset uint64) (uint8, error) {
	content, err := reader.Slice(offset, 1)
	if err != nil {
		return 0, err
	}
	return content[0], nil
}

func (reader Reader) U16(offset uint64) (uint16, error) {
	content, err := reader.Slice(offset, 2)
	if err != nil {
		return 0, err
	}
	return reader.Uint16(content), nil
}

func (reader Reader) U32(offset uint64) (uint32, error) {
	content, err := reader.Slice(offset, 4)
	if err != nil {
		return 0, err
	}
	return reader.Uint32(content), nil
}

func (reader Reader) U64(offset uint64) (uint64, error) {
	content, err := reader.Slice(offset, 8)
	if err != nil {
		return 0, err
	}
	return reader.Uint64(content), nil
}

// CString returns the bytes starting at offset up to (but excluding) the
// first zero byte.  An unterminated string runs to the end of the buffer.
func (reader Reader) CString(offset uint64) (string, error) {
	if offset >= uint64(len(reader.Content)) {
		return "", fmt.Errorf(
			"%w: string offset (%d) exceeds buffer length (%d)",
			ErrOutOfBounds,
			offset,
			len(reader.Content))
	}

	chunk := reader.Content[offset:]
	end := bytes.IndexByte(chunk, 0)
	if end == -1 {
		return string(chunk), nil
	}

	return string(chunk[:end]), nil
}

// ULEB128 decodes an unsigned little endian base 128 value at offset and
// returns the value along with the number of encoded bytes.
func (reader Reader) ULEB128(offset uint64) (uint64, int, error) {
	result := uint64(0)
	shift := uint(0)
	for idx := 0; ; idx++ {
		b, err := reader.U8(offset + uint64(idx))
		if err != nil {
			return 0, 0, err
		}

		if shift < 64 {
			result |= uint64(b&0x7f) << shift
		}
		shift += 7

		if b&0x80 == 0 {
			return result, idx + 1, nil
		}
	}
}
