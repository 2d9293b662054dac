package dwarf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pattyshack/elfscope/elf"
)

type AddressRange struct {
	Low  elf.FileAddress
	High elf.FileAddress
}

func (addrRange AddressRange) Contains(addr elf.FileAddress) bool {
	return addrRange.Low <= addr && addr < addrRange.High
}

type AddressRanges []AddressRange

func (ranges AddressRanges) Contains(addr elf.FileAddress) bool {
	for _, addrRange := range ranges {
		if addrRange.Contains(addr) {
			return true
		}
	}
	return false
}

// .debug_ranges (dwarf 2 - 4) or .debug_rnglists (dwarf 5)
type AddressRangesSection struct {
	name      string
	byteOrder binary.ByteOrder
	found     bool
	content   []byte
}

func NewAddressRangesSectionFromBytes(
	byteOrder binary.ByteOrder,
	content []byte,
) *AddressRangesSection {
	return &AddressRangesSection{
		name:      ElfDebugRangesSection,
		byteOrder: byteOrder,
		found:     true,
		content:   content,
	}
}

func NewAddressRangesSection(
	file *elf.File,
	name string,
) (
	*AddressRangesSection,
	error,
) {
	section := file.GetSection(name)

	var content []byte
	if section != nil {
		var err error
		content, err = section.RawContent()
		if err != nil {
			return nil, fmt.Errorf(
				"failed to read elf %s section: %w",
				name,
				err)
		}
	}

	return &AddressRangesSection{
		name:      name,
		byteOrder: file.ByteOrder(),
		found:     section != nil,
		content:   content,
	}, nil
}

func (section *AddressRangesSection) cursorAt(
	index SectionOffset,
) (
	*Cursor,
	error,
) {
	if !section.found {
		return nil, fmt.Errorf("elf %s %w", section.name, elf.ErrSectionNotFound)
	}

	decode := NewCursor(section.byteOrder, section.content)
	_, err := decode.Seek(int(index), io.SeekStart)
	if err != nil {
		return nil, fmt.Errorf(
			"invalid %s index (%d): %w",
			section.name,
			index,
			err)
	}

	return decode, nil
}

// AddressRangesAt decodes a .debug_ranges list.
func (section *AddressRangesSection) AddressRangesAt(
	index SectionOffset,
	baseAddress elf.FileAddress,
	addressSize int,
) (
	AddressRanges,
	error,
) {
	decode, err := section.cursorAt(index)
	if err != nil {
		return nil, err
	}

	baseAddressFlag := ^uint64(0)
	if addressSize == 4 {
		baseAddressFlag = uint64(^uint32(0))
	}

	result := AddressRanges{}
	for !decode.HasReachedEnd() {
		low, err := decode.UintN(addressSize)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to parse address ranges. cannot decode low: %w",
				err)
		}

		high, err := decode.UintN(addressSize)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to parse address ranges. cannot decode high: %w",
				err)
		}

		if low == baseAddressFlag {
			baseAddress = elf.FileAddress(high)
			continue
		}

		if low == 0 && high == 0 {
			return result, nil
		}

		result = append(
			result,
			AddressRange{
				Low:  baseAddress + elf.FileAddress(low),
				High: baseAddress + elf.FileAddress(high),
			})
	}

	return nil, fmt.Errorf("address ranges (%d) not terminated", index)
}

// RangeListAt decodes a .debug_rnglists list.  resolve maps .debug_addr
// indices to addresses.
func (section *AddressRangesSection) RangeListAt(
	index SectionOffset,
	baseAddress elf.FileAddress,
	addressSize int,
	resolve func(AddressIndex) (elf.FileAddress, error),
) (
	AddressRanges,
	error,
) {
	decode, err := section.cursorAt(index)
	if err != nil {
		return nil, err
	}

	result := AddressRanges{}
	for !decode.HasReachedEnd() {
		kind, err := decode.U8()
		if err != nil {
			return nil, fmt.Errorf("failed to parse range list kind: %w", err)
		}

		var low elf.FileAddress
		var high elf.FileAddress
		switch kind {
		case DW_RLE_end_of_list:
			return result, nil

		case DW_RLE_base_addressx:
			idx, err := decode.ULEB128(64)
			if err == nil {
				baseAddress, err = resolve(AddressIndex(idx))
			}
			if err != nil {
				return nil, fmt.Errorf("failed to parse range list base: %w", err)
			}
			continue

		case DW_RLE_base_address:
			val, err := decode.UintN(addressSize)
			if err != nil {
				return nil, fmt.Errorf("failed to parse range list base: %w", err)
			}
			baseAddress = elf.FileAddress(val)
			continue

		case DW_RLE_startx_endx, DW_RLE_startx_length:
			startIdx, err := decode.ULEB128(64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse range list entry: %w", err)
			}

			second, err := decode.ULEB128(64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse range list entry: %w", err)
			}

			low, err = resolve(AddressIndex(startIdx))
			if err != nil {
				return nil, fmt.Errorf("failed to parse range list entry: %w", err)
			}

			if kind == DW_RLE_startx_length {
				high = low + elf.FileAddress(second)
			} else {
				high, err = resolve(AddressIndex(second))
				if err != nil {
					return nil, fmt.Errorf(
						"failed to parse range list entry: %w",
						err)
				}
			}

		case DW_RLE_offset_pair:
			start, err := decode.ULEB128(64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse range list entry: %w", err)
			}

			end, err := decode.ULEB128(64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse range list entry: %w", err)
			}

			low = baseAddress + elf.FileAddress(start)
			high = baseAddress + elf.FileAddress(end)

		case DW_RLE_start_end, DW_RLE_start_length:
			start, err := decode.UintN(addressSize)
			if err != nil {
				return nil, fmt.Errorf("failed to parse range list entry: %w", err)
			}

			var second uint64
			if kind == DW_RLE_start_end {
				second, err = decode.UintN(addressSize)
			} else {
				second, err = decode.ULEB128(64)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to parse range list entry: %w", err)
			}

			low = elf.FileAddress(start)
			if kind == DW_RLE_start_end {
				high = elf.FileAddress(second)
			} else {
				high = low + elf.FileAddress(second)
			}

		default:
			return nil, fmt.Errorf("unsupported range list entry kind (%d)", kind)
		}

		result = append(result, AddressRange{Low: low, High: high})
	}

	return nil, fmt.Errorf("range list (%d) not terminated", index)
}
