package dwarf

import (
	"fmt"
)

const (
	ElfDebugAbbreviationSection  = ".debug_abbrev"
	ElfDebugInformationSection   = ".debug_info"
	ElfDebugStringSection        = ".debug_str"
	ElfDebugLineStringSection    = ".debug_line_str"
	ElfDebugStringOffsetsSection = ".debug_str_offsets"
	ElfDebugAddressSection       = ".debug_addr"
	ElfDebugRangesSection        = ".debug_ranges"
	ElfDebugRangeListsSection    = ".debug_rnglists"

	DW_CHILDREN_no  = 0x00
	DW_CHILDREN_yes = 0x01

	// unit header types (dwarf 5 table 7.2)
	DW_UT_compile       = 0x01
	DW_UT_type          = 0x02
	DW_UT_partial       = 0x03
	DW_UT_skeleton      = 0x04
	DW_UT_split_compile = 0x05
	DW_UT_split_type    = 0x06

	// range list entries (dwarf 5 table 7.30)
	DW_RLE_end_of_list   = 0x00
	DW_RLE_base_addressx = 0x01
	DW_RLE_startx_endx   = 0x02
	DW_RLE_startx_length = 0x03
	DW_RLE_offset_pair   = 0x04
	DW_RLE_base_address  = 0x05
	DW_RLE_start_end     = 0x06
	DW_RLE_start_length  = 0x07
)

// See dwarf 5 table 7.17
type Language uint64

const (
	DW_LANG_C89            = Language(0x0001)
	DW_LANG_C              = Language(0x0002)
	DW_LANG_Ada83          = Language(0x0003)
	DW_LANG_C_plus_plus    = Language(0x0004)
	DW_LANG_Fortran77      = Language(0x0007)
	DW_LANG_Fortran90      = Language(0x0008)
	DW_LANG_Pascal83       = Language(0x0009)
	DW_LANG_Java           = Language(0x000b)
	DW_LANG_C99            = Language(0x000c)
	DW_LANG_ObjC           = Language(0x0010)
	DW_LANG_ObjC_plus_plus = Language(0x0011)
	DW_LANG_D              = Language(0x0013)
	DW_LANG_Python         = Language(0x0014)
	DW_LANG_Go             = Language(0x0016)
	DW_LANG_C_plus_plus_03 = Language(0x0019)
	DW_LANG_C_plus_plus_11 = Language(0x001a)
	DW_LANG_Rust           = Language(0x001c)
	DW_LANG_C11            = Language(0x001d)
	DW_LANG_C_plus_plus_14 = Language(0x0021)
	DW_LANG_C17            = Language(0x002c)
	DW_LANG_Mips_Assembler = Language(0x8001)
)

func (lang Language) String() string {
	switch lang {
	case DW_LANG_C89:
		return "C89"
	case DW_LANG_C:
		return "C"
	case DW_LANG_C99:
		return "C99"
	case DW_LANG_C11:
		return "C11"
	case DW_LANG_C17:
		return "C17"
	case DW_LANG_C_plus_plus:
		return "C++"
	case DW_LANG_C_plus_plus_03:
		return "C++03"
	case DW_LANG_C_plus_plus_11:
		return "C++11"
	case DW_LANG_C_plus_plus_14:
		return "C++14"
	case DW_LANG_Ada83:
		return "Ada83"
	case DW_LANG_Fortran77:
		return "Fortran77"
	case DW_LANG_Fortran90:
		return "Fortran90"
	case DW_LANG_Pascal83:
		return "Pascal83"
	case DW_LANG_Java:
		return "Java"
	case DW_LANG_ObjC:
		return "ObjC"
	case DW_LANG_ObjC_plus_plus:
		return "ObjC++"
	case DW_LANG_D:
		return "D"
	case DW_LANG_Python:
		return "Python"
	case DW_LANG_Go:
		return "Go"
	case DW_LANG_Rust:
		return "Rust"
	case DW_LANG_Mips_Assembler:
		return "Assembler"
	default:
		return fmt.Sprintf("DW_LANG_unknown_%#x", uint64(lang))
	}
}

func (lang Language) IsC() bool {
	switch lang {
	case DW_LANG_C89, DW_LANG_C, DW_LANG_C99, DW_LANG_C11, DW_LANG_C17:
		return true
	}
	return false
}

func (lang Language) IsCPlusPlus() bool {
	switch lang {
	case DW_LANG_C_plus_plus,
		DW_LANG_C_plus_plus_03,
		DW_LANG_C_plus_plus_11,
		DW_LANG_C_plus_plus_14:
		return true
	}
	return false
}
