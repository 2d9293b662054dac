// NOTE: Constant values follow dwarf.h from github.com/TartanLlama/sdb,
// extended with the dwarf 5 and gnu extension values.

package dwarf

import (
	"fmt"
)

// See dwarf 5 table 7.5 for full list
type Attribute uint64

const (
	DW_AT_sibling                 = Attribute(0x01)
	DW_AT_location                = Attribute(0x02)
	DW_AT_name                    = Attribute(0x03)
	DW_AT_ordering                = Attribute(0x09)
	DW_AT_byte_size               = Attribute(0x0b)
	DW_AT_bit_offset              = Attribute(0x0c)
	DW_AT_bit_size                = Attribute(0x0d)
	DW_AT_stmt_list               = Attribute(0x10)
	DW_AT_low_pc                  = Attribute(0x11)
	DW_AT_high_pc                 = Attribute(0x12)
	DW_AT_language                = Attribute(0x13)
	DW_AT_discr                   = Attribute(0x15)
	DW_AT_discr_value             = Attribute(0x16)
	DW_AT_visibility              = Attribute(0x17)
	DW_AT_import                  = Attribute(0x18)
	DW_AT_string_length           = Attribute(0x19)
	DW_AT_common_reference        = Attribute(0x1a)
	DW_AT_comp_dir                = Attribute(0x1b)
	DW_AT_const_value             = Attribute(0x1c)
	DW_AT_containing_type         = Attribute(0x1d)
	DW_AT_default_value           = Attribute(0x1e)
	DW_AT_inline                  = Attribute(0x20)
	DW_AT_is_optional             = Attribute(0x21)
	DW_AT_lower_bound             = Attribute(0x22)
	DW_AT_producer                = Attribute(0x25)
	DW_AT_prototyped              = Attribute(0x27)
	DW_AT_return_addr             = Attribute(0x2a)
	DW_AT_start_scope             = Attribute(0x2c)
	DW_AT_bit_stride              = Attribute(0x2e)
	DW_AT_upper_bound             = Attribute(0x2f)
	DW_AT_abstract_origin         = Attribute(0x31)
	DW_AT_accessibility           = Attribute(0x32)
	DW_AT_address_class           = Attribute(0x33)
	DW_AT_artificial              = Attribute(0x34)
	DW_AT_base_types              = Attribute(0x35)
	DW_AT_calling_convention      = Attribute(0x36)
	DW_AT_count                   = Attribute(0x37)
	DW_AT_data_member_location    = Attribute(0x38)
	DW_AT_decl_column             = Attribute(0x39)
	DW_AT_decl_file               = Attribute(0x3a)
	DW_AT_decl_line               = Attribute(0x3b)
	DW_AT_declaration             = Attribute(0x3c)
	DW_AT_discr_list              = Attribute(0x3d)
	DW_AT_encoding                = Attribute(0x3e)
	DW_AT_external                = Attribute(0x3f)
	DW_AT_frame_base              = Attribute(0x40)
	DW_AT_friend                  = Attribute(0x41)
	DW_AT_identifier_case         = Attribute(0x42)
	DW_AT_macro_info              = Attribute(0x43)
	DW_AT_namelist_item           = Attribute(0x44)
	DW_AT_priority                = Attribute(0x45)
	DW_AT_segment                 = Attribute(0x46)
	DW_AT_specification           = Attribute(0x47)
	DW_AT_static_link             = Attribute(0x48)
	DW_AT_type                    = Attribute(0x49)
	DW_AT_use_location            = Attribute(0x4a)
	DW_AT_variable_parameter      = Attribute(0x4b)
	DW_AT_virtuality              = Attribute(0x4c)
	DW_AT_vtable_elem_location    = Attribute(0x4d)
	DW_AT_allocated               = Attribute(0x4e)
	DW_AT_associated              = Attribute(0x4f)
	DW_AT_data_location           = Attribute(0x50)
	DW_AT_byte_stride             = Attribute(0x51)
	DW_AT_entry_pc                = Attribute(0x52)
	DW_AT_use_UTF8                = Attribute(0x53)
	DW_AT_extension               = Attribute(0x54)
	DW_AT_ranges                  = Attribute(0x55)
	DW_AT_trampoline              = Attribute(0x56)
	DW_AT_call_column             = Attribute(0x57)
	DW_AT_call_file               = Attribute(0x58)
	DW_AT_call_line               = Attribute(0x59)
	DW_AT_description             = Attribute(0x5a)
	DW_AT_binary_scale            = Attribute(0x5b)
	DW_AT_decimal_scale           = Attribute(0x5c)
	DW_AT_small                   = Attribute(0x5d)
	DW_AT_decimal_sign            = Attribute(0x5e)
	DW_AT_digit_count             = Attribute(0x5f)
	DW_AT_picture_string          = Attribute(0x60)
	DW_AT_mutable                 = Attribute(0x61)
	DW_AT_threads_scaled          = Attribute(0x62)
	DW_AT_explicit                = Attribute(0x63)
	DW_AT_object_pointer          = Attribute(0x64)
	DW_AT_endianity               = Attribute(0x65)
	DW_AT_elemental               = Attribute(0x66)
	DW_AT_pure                    = Attribute(0x67)
	DW_AT_recursive               = Attribute(0x68)
	DW_AT_signature               = Attribute(0x69)
	DW_AT_main_subprogram         = Attribute(0x6a)
	DW_AT_data_bit_offset         = Attribute(0x6b)
	DW_AT_const_expr              = Attribute(0x6c)
	DW_AT_enum_class              = Attribute(0x6d)
	DW_AT_linkage_name            = Attribute(0x6e)
	DW_AT_defaulted               = Attribute(0x8b)
	DW_AT_lo_user                 = Attribute(0x2000)
	DW_AT_hi_user                 = Attribute(0x3fff)
	DW_AT_string_length_bit_size  = Attribute(0x6f)
	DW_AT_string_length_byte_size = Attribute(0x70)
	DW_AT_rank                    = Attribute(0x71)
	DW_AT_str_offsets_base        = Attribute(0x72)
	DW_AT_addr_base               = Attribute(0x73)
	DW_AT_rnglists_base           = Attribute(0x74)
	DW_AT_dwo_name                = Attribute(0x76)
	DW_AT_reference               = Attribute(0x77)
	DW_AT_rvalue_reference        = Attribute(0x78)
	DW_AT_macros                  = Attribute(0x79)
	DW_AT_call_all_calls          = Attribute(0x7a)
	DW_AT_call_return_pc          = Attribute(0x7d)
	DW_AT_call_target             = Attribute(0x83)
	DW_AT_noreturn                = Attribute(0x87)
	DW_AT_alignment               = Attribute(0x88)
	DW_AT_export_symbols          = Attribute(0x89)
	DW_AT_deleted                 = Attribute(0x8a)
	DW_AT_loclists_base           = Attribute(0x8c)
	DW_AT_MIPS_linkage_name       = Attribute(0x2007)
	DW_AT_GNU_dwo_name            = Attribute(0x2130)
	DW_AT_GNU_ranges_base         = Attribute(0x2132)
	DW_AT_GNU_addr_base           = Attribute(0x2133)
)

var attributeNames = map[Attribute]string{
	DW_AT_sibling:                 "DW_AT_sibling",
	DW_AT_location:                "DW_AT_location",
	DW_AT_name:                    "DW_AT_name",
	DW_AT_ordering:                "DW_AT_ordering",
	DW_AT_byte_size:               "DW_AT_byte_size",
	DW_AT_bit_offset:              "DW_AT_bit_offset",
	DW_AT_bit_size:                "DW_AT_bit_size",
	DW_AT_stmt_list:               "DW_AT_stmt_list",
	DW_AT_low_pc:                  "DW_AT_low_pc",
	DW_AT_high_pc:                 "DW_AT_high_pc",
	DW_AT_language:                "DW_AT_language",
	DW_AT_discr:                   "DW_AT_discr",
	DW_AT_discr_value:             "DW_AT_discr_value",
	DW_AT_visibility:              "DW_AT_visibility",
	DW_AT_import:                  "DW_AT_import",
	DW_AT_string_length:           "DW_AT_string_length",
	DW_AT_common_reference:        "DW_AT_common_reference",
	DW_AT_comp_dir:                "DW_AT_comp_dir",
	DW_AT_const_value:             "DW_AT_const_value",
	DW_AT_containing_type:         "DW_AT_containing_type",
	DW_AT_default_value:           "DW_AT_default_value",
	DW_AT_inline:                  "DW_AT_inline",
	DW_AT_is_optional:             "DW_AT_is_optional",
	DW_AT_lower_bound:             "DW_AT_lower_bound",
	DW_AT_producer:                "DW_AT_producer",
	DW_AT_prototyped:              "DW_AT_prototyped",
	DW_AT_return_addr:             "DW_AT_return_addr",
	DW_AT_start_scope:             "DW_AT_start_scope",
	DW_AT_bit_stride:              "DW_AT_bit_stride",
	DW_AT_upper_bound:             "DW_AT_upper_bound",
	DW_AT_abstract_origin:         "DW_AT_abstract_origin",
	DW_AT_accessibility:           "DW_AT_accessibility",
	DW_AT_address_class:           "DW_AT_address_class",
	DW_AT_artificial:              "DW_AT_artificial",
	DW_AT_base_types:              "DW_AT_base_types",
	DW_AT_calling_convention:      "DW_AT_calling_convention",
	DW_AT_count:                   "DW_AT_count",
	DW_AT_data_member_location:    "DW_AT_data_member_location",
	DW_AT_decl_column:             "DW_AT_decl_column",
	DW_AT_decl_file:               "DW_AT_decl_file",
	DW_AT_decl_line:               "DW_AT_decl_line",
	DW_AT_declaration:             "DW_AT_declaration",
	DW_AT_discr_list:              "DW_AT_discr_list",
	DW_AT_encoding:                "DW_AT_encoding",
	DW_AT_external:                "DW_AT_external",
	DW_AT_frame_base:              "DW_AT_frame_base",
	DW_AT_friend:                  "DW_AT_friend",
	DW_AT_identifier_case:         "DW_AT_identifier_case",
	DW_AT_macro_info:              "DW_AT_macro_info",
	DW_AT_namelist_item:           "DW_AT_namelist_item",
	DW_AT_priority:                "DW_AT_priority",
	DW_AT_segment:                 "DW_AT_segment",
	DW_AT_specification:           "DW_AT_specification",
	DW_AT_static_link:             "DW_AT_static_link",
	DW_AT_type:                    "DW_AT_type",
	DW_AT_use_location:            "DW_AT_use_location",
	DW_AT_variable_parameter:      "DW_AT_variable_parameter",
	DW_AT_virtuality:              "DW_AT_virtuality",
	DW_AT_vtable_elem_location:    "DW_AT_vtable_elem_location",
	DW_AT_allocated:               "DW_AT_allocated",
	DW_AT_associated:              "DW_AT_associated",
	DW_AT_data_location:           "DW_AT_data_location",
	DW_AT_byte_stride:             "DW_AT_byte_stride",
	DW_AT_entry_pc:                "DW_AT_entry_pc",
	DW_AT_use_UTF8:                "DW_AT_use_UTF8",
	DW_AT_extension:               "DW_AT_extension",
	DW_AT_ranges:                  "DW_AT_ranges",
	DW_AT_trampoline:              "DW_AT_trampoline",
	DW_AT_call_column:             "DW_AT_call_column",
	DW_AT_call_file:               "DW_AT_call_file",
	DW_AT_call_line:               "DW_AT_call_line",
	DW_AT_description:             "DW_AT_description",
	DW_AT_binary_scale:            "DW_AT_binary_scale",
	DW_AT_decimal_scale:           "DW_AT_decimal_scale",
	DW_AT_small:                   "DW_AT_small",
	DW_AT_decimal_sign:            "DW_AT_decimal_sign",
	DW_AT_digit_count:             "DW_AT_digit_count",
	DW_AT_picture_string:          "DW_AT_picture_string",
	DW_AT_mutable:                 "DW_AT_mutable",
	DW_AT_threads_scaled:          "DW_AT_threads_scaled",
	DW_AT_explicit:                "DW_AT_explicit",
	DW_AT_object_pointer:          "DW_AT_object_pointer",
	DW_AT_endianity:               "DW_AT_endianity",
	DW_AT_elemental:               "DW_AT_elemental",
	DW_AT_pure:                    "DW_AT_pure",
	DW_AT_recursive:               "DW_AT_recursive",
	DW_AT_signature:               "DW_AT_signature",
	DW_AT_main_subprogram:         "DW_AT_main_subprogram",
	DW_AT_data_bit_offset:         "DW_AT_data_bit_offset",
	DW_AT_const_expr:              "DW_AT_const_expr",
	DW_AT_enum_class:              "DW_AT_enum_class",
	DW_AT_linkage_name:            "DW_AT_linkage_name",
	DW_AT_defaulted:               "DW_AT_defaulted",
	DW_AT_string_length_bit_size:  "DW_AT_string_length_bit_size",
	DW_AT_string_length_byte_size: "DW_AT_string_length_byte_size",
	DW_AT_rank:                    "DW_AT_rank",
	DW_AT_str_offsets_base:        "DW_AT_str_offsets_base",
	DW_AT_addr_base:               "DW_AT_addr_base",
	DW_AT_rnglists_base:           "DW_AT_rnglists_base",
	DW_AT_dwo_name:                "DW_AT_dwo_name",
	DW_AT_reference:               "DW_AT_reference",
	DW_AT_rvalue_reference:        "DW_AT_rvalue_reference",
	DW_AT_macros:                  "DW_AT_macros",
	DW_AT_call_all_calls:          "DW_AT_call_all_calls",
	DW_AT_call_return_pc:          "DW_AT_call_return_pc",
	DW_AT_call_target:             "DW_AT_call_target",
	DW_AT_noreturn:                "DW_AT_noreturn",
	DW_AT_alignment:               "DW_AT_alignment",
	DW_AT_export_symbols:          "DW_AT_export_symbols",
	DW_AT_deleted:                 "DW_AT_deleted",
	DW_AT_loclists_base:           "DW_AT_loclists_base",
	DW_AT_MIPS_linkage_name:       "DW_AT_MIPS_linkage_name",
	DW_AT_GNU_dwo_name:            "DW_AT_GNU_dwo_name",
	DW_AT_GNU_ranges_base:         "DW_AT_GNU_ranges_base",
	DW_AT_GNU_addr_base:           "DW_AT_GNU_addr_base",
}

func (attr Attribute) String() string {
	name, ok := attributeNames[attr]
	if ok {
		return name
	}
	return fmt.Sprintf("DW_AT_unknown_%#x", uint64(attr))
}
