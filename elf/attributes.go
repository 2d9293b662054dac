package elf

import (
	"fmt"
)

// Resources:
// https://github.com/ARM-software/abi-aa/blob/main/addenda32/addenda32.rst

const (
	ARMAttributesSectionName = ".ARM.attributes"

	armAttributesFormatVersion = 'A'
	armAttributesVendor        = "aeabi"

	armAttributeScopeFile = 1

	ARMTagCPURawName     = 4  // Tag_CPU_raw_name
	ARMTagCPUName        = 5  // Tag_CPU_name
	ARMTagCPUArch        = 6  // Tag_CPU_arch
	ARMTagCPUArchProfile = 7  // Tag_CPU_arch_profile
	ARMTagARMISAUse      = 8  // Tag_ARM_ISA_use
	ARMTagTHUMBISAUse    = 9  // Tag_THUMB_ISA_use
	ARMTagFPArch         = 10 // Tag_FP_arch
	ARMTagABIVFPArgs     = 28 // Tag_ABI_VFP_args
	ARMTagCompatibility  = 32 // Tag_compatibility
	ARMTagConformance    = 67 // Tag_conformance

	// e_flags
	ARMFlagsEABIMask     = 0xff000000 // EF_ARM_EABIMASK
	ARMFlagsABIFloatSoft = 0x200      // EF_ARM_ABI_FLOAT_SOFT
	ARMFlagsABIFloatHard = 0x400      // EF_ARM_ABI_FLOAT_HARD
	ARMFlagsBE8          = 0x00800000 // EF_ARM_BE8
	armFlagsEABIShift    = 24
	armProfileMicro      = 'M'
	armVFPArgsBase       = 0
	armVFPArgsRegisters  = 1
	armVFPArgsToolchain  = 2
	armVFPArgsCompatible = 3
)

var armCPUArchNames = []string{
	"Pre-v4",
	"v4",
	"v4T",
	"v5T",
	"v5TE",
	"v5TEJ",
	"v6",
	"v6KZ",
	"v6T2",
	"v6K",
	"v7",
	"v6-M",
	"v6S-M",
	"v7E-M",
	"v8-A",
	"v8-R",
	"v8-M.baseline",
	"v8-M.mainline",
	"v8.1-A",
	"v8.2-A",
	"v8.3-A",
	"v8.1-M.mainline",
	"v9-A",
}

var armFPArchNames = []string{
	"none",
	"VFPv1",
	"VFPv2",
	"VFPv3",
	"VFPv3-D16",
	"VFPv4",
	"VFPv4-D16",
	"FP-ARMv8",
	"FPv5-D16",
}

// File scope aeabi build attributes.
type ARMAttributes struct {
	CPUName        string
	CPUArch        uint64
	CPUArchProfile byte // 'A', 'R', 'M', 'S' or 0 if unspecified
	ARMISAUse      uint64
	THUMBISAUse    uint64
	FPArch         uint64
	VFPArgs        uint64 // Tag_ABI_VFP_args

	// Raw values of every recognized file scope tag.
	Integers map[uint64]uint64
	Strings  map[uint64]string
}

func (attrs *ARMAttributes) CPUArchName() string {
	if attrs.CPUArch < uint64(len(armCPUArchNames)) {
		return armCPUArchNames[attrs.CPUArch]
	}
	return fmt.Sprintf("unknown(%d)", attrs.CPUArch)
}

func (attrs *ARMAttributes) FPArchName() string {
	if attrs.FPArch < uint64(len(armFPArchNames)) {
		return armFPArchNames[attrs.FPArch]
	}
	return fmt.Sprintf("unknown(%d)", attrs.FPArch)
}

// FloatCallingConvention returns the Tag_ABI_VFP_args interpretation.
func (attrs *ARMAttributes) FloatCallingConvention() string {
	switch attrs.VFPArgs {
	case armVFPArgsBase:
		return "soft"
	case armVFPArgsRegisters:
		return "hard"
	case armVFPArgsToolchain:
		return "toolchain"
	case armVFPArgsCompatible:
		return "compatible"
	default:
		return fmt.Sprintf("unknown(%d)", attrs.VFPArgs)
	}
}

// IsMicrocontroller returns true for M profile (thumb only) cpus.
func (attrs *ARMAttributes) IsMicrocontroller() bool {
	return attrs.CPUArchProfile == armProfileMicro
}

// ParseARMAttributes decodes the file's .ARM.attributes section.  A missing
// section returns nil without error.
func ParseARMAttributes(file *File) (*ARMAttributes, error) {
	section := file.GetSection(ARMAttributesSectionName)
	if section == nil {
		return nil, nil
	}

	content, err := section.RawContent()
	if err != nil {
		return nil, fmt.Errorf("failed to read arm attributes: %w", err)
	}

	if len(content) == 0 || content[0] != armAttributesFormatVersion {
		return nil, fmt.Errorf("unsupported arm attributes format version")
	}

	attrs := &ARMAttributes{
		Integers: map[uint64]uint64{},
		Strings:  map[uint64]string{},
	}

	reader := NewReader(file.ByteOrder(), content)
	offset := uint64(1)
	for offset < uint64(len(content)) {
		length, err := reader.U32(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to read arm attributes: %w", err)
		}

		subsection, err := reader.Slice(offset, uint64(length))
		if err != nil || length < 4 {
			return nil, fmt.Errorf(
				"invalid arm attributes subsection length (%d): %w",
				length,
				ErrOutOfBounds)
		}
		offset += uint64(length)

		sub := NewReader(file.ByteOrder(), subsection)
		vendor, err := sub.CString(4)
		if err != nil {
			return nil, fmt.Errorf("failed to read arm attributes vendor: %w", err)
		}

		if vendor != armAttributesVendor {
			continue
		}

		err = attrs.parseSubsection(sub, 4+uint64(len(vendor))+1)
		if err != nil {
			return nil, err
		}
	}

	attrs.CPUName = attrs.Strings[ARMTagCPUName]
	attrs.CPUArch = attrs.Integers[ARMTagCPUArch]
	attrs.CPUArchProfile = byte(attrs.Integers[ARMTagCPUArchProfile])
	attrs.ARMISAUse = attrs.Integers[ARMTagARMISAUse]
	attrs.THUMBISAUse = attrs.Integers[ARMTagTHUMBISAUse]
	attrs.FPArch = attrs.Integers[ARMTagFPArch]
	attrs.VFPArgs = attrs.Integers[ARMTagABIVFPArgs]

	return attrs, nil
}

func (attrs *ARMAttributes) parseSubsection(reader Reader, offset uint64) error {
	for offset < uint64(reader.Len()) {
		scope, n, err := reader.ULEB128(offset)
		if err != nil {
			return fmt.Errorf("failed to read arm attributes scope: %w", err)
		}

		size, err := reader.U32(offset + uint64(n))
		if err != nil {
			return fmt.Errorf("failed to read arm attributes scope size: %w", err)
		}

		chunk, err := reader.Slice(offset, uint64(size))
		if err != nil || size < uint32(n)+4 {
			return fmt.Errorf(
				"invalid arm attributes scope size (%d): %w",
				size,
				ErrOutOfBounds)
		}
		offset += uint64(size)

		// Section and symbol scoped attributes are not interesting for a
		// whole file summary.
		if scope != armAttributeScopeFile {
			continue
		}

		err = attrs.parseTags(
			NewReader(reader.ByteOrder, chunk),
			uint64(n)+4)
		if err != nil {
			return err
		}
	}

	return nil
}

func (attrs *ARMAttributes) parseTags(reader Reader, offset uint64) error {
	for offset < uint64(reader.Len()) {
		tag, n, err := reader.ULEB128(offset)
		if err != nil {
			return fmt.Errorf("failed to read arm attribute tag: %w", err)
		}
		offset += uint64(n)

		isString := false
		switch {
		case tag == ARMTagCPURawName ||
			tag == ARMTagCPUName ||
			tag == ARMTagConformance:
			isString = true
		case tag == ARMTagCompatibility:
			flag, n, err := reader.ULEB128(offset)
			if err != nil {
				return fmt.Errorf("failed to read arm attribute %d: %w", tag, err)
			}
			offset += uint64(n)
			attrs.Integers[tag] = flag
			isString = true
		case tag > ARMTagCompatibility:
			isString = tag%2 == 1
		}

		if isString {
			value, err := reader.CString(offset)
			if err != nil {
				return fmt.Errorf("failed to read arm attribute %d: %w", tag, err)
			}
			offset += uint64(len(value)) + 1
			attrs.Strings[tag] = value
			continue
		}

		value, n, err := reader.ULEB128(offset)
		if err != nil {
			return fmt.Errorf("failed to read arm attribute %d: %w", tag, err)
		}
		offset += uint64(n)
		attrs.Integers[tag] = value
	}

	return nil
}

// ARMEABIVersion returns the EABI version encoded in e_flags.
func (file *File) ARMEABIVersion() uint32 {
	return (file.ArchitectureFlags & ARMFlagsEABIMask) >> armFlagsEABIShift
}

// ARMFloatABI returns the float abi encoded in e_flags: "hard", "soft", or ""
// when unspecified.
func (file *File) ARMFloatABI() string {
	switch {
	case file.ArchitectureFlags&ARMFlagsABIFloatHard != 0:
		return "hard"
	case file.ArchitectureFlags&ARMFlagsABIFloatSoft != 0:
		return "soft"
	default:
		return ""
	}
}
