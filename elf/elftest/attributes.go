package elftest

import (
	"github.com/pattyshack/elfscope/elf"
)

// AddARMAttributes appends a .ARM.attributes section holding a single
// "aeabi" file scope subsection with the given raw tag / value bytes.
func (builder *Builder) AddARMAttributes(tags []byte) *Builder {
	scope := []byte{1}
	scope = builder.Order.AppendUint32(scope, uint32(len(tags)+5))
	scope = append(scope, tags...)

	subsection := builder.Order.AppendUint32(
		nil,
		uint32(4+len("aeabi")+1+len(scope)))
	subsection = append(subsection, "aeabi\x00"...)
	subsection = append(subsection, scope...)

	return builder.AddSection(
		Section{
			Name:    elf.ARMAttributesSectionName,
			Type:    elf.SectionTypeARMAttributes,
			Content: append([]byte{'A'}, subsection...),
		})
}

// CortexMTags returns a cortex-m4 (v7E-M, thumb only) tag sequence.
func CortexMTags() []byte {
	return []byte{
		elf.ARMTagCPUName, 'c', 'o', 'r', 't', 'e', 'x', '-', 'm', '4', 0,
		elf.ARMTagCPUArch, 13,
		elf.ARMTagCPUArchProfile, 'M',
		elf.ARMTagTHUMBISAUse, 2,
		elf.ARMTagFPArch, 6,
		elf.ARMTagABIVFPArgs, 1,
	}
}
