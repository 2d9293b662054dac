// Based on linux's man page, elf.h, golang's debug/elf package,
// and the elf 1.2 spec.
package elf

import (
	"fmt"
)

var (
	// EI_MAG0 - EI_MAG3
	IdentifierMagic = []byte{
		0x7f, // ELFMAG0
		'E',  // ELFMAG1
		'L',  // ELFMAG2
		'F',  // ELFMAG3
	}
)

const (
	SectionStringTableIndexNotDefined = 0 // SHN_UNDEF

	IdentifierVersion = 1 // EI_CURRENT
	FormatVersion     = 1 // EV_CURRENT

	ElfIdentifierSize = 16

	Elf32HeaderSize             = 52
	Elf32SectionHeaderEntrySize = 40
	Elf32ProgramHeaderEntrySize = 32
	Elf32SymbolEntrySize        = 16

	Elf64HeaderSize             = 64
	Elf64SectionHeaderEntrySize = 64
	Elf64ProgramHeaderEntrySize = 56
	Elf64SymbolEntrySize        = 24

	// NOTE: Although Elf64_Nhdr is defined, it looks like elf64 files in general
	// still encode notes using Elf32_Nhdr.
	NoteHeaderSize = 12
)

// EI_CLASS
type Class byte

const (
	ClassNone = Class(0) // ELFCLASSNONE
	Class32   = Class(1) // ELFCLASS32
	Class64   = Class(2) // ELFCLASS64
)

func (class Class) String() string {
	switch class {
	case ClassNone:
		return "ClassNone"
	case Class32:
		return "ELF32"
	case Class64:
		return "ELF64"
	default:
		return fmt.Sprintf("ClassUnknown(%d)", class)
	}
}

// EI_DATA
type DataEncoding byte

const (
	DataEncodingNone                       = DataEncoding(0) // ELFDATANONE
	DataEncodingTwosComplementLittleEndian = DataEncoding(1) // ELFDATA2LSB
	DataEncodingTwosComplementBigEndian    = DataEncoding(2) // ELFDATA2MSB
)

func (encoding DataEncoding) String() string {
	switch encoding {
	case DataEncodingNone:
		return "DataEncodingNone"
	case DataEncodingTwosComplementLittleEndian:
		return "TwosComplementLittleEndian"
	case DataEncodingTwosComplementBigEndian:
		return "TwosComplementBigEndian"
	default:
		return fmt.Sprintf("DataEncodingUnknown(%d)", encoding)
	}
}

// EI_OSABI
// NOTE: golang's debug/elf.OSABI defines a more complete list
type OperatingSystemABI byte

const (
	OperatingSystemABIUnixSystemV = OperatingSystemABI(0)   // ELFOSABI_NONE
	OperatingSystemABILinux       = OperatingSystemABI(3)   // ELFOSABI_LINUX
	OperatingSystemABIFreeBSD     = OperatingSystemABI(9)   // ELFOSABI_FREEBSD
	OperatingSystemABIARMEABI     = OperatingSystemABI(64)  // ELFOSABI_ARM_AEABI
	OperatingSystemABIARM         = OperatingSystemABI(97)  // ELFOSABI_ARM
	OperatingSystemABIStandalone  = OperatingSystemABI(255) // ELFOSABI_STANDALONE
)

func (osAbi OperatingSystemABI) String() string {
	switch osAbi {
	case OperatingSystemABIUnixSystemV:
		return "UnixSystemV"
	case OperatingSystemABILinux:
		return "Linux"
	case OperatingSystemABIFreeBSD:
		return "FreeBSD"
	case OperatingSystemABIARMEABI:
		return "ARM EABI"
	case OperatingSystemABIARM:
		return "ARM"
	case OperatingSystemABIStandalone:
		return "Standalone"
	default:
		return fmt.Sprintf("OperatingSystemABIUnknown(%d)", osAbi)
	}
}

// e_type
type FileType uint16

const (
	FileTypeNone         = FileType(0) // ET_NONE
	FileTypeRelocatable  = FileType(1) // ET_REL
	FileTypeExecutable   = FileType(2) // ET_EXEC
	FileTypeSharedObject = FileType(3) // ET_DYN
	FileTypeCore         = FileType(4) // ET_CORE
)

func (ft FileType) String() string {
	switch ft {
	case FileTypeNone:
		return "FileTypeNone"
	case FileTypeRelocatable:
		return "Relocatable"
	case FileTypeExecutable:
		return "Executable"
	case FileTypeSharedObject:
		return "SharedObject"
	case FileTypeCore:
		return "Core"
	default:
		return fmt.Sprintf("FileTypeUnknown(%d)", ft)
	}
}

type ProgramType uint32

// see debug/elf for a more complete list
const (
	ProgramNull            = ProgramType(0)          // PT_NULL
	ProgramLoadable        = ProgramType(1)          // PT_LOAD
	ProgramDynamicLinking  = ProgramType(2)          // PT_DYNAMIC
	ProgramInterpreterPath = ProgramType(3)          // PT_INTERP
	ProgramNote            = ProgramType(4)          // PT_NOTE
	ProgramHeaderInfo      = ProgramType(6)          // PT_PHDR
	ProgramTLS             = ProgramType(7)          // PT_TLS
	ProgramGNUEHFrame      = ProgramType(0x6474e550) // PT_GNU_EH_FRAME
	ProgramGNUStack        = ProgramType(0x6474e551) // PT_GNU_STACK
	ProgramGNURelRO        = ProgramType(0x6474e552) // PT_GNU_RELRO
	ProgramARMExceptionIdx = ProgramType(0x70000001) // PT_ARM_EXIDX
)

func (segType ProgramType) String() string {
	switch segType {
	case ProgramNull:
		return "ProgramNull"
	case ProgramLoadable:
		return "Loadable"
	case ProgramDynamicLinking:
		return "DynamicLinking"
	case ProgramInterpreterPath:
		return "InterpreterPath"
	case ProgramNote:
		return "Note"
	case ProgramHeaderInfo:
		return "HeaderInfo"
	case ProgramTLS:
		return "TLS"
	case ProgramGNUEHFrame:
		return "GNUEHFrame"
	case ProgramGNUStack:
		return "GNUStack"
	case ProgramGNURelRO:
		return "GNURelRO"
	case ProgramARMExceptionIdx:
		return "ARMExceptionIndex"
	default:
		return fmt.Sprintf("ProgramUnknown(%#x)", uint32(segType))
	}
}

type ProgramFlags uint32

const (
	ProgramFlagExecutableBit = ProgramFlags(0x1)
	ProgramFlagWritableBit   = ProgramFlags(0x2)
	ProgramFlagReadableBit   = ProgramFlags(0x4)
)

func (bits ProgramFlags) String() string {
	if bits > 7 {
		return fmt.Sprintf("%#x", uint32(bits))
	}

	rwx := []byte{'-', '-', '-'}
	if bits&ProgramFlagReadableBit != 0 {
		rwx[0] = 'r'
	}

	if bits&ProgramFlagWritableBit != 0 {
		rwx[1] = 'w'
	}

	if bits&ProgramFlagExecutableBit != 0 {
		rwx[2] = 'x'
	}

	return string(rwx)
}

type SectionType uint32

const (
	SectionTypeNull                  = SectionType(0)          // SHT_NULL
	SectionTypeProgramDefinedInfo    = SectionType(1)          // SHT_PROGBITS
	SectionTypeSymbolTable           = SectionType(2)          // SHT_SYMTAB
	SectionTypeStringTable           = SectionType(3)          // SHT_STRTAB
	SectionTypeRelocationWithAddends = SectionType(4)          // SHT_RELA
	SectionTypeSymbolHashTable       = SectionType(5)          // SHT_HASH
	SectionTypeDynamic               = SectionType(6)          // SHT_DYNAMIC
	SectionTypeNote                  = SectionType(7)          // SHT_NOTE
	SectionTypeNoSpace               = SectionType(8)          // SHT_NOBITS
	SectionTypeRelocationNoAddends   = SectionType(9)          // SHT_REL
	SectionTypeDynamicSymbolTable    = SectionType(11)         // SHT_DYNSYM
	SectionTypeInitArray             = SectionType(14)         // SHT_INIT_ARRAY
	SectionTypeFiniArray             = SectionType(15)         // SHT_FINI_ARRAY
	SectionTypePreInitArray          = SectionType(16)         // SHT_PREINIT_ARRAY
	SectionTypeGroup                 = SectionType(17)         // SHT_GROUP
	SectionTypeExtendedIndices       = SectionType(18)         // SHT_SYMTAB_SHNDX
	SectionTypeGNUHash               = SectionType(0x6ffffff6) // SHT_GNU_HASH
	SectionTypeGNUVersionNeeded      = SectionType(0x6ffffffe) // SHT_GNU_verneed
	SectionTypeGNUVersionSymbols     = SectionType(0x6fffffff) // SHT_GNU_versym
	SectionTypeARMExceptionIndex     = SectionType(0x70000001) // SHT_ARM_EXIDX
	SectionTypeARMAttributes         = SectionType(0x70000003) // SHT_ARM_ATTRIBUTES
)

func (stype SectionType) String() string {
	switch stype {
	case SectionTypeNull:
		return "NULL"
	case SectionTypeProgramDefinedInfo:
		return "PROGBITS"
	case SectionTypeSymbolTable:
		return "SYMTAB"
	case SectionTypeStringTable:
		return "STRTAB"
	case SectionTypeRelocationWithAddends:
		return "RELA"
	case SectionTypeSymbolHashTable:
		return "HASH"
	case SectionTypeDynamic:
		return "DYNAMIC"
	case SectionTypeNote:
		return "NOTE"
	case SectionTypeNoSpace:
		return "NOBITS"
	case SectionTypeRelocationNoAddends:
		return "REL"
	case SectionTypeDynamicSymbolTable:
		return "DYNSYM"
	case SectionTypeInitArray:
		return "INIT_ARRAY"
	case SectionTypeFiniArray:
		return "FINI_ARRAY"
	case SectionTypePreInitArray:
		return "PREINIT_ARRAY"
	case SectionTypeGroup:
		return "GROUP"
	case SectionTypeExtendedIndices:
		return "SYMTAB_SHNDX"
	case SectionTypeGNUHash:
		return "GNU_HASH"
	case SectionTypeGNUVersionNeeded:
		return "VERNEED"
	case SectionTypeGNUVersionSymbols:
		return "VERSYM"
	case SectionTypeARMExceptionIndex:
		return "ARM_EXIDX"
	case SectionTypeARMAttributes:
		return "ARM_ATTRIBUTES"
	default:
		return fmt.Sprintf("SectionTypeUnknown(%#x)", uint32(stype))
	}
}

// HasContent returns false for section types which occupy no file space.
func (stype SectionType) HasContent() bool {
	return stype != SectionTypeNull && stype != SectionTypeNoSpace
}

type SectionFlags uint64

const (
	SectionContainsWritableData         = SectionFlags(0x1)   // SHF_WRITE
	SectionOccupiesMemory               = SectionFlags(0x2)   // SHF_ALLOC
	SectionContainsInstructions         = SectionFlags(0x4)   // SHF_EXECINSTR
	SectionMayBeMerged                  = SectionFlags(0x10)  // SHF_MERGE
	SectionContainsStrings              = SectionFlags(0x20)  // SHF_STRINGS
	SectionInfoHoldsSectionIndex        = SectionFlags(0x40)  // SHF_INFO_LINK
	SectionRequiresSpecialOrdering      = SectionFlags(0x80)  // SHF_LINK_ORDER
	SectionRequiresOsSpecificProcessing = SectionFlags(0x100) // SHF_OS_NONCONFORMING
	SectionIsGroupMember                = SectionFlags(0x200) // SHF_GROUP
	SectionContainsTLSData              = SectionFlags(0x400) // SHF_TLS
	SectionIsCompressed                 = SectionFlags(0x800) // SHF_COMPRESSED
)

func (flags SectionFlags) String() string {
	result := make([]byte, 11)
	for i := 0; i < 11; i++ {
		result[i] = '-'
	}

	if flags&SectionContainsWritableData != 0 {
		result[0] = 'w'
	}
	if flags&SectionOccupiesMemory != 0 {
		result[1] = 'a'
	}
	if flags&SectionContainsInstructions != 0 {
		result[2] = 'x'
	}
	if flags&SectionMayBeMerged != 0 {
		result[3] = 'm'
	}
	if flags&SectionContainsStrings != 0 {
		result[4] = 's'
	}
	if flags&SectionInfoHoldsSectionIndex != 0 {
		result[5] = 'i'
	}
	if flags&SectionRequiresSpecialOrdering != 0 {
		result[6] = 'l'
	}
	if flags&SectionRequiresOsSpecificProcessing != 0 {
		result[7] = 'o'
	}
	if flags&SectionIsGroupMember != 0 {
		result[8] = 'g'
	}
	if flags&SectionContainsTLSData != 0 {
		result[9] = 't'
	}
	if flags&SectionIsCompressed != 0 {
		result[10] = 'c'
	}

	return string(result)
}

func (flags SectionFlags) IsAllocated() bool {
	return flags&SectionOccupiesMemory != 0
}

func (flags SectionFlags) IsWritable() bool {
	return flags&SectionContainsWritableData != 0
}

func (flags SectionFlags) IsExecutable() bool {
	return flags&SectionContainsInstructions != 0
}

// e_machine
// NOTE: golang's debug/elf.Machine defines a more complete list of machine
// types.
type MachineArchitecture uint16

const (
	MachineArchitectureNone    = MachineArchitecture(0)   // EM_NONE
	MachineArchitecture386     = MachineArchitecture(3)   // EM_386
	MachineArchitectureMIPS    = MachineArchitecture(8)   // EM_MIPS
	MachineArchitecturePPC     = MachineArchitecture(20)  // EM_PPC
	MachineArchitectureARM     = MachineArchitecture(40)  // EM_ARM
	MachineArchitectureX86_64  = MachineArchitecture(62)  // EM_X86_64
	MachineArchitectureAVR     = MachineArchitecture(83)  // EM_AVR
	MachineArchitectureXtensa  = MachineArchitecture(94)  // EM_XTENSA
	MachineArchitectureMSP430  = MachineArchitecture(105) // EM_MSP430
	MachineArchitectureAArch64 = MachineArchitecture(183) // EM_AARCH64
	MachineArchitectureRISCV   = MachineArchitecture(243) // EM_RISCV
)

func (arch MachineArchitecture) String() string {
	switch arch {
	case MachineArchitectureNone:
		return "MachineArchitectureNone"
	case MachineArchitecture386:
		return "i386"
	case MachineArchitectureMIPS:
		return "MIPS"
	case MachineArchitecturePPC:
		return "PowerPC"
	case MachineArchitectureARM:
		return "ARM"
	case MachineArchitectureX86_64:
		return "x86-64"
	case MachineArchitectureAVR:
		return "AVR"
	case MachineArchitectureXtensa:
		return "Xtensa"
	case MachineArchitectureMSP430:
		return "MSP430"
	case MachineArchitectureAArch64:
		return "AArch64"
	case MachineArchitectureRISCV:
		return "RISC-V"
	default:
		return fmt.Sprintf("MachineArchitectureUnknown(%d)", arch)
	}
}

// The bottom 4 bits of st_info
type SymbolType byte

func SymbolInfoToType(info byte) SymbolType {
	return SymbolType(info & 0xf)
}

const (
	SymbolTypeNone                     = SymbolType(0)  // STT_NOTYPE
	SymbolTypeObject                   = SymbolType(1)  // STT_OBJECT
	SymbolTypeFunction                 = SymbolType(2)  // STT_FUNC
	SymbolTypeSection                  = SymbolType(3)  // STT_SECTION
	SymbolTypeSourceFile               = SymbolType(4)  // STT_FILE
	SymbolTypeUninitializedCommonBlock = SymbolType(5)  // STT_COMMON
	SymbolTypeTLSObject                = SymbolType(6)  // STT_TLS
	SymbolTypeIndirectFunction         = SymbolType(10) // STT_GNU_IFUNC
)

func (st SymbolType) String() string {
	switch st {
	case SymbolTypeNone:
		return "NoType"
	case SymbolTypeObject:
		return "Object"
	case SymbolTypeFunction:
		return "Function"
	case SymbolTypeSection:
		return "Section"
	case SymbolTypeSourceFile:
		return "SourceFile"
	case SymbolTypeUninitializedCommonBlock:
		return "UninitializedCommonBlock"
	case SymbolTypeTLSObject:
		return "TLSObject"
	case SymbolTypeIndirectFunction:
		return "IndirectFunction"
	default:
		return fmt.Sprintf("SymbolTypeUnknown(%d)", st)
	}
}

// The top 4 bits of st_info
type SymbolBinding byte

func SymbolInfoToBinding(info byte) SymbolBinding {
	return SymbolBinding(info >> 4)
}

const (
	SymbolBindingLocal  = SymbolBinding(0)  // STB_LOCAL
	SymbolBindingGlobal = SymbolBinding(1)  // STB_GLOBAL
	SymbolBindingWeak   = SymbolBinding(2)  // STB_WEAK
	SymbolBindingUnique = SymbolBinding(10) // STB_GNU_UNIQUE
)

func (sb SymbolBinding) String() string {
	switch sb {
	case SymbolBindingLocal:
		return "Local"
	case SymbolBindingGlobal:
		return "Global"
	case SymbolBindingWeak:
		return "Weak"
	case SymbolBindingUnique:
		return "Unique"
	default:
		return fmt.Sprintf("SymbolBindingUnknown(%d)", sb)
	}
}

type SymbolVisibility byte

const (
	SymbolVisibilityDefault   = SymbolVisibility(0) // STV_DEFAULT
	SymbolVisibilityInternal  = SymbolVisibility(1) // STV_INTERNAL
	SymbolVisibilityHidden    = SymbolVisibility(2) // STV_HIDDEN
	SymbolVisibilityProtected = SymbolVisibility(3) // STV_PROTECTED
)

func (vis SymbolVisibility) String() string {
	switch vis & 0x3 {
	case SymbolVisibilityDefault:
		return "Default"
	case SymbolVisibilityInternal:
		return "Internal"
	case SymbolVisibilityHidden:
		return "Hidden"
	case SymbolVisibilityProtected:
		return "Protected"
	}
	panic("should never happen")
}

type SectionIndex uint16

const (
	SectionIndexUndefined    = SectionIndex(0)      // SHN_UNDEF
	SectionIndexLowReserved  = SectionIndex(0xff00) // SHN_LORESERVE
	SectionIndexAbsolute     = SectionIndex(0xfff1) // SHN_ABS
	SectionIndexCommon       = SectionIndex(0xfff2) // SHN_COMMON
	SectionIndexExtendedHeld = SectionIndex(0xffff) // SHN_XINDEX

	SectionStringTableName = ".shstrtab"
	StringTableName        = ".strtab"
	SymbolTableName        = ".symtab"
	DynamicSymbolTableName = ".dynsym"
)

func (idx SectionIndex) IsReserved() bool {
	return idx >= SectionIndexLowReserved
}

func (idx SectionIndex) String() string {
	switch idx {
	case SectionIndexUndefined:
		return "UND"
	case SectionIndexAbsolute:
		return "ABS"
	case SectionIndexCommon:
		return "COM"
	case SectionIndexExtendedHeld:
		return "XINDEX"
	default:
		return fmt.Sprintf("%d", uint16(idx))
	}
}

// e_ident
type Identifier struct {
	Magic              [4]byte // EI_MAG0 ... EI_MAG3
	Class                      // EI_CLASS
	DataEncoding               // EI_DATA
	IdentifierVersion  byte    // EI_VERSION
	OperatingSystemABI         // EI_OSABI
	ABIVersion         byte    // EI_ABIVERSION
	Padding            [7]byte // EI_PAD
}

// Class independent elf header.  Field widths follow Elf64_Ehdr; elf32
// values are widened during parsing.
type ElfHeader struct {
	Identifier                           // e_ident[EI_NIDENT]
	FileType                             // e_type
	MachineArchitecture                  // e_machine
	FormatVersion           uint32       // e_version
	EntryPointAddress       uint64       // e_entry
	ProgramHeaderOffset     uint64       // e_phoff
	SectionHeaderOffset     uint64       // e_shoff
	ArchitectureFlags       uint32       // e_flags
	ElfHeaderSize           uint16       // e_ehsize
	ProgramHeaderEntrySize  uint16       // e_phentsize
	NumProgramHeaderEntries uint16       // e_phnum
	SectionHeaderEntrySize  uint16       // e_shentsize
	NumSectionHeaderEntries uint16       // e_shnum
	SectionStringTableIndex SectionIndex // e_shstrndx
}

// Class independent program header (Elf64_Phdr field widths).
type ProgramHeaderEntry struct {
	ProgramType            // p_type
	ProgramFlags           // p_flags
	ContentOffset   uint64 // p_offset
	VirtualAddress  uint64 // p_vaddr
	PhysicalAddress uint64 // p_paddr
	FileImageSize   uint64 // filesz
	MemoryImageSize uint64 // p_memsz
	Alignment       uint64 // p_align
}

// Class independent section header (Elf64_Shdr field widths).
type SectionHeaderEntry struct {
	NameIndex        uint32 // sh_name
	SectionType             // sh_type
	SectionFlags            // sh_flags
	Address          uint64 // sh_addr
	Offset           uint64 // sh_offset
	Size             uint64 // sh_size
	Link             uint32 // sh_link
	Info             uint32 // sh_info
	AddressAlignment uint64 // sh_addralign
	EntrySize        uint64 // sh_entsize
}

// Class independent symbol entry (Elf64_Sym field widths).
type SymbolEntry struct {
	NameIndex        uint32 // st_name
	Info             byte   // st_info.  (4 bits st_bind, 4 bits st_type)
	SymbolVisibility        // st_other
	SectionIndex            // st_shndx
	Value            uint64 // st_value
	Size             uint64 // st_size
}

// NOTE: Although Elf64_Nhdr is defined, it looks like notes in elf64 files
// are still encoded using Elf32_Nhdr.
// Elf32_Nhdr
type NoteHeader struct {
	NameSize        uint32
	DescriptionSize uint32
	Type            uint32
}
