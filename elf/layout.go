package elf

// On-disk layouts.  These are only used for (de-)serialization; the parser
// widens everything into the class independent structs in header.go.

// Elf32_Ehdr (without e_ident)
type header32 struct {
	FileType                FileType
	MachineArchitecture     MachineArchitecture
	FormatVersion           uint32
	EntryPointAddress       uint32
	ProgramHeaderOffset     uint32
	SectionHeaderOffset     uint32
	ArchitectureFlags       uint32
	ElfHeaderSize           uint16
	ProgramHeaderEntrySize  uint16
	NumProgramHeaderEntries uint16
	SectionHeaderEntrySize  uint16
	NumSectionHeaderEntries uint16
	SectionStringTableIndex SectionIndex
}

// Elf64_Ehdr (without e_ident)
type header64 struct {
	FileType                FileType
	MachineArchitecture     MachineArchitecture
	FormatVersion           uint32
	EntryPointAddress       uint64
	ProgramHeaderOffset     uint64
	SectionHeaderOffset     uint64
	ArchitectureFlags       uint32
	ElfHeaderSize           uint16
	ProgramHeaderEntrySize  uint16
	NumProgramHeaderEntries uint16
	SectionHeaderEntrySize  uint16
	NumSectionHeaderEntries uint16
	SectionStringTableIndex SectionIndex
}

// Elf32_Shdr
type sectionHeader32 struct {
	NameIndex        uint32
	SectionType      SectionType
	SectionFlags     uint32
	Address          uint32
	Offset           uint32
	Size             uint32
	Link             uint32
	Info             uint32
	AddressAlignment uint32
	EntrySize        uint32
}

// Elf64_Shdr
type sectionHeader64 struct {
	NameIndex        uint32
	SectionType      SectionType
	SectionFlags     uint64
	Address          uint64
	Offset           uint64
	Size             uint64
	Link             uint32
	Info             uint32
	AddressAlignment uint64
	EntrySize        uint64
}

// Elf32_Phdr.  NOTE: p_flags moved in elf64.
type programHeader32 struct {
	ProgramType     ProgramType
	ContentOffset   uint32
	VirtualAddress  uint32
	PhysicalAddress uint32
	FileImageSize   uint32
	MemoryImageSize uint32
	ProgramFlags    ProgramFlags
	Alignment       uint32
}

// Elf64_Phdr
type programHeader64 struct {
	ProgramType     ProgramType
	ProgramFlags    ProgramFlags
	ContentOffset   uint64
	VirtualAddress  uint64
	PhysicalAddress uint64
	FileImageSize   uint64
	MemoryImageSize uint64
	Alignment       uint64
}

// Elf32_Sym.  NOTE: field order differs from elf64.
type symbol32 struct {
	NameIndex        uint32
	Value            uint32
	Size             uint32
	Info             byte
	SymbolVisibility SymbolVisibility
	SectionIndex     SectionIndex
}

// Elf64_Sym
type symbol64 struct {
	NameIndex        uint32
	Info             byte
	SymbolVisibility SymbolVisibility
	SectionIndex     SectionIndex
	Value            uint64
	Size             uint64
}

func (class Class) headerSize() int {
	if class == Class64 {
		return Elf64HeaderSize
	}
	return Elf32HeaderSize
}

func (class Class) sectionHeaderEntrySize() int {
	if class == Class64 {
		return Elf64SectionHeaderEntrySize
	}
	return Elf32SectionHeaderEntrySize
}

func (class Class) programHeaderEntrySize() int {
	if class == Class64 {
		return Elf64ProgramHeaderEntrySize
	}
	return Elf32ProgramHeaderEntrySize
}

// SymbolEntrySize returns the on-disk symbol entry size for the class.
func (class Class) SymbolEntrySize() int {
	if class == Class64 {
		return Elf64SymbolEntrySize
	}
	return Elf32SymbolEntrySize
}

func decodeHeader(reader Reader, id Identifier) (ElfHeader, error) {
	header := ElfHeader{
		Identifier: id,
	}

	if id.Class == Class64 {
		raw := header64{}
		err := reader.Decode(ElfIdentifierSize, &raw)
		if err != nil {
			return header, err
		}

		header.FileType = raw.FileType
		header.MachineArchitecture = raw.MachineArchitecture
		header.FormatVersion = raw.FormatVersion
		header.EntryPointAddress = raw.EntryPointAddress
		header.ProgramHeaderOffset = raw.ProgramHeaderOffset
		header.SectionHeaderOffset = raw.SectionHeaderOffset
		header.ArchitectureFlags = raw.ArchitectureFlags
		header.ElfHeaderSize = raw.ElfHeaderSize
		header.ProgramHeaderEntrySize = raw.ProgramHeaderEntrySize
		header.NumProgramHeaderEntries = raw.NumProgramHeaderEntries
		header.SectionHeaderEntrySize = raw.SectionHeaderEntrySize
		header.NumSectionHeaderEntries = raw.NumSectionHeaderEntries
		header.SectionStringTableIndex = raw.SectionStringTableIndex
		return header, nil
	}

	raw := header32{}
	err := reader.Decode(ElfIdentifierSize, &raw)
	if err != nil {
		return header, err
	}

	header.FileType = raw.FileType
	header.MachineArchitecture = raw.MachineArchitecture
	header.FormatVersion = raw.FormatVersion
	header.EntryPointAddress = uint64(raw.EntryPointAddress)
	header.ProgramHeaderOffset = uint64(raw.ProgramHeaderOffset)
	header.SectionHeaderOffset = uint64(raw.SectionHeaderOffset)
	header.ArchitectureFlags = raw.ArchitectureFlags
	header.ElfHeaderSize = raw.ElfHeaderSize
	header.ProgramHeaderEntrySize = raw.ProgramHeaderEntrySize
	header.NumProgramHeaderEntries = raw.NumProgramHeaderEntries
	header.SectionHeaderEntrySize = raw.SectionHeaderEntrySize
	header.NumSectionHeaderEntries = raw.NumSectionHeaderEntries
	header.SectionStringTableIndex = raw.SectionStringTableIndex
	return header, nil
}

func decodeSectionHeader(
	reader Reader,
	class Class,
	offset uint64,
) (
	SectionHeaderEntry,
	error,
) {
	if class == Class64 {
		raw := sectionHeader64{}
		err := reader.Decode(offset, &raw)
		if err != nil {
			return SectionHeaderEntry{}, err
		}

		return SectionHeaderEntry{
			NameIndex:        raw.NameIndex,
			SectionType:      raw.SectionType,
			SectionFlags:     SectionFlags(raw.SectionFlags),
			Address:          raw.Address,
			Offset:           raw.Offset,
			Size:             raw.Size,
			Link:             raw.Link,
			Info:             raw.Info,
			AddressAlignment: raw.AddressAlignment,
			EntrySize:        raw.EntrySize,
		}, nil
	}

	raw := sectionHeader32{}
	err := reader.Decode(offset, &raw)
	if err != nil {
		return SectionHeaderEntry{}, err
	}

	return SectionHeaderEntry{
		NameIndex:        raw.NameIndex,
		SectionType:      raw.SectionType,
		SectionFlags:     SectionFlags(raw.SectionFlags),
		Address:          uint64(raw.Address),
		Offset:           uint64(raw.Offset),
		Size:             uint64(raw.Size),
		Link:             raw.Link,
		Info:             raw.Info,
		AddressAlignment: uint64(raw.AddressAlignment),
		EntrySize:        uint64(raw.EntrySize),
	}, nil
}

func decodeProgramHeader(
	reader Reader,
	class Class,
	offset uint64,
) (
	ProgramHeaderEntry,
	error,
) {
	if class == Class64 {
		raw := programHeader64{}
		err := reader.Decode(offset, &raw)
		if err != nil {
			return ProgramHeaderEntry{}, err
		}

		return ProgramHeaderEntry{
			ProgramType:     raw.ProgramType,
			ProgramFlags:    raw.ProgramFlags,
			ContentOffset:   raw.ContentOffset,
			VirtualAddress:  raw.VirtualAddress,
			PhysicalAddress: raw.PhysicalAddress,
			FileImageSize:   raw.FileImageSize,
			MemoryImageSize: raw.MemoryImageSize,
			Alignment:       raw.Alignment,
		}, nil
	}

	raw := programHeader32{}
	err := reader.Decode(offset, &raw)
	if err != nil {
		return ProgramHeaderEntry{}, err
	}

	return ProgramHeaderEntry{
		ProgramType:     raw.ProgramType,
		ProgramFlags:    raw.ProgramFlags,
		ContentOffset:   uint64(raw.ContentOffset),
		VirtualAddress:  uint64(raw.VirtualAddress),
		PhysicalAddress: uint64(raw.PhysicalAddress),
		FileImageSize:   uint64(raw.FileImageSize),
		MemoryImageSize: uint64(raw.MemoryImageSize),
		Alignment:       uint64(raw.Alignment),
	}, nil
}

func decodeSymbolEntry(
	reader Reader,
	class Class,
	offset uint64,
) (
	SymbolEntry,
	error,
) {
	if class == Class64 {
		raw := symbol64{}
		err := reader.Decode(offset, &raw)
		if err != nil {
			return SymbolEntry{}, err
		}

		return SymbolEntry{
			NameIndex:        raw.NameIndex,
			Info:             raw.Info,
			SymbolVisibility: raw.SymbolVisibility,
			SectionIndex:     raw.SectionIndex,
			Value:            raw.Value,
			Size:             raw.Size,
		}, nil
	}

	raw := symbol32{}
	err := reader.Decode(offset, &raw)
	if err != nil {
		return SymbolEntry{}, err
	}

	return SymbolEntry{
		NameIndex:        raw.NameIndex,
		Info:             raw.Info,
		SymbolVisibility: raw.SymbolVisibility,
		SectionIndex:     raw.SectionIndex,
		Value:            uint64(raw.Value),
		Size:             uint64(raw.Size),
	}, nil
}
