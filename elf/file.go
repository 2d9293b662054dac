package elf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Resources:
// https://refspecs.linuxfoundation.org/

type File struct {
	ElfHeader
	Sections       []Section
	ProgramHeaders []ProgramHeaderEntry

	// Problems recovered while parsing auxiliary structures (bad names,
	// truncated sections, dangling links).  The affected entries are kept
	// with absent values.
	Diagnostics []error

	reader Reader
}

func (file *File) ByteOrder() binary.ByteOrder {
	return file.reader.ByteOrder
}

// Reader returns a bounds checked reader over the whole file.
func (file *File) Reader() Reader {
	return file.reader
}

func (file *File) Is64() bool {
	return file.Class == Class64
}

// AddressSize returns the size of a target address in bytes.
func (file *File) AddressSize() int {
	if file.Is64() {
		return 8
	}
	return 4
}

// GetSection returns the first section with the given name, or nil.
func (file *File) GetSection(name string) Section {
	for _, section := range file.Sections {
		if section.Name() == name {
			return section
		}
	}

	return nil
}

func (file *File) SectionAt(index SectionIndex) (Section, bool) {
	if index.IsReserved() || int(index) >= len(file.Sections) {
		return nil, false
	}

	return file.Sections[index], true
}

func (file *File) SectionsOfType(sectionType SectionType) []Section {
	result := []Section{}
	for _, section := range file.Sections {
		if section.Header().SectionType == sectionType {
			result = append(result, section)
		}
	}
	return result
}

// SectionContaining returns the allocated section whose virtual address
// range contains address.
func (file *File) SectionContaining(address FileAddress) Section {
	for _, section := range file.Sections {
		hdr := section.Header()
		if !hdr.SectionFlags.IsAllocated() || hdr.Size == 0 {
			continue
		}

		start := FileAddress(hdr.Address)
		if start <= address && address < start+FileAddress(hdr.Size) {
			return section
		}
	}

	return nil
}

type parser struct {
	reader Reader

	File
}

func Parse(reader io.Reader) (*File, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read elf file: %w", err)
	}

	return ParseBytes(content)
}

// ParseBytes parses content in place.  The returned file (and every section
// derived from it) references content directly; content must not be
// modified afterwards.
func ParseBytes(content []byte) (*File, error) {
	p := parser{
		// e_ident is byte oriented.  The actual byte order is selected once
		// the identifier is decoded.
		reader: NewReader(binary.LittleEndian, content),
	}

	err := p.parse()
	if err != nil {
		return nil, err
	}

	p.File.reader = p.reader
	return &p.File, nil
}

func (p *parser) diagnose(err error) {
	p.Diagnostics = append(p.Diagnostics, err)
}

func (p *parser) parse() error {
	// NOTE: identifier (e_ident) has no endian-ness.  We must parse identifier
	// to determine the elf file's endian-ness (including the elf header).
	err := p.parseIdentifier()
	if err != nil {
		return err
	}

	err = p.parseHeader()
	if err != nil {
		return err
	}

	err = p.parseSectionHeaders()
	if err != nil {
		return err
	}

	err = p.parseProgramHeaders()
	if err != nil {
		return err
	}

	return nil
}

func (p *parser) parseIdentifier() error {
	id := Identifier{}

	err := p.reader.Decode(0, &id)
	if err != nil {
		return fmt.Errorf(
			"%w: failed to parse identifier: %w",
			ErrInvalidMagic,
			err)
	}

	if !bytes.Equal(id.Magic[:], IdentifierMagic) {
		return fmt.Errorf("%w (% x)", ErrInvalidMagic, id.Magic[:])
	}

	if id.Class != Class32 && id.Class != Class64 {
		return fmt.Errorf("%w: %s", ErrUnsupportedClass, id.Class)
	}

	switch id.DataEncoding {
	case DataEncodingTwosComplementLittleEndian:
		p.reader.ByteOrder = binary.LittleEndian
	case DataEncodingTwosComplementBigEndian:
		p.reader.ByteOrder = binary.BigEndian
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDataEncoding, id.DataEncoding)
	}

	if id.IdentifierVersion != IdentifierVersion {
		return fmt.Errorf(
			"unsupported identifier version: %d",
			id.IdentifierVersion)
	}

	p.Identifier = id
	return nil
}

func (p *parser) parseHeader() error {
	header, err := decodeHeader(p.reader, p.Identifier)
	if err != nil {
		return fmt.Errorf("failed to parse %s header: %w", p.Class, err)
	}
	p.ElfHeader = header

	if p.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported format version: %d", p.FormatVersion)
	}

	if p.NumProgramHeaderEntries > 0 &&
		int(p.ProgramHeaderEntrySize) < p.Class.programHeaderEntrySize() {

		return fmt.Errorf(
			"unexpected %s program header entry size (e_phentsize): %d",
			p.Class,
			p.ProgramHeaderEntrySize)
	}

	if p.SectionHeaderOffset > 0 &&
		int(p.SectionHeaderEntrySize) < p.Class.sectionHeaderEntrySize() {

		return fmt.Errorf(
			"unexpected %s section header entry size (e_shentsize): %d",
			p.Class,
			p.SectionHeaderEntrySize)
	}

	return nil
}

func (p *parser) sectionHeaderAt(idx uint64) (SectionHeaderEntry, error) {
	offset := p.SectionHeaderOffset + idx*uint64(p.SectionHeaderEntrySize)
	header, err := decodeSectionHeader(p.reader, p.Class, offset)
	if err != nil {
		return header, fmt.Errorf(
			"failed to read section header %d (e_shoff=%#x): %w",
			idx,
			p.SectionHeaderOffset,
			err)
	}
	return header, nil
}

// Returns the number of section header entries and the section name string
// table index, taking extended section numbering into account.
//
// https://docs.oracle.com/en/operating-systems/solaris/oracle-solaris/11.4/linkers-libraries/extended-section-header.html
func (p *parser) sectionCounts() (uint64, SectionIndex, error) {
	numEntries := uint64(p.NumSectionHeaderEntries)
	nameTableIndex := p.SectionStringTableIndex

	if p.SectionHeaderOffset == 0 {
		return 0, SectionIndexUndefined, nil
	}

	if numEntries != 0 &&
		nameTableIndex != SectionIndexExtendedHeld {

		return numEntries, nameTableIndex, nil
	}

	first, err := p.sectionHeaderAt(0)
	if err != nil {
		return 0, 0, err
	}

	if numEntries == 0 {
		numEntries = first.Size
	}

	if nameTableIndex == SectionIndexExtendedHeld {
		nameTableIndex = SectionIndex(first.Link)
	}

	return numEntries, nameTableIndex, nil
}

func (p *parser) parseSectionHeaders() error {
	numEntries, nameTableIndex, err := p.sectionCounts()
	if err != nil {
		return err
	}

	if numEntries == 0 {
		return nil
	}

	tableSize := numEntries * uint64(p.SectionHeaderEntrySize)
	_, err = p.reader.Slice(p.SectionHeaderOffset, tableSize)
	if err != nil {
		return fmt.Errorf(
			"out of bound section header table (e_shoff=%#x, e_shnum=%d): %w",
			p.SectionHeaderOffset,
			numEntries,
			err)
	}

	for idx := uint64(0); idx < numEntries; idx++ {
		header, err := p.sectionHeaderAt(idx)
		if err != nil {
			return err
		}

		index := SectionIndex(idx)

		var sectionContent []byte
		if header.SectionType.HasContent() {
			sectionContent, err = p.reader.Slice(header.Offset, header.Size)
			if err != nil {
				p.diagnose(fmt.Errorf("section %d content: %w", idx, err))
				sectionContent = nil
			}
		}

		switch header.SectionType {
		case SectionTypeStringTable:
			p.Sections = append(
				p.Sections,
				NewStringTableSection(index, header, sectionContent))
		case SectionTypeSymbolTable,
			SectionTypeDynamicSymbolTable:

			table, err := p.parseSymbolTable(index, header, sectionContent)
			if err != nil {
				p.diagnose(err)
				p.Sections = append(
					p.Sections,
					newRawSection(index, header, sectionContent))
				continue
			}
			p.Sections = append(p.Sections, table)
		case SectionTypeNote:
			note, err := p.parseNote(index, header, sectionContent)
			if err != nil {
				p.diagnose(err)
				p.Sections = append(
					p.Sections,
					newRawSection(index, header, sectionContent))
				continue
			}
			p.Sections = append(p.Sections, note)
		default:
			p.Sections = append(
				p.Sections,
				newRawSection(index, header, sectionContent))
		}
	}

	// Bind section names
	if nameTableIndex != SectionIndexUndefined {
		idx := int(nameTableIndex)
		if idx >= len(p.Sections) {
			p.diagnose(
				fmt.Errorf(
					"%w: section name table index (e_shstrndx=%d) out of bound (%d)",
					ErrMalformedStringTable,
					idx,
					len(p.Sections)))
		} else if table, ok := p.Sections[idx].(*StringTableSection); !ok {
			p.diagnose(
				fmt.Errorf(
					"%w: section name table index (e_shstrndx=%d) does not "+
						"point to a string table",
					ErrMalformedStringTable,
					idx))
		} else {
			for _, section := range p.Sections {
				err := section.BindSectionNameTable(table)
				if err != nil {
					p.diagnose(err)
				}
			}
		}
	}

	// Validate / bind sh_link section
	// See elf spec. Figure 1-12. sh_link and sh_info Interpretation.
	for _, section := range p.Sections {
		hdr := section.Header()

		if hdr.Link == 0 { // section 0 is always undefined
			continue
		}

		switch hdr.SectionType {
		case SectionTypeDynamic,
			SectionTypeSymbolTable,
			SectionTypeDynamicSymbolTable:

			if hdr.Link >= uint32(len(p.Sections)) {
				p.diagnose(
					fmt.Errorf(
						"section %d (%s) string table link out of bound (%d >= %d)",
						section.Index(),
						section.Name(),
						hdr.Link,
						len(p.Sections)))
				continue
			}

			table, ok := p.Sections[hdr.Link].(*StringTableSection)
			if !ok {
				p.diagnose(
					fmt.Errorf(
						"section %d (%s) link (%d) does not point to a string table",
						section.Index(),
						section.Name(),
						hdr.Link))
				continue
			}

			err := section.BindStringTable(table)
			if err != nil {
				p.diagnose(err)
			}
		case SectionTypeSymbolHashTable,
			SectionTypeRelocationWithAddends,
			SectionTypeRelocationNoAddends:

			if hdr.Link >= uint32(len(p.Sections)) {
				p.diagnose(
					fmt.Errorf(
						"section %d (%s) symbol table link out of bound (%d >= %d)",
						section.Index(),
						section.Name(),
						hdr.Link,
						len(p.Sections)))
				continue
			}

			_, ok := p.Sections[hdr.Link].(*SymbolTableSection)
			if !ok {
				p.diagnose(
					fmt.Errorf(
						"section %d (%s) link (%d) does not point to a symbol table",
						section.Index(),
						section.Name(),
						hdr.Link))
			}
		}
	}

	return nil
}

func (p *parser) parseSymbolTable(
	index SectionIndex,
	header SectionHeaderEntry,
	content []byte,
) (
	*SymbolTableSection,
	error,
) {
	entrySize := uint64(p.Class.SymbolEntrySize())
	if header.EntrySize != 0 && header.EntrySize < entrySize {
		return nil, fmt.Errorf(
			"invalid symbol table %d entry size (%d)",
			index,
			header.EntrySize)
	} else if header.EntrySize != 0 {
		entrySize = header.EntrySize
	}

	if uint64(len(content))%entrySize != 0 {
		return nil, fmt.Errorf(
			"invalid symbol table %d size (%d)",
			index,
			len(content))
	}

	table := &SymbolTableSection{
		BaseSection: newBaseSection(index, header, content),
	}

	reader := NewReader(p.reader.ByteOrder, content)
	numEntries := uint64(len(content)) / entrySize

	symbols := make([]*Symbol, 0, numEntries)
	for idx := uint64(0); idx < numEntries; idx++ {
		entry, err := decodeSymbolEntry(reader, p.Class, idx*entrySize)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to parse symbol table %d entry %d: %w",
				index,
				idx,
				err)
		}

		symbols = append(
			symbols,
			&Symbol{
				SymbolEntry: entry,
				Parent:      table,
				Index:       int(idx),
			})
	}

	table.Symbols = symbols
	return table, nil
}

func (p *parser) parseProgramHeaders() error {
	if p.NumProgramHeaderEntries == 0 {
		return nil
	}

	tableSize := uint64(p.NumProgramHeaderEntries) *
		uint64(p.ProgramHeaderEntrySize)
	_, err := p.reader.Slice(p.ProgramHeaderOffset, tableSize)
	if err != nil {
		return fmt.Errorf(
			"out of bound program header table (e_phoff=%#x, e_phnum=%d): %w",
			p.ProgramHeaderOffset,
			p.NumProgramHeaderEntries,
			err)
	}

	programHeaders := make(
		[]ProgramHeaderEntry,
		0,
		p.NumProgramHeaderEntries)
	for idx := uint64(0); idx < uint64(p.NumProgramHeaderEntries); idx++ {
		offset := p.ProgramHeaderOffset + idx*uint64(p.ProgramHeaderEntrySize)
		header, err := decodeProgramHeader(p.reader, p.Class, offset)
		if err != nil {
			return fmt.Errorf("failed to read program header %d: %w", idx, err)
		}

		programHeaders = append(programHeaders, header)
	}

	p.ProgramHeaders = programHeaders
	return nil
}

func (p *parser) parseNote(
	index SectionIndex,
	header SectionHeaderEntry,
	sectionContent []byte,
) (
	*NoteSection,
	error,
) {
	entries := []NoteEntry{}

	// NOTE: even though Elf64_Nhdr is defined, it looks like tools continue to
	// use Elf32_Nhdr / 4-byte aligned note entries.
	content := sectionContent
	for len(content) > 0 {
		if len(content)%4 != 0 {
			return nil, fmt.Errorf(
				"failed to parse note section %d. not 4-byte aligned",
				index)
		}

		noteHdr := &NoteHeader{}
		n, err := binary.Decode(content, p.reader.ByteOrder, noteHdr)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to parse note section %d header: %w",
				index,
				err)
		}
		if n != NoteHeaderSize {
			panic("should never happen")
		}
		content = content[n:]

		if len(content) < int(noteHdr.NameSize) {
			return nil, fmt.Errorf(
				"failed to parse note section %d entry. not enough name bytes",
				index)
		}

		name := string(content[:noteHdr.NameSize])

		// make descStart 4 byte aligned.
		descStart := ((uint64(noteHdr.NameSize) + 3) / 4) * 4
		if uint64(len(content)) < descStart {
			return nil, fmt.Errorf(
				"failed to parse note section %d entry. not 4-byte aligned",
				index)
		}

		content = content[descStart:]

		if len(content) < int(noteHdr.DescriptionSize) {
			return nil, fmt.Errorf(
				"failed to parse note section %d entry. "+
					"not enough description bytes",
				index)
		}

		desc := string(content[:noteHdr.DescriptionSize])

		entries = append(
			entries,
			NoteEntry{
				Name:        name,
				Description: desc,
				Type:        noteHdr.Type,
			})

		// make nextEntryStart 4 byte aligned.
		nextEntryStart := ((uint64(noteHdr.DescriptionSize) + 3) / 4) * 4
		if uint64(len(content)) < nextEntryStart {
			nextEntryStart = uint64(len(content))
		}
		content = content[nextEntryStart:]
	}

	return newNoteSection(index, header, sectionContent, entries), nil
}
