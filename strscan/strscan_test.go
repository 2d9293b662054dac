package strscan

import (
	"encoding/binary"
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/pattyshack/gt/testing/suite"

	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/elf/elftest"
)

type StrscanSuite struct{}

func TestStrscan(t *testing.T) {
	suite.RunTests(t, &StrscanSuite{})
}

func (StrscanSuite) newFile(sections ...elftest.Section) *elf.File {
	builder := elftest.NewBuilder(
		elf.Class32,
		binary.BigEndian,
		elf.MachineArchitectureARM)
	for _, section := range sections {
		builder.AddSection(section)
	}
	return builder.Parse()
}

func texts(matches []Match) []string {
	result := []string{}
	for _, match := range matches {
		result = append(result, match.Text)
	}
	return result
}

func (s StrscanSuite) TestMinLength(t *testing.T) {
	file := s.newFile(
		elftest.Section{
			Name:    ".rodata",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory,
			Content: []byte("ABCD\x00ok\x00"),
		})

	matches := Extract(file, 3)
	expect.Equal(t, 1, len(matches))
	expect.Equal(t, "ABCD", matches[0].Text)
	expect.Equal(t, 4, matches[0].Length())
	expect.Equal(t, ".rodata", matches[0].SectionName)

	matches = Extract(file, 2)
	expect.Equal(t, []string{"ok", "ABCD"}, texts(matches))
}

func (s StrscanSuite) TestSectionSelection(t *testing.T) {
	file := s.newFile(
		elftest.Section{
			Name:    ".text",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Content: []byte("code string"),
		},
		elftest.Section{
			Name:    ".data",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsWritableData,
			Content: []byte("\x01\x02hello world\xffbye!"),
		},
		elftest.Section{
			Name:    ".comment",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Content: []byte("GCC: (GNU) 13.2.0"),
		},
		elftest.Section{
			Name:  ".bss",
			Type:  elf.SectionTypeNoSpace,
			Flags: elf.SectionOccupiesMemory | elf.SectionContainsWritableData,
			Size:  0x100,
		},
		elftest.Section{
			Name:    ".rodata",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory,
			Content: []byte("usage: blink\ntail"),
		})

	scanned := Scan(file, DefaultMinLength)
	expect.Equal(
		t,
		[]string{"hello world", "bye!", "usage: blink", "tail"},
		texts(scanned))

	extracted := Extract(file, DefaultMinLength)
	expect.Equal(
		t,
		[]string{"bye!", "tail", "hello world", "usage: blink"},
		texts(extracted))
}

func (s StrscanSuite) TestRoundTrip(t *testing.T) {
	file := s.newFile(
		elftest.Section{
			Name:    ".data",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsWritableData,
			Content: []byte("\x00\x00first\x00\x7fsecond one\x00last"),
		},
		elftest.Section{
			Name:    ".rodata",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory,
			Content: []byte("\x10\x10\x10 tabs\tare not printable"),
		})

	matches := Extract(file, DefaultMinLength)
	expect.Equal(t, 5, len(matches))

	reader := file.Reader()
	for _, match := range matches {
		content, err := reader.Slice(match.Offset, uint64(match.Length()))
		expect.Nil(t, err)
		expect.Equal(t, match.Text, string(content))

		section, ok := file.SectionAt(match.SectionIndex)
		expect.True(t, ok)
		expect.Equal(t, match.SectionName, section.Name())
	}
}

func (s StrscanSuite) TestEmpty(t *testing.T) {
	file := s.newFile()
	expect.Equal(t, 0, len(Scan(file, DefaultMinLength)))
}
