// Package strscan finds printable ascii runs in a file's data sections
// (similar to `strings -d`).
package strscan

import (
	"sort"

	"github.com/pattyshack/elfscope/elf"
)

const (
	DefaultMinLength = 4

	minPrintable = 0x20
	maxPrintable = 0x7e
)

type Match struct {
	Offset       uint64 // file offset of the first byte
	SectionIndex elf.SectionIndex
	SectionName  string
	Text         string
}

func (match Match) Length() int {
	return len(match.Text)
}

func isPrintable(b byte) bool {
	return minPrintable <= b && b <= maxPrintable
}

// IsScanned returns true for allocatable, non-executable sections with file
// content.
func IsScanned(header elf.SectionHeaderEntry) bool {
	return header.SectionFlags.IsAllocated() &&
		!header.SectionFlags.IsExecutable() &&
		header.SectionType.HasContent()
}

// Scan returns the printable runs of at least minLength bytes in scan order
// (section order, then offset order).  Sections whose content can't be read
// are skipped.
func Scan(file *elf.File, minLength int) []Match {
	if minLength < 1 {
		minLength = 1
	}

	matches := []Match{}
	for _, section := range file.Sections {
		header := section.Header()
		if !IsScanned(header) {
			continue
		}

		content, err := section.RawContent()
		if err != nil {
			continue
		}

		start := -1
		emit := func(end int) {
			if start >= 0 && end-start >= minLength {
				matches = append(
					matches,
					Match{
						Offset:       header.Offset + uint64(start),
						SectionIndex: section.Index(),
						SectionName:  section.Name(),
						Text:         string(content[start:end]),
					})
			}
			start = -1
		}

		for idx, b := range content {
			if isPrintable(b) {
				if start < 0 {
					start = idx
				}
				continue
			}

			emit(idx)
		}
		emit(len(content))
	}

	return matches
}

// Extract returns the scan results ordered ascending by length, ties in
// scan order.
func Extract(file *elf.File, minLength int) []Match {
	matches := Scan(file, minLength)
	sort.SliceStable(
		matches,
		func(i int, j int) bool {
			return len(matches[i].Text) < len(matches[j].Text)
		})
	return matches
}
