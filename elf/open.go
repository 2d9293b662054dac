package elf

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// MappedFile is a parsed elf file whose content is backed by a read only
// memory mapping of the file on disk.
type MappedFile struct {
	*File

	mapped []byte
}

// Open memory maps the file at path and parses it.  When the file can't be
// mapped (e.g., empty file or special file), the content is read into memory
// instead.
func Open(path string) (*MappedFile, error) {
	osFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer osFile.Close()

	info, err := osFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var content []byte
	var mapped []byte
	if info.Mode().IsRegular() && info.Size() > 0 {
		mapped, err = unix.Mmap(
			int(osFile.Fd()),
			0,
			int(info.Size()),
			unix.PROT_READ,
			unix.MAP_PRIVATE)
		if err == nil {
			content = mapped
		} else {
			mapped = nil
		}
	}

	if content == nil {
		content, err = io.ReadAll(osFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	file, err := ParseBytes(content)
	if err != nil {
		if mapped != nil {
			_ = unix.Munmap(mapped)
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &MappedFile{
		File:   file,
		mapped: mapped,
	}, nil
}

// Close releases the mapping.  The file, and every section / slice derived
// from it, must not be used afterwards.
func (file *MappedFile) Close() error {
	if file.mapped == nil {
		return nil
	}

	mapped := file.mapped
	file.mapped = nil

	err := unix.Munmap(mapped)
	if err != nil {
		return fmt.Errorf("failed to unmap elf file: %w", err)
	}
	return nil
}
