package elf

import (
	"fmt"
)

var (
	ErrInvalidMagic            = fmt.Errorf("invalid elf magic number")
	ErrUnsupportedClass        = fmt.Errorf("unsupported elf class")
	ErrUnsupportedDataEncoding = fmt.Errorf("unsupported data encoding")
	ErrOutOfBounds             = fmt.Errorf("out of bound")
	ErrMalformedStringTable    = fmt.Errorf("malformed string table")
	ErrSectionNotFound         = fmt.Errorf("section not found")
)
