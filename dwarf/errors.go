package dwarf

import (
	"fmt"
)

var (
	// Returned by a Visit enter function to skip the entry's children.
	ErrSkipVisitingChildren = fmt.Errorf("skip visiting children")

	ErrMalformedUnit = fmt.Errorf("malformed unit")
)
