package core

import (
	"fmt"
	"strconv"
)

// NumberWidth is the fixed width of the zero-padded sequential number.
const NumberWidth = 8

// FirstNumber seeds a brand-new installation with no saved history.
const FirstNumber = 1234

// FormatNumber renders a sequential number zero-padded to NumberWidth,
// e.g. 1234 → "00001234".
func FormatNumber(n int64) string {
	return fmt.Sprintf("%0*d", NumberWidth, n)
}

// ParseNumber reads a formatted document number back into its integer value.
// Empty or non-numeric input is an error, so a fresh installation with no
// saved number never parses as zero.
func ParseNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid document number %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid document number %q", s)
	}
	return n, nil
}

// NextNumber derives the following draft's number from the last saved one,
// keeping the fixed width. A malformed input restarts the sequence at the
// installation seed rather than failing (permissive load policy).
func NextNumber(last string) string {
	n, err := ParseNumber(last)
	if err != nil {
		return FormatNumber(FirstNumber)
	}
	return FormatNumber(n + 1)
}
