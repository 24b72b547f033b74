package domain

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	RIBLength        = 24
	MaxPageSize      = 100
	DefaultPageSize  = 20
	DashboardPerPage = 10
)

// CanonicalRIB strips every whitespace rune from candidate.
func CanonicalRIB(candidate string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, candidate)
}

// ValidateRIB checks that candidate reduces to exactly 24 ASCII digits once
// whitespace is removed.
func ValidateRIB(candidate string) error {
	rib := CanonicalRIB(candidate)

	for _, r := range rib {
		if r < '0' || r > '9' {
			return ErrRIBFormat
		}
	}

	if len(rib) != RIBLength {
		return &RIBLengthError{Length: len(rib)}
	}

	return nil
}

// ValidateAmount validates a transfer amount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// ValidatePageIndex rejects page indexes that are negative or whose row
// offset does not fit in an int for pages of size rows.
func ValidatePageIndex(page, size int) error {
	if _, ok := PageOffset(page, size); !ok {
		return fmt.Errorf("%w (got %d)", ErrInvalidPage, page)
	}
	return nil
}

// PageOffset returns page*size, or false when page is negative or the
// product overflows.
func PageOffset(page, size int) (int, bool) {
	if page < 0 || size < 0 {
		return 0, false
	}
	if size > 0 && page > math.MaxInt/size {
		return 0, false
	}
	return page * size, true
}

// TotalPages returns ceil(total / size).
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
