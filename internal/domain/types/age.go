// Package types contains common types used across the application.
package types

import (
	"fmt"
	"strings"
)

// AgeCategory is the coarse age bucket assigned to a face.
// The zero value is not a valid category.
type AgeCategory int

// Ordered age buckets.
const (
	Young AgeCategory = iota + 1
	MiddleAged
	Old
)

// Categories lists every valid category in ascending order.
var Categories = []AgeCategory{Young, MiddleAged, Old}

// String returns the machine name used in metrics labels and JSON.
func (c AgeCategory) String() string {
	switch c {
	case Young:
		return "young"
	case MiddleAged:
		return "middle_aged"
	case Old:
		return "old"
	default:
		return fmt.Sprintf("AgeCategory(%d)", int(c))
	}
}

// Label returns the human readable label drawn on the overlay.
func (c AgeCategory) Label() string {
	switch c {
	case Young:
		return "Young"
	case MiddleAged:
		return "Middle-aged"
	case Old:
		return "Old"
	default:
		return "Unknown"
	}
}

// Valid reports whether c is one of the three buckets.
func (c AgeCategory) Valid() bool {
	return c >= Young && c <= Old
}

// MarshalText implements encoding.TextMarshaler.
func (c AgeCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid age category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *AgeCategory) UnmarshalText(b []byte) error {
	parsed, err := ParseAgeCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseAgeCategory parses the machine name of a category (case-insensitive).
func ParseAgeCategory(s string) (AgeCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "young":
		return Young, nil
	case "middle_aged":
		return MiddleAged, nil
	case "old":
		return Old, nil
	}
	return 0, fmt.Errorf("unknown age category: %q", s)
}
