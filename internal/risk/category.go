// Package risk holds the ordinal risk categories and the assessment record
// produced by the medication safety pipeline.
package risk

import (
	"fmt"
	"strings"
)

// Category is an ordinal medication risk classification
type Category int

const (
	Safe Category = iota
	Caution
	HighRisk
	Contraindicated
)

// CategoryError marks a check that could not render a verdict. It sits
// outside the ordering and is never produced by reconciliation.
const CategoryError Category = -1

var categoryNames = map[Category]string{
	Safe:            "Safe",
	Caution:         "Caution",
	HighRisk:        "High Risk",
	Contraindicated: "Contraindicated",
	CategoryError:   "Error",
}

// String returns the display name
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Valid reports whether c is one of the four ordered categories
func (c Category) Valid() bool {
	return c >= Safe && c <= Contraindicated
}

// IsSafe reports whether c is exactly Safe
func (c Category) IsSafe() bool { return c == Safe }

// Escalate moves c one step toward Contraindicated, capped at Contraindicated.
func (c Category) Escalate() Category {
	if !c.Valid() || c == Contraindicated {
		return c
	}
	return c + 1
}

// MoreRestrictive returns the stricter of base and other. Ties keep base.
func MoreRestrictive(base, other Category) Category {
	if !other.Valid() {
		return base
	}
	if !base.Valid() || other > base {
		return other
	}
	return base
}

// ParseCategory parses a category name. Matching ignores case, spaces,
// underscores and hyphens so "HIGH_RISK" and "high risk" both resolve.
func ParseCategory(s string) (Category, error) {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "safe":
		return Safe, nil
	case "caution":
		return Caution, nil
	case "highrisk":
		return HighRisk, nil
	case "contraindicated":
		return Contraindicated, nil
	case "error":
		return CategoryError, nil
	}
	return CategoryError, fmt.Errorf("unknown risk category %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (c Category) MarshalText() ([]byte, error) {
	if _, ok := categoryNames[c]; !ok {
		return nil, fmt.Errorf("invalid risk category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
