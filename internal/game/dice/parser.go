package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression is a parsed quantity expression ready to be rolled.
// A constant expression ("3") has Count == 0 and carries its value in Modifier.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

// IsConstant reports whether the expression rolls no dice.
func (e Expression) IsConstant() bool {
	return e.Count == 0
}

// Min returns the smallest total the expression can produce.
func (e Expression) Min() int {
	return e.Count + e.Modifier
}

// Max returns the largest total the expression can produce.
func (e Expression) Max() int {
	return e.Count*e.Sides + e.Modifier
}

// Parse parses a quantity expression.
// Supported forms: "3", "d4", "1d3", "2d6+1", "3d4-2".
//
// Precondition: expr must be non-empty.
// Postcondition: Returns an Expression with Count == 0 (constant) or Count >= 1
// and Sides >= 2, or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	dIdx := strings.IndexByte(s, 'd')
	if dIdx < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: %q is neither a constant nor a dice expression", expr)
		}
		return Expression{Raw: expr, Modifier: n}, nil
	}

	count := 1
	if dIdx > 0 {
		n, err := strconv.Atoi(s[:dIdx])
		if err != nil || n < 1 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q", expr)
		}
		count = n
	}

	rest := s[dIdx+1:]
	sidesStr, modStr := rest, ""
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sidesStr, modStr = rest[:i], rest[i:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil || sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be an integer >= 2", expr)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
	}

	return Expression{Raw: expr, Count: count, Sides: sides, Modifier: modifier}, nil
}

// MustParse parses expr and panics on error. Useful for package-level defaults.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
