// Package typechart provides the attack-type versus defending-type
// effectiveness lookup consumed by battle resolution.
package typechart

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Canonical lists every multiplier a lookup may return.
var Canonical = []float64{0, 0.25, 0.5, 1, 2, 4}

// Table returns the combined effectiveness of one attacking type against a
// defender's full type set.
//
// Implementations MUST be safe for concurrent use.
type Table interface {
	Multiplier(attackType string, defending []string) float64
}

var titler = cases.Title(language.English)

// Normalize returns the canonical spelling of a type name ("fIRE" becomes "Fire").
func Normalize(name string) string {
	return titler.String(strings.ToLower(strings.TrimSpace(name)))
}

// Chart is a static type-pair table. Pairs absent from the table are neutral.
//
// Invariant: Chart is never mutated after construction.
type Chart struct {
	types map[string]bool
	pairs map[string]map[string]float64
}

type chartFile struct {
	Types         []string                      `yaml:"types"`
	Effectiveness map[string]map[string]float64 `yaml:"effectiveness"`
}

// Multiplier multiplies the single-type factors across every defending type and
// snaps the product to the nearest canonical value.
//
// Postcondition: Returns one of Canonical. Unknown types are treated as neutral;
// an empty defending set yields 1.
func (c *Chart) Multiplier(attackType string, defending []string) float64 {
	row := c.pairs[Normalize(attackType)]
	product := 1.0
	for _, d := range defending {
		if f, ok := row[Normalize(d)]; ok {
			product *= f
		}
	}
	return Snap(product)
}

// Types returns the sorted list of known type names.
func (c *Chart) Types() []string {
	out := make([]string, 0, len(c.types))
	for t := range c.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Known reports whether name is a declared type.
func (c *Chart) Known(name string) bool {
	return c.types[Normalize(name)]
}

// Snap returns the canonical multiplier closest to v. Zero is only returned
// for an exact zero so an immunity is never produced by rounding.
func Snap(v float64) float64 {
	if v == 0 {
		return 0
	}
	best := Canonical[1]
	for _, m := range Canonical[1:] {
		if math.Abs(m-v) < math.Abs(best-v) {
			best = m
		}
	}
	return best
}

// LoadChartFromBytes parses a chart from YAML.
//
// Postcondition: Returns a validated Chart; every factor is one of 0, 0.5, 1, 2
// and every referenced type is declared.
func LoadChartFromBytes(data []byte) (*Chart, error) {
	var f chartFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing type chart YAML: %w", err)
	}
	if len(f.Types) == 0 {
		return nil, fmt.Errorf("type chart: types must not be empty")
	}

	c := &Chart{types: make(map[string]bool, len(f.Types)), pairs: make(map[string]map[string]float64)}
	for _, t := range f.Types {
		c.types[Normalize(t)] = true
	}
	for atk, row := range f.Effectiveness {
		a := Normalize(atk)
		if !c.types[a] {
			return nil, fmt.Errorf("type chart: unknown attacking type %q", atk)
		}
		c.pairs[a] = make(map[string]float64, len(row))
		for def, factor := range row {
			d := Normalize(def)
			if !c.types[d] {
				return nil, fmt.Errorf("type chart: unknown defending type %q under %q", def, atk)
			}
			switch factor {
			case 0, 0.5, 1, 2:
			default:
				return nil, fmt.Errorf("type chart: %s→%s factor %v must be one of 0, 0.5, 1, 2", a, d, factor)
			}
			c.pairs[a][d] = factor
		}
	}
	return c, nil
}

// LoadChart reads a chart from a YAML file.
func LoadChart(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading type chart %q: %w", path, err)
	}
	c, err := LoadChartFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return c, nil
}
