package typechart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/monbattle/internal/game/typechart"
)

const miniChart = `
types: [Normal, Fire, Water, Grass, Ghost, Ground, Electric]
effectiveness:
  Fire:
    Grass: 2
    Water: 0.5
    Fire: 0.5
  Normal:
    Ghost: 0
  Electric:
    Ground: 0
    Water: 2
`

func loadMini(t *testing.T) *typechart.Chart {
	t.Helper()
	c, err := typechart.LoadChartFromBytes([]byte(miniChart))
	require.NoError(t, err)
	return c
}

func TestChart_SingleType(t *testing.T) {
	c := loadMini(t)
	assert.Equal(t, 2.0, c.Multiplier("Fire", []string{"Grass"}))
	assert.Equal(t, 0.5, c.Multiplier("Fire", []string{"Water"}))
	assert.Equal(t, 1.0, c.Multiplier("Fire", []string{"Normal"}))
}

func TestChart_DualTypeMultiplies(t *testing.T) {
	c := loadMini(t)
	assert.Equal(t, 0.25, c.Multiplier("Fire", []string{"Water", "Fire"}))
	assert.Equal(t, 1.0, c.Multiplier("Fire", []string{"Grass", "Water"}))
	assert.Equal(t, 0.0, c.Multiplier("Electric", []string{"Water", "Ground"}))
}

func TestChart_Immunity(t *testing.T) {
	c := loadMini(t)
	assert.Equal(t, 0.0, c.Multiplier("normal", []string{"GHOST"}))
}

func TestChart_UnknownTypesAreNeutral(t *testing.T) {
	c := loadMini(t)
	assert.Equal(t, 1.0, c.Multiplier("Cosmic", []string{"Grass"}))
	assert.Equal(t, 1.0, c.Multiplier("Fire", nil))
}

func TestChart_RejectsUnknownType(t *testing.T) {
	_, err := typechart.LoadChartFromBytes([]byte(`
types: [Fire]
effectiveness:
  Fire:
    Grass: 2
`))
	assert.Error(t, err)
}

func TestChart_RejectsOddFactor(t *testing.T) {
	_, err := typechart.LoadChartFromBytes([]byte(`
types: [Fire, Grass]
effectiveness:
  Fire:
    Grass: 3
`))
	assert.Error(t, err)
}

func TestChart_RejectsEmpty(t *testing.T) {
	_, err := typechart.LoadChartFromBytes([]byte(`effectiveness: {}`))
	assert.Error(t, err)
}

func TestLoadChart_ShippedContent(t *testing.T) {
	c, err := typechart.LoadChart("../../../content/types/chart.yaml")
	require.NoError(t, err)
	assert.Len(t, c.Types(), 18)
	assert.True(t, c.Known("fairy"))
	assert.Equal(t, 4.0, c.Multiplier("Ice", []string{"Dragon", "Flying"}))
	assert.Equal(t, 0.0, c.Multiplier("Dragon", []string{"Fairy"}))
	assert.Equal(t, 0.25, c.Multiplier("Grass", []string{"Fire", "Flying"}))
}

func TestLoadChart_MissingFile(t *testing.T) {
	_, err := typechart.LoadChart("/nonexistent/chart.yaml")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Fire", typechart.Normalize("  fIRE "))
}

func TestPropertySnap_ReturnsCanonical(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Float64Range(0, 16).Draw(t, "v")
		got := typechart.Snap(v)
		for _, m := range typechart.Canonical {
			if got == m {
				if v > 0 && got == 0 {
					t.Fatalf("non-zero %v snapped to immunity", v)
				}
				return
			}
		}
		t.Fatalf("Snap(%v) = %v is not canonical", v, got)
	})
}

func TestPropertyChart_AlwaysCanonical(t *testing.T) {
	c, err := typechart.LoadChart("../../../content/types/chart.yaml")
	require.NoError(t, err)
	types := c.Types()
	rapid.Check(t, func(t *rapid.T) {
		atk := rapid.SampledFrom(types).Draw(t, "atk")
		def := rapid.SliceOfNDistinct(rapid.SampledFrom(types), 1, 2, rapid.ID[string]).Draw(t, "def")
		got := c.Multiplier(atk, def)
		assert.Contains(t, typechart.Canonical, got)
	})
}
