package battle

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/monbattle/internal/game/typechart"
)

// Weather is an environmental tag that scales damage and accuracy.
type Weather string

const (
	WeatherClear     Weather = "clear"
	WeatherRain      Weather = "rain"
	WeatherSun       Weather = "sun"
	WeatherSandstorm Weather = "sandstorm"
	WeatherHail      Weather = "hail"
	WeatherSnow      Weather = "snow"
	WeatherFog       Weather = "fog"
)

// Terrain is a field tag that boosts matching move types.
type Terrain string

const (
	TerrainNormal   Terrain = "normal"
	TerrainElectric Terrain = "electric"
	TerrainGrassy   Terrain = "grassy"
	TerrainMisty    Terrain = "misty"
	TerrainPsychic  Terrain = "psychic"
)

var (
	builtinWeather = []Weather{WeatherClear, WeatherRain, WeatherSun, WeatherSandstorm, WeatherHail, WeatherSnow, WeatherFog}
	builtinTerrain = []Terrain{TerrainNormal, TerrainElectric, TerrainGrassy, TerrainMisty, TerrainPsychic}

	weatherAliases = map[string]Weather{"": WeatherClear, "none": WeatherClear, "sunny": WeatherSun, "rainy": WeatherRain}
	terrainAliases = map[string]Terrain{"": TerrainNormal, "none": TerrainNormal}

	displayTitle = cases.Title(language.English)
)

// Environment carries the weather and terrain of one battle. The zero value is neutral.
type Environment struct {
	Weather Weather `json:"weather"`
	Terrain Terrain `json:"terrain"`
}

// Neutral reports whether no environmental modifier is in play.
func (e Environment) Neutral() bool {
	w, t := e.normalized()
	return w == WeatherClear && t == TerrainNormal
}

func (e Environment) normalized() (Weather, Terrain) {
	w, t := e.Weather, e.Terrain
	if w == "" {
		w = WeatherClear
	}
	if t == "" {
		t = TerrainNormal
	}
	return w, t
}

// String renders the environment for status displays, e.g. "Sandstorm / Grassy terrain".
func (e Environment) String() string {
	w, t := e.normalized()
	return fmt.Sprintf("%s / %s terrain", displayTitle.String(string(w)), displayTitle.String(string(t)))
}

// WeatherEffect describes how one weather tag changes a battle.
type WeatherEffect struct {
	// Damage maps move type to a damage factor; absent types are neutral.
	Damage map[string]float64 `yaml:"damage"`
	// Accuracy scales the attacker's accuracy proxy; zero means unchanged.
	Accuracy float64 `yaml:"accuracy"`
	// Chip, when set, damages exposed active monsters at the end of each attack.
	Chip *ChipDamage `yaml:"chip"`
}

// ChipDamage deals MaxHP/Divisor (minimum 1) to every active monster lacking an immune type.
type ChipDamage struct {
	Divisor int      `yaml:"divisor"`
	Immune  []string `yaml:"immune"`
}

// TerrainEffect describes how one terrain tag changes a battle.
type TerrainEffect struct {
	Damage map[string]float64 `yaml:"damage"`
}

// ModifierTable is the data-driven weather and terrain configuration. New tags
// can be added to the table without touching the damage formula.
//
// Invariant: ModifierTable is never mutated after construction.
type ModifierTable struct {
	Weather map[Weather]WeatherEffect `yaml:"weather"`
	Terrain map[Terrain]TerrainEffect `yaml:"terrain"`
}

// DefaultModifierTable returns the built-in weather and terrain effects.
func DefaultModifierTable() *ModifierTable {
	return &ModifierTable{
		Weather: map[Weather]WeatherEffect{
			WeatherRain: {Damage: map[string]float64{"Water": 1.5, "Fire": 0.5}},
			WeatherSun:  {Damage: map[string]float64{"Fire": 1.5, "Water": 0.5}},
			WeatherSnow: {Damage: map[string]float64{"Ice": 1.2}},
			WeatherSandstorm: {
				Accuracy: 0.8,
				Chip:     &ChipDamage{Divisor: 16, Immune: []string{"Rock", "Ground", "Steel"}},
			},
			WeatherHail: {
				Accuracy: 0.9,
				Chip:     &ChipDamage{Divisor: 16, Immune: []string{"Ice"}},
			},
			WeatherFog: {Accuracy: 0.6},
		},
		Terrain: map[Terrain]TerrainEffect{
			TerrainElectric: {Damage: map[string]float64{"Electric": 1.3}},
			TerrainGrassy:   {Damage: map[string]float64{"Grass": 1.3}},
			TerrainMisty:    {Damage: map[string]float64{"Fairy": 1.3}},
			TerrainPsychic:  {Damage: map[string]float64{"Psychic": 1.3}},
		},
	}
}

// Validate checks every factor is positive and every chip divisor is usable.
func (t *ModifierTable) Validate() error {
	for w, eff := range t.Weather {
		if w == "" {
			return fmt.Errorf("environment table: weather key must not be empty")
		}
		for mt, f := range eff.Damage {
			if f <= 0 {
				return fmt.Errorf("environment table: weather %q damage factor for %q must be > 0, got %v", w, mt, f)
			}
		}
		if eff.Accuracy < 0 || eff.Accuracy > 2 {
			return fmt.Errorf("environment table: weather %q accuracy must be in [0, 2], got %v", w, eff.Accuracy)
		}
		if eff.Chip != nil && eff.Chip.Divisor < 1 {
			return fmt.Errorf("environment table: weather %q chip divisor must be >= 1, got %d", w, eff.Chip.Divisor)
		}
	}
	for tr, eff := range t.Terrain {
		if tr == "" {
			return fmt.Errorf("environment table: terrain key must not be empty")
		}
		for mt, f := range eff.Damage {
			if f <= 0 {
				return fmt.Errorf("environment table: terrain %q damage factor for %q must be > 0, got %v", tr, mt, f)
			}
		}
	}
	return nil
}

// ParseWeather resolves a user-supplied weather tag against the built-in set
// and any tags the table adds.
func (t *ModifierTable) ParseWeather(s string) (Weather, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if w, ok := weatherAliases[key]; ok {
		return w, nil
	}
	w := Weather(key)
	if _, ok := t.Weather[w]; ok || slices.Contains(builtinWeather, w) {
		return w, nil
	}
	return "", Validationf("unknown weather %q", s)
}

// ParseTerrain resolves a user-supplied terrain tag.
func (t *ModifierTable) ParseTerrain(s string) (Terrain, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, " terrain")
	if tr, ok := terrainAliases[key]; ok {
		return tr, nil
	}
	tr := Terrain(key)
	if _, ok := t.Terrain[tr]; ok || slices.Contains(builtinTerrain, tr) {
		return tr, nil
	}
	return "", Validationf("unknown terrain %q", s)
}

// DamageFactor returns the combined weather and terrain factor for a move type.
//
// Postcondition: Returns a value > 0; 1 when nothing applies.
func (t *ModifierTable) DamageFactor(env Environment, moveType string) float64 {
	w, tr := env.normalized()
	mt := typechart.Normalize(moveType)
	factor := 1.0
	if f, ok := t.Weather[w].Damage[mt]; ok {
		factor *= f
	}
	if f, ok := t.Terrain[tr].Damage[mt]; ok {
		factor *= f
	}
	return factor
}

// AccuracyFactor returns the accuracy scale of the current weather.
func (t *ModifierTable) AccuracyFactor(env Environment) float64 {
	w, _ := env.normalized()
	if a := t.Weather[w].Accuracy; a > 0 {
		return a
	}
	return 1
}

// ChipDamage returns the end-of-turn damage the current weather deals to m,
// or 0 when the weather deals none or m is immune.
func (t *ModifierTable) ChipDamage(env Environment, m *Monster) int {
	w, _ := env.normalized()
	chip := t.Weather[w].Chip
	if chip == nil || m.Fainted {
		return 0
	}
	for _, immune := range chip.Immune {
		if m.HasType(immune) {
			return 0
		}
	}
	return max(1, m.MaxHP/chip.Divisor)
}

// normalizeKeys canonicalizes move-type keys so lookups are case-insensitive.
func (t *ModifierTable) normalizeKeys() {
	for w, eff := range t.Weather {
		eff.Damage = normalizeFactors(eff.Damage)
		t.Weather[w] = eff
	}
	for tr, eff := range t.Terrain {
		eff.Damage = normalizeFactors(eff.Damage)
		t.Terrain[tr] = eff
	}
}

func normalizeFactors(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[typechart.Normalize(k)] = v
	}
	return out
}

// LoadModifierTableFromBytes parses and validates a modifier table from YAML.
func LoadModifierTableFromBytes(data []byte) (*ModifierTable, error) {
	var t ModifierTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing environment YAML: %w", err)
	}
	if t.Weather == nil {
		t.Weather = map[Weather]WeatherEffect{}
	}
	if t.Terrain == nil {
		t.Terrain = map[Terrain]TerrainEffect{}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.normalizeKeys()
	return &t, nil
}

// LoadModifierTable reads a modifier table from a YAML file.
func LoadModifierTable(path string) (*ModifierTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading environment table %q: %w", path, err)
	}
	t, err := LoadModifierTableFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return t, nil
}
