package battle

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/monbattle/internal/game/dice"
)

// Fallback values substituted for missing or malformed inputs.
const (
	DefaultLevel    = 1
	DefaultAttack   = 10
	DefaultDefense  = 10
	DefaultSpeed    = 50.0
	DefaultAccuracy = 100.0

	// FallbackDamage is dealt when the formula itself produces a non-finite value.
	FallbackDamage = 5

	criticalThreshold = 1.05
	varianceLow       = 0.9
	varianceHigh      = 1.1
)

// Effectiveness narration lines.
const (
	LabelSuperEffective   = "It's super effective!"
	LabelNotVeryEffective = "It's not very effective..."
	LabelNoEffect         = "It had no effect!"
)

// Stats are the attacker and defender inputs of the damage formula.
type Stats struct {
	Level   int
	Attack  int
	Defense int
}

// PerformanceSignal is an opaque measure of how well the acting side executed
// its turn: a speed proxy in [0, ∞) and an accuracy proxy in [0, 100].
type PerformanceSignal struct {
	Speed    float64 `json:"speed"`
	Accuracy float64 `json:"accuracy"`
}

// DamageResult is the outcome of one damage calculation.
type DamageResult struct {
	Damage        int
	IsCritical    bool
	Effectiveness string
	// Multiplier is the type multiplier alone; environment factors are excluded.
	Multiplier   float64
	RandomFactor float64
	// Fallback is set when any input was defaulted.
	Fallback bool
}

// Immune reports whether the attack had no effect.
func (r DamageResult) Immune() bool {
	return r.Multiplier == 0
}

// EffectivenessLabel returns the narration line for a type multiplier.
func EffectivenessLabel(m float64) string {
	switch {
	case m == 0:
		return LabelNoEffect
	case m > 1:
		return LabelSuperEffective
	case m < 1:
		return LabelNotVeryEffective
	}
	return ""
}

// Calculator computes damage. It never fails: malformed inputs are replaced
// with logged defaults so a bad stat record cannot abort a turn.
type Calculator struct {
	roller *dice.Roller
	logger *zap.Logger
}

// NewCalculator creates a Calculator drawing its variance from roller.
//
// Precondition: roller must be non-nil.
func NewCalculator(roller *dice.Roller, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{roller: roller, logger: logger}
}

// Calculate applies the damage formula:
//
//	base           = level*0.4 + attack*0.6
//	defenseFactor  = 100 / (100 + defense*0.8)
//	speedFactor    = clamp(speed/50, 0.5, 2.0)
//	accuracyFactor = clamp(accuracy/100, 0.5, 1.5)
//	damage         = round(base * defenseFactor * speedFactor * accuracyFactor *
//	                       typeMultiplier * modifiers * randomFactor)
//
// with randomFactor uniform in [0.9, 1.1].
//
// Postcondition: Damage == 0 iff typeMultiplier == 0; otherwise Damage >= 1.
// IsCritical == (RandomFactor > 1.05).
func (c *Calculator) Calculate(attacker, defender Stats, signal PerformanceSignal, typeMultiplier float64, modifiers ...float64) DamageResult {
	attacker, defender, signal, fellBack := c.sanitize(attacker, defender, signal)

	res := DamageResult{
		Multiplier:    typeMultiplier,
		Effectiveness: EffectivenessLabel(typeMultiplier),
		Fallback:      fellBack,
	}
	if typeMultiplier == 0 {
		return res
	}

	res.RandomFactor = c.roller.Uniform("damage variance", varianceLow, varianceHigh)
	res.IsCritical = res.RandomFactor > criticalThreshold

	raw := RawDamage(attacker, defender, signal, typeMultiplier) * res.RandomFactor
	for _, m := range modifiers {
		raw *= m
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		c.logger.Warn("damage formula produced a non-finite value; using fallback",
			zap.Float64("raw", raw),
			zap.Int("fallback", FallbackDamage),
		)
		res.Damage = FallbackDamage
		res.Fallback = true
		return res
	}
	res.Damage = max(1, int(math.Round(raw)))
	return res
}

// RawDamage evaluates the deterministic part of the formula, before variance,
// environment modifiers and rounding.
func RawDamage(attacker, defender Stats, signal PerformanceSignal, typeMultiplier float64) float64 {
	base := float64(attacker.Level)*0.4 + float64(attacker.Attack)*0.6
	defenseFactor := 100 / (100 + float64(defender.Defense)*0.8)
	speedFactor := clamp(signal.Speed/50, 0.5, 2.0)
	accuracyFactor := clamp(signal.Accuracy/100, 0.5, 1.5)
	return base * defenseFactor * speedFactor * accuracyFactor * typeMultiplier
}

func (c *Calculator) sanitize(a, d Stats, s PerformanceSignal) (Stats, Stats, PerformanceSignal, bool) {
	var defaulted []string
	if a.Level <= 0 {
		a.Level = DefaultLevel
		defaulted = append(defaulted, "attacker.level")
	}
	if a.Attack <= 0 {
		a.Attack = DefaultAttack
		defaulted = append(defaulted, "attacker.attack")
	}
	if d.Level <= 0 {
		d.Level = DefaultLevel
		defaulted = append(defaulted, "defender.level")
	}
	if d.Defense <= 0 {
		d.Defense = DefaultDefense
		defaulted = append(defaulted, "defender.defense")
	}
	if s.Speed < 0 || math.IsNaN(s.Speed) || math.IsInf(s.Speed, 0) {
		s.Speed = DefaultSpeed
		defaulted = append(defaulted, "signal.speed")
	}
	if s.Accuracy < 0 || math.IsNaN(s.Accuracy) || math.IsInf(s.Accuracy, 0) {
		s.Accuracy = DefaultAccuracy
		defaulted = append(defaulted, "signal.accuracy")
	}
	if len(defaulted) == 0 {
		return a, d, s, false
	}
	c.logger.Warn("damage inputs defaulted",
		zap.Strings("fields", defaulted),
		zap.Error(ErrTransient),
	)
	return a, d, s, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
