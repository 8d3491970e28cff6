package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger so every random decision in a battle
// leaves a debug-level audit record.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs each draw to logger.
//
// Precondition: src must be non-nil; a nil logger is replaced with a no-op logger.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Roll evaluates expr and logs the result.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// RollExpr parses expr and rolls it, logging the result.
//
// Postcondition: Returns a RollResult or a parse error.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}

// Chance returns true with probability p and logs the draw under label.
//
// Postcondition: p <= 0 always yields false; p >= 1 always yields true.
func (r *Roller) Chance(label string, p float64) bool {
	draw := r.src.Float64()
	ok := draw < p
	r.logger.Debug("chance roll",
		zap.String("label", label),
		zap.Float64("probability", p),
		zap.Float64("draw", draw),
		zap.Bool("success", ok),
	)
	return ok
}

// Uniform returns a value drawn uniformly from [lo, hi] and logs it under label.
//
// Precondition: lo <= hi.
func (r *Roller) Uniform(label string, lo, hi float64) float64 {
	v := lo + r.src.Float64()*(hi-lo)
	r.logger.Debug("uniform roll",
		zap.String("label", label),
		zap.Float64("low", lo),
		zap.Float64("high", hi),
		zap.Float64("value", v),
	)
	return v
}

// Pick returns an index in [0, n) and logs it under label.
//
// Precondition: n > 0.
func (r *Roller) Pick(label string, n int) int {
	i := r.src.Intn(n)
	r.logger.Debug("pick roll", zap.String("label", label), zap.Int("options", n), zap.Int("index", i))
	return i
}
