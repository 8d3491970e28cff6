package battle

import "math"

// IntentKind identifies the variant of an Intent.
type IntentKind string

const (
	IntentAttack   IntentKind = "attack"
	IntentUseItem  IntentKind = "use_item"
	IntentSwitch   IntentKind = "switch"
	IntentFlee     IntentKind = "flee"
	IntentForfeit  IntentKind = "forfeit"
	IntentOverride IntentKind = "override"
	IntentAbandon  IntentKind = "abandon"
)

// Intent is one requested turn action. The set of implementations is closed:
// Attack, UseItem, Switch, Flee, Forfeit and Override.
type Intent interface {
	// Kind returns the variant tag.
	Kind() IntentKind
	// Actor returns the acting party id, or the moderator id for overrides.
	Actor() string
	// Validate checks the intent's own fields without consulting a session.
	Validate() error

	isIntent()
}

// Move describes the technique an attacker uses.
type Move struct {
	Name string `json:"name"`
	// Type is the move's elemental type; empty uses the attacker's first type.
	Type string `json:"type"`
}

// Attack has the acting party's active monster strike a target party's active monster.
type Attack struct {
	PartyID string
	// TargetPartyID may be empty to target the first opposing party still standing.
	TargetPartyID string
	Move          Move
	// Signal may be nil to use the opponent AI signal derived from the attacker's level.
	Signal *PerformanceSignal
}

// Item is a consumable applied by UseItem.
type Item struct {
	Name       string `json:"name"`
	HealAmount int    `json:"heal_amount,omitempty"`
	// HealPercent is a fraction of max HP in (0, 1].
	HealPercent float64 `json:"heal_percent,omitempty"`
	Revive      bool    `json:"revive,omitempty"`
}

// UseItem applies an item to one roster slot of the acting party.
type UseItem struct {
	PartyID     string
	TargetIndex int
	Item        Item
}

// Switch changes a party's active monster. With Withdraw set, ToIndex is
// ignored and the next available monster after the active one is sent out.
type Switch struct {
	PartyID  string
	ToIndex  int
	Withdraw bool
}

// Flee attempts to escape a PvE battle.
type Flee struct {
	PartyID string
}

// Forfeit concedes the battle for the acting party's side.
type Forfeit struct {
	PartyID string
}

// OverrideOp is a privileged moderator operation.
type OverrideOp string

const (
	OverrideForceWin        OverrideOp = "force_win"
	OverrideForceLose       OverrideOp = "force_lose"
	OverrideSetWinCondition OverrideOp = "set_win_condition"
	OverrideSetWeather      OverrideOp = "set_weather"
	OverrideSetTerrain      OverrideOp = "set_terrain"
)

// Override bypasses combat resolution. It is still rejected on a terminal session.
type Override struct {
	Op           OverrideOp
	ModeratorID  string
	WinCondition int
	Weather      Weather
	Terrain      Terrain
}

func (Attack) Kind() IntentKind   { return IntentAttack }
func (UseItem) Kind() IntentKind  { return IntentUseItem }
func (Switch) Kind() IntentKind   { return IntentSwitch }
func (Flee) Kind() IntentKind     { return IntentFlee }
func (Forfeit) Kind() IntentKind  { return IntentForfeit }
func (Override) Kind() IntentKind { return IntentOverride }

func (a Attack) Actor() string   { return a.PartyID }
func (u UseItem) Actor() string  { return u.PartyID }
func (s Switch) Actor() string   { return s.PartyID }
func (f Flee) Actor() string     { return f.PartyID }
func (f Forfeit) Actor() string  { return f.PartyID }
func (o Override) Actor() string { return o.ModeratorID }

func (Attack) isIntent()   {}
func (UseItem) isIntent()  {}
func (Switch) isIntent()   {}
func (Flee) isIntent()     {}
func (Forfeit) isIntent()  {}
func (Override) isIntent() {}

func (a Attack) Validate() error {
	if a.PartyID == "" {
		return Validationf("attack: party id must not be empty")
	}
	if a.TargetPartyID == a.PartyID {
		return Validationf("attack: a party cannot target itself")
	}
	if s := a.Signal; s != nil {
		if math.IsNaN(s.Speed) || math.IsNaN(s.Accuracy) {
			return Validationf("attack: performance signal must be numeric")
		}
		if s.Accuracy > 100 {
			return Validationf("attack: accuracy must be in [0, 100], got %v", s.Accuracy)
		}
	}
	return nil
}

func (u UseItem) Validate() error {
	if u.PartyID == "" {
		return Validationf("use item: party id must not be empty")
	}
	if u.Item.Name == "" {
		return Validationf("use item: item name must not be empty")
	}
	if u.TargetIndex < 0 {
		return Validationf("use item: target index must be >= 0, got %d", u.TargetIndex)
	}
	if u.Item.HealAmount < 0 {
		return Validationf("use item: heal amount must be >= 0, got %d", u.Item.HealAmount)
	}
	if u.Item.HealPercent < 0 || u.Item.HealPercent > 1 {
		return Validationf("use item: heal percent must be in [0, 1], got %v", u.Item.HealPercent)
	}
	return nil
}

func (s Switch) Validate() error {
	if s.PartyID == "" {
		return Validationf("switch: party id must not be empty")
	}
	if !s.Withdraw && s.ToIndex < 0 {
		return Validationf("switch: roster index must be >= 0, got %d", s.ToIndex)
	}
	return nil
}

func (f Flee) Validate() error {
	if f.PartyID == "" {
		return Validationf("flee: party id must not be empty")
	}
	return nil
}

func (f Forfeit) Validate() error {
	if f.PartyID == "" {
		return Validationf("forfeit: party id must not be empty")
	}
	return nil
}

func (o Override) Validate() error {
	switch o.Op {
	case OverrideForceWin, OverrideForceLose:
	case OverrideSetWinCondition:
		if o.WinCondition < 1 {
			return Validationf("win condition must be >= 1, got %d", o.WinCondition)
		}
	case OverrideSetWeather:
		if o.Weather == "" {
			return Validationf("set weather: weather must not be empty")
		}
	case OverrideSetTerrain:
		if o.Terrain == "" {
			return Validationf("set terrain: terrain must not be empty")
		}
	default:
		return Validationf("unknown override %q", o.Op)
	}
	return nil
}
