package battle

import (
	"slices"
	"time"
)

// Mode distinguishes trainer-vs-template from trainer-vs-trainer battles.
type Mode string

const (
	ModePvE Mode = "pve"
	ModePvP Mode = "pvp"
)

// Status is the lifecycle state of a session. Every value other than
// StatusActive is terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusDraw      Status = "draw"
	StatusRetreat   Status = "retreat"
	StatusAbandoned Status = "abandoned"
	StatusForfeited Status = "forfeited"
)

// Terminal reports whether no further turns may be processed.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// RewardEligible reports whether a transition into s produces rewards.
func (s Status) RewardEligible() bool {
	return s == StatusWon || s == StatusDraw || s == StatusRetreat
}

// EventKind labels one entry of a turn record.
type EventKind string

const (
	EventDamage       EventKind = "damage"
	EventImmune       EventKind = "immune"
	EventFaint        EventKind = "faint"
	EventSwitch       EventKind = "switch"
	EventHeal         EventKind = "heal"
	EventRevive       EventKind = "revive"
	EventFleeFailed   EventKind = "flee_failed"
	EventWeatherChip  EventKind = "weather_chip"
	EventEnvironment  EventKind = "environment"
	EventWinCondition EventKind = "win_condition"
	EventBattleEnded  EventKind = "battle_ended"
)

// Event is one observable state change within a turn.
type Event struct {
	Kind       EventKind `json:"kind"`
	PartyID    string    `json:"party_id,omitempty"`
	MonsterID  string    `json:"monster_id,omitempty"`
	Amount     int       `json:"amount,omitempty"`
	Multiplier float64   `json:"multiplier,omitempty"`
	Critical   bool      `json:"critical,omitempty"`
	Status     Status    `json:"status,omitempty"`
	Winner     Side      `json:"winner,omitempty"`
	Loser      Side      `json:"loser,omitempty"`
}

// TurnRecord is one append-only entry of a session's turn log.
type TurnRecord struct {
	Turn      int        `json:"turn"`
	Kind      IntentKind `json:"kind"`
	Actor     string     `json:"actor,omitempty"`
	Narration []string   `json:"narration"`
	Events    []Event    `json:"events"`
}

// Session is the full state of one battle.
//
// Invariant: Status transitions are monotonic; TurnLog is only ever appended to.
type Session struct {
	ID           string       `json:"id"`
	Mode         Mode         `json:"mode"`
	Parties      []Party      `json:"parties"`
	Environment  Environment  `json:"environment"`
	WinCondition int          `json:"win_condition"`
	Difficulty   string       `json:"difficulty"`
	ThreadID     string       `json:"thread_id,omitempty"`
	Status       Status       `json:"status"`
	Winner       Side         `json:"winner,omitempty"`
	Loser        Side         `json:"loser,omitempty"`
	Turn         int          `json:"turn"`
	TurnLog      []TurnRecord `json:"turn_log"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Setup holds everything needed to construct a session.
type Setup struct {
	ID           string
	Mode         Mode
	Parties      []Party
	Environment  Environment
	WinCondition int
	Difficulty   string
	ThreadID     string
	Now          time.Time
}

// Party limits for a single battle.
const (
	MinParties = 2
	MaxParties = 4
)

// NewSession validates a setup and returns an active session. Parties are
// deep-copied; health is clamped and active pointers set to the first
// available monster.
//
// Postcondition: Returns an active Session, or an error wrapping ErrValidation
// (bad party counts or fields) or ErrInvalidState (an empty or fully fainted roster).
func NewSession(s Setup) (*Session, error) {
	if s.ID == "" {
		return nil, Validationf("battle id must not be empty")
	}
	if s.Mode != ModePvE && s.Mode != ModePvP {
		return nil, Validationf("unknown battle mode %q", s.Mode)
	}
	if len(s.Parties) < MinParties || len(s.Parties) > MaxParties {
		return nil, Validationf("a battle needs %d-%d parties, got %d", MinParties, MaxParties, len(s.Parties))
	}
	if s.Mode == ModePvE && len(s.Parties) != 2 {
		return nil, Validationf("a PvE battle has exactly two parties, got %d", len(s.Parties))
	}
	if s.WinCondition < 0 {
		return nil, Validationf("win condition must be >= 0, got %d", s.WinCondition)
	}

	sess := &Session{
		ID:           s.ID,
		Mode:         s.Mode,
		Parties:      make([]Party, len(s.Parties)),
		Environment:  s.Environment,
		WinCondition: s.WinCondition,
		Difficulty:   s.Difficulty,
		ThreadID:     s.ThreadID,
		Status:       StatusActive,
		TurnLog:      []TurnRecord{},
		CreatedAt:    s.Now,
		UpdatedAt:    s.Now,
	}
	seen := make(map[string]bool, len(s.Parties))
	sides := map[Side]int{}
	for i, p := range s.Parties {
		if p.ID == "" {
			return nil, Validationf("party %d has no id", i)
		}
		if seen[p.ID] {
			return nil, Validationf("duplicate party id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Side != SidePlayers && p.Side != SideOpponents {
			return nil, Validationf("party %q has unknown side %q", p.ID, p.Side)
		}
		sides[p.Side]++
		if len(p.Monsters) == 0 {
			return nil, InvalidStatef("party %q has an empty roster", p.ID)
		}
		cp := p.clone()
		cp.normalize()
		if cp.Wiped() {
			return nil, InvalidStatef("party %q has no monster able to battle", p.ID)
		}
		sess.Parties[i] = cp
	}
	if sides[SidePlayers] == 0 || sides[SideOpponents] == 0 {
		return nil, Validationf("both sides need at least one party")
	}
	return sess, nil
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Parties = make([]Party, len(s.Parties))
	for i := range s.Parties {
		cp.Parties[i] = s.Parties[i].clone()
	}
	cp.TurnLog = make([]TurnRecord, len(s.TurnLog))
	for i, r := range s.TurnLog {
		r.Narration = slices.Clone(r.Narration)
		r.Events = slices.Clone(r.Events)
		cp.TurnLog[i] = r
	}
	return &cp
}

// Party returns the party with the given id.
func (s *Session) Party(id string) (*Party, error) {
	for i := range s.Parties {
		if s.Parties[i].ID == id {
			return &s.Parties[i], nil
		}
	}
	return nil, NotFoundf("party %q is not in battle %s", id, s.ID)
}

// PartyForTrainer returns the party controlled by trainerID.
func (s *Session) PartyForTrainer(trainerID string) (*Party, error) {
	for i := range s.Parties {
		if s.Parties[i].TrainerID != "" && s.Parties[i].TrainerID == trainerID {
			return &s.Parties[i], nil
		}
	}
	return nil, NotFoundf("trainer %q has no party in battle %s", trainerID, s.ID)
}

// SideParties returns pointers to every party fighting for side, in order.
func (s *Session) SideParties(side Side) []*Party {
	var out []*Party
	for i := range s.Parties {
		if s.Parties[i].Side == side {
			out = append(out, &s.Parties[i])
		}
	}
	return out
}

// SideRosterSize returns the number of monsters fighting for side.
func (s *Session) SideRosterSize(side Side) int {
	n := 0
	for _, p := range s.SideParties(side) {
		n += len(p.Monsters)
	}
	return n
}

// SideFainted returns the number of fainted monsters on side.
func (s *Session) SideFainted(side Side) int {
	n := 0
	for _, p := range s.SideParties(side) {
		n += p.FaintedCount()
	}
	return n
}

// SideDefeated reports whether side has lost: the win condition is met
// against it, or every one of its monsters has fainted.
func (s *Session) SideDefeated(side Side) bool {
	fainted := s.SideFainted(side)
	if s.WinCondition > 0 && fainted >= s.WinCondition {
		return true
	}
	return fainted == s.SideRosterSize(side)
}

// LargestSideRoster returns the roster size of the bigger side.
func (s *Session) LargestSideRoster() int {
	return max(s.SideRosterSize(SidePlayers), s.SideRosterSize(SideOpponents))
}

// TrainerIDs returns the trainer ids fighting for side, in party order.
func (s *Session) TrainerIDs(side Side) []string {
	var out []string
	for _, p := range s.SideParties(side) {
		if p.TrainerID != "" {
			out = append(out, p.TrainerID)
		}
	}
	return out
}
