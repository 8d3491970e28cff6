package battle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/monbattle/internal/game/dice"
	"github.com/cory-johannsen/monbattle/internal/game/typechart"
)

// WinConditionPolicy decides how an oversized win condition is handled.
type WinConditionPolicy string

const (
	// WinConditionClamp lowers an oversized win condition to the largest side roster.
	WinConditionClamp WinConditionPolicy = "clamp"
	// WinConditionReject refuses an oversized win condition with ErrValidation.
	WinConditionReject WinConditionPolicy = "reject"
)

// Policy holds the tunable rules of turn resolution.
type Policy struct {
	// FleeChance is the probability in [0, 1] that Flee succeeds.
	FleeChance float64
	// WinCondition selects the oversized win condition policy.
	WinCondition WinConditionPolicy
	// AISpeedBase and AIAccuracy shape the signal used for opponent attacks.
	AISpeedBase float64
	AIAccuracy  float64
}

// DefaultPolicy returns the stock rules: an even flee chance, clamped win
// conditions and the standard opponent signal.
func DefaultPolicy() Policy {
	return Policy{
		FleeChance:   0.5,
		WinCondition: WinConditionClamp,
		AISpeedBase:  30,
		AIAccuracy:   85,
	}
}

// OpponentSignal returns the performance signal used for attacks no player
// executed: speed = base + level/2, fixed accuracy.
func (p Policy) OpponentSignal(level int) PerformanceSignal {
	return PerformanceSignal{Speed: p.AISpeedBase + float64(level)/2, Accuracy: p.AIAccuracy}
}

// ResolveWinCondition applies the policy to a requested win condition.
//
// Postcondition: Returns n unchanged when 1 <= n <= largestRoster; otherwise
// clamps or rejects according to the policy. n < 1 is always rejected.
func (p Policy) ResolveWinCondition(n, largestRoster int) (int, error) {
	if n < 1 {
		return 0, Validationf("win condition must be >= 1, got %d", n)
	}
	if n <= largestRoster {
		return n, nil
	}
	if p.WinCondition == WinConditionReject {
		return 0, Validationf("win condition %d exceeds the largest roster (%d)", n, largestRoster)
	}
	return largestRoster, nil
}

// Result is the terminal outcome of a session, identical in shape whether
// the battle ended through combat or an override.
type Result struct {
	Status Status
	Winner Side
	Loser  Side
}

// Outcome is the product of one processed turn.
type Outcome struct {
	Session   *Session
	Narration []string
	// Result is non-nil only on the turn that moved the session out of active.
	Result *Result
}

// Processor advances sessions one turn at a time.
//
// Processor holds no per-session state and is safe for concurrent use on
// different sessions.
type Processor struct {
	chart  typechart.Table
	env    *ModifierTable
	calc   *Calculator
	roller *dice.Roller
	policy Policy
	logger *zap.Logger
}

// NewProcessor creates a Processor.
//
// Precondition: chart and roller must be non-nil. A nil env uses DefaultModifierTable.
func NewProcessor(chart typechart.Table, env *ModifierTable, roller *dice.Roller, policy Policy, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if env == nil {
		env = DefaultModifierTable()
	}
	return &Processor{
		chart:  chart,
		env:    env,
		calc:   NewCalculator(roller, logger),
		roller: roller,
		policy: policy,
		logger: logger,
	}
}

// Policy returns the rules the processor applies.
func (p *Processor) Policy() Policy {
	return p.policy
}

// Environment returns the weather and terrain table.
func (p *Processor) Environment() *ModifierTable {
	return p.env
}

// turn accumulates the effects of one intent on a working copy of a session.
type turn struct {
	sess   *Session
	rec    TurnRecord
	result *Result
}

func (t *turn) say(format string, args ...any) {
	t.rec.Narration = append(t.rec.Narration, fmt.Sprintf(format, args...))
}

func (t *turn) event(e Event) {
	t.rec.Events = append(t.rec.Events, e)
}

// Process applies one intent to sess.
//
// Precondition: sess must have been produced by NewSession or a prior Process call.
// Postcondition: On success returns a new Session with the full cascade
// applied and one record appended to TurnLog; sess itself is never modified.
// On error sess is unchanged and the error wraps ErrValidation, ErrNotFound
// or ErrInvalidState.
func (p *Processor) Process(sess *Session, in Intent) (*Outcome, error) {
	if sess == nil {
		return nil, Validationf("session must not be nil")
	}
	if in == nil {
		return nil, Validationf("intent must not be nil")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, InvalidStatef("battle %s is already %s", sess.ID, sess.Status)
	}

	t := &turn{
		sess: sess.Clone(),
		rec:  TurnRecord{Turn: sess.Turn + 1, Kind: in.Kind(), Actor: in.Actor(), Narration: []string{}, Events: []Event{}},
	}

	var err error
	switch v := in.(type) {
	case Attack:
		err = p.attack(t, v)
	case UseItem:
		err = p.useItem(t, v)
	case Switch:
		err = p.switchActive(t, v)
	case Flee:
		err = p.flee(t, v)
	case Forfeit:
		err = p.forfeit(t, v)
	case Override:
		err = p.override(t, v)
	default:
		err = Validationf("unsupported intent %T", in)
	}
	if err != nil {
		p.logger.Debug("intent rejected",
			zap.String("battle_id", sess.ID),
			zap.String("kind", string(in.Kind())),
			zap.Error(err),
		)
		return nil, err
	}

	return p.commit(t), nil
}

// Abandon marks an active session abandoned. On a terminal session it is a
// no-op that returns the session unchanged with a nil Result.
func (p *Processor) Abandon(sess *Session, reason string) (*Outcome, error) {
	if sess == nil {
		return nil, Validationf("session must not be nil")
	}
	if sess.Status.Terminal() {
		return &Outcome{Session: sess}, nil
	}
	t := &turn{
		sess: sess.Clone(),
		rec:  TurnRecord{Turn: sess.Turn + 1, Kind: IntentAbandon, Narration: []string{}, Events: []Event{}},
	}
	if reason != "" {
		t.say("%s", reason)
	}
	p.end(t, StatusAbandoned, "", "")
	return p.commit(t), nil
}

func (p *Processor) commit(t *turn) *Outcome {
	t.sess.Turn = t.rec.Turn
	t.sess.TurnLog = append(t.sess.TurnLog, t.rec)
	if t.result != nil {
		p.logger.Info("battle ended",
			zap.String("battle_id", t.sess.ID),
			zap.String("status", string(t.result.Status)),
			zap.String("winner", string(t.result.Winner)),
			zap.Int("turn", t.sess.Turn),
		)
	}
	return &Outcome{Session: t.sess, Narration: t.rec.Narration, Result: t.result}
}

func (p *Processor) attack(t *turn, a Attack) error {
	atk, err := t.sess.Party(a.PartyID)
	if err != nil {
		return err
	}
	if atk.Wiped() {
		return InvalidStatef("party %q has no monster able to battle", atk.ID)
	}
	def, err := p.target(t.sess, atk, a.TargetPartyID)
	if err != nil {
		return err
	}

	signal := p.policy.OpponentSignal(atk.Active().Level)
	if a.Signal != nil {
		signal = *a.Signal
	}
	p.strike(t, atk, def, a.Move, signal)
	p.endOfTurn(t)
	return nil
}

func (p *Processor) target(sess *Session, atk *Party, targetID string) (*Party, error) {
	if targetID == "" {
		for _, cand := range sess.SideParties(atk.Side.Opposing()) {
			if !cand.Wiped() {
				return cand, nil
			}
		}
		return nil, InvalidStatef("no opposing party has a monster able to battle")
	}
	def, err := sess.Party(targetID)
	if err != nil {
		return nil, err
	}
	if def.Side == atk.Side {
		return nil, Validationf("party %q cannot attack ally %q", atk.ID, def.ID)
	}
	if def.Wiped() {
		return nil, InvalidStatef("party %q has no monster left to target", def.ID)
	}
	return def, nil
}

// strike resolves one attack from atk's active monster onto def's active
// monster, including the faint cascade.
func (p *Processor) strike(t *turn, atk, def *Party, move Move, signal PerformanceSignal) {
	attacker, defender := atk.Active(), def.Active()

	moveType := move.Type
	if moveType == "" && len(attacker.Types) > 0 {
		moveType = attacker.Types[0]
	}
	if moveType == "" {
		moveType = "Normal"
	}
	moveName := move.Name
	if moveName == "" {
		moveName = typechart.Normalize(moveType) + " Attack"
	}

	typeMult := p.chart.Multiplier(moveType, defender.Types)
	signal.Accuracy *= p.env.AccuracyFactor(t.sess.Environment)
	res := p.calc.Calculate(attacker.Stats(), defender.Stats(), signal, typeMult, p.env.DamageFactor(t.sess.Environment, moveType))

	t.say("%s used %s!", attacker.Name, moveName)
	if res.Immune() {
		t.say("%s", LabelNoEffect)
		t.event(Event{Kind: EventImmune, PartyID: def.ID, MonsterID: defender.ID})
		return
	}

	dealt := defender.ApplyDamage(res.Damage)
	if res.IsCritical {
		t.say("A critical hit!")
	}
	if res.Effectiveness != "" {
		t.say("%s", res.Effectiveness)
	}
	t.say("%s took %d damage.", defender.Name, dealt)
	t.event(Event{
		Kind:       EventDamage,
		PartyID:    def.ID,
		MonsterID:  defender.ID,
		Amount:     dealt,
		Multiplier: res.Multiplier,
		Critical:   res.IsCritical,
	})

	if defender.Fainted {
		p.faint(t, def)
	}
}

// faint handles the active monster of party having just fainted: the next
// available monster becomes active, then the battle is checked for an end.
func (p *Processor) faint(t *turn, party *Party) {
	down := party.Active()
	t.say("%s fainted!", down.Name)
	t.event(Event{Kind: EventFaint, PartyID: party.ID, MonsterID: down.ID})

	next := party.NextAvailable()
	if next >= 0 {
		party.ActiveIndex = next
	}
	if p.resolve(t) {
		return
	}
	if next >= 0 {
		up := party.Active()
		t.say("%s sent out %s!", party.Name, up.Name)
		t.event(Event{Kind: EventSwitch, PartyID: party.ID, MonsterID: up.ID})
	}
}

// endOfTurn applies weather chip damage to every standing active monster.
func (p *Processor) endOfTurn(t *turn) {
	if t.sess.Status.Terminal() {
		return
	}
	w, _ := t.sess.Environment.normalized()
	var fainted []*Party
	for i := range t.sess.Parties {
		party := &t.sess.Parties[i]
		if party.Wiped() {
			continue
		}
		m := party.Active()
		chip := p.env.ChipDamage(t.sess.Environment, m)
		if chip == 0 {
			continue
		}
		dealt := m.ApplyDamage(chip)
		t.say("%s is buffeted by the %s! (%d damage)", m.Name, w, dealt)
		t.event(Event{Kind: EventWeatherChip, PartyID: party.ID, MonsterID: m.ID, Amount: dealt})
		if m.Fainted {
			fainted = append(fainted, party)
		}
	}
	// Chip damage lands simultaneously; faints are resolved afterwards so a
	// double knockout is seen as a draw.
	for _, party := range fainted {
		if t.sess.Status.Terminal() {
			down := party.Active()
			t.event(Event{Kind: EventFaint, PartyID: party.ID, MonsterID: down.ID})
			t.say("%s fainted!", down.Name)
			if next := party.NextAvailable(); next >= 0 {
				party.ActiveIndex = next
			}
			continue
		}
		p.faint(t, party)
	}
}

// resolve ends the battle if either side is defeated.
//
// Postcondition: Returns true iff the session is terminal.
func (p *Processor) resolve(t *turn) bool {
	if t.sess.Status.Terminal() {
		return true
	}
	playersOut := t.sess.SideDefeated(SidePlayers)
	opponentsOut := t.sess.SideDefeated(SideOpponents)
	switch {
	case playersOut && opponentsOut:
		p.end(t, StatusDraw, "", "")
	case opponentsOut:
		p.end(t, StatusWon, SidePlayers, SideOpponents)
	case playersOut:
		p.end(t, StatusLost, SideOpponents, SidePlayers)
	default:
		return false
	}
	return true
}

func (p *Processor) end(t *turn, status Status, winner, loser Side) {
	t.sess.Status = status
	t.sess.Winner = winner
	t.sess.Loser = loser
	t.result = &Result{Status: status, Winner: winner, Loser: loser}
	t.event(Event{Kind: EventBattleEnded, Status: status, Winner: winner, Loser: loser})
	t.say("%s", endNarration(status, loser))
}

func endNarration(status Status, loser Side) string {
	switch status {
	case StatusWon:
		return "The players are victorious!"
	case StatusLost:
		return "The players were defeated..."
	case StatusDraw:
		return "Both sides are out of monsters. The battle ends in a draw."
	case StatusRetreat:
		return "Got away safely!"
	case StatusForfeited:
		return fmt.Sprintf("The %s forfeited the battle.", loser)
	case StatusAbandoned:
		return "The battle was abandoned."
	}
	return ""
}

func (p *Processor) useItem(t *turn, u UseItem) error {
	party, err := t.sess.Party(u.PartyID)
	if err != nil {
		return err
	}
	if u.TargetIndex >= len(party.Monsters) {
		return Validationf("party %q has no roster slot %d", party.ID, u.TargetIndex)
	}
	m := &party.Monsters[u.TargetIndex]
	switch {
	case m.Fainted && !u.Item.Revive:
		return InvalidStatef("%s has fainted and can only be revived", m.Name)
	case !m.Fainted && u.Item.Revive:
		return InvalidStatef("%s has not fainted", m.Name)
	case !m.Fainted && m.CurrentHP == m.MaxHP:
		return InvalidStatef("%s is already at full health", m.Name)
	}

	wasWiped := party.Wiped()
	restored := m.Heal(healAmount(m.MaxHP, u.Item))
	t.say("%s used %s on %s.", party.Name, u.Item.Name, m.Name)
	if u.Item.Revive {
		t.say("%s was revived with %d HP!", m.Name, m.CurrentHP)
		t.event(Event{Kind: EventRevive, PartyID: party.ID, MonsterID: m.ID, Amount: restored})
		if wasWiped {
			party.ActiveIndex = u.TargetIndex
		}
		return nil
	}
	t.say("%s recovered %d HP.", m.Name, restored)
	t.event(Event{Kind: EventHeal, PartyID: party.ID, MonsterID: m.ID, Amount: restored})
	return nil
}

// healAmount returns the fixed amount, else the percentage of max, else 20% of
// max; never less than 1.
func healAmount(maxHP int, item Item) int {
	switch {
	case item.HealAmount > 0:
		return item.HealAmount
	case item.HealPercent > 0:
		return max(1, int(float64(maxHP)*item.HealPercent))
	default:
		return max(1, maxHP/5)
	}
}

func (p *Processor) switchActive(t *turn, s Switch) error {
	party, err := t.sess.Party(s.PartyID)
	if err != nil {
		return err
	}
	if party.Wiped() {
		return InvalidStatef("party %q has no monster able to battle", party.ID)
	}

	to := s.ToIndex
	if s.Withdraw {
		to = party.nextOther()
		if to < 0 {
			return InvalidStatef("%s has no other monster able to battle", party.Name)
		}
	}
	if to >= len(party.Monsters) {
		return Validationf("party %q has no roster slot %d", party.ID, to)
	}
	if to == party.ActiveIndex {
		return InvalidStatef("%s is already battling", party.Monsters[to].Name)
	}
	if party.Monsters[to].Fainted {
		return InvalidStatef("%s has fainted and cannot battle", party.Monsters[to].Name)
	}

	prev := party.Active()
	if !prev.Fainted {
		t.say("%s, come back!", prev.Name)
	}
	party.ActiveIndex = to
	t.say("Go, %s!", party.Active().Name)
	t.event(Event{Kind: EventSwitch, PartyID: party.ID, MonsterID: party.Active().ID})
	return nil
}

func (p *Processor) flee(t *turn, f Flee) error {
	if t.sess.Mode != ModePvE {
		return InvalidStatef("there is no running from a trainer battle")
	}
	party, err := t.sess.Party(f.PartyID)
	if err != nil {
		return err
	}
	if party.Wiped() {
		return InvalidStatef("party %q has no monster able to battle", party.ID)
	}

	if p.roller.Chance("flee", p.policy.FleeChance) {
		p.end(t, StatusRetreat, "", "")
		return nil
	}

	t.say("Couldn't get away!")
	t.event(Event{Kind: EventFleeFailed, PartyID: party.ID})
	opp, err := p.target(t.sess, party, "")
	if err != nil {
		return err
	}
	p.strike(t, opp, party, Move{}, p.policy.OpponentSignal(opp.Active().Level))
	p.endOfTurn(t)
	return nil
}

func (p *Processor) forfeit(t *turn, f Forfeit) error {
	party, err := t.sess.Party(f.PartyID)
	if err != nil {
		return err
	}
	p.end(t, StatusForfeited, party.Side.Opposing(), party.Side)
	return nil
}

func (p *Processor) override(t *turn, o Override) error {
	switch o.Op {
	case OverrideForceWin:
		p.end(t, StatusWon, SidePlayers, SideOpponents)
	case OverrideForceLose:
		p.end(t, StatusLost, SideOpponents, SidePlayers)
	case OverrideSetWinCondition:
		n, err := p.policy.ResolveWinCondition(o.WinCondition, t.sess.LargestSideRoster())
		if err != nil {
			return err
		}
		t.sess.WinCondition = n
		if n != o.WinCondition {
			t.say("Win condition %d exceeds every roster; using %d.", o.WinCondition, n)
		}
		t.say("The first side to lose %d monsters loses the battle.", n)
		t.event(Event{Kind: EventWinCondition, Amount: n})
		p.resolve(t)
	case OverrideSetWeather:
		w, err := p.env.ParseWeather(string(o.Weather))
		if err != nil {
			return err
		}
		t.sess.Environment.Weather = w
		t.say("The weather is now %s.", displayTitle.String(string(w)))
		t.event(Event{Kind: EventEnvironment})
	case OverrideSetTerrain:
		tr, err := p.env.ParseTerrain(string(o.Terrain))
		if err != nil {
			return err
		}
		t.sess.Environment.Terrain = tr
		t.say("The terrain is now %s.", displayTitle.String(string(tr)))
		t.event(Event{Kind: EventEnvironment})
	}
	return nil
}
