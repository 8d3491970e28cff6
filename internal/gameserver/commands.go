package gameserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/command"
	"github.com/cory-johannsen/monbattle/internal/game/item"
	"github.com/cory-johannsen/monbattle/internal/game/typechart"
)

// CommandResult is the reply to one thread command.
type CommandResult struct {
	Success bool
	Message string
}

func ok(format string, args ...any) CommandResult {
	return CommandResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) CommandResult {
	return CommandResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// CommandRouter maps thread commands onto BattleController calls. The
// preconditions a command declares (bound battle, owned party, moderator
// rights) are checked here once, before any handler runs.
type CommandRouter struct {
	controller *BattleController
	registry   *command.Registry
	items      *item.Catalog
	moderators map[string]bool
	logger     *zap.Logger
}

// NewCommandRouter creates a CommandRouter.
//
// Precondition: controller and registry must be non-nil; a nil items uses
// item.DefaultCatalog.
// Postcondition: Returns a non-nil CommandRouter.
func NewCommandRouter(controller *BattleController, registry *command.Registry, items *item.Catalog, moderators []string, logger *zap.Logger) *CommandRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if items == nil {
		items = item.DefaultCatalog()
	}
	mods := make(map[string]bool, len(moderators))
	for _, id := range moderators {
		mods[id] = true
	}
	return &CommandRouter{controller: controller, registry: registry, items: items, moderators: mods, logger: logger}
}

// invocation is one command call with its preconditions already resolved.
type invocation struct {
	ctx      context.Context
	threadID string
	actorID  string
	args     []string
	opts     map[string]string
	sess     *battle.Session
	party    *battle.Party
}

// HandleLine parses a raw text line and dispatches it.
func (r *CommandRouter) HandleLine(ctx context.Context, threadID, actorID, line string) CommandResult {
	parsed := command.Parse(line)
	if parsed.Command == "" {
		return fail("Type /help for a list of battle commands.")
	}
	return r.Dispatch(ctx, threadID, actorID, parsed.Command, strings.Fields(parsed.RawArgs))
}

// Dispatch runs the named command for actorID in threadID.
//
// Postcondition: Never panics on user input; failures come back with
// Success false and a message fit to show the actor.
func (r *CommandRouter) Dispatch(ctx context.Context, threadID, actorID, name string, args []string) CommandResult {
	cmd, found := r.registry.Resolve(name)
	if !found {
		return fail("Unknown command %q. Type /help for a list of battle commands.", name)
	}
	if cmd.Moderator && !r.moderators[actorID] {
		return fail("Only moderators can use /%s.", cmd.Name)
	}

	inv := &invocation{ctx: ctx, threadID: threadID, actorID: actorID}
	inv.args, inv.opts = command.SplitArgs(args)

	if cmd.NeedsBattle {
		sess, err := r.controller.BattleForThread(ctx, threadID)
		if err != nil {
			if errors.Is(err, battle.ErrNotFound) {
				return fail("There is no active battle in this thread.")
			}
			return r.failure(cmd, err)
		}
		if sess.Status.Terminal() {
			return fail("This battle has already ended (%s).", sess.Status)
		}
		inv.sess = sess
	}
	if cmd.NeedsParty {
		party, err := inv.sess.PartyForTrainer(actorID)
		if err != nil {
			return fail("You are not part of this battle.")
		}
		inv.party = party
	}

	var (
		res CommandResult
		err error
	)
	switch cmd.Handler {
	case command.HandlerStart:
		res, err = r.start(inv)
	case command.HandlerAttack:
		res, err = r.attack(inv)
	case command.HandlerUseItem:
		res, err = r.useItem(inv)
	case command.HandlerRelease:
		res, err = r.release(inv)
	case command.HandlerWithdraw:
		res, err = r.turn(inv, battle.Switch{PartyID: inv.party.ID, Withdraw: true}, false)
	case command.HandlerFlee:
		res, err = r.turn(inv, battle.Flee{PartyID: inv.party.ID}, false)
	case command.HandlerForfeit:
		res, err = r.turn(inv, battle.Forfeit{PartyID: inv.party.ID}, false)
	case command.HandlerStatus:
		res = ok("%s", RenderStatus(inv.sess))
	case command.HandlerHelp:
		res = ok("%s", r.registry.HelpText(r.moderators[actorID]))
	case command.HandlerSetWeather:
		if len(inv.args) == 0 {
			return fail("Usage: /%s %s", cmd.Name, cmd.Usage)
		}
		res, err = r.turn(inv, battle.Override{Op: battle.OverrideSetWeather, ModeratorID: actorID, Weather: battle.Weather(strings.Join(inv.args, " "))}, false)
	case command.HandlerSetTerrain:
		if len(inv.args) == 0 {
			return fail("Usage: /%s %s", cmd.Name, cmd.Usage)
		}
		res, err = r.turn(inv, battle.Override{Op: battle.OverrideSetTerrain, ModeratorID: actorID, Terrain: battle.Terrain(strings.Join(inv.args, " "))}, false)
	case command.HandlerForceWin:
		res, err = r.turn(inv, battle.Override{Op: battle.OverrideForceWin, ModeratorID: actorID}, false)
	case command.HandlerForceLose:
		res, err = r.turn(inv, battle.Override{Op: battle.OverrideForceLose, ModeratorID: actorID}, false)
	case command.HandlerWinCondition:
		n, convErr := strconv.Atoi(firstArg(inv.args))
		if convErr != nil {
			return fail("Usage: /%s %s", cmd.Name, cmd.Usage)
		}
		res, err = r.turn(inv, battle.Override{Op: battle.OverrideSetWinCondition, ModeratorID: actorID, WinCondition: n}, false)
	default:
		return fail("/%s is not available.", cmd.Name)
	}
	if err != nil {
		return r.failure(cmd, err)
	}
	return res
}

// failure turns an error into a reply. Engine errors are shown as-is; anything
// else is logged and hidden.
func (r *CommandRouter) failure(cmd *command.Command, err error) CommandResult {
	for _, kind := range []error{battle.ErrNotFound, battle.ErrInvalidState, battle.ErrValidation} {
		if errors.Is(err, kind) {
			msg := strings.TrimPrefix(err.Error(), kind.Error()+": ")
			return fail("%s", upperFirst(msg))
		}
	}
	r.logger.Error("command failed", zap.String("command", cmd.Name), zap.Error(err))
	return fail("Failed to run /%s. Please try again.", cmd.Name)
}

func (r *CommandRouter) start(inv *invocation) (CommandResult, error) {
	if len(inv.args) == 0 {
		return fail("Usage: /battle <opponent> or /battle vs <trainer>..."), nil
	}
	req := StartRequest{
		Mode:       battle.ModePvE,
		TrainerIDs: []string{inv.actorID},
		ThreadID:   inv.threadID,
	}
	if strings.EqualFold(inv.args[0], "vs") {
		req.Mode = battle.ModePvP
		req.OpponentTrainerIDs = inv.args[1:]
	} else {
		req.OpponentTemplateID = inv.args[0]
	}
	if v, set := inv.opts["win"]; set {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fail("win= needs a number, got %q", v), nil
		}
		req.WinCondition = n
	}
	weather, hasWeather := inv.opts["weather"]
	terrain, hasTerrain := inv.opts["terrain"]
	if hasWeather || hasTerrain {
		req.Environment = &battle.Environment{Weather: battle.Weather(weather), Terrain: battle.Terrain(terrain)}
	}

	sess, err := r.controller.StartBattle(inv.ctx, req)
	if err != nil {
		return CommandResult{}, err
	}
	var names []string
	for _, p := range sess.SideParties(battle.SideOpponents) {
		names = append(names, p.Name)
	}
	return ok("Battle started against %s!\n%s", strings.Join(names, " and "), RenderStatus(sess)), nil
}

func (r *CommandRouter) attack(inv *invocation) (CommandResult, error) {
	in := battle.Attack{PartyID: inv.party.ID}
	args := inv.args
	if len(args) > 0 {
		if target, found := resolveTarget(inv.sess, inv.party, args[len(args)-1]); found {
			in.TargetPartyID = target
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		name, moveType, _ := strings.Cut(strings.Join(args, " "), "/")
		in.Move = battle.Move{Name: displayTitle.String(name)}
		if moveType != "" {
			in.Move.Type = typechart.Normalize(moveType)
		}
	}

	speed, hasSpeed := inv.opts["speed"]
	accuracy, hasAccuracy := inv.opts["accuracy"]
	if hasSpeed || hasAccuracy {
		signal := r.controller.processor.Policy().OpponentSignal(inv.party.Active().Level)
		var err error
		if hasSpeed {
			if signal.Speed, err = strconv.ParseFloat(speed, 64); err != nil {
				return fail("speed= needs a number, got %q", speed), nil
			}
		}
		if hasAccuracy {
			if signal.Accuracy, err = strconv.ParseFloat(accuracy, 64); err != nil {
				return fail("accuracy= needs a number, got %q", accuracy), nil
			}
		}
		in.Signal = &signal
	}
	return r.turn(inv, in, true)
}

// resolveTarget matches word against the opposing parties: a 1-based position,
// a party id, a party name or a trainer id.
func resolveTarget(sess *battle.Session, actor *battle.Party, word string) (string, bool) {
	opposing := sess.SideParties(actor.Side.Opposing())
	if n, err := strconv.Atoi(word); err == nil {
		if n >= 1 && n <= len(opposing) {
			return opposing[n-1].ID, true
		}
		return "", false
	}
	for _, p := range opposing {
		if strings.EqualFold(word, p.ID) || strings.EqualFold(word, p.Name) || (p.TrainerID != "" && strings.EqualFold(word, p.TrainerID)) {
			return p.ID, true
		}
	}
	return "", false
}

func (r *CommandRouter) useItem(inv *invocation) (CommandResult, error) {
	if len(inv.args) == 0 {
		return fail("Usage: /use-item <item> [monster]"), nil
	}
	args := inv.args
	slot := -1
	if len(args) > 1 {
		if i, found := resolveSlot(inv.party, args[len(args)-1]); found {
			slot = i
			args = args[:len(args)-1]
		}
	}
	it := r.items.Lookup(strings.Join(args, " "))
	if slot < 0 {
		slot = inv.party.ActiveIndex
		if it.Revive {
			slot = firstFainted(inv.party)
			if slot < 0 {
				return fail("None of your monsters need reviving."), nil
			}
		}
	}
	return r.turn(inv, battle.UseItem{PartyID: inv.party.ID, TargetIndex: slot, Item: it}, true)
}

func (r *CommandRouter) release(inv *invocation) (CommandResult, error) {
	if len(inv.args) == 0 {
		return fail("Usage: /release <monster>"), nil
	}
	slot, found := resolveSlot(inv.party, strings.Join(inv.args, " "))
	if !found {
		return fail("You have no monster called %q.", strings.Join(inv.args, " ")), nil
	}
	return r.turn(inv, battle.Switch{PartyID: inv.party.ID, ToIndex: slot}, false)
}

// resolveSlot matches word against a party's roster: a 1-based slot or a
// monster name.
func resolveSlot(party *battle.Party, word string) (int, bool) {
	if n, err := strconv.Atoi(word); err == nil {
		if n >= 1 && n <= len(party.Monsters) {
			return n - 1, true
		}
		return 0, false
	}
	for i, m := range party.Monsters {
		if strings.EqualFold(word, m.Name) {
			return i, true
		}
	}
	return 0, false
}

func firstFainted(party *battle.Party) int {
	for i := range party.Monsters {
		if party.Monsters[i].Fainted {
			return i
		}
	}
	return -1
}

// turn submits one intent. When opponentReplies is set in a PvE battle that is
// still running, the opponent party answers with an attack on the actor.
// Switches are free actions and never draw a reply.
func (r *CommandRouter) turn(inv *invocation, in battle.Intent, opponentReplies bool) (CommandResult, error) {
	res, err := r.controller.ProcessTurn(inv.ctx, inv.sess.ID, in)
	if res.Session == nil {
		return CommandResult{}, err
	}
	lines := append([]string(nil), res.Narration...)
	lines = appendReward(lines, res, err)

	if opponentReplies && res.Result == nil && inv.sess.Mode == battle.ModePvE && inv.party != nil {
		if reply, replied := r.opponentReply(inv, res.Session); replied {
			lines = append(lines, reply...)
		}
	}
	return ok("%s", strings.Join(lines, "\n")), nil
}

func (r *CommandRouter) opponentReply(inv *invocation, sess *battle.Session) ([]string, bool) {
	for _, opp := range sess.SideParties(inv.party.Side.Opposing()) {
		if opp.TrainerID != "" || opp.Wiped() {
			continue
		}
		res, err := r.controller.ProcessTurn(inv.ctx, sess.ID, battle.Attack{PartyID: opp.ID, TargetPartyID: inv.party.ID})
		if res.Session == nil {
			if err != nil {
				r.logger.Warn("opponent reply rejected", zap.String("battle_id", sess.ID), zap.Error(err))
			}
			return nil, false
		}
		return appendReward(append([]string(nil), res.Narration...), res, err), true
	}
	return nil, false
}

func appendReward(lines []string, res TurnResult, err error) []string {
	if res.Reward != nil {
		lines = append(lines, RenderReward(*res.Reward))
	}
	if err != nil {
		lines = append(lines, "Rewards could not be delivered right now; a moderator will follow up.")
	}
	return lines
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
