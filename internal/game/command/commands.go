// Package command provides the battle command registry, parser, and built-in
// command definitions.
package command

// Categories for organizing commands.
const (
	CategoryBattle    = "battle"
	CategoryInfo      = "info"
	CategoryModerator = "moderator"
)

// Handler identifiers mapping commands to controller operations.
const (
	HandlerStart        = "start"
	HandlerAttack       = "attack"
	HandlerUseItem      = "use_item"
	HandlerRelease      = "release"
	HandlerWithdraw     = "withdraw"
	HandlerStatus       = "status"
	HandlerFlee         = "flee"
	HandlerForfeit      = "forfeit"
	HandlerSetWeather   = "set_weather"
	HandlerSetTerrain   = "set_terrain"
	HandlerForceWin     = "force_win"
	HandlerForceLose    = "force_lose"
	HandlerWinCondition = "win_condition"
	HandlerHelp         = "help"
)

// Command defines a battle command invocable from a thread.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument synopsis shown in help.
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command (battle, info, moderator).
	Category string
	// Handler maps to the controller operation.
	Handler string
	// NeedsBattle requires an active battle bound to the thread.
	NeedsBattle bool
	// NeedsParty requires the actor to control a party in that battle.
	NeedsParty bool
	// Moderator restricts the command to configured moderators.
	Moderator bool
}

// BuiltinCommands returns all built-in battle commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "battle", Aliases: []string{"fight"}, Usage: "<opponent> | vs <trainer>... [win=<n>] [weather=<w>] [terrain=<t>]", Help: "Start a battle in this thread", Category: CategoryBattle, Handler: HandlerStart},
		{Name: "attack", Aliases: []string{"att"}, Usage: "[move[/type]] [target] [speed=<n>] [accuracy=<n>]", Help: "Attack an opposing monster", Category: CategoryBattle, Handler: HandlerAttack, NeedsBattle: true, NeedsParty: true},
		{Name: "use-item", Aliases: []string{"item", "use"}, Usage: "<item> [monster]", Help: "Use a healing or revive item", Category: CategoryBattle, Handler: HandlerUseItem, NeedsBattle: true, NeedsParty: true},
		{Name: "release", Aliases: []string{"send"}, Usage: "<monster>", Help: "Send a monster out to battle", Category: CategoryBattle, Handler: HandlerRelease, NeedsBattle: true, NeedsParty: true},
		{Name: "withdraw", Aliases: []string{"recall"}, Usage: "", Help: "Recall the active monster for the next one able to battle", Category: CategoryBattle, Handler: HandlerWithdraw, NeedsBattle: true, NeedsParty: true},
		{Name: "flee", Aliases: []string{"run"}, Usage: "", Help: "Attempt to run from a wild battle", Category: CategoryBattle, Handler: HandlerFlee, NeedsBattle: true, NeedsParty: true},
		{Name: "forfeit", Aliases: []string{"surrender"}, Usage: "", Help: "Concede the battle", Category: CategoryBattle, Handler: HandlerForfeit, NeedsBattle: true, NeedsParty: true},

		{Name: "battle-status", Aliases: []string{"status", "bs"}, Usage: "", Help: "Show the current battle state", Category: CategoryInfo, Handler: HandlerStatus, NeedsBattle: true},
		{Name: "help", Aliases: []string{"?"}, Usage: "", Help: "Show available commands", Category: CategoryInfo, Handler: HandlerHelp},

		{Name: "set-weather", Aliases: []string{"weather"}, Usage: "<weather>", Help: "Change the battle weather", Category: CategoryModerator, Handler: HandlerSetWeather, NeedsBattle: true, Moderator: true},
		{Name: "set-terrain", Aliases: []string{"terrain"}, Usage: "<terrain>", Help: "Change the battle terrain", Category: CategoryModerator, Handler: HandlerSetTerrain, NeedsBattle: true, Moderator: true},
		{Name: "forcewin", Aliases: nil, Usage: "", Help: "End the battle as a win for the players", Category: CategoryModerator, Handler: HandlerForceWin, NeedsBattle: true, Moderator: true},
		{Name: "forcelose", Aliases: nil, Usage: "", Help: "End the battle as a loss for the players", Category: CategoryModerator, Handler: HandlerForceLose, NeedsBattle: true, Moderator: true},
		{Name: "win-condition", Aliases: []string{"wc"}, Usage: "<count>", Help: "Set how many knockouts end the battle", Category: CategoryModerator, Handler: HandlerWinCondition, NeedsBattle: true, Moderator: true},
	}
}
