// Package main provides the battle simulator: it wires the battle engine to a
// configured session store and plays one battle, either automatically or from
// commands typed on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monbattle/internal/config"
	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/command"
	"github.com/cory-johannsen/monbattle/internal/game/dice"
	"github.com/cory-johannsen/monbattle/internal/game/item"
	"github.com/cory-johannsen/monbattle/internal/game/opponent"
	"github.com/cory-johannsen/monbattle/internal/game/reward"
	"github.com/cory-johannsen/monbattle/internal/game/trainer"
	"github.com/cory-johannsen/monbattle/internal/game/typechart"
	"github.com/cory-johannsen/monbattle/internal/gameserver"
	"github.com/cory-johannsen/monbattle/internal/observability"
	"github.com/cory-johannsen/monbattle/internal/storage/postgres"
	"github.com/cory-johannsen/monbattle/internal/storage/redis"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	envFile := flag.String("env", ".env", "optional dotenv file applied before the config is read")
	trainerID := flag.String("trainer", "red", "trainer who starts the battle")
	opponentID := flag.String("opponent", "youngster-joey", "opponent template to battle")
	versus := flag.String("vs", "", "comma-separated trainer ids for a PvP battle instead of -opponent")
	seed := flag.Uint64("seed", 0, "dice seed for a reproducible battle; 0 uses crypto randomness")
	interactive := flag.Bool("interactive", false, "read battle commands from stdin instead of auto-attacking")
	maxTurns := flag.Int("max-turns", 200, "give up an automatic battle after this many commands")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := dice.NewCryptoSource()
	if *seed != 0 {
		src = dice.NewSeededSource(*seed)
	}
	roller := dice.NewLoggedRoller(src, logger)

	contentStart := time.Now()
	chart, err := typechart.LoadChart(cfg.Content.TypeChart)
	if err != nil {
		logger.Fatal("loading type chart", zap.Error(err))
	}
	envTable := battle.DefaultModifierTable()
	if cfg.Content.Environment != "" {
		if envTable, err = battle.LoadModifierTable(cfg.Content.Environment); err != nil {
			logger.Fatal("loading environment table", zap.Error(err))
		}
	}
	rewardTable := reward.DefaultTable()
	if cfg.Content.Rewards != "" {
		if rewardTable, err = reward.LoadTable(cfg.Content.Rewards); err != nil {
			logger.Fatal("loading reward table", zap.Error(err))
		}
	}
	catalog, err := opponent.LoadCatalog(cfg.Content.OpponentsDir)
	if err != nil {
		logger.Fatal("loading opponent templates", zap.Error(err))
	}
	items := item.DefaultCatalog()
	if cfg.Content.Items != "" {
		if items, err = item.LoadCatalog(cfg.Content.Items); err != nil {
			logger.Fatal("loading item catalog", zap.Error(err))
		}
	}
	roster, err := trainer.LoadDir(cfg.Content.TrainersDir)
	if err != nil {
		logger.Fatal("loading trainers", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("types", len(chart.Types())),
		zap.Int("opponents", catalog.Len()),
		zap.Int("items", items.Len()),
		zap.Int("trainers", len(roster)),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	backend, err := openBackend(ctx, cfg, roster, logger)
	if err != nil {
		logger.Fatal("opening session store", zap.String("store", cfg.Battle.SessionStore), zap.Error(err))
	}
	defer backend.close()

	processor := battle.NewProcessor(chart, envTable, roller, gameserver.PolicyFromConfig(cfg.Battle), logger)
	generator := reward.NewGenerator(rewardTable, roller, cfg.Reward.PartialRate, logger)
	controller := gameserver.NewBattleController(
		processor, backend.sessions, backend.trainers, catalog, generator, backend.sink,
		cfg.Battle.PvPDifficulty, observability.Component(logger, "controller"),
	)
	router := gameserver.NewCommandRouter(controller, command.DefaultRegistry(), items, cfg.Battle.Moderators, observability.Component(logger, "router"))

	threadID := "sim-" + uuid.NewString()
	logger.Info("simulator initialized",
		zap.String("thread_id", threadID),
		zap.String("store", cfg.Battle.SessionStore),
		zap.Duration("startup", time.Since(start)),
	)

	if *interactive {
		if err := runInteractive(ctx, router, threadID, *trainerID); err != nil {
			logger.Fatal("reading commands", zap.Error(err))
		}
		return
	}

	startLine := "/battle " + *opponentID
	if *versus != "" {
		startLine = "/battle vs " + strings.Join(strings.Split(*versus, ","), " ")
	}
	if err := runAuto(ctx, router, controller, threadID, *trainerID, startLine, *maxTurns); err != nil {
		logger.Fatal("simulating battle", zap.Error(err))
	}
}

// backend bundles the stores selected by battle.session_store.
type backend struct {
	sessions gameserver.SessionStore
	trainers gameserver.TrainerStore
	sink     gameserver.RewardSink
	close    func()
}

// openBackend connects the configured session store. Postgres also serves
// trainers and records rewards; the other stores keep trainers in memory and
// log rewards.
func openBackend(ctx context.Context, cfg config.Config, roster []*trainer.Trainer, logger *zap.Logger) (*backend, error) {
	memTrainers, err := gameserver.NewMemoryTrainers(roster...)
	if err != nil {
		return nil, err
	}
	b := &backend{
		sessions: gameserver.NewMemoryStore(),
		trainers: memTrainers,
		sink:     gameserver.NewLogSink(observability.Component(logger, "rewards")),
		close:    func() {},
	}

	switch cfg.Battle.SessionStore {
	case config.StorePostgres:
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		trainers := postgres.NewTrainerRepository(pool.DB())
		for _, t := range roster {
			if err := trainers.Create(ctx, t); err != nil && !errors.Is(err, battle.ErrValidation) {
				pool.Close()
				return nil, fmt.Errorf("seeding trainer %q: %w", t.ID, err)
			}
		}
		b.sessions = postgres.NewBattleRepository(pool.DB())
		b.trainers = trainers
		b.sink = postgres.NewRewardRepository(pool.DB())
		b.close = pool.Close
	case config.StoreRedis:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		b.sessions = redis.NewSessionStore(client, cfg.Redis.KeyPrefix+":", cfg.Redis.SessionTTL)
		b.close = func() { _ = client.Close() }
	}
	return b, nil
}

// runAuto starts a battle and attacks with the default move until it ends.
// Fainted monsters are replaced by the engine, so attacking is always legal
// while the battle is active.
func runAuto(ctx context.Context, router *gameserver.CommandRouter, controller *gameserver.BattleController, threadID, actorID, startLine string, maxTurns int) error {
	res := router.HandleLine(ctx, threadID, actorID, startLine)
	fmt.Println(res.Message)
	if !res.Success {
		return fmt.Errorf("starting battle: %s", res.Message)
	}
	sess, err := controller.BattleForThread(ctx, threadID)
	if err != nil {
		return err
	}

	for i := 0; i < maxTurns; i++ {
		if err := ctx.Err(); err != nil {
			if _, abandonErr := controller.AbandonBattle(context.WithoutCancel(ctx), sess.ID); abandonErr != nil {
				return abandonErr
			}
			fmt.Println("The battle was abandoned.")
			return nil
		}
		res := router.HandleLine(ctx, threadID, actorID, "/attack")
		fmt.Println(res.Message)
		fmt.Println()

		current, err := controller.Battle(ctx, sess.ID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			fmt.Printf("Battle over: %s after %d turns.\n", current.Status, current.Turn)
			return nil
		}
		if !res.Success {
			return fmt.Errorf("turn rejected: %s", res.Message)
		}
	}
	if _, err := controller.AbandonBattle(ctx, sess.ID); err != nil {
		return err
	}
	fmt.Printf("No result after %d commands; the battle was abandoned.\n", maxTurns)
	return nil
}

// runInteractive feeds stdin lines to the router until EOF or a signal.
func runInteractive(ctx context.Context, router *gameserver.CommandRouter, threadID, actorID string) error {
	fmt.Printf("Thread %s. Type /help for commands; end input to quit.\n", threadID)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, open := <-lines:
			if !open {
				return <-scanErr
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			res := router.HandleLine(ctx, threadID, actorID, line)
			fmt.Println(res.Message)
		}
	}
}
