// Package config provides Viper-based configuration loading for the battle engine.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings for the session store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// KeyPrefix namespaces every key written by the session store.
	KeyPrefix string `mapstructure:"key_prefix"`
	// SessionTTL expires stored battle snapshots; zero keeps them forever.
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Win condition overflow policies.
const (
	WinConditionClamp  = "clamp"
	WinConditionReject = "reject"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// BattleConfig holds the turn-resolution policy knobs.
type BattleConfig struct {
	// FleeChance is the probability in [0, 1] that a flee attempt succeeds.
	FleeChance float64 `mapstructure:"flee_chance"`
	// WinConditionPolicy decides what happens when a win condition exceeds
	// every side's roster: "clamp" or "reject".
	WinConditionPolicy string `mapstructure:"win_condition_policy"`
	// AISpeedBase is the base speed proxy for opponent-controlled attacks;
	// half the attacker's level is added on top.
	AISpeedBase float64 `mapstructure:"ai_speed_base"`
	// AIAccuracy is the accuracy proxy for opponent-controlled attacks.
	AIAccuracy float64 `mapstructure:"ai_accuracy"`
	// PvPDifficulty is the reward tier used for trainer-vs-trainer battles.
	PvPDifficulty string `mapstructure:"pvp_difficulty"`
	// Moderators lists actor IDs allowed to issue override commands.
	Moderators []string `mapstructure:"moderators"`
	// SessionStore selects the session persistence backend.
	SessionStore string `mapstructure:"session_store"`
}

// RewardConfig holds reward generation settings.
type RewardConfig struct {
	// PartialRate scales coins and levels for draw and retreat outcomes.
	PartialRate float64 `mapstructure:"partial_rate"`
}

// ContentConfig holds paths to YAML content files.
type ContentConfig struct {
	TypeChart    string `mapstructure:"type_chart"`
	Environment  string `mapstructure:"environment"`
	Rewards      string `mapstructure:"rewards"`
	OpponentsDir string `mapstructure:"opponents_dir"`
	Items        string `mapstructure:"items"`
	// TrainersDir seeds the in-memory trainer store used by the simulator.
	TrainersDir string `mapstructure:"trainers_dir"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Reward   RewardConfig   `mapstructure:"reward"`
	Content  ContentConfig  `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRedis(c.Redis, c.Battle.SessionStore); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Reward.PartialRate < 0 || c.Reward.PartialRate > 1 {
		errs = append(errs, fmt.Sprintf("reward.partial_rate must be in [0, 1], got %v", c.Reward.PartialRate))
	}
	if c.Content.TypeChart == "" {
		errs = append(errs, "content.type_chart must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, fmt.Sprintf("database.min_conns must be in [0, max_conns], got %d", d.MinConns))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateRedis(r RedisConfig, store string) error {
	if store != StoreRedis {
		return nil
	}
	var errs []string
	if r.Addr == "" {
		errs = append(errs, "redis.addr must not be empty when battle.session_store is redis")
	}
	if r.DB < 0 {
		errs = append(errs, fmt.Sprintf("redis.db must be >= 0, got %d", r.DB))
	}
	if r.SessionTTL < 0 {
		errs = append(errs, "redis.session_ttl must be >= 0")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.FleeChance < 0 || b.FleeChance > 1 {
		errs = append(errs, fmt.Sprintf("battle.flee_chance must be in [0, 1], got %v", b.FleeChance))
	}
	if b.WinConditionPolicy != WinConditionClamp && b.WinConditionPolicy != WinConditionReject {
		errs = append(errs, fmt.Sprintf("battle.win_condition_policy must be one of [clamp, reject], got %q", b.WinConditionPolicy))
	}
	if b.AISpeedBase < 0 {
		errs = append(errs, fmt.Sprintf("battle.ai_speed_base must be >= 0, got %v", b.AISpeedBase))
	}
	if b.AIAccuracy < 0 || b.AIAccuracy > 100 {
		errs = append(errs, fmt.Sprintf("battle.ai_accuracy must be in [0, 100], got %v", b.AIAccuracy))
	}
	validTiers := map[string]bool{"easy": true, "normal": true, "hard": true, "elite": true}
	if !validTiers[b.PvPDifficulty] {
		errs = append(errs, fmt.Sprintf("battle.pvp_difficulty must be one of [easy, normal, hard, elite], got %q", b.PvPDifficulty))
	}
	validStores := map[string]bool{StoreMemory: true, StorePostgres: true, StoreRedis: true}
	if !validStores[b.SessionStore] {
		errs = append(errs, fmt.Sprintf("battle.session_store must be one of [memory, postgres, redis], got %q", b.SessionStore))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with MONBATTLE_ prefix
	v.SetEnvPrefix("MONBATTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance populated with every default value and
// no config file.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "monbattle")
	v.SetDefault("database.password", "monbattle")
	v.SetDefault("database.name", "monbattle")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "monbattle")
	v.SetDefault("redis.session_ttl", "24h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.flee_chance", 0.5)
	v.SetDefault("battle.win_condition_policy", WinConditionClamp)
	v.SetDefault("battle.ai_speed_base", 30)
	v.SetDefault("battle.ai_accuracy", 85)
	v.SetDefault("battle.pvp_difficulty", "normal")
	v.SetDefault("battle.session_store", StoreMemory)

	v.SetDefault("reward.partial_rate", 0.5)

	v.SetDefault("content.type_chart", "content/types/chart.yaml")
	v.SetDefault("content.environment", "content/environment.yaml")
	v.SetDefault("content.rewards", "content/rewards.yaml")
	v.SetDefault("content.opponents_dir", "content/opponents")
	v.SetDefault("content.trainers_dir", "content/trainers")
	v.SetDefault("content.items", "content/items.yaml")
}
