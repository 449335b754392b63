// Package config provides Viper-based configuration loading for the spell duel
// solver and its service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/spellduel/internal/game/scenario"
)

// PlayerConfig holds the caster's starting stats.
type PlayerConfig struct {
	HP   int `mapstructure:"hp"`
	Mana int `mapstructure:"mana"`
}

// BossConfig holds the opponent's starting stats.
type BossConfig struct {
	HP     int `mapstructure:"hp"`
	Damage int `mapstructure:"damage"`
}

// DuelConfig describes the duel solved when no scenario file is given.
type DuelConfig struct {
	Player PlayerConfig `mapstructure:"player"`
	Boss   BossConfig   `mapstructure:"boss"`
	// Difficulty is "normal", "hard", or "both".
	Difficulty string `mapstructure:"difficulty"`
	// ScenarioDir is an optional directory of YAML scenarios served by name.
	ScenarioDir string `mapstructure:"scenario_dir"`
}

// Scenario converts the configured duel into a scenario named "config".
func (d DuelConfig) Scenario() scenario.Scenario {
	return scenario.Scenario{
		Name:       "config",
		Player:     scenario.Player{HP: d.Player.HP, Mana: d.Player.Mana},
		Boss:       scenario.Boss{HP: d.Boss.HP, Damage: d.Boss.Damage},
		Difficulty: d.Difficulty,
	}
}

// SearchConfig bounds the solver and the scenario script sandbox.
type SearchConfig struct {
	// MaxNodes is the maximum number of states expanded per solve.
	MaxNodes int `mapstructure:"max_nodes"`
	// ScriptInstructionLimit is the Lua opcode budget per scenario script.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// StorageConfig selects where solved scenarios are persisted.
type StorageConfig struct {
	// Driver is "none", "memory", "sqlite", or "postgres".
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

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

// ServerConfig holds duel service gRPC settings.
type ServerConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	// ShutdownTimeout bounds graceful shutdown before in-flight solves are cut off.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.GRPCHost, s.GRPCPort)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TracingConfig holds OpenTelemetry export settings.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port; empty disables export.
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Insecure    bool   `mapstructure:"insecure"`
	// SampleRatio is the fraction of root spans recorded, in [0, 1].
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Config is the top-level application configuration.
type Config struct {
	Duel     DuelConfig     `mapstructure:"duel"`
	Search   SearchConfig   `mapstructure:"search"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDuel(c.Duel); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSearch(c.Search); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Driver == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTracing(c.Tracing); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDuel(d DuelConfig) error {
	var errs []string
	if d.Player.HP < 1 {
		errs = append(errs, fmt.Sprintf("duel.player.hp must be >= 1, got %d", d.Player.HP))
	}
	if d.Player.Mana < 0 {
		errs = append(errs, fmt.Sprintf("duel.player.mana must be >= 0, got %d", d.Player.Mana))
	}
	if d.Boss.HP < 1 {
		errs = append(errs, fmt.Sprintf("duel.boss.hp must be >= 1, got %d", d.Boss.HP))
	}
	if d.Boss.Damage < 0 {
		errs = append(errs, fmt.Sprintf("duel.boss.damage must be >= 0, got %d", d.Boss.Damage))
	}
	validDifficulties := map[string]bool{"normal": true, "hard": true, "both": true}
	if !validDifficulties[d.Difficulty] {
		errs = append(errs, fmt.Sprintf("duel.difficulty must be one of [normal, hard, both], got %q", d.Difficulty))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSearch(s SearchConfig) error {
	var errs []string
	if s.MaxNodes < 1 {
		errs = append(errs, fmt.Sprintf("search.max_nodes must be >= 1, got %d", s.MaxNodes))
	}
	if s.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("search.script_instruction_limit must be >= 0, got %d", s.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Driver {
	case "none", "memory", "postgres":
		return nil
	case "sqlite":
		if s.SQLitePath == "" {
			return errors.New("storage.sqlite_path must not be empty when storage.driver is sqlite")
		}
		return nil
	default:
		return fmt.Errorf("storage.driver must be one of [none, memory, sqlite, postgres], got %q", s.Driver)
	}
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
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.GRPCHost == "" {
		errs = append(errs, "server.grpc_host must not be empty")
	}
	if s.GRPCPort < 1 || s.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("server.grpc_port must be 1-65535, got %d", s.GRPCPort))
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
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

func validateTracing(t TracingConfig) error {
	if t.Endpoint != "" && t.ServiceName == "" {
		return errors.New("tracing.service_name must not be empty when tracing.endpoint is set")
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be in [0, 1], got %v", t.SampleRatio)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with DUEL_ prefix
	v.SetEnvPrefix("DUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("duel.player.hp", 50)
	v.SetDefault("duel.player.mana", 500)
	v.SetDefault("duel.boss.hp", 58)
	v.SetDefault("duel.boss.damage", 9)
	v.SetDefault("duel.difficulty", "both")
	v.SetDefault("duel.scenario_dir", "")

	v.SetDefault("search.max_nodes", 1_000_000)
	v.SetDefault("search.script_instruction_limit", 100_000)

	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.sqlite_path", "spellduel.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "spellduel")
	v.SetDefault("database.password", "spellduel")
	v.SetDefault("database.name", "spellduel")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("server.grpc_host", "127.0.0.1")
	v.SetDefault("server.grpc_port", 50061)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "spellduel")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
}
