// Package config loads and validates the service configuration at startup.
// Sources, lowest precedence first: built-in defaults, the YAML file named
// by CONFIG_FILE, a .env file, then the process environment.
// Fail-fast: an invalid value stops the process before anything starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"jobmate/ghostjob-service/internal/normalize"
	"jobmate/ghostjob-service/internal/rules"
	"jobmate/ghostjob-service/internal/source"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all runtime configuration for the ghost-job service.
type Config struct {
	Port        string `yaml:"port" validate:"required,numeric"`
	StoreDriver string `yaml:"store_driver" validate:"oneof=sqlite postgres"`
	DatabaseURL string `yaml:"database_url" validate:"required_if=StoreDriver postgres"`
	DBMaxConns  int32  `yaml:"db_max_conns" validate:"min=1,max=1000"`
	SQLitePath  string `yaml:"sqlite_path" validate:"required_if=StoreDriver sqlite"`
	RedisURL    string `yaml:"redis_url"` // optional; no events without it

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	Adzuna           AdzunaConfig `yaml:"adzuna"`
	GreenhouseBoards []string     `yaml:"greenhouse_boards" validate:"dive,required"`
	InputFile        string       `yaml:"input_file"`

	ScoreIntervalHours int `yaml:"score_interval_hours" validate:"min=1"`
	Workers            int `yaml:"score_workers" validate:"min=1"`
	HistoryWindowDays  int `yaml:"history_window_days" validate:"min=1"`

	Rules rules.Params `yaml:"rules"`
}

// AdzunaConfig holds Adzuna credentials and searches. Without credentials
// the source is skipped.
type AdzunaConfig struct {
	AppID   string               `yaml:"app_id"`
	AppKey  string               `yaml:"app_key" validate:"required_with=AppID"`
	Country string               `yaml:"country" validate:"len=2,lowercase"`
	Queries []source.AdzunaQuery `yaml:"queries" validate:"dive"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:               "8082",
		StoreDriver:        DriverSQLite,
		DBMaxConns:         10,
		SQLitePath:         "ghost_jobs.db",
		LogLevel:           "info",
		LogFormat:          "text",
		Adzuna:             AdzunaConfig{Country: "fi"},
		ScoreIntervalHours: 6,
		Workers:            4,
		HistoryWindowDays:  normalize.DefaultWindowDays,
		Rules:              rules.DefaultParams(),
	}
}

// Load reads .env, the optional CONFIG_FILE and the environment, and
// returns a validated Config.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "GHOST_PORT")
	setString(&c.StoreDriver, "STORE_DRIVER")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.Adzuna.AppID, "ADZUNA_APP_ID")
	setString(&c.Adzuna.AppKey, "ADZUNA_APP_KEY")
	setString(&c.Adzuna.Country, "ADZUNA_COUNTRY")
	setString(&c.InputFile, "INPUT_FILE")

	if v := os.Getenv("ADZUNA_QUERIES"); v != "" {
		c.Adzuna.Queries = ParseAdzunaQueries(v)
	}
	if v := os.Getenv("GREENHOUSE_BOARDS"); v != "" {
		c.GreenhouseBoards = splitList(v)
	}

	errs := []error{
		setInt(&c.ScoreIntervalHours, "SCORE_INTERVAL_HOURS"),
		setInt(&c.Workers, "SCORE_WORKERS"),
		setInt(&c.HistoryWindowDays, "HISTORY_WINDOW_DAYS"),
		setInt32(&c.DBMaxConns, "DB_MAX_CONNS"),
		setInt(&c.Rules.MaxDaysOld, "GHOST_JOB_MAX_DAYS"),
		setInt(&c.Rules.StagnantDays, "STAGNANT_DAYS"),
		setInt(&c.Rules.MinDescriptionWords, "MIN_DESCRIPTION_LENGTH"),
		setInt(&c.Rules.MinKeywordCount, "MIN_KEYWORD_COUNT"),
		setFloat(&c.Rules.HighFrequencyPostsPerWeek, "HIGH_FREQUENCY_POSTS_PER_WEEK"),
		setBool(&c.Rules.StrictSalary, "STRICT_SALARY"),
	}
	return errors.Join(errs...)
}

// Validate checks every field against its validate tag.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RuleParams returns the thresholds the rule evaluator runs with.
func (c *Config) RuleParams() rules.Params {
	return c.Rules
}

// ParseAdzunaQueries parses "what@where" items separated by commas, e.g.
// "data engineer@Helsinki,golang". Where is optional.
func ParseAdzunaQueries(s string) []source.AdzunaQuery {
	var out []source.AdzunaQuery
	for _, item := range splitList(s) {
		what, where, _ := strings.Cut(item, "@")
		what = strings.TrimSpace(what)
		if what == "" {
			continue
		}
		out = append(out, source.AdzunaQuery{What: what, Where: strings.TrimSpace(where)})
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, s)
	}
	*dst = v
	return nil
}

func setInt32(dst *int32, key string) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return fmt.Errorf("%s must be a 32-bit integer, got %q", key, s)
	}
	*dst = int32(v)
	return nil
}

func setFloat(dst *float64, key string) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number, got %q", key, s)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, key string) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("%s must be true or false, got %q", key, s)
	}
	*dst = v
	return nil
}
