package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the process needs to run: connection settings for
// the store, recovery cache and relay, the HTTP listen address, and the game
// rules. Values come from environment variables with defaults; an optional
// YAML file overrides the rules block.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	NatsURL  string
	Port     int
	Rules    Rules
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds connection settings for the session-recovery cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Rules holds the tunable game constants.
type Rules struct {
	QuestionTimer       time.Duration `yaml:"question_timer"`
	QuestionsPerRound   int           `yaml:"questions_per_round"`
	CorrectAnswerPoints int           `yaml:"correct_answer_points"`
	WrongAnswerPoints   int           `yaml:"wrong_answer_points"`
	MinScoreLimit       int           `yaml:"min_score_limit"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
	ActiveWindow        time.Duration `yaml:"active_window"`
	MonitorCadence      time.Duration `yaml:"monitor_cadence"`
	MonitorGrace        time.Duration `yaml:"monitor_grace"`
	BridgeDelay         time.Duration `yaml:"bridge_delay"`
	GameOverDelay       time.Duration `yaml:"game_over_delay"`
	Categories          []string      `yaml:"categories"`
}

// DefaultRules returns the standard game rules.
func DefaultRules() Rules {
	return Rules{
		QuestionTimer:       20 * time.Second,
		QuestionsPerRound:   7,
		CorrectAnswerPoints: 10,
		WrongAnswerPoints:   -5,
		MinScoreLimit:       -420,
		HeartbeatInterval:   30 * time.Second,
		ActiveWindow:        60 * time.Second,
		MonitorCadence:      2 * time.Second,
		MonitorGrace:        5 * time.Second,
		BridgeDelay:         6 * time.Second,
		GameOverDelay:       6500 * time.Millisecond,
		Categories:          []string{"history", "science", "geography", "sports", "movies", "music", "food"},
	}
}

// NewFromEnv builds a Config from the environment. When BUZZROOM_RULES points
// at a YAML file, the rules block is loaded from it on top of the defaults.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "buzzroom"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NatsURL: getEnv("NATS_URL", "nats://localhost:4222"),
		Port:    getEnvAsInt("PORT", 8080),
		Rules:   DefaultRules(),
	}

	if path := os.Getenv("BUZZROOM_RULES"); path != "" {
		rules, err := loadRules(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules file: %w", err)
		}
		cfg.Rules = *rules
	}

	if err := cfg.Rules.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return &rules, nil
}

// UnmarshalYAML accepts Go duration strings ("20s", "6.5s") for the duration
// fields and leaves any key absent from the file at its current value.
func (r *Rules) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		QuestionTimer       string   `yaml:"question_timer"`
		QuestionsPerRound   *int     `yaml:"questions_per_round"`
		CorrectAnswerPoints *int     `yaml:"correct_answer_points"`
		WrongAnswerPoints   *int     `yaml:"wrong_answer_points"`
		MinScoreLimit       *int     `yaml:"min_score_limit"`
		HeartbeatInterval   string   `yaml:"heartbeat_interval"`
		ActiveWindow        string   `yaml:"active_window"`
		MonitorCadence      string   `yaml:"monitor_cadence"`
		MonitorGrace        string   `yaml:"monitor_grace"`
		BridgeDelay         string   `yaml:"bridge_delay"`
		GameOverDelay       string   `yaml:"game_over_delay"`
		Categories          []string `yaml:"categories"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	durations := []struct {
		key string
		dst *time.Duration
		val string
	}{
		{"question_timer", &r.QuestionTimer, raw.QuestionTimer},
		{"heartbeat_interval", &r.HeartbeatInterval, raw.HeartbeatInterval},
		{"active_window", &r.ActiveWindow, raw.ActiveWindow},
		{"monitor_cadence", &r.MonitorCadence, raw.MonitorCadence},
		{"monitor_grace", &r.MonitorGrace, raw.MonitorGrace},
		{"bridge_delay", &r.BridgeDelay, raw.BridgeDelay},
		{"game_over_delay", &r.GameOverDelay, raw.GameOverDelay},
	}
	for _, d := range durations {
		if d.val == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.val)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if raw.QuestionsPerRound != nil {
		r.QuestionsPerRound = *raw.QuestionsPerRound
	}
	if raw.CorrectAnswerPoints != nil {
		r.CorrectAnswerPoints = *raw.CorrectAnswerPoints
	}
	if raw.WrongAnswerPoints != nil {
		r.WrongAnswerPoints = *raw.WrongAnswerPoints
	}
	if raw.MinScoreLimit != nil {
		r.MinScoreLimit = *raw.MinScoreLimit
	}
	if raw.Categories != nil {
		r.Categories = raw.Categories
	}
	return nil
}

func (r Rules) validate() error {
	if r.QuestionsPerRound < 1 {
		return fmt.Errorf("questions_per_round must be positive, got %d", r.QuestionsPerRound)
	}
	if r.QuestionTimer <= 0 {
		return fmt.Errorf("question_timer must be positive, got %s", r.QuestionTimer)
	}
	if r.WrongAnswerPoints > 0 {
		return fmt.Errorf("wrong_answer_points must not be positive, got %d", r.WrongAnswerPoints)
	}
	if len(r.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
