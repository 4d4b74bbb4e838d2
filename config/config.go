package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/newstrader/calendar"
	"github.com/rustyeddy/newstrader/news"
	"github.com/rustyeddy/newstrader/risk"
	"github.com/rustyeddy/newstrader/selector"
)

// Config represents the complete bot configuration
type Config struct {
	Broker   BrokerConfig   `json:"broker" yaml:"broker"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Calendar CalendarConfig `json:"calendar" yaml:"calendar"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Bot      BotConfig      `json:"bot" yaml:"bot"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// BrokerConfig selects the market access implementation
type BrokerConfig struct {
	Kind    string `json:"kind" yaml:"kind"` // "sim", "paper" or "oanda"
	Env     string `json:"env" yaml:"env"`   // "practice" or "live"
	Account string `json:"account,omitempty" yaml:"account,omitempty"`
	// Token is normally supplied through OANDA_TOKEN.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// StrategyConfig contains strategy parameters
type StrategyConfig struct {
	Mode            string    `json:"mode" yaml:"mode"` // pending, reactive, multi-timeframe, sandwich
	Lots            float64   `json:"lots" yaml:"lots"`
	Policy          string    `json:"policy" yaml:"policy"` // current or legacy
	Table           string    `json:"table" yaml:"table"`   // extended or legacy
	TriggerDelay    string    `json:"trigger_delay" yaml:"trigger_delay"`
	AdaptiveGrid    bool      `json:"adaptive_grid" yaml:"adaptive_grid"`
	GridLevels      []float64 `json:"grid_levels,omitempty" yaml:"grid_levels,omitempty"`
	HedgePips       float64   `json:"hedge_pips,omitempty" yaml:"hedge_pips,omitempty"`
	MonitorInterval string    `json:"monitor_interval" yaml:"monitor_interval"`
}

// CalendarConfig locates the weekly news files
type CalendarConfig struct {
	URL       string `json:"url" yaml:"url"`
	DataDir   string `json:"data_dir" yaml:"data_dir"`
	PrettyDir string `json:"pretty_dir,omitempty" yaml:"pretty_dir,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type         string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath       string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OutcomesFile string `json:"outcomes_file,omitempty" yaml:"outcomes_file,omitempty"`
	RunsFile     string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
}

// BotConfig drives the polling loop
type BotConfig struct {
	TickInterval   string `json:"tick_interval" yaml:"tick_interval"`
	TradeWeekends  bool   `json:"trade_weekends" yaml:"trade_weekends"`
	RefreshWeekday string `json:"refresh_weekday" yaml:"refresh_weekday"`
	RefreshTime    string `json:"refresh_time" yaml:"refresh_time"` // HH:MM UTC
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

// Modes lists the accepted strategy.mode values.
var Modes = []string{"pending", "reactive", "multi-timeframe", "sandwich"}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadEnv reads .env files, when present, and applies environment
// overrides. Missing files are ignored.
func (c *Config) LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("OANDA_TOKEN", &c.Broker.Token)
	str("OANDA_ACCOUNT", &c.Broker.Account)
	str("OANDA_ENV", &c.Broker.Env)
	str("NEWSTRADER_BROKER", &c.Broker.Kind)
	str("NEWSTRADER_MODE", &c.Strategy.Mode)
	str("NEWSTRADER_POLICY", &c.Strategy.Policy)
	str("NEWSTRADER_DATA_DIR", &c.Calendar.DataDir)
	str("NEWSTRADER_DB", &c.Journal.DBPath)
	str("NEWSTRADER_LOG_LEVEL", &c.Log.Level)

	if v, ok := os.LookupEnv("NEWSTRADER_LOTS"); ok && v != "" {
		lots, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("NEWSTRADER_LOTS: %w", err)
		}
		c.Strategy.Lots = lots
	}
	if v, ok := os.LookupEnv("NEWSTRADER_TRADE_WEEKENDS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NEWSTRADER_TRADE_WEEKENDS: %w", err)
		}
		c.Bot.TradeWeekends = b
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Broker.Kind {
	case "sim", "paper", "oanda":
	default:
		return fmt.Errorf("broker.kind must be 'sim', 'paper' or 'oanda'")
	}
	if c.Broker.Kind != "sim" && c.Broker.Env != "practice" && c.Broker.Env != "live" {
		return fmt.Errorf("broker.env must be 'practice' or 'live'")
	}

	if !validMode(c.Strategy.Mode) {
		return fmt.Errorf("strategy.mode must be one of %s", strings.Join(Modes, ", "))
	}
	if c.Strategy.Lots <= 0 {
		return fmt.Errorf("strategy.lots must be positive")
	}
	if _, err := risk.PolicyByName(c.Strategy.Policy); err != nil {
		return fmt.Errorf("strategy.policy: %w", err)
	}
	if _, ok := selector.TableByName(c.Strategy.Table); !ok {
		return fmt.Errorf("strategy.table must be 'extended' or 'legacy'")
	}
	if _, err := parseDuration(c.Strategy.TriggerDelay); err != nil {
		return fmt.Errorf("strategy.trigger_delay: %w", err)
	}
	if _, err := parseDuration(c.Strategy.MonitorInterval); err != nil {
		return fmt.Errorf("strategy.monitor_interval: %w", err)
	}
	for _, l := range c.Strategy.GridLevels {
		if l <= 0 {
			return fmt.Errorf("strategy.grid_levels must be positive")
		}
	}
	if c.Strategy.HedgePips < 0 {
		return fmt.Errorf("strategy.hedge_pips cannot be negative")
	}

	if c.Calendar.DataDir == "" {
		return fmt.Errorf("calendar.data_dir is required")
	}

	switch c.Journal.Type {
	case "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.OutcomesFile == "" || c.Journal.RunsFile == "" {
			return fmt.Errorf("journal outcomes_file and runs_file required for CSV type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	if _, err := parseDuration(c.Bot.TickInterval); err != nil {
		return fmt.Errorf("bot.tick_interval: %w", err)
	}
	if _, err := ParseWeekday(c.Bot.RefreshWeekday); err != nil {
		return fmt.Errorf("bot.refresh_weekday: %w", err)
	}
	if _, _, err := c.Bot.RefreshClock(); err != nil {
		return fmt.Errorf("bot.refresh_time: %w", err)
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// Credentials reports whether the OANDA account and token are present.
func (b BrokerConfig) Credentials() error {
	if b.Token == "" {
		return fmt.Errorf("oanda token missing (set OANDA_TOKEN)")
	}
	if b.Account == "" {
		return fmt.Errorf("oanda account missing (set OANDA_ACCOUNT)")
	}
	return nil
}

// Practice reports whether the broker targets the practice environment.
func (b BrokerConfig) Practice() bool { return b.Env != "live" }

// Grid returns the fixed grid, falling back to the built-in one.
func (s StrategyConfig) Grid() risk.GridPlan {
	g := risk.DefaultGrid()
	if len(s.GridLevels) > 0 {
		g.Levels = append([]float64(nil), s.GridLevels...)
	}
	if s.HedgePips > 0 {
		g.Hedge = s.HedgePips
	}
	return g
}

// TriggerDelayDuration defaults to five minutes.
func (s StrategyConfig) TriggerDelayDuration() time.Duration {
	return durationOr(s.TriggerDelay, news.DefaultTriggerDelay)
}

// MonitorIntervalDuration defaults to five seconds.
func (s StrategyConfig) MonitorIntervalDuration() time.Duration {
	return durationOr(s.MonitorInterval, 5*time.Second)
}

// TickIntervalDuration defaults to one minute.
func (b BotConfig) TickIntervalDuration() time.Duration {
	return durationOr(b.TickInterval, time.Minute)
}

// RefreshClock parses RefreshTime as HH:MM.
func (b BotConfig) RefreshClock() (hour, minute int, err error) {
	if b.RefreshTime == "" {
		return 20, 30, nil
	}
	t, err := time.Parse("15:04", b.RefreshTime)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	if s == "" {
		return time.Sunday, nil
	}
	l := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if l == name || l == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func validMode(m string) bool {
	for _, v := range Modes {
		if m == v {
			return true
		}
	}
	return false
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := parseDuration(s)
	if err != nil || d == 0 {
		return def
	}
	return d
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Kind: "sim",
			Env:  "practice",
		},
		Strategy: StrategyConfig{
			Mode:            "pending",
			Lots:            0.01,
			Policy:          "current",
			Table:           "extended",
			TriggerDelay:    "5m",
			AdaptiveGrid:    true,
			MonitorInterval: "5s",
		},
		Calendar: CalendarConfig{
			URL:       calendar.FeedURL,
			DataDir:   "./data",
			PrettyDir: "./data/pretty",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./newstrader.db",
		},
		Bot: BotConfig{
			TickInterval:   "1m",
			RefreshWeekday: "sunday",
			RefreshTime:    "20:30",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
