package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "sim", cfg.Broker.Kind)
	assert.Equal(t, "pending", cfg.Strategy.Mode)
	assert.Equal(t, 0.01, cfg.Strategy.Lots)
	assert.True(t, cfg.Strategy.AdaptiveGrid)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Minute, cfg.Strategy.TriggerDelayDuration())
	assert.Equal(t, 5*time.Second, cfg.Strategy.MonitorIntervalDuration())
	assert.Equal(t, time.Minute, cfg.Bot.TickIntervalDuration())
	h, m, err := cfg.Bot.RefreshClock()
	require.NoError(t, err)
	assert.Equal(t, 20, h)
	assert.Equal(t, 30, m)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"every mode", func(c *Config) { c.Strategy.Mode = "multi-timeframe" }, ""},
		{"unknown broker", func(c *Config) { c.Broker.Kind = "mt5" }, "broker.kind"},
		{"oanda env", func(c *Config) { c.Broker.Kind, c.Broker.Env = "oanda", "demo" }, "broker.env"},
		{"oanda without token still loads", func(c *Config) { c.Broker.Kind = "oanda" }, ""},
		{"paper", func(c *Config) { c.Broker.Kind = "paper" }, ""},
		{"paper env", func(c *Config) { c.Broker.Kind, c.Broker.Env = "paper", "" }, "broker.env"},
		{"unknown mode", func(c *Config) { c.Strategy.Mode = "scalper" }, "strategy.mode"},
		{"zero lots", func(c *Config) { c.Strategy.Lots = 0 }, "strategy.lots must be positive"},
		{"unknown policy", func(c *Config) { c.Strategy.Policy = "yolo" }, "strategy.policy"},
		{"unknown table", func(c *Config) { c.Strategy.Table = "exotic" }, "strategy.table"},
		{"bad trigger delay", func(c *Config) { c.Strategy.TriggerDelay = "soon" }, "strategy.trigger_delay"},
		{"negative interval", func(c *Config) { c.Strategy.MonitorInterval = "-1s" }, "strategy.monitor_interval"},
		{"bad grid level", func(c *Config) { c.Strategy.GridLevels = []float64{20, 0} }, "strategy.grid_levels"},
		{"missing data dir", func(c *Config) { c.Calendar.DataDir = "" }, "calendar.data_dir is required"},
		{"sqlite without path", func(c *Config) { c.Journal.DBPath = "" }, "db_path required"},
		{"csv without files", func(c *Config) { c.Journal.Type = "csv" }, "outcomes_file and runs_file"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "mongo" }, "journal.type"},
		{"bad weekday", func(c *Config) { c.Bot.RefreshWeekday = "funday" }, "bot.refresh_weekday"},
		{"bad refresh time", func(c *Config) { c.Bot.RefreshTime = "8pm" }, "bot.refresh_time"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Strategy.Mode = "reactive"
			cfg.Strategy.GridLevels = []float64{15, 30}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy:\n  mode: sandwich\n"), 0600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sandwich", cfg.Strategy.Mode)
	assert.Equal(t, 0.01, cfg.Strategy.Lots)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy:\n  mode: scalper\n"), 0600))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OANDA_TOKEN=from-file\nOANDA_ACCOUNT=101-001-1\n"), 0600))

	t.Setenv("OANDA_TOKEN", "")
	t.Setenv("OANDA_ACCOUNT", "")
	t.Setenv("NEWSTRADER_MODE", "reactive")
	t.Setenv("NEWSTRADER_LOTS", "0.05")
	t.Setenv("NEWSTRADER_TRADE_WEEKENDS", "true")
	// godotenv does not override variables that are already set.
	require.NoError(t, os.Unsetenv("OANDA_TOKEN"))
	require.NoError(t, os.Unsetenv("OANDA_ACCOUNT"))

	cfg := Default()
	require.NoError(t, cfg.LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", cfg.Broker.Token)
	assert.Equal(t, "101-001-1", cfg.Broker.Account)
	assert.Equal(t, "reactive", cfg.Strategy.Mode)
	assert.Equal(t, 0.05, cfg.Strategy.Lots)
	assert.True(t, cfg.Bot.TradeWeekends)
	assert.NoError(t, cfg.Broker.Credentials())
}

func TestLoadEnvBadNumber(t *testing.T) {
	t.Setenv("NEWSTRADER_LOTS", "lots")
	assert.ErrorContains(t, Default().LoadEnv(), "NEWSTRADER_LOTS")
}

func TestCredentials(t *testing.T) {
	assert.ErrorContains(t, BrokerConfig{}.Credentials(), "OANDA_TOKEN")
	assert.ErrorContains(t, BrokerConfig{Token: "x"}.Credentials(), "OANDA_ACCOUNT")
	assert.True(t, BrokerConfig{Env: "practice"}.Practice())
	assert.False(t, BrokerConfig{Env: "live"}.Practice())
}

func TestGrid(t *testing.T) {
	g := StrategyConfig{}.Grid()
	assert.Equal(t, []float64{20, 40, 60}, g.Levels)
	assert.Equal(t, 50.0, g.Hedge)

	g = StrategyConfig{GridLevels: []float64{10, 25}, HedgePips: 35}.Grid()
	assert.Equal(t, []float64{10, 25}, g.Levels)
	assert.Equal(t, 35.0, g.Hedge)
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in   string
		want time.Weekday
		err  bool
	}{
		{"", time.Sunday, false},
		{"sunday", time.Sunday, false},
		{"Fri", time.Friday, false},
		{" MONDAY ", time.Monday, false},
		{"someday", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
