// Package config loads runtime settings from a YAML file, environment
// variables and command line flags. Flags win over the file, the file
// wins over defaults. Secrets only come from the environment.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amirphl/xau-signals/internal/indicator"
	"github.com/amirphl/xau-signals/internal/tfutils"
)

// Config is the full runtime configuration.
type Config struct {
	Mode string `yaml:"-"`

	Timeframe          string `yaml:"timeframe"`
	PrecisionTimeframe string `yaml:"precision_timeframe"`

	Start string `yaml:"start"`
	End   string `yaml:"end"`

	TPAmount float64 `yaml:"tp_amount"`
	SLAmount float64 `yaml:"sl_amount"`

	EnableTimeout bool `yaml:"enable_timeout"`
	TimeoutHours  int  `yaml:"timeout_hours"`

	SingleOrderMode  bool   `yaml:"single_order_mode"`
	EnableTimeWindow bool   `yaml:"enable_time_window"`
	TradeStartTime   string `yaml:"trade_start_time"`
	TradeEndTime     string `yaml:"trade_end_time"`

	RequireAmplitude bool `yaml:"require_amplitude"`

	SuperTrend SuperTrendConfig `yaml:"supertrend"`

	ExportDir    string `yaml:"export_dir"`
	ExportPrefix string `yaml:"export_prefix"`

	ImportFile string `yaml:"-"`

	// Secrets, environment only.
	DatabaseURL      string `yaml:"-"`
	TwelveDataAPIKey string `yaml:"-"`
	TelegramToken    string `yaml:"-"`
	TelegramChatID   string `yaml:"-"`
}

// SuperTrendConfig mirrors indicator.SuperTrendConfig with yaml tags.
type SuperTrendConfig struct {
	Lookback   int     `yaml:"lookback"`
	Multiplier float64 `yaml:"multiplier"`
	Method     string  `yaml:"method"`
}

// Indicator converts the yaml form into the indicator package's config.
func (s SuperTrendConfig) Indicator() indicator.SuperTrendConfig {
	return indicator.SuperTrendConfig{
		Lookback:   s.Lookback,
		Multiplier: s.Multiplier,
		Method:     indicator.ATRMethod(s.Method),
	}
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	st := indicator.DefaultSuperTrendConfig()
	return Config{
		Mode:               "backtest",
		Timeframe:          "15m",
		PrecisionTimeframe: "1m",
		TPAmount:           6.0,
		SLAmount:           3.0,
		EnableTimeout:      true,
		TimeoutHours:       24,
		SingleOrderMode:    false,
		EnableTimeWindow:   false,
		TradeStartTime:     "16:00",
		TradeEndTime:       "23:00",
		RequireAmplitude:   false,
		SuperTrend: SuperTrendConfig{
			Lookback:   st.Lookback,
			Multiplier: st.Multiplier,
			Method:     string(st.Method),
		},
		ExportDir:    "results",
		ExportPrefix: "backtest",
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// the environment (.env supported) and command line flags.
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("xau-signals", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	mode := fs.String("mode", cfg.Mode, "Run mode: backtest, detect, crawl, import, status")
	timeframe := fs.String("timeframe", cfg.Timeframe, "Signal timeframe")
	start := fs.String("start", "", "Range start (YYYY-MM-DD or RFC3339)")
	end := fs.String("end", "", "Range end (YYYY-MM-DD or RFC3339)")
	tp := fs.Float64("tp", cfg.TPAmount, "Take profit amount in USD")
	sl := fs.Float64("sl", cfg.SLAmount, "Stop loss amount in USD")
	timeout := fs.Bool("timeout", cfg.EnableTimeout, "Enable order timeout")
	timeoutHours := fs.Int("timeout-hours", cfg.TimeoutHours, "Order timeout in hours")
	singleOrder := fs.Bool("single-order", cfg.SingleOrderMode, "Allow at most one open order")
	timeWindow := fs.Bool("time-window", cfg.EnableTimeWindow, "Restrict entries to trading hours")
	windowStart := fs.String("window-start", cfg.TradeStartTime, "Trading window start HH:MM")
	windowEnd := fs.String("window-end", cfg.TradeEndTime, "Trading window end HH:MM")
	amplitude := fs.Bool("amplitude", cfg.RequireAmplitude, "Require minimum candle amplitude")
	stLookback := fs.Int("st-lookback", cfg.SuperTrend.Lookback, "SuperTrend ATR lookback")
	stMultiplier := fs.Float64("st-multiplier", cfg.SuperTrend.Multiplier, "SuperTrend ATR multiplier")
	stMethod := fs.String("st-method", cfg.SuperTrend.Method, "SuperTrend ATR method: sma, ema, wilder")
	exportDir := fs.String("export-dir", cfg.ExportDir, "Directory for CSV exports")
	importFile := fs.String("file", "", "CSV file to import")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *configPath != "" {
		if err := loadFile(*configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.TwelveDataAPIKey = os.Getenv("TWELVE_DATA_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	// Flags set explicitly override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = *mode
		case "timeframe":
			cfg.Timeframe = *timeframe
		case "start":
			cfg.Start = *start
		case "end":
			cfg.End = *end
		case "tp":
			cfg.TPAmount = *tp
		case "sl":
			cfg.SLAmount = *sl
		case "timeout":
			cfg.EnableTimeout = *timeout
		case "timeout-hours":
			cfg.TimeoutHours = *timeoutHours
		case "single-order":
			cfg.SingleOrderMode = *singleOrder
		case "time-window":
			cfg.EnableTimeWindow = *timeWindow
		case "window-start":
			cfg.TradeStartTime = *windowStart
		case "window-end":
			cfg.TradeEndTime = *windowEnd
		case "amplitude":
			cfg.RequireAmplitude = *amplitude
		case "st-lookback":
			cfg.SuperTrend.Lookback = *stLookback
		case "st-multiplier":
			cfg.SuperTrend.Multiplier = *stMultiplier
		case "st-method":
			cfg.SuperTrend.Method = *stMethod
		case "export-dir":
			cfg.ExportDir = *exportDir
		case "file":
			cfg.ImportFile = *importFile
		}
	})

	return cfg, cfg.validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	switch c.Mode {
	case "backtest", "detect", "crawl", "import", "status":
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	if !tfutils.IsValidTimeframe(c.Timeframe) {
		return fmt.Errorf("config: unsupported timeframe %q, supported: %s",
			c.Timeframe, strings.Join(tfutils.GetSupportedTimeframes(), ", "))
	}
	if !tfutils.IsValidTimeframe(c.PrecisionTimeframe) {
		return fmt.Errorf("config: unsupported precision timeframe %q, supported: %s",
			c.PrecisionTimeframe, strings.Join(tfutils.GetSupportedTimeframes(), ", "))
	}
	if c.TPAmount <= 0 {
		return fmt.Errorf("config: tp amount must be positive, got %v", c.TPAmount)
	}
	if c.SLAmount <= 0 {
		return fmt.Errorf("config: sl amount must be positive, got %v", c.SLAmount)
	}
	if c.EnableTimeout && c.TimeoutHours < 0 {
		return fmt.Errorf("config: timeout hours must not be negative, got %d", c.TimeoutHours)
	}
	return nil
}

// ParseRange resolves the configured start/end strings into a concrete
// time range. Missing end means now; missing start means 90 days back.
func (c Config) ParseRange() (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if c.End != "" {
		t, err := parseTime(c.End)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("config: parse end: %w", err)
		}
		end = t
	}

	start := end.AddDate(0, 0, -90)
	if c.Start != "" {
		t, err := parseTime(c.Start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("config: parse start: %w", err)
		}
		start = t
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("config: start %s is not before end %s", start, end)
	}
	return start, end, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
