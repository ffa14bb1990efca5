package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/xau-signals/internal/backtest"
	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/config"
	"github.com/amirphl/xau-signals/internal/crawler"
	"github.com/amirphl/xau-signals/internal/db"
	"github.com/amirphl/xau-signals/internal/feed"
	"github.com/amirphl/xau-signals/internal/indicator"
	"github.com/amirphl/xau-signals/internal/notifier"
	"github.com/amirphl/xau-signals/internal/pattern"
	"github.com/amirphl/xau-signals/internal/tfutils"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("Starting XAU Signals in mode:", cfg.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	storage, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer storage.Close()

	switch cfg.Mode {
	case "backtest":
		err = runBacktest(ctx, cfg, storage)
	case "detect":
		err = runDetect(ctx, cfg, storage)
	case "crawl":
		err = runCrawl(ctx, cfg, storage)
	case "import":
		err = runImport(ctx, cfg, storage)
	case "status":
		err = runStatus(ctx, cfg, storage)
	default:
		log.Fatalf("Unsupported mode: %s", cfg.Mode)
	}
	if err != nil {
		log.Fatalf("Mode %s failed: %v", cfg.Mode, err)
	}
}

// openStorage connects to Postgres when DATABASE_URL is set and falls
// back to in-memory storage otherwise.
func openStorage(cfg config.Config) (db.Storage, error) {
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, using in-memory storage")
		return db.NewMemory(), nil
	}

	storage, err := db.NewPostgres(cfg.DatabaseURL, 10, 5)
	if err != nil {
		return nil, err
	}
	log.Println("Connected to Postgres")
	return storage, nil
}

func buildNotifier(cfg config.Config) notifier.Notifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == "" {
		return notifier.NopNotifier{}
	}
	return notifier.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
}

func runBacktest(ctx context.Context, cfg config.Config, storage db.Storage) error {
	start, end, err := cfg.ParseRange()
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(storage, backtest.Config{
		Timeframe:        cfg.Timeframe,
		TPAmount:         cfg.TPAmount,
		SLAmount:         cfg.SLAmount,
		EnableTimeout:    cfg.EnableTimeout,
		TimeoutHours:     cfg.TimeoutHours,
		SingleOrderMode:  cfg.SingleOrderMode,
		EnableTimeWindow: cfg.EnableTimeWindow,
		TradeStartTime:   cfg.TradeStartTime,
		TradeEndTime:     cfg.TradeEndTime,
		SuperTrend:       cfg.SuperTrend.Indicator(),
		RequireAmplitude: cfg.RequireAmplitude,
	})

	result := engine.Run(ctx, start, end)
	if result.Partial {
		if len(result.Trades) == 0 {
			return result.Err
		}
		log.Printf("Backtest stopped early, reporting %d completed trades: %v", len(result.Trades), result.Err)
	}

	summary := backtest.Summarize(result.Trades)
	backtest.PrintSummary(summary)

	if len(result.Trades) > 0 {
		path, err := backtest.ExportResults(result.Trades, cfg.ExportDir, cfg.ExportPrefix)
		if err != nil {
			log.Printf("Failed to export results: %v", err)
		} else {
			log.Printf("Results exported to %s", path)
		}
	}

	if err := buildNotifier(cfg).Notify(notifier.FormatSummary(summary)); err != nil {
		log.Printf("Summary notification failed: %v", err)
	}
	return nil
}

// detectScanBars is how many signal-timeframe bars a detect run loads:
// enough for the SuperTrend warmup plus the detection window.
const detectScanBars = 200

// runDetect scans the most recent stored candles once and reports any
// fresh signal.
func runDetect(ctx context.Context, cfg config.Config, storage db.Storage) error {
	end := time.Now().UTC()
	start := end.Add(-time.Duration(detectScanBars*tfutils.TimeframeMinutes(cfg.Timeframe)) * time.Minute)

	candles, err := storage.GetCandles(ctx, cfg.Timeframe, start, end)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}
	candles = candle.FilterValid(candles)
	if len(candles) < 3 {
		return fmt.Errorf("detect needs at least 3 candles, have %d: %w", len(candles), db.ErrNoData)
	}

	detector := pattern.NewDetector(pattern.Config{
		Timeframe:        cfg.Timeframe,
		RequireAmplitude: cfg.RequireAmplitude,
		MinAmplitudePct:  pattern.DefaultMinAmplitudePct,
	})

	states, err := indicator.CalculateSuperTrend(candles, cfg.SuperTrend.Indicator())
	if err != nil {
		log.Printf("SuperTrend unavailable, detecting without trend context: %v", err)
	} else {
		detector.SetTrendStates(states)
	}

	desc := candle.Descending(candles)
	signals := detector.Scan(desc, 3, 3)
	if len(signals) == 0 {
		log.Println("No signal on the latest candle")
		return nil
	}

	if err := storage.SaveSignals(ctx, signals); err != nil {
		log.Printf("Failed to persist signals: %v", err)
	}

	n := buildNotifier(cfg)
	for _, sig := range signals {
		log.Printf("Signal: %s %s entry=%.2f confidence=%.0f", sig.Side, sig.Pattern, sig.EntryPrice, sig.Confidence)
		if err := n.Notify(notifier.FormatSignal(sig)); err != nil {
			log.Printf("Signal notification failed: %v", err)
		}
	}
	return nil
}

func runCrawl(ctx context.Context, cfg config.Config, storage db.Storage) error {
	if cfg.TwelveDataAPIKey == "" {
		return fmt.Errorf("TWELVE_DATA_API_KEY is required for crawl mode")
	}

	start, _, err := cfg.ParseRange()
	if err != nil {
		return err
	}

	c := crawler.New(feed.NewClient(cfg.TwelveDataAPIKey), storage)
	return c.CrawlAll(ctx, []string{cfg.Timeframe, cfg.PrecisionTimeframe}, start)
}

func runImport(ctx context.Context, cfg config.Config, storage db.Storage) error {
	if cfg.ImportFile == "" {
		return fmt.Errorf("import mode requires -file")
	}
	_, err := crawler.ImportCSV(ctx, storage, cfg.ImportFile, cfg.Timeframe)
	return err
}

// runStatus prints candle coverage per timeframe.
func runStatus(ctx context.Context, cfg config.Config, storage db.Storage) error {
	end := time.Now().UTC()
	start := end.AddDate(-10, 0, 0)

	for _, tf := range []string{cfg.Timeframe, cfg.PrecisionTimeframe} {
		count, err := storage.GetCandleCount(ctx, tf, start, end)
		if err != nil {
			return fmt.Errorf("count %s candles: %w", tf, err)
		}

		latest, err := storage.GetLatestTimestamp(ctx, tf)
		if err != nil {
			return fmt.Errorf("latest %s timestamp: %w", tf, err)
		}

		if latest == nil {
			log.Printf("%s: empty", tf)
			continue
		}
		log.Printf("%s: %d candles, latest %s", tf, count, latest.UTC().Format(time.RFC3339))
	}
	return nil
}
