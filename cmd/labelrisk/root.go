package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/labelrisk/internal/llm"
	"github.com/cognicore/labelrisk/internal/logging"
	"github.com/cognicore/labelrisk/pkg/labelrisk"
	"github.com/cognicore/labelrisk/pkg/labelrisk/aiclassify"
	"github.com/cognicore/labelrisk/pkg/labelrisk/config"
	"github.com/cognicore/labelrisk/pkg/labelrisk/ocr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store/postgres"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store/sqlite"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "labelrisk",
		Short:         "labelrisk classifies product ingredient labels by risk",
		Long:          "labelrisk extracts ingredients from label text or images and classifies them against a curated dataset, an AI model or a built-in reference list.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "Path to SQLite database (overrides config)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newAnalyzeCmd(g),
		newTokenizeCmd(g),
		newDatasetCmd(g),
		newScansCmd(g),
	)
	return root
}

// loadConfig resolves config file, environment and flag overrides.
func (g *globalFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.dbPath != "" {
		cfg.Storage.DBPath = g.dbPath
		cfg.Storage.DatabaseURL = ""
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Storage.DatabaseURL != "" {
		return postgres.Open(ctx, cfg.Storage.DatabaseURL)
	}
	if cfg.Storage.DBPath == "" {
		return nil, eris.New("no database configured: set --db or LABELRISK_DB_PATH")
	}
	return sqlite.Open(ctx, cfg.Storage.DBPath)
}

// runtime is what a command needs to do its work.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	store  store.Store
	engine *labelrisk.Engine
}

func (r *runtime) close() {
	if r.engine != nil {
		if err := r.engine.Close(); err != nil {
			r.logger.Warn("close store", zap.Error(err))
		}
	} else if r.store != nil {
		r.store.Close()
	}
	_ = r.logger.Sync()
}

// withRuntime builds config, logger, store and engine, runs fn and tears
// everything down. needStore=false skips the database entirely.
func (g *globalFlags) withRuntime(ctx context.Context, needStore bool, fn func(*runtime) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	rt := &runtime{cfg: cfg, logger: logger}
	defer rt.close()

	comp, err := cfg.Loader().Load()
	if err != nil {
		return err
	}

	if needStore {
		rt.store, err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
	}

	var ai *aiclassify.Classifier
	if cfg.AIConfigured() {
		chat, err := llm.New(ctx, cfg.LLMSettings())
		if err != nil {
			logger.Warn("ai tier disabled", zap.Error(err))
		} else {
			ai = aiclassify.New(chat, aiclassify.Options{
				TextTimeout: cfg.AI.Timeout,
				ListTimeout: cfg.AI.ListTimeout,
				CacheSize:   cfg.AI.CacheSize,
				Logger:      logger.Named("ai"),
			})
		}
	}

	var extractor ocr.Extractor
	if cfg.OCR.Endpoint != "" {
		extractor = &ocr.HTTPExtractor{
			Endpoint: cfg.OCR.Endpoint,
			APIKey:   cfg.OCR.APIKey,
			Timeout:  cfg.OCR.Timeout,
		}
	}

	rt.engine = labelrisk.New(labelrisk.Options{
		Store:     rt.store,
		Tokenizer: comp.Tokenizer,
		Matcher:   comp.Matcher,
		AI:        ai,
		OCR:       extractor,
		Logger:    logger,
	})
	return fn(rt)
}
