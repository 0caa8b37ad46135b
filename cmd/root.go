package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wardrounds/rounds-cli/internal/config"
	"github.com/wardrounds/rounds-cli/internal/extract"
	"github.com/wardrounds/rounds-cli/internal/resilience"
	"github.com/wardrounds/rounds-cli/internal/store"
	"github.com/wardrounds/rounds-cli/pkg/anthropic"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rounds-cli",
	Short: "Ward rounding assistant",
	Long:  "Extracts structured clinical data from ward documents via Claude models and reconciles it into per-patient records.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initStore opens the configured backend. Postgres connects with retry so a
// database still starting up doesn't kill the server.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.OnRetry = resilience.RetryLogger("postgres connect")
		return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (store.Store, error) {
			return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		})
	default:
		return store.NewSQLite(cfg.Store.DatabaseURL)
	}
}

// initExtractor wires the Claude client into the extraction pipeline.
func initExtractor() *extract.Extractor {
	client := anthropic.NewClient(cfg.Anthropic.Key)
	return extract.New(client, extract.Options{
		TextModel:   cfg.Anthropic.TextModel,
		VisionModel: cfg.Anthropic.VisionModel,
		MaxTokens:   int64(cfg.Anthropic.MaxTokens),
		Timeout:     time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
