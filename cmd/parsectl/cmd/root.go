// Package cmd provides the parsectl commands.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/chunk"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/dispatch"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/logger"
)

type rootOptions struct {
	configPath   string
	dataDir      string
	workers      int
	minChunkSize int
	logLevel     string
	cfg          *config.Config
}

// NewRootCmd creates the root command for parsectl.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "parsectl",
		Short: "Parse articles into word offset indexes",
		Long: `parsectl runs the article parser locally.

Documents are normalized (case folded, accents removed), split into chunks
that are scanned in parallel, and every word is reported with the offsets
at which it starts in the normalized text.

Indexed documents are kept in a SQLite database under --data-dir.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "SQLite data directory (default from config)")
	cmd.PersistentFlags().IntVarP(&opts.workers, "workers", "w", 0, "Scan workers (default from config)")
	cmd.PersistentFlags().IntVar(&opts.minChunkSize, "min-chunk-size", 0, "Characters per chunk before splitting (default from config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(newParseCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newFindCmd(opts))
	cmd.AddCommand(newCacheCmd(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.dataDir != "" {
		cfg.SQLite.DataDir = o.dataDir
	}
	if o.workers > 0 {
		cfg.Parser.Workers = o.workers
	}
	if o.minChunkSize > 0 {
		cfg.Parser.MinChunkSize = o.minChunkSize
	}
	// stdout carries results only
	logger.SetupWriter(cmd.ErrOrStderr(), o.logLevel, "text")
	o.cfg = cfg
	return nil
}

// newEngine builds an engine whose pool the caller must close.
func (o *rootOptions) newEngine(submitter parser.Submitter) (*parser.Engine, *dispatch.Pool) {
	pool := dispatch.NewPool(o.cfg.Parser.Workers)
	engine := parser.NewEngine(
		chunk.NewPlanner(o.cfg.Parser.MinChunkSize, o.cfg.Parser.Workers),
		dispatch.NewController(pool),
		submitter,
		parser.WithTimeout(o.cfg.Parser.ParseTimeout),
	)
	return engine, pool
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
