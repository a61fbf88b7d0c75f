package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"CQPEval/internal/analysis"
	"CQPEval/internal/config"
	"CQPEval/internal/corpus"
	"CQPEval/internal/storage"
)

// app is the state shared by all subcommands.
type app struct {
	configPath string
	corpora    []string
	storeDir   string
	logFormat  string

	logger *slog.Logger
	opts   config.Options
	reg    corpus.MapRegistry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "cqpeval",
		Short:        "cqpeval - evaluate corpus queries over annotated corpora",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", getEnv("CQPEVAL_CONFIG", ""), "path to an options file")
	flags.StringSliceVarP(&a.corpora, "corpus", "c", nil, "corpus fixture file (repeatable)")
	flags.StringVar(&a.storeDir, "store", getEnv("CQPEVAL_STORE_DIR", "results"), "directory of saved query results")
	flags.StringVar(&a.logFormat, "log-format", getEnv("CQPEVAL_LOG_FORMAT", "text"), "log format: text or json")

	root.AddCommand(newRunCmd(a), newInfoCmd(a), newShowCmd(a), newVersionCmd())
	return root
}

func (a *app) setup(logOut io.Writer) error {
	handlerOpts := &slog.HandlerOptions{
		Level: parseLogLevel(getEnv("CQPEVAL_LOG_LEVEL", "info")),
	}
	switch strings.ToLower(a.logFormat) {
	case "json":
		a.logger = slog.New(slog.NewJSONHandler(logOut, handlerOpts))
	case "text", "":
		a.logger = slog.New(slog.NewTextHandler(logOut, handlerOpts))
	default:
		return fmt.Errorf("unknown log format %q", a.logFormat)
	}
	slog.SetDefault(a.logger)

	opts, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := opts.ApplyEnv(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	a.opts = opts

	a.reg = corpus.MapRegistry{}
	analyzers := analysis.NewRegistry()
	for _, path := range a.corpora {
		m, err := corpus.LoadFixture(path, analyzers)
		if err != nil {
			return fmt.Errorf("load corpus %s: %w", path, err)
		}
		if _, dup := a.reg[m.Name()]; dup {
			return fmt.Errorf("corpus %s loaded twice", m.Name())
		}
		a.reg[m.Name()] = m
		a.logger.Debug("loaded corpus", "corpus", m.Name(), "path", path, "size", m.Size())
	}
	return nil
}

func (a *app) store() (*storage.ResultStore, error) {
	return storage.NewResultStore(a.storeDir, a.logger)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
