package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/japaniel/eldamo/pkg/config"
	"github.com/japaniel/eldamo/pkg/db"
	"github.com/japaniel/eldamo/pkg/snapshot"
	"github.com/japaniel/eldamo/pkg/source"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the settings shared by every command.
type app struct {
	configPath string
	sourceFlag string
	levelFlag  string

	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "eldamo",
		Short: "Query and serve the Eldamo lexicon of Tolkien's languages",
		Long: `eldamo loads the Eldamo XML data model, links its cross references
and answers lookups from the command line or over HTTP.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.sourceFlag, "source", "", "document path or URL (overrides config)")
	root.PersistentFlags().StringVar(&a.levelFlag, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(
		newServeCmd(a),
		newLookupCmd(a),
		newCheckCmd(a),
		newDownloadCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.sourceFlag != "" {
		cfg.Source = a.sourceFlag
	}
	if a.levelFlag != "" {
		cfg.LogLevel = a.levelFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(a.log)
	return nil
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// stack is a snapshot cache wired to its source and, if configured, the load history.
type stack struct {
	cache   *snapshot.Cache
	src     snapshot.Source
	history *sql.DB
	closers []func() error
}

func (r *stack) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// open builds the stack. reg may be nil.
func (a *app) open(ctx context.Context, reg prometheus.Registerer) (*stack, error) {
	rt := &stack{}

	switch {
	case a.cfg.IsRemote():
		rt.src = source.NewHTTPSource(a.cfg.Source, a.cfg.HTTPTimeout)
	case a.cfg.Watch:
		w, err := source.NewWatchedFileSource(ctx, a.cfg.Source, a.log)
		if err != nil {
			return nil, err
		}
		rt.src = w
		rt.closers = append(rt.closers, w.Close)
	default:
		rt.src = source.NewFileSource(a.cfg.Source)
	}

	opts := []snapshot.Option{snapshot.WithLogger(a.log)}
	if a.cfg.HistoryDB != "" {
		hist, err := db.Open(a.cfg.HistoryDB)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("history db: %w", err)
		}
		rt.history = hist
		rt.closers = append(rt.closers, hist.Close)
		opts = append(opts, snapshot.WithObserver(db.NewRecorder(hist, a.cfg.Source, a.log)))
	}
	if reg != nil {
		opts = append(opts, snapshot.WithMetrics(reg))
	}
	rt.cache = snapshot.New(rt.src, opts...)
	return rt, nil
}
