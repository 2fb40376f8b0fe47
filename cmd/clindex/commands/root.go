package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asarangaram/clmediakit"
)

// DefaultIndexPath is used when neither --index nor the config names a file.
const DefaultIndexPath = "phash.clhx"

type app struct {
	configPath string
	indexPath  string
	logLevel   string
	logFormat  string
	jsonOut    bool

	cfg *Config
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the clindex command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "clindex",
		Short: "Perceptual-hash similarity index",
		Long: `Manage a persistent nearest-neighbour index of 64-bit perceptual hashes.

Fingerprints are strings of '0'/'1' digits with an optional "0b" prefix.
Every mutation is written to the index file before the command returns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	pf.StringVarP(&a.indexPath, "index", "i", "", "index file path (default \""+DefaultIndexPath+"\")")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "text", "log format: text, json")
	pf.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		a.addCmd(),
		a.replaceCmd(),
		a.removeCmd(),
		a.queryCmd(),
		a.statsCmd(),
		a.compactCmd(),
		a.backupCmd(),
		a.restoreCmd(),
	)
	return root
}

// loadConfig reads --config and lets explicitly set flags override it.
func (a *app) loadConfig(cmd *cobra.Command) error {
	a.cfg = &Config{}
	if a.configPath != "" {
		cfg, err := LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	flags := cmd.Flags()
	if flags.Changed("index") || a.cfg.Index == "" {
		a.cfg.Index = a.indexPath
	}
	if a.cfg.Index == "" {
		a.cfg.Index = DefaultIndexPath
	}
	if flags.Changed("log-level") || a.cfg.Log.Level == "" {
		a.cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") || a.cfg.Log.Format == "" {
		a.cfg.Log.Format = a.logFormat
	}
	return nil
}

func (a *app) logger(w io.Writer) (*clmediakit.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", a.cfg.Log.Level)
	}
	switch strings.ToLower(a.cfg.Log.Format) {
	case "", "text":
		return clmediakit.NewTextLogger(w, level), nil
	case "json":
		return clmediakit.NewJSONLogger(w, level), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", a.cfg.Log.Format)
	}
}

// open opens the configured index with its mirrors attached.
func (a *app) open(cmd *cobra.Command) (*clmediakit.Index, error) {
	ctx := cmd.Context()
	opts, err := a.cfg.Options()
	if err != nil {
		return nil, err
	}
	logger, err := a.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	mirrors, err := a.cfg.Mirrors(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts, clmediakit.WithLogger(logger), clmediakit.WithMirror(mirrors...))

	return clmediakit.OpenContext(ctx, a.cfg.Index, opts...)
}

// withIndex opens the index, runs fn and closes the index, reporting the first error.
func (a *app) withIndex(cmd *cobra.Command, fn func(context.Context, *clmediakit.Index) error) (err error) {
	idx, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, idx.Close())
	}()

	return fn(cmd.Context(), idx)
}
