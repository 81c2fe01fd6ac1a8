// Package cmd implements the h5view command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5view/cache"
	"github.com/robert-malhotra/h5view/internal/config"
	"github.com/robert-malhotra/h5view/rows"
	"github.com/robert-malhotra/h5view/rowstore"
	"github.com/robert-malhotra/h5view/session"
	"github.com/robert-malhotra/h5view/tree"
)

// app holds the state shared by all subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	storeDir   string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd returns the h5view command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "h5view",
		Short: "h5view - HDF5 browser",
		Long: `h5view reads the object tree of an HDF5 file, shows attributes and
dataset contents as tables, and compares datasets across files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&a.storeDir, "store-dir", "", "Directory of the persistent row store")

	root.AddCommand(
		newTreeCmd(a),
		newAttrsCmd(a),
		newRowsCmd(a),
		newCompareCmd(a),
		newSampleCmd(a),
		newShellCmd(a),
		newDiagnoseCmd(a),
	)
	return root
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(a.configPath); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.storeDir != "" {
		cfg.Store.Dir = a.storeDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := cfg.Logging.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// buildTree ingests the file at path.
func (a *app) buildTree(path string) (*tree.Tree, error) {
	return tree.Build(tree.FileSource(path), tree.WithLogger(a.logger))
}

// newManager creates a session manager from the configuration. Cache
// metrics go to reg when it is non-nil. The returned func releases the
// row store.
func (a *app) newManager(reg prometheus.Registerer) (*session.Manager, func(), error) {
	opts := []session.Option{
		session.WithCacheLimit(a.cfg.Cache.Limit),
		session.WithLogger(a.logger),
		session.WithFlattenOptions(rows.WithParallelism(a.cfg.Compare.Parallelism)),
	}
	if reg != nil {
		opts = append(opts, session.WithMetrics(cache.NewMetrics(reg, "h5view")))
	}

	release := func() {}
	if dir := a.cfg.Store.Dir; dir != "" {
		st, err := rowstore.Open(dir)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, session.WithStore(st))
		release = func() {
			if err := st.Close(); err != nil {
				a.logger.Warn("closing row store", "dir", dir, "error", err)
			}
		}
	}
	return session.NewManager(opts...), release, nil
}
