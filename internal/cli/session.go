// Package cli implements the mediadb cobra commands.
package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/mediadb/internal/config"
	"github.com/example/mediadb/internal/logging"
	"github.com/example/mediadb/internal/wire"
)

// Session carries the global flags and the engine opened for one command.
// The engine is opened lazily so commands like --help never touch the store.
type Session struct {
	DataDir    string
	ConfigPath string
	LogLevel   string

	// Registerer receives the engine's collectors; nil means the default registry.
	Registerer prometheus.Registerer

	container *wire.Container
}

// AddFlags registers the global flags on the root command.
func (s *Session) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&s.DataDir, "data-dir", "", "Data directory (default: ~/.mediadb)")
	cmd.PersistentFlags().StringVar(&s.ConfigPath, "config", "", "Config file (default: <data-dir>/mediadb.yaml)")
	cmd.PersistentFlags().StringVar(&s.LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

// LoadConfig resolves the config file from the flags and loads it.
func (s *Session) LoadConfig() (*config.Config, error) {
	dataDir := s.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	path := s.ConfigPath
	if path == "" {
		path = config.DefaultPath(dataDir)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if s.DataDir != "" {
		cfg.DB.Dir = s.DataDir
	}
	if s.LogLevel != "" {
		cfg.Log.Level = s.LogLevel
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Open returns the engine, opening it on first use.
func (s *Session) Open() (*wire.Container, error) {
	if s.container != nil {
		return s.container, nil
	}

	cfg, err := s.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	reg := s.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c, err := wire.New(cfg, logger, reg)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to open store at %s: %w", cfg.DB.Dir, err)
	}
	s.container = c
	return c, nil
}

// Close releases the engine if one was opened.
func (s *Session) Close() {
	if s.container == nil {
		return
	}
	if err := s.container.Close(); err != nil {
		s.container.Logger.Warn("failed to close store", zap.Error(err))
	}
	s.container.Logger.Sync()
	s.container = nil
}

// Execute runs the command line and closes the engine afterwards, whether
// or not the command succeeded.
func Execute(version string) error {
	s := &Session{}
	defer s.Close()
	return RootCmd(s, version).Execute()
}

// RootCmd builds the mediadb command tree around one session.
func RootCmd(s *Session, version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "mediadb",
		Short:   "mediadb - content-addressed media library",
		Version: version,
		Long: `mediadb imports files into a deduplicated, hash-addressed store and lets you
tag, rate and search them with tag and system predicates.`,
		SilenceUsage: true,
	}
	s.AddFlags(root)

	root.AddCommand(InitCmd(s))
	root.AddCommand(ImportCmd(s))
	root.AddCommand(HashStatusCmd(s))
	root.AddCommand(ContentCmd(s))
	root.AddCommand(RateCmd(s))
	root.AddCommand(SearchCmd(s))
	root.AddCommand(AutocompleteCmd(s))
	root.AddCommand(InfoCmd(s))
	root.AddCommand(ServicesCmd(s))
	root.AddCommand(FilterCmd(s))
	root.AddCommand(PendingCmd(s))
	root.AddCommand(DownloadsCmd(s))

	return root
}
