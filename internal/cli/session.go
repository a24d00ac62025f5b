package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/config"
	"github.com/roach88/genesis/internal/manifest"
	"github.com/roach88/genesis/internal/mapper/docmapper"
	"github.com/roach88/genesis/internal/model"
)

// session is what a data command needs: the model type it operates on and
// a mapper for the configured store. typ is nil for store-wide commands.
type session struct {
	logger *slog.Logger
	typ    *model.Type
	mapper *docmapper.Mapper
}

// loadConfig reads --config and the environment, then applies --url.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	if o.URL != "" {
		cfg.URL = o.URL
		if err := cfg.Validate(); err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, ErrCodeConfig, err)
		}
	}
	return cfg, nil
}

// newLogger returns a text logger on w. --verbose forces debug level.
func (o *RootOptions) newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := cfg.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadModels compiles the manifest in dir.
func loadModels(dir string) (*model.Registry, error) {
	return manifest.Load(dir, manifest.Options{})
}

// lookupModel returns the type named name.
func lookupModel(registry *model.Registry, name string) (*model.Type, error) {
	t, ok := registry.Lookup(name)
	if !ok {
		var names []string
		for _, known := range registry.Types() {
			names = append(names, known.Name())
		}
		return nil, WrapExitError(ExitCommandError, ErrCodeUnknown,
			fmt.Errorf("model %q is not declared (declared: %v)", name, names))
	}
	return t, nil
}

// openSession loads the manifest and connects a mapper. The caller must
// call close.
func (o *RootOptions) openSession(cmd *cobra.Command, modelsDir, typeName string) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	registry, err := loadModels(modelsDir)
	if err != nil {
		return nil, err
	}
	t, err := lookupModel(registry, typeName)
	if err != nil {
		return nil, err
	}

	s := o.connect(cmd, cfg)
	s.typ = t
	s.logger.Debug("session opened", "models", modelsDir, "type", t.Name(), "url", cfg.URL)
	return s, nil
}

// openStore connects a mapper without loading a manifest.
func (o *RootOptions) openStore(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	s := o.connect(cmd, cfg)
	s.logger.Debug("store opened", "url", cfg.URL)
	return s, nil
}

func (o *RootOptions) connect(cmd *cobra.Command, cfg config.Config) *session {
	logger := o.newLogger(cmd.ErrOrStderr(), cfg)
	m := docmapper.New(
		docmapper.WithURL(cfg.URL),
		docmapper.WithLogger(logger),
		docmapper.WithDialer(docmapper.StoreDialer(cfg.StoreOptions(logger)...)),
	)
	return &session{logger: logger, mapper: m}
}

func (s *session) close() {
	if err := s.mapper.Close(); err != nil {
		s.logger.Warn("closing mapper", "error", err)
	}
}
