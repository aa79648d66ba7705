package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/boltstore"
	"github.com/roach88/contactstore/internal/config"
	"github.com/roach88/contactstore/internal/contacts"
	"github.com/roach88/contactstore/internal/store"
)

// session is one command's view of a running contacts store.
type session struct {
	ctx    context.Context
	store  *contacts.Store
	out    *OutputFormatter
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan error
}

// resolveConfig loads the config file and applies flag overrides.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
		if opts.Backend == config.BackendMemory && opts.Database == "" {
			cfg.Path = ""
		}
	}
	if opts.Database != "" {
		cfg.Path = opts.Database
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openBackend opens the backend named by cfg.
func openBackend(cfg config.Config) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return store.Open(cfg.Path)
	case config.BackendBolt:
		return boltstore.Open(cfg.Path)
	case config.BackendMemory:
		return backend.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// openSession configures logging, opens the backend and starts the store's
// run loop. Callers must close the session.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr(), opts.Verbose)

	logger.Debug("opening backend", "backend", cfg.Backend, "path", cfg.Path)
	b, err := openBackend(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open backend", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	s := &session{
		ctx:   ctx,
		store: contacts.New(b, contacts.WithLogger(logger)),
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
		logger: logger,
		cancel: cancel,
		done:   make(chan error, 1),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		s.done <- s.store.Run(ctx)
	}()

	return s, nil
}

// close drains the store, then closes the backend.
func (s *session) close() error {
	defer s.cancel()

	s.store.Stop()
	runErr := <-s.done
	s.logger.Debug("store stopped", "stats", s.store.Stats())

	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing backend", "error", err)
		return WrapExitError(ExitCommandError, "failed to close backend", err)
	}
	if runErr != nil && runErr != context.Canceled {
		return WrapExitError(ExitFailure, "store error", runErr)
	}
	return nil
}

// withSession runs fn against an open session and closes it afterwards.
// fn's error wins over a close error.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}

	fnErr := fn(s)
	closeErr := s.close()
	if fnErr != nil {
		return fnErr
	}
	return closeErr
}
