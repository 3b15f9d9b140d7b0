package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/juanfont/grantsauth/internal/config"
	"github.com/juanfont/grantsauth/internal/grants"
	"github.com/juanfont/grantsauth/internal/session"
	"github.com/juanfont/grantsauth/internal/transport"
)

// globalFlags is embedded by every subcommand's own flag struct.
type globalFlags struct {
	Config string `flag:"config,c,Config file path"`
	Output string `flag:"output,o,Output format (json, yaml; anything else prints plain text)"`
}

// Flags binds a flag struct via bind (normally flax.MustBind) and
// installs it as the command's Config, the way every subcommand in
// this tree wires its flags.
func Flags(bind func(*flag.FlagSet, interface{}), flags interface{}) func(*command.Env, *flag.FlagSet) {
	return func(env *command.Env, fs *flag.FlagSet) {
		bind(fs, flags)
		env.Config = flags
	}
}

// server owns the wiring between a loaded config, the session
// registry, the upstream fetcher, and the grants cache, plus the
// signal-driven run loop the serve command uses.
type server struct {
	cfg   *config.Options
	cache *grants.Cache
}

// newGrantsServerWithConfig loads configPath and wires a server ready
// to run, but does not start it.
func newGrantsServerWithConfig(configPath string) (*server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	registry := session.NewMemory()
	fetcher := transport.NewHTTPFetcher(cfg.GrantsEndpoint)

	cache := grants.New(grants.Options{
		RefreshPeriod:   cfg.RefreshPeriod(),
		RefreshPoolSize: cfg.GrantsRefreshPoolSize,
		MaxIdle:         cfg.MaxIdle(),
		HTTPRetries:     cfg.HTTPRetries,
		GCPeriod:        cfg.GCPeriod(),
	}, fetcher, registry, grants.SystemClock{})

	return &server{cfg: cfg, cache: cache}, nil
}

// run blocks until SIGINT/SIGTERM, then closes the cache's background
// loops before returning.
func (s *server) run() error {
	defer s.cache.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	log.Info().
		Int("refresh_period_seconds", s.cfg.GrantsRefreshPeriodSeconds).
		Int("gc_period_seconds", s.cfg.GCPeriodSeconds).
		Str("grants_endpoint", s.cfg.GrantsEndpoint).
		Msg("grantsauth: serving")

	<-sigCh
	log.Info().Msg("grantsauth: shutting down")
	return nil
}

// outputResult renders v in the requested format (json, yaml, or a
// plain default), matching the --output flag every subcommand exposes
// via globalFlags.
func outputResult(v any, title, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(v)
	default:
		fmt.Println(title + ":")
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Print(string(b))
		return nil
	}
}

// The command tree is small enough (serve, config test, version) that
// it lives as one flat list rather than the per-resource grouping a
// larger CRUD surface would need.

type serveFlags struct {
	globalFlags
}

type configTestFlags struct {
	globalFlags
}

type versionFlags struct {
	globalFlags
}

func runServe(env *command.Env) error {
	flags := env.Config.(*serveFlags)

	srv, err := newGrantsServerWithConfig(flags.Config)
	if err != nil {
		return fmt.Errorf("wiring grants server: %w", err)
	}

	return srv.run()
}

// runConfigTest loads the config and reports back the resolved
// values (after defaults/file/env merging) rather than just a bare
// pass/fail, so an operator can see exactly what would be used.
func runConfigTest(env *command.Env) error {
	flags := env.Config.(*configTestFlags)

	srv, err := newGrantsServerWithConfig(flags.Config)
	if err != nil {
		return fmt.Errorf("config is invalid: %w", err)
	}
	srv.cache.Close()

	return outputResult(srv.cfg, "Resolved configuration", flags.Output)
}

func runVersion(env *command.Env) error {
	flags := env.Config.(*versionFlags)

	info := map[string]string{
		"version": version,
		"commit":  commit,
		"date":    date,
	}

	return outputResult(info, "Version", flags.Output)
}

// commands builds the full grantsauth command tree.
func commands() []*command.C {
	return []*command.C{
		{
			Name:     "serve",
			Help:     "Run the grants cache, fetching and refreshing upstream authorization grants.",
			SetFlags: Flags(flax.MustBind, &serveFlags{}),
			Run:      runServe,
		},
		{
			Name:     "version",
			Help:     "Print build version information.",
			SetFlags: Flags(flax.MustBind, &versionFlags{}),
			Run:      runVersion,
		},
		{
			Name: "config",
			Help: "Configuration utilities.",
			Commands: []*command.C{
				{
					Name:     "test",
					Help:     "Load and validate the configuration, printing the resolved values.",
					SetFlags: Flags(flax.MustBind, &configTestFlags{}),
					Run:      runConfigTest,
				},
			},
		},
	}
}
