package cli

import (
	"log/slog"

	"github.com/fiscalia/campo/internal/config"
	"github.com/fiscalia/campo/internal/queue"
	"github.com/fiscalia/campo/internal/refdata"
	"github.com/fiscalia/campo/internal/remote"
	"github.com/fiscalia/campo/internal/store"
	"github.com/fiscalia/campo/internal/syncer"
)

// appEnv wires the configured components for one command invocation.
// The client and cache are nil when no API URL is configured; queue-only
// commands still work, and submissions simply go offline.
type appEnv struct {
	cfg        config.Config
	store      *store.Store
	queue      *queue.Queue
	client     *remote.Client
	controller *syncer.Controller
	cache      *refdata.Cache
}

// openEnv loads config and opens the local store. When requireAPI is set, a
// missing api_url is an error; otherwise the remote pieces stay nil.
func openEnv(opts *RootOptions, requireAPI bool) (*appEnv, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open local database", err)
	}

	env := &appEnv{
		cfg:   cfg,
		store: st,
		queue: queue.New(st),
	}

	if cfg.APIURL == "" {
		if requireAPI {
			st.Close()
			return nil, NewExitError(ExitCommandError, "api_url is not configured; set it in the config file")
		}
		// Offline-only wiring: no prober means every submission queues.
		// The cache is still readable for display enrichment.
		env.controller = syncer.New(env.queue, nil, nil, slog.Default())
		env.cache = refdata.New(st, nil, slog.Default())
		return env, nil
	}

	client, err := remote.NewClient(cfg.APIURL, cfg.Token)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "invalid api_url", err)
	}
	env.client = client
	env.controller = syncer.New(env.queue, client, client, slog.Default())
	env.cache = refdata.New(st, client, slog.Default())

	return env, nil
}

func (e *appEnv) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}
}
