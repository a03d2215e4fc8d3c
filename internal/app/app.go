package app

import (
	"fmt"
	"log/slog"

	"github.com/wrenlabs/authkit/pkg/authkit"
	"github.com/wrenlabs/authkit/pkg/cryptox"
	"github.com/wrenlabs/authkit/pkg/httpx"
	"github.com/wrenlabs/authkit/pkg/secrets/sqlite"
	"github.com/wrenlabs/authkit/pkg/slogx"
)

// App owns the wired-up SDK client and its dependencies for the CLI.
type App struct {
	Config Config
	Log    *slog.Logger
	Client *authkit.Client
	State  *authkit.AuthState

	store *sqlite.Store
}

// New wires the secret store, logger and SDK client from cfg.
func New(cfg Config) (*App, error) {
	log := slogx.New(slogx.Config{
		Service: "authctl",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	sealer, err := cryptox.NewSealerFromEnv(cfg.MasterKeyPath)
	if err != nil {
		return nil, fmt.Errorf("initializing sealer: %w", err)
	}

	store, err := sqlite.NewStore("file:"+cfg.SecretsFile, sealer)
	if err != nil {
		return nil, fmt.Errorf("opening secret store: %w", err)
	}
	if err := store.ApplyMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating secret store: %w", err)
	}

	state := authkit.NewAuthState()
	client := authkit.New(cfg.BaseURL,
		authkit.WithSecretStore(store),
		authkit.WithNotifier(state),
		authkit.WithLogger(log),
		authkit.WithPlatform(cfg.Platform),
		authkit.WithLoginRate(cfg.LoginInterval, cfg.LoginBurst),
		authkit.WithHTTPOptions(httpx.WithTimeout(cfg.RequestTimeout)),
	)

	return &App{
		Config: cfg,
		Log:    log,
		Client: client,
		State:  state,
		store:  store,
	}, nil
}

// GoogleFlowConfigured reports whether the config carries Google credentials.
func (a *App) GoogleFlowConfigured() bool {
	return a.Config.GoogleClientID != ""
}

// Close releases the secret store.
func (a *App) Close() error {
	return a.store.Close()
}
