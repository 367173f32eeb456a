package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/panel"
	"github.com/aretw0/panel/internal/config"
	"github.com/aretw0/panel/pkg/adapters/echo"
	"github.com/aretw0/panel/pkg/adapters/kafka"
	"github.com/aretw0/panel/pkg/adapters/openai"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/observability"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/session"
)

// DefaultSessionID is used when --session is not given.
const DefaultSessionID = "default"

// Options are the persistent command line flags.
type Options struct {
	ConfigPath string
	SessionID  string
	Store      string // overrides the configured store when set
	Debug      bool
	Offline    bool // use the echo invoker instead of OpenAI
}

// App bundles what every command needs: configuration, logger and the
// session manager over the selected store.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Sessions  *session.Manager
	SessionID string

	offline bool
	debug   bool
	closers []func() error
}

// NewApp loads the configuration and opens the session store.
// Callers must Close the app.
func NewApp(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Store != "" {
		cfg.Store = opts.Store
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger := createLogger(opts.Debug, cfg)
	store, locker, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithMaxTurns(cfg.MaxTurns),
		session.WithDefaultModel(cfg.ModelConfig()),
	}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Sessions:  session.NewManager(store, sessionOpts...),
		SessionID: opts.SessionID,
		offline:   opts.Offline,
		debug:     opts.Debug,
	}
	if app.SessionID == "" {
		app.SessionID = DefaultSessionID
	}
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}
	logger.Debug("app ready", "store", cfg.Store, "session_id", app.SessionID)
	return app, nil
}

// NewEngine builds the invoker and the panel engine. Extra hooks run after
// the built-in ones (debug logging, Kafka publishing).
func (a *App) NewEngine(ctx context.Context, hooks ...domain.Hooks) (*panel.Engine, error) {
	invoker, err := a.createInvoker()
	if err != nil {
		return nil, err
	}

	engineOpts := []panel.Option{
		panel.WithLogger(a.Logger),
		panel.WithExpertTimeout(a.Config.ExpertTimeout),
		panel.WithConcurrencyLimit(a.Config.Concurrency),
	}
	if a.debug {
		engineOpts = append(engineOpts, panel.WithHooks(observability.LogHooks(a.Logger)))
	}
	if a.Config.KafkaEnabled() {
		pub := kafka.NewPublisher(
			kafka.NewWriter(a.Config.KafkaBrokers, a.Config.KafkaTopic),
			kafka.WithLogger(a.Logger),
		)
		go func() {
			if err := pub.Run(ctx); err != nil && !errors.Is(err, kafka.ErrClosed) && !errors.Is(err, context.Canceled) {
				a.Logger.Warn("kafka publisher stopped", "err", err)
			}
		}()
		a.closers = append(a.closers, pub.Close)
		engineOpts = append(engineOpts, panel.WithHooks(pub.Hooks()))
		a.Logger.Info("publishing panel events", "publisher", pub.String())
	}
	for _, h := range hooks {
		engineOpts = append(engineOpts, panel.WithHooks(h))
	}

	engine, err := panel.New(invoker, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing panel: %w", err)
	}
	return engine, nil
}

func (a *App) createInvoker() (ports.Invoker, error) {
	if a.offline {
		a.Logger.Debug("using offline echo invoker")
		return echo.New(), nil
	}
	if a.Config.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%s_OPENAI_API_KEY is not set (use --offline to try the panel without a model)", config.EnvPrefix)
	}
	return openai.New(a.Config.OpenAIAPIKey,
		openai.WithBaseURL(a.Config.OpenAIBaseURL),
		openai.WithTimeout(a.Config.OpenAITimeout),
		openai.WithLogger(a.Logger),
	), nil
}

// Close releases the store and flushes publishers, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
