package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/browser"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/handlers"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/platforms"
	"github.com/ternarybob/scribo/internal/services/auth"
	"github.com/ternarybob/scribo/internal/services/broker"
	"github.com/ternarybob/scribo/internal/services/connections"
	"github.com/ternarybob/scribo/internal/services/events"
	"github.com/ternarybob/scribo/internal/services/publish"
	"github.com/ternarybob/scribo/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService
	Registry       *platforms.Registry
	BrowserManager *browser.Manager

	AuthService       *auth.Service
	PublishPipeline   *publish.Pipeline
	BrokerService     *broker.Service
	ConnectionService *connections.Service

	// HTTP handlers
	WSHandler         *handlers.WebSocketHandler
	ConnectionHandler *handlers.ConnectionHandler
	PublishHandler    *handlers.PublishHandler
	BrokerHandler     *handlers.BrokerHandler
	StatusHandler     *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := app.initPlatforms(); err != nil {
		return nil, fmt.Errorf("failed to initialize platform registry: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.initHandlers()

	logger.Info().
		Int("platforms", len(app.Registry.Platforms())).
		Bool("session_sealing", cfg.SessionKeyBytes() != nil).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the storage layer (Badger)
func (a *App) initStorage() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return err
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initPlatforms builds the registry with built-in definitions and applies
// any TOML overrides from disk
func (a *App) initPlatforms() error {
	registry, err := platforms.NewRegistry(a.Logger)
	if err != nil {
		return err
	}
	a.Registry = registry

	// Overrides are non-fatal: a bad file is logged and skipped
	if err := platforms.LoadOverridesFromFiles(registry, a.Config.Platforms.OverridesDir, a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load platform overrides")
	}

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)

	a.BrowserManager = browser.NewManager(a.Config.Browser, a.Logger)
	a.Logger.Debug().
		Bool("headless", a.Config.Browser.Headless).
		Int("max_per_platform", a.Config.Browser.MaxPerPlatform).
		Msg("Browser manager initialized")

	a.AuthService = auth.NewService(a.BrowserManager, a.Registry, a.EventService, a.Logger)

	a.PublishPipeline = publish.NewPipeline(
		a.BrowserManager,
		a.Registry,
		a.AuthService,
		a.EventService,
		a.Logger,
		a.Config.Publish.InfraRetryLimit,
	)

	brokerService, err := broker.NewService(
		a.BrowserManager,
		a.Registry,
		a.EventService,
		a.Config.Broker,
		a.Logger,
	)
	if err != nil {
		return err
	}
	a.BrokerService = brokerService

	a.ConnectionService = connections.NewService(
		a.StorageManager,
		a.BrowserManager,
		a.Registry,
		a.AuthService,
		a.PublishPipeline,
		a.EventService,
		a.Logger,
	)

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, &a.Config.WebSocket)
	a.ConnectionHandler = handlers.NewConnectionHandler(a.ConnectionService, a.Logger)
	a.PublishHandler = handlers.NewPublishHandler(a.ConnectionService, a.Logger)
	a.BrokerHandler = handlers.NewBrokerHandler(a.BrokerService, a.ConnectionService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Registry, a.BrokerService, a.BrowserManager, a.Logger)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.BrokerService != nil {
		a.BrokerService.Stop()
		a.Logger.Info().Msg("Broker stopped")
	}

	if a.BrowserManager != nil {
		if err := a.BrowserManager.Shutdown(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to shut down browser manager")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
