package app

import (
	"log/slog"

	"github.com/trebuchet-org/treb-roles/internal/adapters/interactive"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared dependencies
	Networks  usecase.NetworkResolver
	Confirmer *interactive.ConfirmAdapter
	Progress  usecase.ProgressSink

	// Use cases
	ReconcileRoles *usecase.ReconcileRoles
	ListNetworks   *usecase.ListNetworks
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	networks usecase.NetworkResolver,
	confirmer *interactive.ConfirmAdapter,
	progress usecase.ProgressSink,
	reconcileRoles *usecase.ReconcileRoles,
	listNetworks *usecase.ListNetworks,
) (*App, error) {
	return &App{
		Config:         cfg,
		Log:            log,
		Networks:       networks,
		Confirmer:      confirmer,
		Progress:       progress,
		ReconcileRoles: reconcileRoles,
		ListNetworks:   listNetworks,
	}, nil
}
