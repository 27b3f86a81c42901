//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/treb-roles/internal/adapters"
	"github.com/trebuchet-org/treb-roles/internal/config"
	"github.com/trebuchet-org/treb-roles/internal/logging"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewAssignmentBuilder,
		usecase.NewRoleObserver,
		usecase.NewMutationExecutor,
		usecase.NewReconcileRoles,
		usecase.NewListNetworks,

		// App
		NewApp,
	)
	return nil, nil
}
