package config

import (
	"context"

	"github.com/trebuchet-org/treb-roles/internal/config"
	domainconfig "github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// NetworkResolverAdapter adapts the config.NetworkResolver to the usecase.NetworkResolver interface
type NetworkResolverAdapter struct {
	resolver *config.NetworkResolver
}

// NewNetworkResolverAdapter creates a new adapter
func NewNetworkResolverAdapter(resolver *config.NetworkResolver) *NetworkResolverAdapter {
	return &NetworkResolverAdapter{
		resolver: resolver,
	}
}

// ProvideNetworkResolver builds the resolver from runtime config
func ProvideNetworkResolver(cfg *domainconfig.RuntimeConfig) *config.NetworkResolver {
	return config.NewNetworkResolver(cfg.DataDir, cfg.FoundryConfig)
}

// GetNetworks returns all configured network names
func (a *NetworkResolverAdapter) GetNetworks(ctx context.Context) []string {
	return a.resolver.Names()
}

// ResolveNetwork resolves a network name to its configuration
func (a *NetworkResolverAdapter) ResolveNetwork(ctx context.Context, networkName string) (*domainconfig.Network, error) {
	return a.resolver.Resolve(ctx, networkName)
}

// Ensure the adapter implements the interface
var _ usecase.NetworkResolver = (*NetworkResolverAdapter)(nil)
