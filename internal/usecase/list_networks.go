package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-roles/internal/domain"
)

// ListNetworksParams contains parameters for listing networks
type ListNetworksParams struct {
	// Referenced names the networks the role table grants on
	Referenced []string
	// OnlyReferenced drops networks the role table does not use
	OnlyReferenced bool
}

// ListNetworksResult contains the result of listing networks
type ListNetworksResult struct {
	Networks []NetworkStatus
}

// NetworkStatus is one network with its resolved chain id or the reason it
// could not be resolved
type NetworkStatus struct {
	Name       string
	ChainID    uint64
	Referenced bool
	Error      error
}

// ListNetworks lists the configured networks and how the role table uses them
type ListNetworks struct {
	resolver NetworkResolver
}

// NewListNetworks creates a new ListNetworks use case
func NewListNetworks(resolver NetworkResolver) *ListNetworks {
	return &ListNetworks{resolver: resolver}
}

// Run resolves every configured network. Networks the role table refers to
// but foundry.toml lacks are listed with ErrNetworkNotConfigured.
func (uc *ListNetworks) Run(ctx context.Context, params ListNetworksParams) (*ListNetworksResult, error) {
	configured := uc.resolver.GetNetworks(ctx)

	names := lo.Union(configured, params.Referenced)
	if params.OnlyReferenced {
		names = lo.Intersect(names, params.Referenced)
	}
	slices.Sort(names)

	networks := lo.Map(names, func(name string, _ int) NetworkStatus {
		status := NetworkStatus{
			Name:       name,
			Referenced: slices.Contains(params.Referenced, name),
		}
		if !slices.Contains(configured, name) {
			status.Error = fmt.Errorf("%w: referenced by the role table but missing from foundry.toml", domain.ErrNetworkNotConfigured)
			return status
		}

		info, err := uc.resolver.ResolveNetwork(ctx, name)
		if err != nil {
			status.Error = err
			return status
		}
		status.ChainID = info.ChainID
		return status
	})

	return &ListNetworksResult{Networks: networks}, nil
}
