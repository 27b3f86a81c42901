package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

func TestListNetworks(t *testing.T) {
	ctx := context.Background()

	newResolver := func() *MockNetworkResolver {
		r := &MockNetworkResolver{}
		r.On("GetNetworks", mock.Anything).Return([]string{"polygon", "optimism", "sepolia"})
		r.On("ResolveNetwork", mock.Anything, "optimism").Return(&config.Network{Name: "optimism", ChainID: 10}, nil).Maybe()
		r.On("ResolveNetwork", mock.Anything, "polygon").Return(&config.Network{Name: "polygon", ChainID: 137}, nil).Maybe()
		r.On("ResolveNetwork", mock.Anything, "sepolia").Return(nil, errors.New("connection refused")).Maybe()
		return r
	}

	tests := []struct {
		name   string
		params usecase.ListNetworksParams
		want   []usecase.NetworkStatus
	}{
		{
			name: "all configured networks",
			params: usecase.ListNetworksParams{
				Referenced: []string{"optimism"},
			},
			want: []usecase.NetworkStatus{
				{Name: "optimism", ChainID: 10, Referenced: true},
				{Name: "polygon", ChainID: 137},
				{Name: "sepolia"},
			},
		},
		{
			name: "only referenced",
			params: usecase.ListNetworksParams{
				Referenced:     []string{"polygon", "optimism"},
				OnlyReferenced: true,
			},
			want: []usecase.NetworkStatus{
				{Name: "optimism", ChainID: 10, Referenced: true},
				{Name: "polygon", ChainID: 137, Referenced: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := usecase.NewListNetworks(newResolver()).Run(ctx, tt.params)
			require.NoError(t, err)
			require.Len(t, result.Networks, len(tt.want))

			for i, want := range tt.want {
				got := result.Networks[i]
				assert.Equal(t, want.Name, got.Name)
				assert.Equal(t, want.ChainID, got.ChainID)
				assert.Equal(t, want.Referenced, got.Referenced)
			}
		})
	}

	t.Run("resolution errors are reported per network", func(t *testing.T) {
		result, err := usecase.NewListNetworks(newResolver()).Run(ctx, usecase.ListNetworksParams{})
		require.NoError(t, err)
		require.Len(t, result.Networks, 3)
		assert.Error(t, result.Networks[2].Error)
		assert.NoError(t, result.Networks[0].Error)
	})

	t.Run("referenced network missing from foundry.toml", func(t *testing.T) {
		resolver := newResolver()
		result, err := usecase.NewListNetworks(resolver).Run(ctx, usecase.ListNetworksParams{
			Referenced:     []string{"base"},
			OnlyReferenced: true,
		})
		require.NoError(t, err)
		require.Len(t, result.Networks, 1)
		assert.Equal(t, "base", result.Networks[0].Name)
		assert.True(t, result.Networks[0].Referenced)
		assert.ErrorIs(t, result.Networks[0].Error, domain.ErrNetworkNotConfigured)
		resolver.AssertNotCalled(t, "ResolveNetwork", mock.Anything, "base")
	})
}
