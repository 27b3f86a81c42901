package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

type reconcileFixture struct {
	chain     *fakeChain
	networks  *MockNetworkResolver
	addresses *MockAddressResolver
	reports   *MockReportStore
	uc        *usecase.ReconcileRoles
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()

	f := &reconcileFixture{
		chain:     newFakeChain(),
		networks:  &MockNetworkResolver{},
		addresses: &MockAddressResolver{},
		reports:   &MockReportStore{},
	}

	f.networks.On("ResolveNetwork", mock.Anything, "optimism").Return(&config.Network{ChainID: 10, Name: "optimism", RPCURL: "http://op"}, nil).Maybe()
	f.networks.On("ResolveNetwork", mock.Anything, "polygon").Return(&config.Network{ChainID: 137, Name: "polygon", RPCURL: "http://polygon"}, nil).Maybe()
	f.networks.On("ResolveNetwork", mock.Anything, "arbitrum").Return(nil, errors.New("dial tcp: connection refused")).Maybe()
	f.networks.On("ResolveNetwork", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: unknown", domain.ErrNetworkNotConfigured)).Maybe()

	f.addresses.On("ResolveAddress", mock.Anything, uint64(10), domain.ContractSocket).Return(socketAddr, nil).Maybe()
	f.addresses.On("ResolveAddress", mock.Anything, uint64(137), domain.ContractSocket).Return(socketAddr, nil).Maybe()
	f.addresses.On("ResolveAddress", mock.Anything, mock.Anything, mock.Anything).
		Return(common.Address{}, &domain.NotDeployedError{ChainID: 137, Contract: domain.ContractFastSwitchboard}).Maybe()

	f.reports.On("SaveReport", mock.Anything, mock.Anything).Return("/tmp/report.json", nil).Maybe()

	cfg := testConfig()
	log := testLogger()
	f.uc = usecase.NewReconcileRoles(
		f.networks,
		f.addresses,
		usecase.NewAssignmentBuilder(log),
		usecase.NewRoleObserver(f.chain, cfg, log),
		usecase.NewMutationExecutor(f.chain, usecase.NopProgress{}, cfg, log),
		f.reports,
		usecase.NopProgress{},
		log,
	)
	return f
}

func socketTable(send bool, users ...config.UserBlock) *config.RoleTable {
	table := &config.RoleTable{
		SendTransaction: send,
		Grants: []config.GrantBlock{{
			Contract: "Socket",
			Chains:   []string{"optimism", "polygon"},
			Users:    users,
		}},
	}
	if send {
		table.SignerKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	}
	return table
}

func socketKey(chainID uint64, role domain.Role, account common.Address) models.RoleKey {
	return models.RoleKey{ChainID: chainID, Contract: domain.ContractSocket, Role: role, Account: account}
}

func TestReconcileRoles(t *testing.T) {
	ctx := context.Background()
	aliceRoles := config.UserBlock{Address: alice.Hex(), Roles: []string{"GOVERNANCE_ROLE", "RESCUE_ROLE"}}

	t.Run("dry run plans without sending", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.chain.set(socketKey(10, domain.RoleGovernance, alice), socketAddr, true)

		report, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{Table: socketTable(false, aliceRoles)})
		require.NoError(t, err)

		assert.True(t, report.DryRun)
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, 4, report.Checked)
		require.Len(t, report.Results, 3)
		for _, res := range report.Results {
			assert.Equal(t, models.OutcomePlanned, res.Outcome)
			assert.Equal(t, models.ActionGrant, res.Mutation.Action)
			assert.Equal(t, socketAddr, res.Mutation.Contract.Address)
		}
		assert.Empty(t, f.chain.sentTxs())
		assert.False(t, report.HasFailures())
		f.reports.AssertCalled(t, "SaveReport", mock.Anything, report)
	})

	t.Run("apply converges and a second run is a no-op", func(t *testing.T) {
		f := newReconcileFixture(t)
		bobRoles := config.UserBlock{Address: bob.Hex(), Roles: []string{"RESCUE_ROLE"}}
		f.chain.set(socketKey(137, domain.RoleRescue, bob), socketAddr, true)

		params := usecase.ReconcileRolesParams{Table: socketTable(true, aliceRoles, bobRoles)}
		report, err := f.uc.Run(ctx, params)
		require.NoError(t, err)

		assert.False(t, report.DryRun)
		counts := report.CountByOutcome()
		assert.Equal(t, 5, counts[models.OutcomeApplied])
		assert.True(t, f.chain.held(socketKey(10, domain.RoleGovernance, alice), socketAddr))
		assert.True(t, f.chain.held(socketKey(137, domain.RoleRescue, alice), socketAddr))
		assert.True(t, f.chain.held(socketKey(10, domain.RoleRescue, bob), socketAddr))

		plan, err := f.uc.Plan(ctx, params)
		require.NoError(t, err)
		assert.Empty(t, plan.Mutations)
	})

	t.Run("revoke override", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.chain.set(socketKey(10, domain.RoleRescue, alice), socketAddr, true)
		status := false

		report, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{
			Table:         socketTable(true, aliceRoles),
			NewRoleStatus: &status,
		})
		require.NoError(t, err)

		require.Len(t, report.Results, 1)
		assert.Equal(t, models.ActionRevoke, report.Results[0].Mutation.Action)
		assert.Equal(t, models.OutcomeApplied, report.Results[0].Outcome)
		assert.False(t, f.chain.held(socketKey(10, domain.RoleRescue, alice), socketAddr))
	})

	t.Run("forced dry run ignores send_transaction", func(t *testing.T) {
		f := newReconcileFixture(t)
		table := socketTable(true, aliceRoles)
		table.SignerKey = ""

		report, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{Table: table, ForceDryRun: true})
		require.NoError(t, err)
		assert.True(t, report.DryRun)
		assert.Empty(t, f.chain.sentTxs())
	})

	t.Run("scope narrows the run", func(t *testing.T) {
		f := newReconcileFixture(t)

		report, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{
			Table: socketTable(false, aliceRoles),
			Scope: domain.RoleScope{Chains: []uint64{137}, Roles: []domain.Role{domain.RoleRescue}},
		})
		require.NoError(t, err)

		assert.Equal(t, 1, report.Checked)
		require.Len(t, report.Results, 1)
		assert.Equal(t, socketKey(137, domain.RoleRescue, alice), report.Results[0].Mutation.Key())
		assert.Equal(t, 0, f.chain.connects[10])
	})

	t.Run("dry run plans the same mutations as a real run", func(t *testing.T) {
		f := newReconcileFixture(t)
		bobRoles := config.UserBlock{Address: bob.Hex(), Roles: []string{"RESCUE_ROLE"}}
		f.chain.set(socketKey(10, domain.RoleGovernance, alice), socketAddr, true)
		f.chain.set(socketKey(137, domain.RoleRescue, bob), socketAddr, true)
		status := false

		for _, override := range []*bool{nil, &status} {
			dry, err := f.uc.Plan(ctx, usecase.ReconcileRolesParams{Table: socketTable(false, aliceRoles, bobRoles), NewRoleStatus: override})
			require.NoError(t, err)
			live, err := f.uc.Plan(ctx, usecase.ReconcileRolesParams{Table: socketTable(true, aliceRoles, bobRoles), NewRoleStatus: override})
			require.NoError(t, err)

			assert.True(t, dry.DryRun)
			assert.False(t, live.DryRun)
			assert.NotEmpty(t, dry.Mutations)
			assert.Equal(t, dry.Mutations, live.Mutations)
		}

		report, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{Table: socketTable(false, aliceRoles, bobRoles)})
		require.NoError(t, err)
		live, err := f.uc.Plan(ctx, usecase.ReconcileRolesParams{Table: socketTable(true, aliceRoles, bobRoles)})
		require.NoError(t, err)
		planned := make([]models.Mutation, len(report.Results))
		for i, res := range report.Results {
			planned[i] = res.Mutation
		}
		assert.Equal(t, live.Mutations, planned)
		assert.Empty(t, f.chain.sentTxs())
	})

	t.Run("unreachable network outside the chain filter is skipped", func(t *testing.T) {
		f := newReconcileFixture(t)
		table := socketTable(false, aliceRoles)
		table.Grants[0].Chains = []string{"optimism", "polygon", "arbitrum"}

		report, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{
			Table: table,
			Scope: domain.RoleScope{Chains: []uint64{137}},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Checked)
		for _, res := range report.Results {
			assert.Equal(t, uint64(137), res.Mutation.Contract.ChainID)
		}

		_, err = f.uc.Run(ctx, usecase.ReconcileRolesParams{Table: table})
		var netErr *domain.NetworkError
		require.ErrorAs(t, err, &netErr)

		_, err = f.uc.Run(ctx, usecase.ReconcileRolesParams{
			Table: table,
			Scope: domain.RoleScope{Chains: []uint64{42161}},
		})
		require.ErrorAs(t, err, &netErr)
	})

	t.Run("read failures stay out of the diff", func(t *testing.T) {
		f := newReconcileFixture(t)
		failing := socketKey(137, domain.RoleGovernance, alice)
		f.chain.readErrs[slotFor(failing, socketAddr)] = &domain.ChainError{ChainID: 137, Op: "hasRole", Err: errors.New("abi: cannot unmarshal")}

		report, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{Table: socketTable(true, aliceRoles)})
		require.NoError(t, err)

		require.Len(t, report.ReadFailures, 1)
		assert.Equal(t, failing, report.ReadFailures[0].Key)
		assert.Equal(t, "chain", report.ReadFailures[0].ErrorKind)
		assert.Len(t, report.Results, 3)
		for _, res := range report.Results {
			assert.NotEqual(t, failing, res.Mutation.Key())
		}
		assert.False(t, f.chain.held(failing, socketAddr))
		assert.True(t, report.HasFailures())
	})

	t.Run("missing deployment aborts before any read", func(t *testing.T) {
		f := newReconcileFixture(t)
		table := socketTable(true, aliceRoles)
		table.Grants = append(table.Grants, config.GrantBlock{
			Contract: "FastSwitchboard",
			Chains:   []string{"polygon"},
			Users:    []config.UserBlock{{Address: bob.Hex(), Roles: []string{"GOVERNANCE_ROLE"}}},
		})

		_, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{Table: table})
		var notDeployed *domain.NotDeployedError
		require.ErrorAs(t, err, &notDeployed)
		assert.Equal(t, 0, f.chain.reads)
		assert.Empty(t, f.chain.sentTxs())
		f.reports.AssertNotCalled(t, "SaveReport", mock.Anything, mock.Anything)
	})

	t.Run("config errors are raised before any network call", func(t *testing.T) {
		tests := []struct {
			name  string
			table *config.RoleTable
			is    error
		}{
			{name: "no table", table: nil},
			{
				name: "missing signer",
				table: func() *config.RoleTable {
					tb := socketTable(true, aliceRoles)
					tb.SignerKey = ""
					return tb
				}(),
				is: domain.ErrNoSigner,
			},
			{name: "bad role", table: socketTable(false, config.UserBlock{Address: alice.Hex(), Roles: []string{"WATCHER_ROLE"}})},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newReconcileFixture(t)
				_, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{Table: tt.table})

				var cfgErr *domain.ConfigError
				require.ErrorAs(t, err, &cfgErr)
				if tt.is != nil {
					assert.ErrorIs(t, err, tt.is)
				}
				f.networks.AssertNotCalled(t, "ResolveNetwork", mock.Anything, mock.Anything)
				assert.Empty(t, f.chain.connects)
			})
		}
	})

	t.Run("unknown network is a config error", func(t *testing.T) {
		f := newReconcileFixture(t)
		table := socketTable(false, aliceRoles)
		table.Grants[0].Chains = []string{"optimism", "narnia"}

		_, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{Table: table})
		var cfgErr *domain.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.ErrorIs(t, err, domain.ErrNetworkNotConfigured)
	})

	t.Run("report save failure does not fail the run", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.reports.ExpectedCalls = nil
		f.reports.On("SaveReport", mock.Anything, mock.Anything).Return("", errors.New("disk full"))

		report, err := f.uc.Run(ctx, usecase.ReconcileRolesParams{Table: socketTable(false, aliceRoles)})
		require.NoError(t, err)
		assert.NotNil(t, report)
	})
}
