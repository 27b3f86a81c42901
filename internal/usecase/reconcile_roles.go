package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
)

// ReconcileRolesParams contains parameters for a reconciliation run
type ReconcileRolesParams struct {
	Table *config.RoleTable
	Scope domain.RoleScope
	// ForceDryRun never sends transactions, whatever the table says
	ForceDryRun bool
	// NewRoleStatus overrides the table's new_role_status when set
	NewRoleStatus *bool
}

// ReconcileRoles is the use case that brings on-chain roles in line with a
// role table
type ReconcileRoles struct {
	networks  NetworkResolver
	addresses ContractAddressResolver
	builder   *AssignmentBuilder
	observer  *RoleObserver
	executor  *MutationExecutor
	reports   ReportStore
	progress  ProgressSink
	log       *slog.Logger
	now       func() time.Time
}

// NewReconcileRoles creates a new ReconcileRoles use case
func NewReconcileRoles(
	networks NetworkResolver,
	addresses ContractAddressResolver,
	builder *AssignmentBuilder,
	observer *RoleObserver,
	executor *MutationExecutor,
	reports ReportStore,
	progress ProgressSink,
	log *slog.Logger,
) *ReconcileRoles {
	return &ReconcileRoles{
		networks:  networks,
		addresses: addresses,
		builder:   builder,
		observer:  observer,
		executor:  executor,
		reports:   reports,
		progress:  progress,
		log:       log,
		now:       time.Now,
	}
}

// Plan is the diff of a run before execution
type Plan struct {
	DryRun      bool
	Assignments []models.RoleAssignment
	Observation *ObservationResult
	Mutations   []models.Mutation
	Networks    map[uint64]*config.Network
}

// Plan builds, filters, resolves and reads the desired state and returns the
// mutations needed. It has no side effects on chain.
func (uc *ReconcileRoles) Plan(ctx context.Context, params ReconcileRolesParams) (*Plan, error) {
	table := params.Table
	if table == nil {
		return nil, &domain.ConfigError{Field: "roles file", Reason: "no roles file found (expected roles.toml or roles.yaml)"}
	}

	newRoleStatus := table.RoleStatus()
	if params.NewRoleStatus != nil {
		newRoleStatus = *params.NewRoleStatus
	}
	dryRun := params.ForceDryRun || !table.SendTransaction

	// Everything that can be checked offline is checked before any network call
	if err := uc.builder.Validate(toRoleRequests(table, nil), newRoleStatus); err != nil {
		return nil, err
	}
	if !dryRun && table.SignerKey == "" {
		return nil, &domain.ConfigError{Field: "signer_key", Reason: "send_transaction is set", Err: domain.ErrNoSigner}
	}

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: "resolve", Message: "Resolving networks...", Spinner: true})

	networks, chainIDs, err := uc.resolveNetworks(ctx, table.Networks(), params.Scope.Chains)
	if err != nil {
		return nil, err
	}

	assignments, err := uc.builder.Build(toRoleRequests(table, chainIDs), newRoleStatus)
	if err != nil {
		return nil, err
	}
	assignments = FilterAssignments(assignments, params.Scope)

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: "resolve", Message: "Resolving contract addresses...", Spinner: true})

	assignments, err = uc.bindAddresses(ctx, assignments)
	if err != nil {
		return nil, err
	}

	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "observe",
		Message: fmt.Sprintf("Reading %d role assignments...", len(assignments)),
		Total:   len(assignments),
		Spinner: true,
	})

	observation, err := uc.observer.Observe(ctx, assignments, networks)
	if err != nil {
		return nil, err
	}

	// Tuples whose read failed have no trustworthy state and stay out of the diff
	failed := observation.FailedKeys()
	diffable := lo.Filter(assignments, func(a models.RoleAssignment, _ int) bool {
		_, ok := failed[a.Key()]
		return !ok
	})

	return &Plan{
		DryRun:      dryRun,
		Assignments: assignments,
		Observation: observation,
		Mutations:   DiffRoles(diffable, observation.Observations),
		Networks:    networks,
	}, nil
}

// Apply executes a plan and returns the reconciliation report
func (uc *ReconcileRoles) Apply(ctx context.Context, plan *Plan) (*models.RoleReport, error) {
	report := &models.RoleReport{
		RunID:        uuid.NewString(),
		DryRun:       plan.DryRun,
		StartedAt:    uc.now(),
		Checked:      len(plan.Assignments),
		ReadFailures: plan.Observation.Failures,
	}

	if !plan.DryRun && len(plan.Mutations) > 0 {
		uc.progress.OnProgress(ctx, ProgressEvent{
			Stage:   "execute",
			Message: fmt.Sprintf("Applying %d role changes...", len(plan.Mutations)),
			Total:   len(plan.Mutations),
			Spinner: true,
		})
	}

	results, err := uc.executor.Execute(ctx, plan.Mutations, plan.Networks, plan.DryRun)
	report.Results = results
	report.FinishedAt = uc.now()

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: "complete", Message: "Reconciliation finished"})

	if uc.reports != nil {
		path, saveErr := uc.reports.SaveReport(ctx, report)
		if saveErr != nil {
			uc.log.Warn("failed to save report", "run_id", report.RunID, "error", saveErr)
		} else {
			uc.log.Debug("saved report", "run_id", report.RunID, "path", path)
		}
	}

	return report, err
}

// Run plans and applies in one step
func (uc *ReconcileRoles) Run(ctx context.Context, params ReconcileRolesParams) (*models.RoleReport, error) {
	plan, err := uc.Plan(ctx, params)
	if err != nil {
		return nil, err
	}
	return uc.Apply(ctx, plan)
}

// resolveNetworks maps the table's network names to chain ids. An unknown
// name is a ConfigError. An unreachable network fails the run unless a chain
// filter is set and every filtered chain was still resolved from the others.
func (uc *ReconcileRoles) resolveNetworks(ctx context.Context, names []string, scoped []uint64) (map[uint64]*config.Network, map[string]uint64, error) {
	networks := make(map[uint64]*config.Network)
	chainIDs := make(map[string]uint64)

	var unreachable error
	for _, name := range names {
		network, err := uc.networks.ResolveNetwork(ctx, name)
		if err != nil {
			if errors.Is(err, domain.ErrNetworkNotConfigured) {
				return nil, nil, &domain.ConfigError{Field: "chains", Err: err}
			}
			netErr := &domain.NetworkError{Op: "resolve network " + name, Err: err}
			if len(scoped) == 0 {
				return nil, nil, netErr
			}
			uc.log.Warn("skipping unreachable network", "network", name, "error", err)
			if unreachable == nil {
				unreachable = netErr
			}
			continue
		}
		networks[network.ChainID] = network
		chainIDs[name] = network.ChainID
	}

	if unreachable != nil {
		for _, id := range scoped {
			if _, ok := networks[id]; !ok {
				return nil, nil, unreachable
			}
		}
	}
	return networks, chainIDs, nil
}

// bindAddresses resolves every (chain, contract) pair once and stamps the
// address onto the assignments. Any missing deployment fails the run.
func (uc *ReconcileRoles) bindAddresses(ctx context.Context, assignments []models.RoleAssignment) ([]models.RoleAssignment, error) {
	type target struct {
		chainID  uint64
		contract domain.ContractType
	}
	resolved := make(map[target]common.Address)

	bound := make([]models.RoleAssignment, len(assignments))
	for i, a := range assignments {
		t := target{chainID: a.Contract.ChainID, contract: a.Contract.Type}
		addr, ok := resolved[t]
		if !ok {
			var err error
			addr, err = uc.addresses.ResolveAddress(ctx, t.chainID, t.contract)
			if err != nil {
				return nil, err
			}
			resolved[t] = addr
			uc.log.Debug("resolved contract", "chain_id", t.chainID, "contract", t.contract, "address", addr.Hex())
		}
		a.Contract.Address = addr
		bound[i] = a
	}
	return bound, nil
}

// toRoleRequests converts the table's grant blocks. Chains are mapped through
// chainIDs when given, dropping names it does not hold, and left empty
// otherwise.
func toRoleRequests(table *config.RoleTable, chainIDs map[string]uint64) []domain.RoleRequest {
	return lo.Map(table.Grants, func(g config.GrantBlock, _ int) domain.RoleRequest {
		req := domain.RoleRequest{
			Contract:   g.Contract,
			Siblings:   g.Siblings,
			Exhaustive: g.Exhaustive,
			Users: lo.Map(g.Users, func(u config.UserBlock, _ int) domain.UserRoles {
				return domain.UserRoles{Address: u.Address, Roles: u.Roles}
			}),
		}
		if chainIDs != nil {
			req.Chains = lo.Uniq(lo.FilterMap(g.Chains, func(name string, _ int) (uint64, bool) {
				id, ok := chainIDs[name]
				return id, ok
			}))
		}
		return req
	})
}
