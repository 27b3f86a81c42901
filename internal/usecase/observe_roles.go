package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// ObservationResult holds the role state read for a set of assignments
type ObservationResult struct {
	Observations []models.RoleObservation
	Failures     []models.ReadFailure
}

// FailedKeys returns the set of keys whose read failed
func (r *ObservationResult) FailedKeys() map[models.RoleKey]struct{} {
	return lo.SliceToMap(r.Failures, func(f models.ReadFailure) (models.RoleKey, struct{}) {
		return f.Key, struct{}{}
	})
}

// RoleObserver reads the current on-chain role state of assignments. Reads
// are never cached between runs.
type RoleObserver struct {
	connector     ChainConnector
	maxConcurrent int
	log           *slog.Logger
}

// NewRoleObserver creates a new RoleObserver
func NewRoleObserver(connector ChainConnector, cfg *config.RuntimeConfig, log *slog.Logger) *RoleObserver {
	return &RoleObserver{
		connector:     connector,
		maxConcurrent: max(cfg.MaxConcurrentChains, 1),
		log:           log,
	}
}

// Observe reads every distinct tuple of the assignments. Chains are read
// concurrently, bounded by the configured session limit. A failed read is
// recorded as a failure for that tuple and never as "not held"; the other
// tuples are still read.
func (o *RoleObserver) Observe(ctx context.Context, assignments []models.RoleAssignment, networks map[uint64]*config.Network) (*ObservationResult, error) {
	byChain := lo.GroupBy(lo.UniqBy(assignments, func(a models.RoleAssignment) models.RoleKey { return a.Key() }),
		func(a models.RoleAssignment) uint64 { return a.Contract.ChainID })

	var (
		mu     sync.Mutex
		result = &ObservationResult{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)

	for _, chainID := range sortedChainIDs(byChain) {
		chainAssignments := byChain[chainID]
		network := networks[chainID]

		g.Go(func() error {
			observations, failures := o.observeChain(gctx, network, chainID, chainAssignments)

			mu.Lock()
			defer mu.Unlock()
			result.Observations = append(result.Observations, observations...)
			result.Failures = append(result.Failures, failures...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(result.Observations, func(a, b models.RoleObservation) int { return a.Key.Compare(b.Key) })
	slices.SortFunc(result.Failures, func(a, b models.ReadFailure) int { return a.Key.Compare(b.Key) })

	return result, nil
}

func (o *RoleObserver) observeChain(ctx context.Context, network *config.Network, chainID uint64, assignments []models.RoleAssignment) ([]models.RoleObservation, []models.ReadFailure) {
	failAll := func(err error) []models.ReadFailure {
		return lo.Map(assignments, func(a models.RoleAssignment, _ int) models.ReadFailure {
			return newReadFailure(a.Key(), err)
		})
	}

	if network == nil {
		return nil, failAll(&domain.NetworkError{ChainID: chainID, Op: "connect", Err: fmt.Errorf("no network resolved for chain %d", chainID)})
	}

	session, err := o.connector.Connect(ctx, network)
	if err != nil {
		o.log.Warn("failed to connect", "chain_id", chainID, "network", network.Name, "error", err)
		return nil, failAll(err)
	}
	defer session.Close()

	var (
		observations []models.RoleObservation
		failures     []models.ReadFailure
	)
	for _, a := range assignments {
		key := a.Key()
		held, err := session.HasRole(ctx, a.Contract.Address, key.RoleID(), a.Account)
		if err != nil {
			o.log.Warn("role read failed", "chain_id", chainID, "contract", a.Contract.Type, "role", a.Role, "sibling", a.Sibling, "account", a.Account.Hex(), "error", err)
			failures = append(failures, newReadFailure(key, err))
			continue
		}
		o.log.Debug("role read", "chain_id", chainID, "contract", a.Contract.Type, "role", a.Role, "sibling", a.Sibling, "account", a.Account.Hex(), "held", held)
		observations = append(observations, models.RoleObservation{Key: key, Held: held})
	}

	return observations, failures
}

func newReadFailure(key models.RoleKey, err error) models.ReadFailure {
	return models.ReadFailure{
		Key:       key,
		ErrorKind: domain.ErrorKind(err),
		Reason:    err.Error(),
		Err:       err,
	}
}

func sortedChainIDs[T any](m map[uint64]T) []uint64 {
	ids := lo.Keys(m)
	slices.Sort(ids)
	return ids
}
