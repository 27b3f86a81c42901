package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// DefaultConfirmTimeout bounds a confirmation wait when none is configured
const DefaultConfirmTimeout = 3 * time.Minute

// MutationExecutor applies role mutations as signed transactions
type MutationExecutor struct {
	connector      ChainConnector
	progress       ProgressSink
	confirmTimeout time.Duration
	maxConcurrent  int
	log            *slog.Logger
}

// NewMutationExecutor creates a new MutationExecutor
func NewMutationExecutor(connector ChainConnector, progress ProgressSink, cfg *config.RuntimeConfig, log *slog.Logger) *MutationExecutor {
	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = DefaultConfirmTimeout
	}
	return &MutationExecutor{
		connector:      connector,
		progress:       progress,
		confirmTimeout: confirmTimeout,
		maxConcurrent:  max(cfg.MaxConcurrentChains, 1),
		log:            log,
	}
}

// Execute applies mutations and returns one result per mutation, in input
// order.
//
// In dry-run mode nothing is sent and every mutation is reported as planned.
// Otherwise each chain is processed by its own worker: mutations on one chain
// are sent strictly in order, each waiting for its receipt before the next,
// since they share the signer's nonce sequence. Before sending, the role is
// read again and the mutation is skipped if it is already in effect. The
// first failure on a chain halts the rest of that chain's queue; other
// chains continue.
func (e *MutationExecutor) Execute(ctx context.Context, mutations []models.Mutation, networks map[uint64]*config.Network, dryRun bool) ([]models.MutationResult, error) {
	results := make([]models.MutationResult, len(mutations))
	for i, m := range mutations {
		results[i] = models.MutationResult{Mutation: m, Outcome: models.OutcomePlanned}
	}
	if dryRun || len(mutations) == 0 {
		return results, nil
	}

	// Queue indices per chain, keeping diff order within each chain
	queues := make(map[uint64][]int)
	for i, m := range mutations {
		queues[m.Contract.ChainID] = append(queues[m.Contract.ChainID], i)
	}

	var (
		mu   sync.Mutex
		done int
	)
	record := func(idx int, res models.MutationResult) {
		mu.Lock()
		defer mu.Unlock()
		results[idx] = res
		done++
		e.progress.OnProgress(ctx, ProgressEvent{
			Stage:   "execute",
			Current: done,
			Total:   len(mutations),
			Message: fmt.Sprintf("%s %s", res.Outcome, res.Mutation),
			Spinner: done < len(mutations),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for _, chainID := range sortedChainIDs(queues) {
		queue := queues[chainID]
		network := networks[chainID]
		g.Go(func() error {
			e.runChain(gctx, chainID, network, lo.Map(queue, func(idx int, _ int) indexedMutation {
				return indexedMutation{idx: idx, mutation: mutations[idx]}
			}), record)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

type indexedMutation struct {
	idx      int
	mutation models.Mutation
}

func (e *MutationExecutor) runChain(ctx context.Context, chainID uint64, network *config.Network, queue []indexedMutation, record func(int, models.MutationResult)) {
	log := e.log.With("chain_id", chainID)

	haltFrom := func(from int, cause error) {
		for _, im := range queue[from:] {
			record(im.idx, failedResult(im.mutation, fmt.Errorf("%w: %v", domain.ErrHalted, cause)))
		}
	}

	if network == nil {
		err := &domain.NetworkError{ChainID: chainID, Op: "connect", Err: fmt.Errorf("no network resolved for chain %d", chainID)}
		for _, im := range queue {
			record(im.idx, failedResult(im.mutation, err))
		}
		return
	}

	session, err := e.connector.Connect(ctx, network)
	if err != nil {
		log.Error("failed to connect", "network", network.Name, "error", err)
		for _, im := range queue {
			record(im.idx, failedResult(im.mutation, err))
		}
		return
	}
	defer session.Close()

	for i, im := range queue {
		res := e.apply(ctx, session, im.mutation)
		record(im.idx, res)
		if res.Outcome == models.OutcomeFailed {
			log.Error("mutation failed, halting chain", "mutation", im.mutation.String(), "error", res.Err)
			haltFrom(i+1, res.Err)
			return
		}
	}
}

// apply re-reads, submits and confirms one mutation
func (e *MutationExecutor) apply(ctx context.Context, session ChainSession, m models.Mutation) models.MutationResult {
	key := m.Key()
	log := e.log.With("chain_id", key.ChainID, "contract", m.Contract.Type, "role", m.Role, "sibling", m.Sibling, "account", m.Account.Hex(), "action", m.Action)

	held, err := session.HasRole(ctx, m.Contract.Address, key.RoleID(), m.Account)
	if err != nil {
		return failedResult(m, err)
	}
	if held == m.WantHeld() {
		log.Info("role already in desired state, skipping")
		return models.MutationResult{
			Mutation: m,
			Outcome:  models.OutcomeSkipped,
			Reason:   "already in desired state",
		}
	}

	txHash, err := session.SubmitRoleChange(ctx, m.Contract.Address, m.Action, key.RoleID(), m.Account)
	if err != nil {
		return failedResult(m, err)
	}
	log.Info("submitted role transaction", "tx", txHash.Hex())

	waitCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()

	receipt, err := session.WaitMined(waitCtx, txHash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = &domain.TimeoutError{ChainID: key.ChainID, TxHash: txHash.Hex(), Err: err}
		}
		res := failedResult(m, err)
		res.TxHash = txHash.Hex()
		return res
	}

	res := models.MutationResult{
		Mutation:    m,
		TxHash:      receipt.Hash,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
	}
	if receipt.Status != models.TransactionStatusExecuted {
		err := &domain.ChainError{ChainID: key.ChainID, Op: string(m.Action), Err: domain.ErrTransactionReverted}
		res.Outcome = models.OutcomeFailed
		res.ErrorKind = domain.ErrorKind(err)
		res.Reason = err.Error()
		res.Err = err
		return res
	}

	log.Info("role transaction confirmed", "tx", receipt.Hash, "block", receipt.BlockNumber)
	res.Outcome = models.OutcomeApplied
	return res
}

func failedResult(m models.Mutation, err error) models.MutationResult {
	return models.MutationResult{
		Mutation:  m,
		Outcome:   models.OutcomeFailed,
		ErrorKind: domain.ErrorKind(err),
		Reason:    err.Error(),
		Err:       err,
	}
}
