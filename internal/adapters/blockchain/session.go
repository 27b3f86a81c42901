package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// accessControlABI covers the role methods shared by every access-controlled
// contract
const accessControlABI = `[
	{"type":"function","name":"hasRole","stateMutability":"view",
	 "inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"grantRole","stateMutability":"nonpayable",
	 "inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],
	 "outputs":[]},
	{"type":"function","name":"revokeRole","stateMutability":"nonpayable",
	 "inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],
	 "outputs":[]}
]`

// AccessControlABI is the parsed role ABI
var AccessControlABI = mustParseABI(accessControlABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// RoleSession is a connection to one chain with an optional signer
type RoleSession struct {
	client  *ethclient.Client
	chainID uint64
	opts    *bind.TransactOpts
	log     *slog.Logger

	mu      sync.Mutex
	pending map[common.Hash]*types.Transaction
}

// ChainID returns the chain the session is bound to
func (s *RoleSession) ChainID() uint64 {
	return s.chainID
}

func (s *RoleSession) contract(address common.Address) *bind.BoundContract {
	return bind.NewBoundContract(address, AccessControlABI, s.client, s.client, s.client)
}

// HasRole calls hasRole(role, account) on the contract
func (s *RoleSession) HasRole(ctx context.Context, contract common.Address, role common.Hash, account common.Address) (bool, error) {
	var out []interface{}
	err := s.contract(contract).Call(&bind.CallOpts{Context: ctx}, &out, "hasRole", role, account)
	if err != nil {
		return false, classifyError(s.chainID, "hasRole", err)
	}
	if len(out) != 1 {
		return false, &domain.ChainError{ChainID: s.chainID, Op: "hasRole", Err: fmt.Errorf("unexpected response with %d values", len(out))}
	}
	held, ok := out[0].(bool)
	if !ok {
		return false, &domain.ChainError{ChainID: s.chainID, Op: "hasRole", Err: fmt.Errorf("unexpected response type %T", out[0])}
	}
	return held, nil
}

// SubmitRoleChange sends grantRole or revokeRole
func (s *RoleSession) SubmitRoleChange(ctx context.Context, contract common.Address, action models.RoleAction, role common.Hash, account common.Address) (common.Hash, error) {
	if s.opts == nil {
		return common.Hash{}, &domain.ConfigError{Field: "signer_key", Err: domain.ErrNoSigner}
	}

	method, err := methodFor(action)
	if err != nil {
		return common.Hash{}, err
	}

	opts := *s.opts
	opts.Context = ctx

	tx, err := s.contract(contract).Transact(&opts, method, role, account)
	if err != nil {
		return common.Hash{}, classifyError(s.chainID, method, err)
	}

	s.mu.Lock()
	s.pending[tx.Hash()] = tx
	s.mu.Unlock()

	s.log.Debug("sent role transaction", "chain_id", s.chainID, "method", method, "tx", tx.Hash().Hex(), "nonce", tx.Nonce())
	return tx.Hash(), nil
}

// WaitMined waits for a transaction sent through this session
func (s *RoleSession) WaitMined(ctx context.Context, txHash common.Hash) (*models.TxReceipt, error) {
	s.mu.Lock()
	tx, ok := s.pending[txHash]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("transaction %s was not sent by this session: %w", txHash.Hex(), domain.ErrNotFound)
	}

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, classifyError(s.chainID, "waitMined", err)
	}

	s.mu.Lock()
	delete(s.pending, txHash)
	s.mu.Unlock()

	status := models.TransactionStatusExecuted
	if receipt.Status != types.ReceiptStatusSuccessful {
		status = models.TransactionStatusFailed
	}

	r := &models.TxReceipt{
		ChainID: s.chainID,
		Hash:    receipt.TxHash.Hex(),
		Status:  status,
		GasUsed: receipt.GasUsed,
		Nonce:   tx.Nonce(),
	}
	if receipt.BlockNumber != nil {
		r.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if s.opts != nil {
		r.Sender = s.opts.From.Hex()
	}
	return r, nil
}

// Close releases the RPC connection
func (s *RoleSession) Close() {
	s.client.Close()
}

func methodFor(action models.RoleAction) (string, error) {
	switch action {
	case models.ActionGrant:
		return "grantRole", nil
	case models.ActionRevoke:
		return "revokeRole", nil
	default:
		return "", fmt.Errorf("unknown role action %q", action)
	}
}

// Ensure the session implements the interface
var _ usecase.ChainSession = (*RoleSession)(nil)
