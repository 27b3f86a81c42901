package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
)

// NetworkResolver resolves network names from foundry.toml
type NetworkResolver interface {
	GetNetworks(ctx context.Context) []string
	ResolveNetwork(ctx context.Context, name string) (*config.Network, error)
}

// ContractAddressResolver looks up deployed contract addresses. Lookups for
// a contract without a recorded address fail with *domain.NotDeployedError.
type ContractAddressResolver interface {
	ResolveAddress(ctx context.Context, chainID uint64, contract domain.ContractType) (common.Address, error)
}

// ChainConnector opens sessions against a chain. Implementations bind the
// signer; the engine never dials on its own.
type ChainConnector interface {
	Connect(ctx context.Context, network *config.Network) (ChainSession, error)
}

// RoleReader reads role state. Errors are *domain.NetworkError or
// *domain.ChainError; a failed read is never reported as "not held".
type RoleReader interface {
	HasRole(ctx context.Context, contract common.Address, role common.Hash, account common.Address) (bool, error)
}

// RoleWriter submits role transactions and waits for them to be mined
type RoleWriter interface {
	// SubmitRoleChange signs and broadcasts grantRole / revokeRole and
	// returns the transaction hash without waiting for it.
	SubmitRoleChange(ctx context.Context, contract common.Address, action models.RoleAction, role common.Hash, account common.Address) (common.Hash, error)
	// WaitMined blocks until the transaction has a receipt or ctx is done
	WaitMined(ctx context.Context, txHash common.Hash) (*models.TxReceipt, error)
}

// ChainSession is a live connection to one chain
type ChainSession interface {
	RoleReader
	RoleWriter
	ChainID() uint64
	Close()
}

// ReportStore persists reconciliation reports
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.RoleReport) (string, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage   string
	Current int
	Total   int
	Message string
	Spinner bool
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
