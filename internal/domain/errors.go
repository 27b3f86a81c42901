package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidAddress is returned when an Ethereum address is invalid
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidChainID is returned when a chain ID is invalid
	ErrInvalidChainID = errors.New("invalid chain ID")

	// ErrNetworkNotConfigured is returned when a network name has no rpc endpoint
	ErrNetworkNotConfigured = errors.New("network not configured")

	// ErrTransactionReverted is returned when a receipt has a failed status
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrHalted marks mutations abandoned after an earlier failure on the same chain
	ErrHalted = errors.New("halted after earlier failure on chain")

	// ErrNoSigner is returned when transactions must be sent but no signer key is set
	ErrNoSigner = errors.New("no signer key configured")
)

// ConfigError reports malformed or contradictory declarative input. It is
// always raised before any chain is contacted.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config error")
	if e.Field != "" {
		fmt.Fprintf(&b, " in %s", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NotDeployedError is returned by address resolution when a contract has no
// recorded address on a chain
type NotDeployedError struct {
	ChainID  uint64
	Contract ContractType
}

func (e *NotDeployedError) Error() string {
	return fmt.Sprintf("%s is not deployed on chain %d", e.Contract, e.ChainID)
}

func (e *NotDeployedError) Is(target error) bool { return target == ErrNotFound }

// NetworkError wraps transient connectivity failures (timeouts, unreachable
// nodes). Callers may retry with backoff; the engine never does.
type NetworkError struct {
	ChainID uint64
	Op      string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on chain %d during %s: %v", e.ChainID, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ChainError wraps a revert or an unexpected ABI response
type ChainError struct {
	ChainID uint64
	Op      string
	Err     error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain error on chain %d during %s: %v", e.ChainID, e.Op, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }

// TimeoutError is returned when a transaction confirmation was not observed in
// time. The transaction may still land later.
type TimeoutError struct {
	ChainID uint64
	TxHash  string
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transaction %s on chain %d not confirmed in time: %v", e.TxHash, e.ChainID, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ErrorKind returns a short label for the error category used in reports
func ErrorKind(err error) string {
	var (
		cfgErr     *ConfigError
		notDepErr  *NotDeployedError
		netErr     *NetworkError
		chainErr   *ChainError
		timeoutErr *TimeoutError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return "config"
	case errors.As(err, &notDepErr):
		return "not-deployed"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &chainErr):
		return "chain"
	case errors.Is(err, ErrHalted):
		return "halted"
	default:
		return "unknown"
	}
}
