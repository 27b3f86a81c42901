package blockchain

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/trebuchet-org/treb-roles/internal/domain"
)

// revertMarkers are substrings of node errors that mean the call itself was
// rejected by the chain rather than lost in transit
var revertMarkers = []string{
	"execution reverted",
	"revert",
	"invalid opcode",
	"insufficient funds",
	"nonce too low",
	"replacement transaction underpriced",
	"intrinsic gas too low",
	"gas required exceeds allowance",
}

// classifyError maps an RPC failure to a NetworkError (transient transport
// problem) or a ChainError (the chain answered, and the answer was a failure)
func classifyError(chainID uint64, op string, err error) error {
	var (
		netErr   *domain.NetworkError
		chainErr *domain.ChainError
	)
	if errors.As(err, &netErr) || errors.As(err, &chainErr) {
		return err
	}

	if isChainFailure(err) {
		return &domain.ChainError{ChainID: chainID, Op: op, Err: err}
	}
	return &domain.NetworkError{ChainID: chainID, Op: op, Err: err}
}

func isChainFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return false
	}

	if errors.Is(err, bind.ErrNoCode) {
		return true
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range revertMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	// abi decoding failures surface as unmarshalling errors
	return strings.Contains(msg, "abi:")
}
