package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

const dialTimeout = 10 * time.Second

// EthConnector opens RoleSessions over JSON-RPC
type EthConnector struct {
	key *ecdsa.PrivateKey
	log *slog.Logger
}

// NewEthConnector creates a connector. The signer key is optional; without
// one, sessions can read but not write.
func NewEthConnector(cfg *config.RuntimeConfig, log *slog.Logger) (*EthConnector, error) {
	c := &EthConnector{log: log.With("component", "blockchain")}
	if cfg.RoleTable == nil || cfg.RoleTable.SignerKey == "" {
		return c, nil
	}

	key, err := ParsePrivateKey(cfg.RoleTable.SignerKey)
	if err != nil {
		return nil, err
	}
	c.key = key
	c.log.Debug("loaded signer", "address", crypto.PubkeyToAddress(key.PublicKey).Hex())
	return c, nil
}

// ParsePrivateKey parses a hex private key with or without a 0x prefix
func ParsePrivateKey(raw string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return nil, &domain.ConfigError{Field: "signer_key", Reason: "invalid private key", Err: err}
	}
	return key, nil
}

// Connect dials the network and verifies it reports the expected chain ID
func (c *EthConnector) Connect(ctx context.Context, network *config.Network) (usecase.ChainSession, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, network.RPCURL)
	if err != nil {
		return nil, &domain.NetworkError{ChainID: network.ChainID, Op: "dial", Err: err}
	}

	chainID, err := client.ChainID(dialCtx)
	if err != nil {
		client.Close()
		return nil, &domain.NetworkError{ChainID: network.ChainID, Op: "eth_chainId", Err: err}
	}
	if chainID.Uint64() != network.ChainID {
		client.Close()
		return nil, &domain.ChainError{
			ChainID: network.ChainID,
			Op:      "connect",
			Err:     fmt.Errorf("%w: %s reports chain %d", domain.ErrInvalidChainID, network.Name, chainID.Uint64()),
		}
	}

	session := &RoleSession{
		client:  client,
		chainID: network.ChainID,
		log:     c.log.With("chain_id", network.ChainID),
		pending: make(map[common.Hash]*types.Transaction),
	}
	if c.key != nil {
		opts, err := bind.NewKeyedTransactorWithChainID(c.key, new(big.Int).SetUint64(network.ChainID))
		if err != nil {
			client.Close()
			return nil, &domain.ConfigError{Field: "signer_key", Err: err}
		}
		session.opts = opts
	}

	c.log.Debug("connected", "network", network.Name, "chain_id", network.ChainID)
	return session, nil
}

// Ensure the connector implements the interface
var _ usecase.ChainConnector = (*EthConnector)(nil)
