package blockchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{
			name:     "deadline exceeded",
			err:      fmt.Errorf("call failed: %w", context.DeadlineExceeded),
			wantKind: "network",
		},
		{
			name:     "connection refused",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			wantKind: "network",
		},
		{
			name:     "http error",
			err:      rpc.HTTPError{StatusCode: 502, Status: "502 Bad Gateway"},
			wantKind: "network",
		},
		{
			name:     "unknown error defaults to network",
			err:      errors.New("EOF"),
			wantKind: "network",
		},
		{
			name:     "execution reverted",
			err:      errors.New("execution reverted: AccessControl: account is missing role"),
			wantKind: "chain",
		},
		{
			name:     "no code at address",
			err:      bind.ErrNoCode,
			wantKind: "chain",
		},
		{
			name:     "insufficient funds",
			err:      errors.New("insufficient funds for gas * price + value"),
			wantKind: "chain",
		},
		{
			name:     "abi unpack",
			err:      errors.New("abi: attempting to unmarshall an empty string while arguments are expected"),
			wantKind: "chain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError(10, "hasRole", tt.err)
			assert.Equal(t, tt.wantKind, domain.ErrorKind(err))
			assert.Contains(t, err.Error(), tt.err.Error())
		})
	}
}

func TestClassifyErrorKeepsTypedErrors(t *testing.T) {
	original := &domain.ChainError{ChainID: 1, Op: "grantRole", Err: domain.ErrTransactionReverted}
	err := classifyError(10, "hasRole", original)
	assert.Same(t, original, err)
}

func TestAccessControlABI(t *testing.T) {
	for _, name := range []string{"hasRole", "grantRole", "revokeRole"} {
		method, ok := AccessControlABI.Methods[name]
		require.True(t, ok, name)
		require.Len(t, method.Inputs, 2)
		assert.Equal(t, "bytes32", method.Inputs[0].Type.String())
		assert.Equal(t, "address", method.Inputs[1].Type.String())
	}
	assert.True(t, AccessControlABI.Methods["hasRole"].IsConstant())
}

func TestMethodFor(t *testing.T) {
	m, err := methodFor(models.ActionGrant)
	require.NoError(t, err)
	assert.Equal(t, "grantRole", m)

	m, err = methodFor(models.ActionRevoke)
	require.NoError(t, err)
	assert.Equal(t, "revokeRole", m)

	_, err = methodFor("MINT")
	assert.Error(t, err)
}

func TestParsePrivateKey(t *testing.T) {
	// well-known anvil account 0
	const anvilKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	key, err := ParsePrivateKey(anvilKey)
	require.NoError(t, err)
	require.NotNil(t, key)

	_, err = ParsePrivateKey("not-a-key")
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "signer_key", cfgErr.Field)
}

func TestNewEthConnectorSigner(t *testing.T) {
	t.Run("without signer", func(t *testing.T) {
		c, err := NewEthConnector(&config.RuntimeConfig{}, testLogger())
		require.NoError(t, err)
		assert.Nil(t, c.key)
	})

	t.Run("with signer", func(t *testing.T) {
		cfg := &config.RuntimeConfig{RoleTable: &config.RoleTable{
			SignerKey: "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		}}
		c, err := NewEthConnector(cfg, testLogger())
		require.NoError(t, err)
		require.NotNil(t, c.key)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", crypto.PubkeyToAddress(c.key.PublicKey).Hex())
	})

	t.Run("bad signer", func(t *testing.T) {
		cfg := &config.RuntimeConfig{RoleTable: &config.RoleTable{SignerKey: "0x1234"}}
		_, err := NewEthConnector(cfg, testLogger())
		assert.Equal(t, "config", domain.ErrorKind(err))
	})
}
