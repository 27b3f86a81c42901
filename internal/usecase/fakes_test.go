package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol = common.HexToAddress("0x3333333333333333333333333333333333333333")

	socketAddr      = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	switchboardAddr = common.HexToAddress("0xaaaa000000000000000000000000000000000002")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{MaxConcurrentChains: 2}
}

// roleSlot identifies one role instance on a fake chain
type roleSlot struct {
	chainID  uint64
	contract common.Address
	role     common.Hash
	account  common.Address
}

func slotFor(key models.RoleKey, contract common.Address) roleSlot {
	return roleSlot{chainID: key.ChainID, contract: contract, role: key.RoleID(), account: key.Account}
}

type sentTx struct {
	chainID uint64
	action  models.RoleAction
	slot    roleSlot
	hash    common.Hash
}

// fakeChain is an in-memory multi-chain role store with injectable failures
type fakeChain struct {
	mu sync.Mutex

	roles      map[roleSlot]bool
	readErrs   map[roleSlot]error
	submitErrs map[roleSlot]error
	reverts    map[roleSlot]bool
	connectErr map[uint64]error
	// blockWait makes WaitMined block until its context is done
	blockWait bool
	// waitDelay is how long each confirmation takes
	waitDelay time.Duration

	waitDeadlines []time.Time

	sent     []sentTx
	reads    int
	connects map[uint64]int
	active   int
	peak     int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		roles:      make(map[roleSlot]bool),
		readErrs:   make(map[roleSlot]error),
		submitErrs: make(map[roleSlot]error),
		reverts:    make(map[roleSlot]bool),
		connectErr: make(map[uint64]error),
		connects:   make(map[uint64]int),
	}
}

func (c *fakeChain) set(key models.RoleKey, contract common.Address, held bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[slotFor(key, contract)] = held
}

func (c *fakeChain) held(key models.RoleKey, contract common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roles[slotFor(key, contract)]
}

func (c *fakeChain) sentTxs() []sentTx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentTx(nil), c.sent...)
}

func (c *fakeChain) Connect(ctx context.Context, network *config.Network) (usecase.ChainSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects[network.ChainID]++
	if err := c.connectErr[network.ChainID]; err != nil {
		return nil, err
	}
	c.active++
	c.peak = max(c.peak, c.active)
	return &fakeSession{chain: c, chainID: network.ChainID, txs: make(map[common.Hash]sentTx)}, nil
}

type fakeSession struct {
	chain   *fakeChain
	chainID uint64
	txs     map[common.Hash]sentTx
}

func (s *fakeSession) ChainID() uint64 { return s.chainID }

func (s *fakeSession) Close() {
	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()
	s.chain.active--
}

func (s *fakeSession) HasRole(ctx context.Context, contract common.Address, role common.Hash, account common.Address) (bool, error) {
	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()
	s.chain.reads++
	slot := roleSlot{chainID: s.chainID, contract: contract, role: role, account: account}
	if err := s.chain.readErrs[slot]; err != nil {
		return false, err
	}
	return s.chain.roles[slot], nil
}

func (s *fakeSession) SubmitRoleChange(ctx context.Context, contract common.Address, action models.RoleAction, role common.Hash, account common.Address) (common.Hash, error) {
	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()
	slot := roleSlot{chainID: s.chainID, contract: contract, role: role, account: account}
	if err := s.chain.submitErrs[slot]; err != nil {
		return common.Hash{}, err
	}
	tx := sentTx{
		chainID: s.chainID,
		action:  action,
		slot:    slot,
		hash:    common.BigToHash(big.NewInt(int64(len(s.chain.sent) + 1))),
	}
	s.chain.sent = append(s.chain.sent, tx)
	s.txs[tx.hash] = tx
	return tx.hash, nil
}

func (s *fakeSession) WaitMined(ctx context.Context, txHash common.Hash) (*models.TxReceipt, error) {
	s.chain.mu.Lock()
	blocking, delay := s.chain.blockWait, s.chain.waitDelay
	if deadline, ok := ctx.Deadline(); ok {
		s.chain.waitDeadlines = append(s.chain.waitDeadlines, deadline)
	}
	s.chain.mu.Unlock()
	if blocking {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()
	tx, ok := s.txs[txHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	receipt := &models.TxReceipt{
		ChainID:     s.chainID,
		Hash:        txHash.Hex(),
		Status:      models.TransactionStatusExecuted,
		BlockNumber: 100,
		GasUsed:     30000,
	}
	if s.chain.reverts[tx.slot] {
		receipt.Status = models.TransactionStatusFailed
		return receipt, nil
	}
	s.chain.roles[tx.slot] = tx.action == models.ActionGrant
	return receipt, nil
}

// MockNetworkResolver is a mock implementation of NetworkResolver
type MockNetworkResolver struct {
	mock.Mock
}

func (m *MockNetworkResolver) GetNetworks(ctx context.Context) []string {
	args := m.Called(ctx)
	return args.Get(0).([]string)
}

func (m *MockNetworkResolver) ResolveNetwork(ctx context.Context, name string) (*config.Network, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*config.Network), args.Error(1)
}

// MockAddressResolver is a mock implementation of ContractAddressResolver
type MockAddressResolver struct {
	mock.Mock
}

func (m *MockAddressResolver) ResolveAddress(ctx context.Context, chainID uint64, contract domain.ContractType) (common.Address, error) {
	args := m.Called(ctx, chainID, contract)
	return args.Get(0).(common.Address), args.Error(1)
}

// MockReportStore is a mock implementation of ReportStore
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) SaveReport(ctx context.Context, report *models.RoleReport) (string, error) {
	args := m.Called(ctx, report)
	return args.String(0), args.Error(1)
}

// recordingSink collects progress events
type recordingSink struct {
	mu     sync.Mutex
	events []usecase.ProgressEvent
}

func (s *recordingSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Info(string)  {}
func (s *recordingSink) Error(string) {}

func networksFor(ids ...uint64) map[uint64]*config.Network {
	out := make(map[uint64]*config.Network, len(ids))
	for _, id := range ids {
		out[id] = &config.Network{ChainID: id, Name: "chain-" + big.NewInt(int64(id)).String(), RPCURL: "http://localhost"}
	}
	return out
}
