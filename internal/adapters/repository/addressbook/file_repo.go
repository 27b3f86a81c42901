package addressbook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// FileRepository reads contract addresses from a JSON address book of the
// form {"<chainId>": {"<ContractName>": "0x..."}}
type FileRepository struct {
	path string

	mu        sync.RWMutex
	loaded    bool
	addresses map[uint64]map[domain.ContractType]common.Address
}

// NewFileRepository creates an address book backed by path. The file is read
// lazily on first lookup.
func NewFileRepository(cfg *config.RuntimeConfig) *FileRepository {
	return &FileRepository{path: cfg.AddressBook}
}

// ResolveAddress returns the recorded address for contract on chainID
func (r *FileRepository) ResolveAddress(ctx context.Context, chainID uint64, contract domain.ContractType) (common.Address, error) {
	if err := r.ensureLoaded(); err != nil {
		return common.Address{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.addresses[chainID][contract]
	if !ok || addr == (common.Address{}) {
		return common.Address{}, &domain.NotDeployedError{ChainID: chainID, Contract: contract}
	}
	return addr, nil
}

func (r *FileRepository) ensureLoaded() error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	if err := r.load(); err != nil {
		return err
	}
	r.loaded = true
	return nil
}

// load must be called with the write lock held
func (r *FileRepository) load() error {
	r.addresses = make(map[uint64]map[domain.ContractType]common.Address)

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			// An absent book means nothing is deployed anywhere
			return nil
		}
		return &domain.ConfigError{Field: "address_book", Reason: "failed to read " + r.path, Err: err}
	}

	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return &domain.ConfigError{Field: "address_book", Reason: "failed to parse " + r.path, Err: err}
	}

	for chainKey, contracts := range raw {
		chainID, err := strconv.ParseUint(strings.TrimSpace(chainKey), 10, 64)
		if err != nil {
			return &domain.ConfigError{
				Field:  "address_book",
				Reason: fmt.Sprintf("chain key %q is not a chain id", chainKey),
				Err:    domain.ErrInvalidChainID,
			}
		}
		byContract := make(map[domain.ContractType]common.Address, len(contracts))
		for name, hex := range contracts {
			if !common.IsHexAddress(hex) {
				return &domain.ConfigError{
					Field:  "address_book",
					Reason: fmt.Sprintf("%s on chain %d has address %q", name, chainID, hex),
					Err:    domain.ErrInvalidAddress,
				}
			}
			// Entries for contracts without role policies are ignored
			if ct, ok := domain.LookupContractType(name); ok {
				byContract[ct] = common.HexToAddress(hex)
			}
		}
		r.addresses[chainID] = byContract
	}
	return nil
}

// Ensure the repository implements the interface
var _ usecase.ContractAddressResolver = (*FileRepository)(nil)
