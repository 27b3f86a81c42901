package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
)

// ChainIDFetcher returns the chain id served by an RPC endpoint
type ChainIDFetcher func(ctx context.Context, rpcURL string) (uint64, error)

// NetworkResolver resolves network names to configurations with caching
type NetworkResolver struct {
	dataDir       string
	foundryConfig *config.FoundryConfig
	fetchChainID  ChainIDFetcher
	cache         *NetworkCache
	mu            sync.RWMutex
}

// NetworkCache caches chain ID lookups
type NetworkCache struct {
	Networks  map[string]uint64 `json:"networks"` // name -> chainID
	RPCs      map[string]uint64 `json:"rpcs"`     // rpcURL -> chainID
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewNetworkResolver creates a new network resolver. Chain ids are cached
// under dataDir/cache when dataDir is not empty.
func NewNetworkResolver(dataDir string, foundryConfig *config.FoundryConfig) *NetworkResolver {
	r := &NetworkResolver{
		dataDir:       dataDir,
		foundryConfig: foundryConfig,
		fetchChainID:  dialChainID,
	}

	r.loadCache()

	return r
}

// WithChainIDFetcher replaces the eth_chainId lookup
func (r *NetworkResolver) WithChainIDFetcher(f ChainIDFetcher) *NetworkResolver {
	r.fetchChainID = f
	return r
}

// Names returns the configured network names, sorted
func (r *NetworkResolver) Names() []string {
	names := make([]string, 0, len(r.foundryConfig.RpcEndpoints))
	for name := range r.foundryConfig.RpcEndpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve resolves a network name to its configuration
func (r *NetworkResolver) Resolve(ctx context.Context, networkName string) (*config.Network, error) {
	rpcURL, exists := r.foundryConfig.RpcEndpoints[networkName]
	if !exists || rpcURL == "" {
		return nil, fmt.Errorf("%w: '%s' not found in foundry.toml [rpc_endpoints]", domain.ErrNetworkNotConfigured, networkName)
	}

	r.mu.RLock()
	chainID, cached := r.cache.RPCs[rpcURL]
	r.mu.RUnlock()

	if !cached {
		fetched, err := r.fetchChainID(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chain ID for network %s: %w", networkName, err)
		}
		chainID = fetched
		r.updateCache(networkName, rpcURL, chainID)
	}

	return &config.Network{
		Name:    networkName,
		RPCURL:  rpcURL,
		ChainID: chainID,
	}, nil
}

// dialChainID asks the endpoint for its chain id over JSON-RPC
func dialChainID(ctx context.Context, rpcURL string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	defer client.Close()

	id, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return id.Uint64(), nil
}

func (r *NetworkResolver) cachePath() string {
	return filepath.Join(r.dataDir, "cache", "chainIds.json")
}

// loadCache loads the chain ID cache from disk
func (r *NetworkResolver) loadCache() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache = newNetworkCache()
	if r.dataDir == "" {
		return
	}

	data, err := os.ReadFile(r.cachePath())
	if err != nil {
		// Cache doesn't exist yet, that's fine
		return
	}

	if err := json.Unmarshal(data, r.cache); err != nil || r.cache.RPCs == nil || r.cache.Networks == nil {
		r.cache = newNetworkCache()
	}
}

// updateCache updates the cache with new chain ID information
func (r *NetworkResolver) updateCache(networkName, rpcURL string, chainID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Networks[networkName] = chainID
	r.cache.RPCs[rpcURL] = chainID
	r.cache.UpdatedAt = time.Now()

	// Save to disk (ignore errors, cache is just for performance)
	r.saveCache()
}

// saveCache writes the cache; callers hold the lock
func (r *NetworkResolver) saveCache() {
	if r.dataDir == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.cachePath()), 0755); err != nil {
		return
	}
	data, err := json.MarshalIndent(r.cache, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(r.cachePath(), data, 0644)
}

func newNetworkCache() *NetworkCache {
	return &NetworkCache{
		Networks:  make(map[string]uint64),
		RPCs:      make(map[string]uint64),
		UpdatedAt: time.Now(),
	}
}
