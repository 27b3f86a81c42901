package config

// FoundryConfig represents the parts of foundry.toml the role tooling reads
type FoundryConfig struct {
	RpcEndpoints map[string]string `toml:"rpc_endpoints"`
}
