package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Role table and address book locations
	RolesFile   string
	AddressBook string

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool // Output in JSON format
	Timeout        time.Duration

	// Transaction settings
	ConfirmTimeout      time.Duration
	MaxConcurrentChains int

	// Resolved configurations
	FoundryConfig *FoundryConfig
	RoleTable     *RoleTable // nil when no roles file was found
}

// Network represents network configuration
type Network struct {
	ChainID uint64 `json:"chainId"`
	Name    string `json:"name"`
	RPCURL  string `json:"rpcUrl"`
}
