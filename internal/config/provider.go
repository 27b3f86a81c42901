package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
)

const (
	// DefaultAddressBook is relative to the project root
	DefaultAddressBook = "deployments/addresses.json"
)

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadEnvFiles(projectRoot)

	cfg := &config.RuntimeConfig{
		ProjectRoot:         projectRoot,
		DataDir:             filepath.Join(projectRoot, ".treb"),
		Debug:               v.GetBool("debug"),
		NonInteractive:      v.GetBool("non_interactive"),
		JSON:                v.GetBool("json"),
		Timeout:             v.GetDuration("timeout"),
		ConfirmTimeout:      v.GetDuration("confirm_timeout"),
		MaxConcurrentChains: v.GetInt("max_concurrent_chains"),
	}
	if cfg.ConfirmTimeout <= 0 {
		return nil, &domain.ConfigError{
			Field:  "confirm_timeout",
			Reason: fmt.Sprintf("must be positive, got %s", cfg.ConfirmTimeout),
		}
	}
	if cfg.MaxConcurrentChains < 1 {
		cfg.MaxConcurrentChains = 1
	}

	foundryConfig, err := loadFoundryConfig(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load foundry config: %w", err)
	}
	cfg.FoundryConfig = foundryConfig

	rolesFile := v.GetString("roles_file")
	if rolesFile == "" {
		rolesFile = FindRolesFile(projectRoot)
	} else if !filepath.IsAbs(rolesFile) {
		rolesFile = filepath.Join(projectRoot, rolesFile)
	}
	cfg.RolesFile = rolesFile

	if rolesFile != "" {
		table, err := LoadRoleTable(rolesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load roles file %s: %w", rolesFile, err)
		}
		cfg.RoleTable = table
	}

	addressBook := v.GetString("address_book")
	if addressBook == "" && cfg.RoleTable != nil {
		addressBook = cfg.RoleTable.AddressBook
	}
	if addressBook == "" {
		addressBook = DefaultAddressBook
	}
	if !filepath.IsAbs(addressBook) {
		addressBook = filepath.Join(projectRoot, addressBook)
	}
	cfg.AddressBook = addressBook

	return cfg, nil
}

// FindProjectRoot walks up from the current directory looking for foundry.toml
// or a roles file. Falls back to the current directory.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	markers := append([]string{"foundry.toml"}, DefaultRolesFiles...)
	dir := cwd
	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// Set up environment variables
	v.SetEnvPrefix("TREB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("timeout", "30m")
	v.SetDefault("confirm_timeout", "3m")
	v.SetDefault("max_concurrent_chains", 4)
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("project_root", projectRoot)

	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil {
				panic(err)
			}
		})
	}

	return v
}
