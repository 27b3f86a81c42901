package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"gopkg.in/yaml.v3"
)

// DefaultRolesFiles are probed, in order, when no roles file is configured
var DefaultRolesFiles = []string{"roles.toml", "roles.yaml", "roles.yml"}

// FindRolesFile returns the first default roles file present in projectRoot,
// or "" when there is none.
func FindRolesFile(projectRoot string) string {
	for _, name := range DefaultRolesFiles {
		path := filepath.Join(projectRoot, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadRoleTable reads a roles file. The format is picked from the extension:
// .yaml/.yml use YAML, everything else TOML.
func LoadRoleTable(path string) (*config.RoleTable, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read roles file: %w", err)
	}

	var table config.RoleTable
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&table); err != nil {
			return nil, &domain.ConfigError{Field: filepath.Base(path), Reason: "invalid yaml", Err: err}
		}
	default:
		md, err := toml.Decode(string(data), &table)
		if err != nil {
			return nil, &domain.ConfigError{Field: filepath.Base(path), Reason: "invalid toml", Err: err}
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, &domain.ConfigError{
				Field:  filepath.Base(path),
				Reason: fmt.Sprintf("unknown keys: %v", undecoded),
			}
		}
	}

	expandRoleTableEnv(&table)

	if err := ValidateRoleTable(&table); err != nil {
		return nil, err
	}

	return &table, nil
}

// expandRoleTableEnv expands ${VAR} references in every string field that may
// carry one
func expandRoleTableEnv(table *config.RoleTable) {
	table.SignerKey = os.ExpandEnv(table.SignerKey)
	table.AddressBook = os.ExpandEnv(table.AddressBook)
	for i := range table.Grants {
		for j := range table.Grants[i].Users {
			u := &table.Grants[i].Users[j]
			u.Address = strings.TrimSpace(os.ExpandEnv(u.Address))
		}
	}
}

// ValidateRoleTable checks the structure of the table. Role names, contract
// names and addresses are validated by the assignment builder.
func ValidateRoleTable(table *config.RoleTable) error {
	var result *multierror.Error

	if len(table.Grants) == 0 {
		result = multierror.Append(result, &domain.ConfigError{Field: "grant", Reason: "no grant blocks defined"})
	}

	for i, g := range table.Grants {
		field := fmt.Sprintf("grant[%d]", i)
		if g.Contract == "" {
			result = multierror.Append(result, &domain.ConfigError{Field: field, Reason: "contract is required"})
		}
		if len(g.Chains) == 0 {
			result = multierror.Append(result, &domain.ConfigError{Field: field, Reason: "at least one chain is required"})
		}
		if len(g.Users) == 0 {
			result = multierror.Append(result, &domain.ConfigError{Field: field, Reason: "at least one user is required"})
		}
		for _, s := range g.Siblings {
			if s == 0 {
				result = multierror.Append(result, &domain.ConfigError{Field: field, Reason: "sibling chain 0 is not a valid chain"})
			}
		}
	}

	return result.ErrorOrNil()
}
