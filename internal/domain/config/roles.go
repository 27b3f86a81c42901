package config

// RoleTable is the declarative roles file (roles.toml / roles.yaml)
type RoleTable struct {
	// SendTransaction submits transactions when true; otherwise runs are dry
	SendTransaction bool `toml:"send_transaction" yaml:"send_transaction"`
	// NewRoleStatus is the value asserted for every listed role. Defaults to true.
	NewRoleStatus *bool  `toml:"new_role_status" yaml:"new_role_status"`
	SignerKey     string `toml:"signer_key" yaml:"signer_key"` //nolint:gosec // holds env var reference, not a literal secret
	// AddressBook overrides the address book path from runtime config
	AddressBook string       `toml:"address_book,omitempty" yaml:"address_book,omitempty"`
	Grants      []GrantBlock `toml:"grant" yaml:"grant"`
}

// GrantBlock is one reconciliation request for a contract across chains
type GrantBlock struct {
	Contract   string      `toml:"contract" yaml:"contract"`
	Chains     []string    `toml:"chains" yaml:"chains"`
	Siblings   []uint64    `toml:"siblings,omitempty" yaml:"siblings,omitempty"`
	Exhaustive bool        `toml:"exhaustive,omitempty" yaml:"exhaustive,omitempty"`
	Users      []UserBlock `toml:"users" yaml:"users"`
}

// UserBlock lists the roles one address should hold
type UserBlock struct {
	Address string   `toml:"address" yaml:"address"`
	Roles   []string `toml:"roles" yaml:"roles"`
}

// RoleStatus returns the asserted role status, defaulting to true
func (t *RoleTable) RoleStatus() bool {
	if t.NewRoleStatus == nil {
		return true
	}
	return *t.NewRoleStatus
}

// Networks returns the distinct network names referenced by the table, in
// first-seen order
func (t *RoleTable) Networks() []string {
	seen := make(map[string]bool)
	var names []string
	for _, g := range t.Grants {
		for _, name := range g.Chains {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
