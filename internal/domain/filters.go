package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// RoleScope narrows which (chain, sibling, contract, role, account) tuples
// take part in a reconciliation run. An empty dimension does not restrict.
type RoleScope struct {
	Chains    []uint64
	Siblings  []uint64
	Contracts []ContractType
	Roles     []Role
	Accounts  []common.Address
}

// IsEmpty reports whether no dimension is restricted
func (s RoleScope) IsEmpty() bool {
	return len(s.Chains) == 0 && len(s.Siblings) == 0 && len(s.Contracts) == 0 &&
		len(s.Roles) == 0 && len(s.Accounts) == 0
}
