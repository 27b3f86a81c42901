package models

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-roles/internal/domain"
)

// ContractRef identifies a deployed contract instance on one chain
type ContractRef struct {
	ChainID uint64              `json:"chainId"`
	Type    domain.ContractType `json:"type"`
	Address common.Address      `json:"address"`
}

func (c ContractRef) String() string {
	if c.Address == (common.Address{}) {
		return fmt.Sprintf("%d/%s", c.ChainID, c.Type)
	}
	return fmt.Sprintf("%d/%s@%s", c.ChainID, c.Type, c.Address.Hex())
}

// RoleKey identifies one role instance held (or not) by one account on one
// contract. Sibling is zero for the global instance.
type RoleKey struct {
	ChainID  uint64              `json:"chainId"`
	Contract domain.ContractType `json:"contract"`
	Role     domain.Role         `json:"role"`
	Sibling  uint64              `json:"sibling,omitempty"`
	Account  common.Address      `json:"account"`
}

func (k RoleKey) String() string {
	role := string(k.Role)
	if k.Sibling != 0 {
		role = fmt.Sprintf("%s[%d]", k.Role, k.Sibling)
	}
	return fmt.Sprintf("%d/%s/%s/%s", k.ChainID, k.Contract, role, k.Account.Hex())
}

// RoleID is the on-chain role identifier for the key
func (k RoleKey) RoleID() common.Hash {
	return k.Role.InstanceID(k.Sibling)
}

// Compare orders keys by chain, contract, role, sibling and account
func (k RoleKey) Compare(o RoleKey) int {
	switch {
	case k.ChainID != o.ChainID:
		if k.ChainID < o.ChainID {
			return -1
		}
		return 1
	case k.Contract != o.Contract:
		return strings.Compare(string(k.Contract), string(o.Contract))
	case k.Role != o.Role:
		return strings.Compare(string(k.Role), string(o.Role))
	case k.Sibling != o.Sibling:
		if k.Sibling < o.Sibling {
			return -1
		}
		return 1
	default:
		return k.Account.Cmp(o.Account)
	}
}

// RoleAssignment is a desired role state produced from the role table
type RoleAssignment struct {
	Contract ContractRef    `json:"contract"`
	Role     domain.Role    `json:"role"`
	Sibling  uint64         `json:"sibling,omitempty"`
	Account  common.Address `json:"account"`
	Desired  bool           `json:"desired"`
}

// Key returns the tuple identity of the assignment
func (a RoleAssignment) Key() RoleKey {
	return RoleKey{
		ChainID:  a.Contract.ChainID,
		Contract: a.Contract.Type,
		Role:     a.Role,
		Sibling:  a.Sibling,
		Account:  a.Account,
	}
}

// RoleObservation is the role state read from chain during this run
type RoleObservation struct {
	Key  RoleKey `json:"key"`
	Held bool    `json:"held"`
}

// RoleAction is the direction of a mutation
type RoleAction string

const (
	ActionGrant  RoleAction = "GRANT"
	ActionRevoke RoleAction = "REVOKE"
)

// Mutation is one grant or revoke derived by diffing desired and observed state
type Mutation struct {
	Contract ContractRef    `json:"contract"`
	Role     domain.Role    `json:"role"`
	Sibling  uint64         `json:"sibling,omitempty"`
	Account  common.Address `json:"account"`
	Action   RoleAction     `json:"action"`
}

// Key returns the tuple identity of the mutation
func (m Mutation) Key() RoleKey {
	return RoleKey{
		ChainID:  m.Contract.ChainID,
		Contract: m.Contract.Type,
		Role:     m.Role,
		Sibling:  m.Sibling,
		Account:  m.Account,
	}
}

// WantHeld is the role state the mutation establishes
func (m Mutation) WantHeld() bool {
	return m.Action == ActionGrant
}

func (m Mutation) String() string {
	return fmt.Sprintf("%s(%s)", m.Action, m.Key())
}
