package domain

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role is a named permission on an access-controlled contract
type Role string

const (
	RoleRescue      Role = "RESCUE_ROLE"
	RoleGovernance  Role = "GOVERNANCE_ROLE"
	RoleWithdraw    Role = "WITHDRAW_ROLE"
	RoleFeesUpdater Role = "FEES_UPDATER_ROLE"
	RoleExecutor    Role = "EXECUTOR_ROLE"
	RoleTransmitter Role = "TRANSMITTER_ROLE"
	RoleTrip        Role = "TRIP_ROLE"
	RoleUnTrip      Role = "UN_TRIP_ROLE"
	RoleWatcher     Role = "WATCHER_ROLE"
)

// AllRoles lists every known role in declaration order
var AllRoles = []Role{
	RoleRescue,
	RoleGovernance,
	RoleWithdraw,
	RoleFeesUpdater,
	RoleExecutor,
	RoleTransmitter,
	RoleTrip,
	RoleUnTrip,
	RoleWatcher,
}

// ParseRole accepts the canonical name ("RESCUE_ROLE") as well as the short
// lowercase form ("rescue").
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	if !strings.HasSuffix(name, "_ROLE") {
		name += "_ROLE"
	}
	role := Role(name)
	if !slices.Contains(AllRoles, role) {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

// ID returns the on-chain identifier, keccak256 of the role name.
func (r Role) ID() common.Hash {
	return crypto.Keccak256Hash([]byte(r))
}

var siblingRoleArgs = abi.Arguments{
	{Type: mustABIType("bytes32")},
	{Type: mustABIType("uint256")},
}

// SiblingID returns the identifier of the role instance scoped to a remote
// chain: keccak256(abi.encode(roleId, siblingChain)).
func (r Role) SiblingID(sibling uint64) common.Hash {
	packed, err := siblingRoleArgs.Pack([32]byte(r.ID()), new(big.Int).SetUint64(sibling))
	if err != nil {
		// bytes32 and uint256 always pack
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// InstanceID returns the identifier for the global instance when sibling is
// zero and the sibling-scoped instance otherwise.
func (r Role) InstanceID(sibling uint64) common.Hash {
	if sibling == 0 {
		return r.ID()
	}
	return r.SiblingID(sibling)
}

func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// ContractType names a kind of deployed contract in the address book
type ContractType string

const (
	ContractSocket                ContractType = "Socket"
	ContractSocketBatcher         ContractType = "SocketBatcher"
	ContractExecutionManager      ContractType = "ExecutionManager"
	ContractExecutionManagerDF    ContractType = "ExecutionManagerDF"
	ContractTransmitManager       ContractType = "TransmitManager"
	ContractFastSwitchboard       ContractType = "FastSwitchboard"
	ContractFastSwitchboard2      ContractType = "FastSwitchboard2"
	ContractOptimisticSwitchboard ContractType = "OptimisticSwitchboard"
)

// RolePolicy describes which roles a contract type understands. Global roles
// are checked once per contract; sibling roles once per remote chain.
type RolePolicy struct {
	Global  []Role
	Sibling []Role
}

var switchboardPolicy = RolePolicy{
	Global:  []Role{RoleRescue, RoleGovernance, RoleWithdraw, RoleTrip, RoleUnTrip, RoleFeesUpdater},
	Sibling: []Role{RoleTrip, RoleUnTrip, RoleWatcher, RoleFeesUpdater},
}

var executionManagerPolicy = RolePolicy{
	Global:  []Role{RoleRescue, RoleGovernance, RoleWithdraw, RoleExecutor, RoleFeesUpdater},
	Sibling: []Role{RoleFeesUpdater},
}

// RolePolicies maps every supported contract type to its role policy
var RolePolicies = map[ContractType]RolePolicy{
	ContractSocket:             {Global: []Role{RoleRescue, RoleGovernance}},
	ContractSocketBatcher:      {Global: []Role{RoleRescue, RoleWithdraw}},
	ContractExecutionManager:   executionManagerPolicy,
	ContractExecutionManagerDF: executionManagerPolicy,
	ContractTransmitManager: {
		Global:  []Role{RoleRescue, RoleGovernance, RoleWithdraw, RoleFeesUpdater},
		Sibling: []Role{RoleTransmitter, RoleFeesUpdater},
	},
	ContractFastSwitchboard:  switchboardPolicy,
	ContractFastSwitchboard2: switchboardPolicy,
	ContractOptimisticSwitchboard: {
		Global:  []Role{RoleRescue, RoleGovernance, RoleTrip, RoleUnTrip, RoleFeesUpdater},
		Sibling: []Role{RoleTrip, RoleUnTrip, RoleWatcher, RoleFeesUpdater},
	},
}

// ContractTypeNames returns the supported contract type names, sorted
func ContractTypeNames() []string {
	names := make([]string, 0, len(RolePolicies))
	for t := range RolePolicies {
		names = append(names, string(t))
	}
	slices.Sort(names)
	return names
}

// LookupContractType matches a contract type name case-insensitively
func LookupContractType(name string) (ContractType, bool) {
	for t := range RolePolicies {
		if strings.EqualFold(string(t), strings.TrimSpace(name)) {
			return t, true
		}
	}
	return "", false
}

// Policy returns the role policy of the contract type
func (t ContractType) Policy() RolePolicy {
	return RolePolicies[t]
}

// Accepts reports whether the role is meaningful on this contract type at all
func (t ContractType) Accepts(role Role) bool {
	p := t.Policy()
	return slices.Contains(p.Global, role) || slices.Contains(p.Sibling, role)
}

// Instances expands a role into the sibling values it must be checked under.
// Zero denotes the global instance.
func (t ContractType) Instances(role Role, siblings []uint64) []uint64 {
	p := t.Policy()
	var out []uint64
	if slices.Contains(p.Global, role) {
		out = append(out, 0)
	}
	if slices.Contains(p.Sibling, role) {
		out = append(out, siblings...)
	}
	return out
}

// ApplicableRoles returns every role the contract type accepts, global first
func (t ContractType) ApplicableRoles() []Role {
	p := t.Policy()
	roles := slices.Clone(p.Global)
	for _, r := range p.Sibling {
		if !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	return roles
}

// RoleRequest is one declarative reconciliation request: the roles each
// listed user should hold on one contract type across a set of chains.
type RoleRequest struct {
	Contract   string
	Chains     []uint64
	Siblings   []uint64
	Exhaustive bool
	Users      []UserRoles
}

// UserRoles lists the roles one account should hold
type UserRoles struct {
	Address string
	Roles   []string
}
