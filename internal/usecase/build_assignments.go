package usecase

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
)

// AssignmentBuilder expands declarative role requests into normalized
// desired role assignments
type AssignmentBuilder struct {
	log *slog.Logger
}

// NewAssignmentBuilder creates a new AssignmentBuilder
func NewAssignmentBuilder(log *slog.Logger) *AssignmentBuilder {
	return &AssignmentBuilder{log: log}
}

type parsedRequest struct {
	field      string
	contract   domain.ContractType
	chains     []uint64
	siblings   []uint64
	exhaustive bool
	users      []parsedUser
}

type parsedUser struct {
	account common.Address
	roles   []domain.Role
}

// Validate checks contract names, roles and addresses of every request
// without expanding them. Chains are not inspected.
func (b *AssignmentBuilder) Validate(requests []domain.RoleRequest, newRoleStatus bool) error {
	_, err := b.parse(requests, newRoleStatus)
	return err
}

// Build expands the requests. Every listed role becomes an assignment with
// Desired = newRoleStatus, once per chain and once per applicable sibling.
// For exhaustive requests every other applicable role of every mentioned user
// is asserted not held. Users that are not mentioned are never touched.
//
// The contract address of the returned assignments is left zero; it is bound
// by the caller after address resolution.
func (b *AssignmentBuilder) Build(requests []domain.RoleRequest, newRoleStatus bool) ([]models.RoleAssignment, error) {
	parsed, err := b.parse(requests, newRoleStatus)
	if err != nil {
		return nil, err
	}

	var (
		result  *multierror.Error
		order   []models.RoleKey
		desired = make(map[models.RoleKey]models.RoleAssignment)
	)

	add := func(field string, a models.RoleAssignment) {
		key := a.Key()
		existing, ok := desired[key]
		if !ok {
			desired[key] = a
			order = append(order, key)
			return
		}
		if existing.Desired != a.Desired {
			result = multierror.Append(result, &domain.ConfigError{
				Field:  field,
				Reason: fmt.Sprintf("conflicting desired state for %s", key),
			})
		}
	}

	for _, req := range parsed {
		for _, chainID := range req.chains {
			contract := models.ContractRef{ChainID: chainID, Type: req.contract}
			for _, user := range req.users {
				for _, role := range user.roles {
					for _, sibling := range req.contract.Instances(role, req.siblings) {
						add(req.field, models.RoleAssignment{
							Contract: contract,
							Role:     role,
							Sibling:  sibling,
							Account:  user.account,
							Desired:  newRoleStatus,
						})
					}
				}

				if !req.exhaustive {
					continue
				}
				for _, role := range req.contract.ApplicableRoles() {
					if slices.Contains(user.roles, role) {
						continue
					}
					for _, sibling := range req.contract.Instances(role, req.siblings) {
						add(req.field, models.RoleAssignment{
							Contract: contract,
							Role:     role,
							Sibling:  sibling,
							Account:  user.account,
							Desired:  false,
						})
					}
				}
			}
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	assignments := make([]models.RoleAssignment, 0, len(order))
	for _, key := range order {
		assignments = append(assignments, desired[key])
	}

	b.log.Debug("built role assignments", "requests", len(parsed), "assignments", len(assignments))

	return assignments, nil
}

// parse validates every request and collects all problems before failing
func (b *AssignmentBuilder) parse(requests []domain.RoleRequest, newRoleStatus bool) ([]parsedRequest, error) {
	var result *multierror.Error
	parsed := make([]parsedRequest, 0, len(requests))

	for i, req := range requests {
		field := fmt.Sprintf("grant[%d]", i)
		pr := parsedRequest{
			field:      field,
			chains:     req.Chains,
			siblings:   req.Siblings,
			exhaustive: req.Exhaustive,
		}

		contract, ok := domain.LookupContractType(req.Contract)
		if !ok {
			result = multierror.Append(result, &domain.ConfigError{
				Field:  field,
				Reason: unknownContractReason(req.Contract),
			})
			continue
		}
		pr.contract = contract

		if req.Exhaustive && !newRoleStatus {
			result = multierror.Append(result, &domain.ConfigError{
				Field:  field,
				Reason: "exhaustive requests require new_role_status = true",
			})
		}

		// Entries for the same address are merged so exhaustive requests
		// see the full role list of each user.
		index := make(map[common.Address]int)
		for j, user := range req.Users {
			userField := fmt.Sprintf("%s.users[%d]", field, j)
			if !common.IsHexAddress(user.Address) {
				result = multierror.Append(result, &domain.ConfigError{
					Field:  userField,
					Reason: fmt.Sprintf("malformed address %q", user.Address),
					Err:    domain.ErrInvalidAddress,
				})
				continue
			}
			account := common.HexToAddress(user.Address)
			if account == (common.Address{}) {
				result = multierror.Append(result, &domain.ConfigError{
					Field:  userField,
					Reason: "zero address",
					Err:    domain.ErrInvalidAddress,
				})
				continue
			}
			if len(user.Roles) == 0 {
				result = multierror.Append(result, &domain.ConfigError{Field: userField, Reason: "no roles listed"})
				continue
			}

			var roles []domain.Role
			for _, name := range user.Roles {
				role, err := domain.ParseRole(name)
				if err != nil {
					result = multierror.Append(result, &domain.ConfigError{Field: userField, Err: err})
					continue
				}
				if !contract.Accepts(role) {
					result = multierror.Append(result, &domain.ConfigError{
						Field:  userField,
						Reason: fmt.Sprintf("%s is not applicable to %s", role, contract),
					})
					continue
				}
				if len(contract.Instances(role, req.Siblings)) == 0 {
					result = multierror.Append(result, &domain.ConfigError{
						Field:  userField,
						Reason: fmt.Sprintf("%s on %s is scoped to sibling chains and no siblings are set", role, contract),
					})
					continue
				}
				roles = append(roles, role)
			}

			if pos, seen := index[account]; seen {
				for _, r := range roles {
					if !slices.Contains(pr.users[pos].roles, r) {
						pr.users[pos].roles = append(pr.users[pos].roles, r)
					}
				}
				continue
			}
			index[account] = len(pr.users)
			pr.users = append(pr.users, parsedUser{account: account, roles: lo.Uniq(roles)})
		}

		parsed = append(parsed, pr)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return parsed, nil
}

// unknownContractReason builds the error message for an unknown contract,
// suggesting the closest supported name
func unknownContractReason(name string) string {
	names := domain.ContractTypeNames()
	reason := fmt.Sprintf("unknown contract %q", name)
	if matches := fuzzy.Find(name, names); len(matches) > 0 {
		return fmt.Sprintf("%s, did you mean %q?", reason, matches[0].Str)
	}
	return fmt.Sprintf("%s (supported: %s)", reason, strings.Join(names, ", "))
}
