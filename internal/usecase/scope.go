package usecase

import (
	"slices"

	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
)

// FilterAssignments returns the assignments that pass every restricted
// dimension of the scope. The sibling dimension only applies to
// sibling-scoped role instances; global instances have no sibling to match.
func FilterAssignments(assignments []models.RoleAssignment, scope domain.RoleScope) []models.RoleAssignment {
	if scope.IsEmpty() {
		return slices.Clone(assignments)
	}
	return lo.Filter(assignments, func(a models.RoleAssignment, _ int) bool {
		return InScope(a.Key(), scope)
	})
}

// InScope reports whether a single tuple passes the scope
func InScope(key models.RoleKey, scope domain.RoleScope) bool {
	if len(scope.Chains) > 0 && !slices.Contains(scope.Chains, key.ChainID) {
		return false
	}
	if len(scope.Siblings) > 0 && key.Sibling != 0 && !slices.Contains(scope.Siblings, key.Sibling) {
		return false
	}
	if len(scope.Contracts) > 0 && !slices.Contains(scope.Contracts, key.Contract) {
		return false
	}
	if len(scope.Roles) > 0 && !slices.Contains(scope.Roles, key.Role) {
		return false
	}
	if len(scope.Accounts) > 0 && !slices.Contains(scope.Accounts, key.Account) {
		return false
	}
	return true
}
