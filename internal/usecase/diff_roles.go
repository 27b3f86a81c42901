package usecase

import (
	"slices"

	"github.com/trebuchet-org/treb-roles/internal/domain/models"
)

// DiffRoles compares desired assignments with observed role state and returns
// the mutations needed to reach the desired state.
//
// A mutation is emitted only when desired and held differ. Tuples without an
// observation count as not held. Duplicate desired tuples collapse to one.
// Grants come before revokes; each group is ordered by chain, contract, role,
// sibling and account so identical inputs give identical output.
func DiffRoles(desired []models.RoleAssignment, observed []models.RoleObservation) []models.Mutation {
	held := make(map[models.RoleKey]bool, len(observed))
	for _, o := range observed {
		held[o.Key] = o.Held
	}

	seen := make(map[models.RoleKey]bool, len(desired))
	var mutations []models.Mutation
	for _, a := range desired {
		key := a.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		if a.Desired == held[key] {
			continue
		}

		action := models.ActionRevoke
		if a.Desired {
			action = models.ActionGrant
		}
		mutations = append(mutations, models.Mutation{
			Contract: a.Contract,
			Role:     a.Role,
			Sibling:  a.Sibling,
			Account:  a.Account,
			Action:   action,
		})
	}

	SortMutations(mutations)
	return mutations
}

// SortMutations orders mutations grants first, then by tuple
func SortMutations(mutations []models.Mutation) {
	slices.SortStableFunc(mutations, func(a, b models.Mutation) int {
		if a.Action != b.Action {
			if a.Action == models.ActionGrant {
				return -1
			}
			return 1
		}
		if c := a.Key().Compare(b.Key()); c != 0 {
			return c
		}
		return a.Contract.Address.Cmp(b.Contract.Address)
	})
}
