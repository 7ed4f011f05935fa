package assignment

import (
	"context"
	"fmt"
	"math/rand/v2"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"
)

// Resolver picks an assignee uniformly at random among users for which
// MightBeAssignedToTask holds. It keeps no state between calls; the eligible
// pool is read fresh each time and the random source is goroutine-safe.
type Resolver struct {
	users ports.UserRepository
	pick  func(n int) int
}

func NewResolver(users ports.UserRepository) *Resolver {
	return &Resolver{users: users, pick: rand.IntN}
}

// NewResolverWithPicker lets callers fix the choice, e.g. in tests. pick must
// return a value in [0, n) and be safe for concurrent use.
func NewResolverWithPicker(users ports.UserRepository, pick func(n int) int) *Resolver {
	return &Resolver{users: users, pick: pick}
}

func (r *Resolver) Resolve(ctx context.Context) (*domain.User, error) {
	users, err := r.users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assignee pool: %w", err)
	}

	eligible := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.MightBeAssignedToTask() {
			eligible = append(eligible, u)
		}
	}
	if len(eligible) == 0 {
		return nil, domain.ErrNoEligibleAssignee
	}

	chosen := eligible[r.pick(len(eligible))]
	return &chosen, nil
}
