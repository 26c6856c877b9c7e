package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Plan is a billing plan as seen by the engine: a storage quota with an
// optional expiry. Everything else about billing lives outside.
type Plan struct {
	ID         string
	Name       string
	QuotaBytes int64

	// ExpiresAt is when the owner's entitlement ends. Nil means open-ended.
	ExpiresAt *time.Time
}

// Active reports whether the plan grants its quota at instant now.
func (p *Plan) Active(now time.Time) bool {
	if p == nil {
		return false
	}
	return p.ExpiresAt == nil || now.Before(*p.ExpiresAt)
}

// PlanProvider looks up an owner's current plan. A nil plan with a nil
// error means the owner is on the free tier.
type PlanProvider interface {
	CurrentPlan(ctx context.Context, owner uuid.UUID) (*Plan, error)
}

// Assignment binds an owner to a plan until ExpiresAt (nil = open-ended).
type Assignment struct {
	PlanID    string
	ExpiresAt *time.Time
}

// StaticPlans is a PlanProvider backed by a fixed catalogue and a mutable
// owner → plan table. It serves the CLI and tests.
type StaticPlans struct {
	mu          sync.RWMutex
	plans       map[string]Plan
	assignments map[uuid.UUID]Assignment
}

// NewStaticPlans builds a provider. Every assignment must reference a plan
// in the catalogue.
func NewStaticPlans(plans []Plan, assignments map[uuid.UUID]Assignment) (*StaticPlans, error) {
	s := &StaticPlans{
		plans:       make(map[string]Plan, len(plans)),
		assignments: make(map[uuid.UUID]Assignment, len(assignments)),
	}
	for _, p := range plans {
		if _, dup := s.plans[p.ID]; dup {
			return nil, fmt.Errorf("duplicate plan id %q", p.ID)
		}
		s.plans[p.ID] = p
	}
	for owner, a := range assignments {
		if err := s.Assign(owner, a); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Assign sets or replaces the owner's plan.
func (s *StaticPlans) Assign(owner uuid.UUID, a Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[a.PlanID]; !ok {
		return fmt.Errorf("unknown plan %q", a.PlanID)
	}
	s.assignments[owner] = a
	return nil
}

// Unassign moves the owner back to the free tier.
func (s *StaticPlans) Unassign(owner uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, owner)
}

func (s *StaticPlans) CurrentPlan(ctx context.Context, owner uuid.UUID) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[owner]
	if !ok {
		return nil, nil
	}
	plan := s.plans[a.PlanID]
	plan.ExpiresAt = a.ExpiresAt
	return &plan, nil
}
