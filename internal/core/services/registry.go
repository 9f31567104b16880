package services

import (
	"fmt"

	"github.com/example/mediadb/internal/core/errs"
)

// RegistryPlan is the diff between the stored registry and a requested one.
type RegistryPlan struct {
	Added       []Service
	Reactivated []Service
	Updated     []Service
	Removed     []Service
}

// IsEmpty reports whether applying the plan changes nothing.
func (p RegistryPlan) IsEmpty() bool {
	return len(p.Added) == 0 && len(p.Reactivated) == 0 && len(p.Updated) == 0 && len(p.Removed) == 0
}

// PlanRegistryWrite diffs a full replacement list against the stored registry.
// active holds the currently enabled services, inactive the soft-disabled ones.
// Rules:
//   - keys in the new list are unique and non-empty
//   - a key keeps its type for its whole life, even across disable/enable
//   - built-in services cannot be removed
func PlanRegistryWrite(active, inactive, next []Service) (RegistryPlan, error) {
	var plan RegistryPlan

	activeByKey := make(map[Key]Service, len(active))
	for _, s := range active {
		activeByKey[s.Key] = s
	}
	inactiveByKey := make(map[Key]Service, len(inactive))
	for _, s := range inactive {
		inactiveByKey[s.Key] = s
	}

	seen := make(map[Key]bool, len(next))
	for _, s := range next {
		if s.Key == "" {
			return RegistryPlan{}, fmt.Errorf("%w: service %q has an empty key", errs.ErrInvalidContent, s.Name)
		}
		if seen[s.Key] {
			return RegistryPlan{}, fmt.Errorf("%w: duplicate service key %s", errs.ErrConflict, s.Key)
		}
		seen[s.Key] = true

		if s.Name == "" {
			return RegistryPlan{}, fmt.Errorf("%w: service %s has an empty name", errs.ErrInvalidContent, s.Key)
		}

		if old, ok := activeByKey[s.Key]; ok {
			if old.Type != s.Type {
				return RegistryPlan{}, fmt.Errorf("%w: service %s cannot change type from %s to %s", errs.ErrConflict, s.Key, old.Type, s.Type)
			}
			if old.Name != s.Name || !old.Options.Equal(s.Options) {
				plan.Updated = append(plan.Updated, s)
			}
			continue
		}
		if old, ok := inactiveByKey[s.Key]; ok {
			if old.Type != s.Type {
				return RegistryPlan{}, fmt.Errorf("%w: disabled service %s has type %s, not %s", errs.ErrConflict, s.Key, old.Type, s.Type)
			}
			plan.Reactivated = append(plan.Reactivated, s)
			continue
		}
		plan.Added = append(plan.Added, s)
	}

	for _, s := range active {
		if seen[s.Key] {
			continue
		}
		if s.Type.IsBuiltIn() {
			return RegistryPlan{}, fmt.Errorf("%w: built-in service %s (%s) cannot be removed", errs.ErrConflict, s.Name, s.Key)
		}
		plan.Removed = append(plan.Removed, s)
	}

	return plan, nil
}
