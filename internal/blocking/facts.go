package blocking

import (
	"sort"

	"github.com/kesara/purple/internal/models"
)

// TargetFacts describes the referenced document of a refqueue edge as
// far as gating needs to know about it.
type TargetFacts struct {
	// Roles whose editorial activity on the target is not yet complete
	IncompleteRoles []models.Role
	// True when the target has a publisher assignment that is active
	// or done, meaning the target is ready for publication.
	PublisherDoneOrActive bool
}

// HasIncomplete reports whether the given role's activity on the target
// is still incomplete.
func (t *TargetFacts) HasIncomplete(role models.Role) bool {
	if t == nil {
		return false
	}
	for _, r := range t.IncompleteRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Reference is one typed edge from the document under evaluation.
// Target is populated only for refqueue references; the not-received
// tiers point at drafts that never entered the queue.
type Reference struct {
	Relationship models.Relationship
	Target       *TargetFacts
}

// DocumentFacts is the snapshot of a document the evaluator works on.
// The reconciler assembles it inside the document's row lock so the
// facts are consistent with the mutation that follows.
type DocumentFacts struct {
	ID                   int64
	Labels               []string
	ActiveRoles          []models.Role
	PendingRoles         []models.Role
	ActionHolderActive   bool
	FinalApprovalPending bool
	References           []Reference
}

// HasLabel reports whether the document carries the label slug
func (f *DocumentFacts) HasLabel(slug string) bool {
	for _, l := range f.Labels {
		if l == slug {
			return true
		}
	}
	return false
}

// matchesRoles reports whether any of roles is active or pending on the
// document. This is the gate-selection predicate.
func (f *DocumentFacts) matchesRoles(roles []models.Role) bool {
	for _, want := range roles {
		for _, r := range f.ActiveRoles {
			if r == want {
				return true
			}
		}
		for _, r := range f.PendingRoles {
			if r == want {
				return true
			}
		}
	}
	return false
}

// refqueueRefs returns the refqueue references of the document
func (f *DocumentFacts) refqueueRefs() []Reference {
	var refs []Reference
	for _, ref := range f.References {
		if ref.Relationship == models.RelRefQueue {
			refs = append(refs, ref)
		}
	}
	return refs
}

// hasRelationship reports whether any reference has the relationship
func (f *DocumentFacts) hasRelationship(rel models.Relationship) bool {
	for _, ref := range f.References {
		if ref.Relationship == rel {
			return true
		}
	}
	return false
}

// ReasonSet is an unordered set of blocking reasons
type ReasonSet map[models.BlockingReason]struct{}

// NewReasonSet builds a set from the given reasons
func NewReasonSet(reasons ...models.BlockingReason) ReasonSet {
	s := make(ReasonSet, len(reasons))
	for _, r := range reasons {
		s.Add(r)
	}
	return s
}

// Add inserts a reason; duplicates collapse
func (s ReasonSet) Add(r models.BlockingReason) {
	s[r] = struct{}{}
}

// Has reports membership
func (s ReasonSet) Has(r models.BlockingReason) bool {
	_, ok := s[r]
	return ok
}

// Empty reports whether no reasons are present
func (s ReasonSet) Empty() bool {
	return len(s) == 0
}

// Slice returns the reasons in deterministic slug order
func (s ReasonSet) Slice() []models.BlockingReason {
	out := make([]models.BlockingReason, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the reason slugs in deterministic order
func (s ReasonSet) Strings() []string {
	reasons := s.Slice()
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
