package blocking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesara/purple/internal/models"
)

func factsWithRole(role models.Role) *DocumentFacts {
	return &DocumentFacts{ID: 1, ActiveRoles: []models.Role{role}}
}

func TestEvaluateNoMatchingGate(t *testing.T) {
	// Nothing in flight means nothing blocks, whatever else is true of
	// the document.
	f := &DocumentFacts{
		ID:                 1,
		Labels:             []string{models.LabelStreamHold, models.LabelIANAHold},
		ActionHolderActive: true,
	}
	assert.True(t, Evaluate(f).Empty())
}

func TestEvaluateFirstGateWins(t *testing.T) {
	// Both the formatting and publish role sets match; only the
	// formatting gate runs, so the Tools Issue label is invisible.
	f := &DocumentFacts{
		ID:          1,
		ActiveRoles: []models.Role{models.RoleFormatting, models.RolePublisher},
		Labels:      []string{models.LabelToolsIssue, models.LabelExtRefHold},
	}
	reasons := Evaluate(f)
	assert.True(t, reasons.Has(models.ReasonLabelExtRefHold))
	assert.False(t, reasons.Has(models.ReasonToolsIssue))
}

func TestEvaluateEmptySetStillDecides(t *testing.T) {
	// A matching gate with no conditions returns an empty set, which
	// means "not blocked", and later gates are not consulted.
	f := &DocumentFacts{
		ID:          1,
		ActiveRoles: []models.Role{models.RoleFirstEditor},
		Labels:      []string{models.LabelIANAHold}, // only gates 3 and 5 care
	}
	assert.True(t, Evaluate(f).Empty())
}

func TestEvaluatePendingRoleSelectsGate(t *testing.T) {
	// A pending assignment selects the gate just like an active one
	f := &DocumentFacts{
		ID:           1,
		PendingRoles: []models.Role{models.RoleSecondEditor},
		Labels:       []string{models.LabelIANAHold},
	}
	reasons := Evaluate(f)
	assert.True(t, reasons.Has(models.ReasonLabelIANAHold))
}

func TestFormattingGate(t *testing.T) {
	tests := []struct {
		name  string
		facts *DocumentFacts
		want  []models.BlockingReason
	}{
		{
			name:  "clean document",
			facts: factsWithRole(models.RoleRefChecker),
			want:  nil,
		},
		{
			name: "action holder",
			facts: &DocumentFacts{
				ActiveRoles:        []models.Role{models.RoleFormatting},
				ActionHolderActive: true,
			},
			want: []models.BlockingReason{models.ReasonActionHolderActive},
		},
		{
			name: "all labels",
			facts: &DocumentFacts{
				ActiveRoles: []models.Role{models.RoleRefChecker},
				Labels: []string{
					models.LabelStreamHold,
					models.LabelExtRefHold,
					models.LabelAuthorInputRequired,
					models.LabelIANAHold, // not a gate 1 condition
				},
			},
			want: []models.BlockingReason{
				models.ReasonLabelAuthorInputRequired,
				models.ReasonLabelExtRefHold,
				models.ReasonLabelStreamHold,
			},
		},
		{
			name: "not received first tier only",
			facts: &DocumentFacts{
				ActiveRoles: []models.Role{models.RoleRefChecker},
				References: []Reference{
					{Relationship: models.RelNotReceived},
					{Relationship: models.RelNotReceived2G},
					{Relationship: models.RelNotReceived3G},
				},
			},
			want: []models.BlockingReason{models.ReasonReferenceNotReceived},
		},
		{
			name: "not received second tier when first absent",
			facts: &DocumentFacts{
				ActiveRoles: []models.Role{models.RoleFormatting},
				References: []Reference{
					{Relationship: models.RelNotReceived3G},
					{Relationship: models.RelNotReceived2G},
				},
			},
			want: []models.BlockingReason{models.ReasonReferenceNotReceived2G},
		},
		{
			name: "not received third tier alone",
			facts: &DocumentFacts{
				ActiveRoles: []models.Role{models.RoleFormatting},
				References: []Reference{
					{Relationship: models.RelNotReceived3G},
				},
			},
			want: []models.BlockingReason{models.ReasonReferenceNotReceived3G},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toSlice(Evaluate(tt.facts)))
		})
	}
}

func TestFirstEditGate(t *testing.T) {
	f := &DocumentFacts{
		ActiveRoles:        []models.Role{models.RoleFirstEditor},
		ActionHolderActive: true,
		Labels: []string{
			models.LabelStreamHold,
			models.LabelAuthorInputRequired,
			models.LabelExtRefHold, // gate 1 condition, not gate 2
		},
	}
	reasons := Evaluate(f)
	assert.ElementsMatch(t, []models.BlockingReason{
		models.ReasonActionHolderActive,
		models.ReasonLabelStreamHold,
		models.ReasonLabelAuthorInputRequired,
	}, toSlice(reasons))
}

func TestSecondEditGate(t *testing.T) {
	t.Run("labels and action holder", func(t *testing.T) {
		f := &DocumentFacts{
			ActiveRoles:        []models.Role{models.RoleSecondEditor},
			ActionHolderActive: true,
			Labels:             []string{models.LabelIANAHold},
		}
		reasons := Evaluate(f)
		assert.ElementsMatch(t, []models.BlockingReason{
			models.ReasonActionHolderActive,
			models.ReasonLabelIANAHold,
		}, toSlice(reasons))
	})

	t.Run("reference first edit incomplete deduplicates", func(t *testing.T) {
		f := &DocumentFacts{
			ActiveRoles: []models.Role{models.RoleSecondEditor},
			References: []Reference{
				{Relationship: models.RelRefQueue, Target: &TargetFacts{
					IncompleteRoles: []models.Role{models.RoleFirstEditor},
				}},
				{Relationship: models.RelRefQueue, Target: &TargetFacts{
					IncompleteRoles: []models.Role{models.RoleFirstEditor, models.RoleSecondEditor},
				}},
			},
		}
		reasons := Evaluate(f)
		require.Len(t, reasons, 1)
		assert.True(t, reasons.Has(models.ReasonRefqueueFirstEditIncomplete))
	})

	t.Run("reference past first edit does not block", func(t *testing.T) {
		f := &DocumentFacts{
			ActiveRoles: []models.Role{models.RoleSecondEditor},
			References: []Reference{
				{Relationship: models.RelRefQueue, Target: &TargetFacts{
					IncompleteRoles: []models.Role{models.RoleSecondEditor, models.RolePublisher},
				}},
			},
		}
		assert.True(t, Evaluate(f).Empty())
	})
}

func TestFinalReviewGate(t *testing.T) {
	f := &DocumentFacts{
		ActiveRoles:        []models.Role{models.RoleFinalReviewEditor},
		ActionHolderActive: true,
		Labels:             []string{models.LabelStreamHold},
		References: []Reference{
			{Relationship: models.RelRefQueue, Target: &TargetFacts{
				IncompleteRoles: []models.Role{models.RoleSecondEditor},
			}},
		},
	}
	reasons := Evaluate(f)
	assert.ElementsMatch(t, []models.BlockingReason{
		models.ReasonRefqueueSecondEditIncomplete,
		models.ReasonLabelStreamHold,
		models.ReasonActionHolderActive,
	}, toSlice(reasons))
}

func TestPublishGate(t *testing.T) {
	t.Run("labels and final approval", func(t *testing.T) {
		f := &DocumentFacts{
			ActiveRoles:          []models.Role{models.RolePublisher},
			Labels:               []string{models.LabelStreamHold, models.LabelIANAHold, models.LabelToolsIssue},
			FinalApprovalPending: true,
		}
		reasons := Evaluate(f)
		assert.ElementsMatch(t, []models.BlockingReason{
			models.ReasonLabelStreamHold,
			models.ReasonLabelIANAHold,
			models.ReasonToolsIssue,
			models.ReasonFinalApprovalPending,
		}, toSlice(reasons))
	})

	t.Run("reference without publisher progress blocks", func(t *testing.T) {
		f := &DocumentFacts{
			ActiveRoles: []models.Role{models.RolePublisher},
			References: []Reference{
				{Relationship: models.RelRefQueue, Target: &TargetFacts{PublisherDoneOrActive: false}},
			},
		}
		assert.True(t, Evaluate(f).Has(models.ReasonRefqueuePublishIncomplete))
	})

	t.Run("unresolved draft reference blocks", func(t *testing.T) {
		// A refqueue edge pointing at a draft that never became a queue
		// document has no target facts at all.
		f := &DocumentFacts{
			ActiveRoles: []models.Role{models.RolePublisher},
			References: []Reference{
				{Relationship: models.RelRefQueue, Target: nil},
			},
		}
		assert.True(t, Evaluate(f).Has(models.ReasonRefqueuePublishIncomplete))
	})

	t.Run("reference ready to publish does not block", func(t *testing.T) {
		f := &DocumentFacts{
			ActiveRoles: []models.Role{models.RolePublisher},
			References: []Reference{
				{Relationship: models.RelRefQueue, Target: &TargetFacts{PublisherDoneOrActive: true}},
			},
		}
		assert.True(t, Evaluate(f).Empty())
	})
}

func TestReasonSetSliceIsSorted(t *testing.T) {
	s := NewReasonSet(
		models.ReasonToolsIssue,
		models.ReasonActionHolderActive,
		models.ReasonLabelStreamHold,
	)
	assert.Equal(t, []models.BlockingReason{
		models.ReasonActionHolderActive,
		models.ReasonLabelStreamHold,
		models.ReasonToolsIssue,
	}, s.Slice())
}

func toSlice(s ReasonSet) []models.BlockingReason {
	if s.Empty() {
		return nil
	}
	return s.Slice()
}
