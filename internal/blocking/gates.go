package blocking

import (
	"github.com/kesara/purple/internal/models"
)

// gate pairs an editorial stage's role set with the computation that
// accumulates its blocking reasons.
type gate struct {
	name  string
	roles []models.Role
	eval  func(f *DocumentFacts, reasons ReasonSet)
}

// gates is the ordered cascade. Order matters: the first matching gate
// wins and later gates are never consulted.
var gates = []gate{
	{
		name:  "formatting_and_ref_check",
		roles: []models.Role{models.RoleRefChecker, models.RoleFormatting},
		eval:  evalFormattingGate,
	},
	{
		name:  "first_edit",
		roles: []models.Role{models.RoleFirstEditor},
		eval:  evalFirstEditGate,
	},
	{
		name:  "second_edit",
		roles: []models.Role{models.RoleSecondEditor},
		eval:  evalSecondEditGate,
	},
	{
		name:  "final_review",
		roles: []models.Role{models.RoleFinalReviewEditor},
		eval:  evalFinalReviewGate,
	},
	{
		name:  "publish",
		roles: []models.Role{models.RolePublisher},
		eval:  evalPublishGate,
	},
}

// Evaluate computes the document's active blocking reasons. Only the
// first gate whose role set has an active or pending assignment is
// evaluated; its reason set is returned even when empty. No matching
// gate means nothing is in flight, so nothing blocks.
func Evaluate(f *DocumentFacts) ReasonSet {
	reasons := make(ReasonSet)
	for _, g := range gates {
		if f.matchesRoles(g.roles) {
			g.eval(f, reasons)
			return reasons
		}
	}
	return reasons
}

// Gate 1: blocks formatting / reference checks
func evalFormattingGate(f *DocumentFacts, reasons ReasonSet) {
	if f.ActionHolderActive {
		reasons.Add(models.ReasonActionHolderActive)
	}
	if f.HasLabel(models.LabelStreamHold) {
		reasons.Add(models.ReasonLabelStreamHold)
	}
	if f.HasLabel(models.LabelExtRefHold) {
		reasons.Add(models.ReasonLabelExtRefHold)
	}
	if f.HasLabel(models.LabelAuthorInputRequired) {
		reasons.Add(models.ReasonLabelAuthorInputRequired)
	}
	// Not-received references escalate through three tiers; only the
	// first tier present is reported.
	switch {
	case f.hasRelationship(models.RelNotReceived):
		reasons.Add(models.ReasonReferenceNotReceived)
	case f.hasRelationship(models.RelNotReceived2G):
		reasons.Add(models.ReasonReferenceNotReceived2G)
	case f.hasRelationship(models.RelNotReceived3G):
		reasons.Add(models.ReasonReferenceNotReceived3G)
	}
}

// Gate 2: blocks first edit
func evalFirstEditGate(f *DocumentFacts, reasons ReasonSet) {
	if f.ActionHolderActive {
		reasons.Add(models.ReasonActionHolderActive)
	}
	if f.HasLabel(models.LabelStreamHold) {
		reasons.Add(models.ReasonLabelStreamHold)
	}
	if f.HasLabel(models.LabelAuthorInputRequired) {
		reasons.Add(models.ReasonLabelAuthorInputRequired)
	}
}

// Gate 3: blocks second edit
func evalSecondEditGate(f *DocumentFacts, reasons ReasonSet) {
	if f.ActionHolderActive {
		reasons.Add(models.ReasonActionHolderActive)
	}
	if f.HasLabel(models.LabelStreamHold) {
		reasons.Add(models.ReasonLabelStreamHold)
	}
	if f.HasLabel(models.LabelIANAHold) {
		reasons.Add(models.ReasonLabelIANAHold)
	}
	// A normatively referenced queue document that has not finished
	// first edit blocks this document's second edit. All references are
	// checked; the set deduplicates.
	for _, ref := range f.refqueueRefs() {
		if ref.Target.HasIncomplete(models.RoleFirstEditor) {
			reasons.Add(models.ReasonRefqueueFirstEditIncomplete)
		}
	}
}

// Gate 4: blocks final review
func evalFinalReviewGate(f *DocumentFacts, reasons ReasonSet) {
	for _, ref := range f.refqueueRefs() {
		if ref.Target.HasIncomplete(models.RoleSecondEditor) {
			reasons.Add(models.ReasonRefqueueSecondEditIncomplete)
		}
	}
	if f.HasLabel(models.LabelStreamHold) {
		reasons.Add(models.ReasonLabelStreamHold)
	}
	if f.ActionHolderActive {
		reasons.Add(models.ReasonActionHolderActive)
	}
}

// Gate 5: blocks publishing
func evalPublishGate(f *DocumentFacts, reasons ReasonSet) {
	if f.HasLabel(models.LabelStreamHold) {
		reasons.Add(models.ReasonLabelStreamHold)
	}
	if f.HasLabel(models.LabelIANAHold) {
		reasons.Add(models.ReasonLabelIANAHold)
	}
	if f.HasLabel(models.LabelToolsIssue) {
		reasons.Add(models.ReasonToolsIssue)
	}
	for _, ref := range f.refqueueRefs() {
		if ref.Target == nil || !ref.Target.PublisherDoneOrActive {
			reasons.Add(models.ReasonRefqueuePublishIncomplete)
		}
	}
	if f.FinalApprovalPending {
		reasons.Add(models.ReasonFinalApprovalPending)
	}
}
