package memory

import (
	"github.com/easeaico/sophos/internal/prompt"
	"github.com/easeaico/sophos/internal/types"
)

// StyleDirective derives a tone instruction from all feedback so far.
// It returns "" when neither signal leads by more than margin.
func StyleDirective(feedback []types.FeedbackEntry, margin int) string {
	var approvals, disapprovals int
	for _, f := range feedback {
		switch f.Signal {
		case types.SignalApprove:
			approvals++
		case types.SignalDisapprove:
			disapprovals++
		}
	}
	switch {
	case approvals > disapprovals+margin:
		return prompt.ConciseDirective
	case disapprovals > approvals+margin:
		return prompt.DidacticDirective
	default:
		return ""
	}
}
