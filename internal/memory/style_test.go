package memory

import (
	"testing"

	"github.com/easeaico/sophos/internal/prompt"
	"github.com/easeaico/sophos/internal/types"
)

func feedback(approvals, disapprovals int) []types.FeedbackEntry {
	var out []types.FeedbackEntry
	for i := 0; i < approvals; i++ {
		out = append(out, types.FeedbackEntry{Signal: types.SignalApprove})
	}
	for i := 0; i < disapprovals; i++ {
		out = append(out, types.FeedbackEntry{Signal: types.SignalDisapprove})
	}
	return out
}

func TestStyleDirectiveThresholds(t *testing.T) {
	cases := []struct {
		name         string
		approvals    int
		disapprovals int
		want         string
	}{
		{"no feedback", 0, 0, ""},
		{"approvals at margin", 5, 0, ""},
		{"approvals over margin", 6, 0, prompt.ConciseDirective},
		{"relative lead", 9, 3, prompt.ConciseDirective},
		{"disapprovals at margin", 2, 7, ""},
		{"disapprovals over margin", 2, 8, prompt.DidacticDirective},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StyleDirective(feedback(tc.approvals, tc.disapprovals), 5); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
