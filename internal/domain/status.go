package domain

// Document statuses
const (
	StatusDraft      = "draft"
	StatusInProgress = "in_progress"
	StatusChecking   = "checking"
	StatusApproved   = "approved"
	StatusSent       = "sent"
	StatusAgreed     = "agreed"
	StatusRejected   = "rejected"
)

// statusTransitions is the allowed transition table. agreed is terminal;
// rejected can only be reopened to draft.
var statusTransitions = map[string][]string{
	StatusDraft:      {StatusInProgress},
	StatusInProgress: {StatusChecking},
	StatusChecking:   {StatusApproved, StatusRejected},
	StatusApproved:   {StatusSent},
	StatusSent:       {StatusAgreed, StatusRejected},
	StatusRejected:   {StatusDraft},
	StatusAgreed:     {},
}

// ValidStatus reports whether s names a known status.
func ValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether a document may move from one status to
// another. The client historically offered every status in a plain select;
// the server validates regardless.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
