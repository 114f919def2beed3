package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_HappyPath(t *testing.T) {
	path := []string{StatusDraft, StatusInProgress, StatusChecking, StatusApproved, StatusSent, StatusAgreed}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}
}

func TestCanTransition_RejectedReopensToDraft(t *testing.T) {
	assert.True(t, CanTransition(StatusChecking, StatusRejected))
	assert.True(t, CanTransition(StatusSent, StatusRejected))
	assert.True(t, CanTransition(StatusRejected, StatusDraft))
}

func TestCanTransition_AgreedIsTerminal(t *testing.T) {
	for _, to := range []string{StatusDraft, StatusInProgress, StatusChecking, StatusApproved, StatusSent, StatusRejected} {
		assert.False(t, CanTransition(StatusAgreed, to), "agreed -> %s must be blocked", to)
	}
}

func TestCanTransition_NoSkipping(t *testing.T) {
	assert.False(t, CanTransition(StatusDraft, StatusApproved))
	assert.False(t, CanTransition(StatusDraft, StatusSent))
	assert.False(t, CanTransition(StatusInProgress, StatusApproved))
	assert.False(t, CanTransition(StatusApproved, StatusAgreed))
	// no self-transitions either
	assert.False(t, CanTransition(StatusDraft, StatusDraft))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusDraft))
	assert.True(t, ValidStatus(StatusAgreed))
	assert.False(t, ValidStatus("archived"))
	assert.False(t, ValidStatus(""))
}
