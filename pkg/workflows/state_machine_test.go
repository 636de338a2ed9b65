package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemTransitions(t *testing.T) {
	sm := NewReportStateMachine()

	assert.True(t, sm.CanTransition("draft", "pending", ActorSystem))
	assert.True(t, sm.CanTransition("draft", "flagged", ActorSystem))

	// Automatic logic never verifies, rejects, or reopens anything.
	assert.False(t, sm.CanTransition("pending", "verified", ActorSystem))
	assert.False(t, sm.CanTransition("flagged", "rejected", ActorSystem))
	assert.False(t, sm.CanTransition("verified", "pending", ActorSystem))
	assert.False(t, sm.CanTransition("draft", "verified", ActorSystem))
}

func TestModeratorTransitions(t *testing.T) {
	sm := NewReportStateMachine()

	assert.True(t, sm.CanTransition("pending", "verified", ActorModerator))
	assert.True(t, sm.CanTransition("pending", "rejected", ActorModerator))
	assert.True(t, sm.CanTransition("flagged", "verified", ActorModerator))
	assert.True(t, sm.CanTransition("flagged", "rejected", ActorModerator))
	assert.True(t, sm.CanTransition("flagged", "pending", ActorModerator))

	// Terminal states stay terminal regardless of actor.
	assert.False(t, sm.CanTransition("verified", "pending", ActorModerator))
	assert.False(t, sm.CanTransition("rejected", "pending", ActorModerator))
	assert.False(t, sm.CanTransition("rejected", "verified", ActorModerator))

	// Moderators do not create reports out of drafts.
	assert.False(t, sm.CanTransition("draft", "pending", ActorModerator))
}

func TestIsTerminal(t *testing.T) {
	sm := NewReportStateMachine()

	assert.True(t, sm.IsTerminal("verified"))
	assert.True(t, sm.IsTerminal("rejected"))
	assert.False(t, sm.IsTerminal("pending"))
	assert.False(t, sm.IsTerminal("flagged"))
	assert.False(t, sm.IsTerminal("draft"))
}

func TestGetAllowedTransitions(t *testing.T) {
	sm := NewReportStateMachine()

	assert.ElementsMatch(t, []string{"pending", "flagged"}, sm.GetAllowedTransitions("draft", ActorSystem))
	assert.ElementsMatch(t, []string{"verified", "rejected", "pending"}, sm.GetAllowedTransitions("flagged", ActorModerator))
	assert.Empty(t, sm.GetAllowedTransitions("verified", ActorModerator))
	assert.Empty(t, sm.GetAllowedTransitions("unknown", ActorSystem))
}
