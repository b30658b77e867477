package ir

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReactionKey_Order(t *testing.T) {
	keys := []ReactionKey{
		{Level: 1, ID: GlobalReactionID{Reactor: 0, Local: 0}},
		{Level: 0, ID: GlobalReactionID{Reactor: 2, Local: 0}},
		{Level: 0, ID: GlobalReactionID{Reactor: 1, Local: 1}},
		{Level: 0, ID: GlobalReactionID{Reactor: 1, Local: 0}},
	}
	slices.SortFunc(keys, ReactionKey.Compare)

	assert.Equal(t, []ReactionKey{
		{Level: 0, ID: GlobalReactionID{Reactor: 1, Local: 0}},
		{Level: 0, ID: GlobalReactionID{Reactor: 1, Local: 1}},
		{Level: 0, ID: GlobalReactionID{Reactor: 2, Local: 0}},
		{Level: 1, ID: GlobalReactionID{Reactor: 0, Local: 0}},
	}, keys)
}

func TestReactionKey_String(t *testing.T) {
	k := ReactionKey{Level: 2, ID: GlobalReactionID{Reactor: 3, Local: 1}}
	assert.Equal(t, "L2:r3.1", k.String())
	assert.True(t, ReactionKey{Level: 1}.Less(k))
}

func TestTriggerID_Reserved(t *testing.T) {
	assert.Equal(t, TriggerID(0), StartupTrigger)
	assert.Equal(t, TriggerID(1), ShutdownTrigger)
	assert.Greater(t, FirstUserTrigger, ShutdownTrigger)
}
