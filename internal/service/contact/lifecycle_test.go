package contact

import (
	"testing"
	"time"

	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCanApply(t *testing.T) {
	type row map[model.ContactStatus]bool
	tests := map[Action]row{
		ActionMarkRead: {
			model.StatusNew: true, model.StatusRead: false, model.StatusReplied: false, model.StatusArchived: false,
		},
		ActionMarkReplied: {
			model.StatusNew: true, model.StatusRead: true, model.StatusReplied: true, model.StatusArchived: false,
		},
		ActionArchive: {
			model.StatusNew: true, model.StatusRead: true, model.StatusReplied: true, model.StatusArchived: true,
		},
		ActionSetPriority: {
			model.StatusNew: true, model.StatusArchived: true,
		},
	}
	for action, want := range tests {
		for from, ok := range want {
			require.Equal(t, ok, CanApply(action, from), "%s from %s", action, from)
		}
	}
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction(" MarkAsReplied ")
	require.True(t, ok)
	require.Equal(t, ActionMarkReplied, a)

	a, ok = ParseAction("archive")
	require.True(t, ok)
	require.Equal(t, ActionArchive, a)

	_, ok = ParseAction("delete")
	require.False(t, ok)
}

func TestPlan(t *testing.T) {
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	u, err := plan(ActionMarkReplied, Payload{}, at)
	require.NoError(t, err)
	require.Equal(t, model.StatusReplied, u.Status)
	require.True(t, u.SetResponseTime)
	require.Equal(t, at, u.At)

	u, err = plan(ActionSetPriority, Payload{Priority: "HIGH"}, at)
	require.NoError(t, err)
	require.Equal(t, model.PriorityHigh, u.Priority)
	require.Empty(t, u.AllowedFrom)

	_, err = plan(ActionSetPriority, Payload{Priority: "critical"}, at)
	require.ErrorIs(t, err, ErrInvalidPriority)

	u, err = plan(ActionAddNote, Payload{Note: "  called back "}, at)
	require.NoError(t, err)
	require.Equal(t, "called back", *u.Notes)

	_, err = plan(Action("explode"), Payload{}, at)
	require.ErrorIs(t, err, ErrValidation)
}
