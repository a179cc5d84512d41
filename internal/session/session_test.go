package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreationWizardHappyPath(t *testing.T) {
	reg := NewCreationRegistry()

	s := reg.Start("p1")
	assert.Equal(t, StepStarted, s.Step)

	require.NoError(t, reg.ChooseName("p1", "My World"))
	require.NoError(t, reg.ChooseTemplate("p1", "flat"))
	require.NoError(t, reg.Confirm("p1"))

	got, ok := reg.Get("p1")
	require.True(t, ok)
	assert.Equal(t, StepConfirmed, got.Step)
	assert.Equal(t, "My World", got.WorldName)
	assert.Equal(t, "flat", got.Template)

	reg.End("p1")
	_, ok = reg.Get("p1")
	assert.False(t, ok)
}

func TestCreationWizardSeedPath(t *testing.T) {
	reg := NewCreationRegistry()
	reg.Start("p1")
	require.NoError(t, reg.ChooseName("p1", "Seeded"))
	require.NoError(t, reg.ChooseSeed("p1", "12345"))

	s, ok := reg.Get("p1")
	require.True(t, ok)
	assert.Equal(t, StepTemplateChosen, s.Step)
	assert.Equal(t, "12345", s.Seed)
}

func TestCreationWizardRejectsInvalidTransitions(t *testing.T) {
	reg := NewCreationRegistry()
	reg.Start("p1")

	err := reg.Confirm("p1")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StepStarted, invalid.From)

	err = reg.ChooseTemplate("p1", "flat")
	require.ErrorAs(t, err, &invalid)

	assert.ErrorIs(t, reg.ChooseName("nobody", "x"), ErrNoSession)
}

func TestCreationWizardCancel(t *testing.T) {
	reg := NewCreationRegistry()
	reg.Start("p1")
	require.NoError(t, reg.ChooseName("p1", "w"))
	require.NoError(t, reg.Cancel("p1"))

	_, ok := reg.Get("p1")
	assert.False(t, ok, "cancelled session is removed")

	assert.ErrorIs(t, reg.Cancel("p1"), ErrNoSession)
}

func TestStartReplacesExistingSession(t *testing.T) {
	reg := NewCreationRegistry()
	reg.Start("p1")
	require.NoError(t, reg.ChooseName("p1", "old"))

	s := reg.Start("p1")
	assert.Equal(t, StepStarted, s.Step)
	assert.Empty(t, s.WorldName)
}

func TestInviteExpiryIsCheckedAtReadTime(t *testing.T) {
	reg := NewInviteRegistry(time.Minute)
	reg.Invite("invitee", "world-1")

	inv, ok := reg.Get("invitee")
	require.True(t, ok)
	assert.Equal(t, "world-1", inv.World)

	// Move the clock past the deadline; the next read must remove the entry.
	reg.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, ok = reg.Get("invitee")
	assert.False(t, ok)

	// The removal is a side effect of the read, so the entry is gone even
	// for a subsequent read with a normal clock.
	reg.now = time.Now
	_, ok = reg.Get("invitee")
	assert.False(t, ok)
}

func TestMeetRequestExpiry(t *testing.T) {
	reg := NewMeetRegistry(30 * time.Second)
	reg.Request("target", "requester")

	req, ok := reg.Get("target")
	require.True(t, ok)
	assert.Equal(t, "requester", req.Requester)

	reg.now = func() time.Time { return time.Now().Add(time.Minute) }
	_, ok = reg.Get("target")
	assert.False(t, ok)
}

func TestFlowRegistry(t *testing.T) {
	reg := NewFlowRegistry[DiscoverySession]()

	s := reg.Start("p1")
	s.Sort = "favorites"
	s.Page = 2

	got, ok := reg.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "favorites", got.Sort)
	assert.Equal(t, 2, got.Page)

	reg.End("p1")
	_, ok = reg.Get("p1")
	assert.False(t, ok)
}

func TestHubDropPlayer(t *testing.T) {
	hub := NewHub(time.Minute, time.Minute)

	hub.Creation.Start("p1")
	hub.Invites.Invite("p1", "w")
	hub.Meets.Request("p1", "p2")
	hub.Settings.Start("p1")
	hub.Discovery.Start("p1")
	hub.Favorites.Start("p1")
	hub.PlayerWorlds.Start("p1")

	hub.DropPlayer("p1")

	_, ok := hub.Creation.Get("p1")
	assert.False(t, ok)
	_, ok = hub.Invites.Get("p1")
	assert.False(t, ok)
	_, ok = hub.Meets.Get("p1")
	assert.False(t, ok)
	_, ok = hub.Settings.Get("p1")
	assert.False(t, ok)
	_, ok = hub.Discovery.Get("p1")
	assert.False(t, ok)
	_, ok = hub.Favorites.Get("p1")
	assert.False(t, ok)
	_, ok = hub.PlayerWorlds.Get("p1")
	assert.False(t, ok)
}
