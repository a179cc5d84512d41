package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/worldhost/internal/config"
	"git.home.luguber.info/inful/worldhost/internal/stats"
)

type allWorlds struct{}

func (allWorlds) Exists(string) bool { return true }

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	repo := stats.NewRepository(t.TempDir(), allWorlds{}, stats.Defaults{Points: 100, WorldSlots: 1, Language: "en"})
	return NewLedger(repo, config.EconomyConfig{
		CreationCost:   100,
		ExpansionCosts: []int{50, 100, 200},
	})
}

func TestChargeAndRefund(t *testing.T) {
	l := newLedger(t)

	require.NoError(t, l.Charge("p1", 60))
	s, err := l.stats.FindByUUID("p1")
	require.NoError(t, err)
	assert.Equal(t, 40, s.Points)

	require.NoError(t, l.Refund("p1", 10))
	s, err = l.stats.FindByUUID("p1")
	require.NoError(t, err)
	assert.Equal(t, 50, s.Points)
}

func TestChargeInsufficientPoints(t *testing.T) {
	l := newLedger(t)

	err := l.Charge("p1", 500)
	var insufficient *InsufficientPointsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 100, insufficient.Balance)
	assert.Equal(t, 500, insufficient.Required)

	// A failed charge leaves the balance untouched.
	s, ferr := l.stats.FindByUUID("p1")
	require.NoError(t, ferr)
	assert.Equal(t, 100, s.Points)
}

func TestCumulativeCost(t *testing.T) {
	l := newLedger(t)

	assert.Equal(t, 100, l.CumulativeCost(0))
	assert.Equal(t, 150, l.CumulativeCost(1))
	assert.Equal(t, 450, l.CumulativeCost(3))
	// Levels beyond the configured table add nothing.
	assert.Equal(t, 450, l.CumulativeCost(10))

	assert.Equal(t, 50, l.ExpansionCost(1))
	assert.Equal(t, 0, l.ExpansionCost(0))
	assert.Equal(t, 0, l.ExpansionCost(99))
}
