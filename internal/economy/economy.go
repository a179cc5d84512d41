// Package economy applies point charges against player balances. Costs come
// from configuration; balances live on PlayerStats.
package economy

import (
	"fmt"

	"git.home.luguber.info/inful/worldhost/internal/config"
	"git.home.luguber.info/inful/worldhost/internal/stats"
)

// InsufficientPointsError indicates a charge larger than the player's balance.
type InsufficientPointsError struct {
	Player   string
	Balance  int
	Required int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points for player %s: have %d, need %d", e.Player, e.Balance, e.Required)
}

// Ledger charges and refunds points against the stats repository.
type Ledger struct {
	stats *stats.Repository
	cfg   config.EconomyConfig
}

// NewLedger creates a ledger over the given stats repository.
func NewLedger(statsRepo *stats.Repository, cfg config.EconomyConfig) *Ledger {
	return &Ledger{stats: statsRepo, cfg: cfg}
}

// CreationCost returns the configured base cost of creating a world.
func (l *Ledger) CreationCost() int { return l.cfg.CreationCost }

// ExpansionCost returns the cost of buying the given border expansion level.
// Levels beyond the configured table cost nothing.
func (l *Ledger) ExpansionCost(level int) int {
	if level < 1 || level > len(l.cfg.ExpansionCosts) {
		return 0
	}
	return l.cfg.ExpansionCosts[level-1]
}

// CumulativeCost returns base creation cost plus every expansion up to level.
func (l *Ledger) CumulativeCost(level int) int { return l.cfg.CumulativeCost(level) }

// Charge deducts amount from the player's balance and persists the result.
func (l *Ledger) Charge(playerID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("charge amount must not be negative: %d", amount)
	}
	s, err := l.stats.FindByUUID(playerID)
	if err != nil {
		return err
	}
	if s.Points < amount {
		return &InsufficientPointsError{Player: playerID, Balance: s.Points, Required: amount}
	}
	s.Points -= amount
	return l.stats.Save(s)
}

// Refund credits amount back to the player's balance and persists the result.
func (l *Ledger) Refund(playerID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("refund amount must not be negative: %d", amount)
	}
	s, err := l.stats.FindByUUID(playerID)
	if err != nil {
		return err
	}
	s.Points += amount
	return l.stats.Save(s)
}
