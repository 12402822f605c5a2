// Package contract implements the staked higher/lower game ledger: session
// escrow and lifecycle, integer reward settlement, player statistics, the
// leaderboard and owner fee withdrawal. It runs against a host Chain and
// never writes state before a call has been fully validated.
package contract

import (
	"okinoko-higher_lower/sdk"
)

// Ledger binds the contract logic to one host call.
type Ledger struct {
	chain Chain
}

// New returns a Ledger for the current call on chain.
func New(chain Chain) *Ledger {
	return &Ledger{chain: chain}
}

func (l *Ledger) sender() sdk.Address {
	return l.chain.GetEnv().Sender.Address
}

// now reads the host block time in unix seconds.
func (l *Ledger) now() (uint64, error) {
	return parseISO8601ToUnix(l.chain.GetEnv().Timestamp)
}

// ---------- Queries ----------

// GetSession returns the stored session.
func (l *Ledger) GetSession(id string) (*Session, error) {
	if err := validateSessionID(id); err != nil {
		return nil, err
	}
	return loadSession(l.chain, id)
}

// GetPlayerStats returns the player's stats, zero valued when the player
// never closed a session.
func (l *Ledger) GetPlayerStats(player sdk.Address) (PlayerStats, error) {
	if err := validateAddress(player); err != nil {
		return PlayerStats{}, err
	}
	p, err := loadStats(l.chain, player)
	if err != nil || p == nil {
		return PlayerStats{}, err
	}
	return *p, nil
}

// GetLeaderboard returns at most LeaderboardSize entries, best first.
func (l *Ledger) GetLeaderboard() ([]LeaderboardEntry, error) {
	board, err := loadLeaderboard(l.chain)
	if err != nil {
		return nil, err
	}
	if board == nil {
		board = []LeaderboardEntry{}
	}
	return board, nil
}

// GetConfig returns the configuration recorded by Init.
func (l *Ledger) GetConfig() (ConfigView, error) {
	c, err := loadConfig(l.chain)
	if err != nil {
		return ConfigView{}, err
	}
	return c.View(), nil
}
