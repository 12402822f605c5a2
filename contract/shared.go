package contract

import (
	"fmt"

	"okinoko-higher_lower/sdk"
)

// State keys. Sessions and stats are keyed by caller-supplied strings, so
// those are length-checked before they reach a key.
func sessionKey(id string) string        { return "s_" + id }
func statsKey(player sdk.Address) string { return "p_" + player.String() }
func leaderboardKey() string             { return "lb" }
func configKey() string                  { return "cfg" }
func statsCountKey() string              { return "c_stats" }

func stateExists(chain Chain, key string) bool {
	p := chain.StateGetObject(key)
	return p != nil && *p != ""
}

// codecVersion increments when a record layout changes.
const codecVersion uint8 = 1

// ---------- Session ----------

// encodeSession layout:
//
//	version | id | owner | asset | stake(16) | score | round | status | openedAt | closedAt | reward(16)
func encodeSession(s *Session) []byte {
	out := make([]byte, 0, 1+6+len(s.ID)+len(s.Owner)+len(s.Asset)+32+41)
	out = append(out, codecVersion)
	out = appendString16(out, s.ID)
	out = appendString16(out, s.Owner.String())
	out = appendString16(out, s.Asset.String())
	out = appendAmount(out, s.Stake)
	out = appendU64BE(out, s.Score)
	out = appendU64BE(out, s.Round)
	out = append(out, byte(s.Status))
	out = appendU64BE(out, s.OpenedAt)
	out = appendU64BE(out, s.ClosedAt)
	out = appendAmount(out, s.Reward)
	return out
}

func decodeSession(b []byte) (*Session, error) {
	r := &rd{b: b}
	r.version(codecVersion)
	s := &Session{}
	s.ID = r.str()
	s.Owner = sdk.Address(r.str())
	s.Asset = sdk.Asset(r.str())
	s.Stake = r.amount()
	s.Score = r.u64()
	s.Round = r.u64()
	s.Status = SessionStatus(r.u8())
	s.OpenedAt = r.u64()
	s.ClosedAt = r.u64()
	s.Reward = r.amount()
	if err := r.end(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if s.Status != Active && s.Status != Closed {
		return nil, fmt.Errorf("%w: session status %d", ErrCorruptState, s.Status)
	}
	return s, nil
}

func saveSession(chain Chain, s *Session) {
	chain.StateSetObject(sessionKey(s.ID), string(encodeSession(s)))
}

// loadSession returns ErrNotFound when no record exists.
func loadSession(chain Chain, id string) (*Session, error) {
	ptr := chain.StateGetObject(sessionKey(id))
	if ptr == nil || *ptr == "" {
		return nil, fmt.Errorf("%w: session %q", ErrNotFound, id)
	}
	return decodeSession([]byte(*ptr))
}

// ---------- PlayerStats ----------

// encodeStats layout:
//
//	version | seq | gamesPlayed | totalScore | highestScore | totalEarnings(16)
func encodeStats(p *PlayerStats) []byte {
	out := make([]byte, 0, 1+32+16)
	out = append(out, codecVersion)
	out = appendU64BE(out, p.Seq)
	out = appendU64BE(out, p.GamesPlayed)
	out = appendU64BE(out, p.TotalScore)
	out = appendU64BE(out, p.HighestScore)
	out = appendAmount(out, p.TotalEarnings)
	return out
}

func decodeStats(b []byte) (*PlayerStats, error) {
	r := &rd{b: b}
	r.version(codecVersion)
	p := &PlayerStats{}
	p.Seq = r.u64()
	p.GamesPlayed = r.u64()
	p.TotalScore = r.u64()
	p.HighestScore = r.u64()
	p.TotalEarnings = r.amount()
	if err := r.end(); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return p, nil
}

func saveStats(chain Chain, player sdk.Address, p *PlayerStats) {
	chain.StateSetObject(statsKey(player), string(encodeStats(p)))
}

// loadStats returns nil without error for a player that never closed a session.
func loadStats(chain Chain, player sdk.Address) (*PlayerStats, error) {
	ptr := chain.StateGetObject(statsKey(player))
	if ptr == nil || *ptr == "" {
		return nil, nil
	}
	return decodeStats([]byte(*ptr))
}

func getStatsCount(chain Chain) (uint64, error) {
	ptr := chain.StateGetObject(statsCountKey())
	if ptr == nil || *ptr == "" {
		return 0, nil
	}
	r := &rd{b: []byte(*ptr)}
	n := r.u64()
	if err := r.end(); err != nil {
		return 0, fmt.Errorf("stats count: %w", err)
	}
	return n, nil
}

func setStatsCount(chain Chain, n uint64) {
	chain.StateSetObject(statsCountKey(), string(appendU64BE(nil, n)))
}

// ---------- Leaderboard ----------

// encodeLeaderboard layout:
//
//	version | n | n * (player | highestScore | totalEarnings(16) | seq)
func encodeLeaderboard(entries []LeaderboardEntry) []byte {
	out := make([]byte, 0, 2+len(entries)*64)
	out = append(out, codecVersion, byte(len(entries)))
	for _, e := range entries {
		out = appendString16(out, e.Player.String())
		out = appendU64BE(out, e.HighestScore)
		out = appendAmount(out, e.TotalEarnings)
		out = appendU64BE(out, e.Seq)
	}
	return out
}

func decodeLeaderboard(b []byte) ([]LeaderboardEntry, error) {
	r := &rd{b: b}
	r.version(codecVersion)
	n := int(r.u8())
	if r.err == nil && n > LeaderboardSize {
		return nil, fmt.Errorf("%w: leaderboard holds %d entries", ErrCorruptState, n)
	}
	entries := make([]LeaderboardEntry, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		var e LeaderboardEntry
		e.Player = sdk.Address(r.str())
		e.HighestScore = r.u64()
		e.TotalEarnings = r.amount()
		e.Seq = r.u64()
		entries = append(entries, e)
	}
	if err := r.end(); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}

func saveLeaderboard(chain Chain, entries []LeaderboardEntry) {
	chain.StateSetObject(leaderboardKey(), string(encodeLeaderboard(entries)))
}

func loadLeaderboard(chain Chain) ([]LeaderboardEntry, error) {
	ptr := chain.StateGetObject(leaderboardKey())
	if ptr == nil || *ptr == "" {
		return nil, nil
	}
	return decodeLeaderboard([]byte(*ptr))
}

// ---------- Config ----------

// encodeConfig layout:
//
//	version | owner | minStake(16) | maxStake(16) | feePercent | reserve(16) | asset
func encodeConfig(c *Config) []byte {
	out := make([]byte, 0, 1+4+len(c.Owner)+len(c.Asset)+49)
	out = append(out, codecVersion)
	out = appendString16(out, c.Owner.String())
	out = appendAmount(out, c.MinStake)
	out = appendAmount(out, c.MaxStake)
	out = append(out, c.FeePercent)
	out = appendAmount(out, c.Reserve)
	out = appendString16(out, c.Asset.String())
	return out
}

func decodeConfig(b []byte) (*Config, error) {
	r := &rd{b: b}
	r.version(codecVersion)
	c := &Config{}
	c.Owner = sdk.Address(r.str())
	c.MinStake = r.amount()
	c.MaxStake = r.amount()
	c.FeePercent = r.u8()
	c.Reserve = r.amount()
	c.Asset = sdk.Asset(r.str())
	if err := r.end(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

func saveConfig(chain Chain, c *Config) {
	chain.StateSetObject(configKey(), string(encodeConfig(c)))
}

// loadConfig returns ErrNotInitialized before Init ran.
func loadConfig(chain Chain) (*Config, error) {
	ptr := chain.StateGetObject(configKey())
	if ptr == nil || *ptr == "" {
		return nil, ErrNotInitialized
	}
	return decodeConfig([]byte(*ptr))
}
