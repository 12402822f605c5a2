package contract

import (
	"fmt"

	"okinoko-higher_lower/sdk"
)

// SessionStatus is the lifecycle state of a session. Closed is terminal.
type SessionStatus uint8

const (
	Active SessionStatus = 1
	Closed SessionStatus = 2
)

func (s SessionStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s SessionStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SessionStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*s = Active
	case "closed":
		*s = Closed
	default:
		return fmt.Errorf("unknown session status %q", b)
	}
	return nil
}

// MaxScore bounds the score of a single session so the reward of the
// largest stake stays inside 128 bits.
const MaxScore uint64 = 10_000

// LeaderboardSize is the number of ranked players exposed.
const LeaderboardSize = 10

// Session is one staked play-through.
//
// Stake and Asset never change after Open. Score and Round only grow and
// only while Active. Reward is zero until the session is closed.
type Session struct {
	ID       string        `json:"id"`
	Owner    sdk.Address   `json:"owner"`
	Stake    sdk.Amount    `json:"stake"`
	Asset    sdk.Asset     `json:"asset"`
	Score    uint64        `json:"score"`
	Round    uint64        `json:"round"`
	Status   SessionStatus `json:"status"`
	OpenedAt uint64        `json:"openedAt"`
	ClosedAt uint64        `json:"closedAt,omitempty"`
	Reward   sdk.Amount    `json:"reward"`
}

// PlayerStats aggregates every closed session of one player. Seq records
// the creation order and breaks leaderboard ties.
type PlayerStats struct {
	GamesPlayed   uint64     `json:"gamesPlayed"`
	TotalScore    uint64     `json:"totalScore"`
	HighestScore  uint64     `json:"highestScore"`
	TotalEarnings sdk.Amount `json:"totalEarnings"`
	Seq           uint64     `json:"-"`
}

// LeaderboardEntry is a ranked snapshot of one player's stats.
type LeaderboardEntry struct {
	Player        sdk.Address `json:"player"`
	HighestScore  uint64      `json:"highestScore"`
	TotalEarnings sdk.Amount  `json:"totalEarnings"`
	Seq           uint64      `json:"-"`
}

// Config is written once by Init and never changes afterwards.
type Config struct {
	Owner      sdk.Address
	MinStake   sdk.Amount
	MaxStake   sdk.Amount
	FeePercent uint8
	Reserve    sdk.Amount
	Asset      sdk.Asset
}
