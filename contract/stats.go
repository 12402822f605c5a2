package contract

import (
	"slices"

	"okinoko-higher_lower/sdk"
)

//
// Player statistics and the ranked leaderboard projection.
//
// Both sort keys (highest score, total earnings) only ever grow for a
// player, so a player that falls out of the top LeaderboardSize can only
// climb back through their own next update. Re-ranking the updated player
// into the stored top list is therefore enough to keep it equal to the top
// of the full StatsStore.
//

// apply folds one closed session into the stats.
func (p *PlayerStats) apply(score uint64, reward sdk.Amount) {
	p.GamesPlayed++
	p.TotalScore += score
	if score > p.HighestScore {
		p.HighestScore = score
	}
	p.TotalEarnings = p.TotalEarnings.SaturatingAdd(reward)
}

func (p *PlayerStats) entry(player sdk.Address) LeaderboardEntry {
	return LeaderboardEntry{
		Player:        player,
		HighestScore:  p.HighestScore,
		TotalEarnings: p.TotalEarnings,
		Seq:           p.Seq,
	}
}

// compareEntries orders by highest score desc, earnings desc, then by the
// earliest created stats record.
func compareEntries(a, b LeaderboardEntry) int {
	if a.HighestScore != b.HighestScore {
		if a.HighestScore > b.HighestScore {
			return -1
		}
		return 1
	}
	if c := a.TotalEarnings.Cmp(b.TotalEarnings); c != 0 {
		return -c
	}
	switch {
	case a.Seq < b.Seq:
		return -1
	case a.Seq > b.Seq:
		return 1
	}
	return 0
}

// rankEntry replaces the player's entry, re-sorts and truncates to
// LeaderboardSize. The input slice is not modified.
func rankEntry(board []LeaderboardEntry, e LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(board)+1)
	for _, cur := range board {
		if cur.Player != e.Player {
			out = append(out, cur)
		}
	}
	out = append(out, e)
	slices.SortFunc(out, compareEntries)
	if len(out) > LeaderboardSize {
		out = out[:LeaderboardSize]
	}
	return out
}

// statsUpdate is a staged stats + leaderboard change, computed before any
// write so Close can validate everything first.
type statsUpdate struct {
	player   sdk.Address
	stats    *PlayerStats
	created  bool
	newCount uint64
	board    []LeaderboardEntry
}

func stageStatsUpdate(chain Chain, player sdk.Address, score uint64, reward sdk.Amount) (*statsUpdate, error) {
	stats, err := loadStats(chain, player)
	if err != nil {
		return nil, err
	}
	u := &statsUpdate{player: player}
	if stats == nil {
		count, err := getStatsCount(chain)
		if err != nil {
			return nil, err
		}
		stats = &PlayerStats{Seq: count}
		u.created = true
		u.newCount = count + 1
	}
	stats.apply(score, reward)
	u.stats = stats

	board, err := loadLeaderboard(chain)
	if err != nil {
		return nil, err
	}
	u.board = rankEntry(board, stats.entry(player))
	return u, nil
}

func (u *statsUpdate) commit(chain Chain) {
	saveStats(chain, u.player, u.stats)
	if u.created {
		setStatsCount(chain, u.newCount)
	}
	saveLeaderboard(chain, u.board)
}
