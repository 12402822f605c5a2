package contract

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okinoko-higher_lower/sdk"
)

func amt(x uint64) sdk.Amount { return sdk.AmountFromUint64(x) }

// open funds player with stake, attaches it and opens id.
func open(t *testing.T, chain *fakeChain, player, id string, stake uint64) *Session {
	t.Helper()
	chain.fund(player, stake)
	chain.as(player).attach(UInt64ToString(stake), "near")
	l := New(chain)
	got, err := l.AttachedStake()
	require.NoError(t, err)
	_, err = l.OpenSession(id, got)
	require.NoError(t, err)
	s, err := l.GetSession(id)
	require.NoError(t, err)
	return s
}

func progress(t *testing.T, chain *fakeChain, player, id string, n int) {
	t.Helper()
	chain.as(player)
	for i := 0; i < n; i++ {
		_, err := New(chain).RecordProgress(id)
		require.NoError(t, err)
	}
}

func closeAs(t *testing.T, chain *fakeChain, player, id string) CloseResult {
	t.Helper()
	res, err := New(chain.as(player)).CloseSession(id)
	require.NoError(t, err)
	return res
}

func lastEvent(t *testing.T, chain *fakeChain) Event {
	t.Helper()
	require.NotEmpty(t, chain.logs)
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(chain.logs[len(chain.logs)-1]), &ev))
	return ev
}

// ---------- Init ----------

func TestInitRecordsConfig(t *testing.T) {
	chain := setupLedger(t)
	cfg, err := New(chain).GetConfig()
	require.NoError(t, err)
	assert.Equal(t, sdk.Address("owner"), cfg.Owner)
	assert.Equal(t, amt(1_000), cfg.MinStake)
	assert.Equal(t, amt(10_000_000), cfg.MaxStake)
	assert.Equal(t, uint8(5), cfg.FeePercent)
	assert.Equal(t, MaxScore, cfg.MaxScore)
	assert.Equal(t, "ledgerInitialized", lastEvent(t, chain).Type)
}

func TestInitOnlyOnce(t *testing.T) {
	chain := setupLedger(t)
	before := chain.snapshot()
	err := New(chain.as("mallory")).Init(testConfig())
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, before, chain.state)
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	cases := map[string]func(c *Config){
		"zero min":      func(c *Config) { c.MinStake = sdk.Amount{} },
		"min above max": func(c *Config) { c.MinStake = amt(20_000_000) },
		"fee above 100": func(c *Config) { c.FeePercent = 101 },
		"empty asset":   func(c *Config) { c.Asset = "" },
		"max overflows": func(c *Config) { c.MaxStake = sdk.MaxAmount },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			chain := newFakeChain("owner")
			c := testConfig()
			mutate(&c)
			err := New(chain).Init(c)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Empty(t, chain.state)
		})
	}
}

func TestCallsBeforeInit(t *testing.T) {
	chain := newFakeChain("alice")
	_, err := New(chain).OpenSession("g1", amt(1_000))
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = New(chain).GetConfig()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = New(chain).WithdrawFees()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

// ---------- Open ----------

func TestOpenSessionEscrowsStake(t *testing.T) {
	chain := setupLedger(t)
	chain.fund("alice", 500)
	s := open(t, chain, "alice", "g1", 1_000_000)

	assert.Equal(t, "g1", s.ID)
	assert.Equal(t, sdk.Address("alice"), s.Owner)
	assert.Equal(t, amt(1_000_000), s.Stake)
	assert.Equal(t, sdk.AssetNear, s.Asset)
	assert.Equal(t, uint64(0), s.Score)
	assert.Equal(t, uint64(1), s.Round)
	assert.Equal(t, Active, s.Status)
	assert.Equal(t, uint64(1756857601), s.OpenedAt)
	assert.Zero(t, s.ClosedAt)
	assert.True(t, s.Reward.IsZero())

	assert.Equal(t, amt(500), chain.wallet("alice"))
	assert.Equal(t, amt(6_000_000), chain.contract)

	ev := lastEvent(t, chain)
	assert.Equal(t, "sessionOpened", ev.Type)
	assert.Equal(t, "1000000", ev.Attributes["stake"])
}

func TestOpenSessionStakeBounds(t *testing.T) {
	cases := []struct {
		name  string
		stake uint64
		ok    bool
	}{
		{"zero", 0, false},
		{"below min", 999, false},
		{"min", 1_000, true},
		{"max", 10_000_000, true},
		{"above max", 10_000_001, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain := setupLedger(t)
			chain.fund("alice", tc.stake)
			before := chain.snapshot()
			_, err := New(chain.as("alice")).OpenSession("g1", amt(tc.stake))
			if tc.ok {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidStake)
			assert.Equal(t, before, chain.state)
			assert.Equal(t, amt(tc.stake), chain.wallet("alice"))
		})
	}
}

func TestOpenSessionWithoutIntentIsZeroStake(t *testing.T) {
	chain := setupLedger(t)
	l := New(chain.as("alice"))
	stake, err := l.AttachedStake()
	require.NoError(t, err)
	assert.True(t, stake.IsZero())
	_, err = l.OpenSession("g1", stake)
	assert.ErrorIs(t, err, ErrInvalidStake)
}

func TestOpenSessionWrongAsset(t *testing.T) {
	chain := setupLedger(t)
	chain.as("alice").attach("1000", "hive")
	_, err := New(chain).AttachedStake()
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOpenSessionDuplicateID(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000)
	before := chain.snapshot()

	for _, player := range []string{"alice", "bob"} {
		chain.fund(player, 2_000)
		_, err := New(chain.as(player)).OpenSession("g1", amt(2_000))
		assert.ErrorIs(t, err, ErrDuplicateSession)
	}
	assert.Equal(t, before, chain.state)

	// closed ids stay taken
	closeAs(t, chain, "alice", "g1")
	_, err := New(chain.as("alice")).OpenSession("g1", amt(2_000))
	assert.ErrorIs(t, err, ErrDuplicateSession)
}

func TestOpenSessionRejectsBadIDs(t *testing.T) {
	chain := setupLedger(t)
	chain.fund("alice", 10_000)
	for _, id := range []string{"", "a|b", strings.Repeat("x", maxIDLen+1)} {
		_, err := New(chain.as("alice")).OpenSession(id, amt(1_000))
		assert.ErrorIs(t, err, ErrInvalidInput, "id %q", id)
	}
}

// ---------- Progress ----------

func TestRecordProgressCountsCalls(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000)
	progress(t, chain, "alice", "g1", 7)

	s, err := New(chain).GetSession("g1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), s.Score)
	assert.Equal(t, uint64(8), s.Round)
	assert.Equal(t, amt(1_000), s.Stake)

	ev := lastEvent(t, chain)
	assert.Equal(t, "progressRecorded", ev.Type)
	assert.Equal(t, "7", ev.Attributes["score"])
}

func TestRecordProgressRejections(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000)
	open(t, chain, "alice", "g2", 1_000)
	closeAs(t, chain, "alice", "g2")
	before := chain.snapshot()

	_, err := New(chain.as("alice")).RecordProgress("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = New(chain.as("bob")).RecordProgress("g1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = New(chain.as("alice")).RecordProgress("g2")
	assert.ErrorIs(t, err, ErrSessionClosed)
	// ownership is checked before status
	_, err = New(chain.as("bob")).RecordProgress("g2")
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, before, chain.state)
}

func TestRecordProgressScoreLimit(t *testing.T) {
	chain := setupLedger(t)
	s := open(t, chain, "alice", "g1", 1_000)
	s.Score = MaxScore - 1
	saveSession(chain, s)

	score, err := New(chain.as("alice")).RecordProgress("g1")
	require.NoError(t, err)
	assert.Equal(t, MaxScore, score)

	_, err = New(chain).RecordProgress("g1")
	assert.ErrorIs(t, err, ErrScoreLimit)

	// the session can still be settled at the cap
	res := closeAs(t, chain, "alice", "g1")
	assert.Equal(t, MaxScore, res.Score)
}

// ---------- Close ----------

func TestCloseSessionPaysReward(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000_000)
	progress(t, chain, "alice", "g1", 2)
	chain.at("2025-09-03T00:05:01")

	res := closeAs(t, chain, "alice", "g1")
	assert.Equal(t, uint64(2), res.Score)
	assert.Equal(t, amt(1_140_000), res.Reward)
	assert.Equal(t, amt(1_000_000), res.FinalStake)

	assert.Equal(t, amt(1_140_000), chain.wallet("alice"))
	assert.Equal(t, amt(6_000_000-1_140_000), chain.contract)

	s, err := New(chain).GetSession("g1")
	require.NoError(t, err)
	assert.Equal(t, Closed, s.Status)
	assert.Equal(t, s.OpenedAt+300, s.ClosedAt)
	assert.Equal(t, amt(1_140_000), s.Reward)

	stats, err := New(chain).GetPlayerStats("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.GamesPlayed)
	assert.Equal(t, uint64(2), stats.TotalScore)
	assert.Equal(t, uint64(2), stats.HighestScore)
	assert.Equal(t, amt(1_140_000), stats.TotalEarnings)

	board, err := New(chain).GetLeaderboard()
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, sdk.Address("alice"), board[0].Player)

	ev := lastEvent(t, chain)
	assert.Equal(t, "sessionClosed", ev.Type)
	assert.Equal(t, "1140000", ev.Attributes["reward"])
	assert.Equal(t, "60000", ev.Attributes["fee"])
}

func TestCloseSessionZeroScoreForfeits(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000_000)

	res := closeAs(t, chain, "alice", "g1")
	assert.Zero(t, res.Score)
	assert.True(t, res.Reward.IsZero())
	assert.True(t, chain.wallet("alice").IsZero())
	assert.Equal(t, amt(6_000_000), chain.contract)

	stats, err := New(chain).GetPlayerStats("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.GamesPlayed)
	assert.Zero(t, stats.HighestScore)
	assert.True(t, stats.TotalEarnings.IsZero())

	assert.Equal(t, "stakeForfeited", lastEvent(t, chain).Type)
}

func TestCloseSessionOnlyOnce(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000)
	progress(t, chain, "alice", "g1", 1)
	closeAs(t, chain, "alice", "g1")
	before := chain.snapshot()
	wallet := chain.wallet("alice")

	_, err := New(chain.as("alice")).CloseSession("g1")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, before, chain.state)
	assert.Equal(t, wallet, chain.wallet("alice"))

	stats, err := New(chain).GetPlayerStats("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.GamesPlayed)
}

func TestCloseSessionByOtherPlayer(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000)
	before := chain.snapshot()
	_, err := New(chain.as("bob")).CloseSession("g1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, before, chain.state)
}

func TestCloseSessionInsufficientFunds(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000_000)
	progress(t, chain, "alice", "g1", 3)
	chain.contract = amt(1_000_000)
	before := chain.snapshot()

	_, err := New(chain.as("alice")).CloseSession("g1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, before, chain.state)

	s, err := New(chain).GetSession("g1")
	require.NoError(t, err)
	assert.Equal(t, Active, s.Status)
}

func TestStatsAccumulateAcrossSessions(t *testing.T) {
	chain := setupLedger(t)
	scores := []int{3, 0, 5, 1}
	var earned sdk.Amount
	for i, k := range scores {
		id := fmt.Sprintf("g%d", i)
		open(t, chain, "alice", id, 1_000)
		progress(t, chain, "alice", id, k)
		res := closeAs(t, chain, "alice", id)
		earned = earned.SaturatingAdd(res.Reward)
	}

	stats, err := New(chain).GetPlayerStats("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), stats.GamesPlayed)
	assert.Equal(t, uint64(9), stats.TotalScore)
	assert.Equal(t, uint64(5), stats.HighestScore)
	assert.Equal(t, earned, stats.TotalEarnings)
	assert.Equal(t, earned, chain.wallet("alice"))
}

func TestPlayerStatsUnknownPlayer(t *testing.T) {
	chain := setupLedger(t)
	stats, err := New(chain).GetPlayerStats("nobody")
	require.NoError(t, err)
	assert.Equal(t, PlayerStats{}, stats)
}

// ---------- Leaderboard ----------

func TestLeaderboardKeepsTopTen(t *testing.T) {
	chain := setupLedger(t)
	for i := 1; i <= 12; i++ {
		player := fmt.Sprintf("p%02d", i)
		open(t, chain, player, "g"+player, 1_000)
		progress(t, chain, player, "g"+player, i)
		closeAs(t, chain, player, "g"+player)
	}

	board, err := New(chain).GetLeaderboard()
	require.NoError(t, err)
	require.Len(t, board, LeaderboardSize)

	seen := map[sdk.Address]bool{}
	for i, e := range board {
		assert.False(t, seen[e.Player], "duplicate %s", e.Player)
		seen[e.Player] = true
		assert.Equal(t, uint64(12-i), e.HighestScore)
		if i > 0 {
			assert.LessOrEqual(t, compareEntries(board[i-1], e), 0)
		}
	}
	assert.False(t, seen["p01"])
	assert.False(t, seen["p02"])

	// p01 climbs back in with a new best
	open(t, chain, "p01", "again", 1_000)
	progress(t, chain, "p01", "again", 20)
	closeAs(t, chain, "p01", "again")
	board, err = New(chain).GetLeaderboard()
	require.NoError(t, err)
	require.Len(t, board, LeaderboardSize)
	assert.Equal(t, sdk.Address("p01"), board[0].Player)
	assert.Equal(t, uint64(20), board[0].HighestScore)
	assert.Equal(t, uint64(4), board[len(board)-1].HighestScore)
}

func TestLeaderboardTieBreaks(t *testing.T) {
	chain := setupLedger(t)
	// same best score, carol earned more
	for _, p := range []struct {
		name  string
		stake uint64
	}{{"bob", 1_000}, {"alice", 1_000}, {"carol", 2_000}} {
		open(t, chain, p.name, "g"+p.name, p.stake)
		progress(t, chain, p.name, "g"+p.name, 2)
		closeAs(t, chain, p.name, "g"+p.name)
	}

	board, err := New(chain).GetLeaderboard()
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, sdk.Address("carol"), board[0].Player)
	// equal score and earnings: earliest stats record first
	assert.Equal(t, sdk.Address("bob"), board[1].Player)
	assert.Equal(t, sdk.Address("alice"), board[2].Player)
}

func TestLeaderboardEmpty(t *testing.T) {
	chain := setupLedger(t)
	board, err := New(chain).GetLeaderboard()
	require.NoError(t, err)
	assert.NotNil(t, board)
	assert.Empty(t, board)
}

// ---------- Withdraw ----------

func TestWithdrawFeesByOwner(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000)

	got, err := New(chain.as("owner")).WithdrawFees()
	require.NoError(t, err)
	assert.Equal(t, amt(5_001_000-500), got)
	assert.Equal(t, amt(500), chain.contract)
	assert.Equal(t, got, chain.wallet("owner"))
	assert.Equal(t, "feesWithdrawn", lastEvent(t, chain).Type)

	// nothing above the reserve is a no-op
	logs := len(chain.logs)
	got, err = New(chain.as("owner")).WithdrawFees()
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	assert.Equal(t, amt(500), chain.contract)
	assert.Len(t, chain.logs, logs)
}

func TestWithdrawFeesBelowReserve(t *testing.T) {
	chain := setupLedger(t)
	chain.contract = amt(100)
	got, err := New(chain.as("owner")).WithdrawFees()
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	assert.Equal(t, amt(100), chain.contract)
}

func TestWithdrawFeesByOtherAccount(t *testing.T) {
	chain := setupLedger(t)
	before := chain.snapshot()
	_, err := New(chain.as("mallory")).WithdrawFees()
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, before, chain.state)
	assert.Equal(t, amt(5_000_000), chain.contract)
	assert.True(t, chain.wallet("mallory").IsZero())
}

func TestWithdrawFeesIncludesEscrowedStakes(t *testing.T) {
	chain := setupLedger(t)
	open(t, chain, "alice", "g1", 1_000_000)
	progress(t, chain, "alice", "g1", 2)

	got, err := New(chain.as("owner")).WithdrawFees()
	require.NoError(t, err)
	assert.Equal(t, amt(6_000_000-500), got)
	assert.Equal(t, amt(500), chain.contract)

	// the open session can no longer be paid until the contract is refilled
	before := chain.snapshot()
	_, err = New(chain.as("alice")).CloseSession("g1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, before, chain.state)
	assert.True(t, chain.wallet("alice").IsZero())

	chain.contract = chain.contract.SaturatingAdd(amt(1_140_000))
	res := closeAs(t, chain, "alice", "g1")
	assert.Equal(t, amt(1_140_000), res.Reward)
	assert.Equal(t, amt(500), chain.contract)
}
