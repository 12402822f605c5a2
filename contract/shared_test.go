package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okinoko-higher_lower/sdk"
)

func TestSessionCodec(t *testing.T) {
	in := &Session{
		ID:       "game-1",
		Owner:    "alice",
		Stake:    sdk.MustParseAmount("340282366920938463463374607431768211455"),
		Asset:    sdk.AssetNear,
		Score:    42,
		Round:    43,
		Status:   Closed,
		OpenedAt: 1756857601,
		ClosedAt: 1756857901,
		Reward:   amt(1_140_000),
	}
	out, err := decodeSession(encodeSession(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLeaderboardCodec(t *testing.T) {
	in := []LeaderboardEntry{
		{Player: "a", HighestScore: 9, TotalEarnings: amt(5), Seq: 2},
		{Player: "b", HighestScore: 3, TotalEarnings: amt(0), Seq: 0},
	}
	out, err := decodeLeaderboard(encodeLeaderboard(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	empty, err := decodeLeaderboard(encodeLeaderboard(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecodeRejectsCorruptRecords(t *testing.T) {
	good := encodeSession(&Session{ID: "g", Owner: "a", Asset: "near", Status: Active})

	badVersion := append([]byte{}, good...)
	badVersion[0] = codecVersion + 1

	badStatus := append([]byte{}, good...)
	// status sits after id, owner, asset, stake, score and round
	badStatus[1+2+1+2+1+2+4+16+8+8] = 7

	cases := map[string][]byte{
		"empty":       nil,
		"truncated":   good[:len(good)-1],
		"trailing":    append(append([]byte{}, good...), 0),
		"bad version": badVersion,
		"bad status":  badStatus,
	}
	for name, b := range cases {
		_, err := decodeSession(b)
		assert.ErrorIs(t, err, ErrCorruptState, name)
	}

	tooMany := []byte{codecVersion, LeaderboardSize + 1}
	_, err := decodeLeaderboard(tooMany)
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestLoadMissingRecords(t *testing.T) {
	chain := newFakeChain("x")
	_, err := loadSession(chain, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = loadConfig(chain)
	assert.ErrorIs(t, err, ErrNotInitialized)
	p, err := loadStats(chain, "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
	n, err := getStatsCount(chain)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConfigCodec(t *testing.T) {
	in := DefaultConfig("owner")
	out, err := decodeConfig(encodeConfig(&in))
	require.NoError(t, err)
	assert.Equal(t, &in, out)
}

func TestParseISO8601ToUnix(t *testing.T) {
	cases := map[string]uint64{
		"1970-01-01T00:00:00":      0,
		"2024-03-01T00:00:00":      1709251200,
		"2025-09-03T00:00:01":      1756857601,
		"2000-02-29T12:30:45Z":     951827445,
		"2025-09-03T00:00:01.250Z": 1756857601,
	}
	for in, want := range cases {
		got, err := parseISO8601ToUnix(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "2025-09-03", "2025-13-01T00:00:00", "2025/09/03T00:00:00", "1969-12-31T23:59:59", "2025-09-03T24:00:00"} {
		_, err := parseISO8601ToUnix(in)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
}

func TestNextField(t *testing.T) {
	in := "a||c"
	assert.Equal(t, "a", nextField(&in))
	assert.Equal(t, "", nextField(&in))
	assert.Equal(t, "c", nextField(&in))
	assert.Equal(t, "", in)
	assert.Equal(t, "", nextField(&in))
}

func TestGetFirstTransferAllow(t *testing.T) {
	ta, err := GetFirstTransferAllow(nil)
	require.NoError(t, err)
	assert.Nil(t, ta)

	ta, err = GetFirstTransferAllow([]sdk.Intent{
		{Type: "other", Args: map[string]string{"limit": "x"}},
		{Type: "transfer.allow", Args: map[string]string{"limit": "1500", "token": "NEAR"}},
	})
	require.NoError(t, err)
	assert.Equal(t, amt(1500), ta.Limit)
	assert.Equal(t, sdk.AssetNear, ta.Token)

	_, err = GetFirstTransferAllow([]sdk.Intent{{Type: "transfer.allow", Args: map[string]string{"limit": "1.5"}}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
