package contract

import (
	"okinoko-higher_lower/sdk"
)

// Entrypoint is the contract ABI: a raw payload in, an optional result out.
// Failures are reported through chain.Abort.
type Entrypoint func(payload *string, chain Chain) *string

// Export describes one entry point and the state it touches, so a host can
// pick the right isolation for it.
type Export struct {
	Name string
	Call Entrypoint
	// ReadOnly entry points never write state.
	ReadOnly bool
	// SessionArg is set when the first payload field is a session id.
	SessionArg bool
	// Shared is set when the call touches the contract balance, stats or
	// leaderboard.
	Shared bool
}

// Exports lists every entry point of the ledger.
var Exports = []Export{
	{Name: "l_init", Call: InitLedger, Shared: true},
	{Name: "s_open", Call: OpenSession, SessionArg: true, Shared: true},
	{Name: "s_progress", Call: RecordProgress, SessionArg: true},
	{Name: "s_close", Call: CloseSession, SessionArg: true, Shared: true},
	{Name: "f_withdraw", Call: WithdrawFees, Shared: true},
	{Name: "s_get", Call: GetSession, ReadOnly: true},
	{Name: "p_stats", Call: GetPlayerStats, ReadOnly: true},
	{Name: "lb_get", Call: GetLeaderboard, ReadOnly: true},
	{Name: "cfg_get", Call: GetConfig, ReadOnly: true},
}

// Lookup finds an export by name.
func Lookup(name string) (Export, bool) {
	for _, e := range Exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}

// failed aborts the call when err is set. Hosts whose Abort returns still
// see the entry point stop without writing.
func failed(chain Chain, err error) bool {
	if err == nil {
		return false
	}
	chain.Abort(err.Error())
	return true
}

// singleField returns the only payload field.
func singleField(payload *string) (string, error) {
	in := deref(payload)
	f := nextField(&in)
	if in != "" {
		return "", ErrInvalidInput
	}
	return f, nil
}

func jsonResult[T any](chain Chain, v T, objectType string) *string {
	s, err := ToJSON(v, objectType)
	if failed(chain, err) {
		return nil
	}
	return &s
}

// ---------- Entry: Init ----------

// InitLedger payload: "min|max|fee|reserve|asset", every field optional.
func InitLedger(payload *string, chain Chain) *string {
	l := New(chain)
	c, err := parseInitArgs(deref(payload), l.sender())
	if failed(chain, err) {
		return nil
	}
	failed(chain, l.Init(c))
	return nil
}

// ---------- Entry: Open ----------

// OpenSession payload: "sessionId". The stake comes from the caller's
// transfer.allow intent.
func OpenSession(payload *string, chain Chain) *string {
	id, err := singleField(payload)
	if failed(chain, err) {
		return nil
	}
	l := New(chain)
	stake, err := l.AttachedStake()
	if failed(chain, err) {
		return nil
	}
	out, err := l.OpenSession(id, stake)
	if failed(chain, err) {
		return nil
	}
	return strPtr(out)
}

// ---------- Entry: Progress ----------

// RecordProgress payload: "sessionId". Returns the new score.
func RecordProgress(payload *string, chain Chain) *string {
	id, err := singleField(payload)
	if failed(chain, err) {
		return nil
	}
	score, err := New(chain).RecordProgress(id)
	if failed(chain, err) {
		return nil
	}
	return strPtr(UInt64ToString(score))
}

// ---------- Entry: Close ----------

// CloseSession payload: "sessionId". Returns CloseResult as JSON.
func CloseSession(payload *string, chain Chain) *string {
	id, err := singleField(payload)
	if failed(chain, err) {
		return nil
	}
	res, err := New(chain).CloseSession(id)
	if failed(chain, err) {
		return nil
	}
	return jsonResult(chain, res, "close result")
}

// ---------- Entry: Withdraw ----------

// WithdrawFees takes no payload. Returns the amount transferred.
func WithdrawFees(payload *string, chain Chain) *string {
	if deref(payload) != "" {
		failed(chain, ErrInvalidInput)
		return nil
	}
	amt, err := New(chain).WithdrawFees()
	if failed(chain, err) {
		return nil
	}
	return strPtr(amt.String())
}

// ---------- Queries ----------

// GetSession payload: "sessionId". Returns the session as JSON.
func GetSession(payload *string, chain Chain) *string {
	id, err := singleField(payload)
	if failed(chain, err) {
		return nil
	}
	s, err := New(chain).GetSession(id)
	if failed(chain, err) {
		return nil
	}
	return jsonResult(chain, s, "session")
}

// GetPlayerStats payload: "player"; empty means the caller.
func GetPlayerStats(payload *string, chain Chain) *string {
	player, err := singleField(payload)
	if failed(chain, err) {
		return nil
	}
	l := New(chain)
	if player == "" {
		player = l.sender().String()
	}
	p, err := l.GetPlayerStats(sdk.Address(player))
	if failed(chain, err) {
		return nil
	}
	return jsonResult(chain, p, "player stats")
}

// GetLeaderboard ignores its payload and returns the top players as a JSON
// array, best first.
func GetLeaderboard(payload *string, chain Chain) *string {
	board, err := New(chain).GetLeaderboard()
	if failed(chain, err) {
		return nil
	}
	return jsonResult(chain, board, "leaderboard")
}

// GetConfig ignores its payload and returns the ledger configuration.
func GetConfig(payload *string, chain Chain) *string {
	c, err := New(chain).GetConfig()
	if failed(chain, err) {
		return nil
	}
	return jsonResult(chain, c, "config")
}
