package contract

import (
	"fmt"
	"testing"

	"okinoko-higher_lower/sdk"
)

// fakeChain is an in-memory host for unit tests. Abort panics like the real
// host does; unlike the real host it keeps writes made before an abort, so
// tests can check that the ledger validated before writing.
type fakeChain struct {
	state    map[string]string
	env      sdk.Env
	wallets  map[sdk.Address]sdk.Amount
	contract sdk.Amount
	logs     []string
	writes   int
	aborted  bool
	abortMsg string
}

func newFakeChain(sender string) *fakeChain {
	return &fakeChain{
		state:   make(map[string]string),
		env:     sdk.NewEnv(sdk.Address(sender), "tx1", "2025-09-03T00:00:01", nil),
		wallets: make(map[sdk.Address]sdk.Amount),
	}
}

func (f *fakeChain) as(sender string) *fakeChain {
	f.env.Sender.Address = sdk.Address(sender)
	f.env.Intents = nil
	return f
}

func (f *fakeChain) at(ts string) *fakeChain {
	f.env.Timestamp = ts
	return f
}

func (f *fakeChain) attach(limit, token string) *fakeChain {
	f.env.Intents = []sdk.Intent{{
		Type: "transfer.allow",
		Args: map[string]string{"limit": limit, "token": token},
	}}
	return f
}

func (f *fakeChain) fund(addr string, amount uint64) {
	f.wallets[sdk.Address(addr)] = f.wallets[sdk.Address(addr)].SaturatingAdd(sdk.AmountFromUint64(amount))
}

func (f *fakeChain) wallet(addr string) sdk.Amount { return f.wallets[sdk.Address(addr)] }

func (f *fakeChain) StateSetObject(key, value string) {
	f.writes++
	f.state[key] = value
}

func (f *fakeChain) StateGetObject(key string) *string {
	val, ok := f.state[key]
	if !ok {
		return nil
	}
	return &val
}

func (f *fakeChain) Abort(msg string) {
	f.aborted = true
	f.abortMsg = msg
	panic(fmt.Sprintf("Abort called: %s", msg))
}

func (f *fakeChain) Log(msg string) { f.logs = append(f.logs, msg) }

func (f *fakeChain) GetEnv() sdk.Env { return f.env }

func (f *fakeChain) Draw(amount sdk.Amount, asset sdk.Asset) {
	from := f.env.Sender.Address
	left, ok := f.wallets[from].Sub(amount)
	if !ok {
		f.Abort("insufficient funds")
	}
	f.wallets[from] = left
	f.contract = f.contract.SaturatingAdd(amount)
}

func (f *fakeChain) Transfer(to sdk.Address, amount sdk.Amount, asset sdk.Asset) {
	left, ok := f.contract.Sub(amount)
	if !ok {
		f.Abort("contract balance too low")
	}
	f.contract = left
	f.wallets[to] = f.wallets[to].SaturatingAdd(amount)
}

func (f *fakeChain) Balance(asset sdk.Asset) sdk.Amount { return f.contract }

// snapshot copies the state map for before/after comparisons.
func (f *fakeChain) snapshot() map[string]string {
	out := make(map[string]string, len(f.state))
	for k, v := range f.state {
		out[k] = v
	}
	return out
}

// expectAbort checks for an Abort panic whose message starts with the given
// ledger error. Use it deferred.
func expectAbort(t *testing.T, chain *fakeChain, want error) {
	t.Helper()
	if r := recover(); r == nil {
		t.Errorf("expected Abort panic, but function did not panic")
		return
	}
	if !chain.aborted {
		t.Errorf("expected Abort to be called")
	}
	if KindOfMessage(chain.abortMsg) != KindOf(want) {
		t.Errorf("expected abort of kind %s, got %q", KindOf(want), chain.abortMsg)
	}
}

// testConfig uses small numbers so tests read like the worked examples.
func testConfig() Config {
	return Config{
		MinStake:   sdk.AmountFromUint64(1_000),
		MaxStake:   sdk.AmountFromUint64(10_000_000),
		FeePercent: 5,
		Reserve:    sdk.AmountFromUint64(500),
		Asset:      sdk.AssetNear,
	}
}

// setupLedger initializes the ledger with testConfig as "owner" and seeds
// the contract account with liquidity for payouts.
func setupLedger(t *testing.T) *fakeChain {
	t.Helper()
	chain := newFakeChain("owner")
	if err := New(chain).Init(testConfig()); err != nil {
		t.Fatalf("init: %v", err)
	}
	chain.contract = sdk.AmountFromUint64(5_000_000)
	return chain
}
