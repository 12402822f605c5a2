// Package host runs the ledger contract outside a chain: each call executes
// in one badger transaction with its own environment, and accounts for the
// staking asset live next to the contract state.
package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"okinoko-higher_lower/contract"
	"okinoko-higher_lower/sdk"
)

// timestampLayout is the block time format handed to the contract.
const timestampLayout = "2006-01-02T15:04:05"

// CallError is a rejected call. Kind is a contract error kind, or one of
// UnknownMethod, InsufficientBalance, Conflict and Internal.
type CallError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *CallError) Error() string { return e.Message }

// Call is one contract invocation.
type Call struct {
	Method  string
	Payload string
	Sender  sdk.Address
	Intents []sdk.Intent
}

// Result is the outcome of a committed call.
type Result struct {
	TxID      string   `json:"txId"`
	Timestamp string   `json:"timestamp"`
	Output    string   `json:"result"`
	Logs      []string `json:"logs"`
}

// Options configures a Runtime.
type Options struct {
	// Asset is the account asset used by Deposit and Balance.
	Asset   sdk.Asset
	Logger  *zap.Logger
	Metrics *Metrics
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Runtime executes contract calls against a Store.
type Runtime struct {
	store   *Store
	asset   sdk.Asset
	log     *zap.Logger
	metrics *Metrics
	clock   func() time.Time
	lookup  func(string) (contract.Export, bool)

	shared   sync.Mutex
	sessions keyedMutex

	timeMu sync.Mutex
	last   time.Time
}

// NewRuntime wraps store.
func NewRuntime(store *Store, opts Options) *Runtime {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Asset == "" {
		opts.Asset = contract.DefaultAsset
	}
	return &Runtime{
		store:    store,
		asset:    opts.Asset,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		clock:    opts.Clock,
		lookup:   contract.Lookup,
		sessions: keyedMutex{locks: map[string]*refLock{}},
	}
}

// Call executes c in a single transaction. A contract Abort discards every
// effect and comes back as *CallError.
func (r *Runtime) Call(ctx context.Context, c Call) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := r.call(c)
	outcome := "ok"
	if err != nil {
		outcome = kindOfError(err)
	}
	r.metrics.observe(c.Method, outcome, time.Since(start))

	fields := []zap.Field{
		zap.String("method", c.Method),
		zap.String("sender", c.Sender.String()),
		zap.String("outcome", outcome),
		zap.Duration("took", time.Since(start)),
	}
	switch {
	case err == nil:
		r.log.Debug("call committed", append(fields, zap.String("tx", res.TxID))...)
	case outcome == "Internal" || outcome == "Conflict":
		r.log.Error("call failed", append(fields, zap.Error(err))...)
	default:
		r.log.Debug("call rejected", append(fields, zap.String("reason", err.Error()))...)
	}
	return res, err
}

func (r *Runtime) call(c Call) (*Result, error) {
	exp, ok := r.lookup(c.Method)
	if !ok {
		return nil, &CallError{Kind: "UnknownMethod", Message: fmt.Sprintf("unknown method %q", c.Method)}
	}
	defer r.lock(exp, c.Payload)()

	chain := &txChain{
		env: sdk.NewEnv(c.Sender, uuid.NewString(), r.blockTime(), c.Intents),
	}
	var out *string
	run := func(txn *badger.Txn) error {
		chain.txn = txn
		var err error
		out, err = execute(exp, chain, c.Payload)
		return err
	}

	var err error
	if exp.ReadOnly {
		err = r.store.db.View(run)
	} else {
		err = r.store.db.Update(run)
	}
	if err != nil {
		var ce *CallError
		if errors.As(err, &ce) {
			return nil, ce
		}
		if errors.Is(err, badger.ErrConflict) {
			return nil, &CallError{Kind: "Conflict", Message: err.Error()}
		}
		return nil, fmt.Errorf("%s: %w", c.Method, err)
	}

	res := &Result{
		TxID:      chain.env.TxId,
		Timestamp: chain.env.Timestamp,
		Logs:      chain.logs,
	}
	if out != nil {
		res.Output = *out
	}
	if res.Logs == nil {
		res.Logs = []string{}
	}
	return res, nil
}

// execute runs the entry point and turns Abort panics back into errors.
func execute(exp contract.Export, chain *txChain, payload string) (out *string, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		switch v := rec.(type) {
		case abortError:
			err = &CallError{Kind: kindOfMessage(v.msg), Message: v.msg}
		case storeError:
			err = v.err
		default:
			panic(rec)
		}
	}()
	p := payload
	return exp.Call(&p, chain), nil
}

func kindOfMessage(msg string) string {
	if strings.HasPrefix(msg, ErrInsufficientBalance.Error()) {
		return "InsufficientBalance"
	}
	return contract.KindOfMessage(msg)
}

func kindOfError(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return "Internal"
}

// lock serializes calls per session and calls touching shared state.
// Session locks are always taken before the shared lock.
func (r *Runtime) lock(exp contract.Export, payload string) func() {
	var unlocks []func()
	if exp.SessionArg {
		id, _, _ := strings.Cut(payload, "|")
		unlocks = append(unlocks, r.sessions.Lock(id))
	}
	if exp.Shared {
		r.shared.Lock()
		unlocks = append(unlocks, r.shared.Unlock)
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// blockTime returns the call timestamp. It never goes backwards even if
// the wall clock does.
func (r *Runtime) blockTime() string {
	r.timeMu.Lock()
	defer r.timeMu.Unlock()
	now := r.clock().UTC().Truncate(time.Second)
	if now.Before(r.last) {
		now = r.last
	}
	r.last = now
	return now.Format(timestampLayout)
}

// ---------- accounts ----------

// Deposit credits addr outside of any contract call. It backs the
// development faucet and seeds the contract account with liquidity.
func (r *Runtime) Deposit(ctx context.Context, addr sdk.Address, amount sdk.Amount) (sdk.Amount, error) {
	if err := ctx.Err(); err != nil {
		return sdk.Amount{}, err
	}
	if addr == "" {
		return sdk.Amount{}, &CallError{Kind: "InvalidInput", Message: fmt.Sprintf("cannot deposit to %q", addr)}
	}
	// accounts are also touched by open, close and withdraw
	r.shared.Lock()
	defer r.shared.Unlock()

	var bal sdk.Amount
	err := r.store.db.Update(func(txn *badger.Txn) error {
		if err := credit(txn, r.asset, addr, amount); err != nil {
			return err
		}
		var err error
		bal, err = getAmount(txn, accountKey(r.asset, addr))
		return err
	})
	if err != nil {
		return sdk.Amount{}, fmt.Errorf("deposit: %w", err)
	}
	r.metrics.deposited()
	r.log.Info("deposit", zap.String("to", addr.String()), zap.Stringer("amount", amount))
	return bal, nil
}

// Balance reads an account balance in the runtime asset.
func (r *Runtime) Balance(ctx context.Context, addr sdk.Address) (sdk.Amount, error) {
	if err := ctx.Err(); err != nil {
		return sdk.Amount{}, err
	}
	var bal sdk.Amount
	err := r.store.db.View(func(txn *badger.Txn) error {
		var err error
		bal, err = getAmount(txn, accountKey(r.asset, addr))
		return err
	})
	if err != nil {
		return sdk.Amount{}, fmt.Errorf("balance: %w", err)
	}
	return bal, nil
}

// Asset is the asset Deposit and Balance operate on.
func (r *Runtime) Asset() sdk.Asset { return r.asset }

// ---------- keyed locks ----------

type refLock struct {
	sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
