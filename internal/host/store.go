package host

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"go.uber.org/zap"

	"okinoko-higher_lower/sdk"
)

// ContractAccount is the address holding escrowed stakes and the fee pool.
const ContractAccount sdk.Address = "contract:ledger"

// Key namespaces inside the badger keyspace.
const (
	statePrefix   = "c/"
	accountPrefix = "a_"
)

func stateKey(key string) []byte { return []byte(statePrefix + key) }

func accountKey(asset sdk.Asset, addr sdk.Address) []byte {
	return []byte(accountPrefix + asset.String() + ":" + addr.String())
}

// StoreOptions selects where the store lives.
type StoreOptions struct {
	Dir      string
	InMemory bool
}

// Store is the badger database backing contract state and accounts.
type Store struct {
	db *badger.DB
}

// OpenStore opens or creates the database.
func OpenStore(opts StoreOptions, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	bo := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{log.Named("badger").Sugar()})
	if opts.InMemory {
		bo = bo.WithInMemory(true).WithDir("").WithValueDir("")
	} else if opts.Dir == "" {
		return nil, errors.New("store: data dir is required unless in-memory")
	}
	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// badgerLogger routes badger's logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}

// ---------- accounts ----------

func getAmount(txn *badger.Txn, key []byte) (sdk.Amount, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return sdk.Amount{}, nil
	}
	if err != nil {
		return sdk.Amount{}, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return sdk.Amount{}, err
	}
	if len(raw) != 16 {
		return sdk.Amount{}, fmt.Errorf("account %q: corrupt balance of %d bytes", key, len(raw))
	}
	var b [16]byte
	copy(b[:], raw)
	return sdk.AmountFromBytes16(b), nil
}

func putAmount(txn *badger.Txn, key []byte, a sdk.Amount) error {
	b := a.Bytes16()
	return txn.Set(key, b[:])
}

// credit adds amount to an account, failing when the balance would leave
// the 128-bit range.
func credit(txn *badger.Txn, asset sdk.Asset, addr sdk.Address, amount sdk.Amount) error {
	key := accountKey(asset, addr)
	bal, err := getAmount(txn, key)
	if err != nil {
		return err
	}
	next, ok := bal.Add(amount)
	if !ok {
		return fmt.Errorf("%w: %s balance overflows", sdk.ErrAmountRange, addr)
	}
	return putAmount(txn, key, next)
}

// debit removes amount from an account. It returns ErrInsufficientBalance
// without writing when the account holds less.
func debit(txn *badger.Txn, asset sdk.Asset, addr sdk.Address, amount sdk.Amount) error {
	key := accountKey(asset, addr)
	bal, err := getAmount(txn, key)
	if err != nil {
		return err
	}
	next, ok := bal.Sub(amount)
	if !ok {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientBalance, addr, bal, asset, amount)
	}
	return putAmount(txn, key, next)
}
