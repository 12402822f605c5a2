// Package sdk holds the value types shared between the ledger contract and
// the host that executes it: addresses, assets, intents, the call
// environment and u128 amounts.
package sdk

// Address identifies a principal on the host chain, e.g. "hive:alice".
type Address string

func (a Address) String() string { return string(a) }

// Asset is the lower-case symbol of a fungible token, e.g. "near".
type Asset string

func (a Asset) String() string { return string(a) }

const (
	AssetNear Asset = "near"
	AssetHive Asset = "hive"
	AssetHbd  Asset = "hbd"
)

// Intent is a caller-signed permission attached to a transaction.
// The ledger only reads "transfer.allow" intents with "limit" and "token" args.
type Intent struct {
	Type string            `json:"type"`
	Args map[string]string `json:"args"`
}

// Env is the per-call environment supplied by the host.
type Env struct {
	Sender struct {
		Address Address
	}
	TxId string
	// Timestamp is the block time as "YYYY-MM-DDThh:mm:ss" UTC.
	Timestamp string
	Intents   []Intent
}

// NewEnv builds an Env for the given sender.
func NewEnv(sender Address, txID, timestamp string, intents []Intent) Env {
	var e Env
	e.Sender.Address = sender
	e.TxId = txID
	e.Timestamp = timestamp
	e.Intents = intents
	return e
}
