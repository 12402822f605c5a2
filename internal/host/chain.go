package host

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"okinoko-higher_lower/contract"
	"okinoko-higher_lower/sdk"
)

// ErrInsufficientBalance is raised when a caller cannot cover a draw.
var ErrInsufficientBalance = errors.New("host: insufficient balance")

// abortError carries a contract Abort out of the entry point.
type abortError struct {
	msg string
}

// storeError carries a badger failure out of the entry point.
type storeError struct {
	err error
}

// txChain is the contract.Chain of one call. Every effect goes into txn, so
// discarding txn rolls back state, escrow and payouts together.
type txChain struct {
	txn  *badger.Txn
	env  sdk.Env
	logs []string
}

var _ contract.Chain = (*txChain)(nil)

func (c *txChain) fail(err error) {
	if err != nil {
		panic(storeError{err: err})
	}
}

func (c *txChain) StateSetObject(key, value string) {
	c.fail(c.txn.Set(stateKey(key), []byte(value)))
}

func (c *txChain) StateGetObject(key string) *string {
	item, err := c.txn.Get(stateKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	c.fail(err)
	raw, err := item.ValueCopy(nil)
	c.fail(err)
	s := string(raw)
	return &s
}

func (c *txChain) Abort(msg string) {
	panic(abortError{msg: msg})
}

func (c *txChain) Log(msg string) {
	c.logs = append(c.logs, msg)
}

func (c *txChain) GetEnv() sdk.Env {
	return c.env
}

func (c *txChain) Draw(amount sdk.Amount, asset sdk.Asset) {
	if err := debit(c.txn, asset, c.env.Sender.Address, amount); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			c.Abort(err.Error())
		}
		c.fail(err)
	}
	c.fail(credit(c.txn, asset, ContractAccount, amount))
}

func (c *txChain) Transfer(to sdk.Address, amount sdk.Amount, asset sdk.Asset) {
	if err := debit(c.txn, asset, ContractAccount, amount); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			c.Abort(fmt.Sprintf("%s: %v", contract.ErrInsufficientFunds, err))
		}
		c.fail(err)
	}
	c.fail(credit(c.txn, asset, to, amount))
}

func (c *txChain) Balance(asset sdk.Asset) sdk.Amount {
	bal, err := getAmount(c.txn, accountKey(asset, ContractAccount))
	c.fail(err)
	return bal
}
