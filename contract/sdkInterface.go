package contract

import "okinoko-higher_lower/sdk"

// Chain is the host surface the ledger runs against. The host executes one
// call at a time and discards every state write, draw and transfer of a
// call that ends in Abort.
type Chain interface {
	StateSetObject(key, value string)
	StateGetObject(key string) *string
	// Abort rejects the current call with msg. It does not return.
	Abort(msg string)
	Log(msg string)
	GetEnv() sdk.Env
	// Draw moves amount from the sender into the contract account.
	Draw(amount sdk.Amount, asset sdk.Asset)
	// Transfer moves amount from the contract account to an address.
	Transfer(to sdk.Address, amount sdk.Amount, asset sdk.Asset)
	// Balance reports the contract account balance.
	Balance(asset sdk.Asset) sdk.Amount
}
