package contract

import (
	"errors"
	"strings"
)

var (
	ErrInvalidStake       = errors.New("ledger: invalid stake")
	ErrDuplicateSession   = errors.New("ledger: duplicate session")
	ErrNotFound           = errors.New("ledger: not found")
	ErrUnauthorized       = errors.New("ledger: unauthorized")
	ErrSessionClosed      = errors.New("ledger: session closed")
	ErrScoreLimit         = errors.New("ledger: score limit reached")
	ErrInvalidInput       = errors.New("ledger: invalid input")
	ErrInsufficientFunds  = errors.New("ledger: insufficient contract balance")
	ErrNotInitialized     = errors.New("ledger: not initialized")
	ErrAlreadyInitialized = errors.New("ledger: already initialized")
	ErrInvalidConfig      = errors.New("ledger: invalid config")
	ErrCorruptState       = errors.New("ledger: corrupt state")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidStake, "InvalidStake"},
	{ErrDuplicateSession, "DuplicateSession"},
	{ErrNotFound, "NotFound"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrSessionClosed, "SessionClosed"},
	{ErrScoreLimit, "ScoreLimit"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrInsufficientFunds, "InsufficientFunds"},
	{ErrNotInitialized, "NotInitialized"},
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrInvalidConfig, "InvalidConfig"},
	{ErrCorruptState, "CorruptState"},
}

// KindOf names the ledger error kind of err, or "Internal".
func KindOf(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}

// KindOfMessage recovers the error kind from an abort message, which is
// always the Error() text of a wrapped ledger error.
func KindOfMessage(msg string) string {
	for _, k := range errorKinds {
		if strings.HasPrefix(msg, k.err.Error()) {
			return k.kind
		}
	}
	return "Internal"
}
