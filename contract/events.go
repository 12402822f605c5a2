package contract

import (
	"okinoko-higher_lower/sdk"
)

// Event represents the common structure for all emitted events.
// Each event has a type and a set of key/value attributes.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// emitEvent logs the event to the host as JSON.
func emitEvent(chain Chain, eventType string, attributes map[string]string) {
	s, err := ToJSON(Event{Type: eventType, Attributes: attributes}, eventType+" event data")
	if err != nil {
		return
	}
	chain.Log(s)
}

// EmitLedgerInitialized emits an event when the configuration is recorded.
func EmitLedgerInitialized(chain Chain, c *Config) {
	emitEvent(chain, "ledgerInitialized", map[string]string{
		"owner":      c.Owner.String(),
		"minStake":   c.MinStake.String(),
		"maxStake":   c.MaxStake.String(),
		"feePercent": UInt64ToString(uint64(c.FeePercent)),
		"asset":      c.Asset.String(),
	})
}

// EmitSessionOpened emits an event when a stake is escrowed for a new session.
func EmitSessionOpened(chain Chain, s *Session) {
	emitEvent(chain, "sessionOpened", map[string]string{
		"id":    s.ID,
		"by":    s.Owner.String(),
		"stake": s.Stake.String(),
		"asset": s.Asset.String(),
	})
}

// EmitProgressRecorded emits an event for every correct answer.
func EmitProgressRecorded(chain Chain, s *Session) {
	emitEvent(chain, "progressRecorded", map[string]string{
		"id":    s.ID,
		"by":    s.Owner.String(),
		"score": UInt64ToString(s.Score),
	})
}

// EmitSessionClosed emits an event when a session ends with a payout.
func EmitSessionClosed(chain Chain, s *Session, fee sdk.Amount) {
	emitEvent(chain, "sessionClosed", map[string]string{
		"id":     s.ID,
		"by":     s.Owner.String(),
		"score":  UInt64ToString(s.Score),
		"reward": s.Reward.String(),
		"fee":    fee.String(),
	})
}

// EmitStakeForfeited emits an event when a session ends with score zero.
func EmitStakeForfeited(chain Chain, s *Session) {
	emitEvent(chain, "stakeForfeited", map[string]string{
		"id":    s.ID,
		"by":    s.Owner.String(),
		"stake": s.Stake.String(),
	})
}

// EmitFeesWithdrawn emits an event when the owner withdraws the pool.
func EmitFeesWithdrawn(chain Chain, to sdk.Address, amount sdk.Amount) {
	emitEvent(chain, "feesWithdrawn", map[string]string{
		"to":     to.String(),
		"amount": amount.String(),
	})
}
