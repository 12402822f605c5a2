package contract

import (
	"fmt"
	"strings"

	"okinoko-higher_lower/sdk"
)

// Defaults match a NEAR deployment in yoctoNEAR: stakes of 1..10 NEAR, a
// 5% fee and 1 NEAR kept back for contract operations.
var (
	DefaultMinStake   = sdk.MustParseAmount("1000000000000000000000000")
	DefaultMaxStake   = sdk.MustParseAmount("10000000000000000000000000")
	DefaultReserve    = sdk.MustParseAmount("1000000000000000000000000")
	DefaultFeePercent = uint8(5)
	DefaultAsset      = sdk.AssetNear
)

// DefaultConfig returns the default configuration owned by owner.
func DefaultConfig(owner sdk.Address) Config {
	return Config{
		Owner:      owner,
		MinStake:   DefaultMinStake,
		MaxStake:   DefaultMaxStake,
		FeePercent: DefaultFeePercent,
		Reserve:    DefaultReserve,
		Asset:      DefaultAsset,
	}
}

// Validate checks the bounds and that the best possible payout, the
// maximum stake at MaxScore, stays inside 128 bits.
func (c Config) Validate() error {
	if err := validateAddress(c.Owner); err != nil {
		return fmt.Errorf("%w: owner: %v", ErrInvalidConfig, err)
	}
	if c.MinStake.IsZero() {
		return fmt.Errorf("%w: min stake must be positive", ErrInvalidConfig)
	}
	if c.MinStake.Cmp(c.MaxStake) > 0 {
		return fmt.Errorf("%w: min stake %s above max stake %s", ErrInvalidConfig, c.MinStake, c.MaxStake)
	}
	if c.FeePercent > 100 {
		return fmt.Errorf("%w: fee percent %d above 100", ErrInvalidConfig, c.FeePercent)
	}
	if c.Asset == "" || len(c.Asset) > 16 {
		return fmt.Errorf("%w: asset %q", ErrInvalidConfig, c.Asset)
	}
	if _, err := ComputePayout(c.MaxStake, MaxScore, 0); err != nil {
		return fmt.Errorf("%w: max stake %s overflows the payout range", ErrInvalidConfig, c.MaxStake)
	}
	return nil
}

// parseInitArgs reads "min|max|fee|reserve|asset". Empty fields keep the
// defaults; the owner is always the caller.
func parseInitArgs(payload string, owner sdk.Address) (Config, error) {
	c := DefaultConfig(owner)
	in := payload
	fields := [5]string{}
	for i := range fields {
		fields[i] = nextField(&in)
	}
	if in != "" {
		return Config{}, fmt.Errorf("%w: too many arguments", ErrInvalidInput)
	}
	var err error
	if fields[0] != "" {
		if c.MinStake, err = sdk.ParseAmount(fields[0]); err != nil {
			return Config{}, fmt.Errorf("%w: min stake: %v", ErrInvalidConfig, err)
		}
	}
	if fields[1] != "" {
		if c.MaxStake, err = sdk.ParseAmount(fields[1]); err != nil {
			return Config{}, fmt.Errorf("%w: max stake: %v", ErrInvalidConfig, err)
		}
	}
	if fields[2] != "" {
		if c.FeePercent, err = parseU8(fields[2]); err != nil {
			return Config{}, fmt.Errorf("%w: fee percent: %v", ErrInvalidConfig, err)
		}
	}
	if fields[3] != "" {
		if c.Reserve, err = sdk.ParseAmount(fields[3]); err != nil {
			return Config{}, fmt.Errorf("%w: reserve: %v", ErrInvalidConfig, err)
		}
	}
	if fields[4] != "" {
		c.Asset = sdk.Asset(strings.ToLower(fields[4]))
	}
	return c, nil
}

// Init records the configuration once. The caller becomes the owner.
func (l *Ledger) Init(c Config) error {
	if stateExists(l.chain, configKey()) {
		return ErrAlreadyInitialized
	}
	c.Owner = l.sender()
	if err := c.Validate(); err != nil {
		return err
	}
	saveConfig(l.chain, &c)
	EmitLedgerInitialized(l.chain, &c)
	return nil
}

// WithdrawFees transfers everything above the reserve to the owner and
// returns the amount moved. A balance at or below the reserve is a no-op.
func (l *Ledger) WithdrawFees() (sdk.Amount, error) {
	cfg, err := loadConfig(l.chain)
	if err != nil {
		return sdk.Amount{}, err
	}
	if l.sender() != cfg.Owner {
		return sdk.Amount{}, fmt.Errorf("%w: only %s can withdraw fees", ErrUnauthorized, cfg.Owner)
	}
	available, ok := l.chain.Balance(cfg.Asset).Sub(cfg.Reserve)
	if !ok || available.IsZero() {
		return sdk.Amount{}, nil
	}

	l.chain.Transfer(cfg.Owner, available, cfg.Asset)
	EmitFeesWithdrawn(l.chain, cfg.Owner, available)
	return available, nil
}
