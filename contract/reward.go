package contract

import (
	"fmt"

	"github.com/holiman/uint256"

	"okinoko-higher_lower/sdk"
)

// bonusPercentPerPoint is the stake share added per correct answer.
const bonusPercentPerPoint = 10

// Payout is the integer breakdown of a session settlement.
type Payout struct {
	Bonus  sdk.Amount
	Gross  sdk.Amount
	Fee    sdk.Amount
	Reward sdk.Amount
}

// ComputePayout settles a session with integer arithmetic only:
//
//	bonus  = stake * score * 10 / 100
//	gross  = stake + bonus
//	fee    = gross * feePercent / 100
//	reward = gross - fee
//
// Every division truncates. A score of zero forfeits the stake and pays
// nothing. Intermediates use 256-bit words; a result that does not fit in
// 128 bits is reported as ErrInvalidConfig since Init rules that out.
func ComputePayout(stake sdk.Amount, score uint64, feePercent uint8) (Payout, error) {
	if score == 0 {
		return Payout{}, nil
	}
	if feePercent > 100 {
		return Payout{}, fmt.Errorf("%w: fee percent %d", ErrInvalidConfig, feePercent)
	}
	hundred := uint256.NewInt(100)
	s := stake.Int()

	bonus, overflow := new(uint256.Int).MulOverflow(s, uint256.NewInt(score))
	if !overflow {
		bonus, overflow = bonus.MulOverflow(bonus, uint256.NewInt(bonusPercentPerPoint))
	}
	if overflow {
		return Payout{}, fmt.Errorf("%w: bonus overflows", ErrInvalidConfig)
	}
	bonus.Div(bonus, hundred)

	gross := new(uint256.Int).Add(s, bonus)
	fee := new(uint256.Int).Mul(gross, uint256.NewInt(uint64(feePercent)))
	fee.Div(fee, hundred)
	reward := new(uint256.Int).Sub(gross, fee)

	var p Payout
	var err error
	if p.Bonus, err = sdk.AmountFromInt(bonus); err != nil {
		return Payout{}, fmt.Errorf("%w: bonus: %v", ErrInvalidConfig, err)
	}
	if p.Gross, err = sdk.AmountFromInt(gross); err != nil {
		return Payout{}, fmt.Errorf("%w: gross: %v", ErrInvalidConfig, err)
	}
	if p.Fee, err = sdk.AmountFromInt(fee); err != nil {
		return Payout{}, fmt.Errorf("%w: fee: %v", ErrInvalidConfig, err)
	}
	if p.Reward, err = sdk.AmountFromInt(reward); err != nil {
		return Payout{}, fmt.Errorf("%w: reward: %v", ErrInvalidConfig, err)
	}
	return p, nil
}

// Reward is the amount paid to the player for a session.
func Reward(stake sdk.Amount, score uint64, feePercent uint8) (sdk.Amount, error) {
	p, err := ComputePayout(stake, score, feePercent)
	return p.Reward, err
}
