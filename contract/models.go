package contract

import "okinoko-higher_lower/sdk"

// Response shapes returned by the entry points.

// CloseResult is returned by CloseSession.
type CloseResult struct {
	Score      uint64     `json:"score"`
	Reward     sdk.Amount `json:"reward"`
	FinalStake sdk.Amount `json:"finalStake"`
}

// ConfigView is the public projection of Config.
type ConfigView struct {
	MinStake   sdk.Amount  `json:"minStake"`
	MaxStake   sdk.Amount  `json:"maxStake"`
	FeePercent uint8       `json:"feePercent"`
	Reserve    sdk.Amount  `json:"reserve"`
	Asset      sdk.Asset   `json:"asset"`
	Owner      sdk.Address `json:"owner"`
	MaxScore   uint64      `json:"maxScore"`
}

func (c Config) View() ConfigView {
	return ConfigView{
		MinStake:   c.MinStake,
		MaxStake:   c.MaxStake,
		FeePercent: c.FeePercent,
		Reserve:    c.Reserve,
		Asset:      c.Asset,
		Owner:      c.Owner,
		MaxScore:   MaxScore,
	}
}
