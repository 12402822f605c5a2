package contract

import (
	"fmt"

	"okinoko-higher_lower/sdk"
)

//
// Session lifecycle: Active on open, Closed exactly once.
//
// Every operation loads and validates everything it needs, then performs
// its writes and transfers as the last step. The host discards all of
// them together if anything aborts.
//

// AttachedStake reads the stake the caller attached through a
// transfer.allow intent. A missing intent counts as a zero stake.
func (l *Ledger) AttachedStake() (sdk.Amount, error) {
	cfg, err := loadConfig(l.chain)
	if err != nil {
		return sdk.Amount{}, err
	}
	ta, err := GetFirstTransferAllow(l.chain.GetEnv().Intents)
	if err != nil {
		return sdk.Amount{}, err
	}
	if ta == nil {
		return sdk.Amount{}, nil
	}
	if ta.Token != cfg.Asset {
		return sdk.Amount{}, fmt.Errorf("%w: stake must be attached in %s, got %s", ErrInvalidInput, cfg.Asset, ta.Token)
	}
	return ta.Limit, nil
}

// OpenSession escrows stake from the caller and creates an Active session.
func (l *Ledger) OpenSession(id string, stake sdk.Amount) (string, error) {
	cfg, err := loadConfig(l.chain)
	if err != nil {
		return "", err
	}
	if err := validateSessionID(id); err != nil {
		return "", err
	}
	sender := l.sender()
	if err := validateAddress(sender); err != nil {
		return "", err
	}
	if stake.Cmp(cfg.MinStake) < 0 || stake.Cmp(cfg.MaxStake) > 0 {
		return "", fmt.Errorf("%w: %s not within [%s, %s]", ErrInvalidStake, stake, cfg.MinStake, cfg.MaxStake)
	}
	if stateExists(l.chain, sessionKey(id)) {
		return "", fmt.Errorf("%w: %q", ErrDuplicateSession, id)
	}
	ts, err := l.now()
	if err != nil {
		return "", err
	}

	s := &Session{
		ID:       id,
		Owner:    sender,
		Stake:    stake,
		Asset:    cfg.Asset,
		Score:    0,
		Round:    1,
		Status:   Active,
		OpenedAt: ts,
	}

	l.chain.Draw(stake, cfg.Asset)
	saveSession(l.chain, s)
	EmitSessionOpened(l.chain, s)
	return id, nil
}

// ownedActiveSession loads id and checks, in order, that it exists, that
// the caller owns it and that it is still active.
func (l *Ledger) ownedActiveSession(id string) (*Session, error) {
	if err := validateSessionID(id); err != nil {
		return nil, err
	}
	s, err := loadSession(l.chain, id)
	if err != nil {
		return nil, err
	}
	if s.Owner != l.sender() {
		return nil, fmt.Errorf("%w: session %q belongs to another player", ErrUnauthorized, id)
	}
	if s.Status != Active {
		return nil, fmt.Errorf("%w: %q", ErrSessionClosed, id)
	}
	return s, nil
}

// RecordProgress adds exactly one point to an active session and returns
// the new score.
func (l *Ledger) RecordProgress(id string) (uint64, error) {
	s, err := l.ownedActiveSession(id)
	if err != nil {
		return 0, err
	}
	if s.Score >= MaxScore {
		return 0, fmt.Errorf("%w: %d", ErrScoreLimit, MaxScore)
	}

	s.Score++
	s.Round++
	saveSession(l.chain, s)
	EmitProgressRecorded(l.chain, s)
	return s.Score, nil
}

// CloseSession settles an active session: it stamps the close time, pays
// the reward, and folds the result into the owner's stats and the
// leaderboard. A closed session can never be settled again.
func (l *Ledger) CloseSession(id string) (CloseResult, error) {
	cfg, err := loadConfig(l.chain)
	if err != nil {
		return CloseResult{}, err
	}
	s, err := l.ownedActiveSession(id)
	if err != nil {
		return CloseResult{}, err
	}
	ts, err := l.now()
	if err != nil {
		return CloseResult{}, err
	}
	payout, err := ComputePayout(s.Stake, s.Score, cfg.FeePercent)
	if err != nil {
		return CloseResult{}, err
	}
	if !payout.Reward.IsZero() {
		if bal := l.chain.Balance(s.Asset); bal.Cmp(payout.Reward) < 0 {
			return CloseResult{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, payout.Reward, bal)
		}
	}
	update, err := stageStatsUpdate(l.chain, s.Owner, s.Score, payout.Reward)
	if err != nil {
		return CloseResult{}, err
	}

	s.Status = Closed
	s.ClosedAt = ts
	s.Reward = payout.Reward
	saveSession(l.chain, s)
	update.commit(l.chain)
	if !payout.Reward.IsZero() {
		l.chain.Transfer(s.Owner, payout.Reward, s.Asset)
		EmitSessionClosed(l.chain, s, payout.Fee)
	} else {
		EmitStakeForfeited(l.chain, s)
	}

	return CloseResult{
		Score:      s.Score,
		Reward:     payout.Reward,
		FinalStake: s.Stake,
	}, nil
}
