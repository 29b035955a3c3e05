package engine

import "errors"

var (
	ErrInvalidCapital        = errors.New("initial capital must be positive")
	ErrInsufficientCash      = errors.New("insufficient cash for trade")
	ErrInsufficientShares    = errors.New("insufficient shares, short selling not allowed")
	ErrInvalidTradeParameter = errors.New("invalid trade parameter")
	ErrUnknownSide           = errors.New("unknown trade side")
	ErrDataUnavailable       = errors.New("market data unavailable")
	ErrSessionState          = errors.New("operation not allowed in current session state")
	ErrSessionStopped        = errors.New("session stopped by caller")
	ErrEmptyHistory          = errors.New("no daily snapshots recorded")
	ErrCriticalAlert         = errors.New("session halted by critical risk alert")
)
