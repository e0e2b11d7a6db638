package state

import "errors"

var (
	ErrMarketClosed       = errors.New("market closed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrInvalidOrder       = errors.New("invalid order parameters")
	ErrUnknownInstrument  = errors.New("unknown instrument")
	ErrInvalidName        = errors.New("invalid participant name")
)
