package session

import "errors"

var (
	ErrOperationInFlight   = errors.New("another auth operation is in flight")
	ErrNotPendingTwoFactor = errors.New("no pending two-factor login")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrSessionSuperseded   = errors.New("session was reset while the call was in flight")
)
