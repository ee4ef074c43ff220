package engine

import "errors"

// MaxRestSeconds caps a rest timer target, including extensions.
const MaxRestSeconds = 24 * 60 * 60

var (
	ErrUnknownTimer      = errors.New("rest timer not found")
	ErrUnknownSession    = errors.New("workout session not found")
	ErrSessionExists     = errors.New("workout session already active")
	ErrForbidden         = errors.New("caller does not own this session")
	ErrInvalidDuration   = errors.New("duration must be positive and at most 24h")
	ErrInvalidPatch      = errors.New("invalid session patch")
	ErrGymMasterDisabled = errors.New("gym master mode is disabled")
)

// Caller identifies who is invoking a mutating operation. A self-service
// caller may only act on its own session; an operator caller, obtainable
// only through GymMaster, may act on any session.
type Caller struct {
	userID   string
	operator bool
}

// AsUser returns a self-service caller for userID.
func AsUser(userID string) Caller {
	return Caller{userID: userID}
}

// UserID returns the caller's own user ID, empty for operators.
func (c Caller) UserID() string {
	return c.userID
}

// Operator reports whether the caller carries gym master scope.
func (c Caller) Operator() bool {
	return c.operator
}

func (c Caller) authorize(owner string) error {
	if c.operator {
		return nil
	}
	if c.userID == "" || c.userID != owner {
		return ErrForbidden
	}
	return nil
}
