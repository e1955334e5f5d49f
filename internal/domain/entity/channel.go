package entity

import (
	"errors"
	"fmt"
	"time"
)

// Remote error codes the sync engine reacts to
const (
	RemoteErrAuth      = "auth"
	RemoteErrNotFound  = "not_found"
	RemoteErrRateLimit = "rate_limit"
	RemoteErrTimeout   = "timeout"
	RemoteErrServer    = "server"
	RemoteErrBadInput  = "bad_input"
)

// RemoteError classifies a channel-manager call failure. Transient errors
// are retried within a run; permanent ones are not.
type RemoteError struct {
	Code      string
	Message   string
	Status    int
	Transient bool
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("channel manager error %s (%d): %s", e.Code, e.Status, e.Message)
}

// IsTransientRemote reports whether err is a retryable channel failure
func IsTransientRemote(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Transient
	}
	return false
}

// IsAuthFailure reports whether err is a credential failure; these are
// systemic and fail the whole run
func IsAuthFailure(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Code == RemoteErrAuth
}

// RemoteAvailability is one room-night as the channel manager sees it
type RemoteAvailability struct {
	RoomCode  string
	Date      time.Time
	Available bool
	Rate      *float64
	UpdatedAt time.Time
}

// RemoteRestriction is one booking rule as the channel manager sees it
type RemoteRestriction struct {
	RoomCode  string
	Kind      string
	Value     int
	Flag      bool
	DateFrom  time.Time
	DateTo    time.Time
	UpdatedAt time.Time
}

// RemoteRate is one nightly price as the channel manager sees it
type RemoteRate struct {
	RoomCode  string
	Date      time.Time
	Rate      float64
	UpdatedAt time.Time
}
