package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plylist/internal/shared"
)

// ErrorKind classifies platform failures for retry and propagation decisions.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuth
	KindNotFound
	KindRateLimited
	KindTransient
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth error"
	case KindNotFound:
		return "not found"
	case KindRateLimited:
		return "rate limited"
	case KindTransient:
		return "transient network error"
	case KindProtocol:
		return "protocol error"
	default:
		return "unknown error"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindAuth:
		return shared.ErrAuthFailed
	case KindNotFound:
		return shared.ErrRemoteNotFound
	case KindRateLimited:
		return shared.ErrRateLimited
	case KindTransient:
		return shared.ErrNetwork
	case KindProtocol:
		return shared.ErrProtocol
	default:
		return nil
	}
}

// PlatformError is returned by every [Platform] call that fails remotely.
type PlatformError struct {
	Kind       ErrorKind
	Platform   string
	Op         string
	Status     int           // HTTP status, zero when no response was received
	RetryAfter time.Duration // server-requested wait for [KindRateLimited]
	Err        error
}

func (e *PlatformError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Platform, e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PlatformError) Unwrap() error { return e.Err }

// Is matches the shared sentinel for the error's kind, so errors.Is(err, shared.ErrRateLimited) holds for a
// rate-limited PlatformError.
func (e *PlatformError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newPlatformError(kind ErrorKind, platform, op string, err error) *PlatformError {
	return &PlatformError{Kind: kind, Platform: platform, Op: op, Err: err}
}

// KindOf returns the kind of the first [PlatformError] in err's chain.
func KindOf(err error) ErrorKind {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// RetryAfter returns the server-requested wait carried by err, if any.
func RetryAfter(err error) time.Duration {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}

// IsRetryable reports whether err is rate limiting or a transient network failure.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTransient:
		return true
	}
	return false
}
