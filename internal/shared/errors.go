package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Platform errors
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrNetwork            = fmt.Errorf("transient network error")
	ErrProtocol           = fmt.Errorf("unexpected response")
	ErrRemoteNotFound     = fmt.Errorf("remote resource not found")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrUnknownPlatform    = fmt.Errorf("unknown platform")

	// Local store errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrCorruptRecord    = fmt.Errorf("corrupt playlist record")

	// Input validation errors
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrMissingArgument    = fmt.Errorf("missing required argument")
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
	ErrUnsupportedFormat  = fmt.Errorf("unsupported format")
	ErrIndexOutOfRange    = fmt.Errorf("index out of range")
	ErrNothingToMerge     = fmt.Errorf("no playlists to merge")
	ErrConfirmationDenied = fmt.Errorf("cancelled")
)
