package client

import "errors"

// Sentinel errors surfaced to callers of the SIP client's synchronous
// API, matching the error kinds called out for the core.
var (
	ErrAlreadyRunning     = errors.New("client: already running")
	ErrNotRunning         = errors.New("client: not running")
	ErrInvalidCredentials = errors.New("client: invalid credentials")
	ErrBadRequest         = errors.New("client: server rejected request as malformed")
	ErrTimeout            = errors.New("client: timed out waiting for a reply")
	ErrTransport          = errors.New("client: transport failure")
	ErrInvalidState       = errors.New("client: operation not valid in current state")
)
