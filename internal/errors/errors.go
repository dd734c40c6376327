package errors

import "errors"

// Client errors.
var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrNoConversation = errors.New("no conversation open")
)

// Bridge/transport errors.
var (
	ErrBackendStatus = errors.New("backend reported error")
	ErrBadResponse   = errors.New("malformed backend response")
)
