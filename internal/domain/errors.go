package domain

import "errors"

// Failure taxonomy shared by stores, services and the transport layer.
// Callers match with errors.Is; wrapping adds context, never new kinds.
var (
	// ErrInvalidCredentials is the single opaque login failure. Unknown
	// user, wrong password and deactivated account all map here so the
	// response never leaks which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDenied is the authorizer's verdict for everything short of a
	// grant: expiry, revocation, deactivation, missing capability, or a
	// store outage (fail closed).
	ErrDenied = errors.New("denied")

	// ErrDuplicateIdentity reports a username or email already taken.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrAuditUnavailable aborts a mutation whose audit record could not
	// be made durable.
	ErrAuditUnavailable = errors.New("audit store unavailable")

	// ErrStoreUnavailable marks an infrastructure outage, as opposed to
	// a verdict about the request itself.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrNotFound = errors.New("not found")
)
