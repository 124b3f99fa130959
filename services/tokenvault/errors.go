package tokenvault

import "fmt"

// NotConnectedError means the user has no stored credential; the account was
// never connected or has been disconnected.
type NotConnectedError struct {
	UserID string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("user %s has no connected fitness account", e.UserID)
}

// CredentialExpiredError means the refresh grant itself was rejected. The
// user must re-authorize; no retry will help.
type CredentialExpiredError struct {
	UserID string
}

func (e *CredentialExpiredError) Error() string {
	return fmt.Sprintf("stored credential for user %s is no longer valid, reconnect required", e.UserID)
}
