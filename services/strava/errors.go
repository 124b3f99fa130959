package strava

import (
	"errors"
	"fmt"
)

// ErrInvalidGrant is returned by the token endpoint when a refresh or
// authorization-code grant is rejected. The account must be re-authorized.
var ErrInvalidGrant = errors.New("strava: grant rejected by token endpoint")

// UpstreamUnavailableError marks transient upstream failures. The whole sync
// is safe to retry.
type UpstreamUnavailableError struct {
	Err error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("strava upstream unavailable: %v", e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// UpstreamAuthError marks an access token the upstream rejected even though
// it looked live locally. The caller may force one refresh and retry.
type UpstreamAuthError struct {
	Err error
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("strava rejected access token: %v", e.Err)
}

func (e *UpstreamAuthError) Unwrap() error {
	return e.Err
}
