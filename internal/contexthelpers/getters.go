package contexthelpers

import (
	"context"
)

// stringValue returns the string stored under key or "" when the request never set it.
func stringValue(ctx context.Context, key contextKey) string {
	value, _ := ctx.Value(key).(string)
	return value
}

// CandidateID returns the anonymous identity of the candidate taking interviews in this browser session.
func CandidateID(ctx context.Context) string {
	return stringValue(ctx, candidateIDContextKey)
}

func CurrentPath(ctx context.Context) string {
	return stringValue(ctx, currentPathContextKey)
}

// CSRFToken returns the token page scripts send in the X-CSRF-Token header.
func CSRFToken(ctx context.Context) string {
	return stringValue(ctx, csrfTokenContextKey)
}

func CSPNonce(ctx context.Context) string {
	return stringValue(ctx, cspNonceContextKey)
}
