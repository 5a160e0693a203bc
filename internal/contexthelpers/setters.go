package contexthelpers

import (
	"context"
	"net/http"
)

func withValue(r *http.Request, key contextKey, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), key, value))
}

func SetCandidateID(r *http.Request, candidateID string) *http.Request {
	return withValue(r, candidateIDContextKey, candidateID)
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	return withValue(r, currentPathContextKey, currentPath)
}

func SetCSRFToken(r *http.Request, csrfToken string) *http.Request {
	return withValue(r, csrfTokenContextKey, csrfToken)
}

func SetCSPNonce(r *http.Request, nonce string) *http.Request {
	return withValue(r, cspNonceContextKey, nonce)
}
