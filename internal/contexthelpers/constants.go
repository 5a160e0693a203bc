package contexthelpers

type contextKey int

const (
	candidateIDContextKey contextKey = iota
	currentPathContextKey
	csrfTokenContextKey
	cspNonceContextKey
)
