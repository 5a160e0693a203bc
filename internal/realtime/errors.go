package realtime

import "fmt"

// CredentialError is returned when the realtime service refuses to issue a short-lived credential.
type CredentialError struct {
	StatusCode int
	// Body is the upstream response body, kept for diagnosing quota and authentication problems.
	Body string
	Err  error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request credential: %v", e.Err)
	}
	return fmt.Sprintf("request credential: upstream status %d: %s", e.StatusCode, e.Body)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// NegotiationError is returned when the realtime service rejects an SDP offer.
type NegotiationError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *NegotiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("negotiate session: %v", e.Err)
	}
	return fmt.Sprintf("negotiate session: %s", e.Status)
}

func (e *NegotiationError) Unwrap() error {
	return e.Err
}
