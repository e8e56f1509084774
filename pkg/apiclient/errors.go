package apiclient

import (
	"errors"
	"fmt"
)

// ErrAuthRequired means the client holds no usable credentials: either the
// refresh token was rejected, or a replayed call was rejected again after a
// successful refresh. The caller should route the user to sign-in.
var ErrAuthRequired = errors.New("authentication required")

// APIError is any non-2xx response that is not an authorization or quota
// failure. It carries the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// QuotaError is the 402 payment-required class: the plan allowance is
// spent. It is a business-state signal, never retried and never treated
// as a credential problem.
type QuotaError struct {
	Code    string
	Message string
}

func (e *QuotaError) Error() string {
	if e.Message != "" {
		return "quota exceeded: " + e.Message
	}
	return "quota exceeded"
}

// IsQuotaError reports whether err is the payment-required class.
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
