package httpclient

import (
	"fmt"
	"net/http"

	"github.com/kbukum/mobilitykit/errors"
)

const maxErrorBody = 512

// ClassifyStatusCode converts a non-2xx status into an AppError. It returns
// nil for 2xx.
func ClassifyStatusCode(service string, statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	var err *errors.AppError
	switch {
	case statusCode == http.StatusNotFound:
		err = errors.NotFound(service+" resource", "")
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		err = errors.ExternalServiceError(service, fmt.Errorf("HTTP %d", statusCode))
	default:
		err = errors.ExternalServiceError(service, fmt.Errorf("HTTP %d", statusCode))
		err.Retryable = false
	}
	err = err.WithDetail("status_code", statusCode)
	if len(body) > 0 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		err = err.WithDetail("body", string(body))
	}
	return err
}

// NewTimeoutError reports a request that ran out of time.
func NewTimeoutError(service string, cause error) error {
	return errors.New(errors.ErrCodeTimeout,
		fmt.Sprintf("the %s service did not answer in time", service), http.StatusGatewayTimeout).
		WithCause(cause)
}

// NewConnectionError reports a request that never got an answer.
func NewConnectionError(service string, cause error) error {
	return errors.ExternalServiceError(service, cause)
}

// IsRetryable reports whether an error returned by the client is worth
// another attempt.
func IsRetryable(err error) bool {
	appErr, ok := errors.AsAppError(err)
	return ok && appErr.Retryable
}
