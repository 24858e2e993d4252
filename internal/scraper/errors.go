package scraper

import "errors"

var (
	// ErrRateLimited is returned when the upstream answers 429.
	ErrRateLimited = errors.New("scraper: rate limited")
	// ErrServerError is returned when the upstream answers 5xx.
	ErrServerError = errors.New("scraper: server error")
	// ErrRequestFailed is returned for non-retryable 4xx answers.
	ErrRequestFailed = errors.New("scraper: request failed")
	// ErrFetchExhausted wraps the last error once retries are used up.
	ErrFetchExhausted = errors.New("scraper: retries exhausted")
)

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
