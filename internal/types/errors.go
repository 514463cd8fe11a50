package types

import (
	"errors"
	"fmt"

	"github.com/hanulsoft/blogpilot/internal/db/models"
)

// ServiceError carries the failure classification of a stage across the
// pipeline boundary. Every fault that reaches the orchestrator is wrapped in
// one, so the UI only ever sees a failure kind plus one human-readable
// message.
type ServiceError struct {
	Kind      models.FailureKind
	Retryable bool
	Message   string // user-facing message
	Err       error  // underlying fault, for logs only
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying fault
func (e *ServiceError) Unwrap() error { return e.Err }

// NewTransient wraps a retryable service fault (timeout, 5xx, rate limited)
func NewTransient(message string, err error) *ServiceError {
	return &ServiceError{Kind: models.FailureTransient, Retryable: true, Message: message, Err: err}
}

// NewAuthFailure wraps a credential rejection or a CAPTCHA/2FA challenge.
// Never retried automatically.
func NewAuthFailure(message string, err error) *ServiceError {
	return &ServiceError{Kind: models.FailureAuthentication, Retryable: false, Message: message, Err: err}
}

// NewContentPolicy wraps a platform-side content rejection (duplicate post,
// spam detection). Terminal.
func NewContentPolicy(message string, err error) *ServiceError {
	return &ServiceError{Kind: models.FailureContentPolicy, Retryable: false, Message: message, Err: err}
}

// NewConfiguration wraps a missing key or credential. Fails the job before
// any stage executes.
func NewConfiguration(message string) *ServiceError {
	return &ServiceError{Kind: models.FailureConfiguration, Retryable: false, Message: message}
}

// Classify returns the ServiceError wrapped in err, or wraps an unclassified
// fault as a non-retryable transient failure so that no raw internal error
// ever reaches the UI.
func Classify(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return &ServiceError{
		Kind:    models.FailureTransient,
		Message: "포스팅 중 오류가 발생했습니다",
		Err:     err,
	}
}

// IsRetryable reports whether err is a retryable service fault
func IsRetryable(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Retryable
	}
	return false
}
