// Package adserr defines the error taxonomy shared by the serving and
// earnings cores. Callers classify failures with errors.Is; nothing in the
// core retries internally.
package adserr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input. Caller bug, not
	// retryable.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState marks an entity that is not in the lifecycle state a
	// transition requires. Usually a duplicate or late call; safe to ignore.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound marks an unknown identifier.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateSession is the antifraud throttle: the same session
	// produced an impression within the duplicate window.
	ErrDuplicateSession = errors.New("duplicate session")

	// ErrFraudRejected is terminal for the impression.
	ErrFraudRejected = errors.New("fraud impression")

	// ErrCaptchaRequired is terminal for the impression.
	ErrCaptchaRequired = errors.New("captcha not verified")

	// ErrOrderDepleted means the backing order is not active or has no
	// impressions left; the caller should fall back to another ad.
	ErrOrderDepleted = errors.New("order not active or depleted")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
