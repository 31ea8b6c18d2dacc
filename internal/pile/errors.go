package pile

import (
	"context"
	"errors"
	"fmt"
)

// PublishError reports that an event could not be published, either
// because the publisher failed synchronously or because it returned an
// already faulted delivery. The pile mutation it follows is not rolled back.
type PublishError struct {
	EventType string
	Cause     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish domain event '%s': %v", e.EventType, e.Cause)
}

func (e *PublishError) Unwrap() error { return e.Cause }

// CanceledError reports that the publisher returned an already canceled
// delivery. errors.Is(err, context.Canceled) holds.
type CanceledError struct {
	EventType string
	Cause     error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("publishing domain event '%s' was canceled", e.EventType)
}

func (e *CanceledError) Unwrap() error { return e.Cause }

// Is matches context.Canceled even when the delivery carried another cause.
func (e *CanceledError) Is(target error) bool {
	return target == context.Canceled
}

// IsPublishError reports whether err is or wraps a *PublishError.
func IsPublishError(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe)
}

// IsCanceled reports whether err is or wraps a *CanceledError.
func IsCanceled(err error) bool {
	var ce *CanceledError
	return errors.As(err, &ce)
}
