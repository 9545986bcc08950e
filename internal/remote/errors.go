package remote

import (
	"errors"
	"fmt"
)

// DeliveryError reports a failed delivery attempt: a network failure, a
// timeout, or a non-success server response. The client never retries
// internally; retry policy belongs entirely to the sync controller, which
// converts this error into "stay queued".
type DeliveryError struct {
	TargetID   int64
	StatusCode int // 0 when the request never reached the server
	Err        error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery failed for target %d: server returned %d", e.TargetID, e.StatusCode)
	}
	return fmt.Sprintf("delivery failed for target %d: %v", e.TargetID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryError reports whether err is (or wraps) a DeliveryError.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
