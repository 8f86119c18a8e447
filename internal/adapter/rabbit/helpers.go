package rabbit

import (
	"errors"
	"time"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

// isRecoverableError returns true if the delivery should be requeued.
// Validation failures are final; only infrastructure hiccups deserve a
// retry.
func isRecoverableError(err error) bool {
	return !oneOf(err, types.ErrInvalidCoordinates, types.ErrCourierNotFound)
}

func oneOf(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for range n {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}
