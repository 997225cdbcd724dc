package orchestrator

import (
	"context"
	"time"

	"github.com/alejandrodnm/satbets/internal/domain"
)

// retry runs fn up to attempts times with linear backoff. Business rule
// violations are terminal and returned at once. It returns the number of
// attempts made.
func retry(ctx context.Context, attempts int, wait time.Duration, fn func() error) (int, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 1; ; i++ {
		err = fn()
		if err == nil || domain.IsBusiness(err) || i >= attempts {
			return i, err
		}
		select {
		case <-ctx.Done():
			return i, ctx.Err()
		case <-time.After(wait * time.Duration(i)):
		}
	}
}
