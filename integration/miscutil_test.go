// Copyright 2025 Joseph Cumines

package integration

import (
	"context"
	"fmt"
	"time"
)

// PollUntilContext checks a condition repeatedly until it returns true or the
// context is cancelled. Use this to wait for asynchronous operations instead
// of sleeping.
func PollUntilContext(ctx context.Context, interval time.Duration, condition func() (bool, error)) error {
	// Fast path
	if done, err := condition(); err != nil {
		return err
	} else if done {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("PollUntilContext: context cancelled: %w", ctx.Err())
		case <-ticker.C:
			done, err := condition()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}
