package testing

import (
	"context"
	"os"
	"testing"
	"time"
)

// AssertEventually fails the test if condition does not hold within timeout
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := WaitForCondition(ctx, condition, 10*time.Millisecond); err != nil {
		t.Fatalf("condition not met within %s: %s", timeout, message)
	}
}

// WaitForCondition polls condition every interval until it holds or ctx ends
func WaitForCondition(ctx context.Context, condition func() bool, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if condition() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SkipWithoutDocker skips integration tests when testcontainers cannot
// reach a Docker daemon.
func SkipWithoutDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("METS_SKIP_CONTAINERS") != "" {
		t.Skip("METS_SKIP_CONTAINERS is set")
	}
	if testing.Short() {
		t.Skip("container tests are skipped in -short mode")
	}
}

// Monday returns 2025-01-06 (a Monday) at hour:00 UTC, the anchor used by
// planning tests.
func Monday(hour int) time.Time {
	return time.Date(2025, 1, 6, hour, 0, 0, 0, time.UTC)
}
