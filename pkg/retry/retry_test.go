// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutExponentialBackoff_Default(t *testing.T) {
	policy := NewTimeoutExponentialBackoff()

	assert.Equal(t, 3, policy.MaxRetries())
	assert.Equal(t, 1*time.Second, policy.minWaitTime)
	assert.Equal(t, 30*time.Second, policy.maxWaitTime)
	assert.Equal(t, 2.0, policy.backoffFactor)
	assert.True(t, policy.jitter)
}

func TestTimeoutExponentialBackoff_WithMethods(t *testing.T) {
	policy := NewTimeoutExponentialBackoff().
		WithMaxRetries(5).
		WithMinWaitTime(2 * time.Second).
		WithMaxWaitTime(60 * time.Second).
		WithBackoffFactor(1.5).
		WithJitter(false)

	assert.Equal(t, 5, policy.MaxRetries())
	assert.Equal(t, 2*time.Second, policy.minWaitTime)
	assert.Equal(t, 60*time.Second, policy.maxWaitTime)
	assert.Equal(t, 1.5, policy.backoffFactor)
	assert.False(t, policy.jitter)
}

func TestTimeoutExponentialBackoff_ShouldRetry(t *testing.T) {
	policy := NewTimeoutExponentialBackoff().WithMaxRetries(3)
	ctx := context.Background()

	tests := []struct {
		name        string
		err         error
		attempt     int
		shouldRetry bool
	}{
		{name: "timeout should retry", err: errors.New("i/o timeout"), attempt: 1, shouldRetry: true},
		{name: "max retries exceeded", err: errors.New("i/o timeout"), attempt: 3, shouldRetry: false},
		{name: "no error means no retry", err: nil, attempt: 1, shouldRetry: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := policy.ShouldRetry(ctx, tt.err, tt.attempt)
			assert.Equal(t, tt.shouldRetry, result)
		})
	}
}

func TestTimeoutExponentialBackoff_ShouldRetryWithCancelledContext(t *testing.T) {
	policy := NewTimeoutExponentialBackoff()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := policy.ShouldRetry(ctx, errors.New("timeout"), 1)
	assert.False(t, result)
}

func TestTimeoutExponentialBackoff_WaitTime(t *testing.T) {
	policy := NewTimeoutExponentialBackoff().
		WithMinWaitTime(1 * time.Second).
		WithMaxWaitTime(10 * time.Second).
		WithBackoffFactor(2.0).
		WithJitter(false)

	tests := []struct {
		name        string
		attempt     int
		expectedMin time.Duration
		expectedMax time.Duration
	}{
		{name: "attempt 0", attempt: 0, expectedMin: 1 * time.Second, expectedMax: 1 * time.Second},
		{name: "attempt 1", attempt: 1, expectedMin: 1 * time.Second, expectedMax: 1 * time.Second},
		{name: "attempt 2", attempt: 2, expectedMin: 2 * time.Second, expectedMax: 2 * time.Second},
		{name: "attempt 3", attempt: 3, expectedMin: 4 * time.Second, expectedMax: 4 * time.Second},
		{name: "attempt 4 (below max)", attempt: 4, expectedMin: 8 * time.Second, expectedMax: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waitTime := policy.WaitTime(tt.attempt)

			if tt.expectedMin == tt.expectedMax {
				assert.Equal(t, tt.expectedMin, waitTime)
			} else {
				assert.GreaterOrEqual(t, waitTime, tt.expectedMin)
				assert.LessOrEqual(t, waitTime, tt.expectedMax)
			}
		})
	}
}

func TestFixedDelay(t *testing.T) {
	maxRetries := 3
	delay := 5 * time.Second
	policy := NewFixedDelay(maxRetries, delay)

	assert.Equal(t, maxRetries, policy.MaxRetries())
	assert.Equal(t, delay, policy.WaitTime(1))
	assert.Equal(t, delay, policy.WaitTime(5))

	ctx := context.Background()

	assert.True(t, policy.ShouldRetry(ctx, errors.New("timeout"), 1))
	assert.False(t, policy.ShouldRetry(ctx, errors.New("timeout"), 3))
	assert.False(t, policy.ShouldRetry(ctx, nil, 1))
}

func TestFixedDelay_RetryForever(t *testing.T) {
	policy := NewFixedDelay(0, time.Second)
	ctx := context.Background()

	assert.True(t, policy.ShouldRetry(ctx, errors.New("timeout"), 1000))
}

func TestFixedDelay_ShouldRetryWithCancelledContext(t *testing.T) {
	policy := NewFixedDelay(3, 1*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := policy.ShouldRetry(ctx, errors.New("timeout"), 1)
	assert.False(t, result)
}

func TestNoRetry(t *testing.T) {
	policy := NewNoRetry()

	assert.Equal(t, 0, policy.MaxRetries())
	assert.Equal(t, time.Duration(0), policy.WaitTime(1))

	ctx := context.Background()

	assert.False(t, policy.ShouldRetry(ctx, errors.New("timeout"), 0))
	assert.False(t, policy.ShouldRetry(ctx, errors.New("timeout"), 1))
}

func TestPolicyInterface(t *testing.T) {
	var _ Policy = &TimeoutExponentialBackoff{}
	var _ Policy = &FixedDelay{}
	var _ Policy = &NoRetry{}

	policies := []Policy{
		NewTimeoutExponentialBackoff(),
		NewFixedDelay(3, 1*time.Second),
		NewNoRetry(),
	}

	ctx := context.Background()

	for _, policy := range policies {
		maxRetries := policy.MaxRetries()
		assert.GreaterOrEqual(t, maxRetries, 0)

		waitTime := policy.WaitTime(1)
		assert.GreaterOrEqual(t, waitTime, time.Duration(0))

		_ = policy.ShouldRetry(ctx, errors.New("timeout"), 0)
	}
}

func TestRetryHelper(t *testing.T) {
	attempts := 0
	backoff := NewConstantBackoff(time.Millisecond, 3)

	err := Retry(context.Background(), backoff, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}
