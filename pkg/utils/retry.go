/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"context"
	"time"

	errors2 "github.com/hyperledger-labs/fabnet/pkg/utils/errors"
	"github.com/hyperledger-labs/fabnet/platform/common/services/logging"
	"github.com/pkg/errors"
)

// RetryRunner receives a function that potentially fails and retries according to the specified strategy
type RetryRunner interface {
	Run(ctx context.Context, runner func(ctx context.Context) error) error
	RunWithErrors(ctx context.Context, runner func(ctx context.Context) (bool, error)) error
}

var ErrMaxRetriesExceeded = errors.New("maximum number of retries exceeded")

const Infinitely = -1

type retryRunner struct {
	delay      time.Duration
	maxDelay   time.Duration
	expBackoff bool
	maxTimes   int
	logger     logging.Logger
}

// NewRetryRunner returns a runner that tries at most maxTimes, waiting delay between
// attempts. With expBackoff the delay doubles after every attempt.
func NewRetryRunner(maxTimes int, delay time.Duration, expBackoff bool) *retryRunner {
	return &retryRunner{
		delay:      delay,
		expBackoff: expBackoff,
		maxTimes:   maxTimes,
		logger:     logging.MustGetLogger("fabnet.retry"),
	}
}

// WithMaxDelay caps the backoff delay.
func (f *retryRunner) WithMaxDelay(d time.Duration) *retryRunner {
	f.maxDelay = d
	return f
}

func (f *retryRunner) nextDelay(current time.Duration) time.Duration {
	if !f.expBackoff {
		return current
	}
	next := 2 * current
	if f.maxDelay > 0 && next > f.maxDelay {
		next = f.maxDelay
	}
	return next
}

func (f *retryRunner) Run(ctx context.Context, runner func(ctx context.Context) error) error {
	return f.RunWithErrors(ctx, func(ctx context.Context) (bool, error) {
		err := runner(ctx)
		return err == nil, err
	})
}

// RunWithErrors will retry until runner() returns true, until it returns maxTimes false
// or until the context is done.
// If it returns true, then the error or nil will be returned.
// Otherwise it returns a join of ErrMaxRetriesExceeded (or the context error) and all
// errors it encountered.
func (f *retryRunner) RunWithErrors(ctx context.Context, runner func(ctx context.Context) (bool, error)) error {
	errs := make([]error, 0)
	delay := f.delay
	for i := 0; f.maxTimes < 0 || i < f.maxTimes; i++ {
		terminate, err := runner(ctx)
		if terminate {
			return err
		}
		if err != nil {
			errs = append(errs, err)
		}
		if f.maxTimes >= 0 && i == f.maxTimes-1 {
			break
		}
		f.logger.Debugf("Will retry iteration [%d] after %s. %d errors returned so far", i+1, delay, len(errs))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors2.Join(append([]error{ctx.Err()}, errs...)...)
		case <-timer.C:
		}
		delay = f.nextDelay(delay)
	}
	return errors2.Join(append([]error{ErrMaxRetriesExceeded}, errs...)...)
}
