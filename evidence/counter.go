// elsomatic: a high-performance tool for phasing and filtering somatic variants.
// Copyright (c) 2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

// Package evidence provides the per-region candidate variants and their
// read support counts that the caller filters and phases.
package evidence

import (
	"time"

	"github.com/cenkalti/backoff"

	"github.com/exascience/elsomatic/intervals"
	"github.com/exascience/elsomatic/variants"
)

// A Counter produces the candidate variants of a region, sorted by
// position, with their support counters filled in. Count may be called
// concurrently for different regions.
type Counter interface {
	Count(chromosome string, region intervals.Interval) ([]*variants.Variant, error)
}

// CounterFunc adapts a function to the Counter interface.
type CounterFunc func(chromosome string, region intervals.Interval) ([]*variants.Variant, error)

// Count calls f(chromosome, region).
func (f CounterFunc) Count(chromosome string, region intervals.Interval) ([]*variants.Variant, error) {
	return f(chromosome, region)
}

// RetryInterval is the initial delay before a failed count is retried.
var RetryInterval = 100 * time.Millisecond

type retrying struct {
	counter    Counter
	maxRetries uint64
}

// Retrying wraps a counter so that failing counts are retried up to
// maxRetries times with exponential backoff. Errors wrapped with
// backoff.Permanent are returned immediately.
func Retrying(counter Counter, maxRetries int) Counter {
	if maxRetries <= 0 {
		return counter
	}
	return &retrying{counter: counter, maxRetries: uint64(maxRetries)}
}

func (r *retrying) Count(chromosome string, region intervals.Interval) (result []*variants.Variant, err error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = RetryInterval
	err = backoff.Retry(func() error {
		var err error
		result, err = r.counter.Count(chromosome, region)
		return err
	}, backoff.WithMaxRetries(policy, r.maxRetries))
	if err != nil {
		return nil, err
	}
	return result, nil
}
