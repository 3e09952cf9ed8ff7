/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit bounds the number of concurrent peer operations.
const DefaultLimit = 4

// ForEach calls fn on every item with at most limit calls in flight.
// The returned slice has one entry per item, in input order; an entry is nil when
// fn succeeded. A failing item does not stop the others.
func ForEach[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) []error {
	if limit <= 0 {
		limit = DefaultLimit
	}
	errs := make([]error, len(items))
	g := &errgroup.Group{}
	g.SetLimit(limit)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			errs[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
