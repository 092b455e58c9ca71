// Package retention prunes named, timestamped items under a restic-style
// policy. Rules are additive: an item survives if ANY rule wants to keep it.
package retention

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Policy selects which items survive. Zero fields are disabled.
type Policy struct {
	KeepLast    int `yaml:"keep_last"`
	KeepDaily   int `yaml:"keep_daily"`
	KeepWeekly  int `yaml:"keep_weekly"`
	KeepMonthly int `yaml:"keep_monthly"`
}

// Active reports whether any rule is set.
func (p Policy) Active() bool {
	return p.KeepLast > 0 || p.KeepDaily > 0 || p.KeepWeekly > 0 || p.KeepMonthly > 0
}

// Item is a named, timestamped entity that can be pruned.
type Item struct {
	Name      string
	CreatedAt time.Time
}

// Result captures what the retention engine did.
type Result struct {
	Matched int      // items offered by the store
	Kept    int      // items kept by policy
	Deleted []string // items successfully deleted
	Errors  []error  // errors from individual deletes
}

// Store abstracts listing and deleting items so the same engine
// works for any prunable resource.
type Store interface {
	List(ctx context.Context) ([]Item, error)
	Delete(ctx context.Context, name string) error
}

// Apply lists all items from the store, sorts them newest first, applies
// policy, and deletes items not kept. Delete failures are collected in the
// result; only a failed listing is returned as an error.
func Apply(ctx context.Context, store Store, policy Policy) (*Result, error) {
	if !policy.Active() {
		return nil, fmt.Errorf("retention: no active policy (all values zero)")
	}

	result := &Result{}
	candidates, err := store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("retention: listing items: %w", err)
	}
	result.Matched = len(candidates)
	if len(candidates) == 0 {
		return result, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	keepSet := ApplyPolicies(candidates, policy)
	for i, item := range candidates {
		if keepSet[i] {
			result.Kept++
			continue
		}
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			break
		}
		if err := store.Delete(ctx, item.Name); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("deleting %s: %w", item.Name, err))
		} else {
			result.Deleted = append(result.Deleted, item.Name)
		}
	}
	return result, nil
}

// ApplyPolicies evaluates all retention rules and returns a keep/prune decision
// for each candidate. candidates must be sorted newest-first.
func ApplyPolicies(candidates []Item, policy Policy) []bool {
	keepSet := make([]bool, len(candidates))

	for i := 0; i < len(candidates) && i < policy.KeepLast; i++ {
		keepSet[i] = true
	}
	if policy.KeepDaily > 0 {
		ApplyTimeBucket(candidates, keepSet, policy.KeepDaily, TruncateToDay)
	}
	if policy.KeepWeekly > 0 {
		ApplyTimeBucket(candidates, keepSet, policy.KeepWeekly, TruncateToWeek)
	}
	if policy.KeepMonthly > 0 {
		ApplyTimeBucket(candidates, keepSet, policy.KeepMonthly, TruncateToMonth)
	}
	return keepSet
}

// BucketFn truncates a time to the start of its bucket period.
type BucketFn func(time.Time) time.Time

// ApplyTimeBucket keeps the newest item in each of the last N distinct time buckets.
// candidates must be sorted newest-first.
func ApplyTimeBucket(candidates []Item, keepSet []bool, count int, bucket BucketFn) {
	seen := make(map[time.Time]bool)

	for i, item := range candidates {
		if item.CreatedAt.IsZero() {
			continue
		}

		key := bucket(item.CreatedAt)
		if seen[key] {
			continue // already have a newer item for this bucket
		}

		seen[key] = true
		keepSet[i] = true

		if len(seen) >= count {
			break
		}
	}
}

// TruncateToDay truncates a time to the start of its day.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// TruncateToWeek truncates a time to the start of its ISO week (Monday).
func TruncateToWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	d := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// TruncateToMonth truncates a time to the first day of its month.
func TruncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
