package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	items   []Item
	deleted []string
	failOn  string
}

func (m *memStore) List(context.Context) ([]Item, error) {
	return append([]Item(nil), m.items...), nil
}

func (m *memStore) Delete(_ context.Context, name string) error {
	if name == m.failOn {
		return errors.New("busy")
	}
	m.deleted = append(m.deleted, name)
	return nil
}

func day(d, h int) time.Time {
	return time.Date(2026, time.March, d, h, 0, 0, 0, time.UTC)
}

func TestApplyKeepLast(t *testing.T) {
	store := &memStore{items: []Item{
		{Name: "b1", CreatedAt: day(1, 9)},
		{Name: "b3", CreatedAt: day(3, 9)},
		{Name: "b2", CreatedAt: day(2, 9)},
	}}
	res, err := Apply(context.Background(), store, Policy{KeepLast: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 2, res.Kept)
	assert.Equal(t, []string{"b1"}, res.Deleted)
}

func TestApplyPoliciesAreAdditive(t *testing.T) {
	candidates := []Item{
		{Name: "d5-late", CreatedAt: day(5, 18)},
		{Name: "d5-early", CreatedAt: day(5, 8)},
		{Name: "d4", CreatedAt: day(4, 8)},
		{Name: "d3", CreatedAt: day(3, 8)},
	}
	keep := ApplyPolicies(candidates, Policy{KeepLast: 1, KeepDaily: 2})
	assert.Equal(t, []bool{true, false, true, false}, keep)
}

func TestApplyCollectsDeleteErrors(t *testing.T) {
	store := &memStore{failOn: "old", items: []Item{
		{Name: "new", CreatedAt: day(2, 0)},
		{Name: "old", CreatedAt: day(1, 0)},
	}}
	res, err := Apply(context.Background(), store, Policy{KeepLast: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Deleted)
	require.Len(t, res.Errors, 1)
	assert.ErrorContains(t, res.Errors[0], "deleting old")
}

func TestApplyRequiresActivePolicy(t *testing.T) {
	_, err := Apply(context.Background(), &memStore{}, Policy{})
	assert.Error(t, err)
	assert.False(t, Policy{}.Active())
	assert.True(t, Policy{KeepMonthly: 1}.Active())
}

func TestTruncateToWeekStartsMonday(t *testing.T) {
	sunday := time.Date(2026, time.March, 8, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), TruncateToWeek(sunday))
}
