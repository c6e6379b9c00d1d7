package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubReader struct {
	got Filter
}

func (s *stubReader) ListAudit(_ context.Context, f Filter) ([]Entry, error) {
	s.got = f
	return nil, nil
}

func TestQueryNormalizesLimit(t *testing.T) {
	r := &stubReader{}
	q := NewQuery(r)

	_, err := q.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, DefaultLimit, r.got.Limit)

	_, err = q.List(context.Background(), Filter{Limit: 5000})
	require.NoError(t, err)
	require.Equal(t, MaxLimit, r.got.Limit)

	_, err = q.List(context.Background(), Filter{Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 20, r.got.Limit)
}

func TestQueryRejectsBadFilter(t *testing.T) {
	q := NewQuery(&stubReader{})
	_, err := q.List(context.Background(), Filter{Action: "purge"})
	require.True(t, errors.Is(err, ErrInvalidFilter))

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, err = q.List(context.Background(), Filter{From: &from, To: &to})
	require.True(t, errors.Is(err, ErrInvalidFilter))
}

func TestFilterMatchesInclusiveBounds(t *testing.T) {
	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{Action: ActionUpdate, EntityType: EntityUser, CreatedAt: at}

	require.True(t, Filter{From: &at, To: &at}.Matches(e))
	require.True(t, Filter{Action: ActionUpdate, EntityType: EntityUser}.Matches(e))
	require.False(t, Filter{Action: ActionCreate}.Matches(e))
	require.False(t, Filter{EntityType: "Patient"}.Matches(e))

	later := at.Add(time.Second)
	require.False(t, Filter{From: &later}.Matches(e))
	earlier := at.Add(-time.Second)
	require.False(t, Filter{To: &earlier}.Matches(e))
}

func TestParseBound(t *testing.T) {
	b, err := ParseBound("", false)
	require.NoError(t, err)
	require.Nil(t, b)

	b, err = ParseBound("2026-02-01", false)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *b)

	b, err = ParseBound("2026-02-01", true)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 2, 1, 23, 59, 59, 999999999, time.UTC), *b)

	b, err = ParseBound("2026-02-01T10:30:00+02:00", true)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC), *b)

	_, err = ParseBound("yesterday", false)
	require.ErrorIs(t, err, ErrInvalidFilter)
}
