package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolportal/internal/store"
)

func setupRepo(t *testing.T) (*Repository, *store.DB) {
	t.Helper()
	db, err := store.NewDB("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	_, err = db.Client.ExecContext(ctx, `INSERT INTO students (id, student_number, first_name, last_name) VALUES (1, '2024-001', 'Ana', 'Cruz'), (2, '2024-002', 'Ben', 'Reyes')`)
	require.NoError(t, err)
	_, err = db.Client.ExecContext(ctx,
		`INSERT INTO events (id, event_name, event_date, start_time, end_time, fine_amount, am_in_start_time, am_in_end_time) VALUES (10, 'Foundation Day', $1, '08:00', '17:00', 100, '08:00', '08:30')`,
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return NewRepository(db.Client), db
}

func TestUpsertIsIdempotent(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	mark := Mark{StudentID: 1, EventID: 10, Session: "AM", Type: "IN"}

	first := time.Date(2026, 3, 2, 0, 10, 0, 0, time.UTC)
	second := first.Add(5 * time.Minute)
	require.NoError(t, repo.Upsert(ctx, []Mark{mark}, first))
	require.NoError(t, repo.Upsert(ctx, []Mark{mark}, second))

	var n int
	require.NoError(t, db.Client.QueryRow(`SELECT COUNT(*) FROM attendance`).Scan(&n))
	assert.Equal(t, 1, n)

	recs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, second.Equal(recs[0].TimeRecorded), "time_recorded refreshed to %v, got %v", second, recs[0].TimeRecorded)
	assert.Equal(t, "PRESENT", recs[0].Status)
	require.NotNil(t, recs[0].FirstName)
	assert.Equal(t, "Ana", *recs[0].FirstName)
	require.NotNil(t, recs[0].FineAmount)
	assert.InDelta(t, 100.0, *recs[0].FineAmount, 1e-9)
}

func TestUpsertDistinctSlots(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)
	marks := []Mark{
		{StudentID: 1, EventID: 10, Session: "AM", Type: "IN"},
		{StudentID: 1, EventID: 10, Session: "AM", Type: "OUT"},
		{StudentID: 2, EventID: 10, Session: "PM", Type: "IN"},
	}
	require.NoError(t, repo.Upsert(ctx, marks, now))

	recs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.List(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpsertRollsBackOnFailure(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	marks := []Mark{
		{StudentID: 1, EventID: 10, Session: "AM", Type: "IN"},
		{StudentID: 404, EventID: 10, Session: "AM", Type: "IN"},
	}
	err := repo.Upsert(ctx, marks, time.Now())
	require.Error(t, err)

	var n int
	require.NoError(t, db.Client.QueryRow(`SELECT COUNT(*) FROM attendance`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestServiceRecordAndSummaries(t *testing.T) {
	repo, _ := setupRepo(t)
	svc := NewService(repo, time.FixedZone("PHT", 8*60*60))
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 0, 10, 3, 0, time.UTC) }
	ctx := context.Background()

	n, err := svc.Record(ctx, []Mark{{StudentID: 1, EventID: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sums, err := svc.Summaries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "08:10", sums[0].Sessions.AM.In)
	assert.Equal(t, 1, sums[0].SessionsAttended)
	assert.Equal(t, "75.00", sums[0].FineDisplay)
	assert.Equal(t, "Foundation Day", sums[0].EventName)

	_, err = svc.Record(ctx, []Mark{{StudentID: 1, EventID: 10, Session: "EVENING"}})
	assert.True(t, errors.Is(err, ErrInvalid))
}
