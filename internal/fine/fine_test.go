package fine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolportal/internal/store"
)

func setupFines(t *testing.T) *Fines {
	t.Helper()
	db, err := store.NewDB("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	_, err = db.Client.ExecContext(ctx, `INSERT INTO students (id, student_number, first_name, last_name) VALUES (1, '2024-001', 'Ana', 'Cruz')`)
	require.NoError(t, err)
	return NewFines(db.Client)
}

func TestFineValidate(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	f := Fine{StudentID: 1, Amount: 50, Reason: "Absent: Foundation Day", Date: day}
	require.NoError(t, f.Validate())
	assert.Equal(t, StatusUnpaid, f.Status)

	bad := []Fine{
		{Amount: 50, Reason: "x", Date: day},
		{StudentID: 1, Amount: 0, Reason: "x", Date: day},
		{StudentID: 1, Amount: 50, Reason: " ", Date: day},
		{StudentID: 1, Amount: 50, Reason: "x", Date: day, Status: "waived"},
	}
	for _, b := range bad {
		assert.ErrorIs(t, b.Validate(), ErrInvalid)
	}
}

func TestFineCRUDAndStatusFilter(t *testing.T) {
	fines := setupFines(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	id, err := fines.Create(ctx, Fine{StudentID: 1, Amount: 75, Reason: "Partial attendance", Date: day, Status: StatusUnpaid}, now)
	require.NoError(t, err)
	_, err = fines.Create(ctx, Fine{StudentID: 1, Amount: 20, Reason: "Late", Date: day, Status: StatusPaid}, now)
	require.NoError(t, err)

	unpaid, err := fines.List(ctx, StatusUnpaid)
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Nil(t, unpaid[0].PaidDate)
	assert.Equal(t, "Ana", *unpaid[0].FirstName)

	paid, err := fines.List(ctx, StatusPaid)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	require.NotNil(t, paid[0].PaidDate)

	all, err := fines.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, fines.Update(ctx, Fine{ID: id, Amount: 50, Reason: "Partial attendance", Date: day, Status: StatusPaid}, now))
	paid, err = fines.List(ctx, StatusPaid)
	require.NoError(t, err)
	assert.Len(t, paid, 2)

	require.NoError(t, fines.Delete(ctx, id))
	assert.True(t, errors.Is(fines.Delete(ctx, id), store.ErrNotFound))

	_, err = fines.Create(ctx, Fine{StudentID: 42, Amount: 1, Reason: "x", Date: day, Status: StatusUnpaid}, now)
	assert.True(t, errors.Is(err, store.ErrReferenced))
}

func TestPayIssuesReceiptAndMarksPaid(t *testing.T) {
	fines := setupFines(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	id, err := fines.Create(ctx, Fine{StudentID: 1, Amount: 75, Reason: "Partial attendance", Date: now, Status: StatusUnpaid}, now)
	require.NoError(t, err)

	rc, err := fines.Pay(ctx, Receipt{FineID: id}, now)
	require.NoError(t, err)
	assert.Equal(t, ReceiptNumber(now), rc.Number)
	assert.Equal(t, "RCP-1772528400000", rc.Number)
	assert.InDelta(t, 75.0, rc.AmountPaid, 1e-9)
	assert.Equal(t, "cash", rc.PaymentMethod)

	list, err := fines.List(ctx, StatusPaid)
	require.NoError(t, err)
	require.Len(t, list, 1)

	receipts, err := fines.Receipts(ctx)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "Partial attendance", *receipts[0].Reason)

	_, err = fines.Pay(ctx, Receipt{FineID: id}, now.Add(time.Second))
	assert.True(t, errors.Is(err, store.ErrConflict), "second payment is rejected")

	_, err = fines.Pay(ctx, Receipt{FineID: 999}, now)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestPayTwiceLeavesOneReceipt(t *testing.T) {
	fines := setupFines(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	id, err := fines.Create(ctx, Fine{StudentID: 1, Amount: 40, Reason: "Absent", Date: now}, now)
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := fines.Pay(ctx, Receipt{FineID: id}, now.Add(time.Duration(i)*time.Millisecond))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	var n int
	require.NoError(t, fines.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fine_receipts WHERE fine_id = $1`, id).Scan(&n))
	assert.Equal(t, 1, n)
}
