package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolportal/internal/store"
)

func TestOverview(t *testing.T) {
	db, err := store.NewDB("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	repo := NewRepository(db.Client)
	empty, err := repo.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, Overview{}, empty)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for _, stmt := range []string{
		`INSERT INTO students (id, student_number, first_name, last_name) VALUES (1, '1', 'Ana', 'Cruz')`,
		`INSERT INTO students (id, student_number, first_name, last_name, is_active) VALUES (2, '2', 'Ben', 'Reyes', FALSE)`,
	} {
		_, err := db.Client.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	_, err = db.Client.ExecContext(ctx, `INSERT INTO fines (id, student_id, amount, reason, date, status) VALUES (1, 1, 75, 'Absent', $1, 'unpaid'), (2, 1, 20, 'Late', $1, 'paid')`, day)
	require.NoError(t, err)
	_, err = db.Client.ExecContext(ctx, `INSERT INTO fine_receipts (fine_id, receipt_number, payment_date, amount_paid) VALUES (2, 'RCP-1', $1, 20)`, day)
	require.NoError(t, err)

	o, err := repo.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, o.Students)
	assert.Equal(t, 1, o.UnpaidFines)
	assert.InDelta(t, 75.0, o.UnpaidAmount, 1e-9)
	assert.InDelta(t, 20.0, o.CollectedFees, 1e-9)
}
