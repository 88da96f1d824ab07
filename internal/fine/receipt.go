package fine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/store"
)

// Receipt records a payment against a fine.
type Receipt struct {
	ID            int64     `json:"id"`
	FineID        int64     `json:"fine_id"`
	Number        string    `json:"receipt_number"`
	PaymentDate   time.Time `json:"payment_date"`
	AmountPaid    float64   `json:"amount_paid"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`

	Reason    *string `json:"reason,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// ReceiptNumber formats the receipt number issued at t.
func ReceiptNumber(t time.Time) string {
	return fmt.Sprintf("RCP-%d", t.UnixMilli())
}

// Receipts lists receipts newest first.
func (r *Fines) Receipts(ctx context.Context) ([]Receipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fr.id, fr.fine_id, fr.receipt_number, fr.payment_date, fr.amount_paid, fr.payment_method, fr.created_at,
		       f.reason, s.first_name, s.last_name
		FROM fine_receipts fr
		LEFT JOIN fines f ON fr.fine_id = f.id
		LEFT JOIN students s ON f.student_id = s.id
		ORDER BY fr.created_at DESC, fr.id DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list receipts")
	}
	defer rows.Close()
	var res []Receipt
	for rows.Next() {
		var rc Receipt
		if err := rows.Scan(&rc.ID, &rc.FineID, &rc.Number, &rc.PaymentDate, &rc.AmountPaid, &rc.PaymentMethod, &rc.CreatedAt,
			&rc.Reason, &rc.FirstName, &rc.LastName); err != nil {
			return nil, errors.Wrap(err, "scan receipt")
		}
		res = append(res, rc)
	}
	return res, errors.Wrap(rows.Err(), "iterate receipts")
}

// Pay issues a receipt for fineID and marks the fine paid in the same
// transaction. Amount defaults to the fine amount and method to cash.
func (r *Fines) Pay(ctx context.Context, rc Receipt, now time.Time) (Receipt, error) {
	if rc.FineID <= 0 {
		return Receipt{}, errors.Wrap(ErrInvalid, "fine is required")
	}
	if rc.AmountPaid < 0 {
		return Receipt{}, errors.Wrap(ErrInvalid, "amount paid must not be negative")
	}
	if rc.PaymentMethod == "" {
		rc.PaymentMethod = "cash"
	}
	if rc.PaymentDate.IsZero() {
		rc.PaymentDate = now
	}
	rc.Number = ReceiptNumber(now)
	rc.CreatedAt = now

	// The guarded UPDATE is the claim: of two concurrent payments only one
	// can flip the fine, the other sees zero rows.
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE fines SET status = $1, paid_date = $2 WHERE id = $3 AND status <> $1`,
			StatusPaid, rc.PaymentDate, rc.FineID)
		if err != nil {
			return errors.Wrapf(err, "mark fine %d paid", rc.FineID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "rows affected")
		}
		if n == 0 {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM fines WHERE id = $1`, rc.FineID).Scan(&exists)
			if err != nil {
				return errors.Wrapf(store.Classify(err), "fine %d", rc.FineID)
			}
			return errors.Wrapf(store.ErrConflict, "fine %d is already paid", rc.FineID)
		}
		if rc.AmountPaid == 0 {
			if err := tx.QueryRowContext(ctx, `SELECT amount FROM fines WHERE id = $1`, rc.FineID).Scan(&rc.AmountPaid); err != nil {
				return errors.Wrapf(store.Classify(err), "fine %d amount", rc.FineID)
			}
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO fine_receipts (fine_id, receipt_number, payment_date, amount_paid, payment_method, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, rc.FineID, rc.Number, rc.PaymentDate, rc.AmountPaid, rc.PaymentMethod, rc.CreatedAt).Scan(&rc.ID)
		return errors.Wrap(store.Classify(err), "insert receipt")
	})
	if err != nil {
		return Receipt{}, err
	}
	return rc, nil
}
