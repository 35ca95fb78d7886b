package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// putBill inserts or replaces the single attachment row for a payment
// record. Both bill tables share the same shape; table is always a literal.
func putBill(ctx context.Context, q dbtx, table string, slNo int, bill Bill) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO `+table+` (sl_no, filename, filetype, data)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (sl_no) DO UPDATE
		 SET filename=EXCLUDED.filename, filetype=EXCLUDED.filetype,
		     data=EXCLUDED.data, uploaded_at=NOW()`,
		slNo, bill.Filename, bill.Filetype, bill.Data)
	if err != nil {
		return fmt.Errorf("store bill in %s: %w", table, err)
	}
	return nil
}

func getBill(ctx context.Context, q dbtx, table string, slNo int) (Bill, error) {
	var bill Bill
	err := q.QueryRowContext(ctx,
		`SELECT sl_no, filename, filetype, data, uploaded_at FROM `+table+` WHERE sl_no=$1`, slNo,
	).Scan(&bill.SlNo, &bill.Filename, &bill.Filetype, &bill.Data, &bill.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Bill{}, ErrNotFound
	}
	if err != nil {
		return Bill{}, fmt.Errorf("get bill from %s: %w", table, err)
	}
	return bill, nil
}

// GetBill returns an institution bill without any ownership check; callers
// authorize first via BillOwnership.
func (s *Postgres) GetBill(ctx context.Context, slNo int) (Bill, error) {
	return getBill(ctx, s.db, "institution_bills", slNo)
}

// GetStagedBill returns an admin-staged bill. Admin routes only.
func (s *Postgres) GetStagedBill(ctx context.Context, slNo int) (Bill, error) {
	return getBill(ctx, s.db, "admin_bills", slNo)
}

// BillOwnership walks a bill up its ownership chain and returns the owning
// institution and that institution's division. The bill shares its serial
// with the payment record it belongs to.
func (s *Postgres) BillOwnership(ctx context.Context, slNo int) (institutionID, divisionID string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT p.institution_id, u.division_id
		 FROM institution_bills b
		 JOIN institution_payment_details p ON p.sl_no = b.sl_no
		 JOIN institution_users u ON u.institution_id = p.institution_id
		 WHERE b.sl_no=$1`, slNo,
	).Scan(&institutionID, &divisionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("resolve bill ownership: %w", err)
	}
	return institutionID, divisionID, nil
}
