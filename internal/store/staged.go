package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Staged records are written and read by admins only, so the methods here
// take no scope. Route guards keep other roles away from them.

const stagedAddressCols = `property_name, country, state, district, taluk,
	village_or_city, pid, khatha_or_property_no, name_of_khathadar, type_of_building`

func stagedAddressArgs(r StagedRecord) []any {
	return []any{
		r.PropertyName, r.Country, r.State, r.District, r.Taluk,
		r.VillageOrCity, r.PID, r.KhathaOrPropertyNo, r.NameOfKhathadar, r.TypeOfBuilding,
	}
}

func stagedAddressDests(r *StagedRecord) []any {
	return []any{
		&r.PropertyName, &r.Country, &r.State, &r.District, &r.Taluk,
		&r.VillageOrCity, &r.PID, &r.KhathaOrPropertyNo, &r.NameOfKhathadar, &r.TypeOfBuilding,
	}
}

func (s *Postgres) ListStagedRecords(ctx context.Context) ([]StagedRecordRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.sl_no, `+prefixCols("p", paymentCoreCols)+`, `+prefixCols("p", stagedAddressCols)+`, b.sl_no
		 FROM admin_payment_details p
		 LEFT JOIN admin_bills b ON b.sl_no = p.sl_no
		 ORDER BY p.sl_no`)
	if err != nil {
		return nil, fmt.Errorf("list staged records: %w", err)
	}
	defer rows.Close()

	var records []StagedRecordRow
	for rows.Next() {
		var row StagedRecordRow
		dests := []any{&row.SlNo}
		dests = append(dests, coreDests(&row.PaymentCore)...)
		dests = append(dests, stagedAddressDests(&row.StagedRecord)...)
		dests = append(dests, &row.BillSlNo)
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scan staged record: %w", err)
		}
		records = append(records, row)
	}
	return records, rows.Err()
}

func (s *Postgres) GetStagedRecord(ctx context.Context, slNo int) (StagedRecord, error) {
	return getStagedRecord(ctx, s.db, slNo)
}

func getStagedRecord(ctx context.Context, q dbtx, slNo int) (StagedRecord, error) {
	var record StagedRecord
	dests := []any{&record.SlNo}
	dests = append(dests, coreDests(&record.PaymentCore)...)
	dests = append(dests, stagedAddressDests(&record)...)

	err := q.QueryRowContext(ctx,
		`SELECT sl_no, `+paymentCoreCols+`, `+stagedAddressCols+`
		 FROM admin_payment_details WHERE sl_no=$1`, slNo,
	).Scan(dests...)
	if errors.Is(err, sql.ErrNoRows) {
		return StagedRecord{}, ErrNotFound
	}
	if err != nil {
		return StagedRecord{}, fmt.Errorf("get staged record: %w", err)
	}
	return record, nil
}

func (s *Postgres) CreateStagedRecord(ctx context.Context, record StagedRecord, bill *Bill) (int, error) {
	var slNo int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		args := coreArgs(record.PaymentCore)
		args = append(args, stagedAddressArgs(record)...)
		err := tx.QueryRowContext(ctx,
			`INSERT INTO admin_payment_details (`+paymentCoreCols+`, `+stagedAddressCols+`)
			 VALUES (`+paymentCorePlaceholders+`,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31)
			 RETURNING sl_no`, args...).Scan(&slNo)
		if err != nil {
			return translateUnique(fmt.Errorf("insert staged record: %w", err))
		}
		if bill != nil {
			if err := putBill(ctx, tx, "admin_bills", slNo, *bill); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return slNo, nil
}

func (s *Postgres) StagedReceiptTaken(ctx context.Context, receipt string, excludeSlNo int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM admin_payment_details
		  WHERE receipt_no_or_date=$1 AND sl_no<>$2)`,
		receipt, excludeSlNo).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check staged receipt: %w", err)
	}
	return exists, nil
}

// TransferStagedRecord moves a staged payment to a registered institution:
// the shared columns are copied into institution_payment_details, the bill
// attachment follows it, and the staged row is deleted. All three steps
// commit or roll back together; a year or receipt collision on the target
// institution surfaces as ErrDuplicate and leaves the staged row in place.
func (s *Postgres) TransferStagedRecord(ctx context.Context, stagedSlNo int, institutionID string) (int, error) {
	var newSlNo int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		staged, err := getStagedRecord(ctx, tx, stagedSlNo)
		if err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM institution_users WHERE institution_id=$1)`,
			institutionID).Scan(&exists); err != nil {
			return fmt.Errorf("check transfer target: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		args := []any{institutionID}
		args = append(args, coreArgs(staged.PaymentCore)...)
		err = tx.QueryRowContext(ctx,
			`INSERT INTO institution_payment_details (institution_id, `+paymentCoreCols+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
			 RETURNING sl_no`, args...).Scan(&newSlNo)
		if err != nil {
			return translateUnique(fmt.Errorf("insert transferred record: %w", err))
		}

		bill, err := getBill(ctx, tx, "admin_bills", stagedSlNo)
		switch {
		case errors.Is(err, ErrNotFound):
			// staged record had no attachment
		case err != nil:
			return err
		default:
			if err := putBill(ctx, tx, "institution_bills", newSlNo, bill); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM admin_payment_details WHERE sl_no=$1`, stagedSlNo)
		if err != nil {
			return fmt.Errorf("delete transferred staged record: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newSlNo, nil
}
