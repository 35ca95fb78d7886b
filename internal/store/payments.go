package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so helpers can run inside
// or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// paymentCoreCols lists the columns shared by institution_payment_details
// and admin_payment_details, in the order coreArgs and coreDests use.
const paymentCoreCols = `payment_year, receipt_no_or_date, property_tax, rebate, service_tax,
	dimension_of_vacant_area_sqft, dimension_of_building_area_sqft, total_dimension_in_sqft,
	usage_of_building, to_which_department_paid, cesses, interest, penalty_arrears,
	total_amount, remarks, number_of_floors, basement_floor_sqft, ground_floor_sqft,
	first_floor_sqft, second_floor_sqft, third_floor_sqft`

const paymentCorePlaceholders = `$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21`

// prefixCols qualifies every column in a comma-separated list with a table
// alias, for use in joins.
func prefixCols(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func coreArgs(c PaymentCore) []any {
	return []any{
		c.PaymentYear, c.ReceiptNoOrDate, c.PropertyTax, c.Rebate, c.ServiceTax,
		c.VacantAreaSqft, c.BuildingAreaSqft, c.TotalDimensionSqft,
		c.UsageOfBuilding, c.DepartmentPaid, c.Cesses, c.Interest, c.PenaltyArrears,
		c.TotalAmount, c.Remarks, c.NumberOfFloors, c.BasementFloorSqft, c.GroundFloorSqft,
		c.FirstFloorSqft, c.SecondFloorSqft, c.ThirdFloorSqft,
	}
}

func coreDests(c *PaymentCore) []any {
	return []any{
		&c.PaymentYear, &c.ReceiptNoOrDate, &c.PropertyTax, &c.Rebate, &c.ServiceTax,
		&c.VacantAreaSqft, &c.BuildingAreaSqft, &c.TotalDimensionSqft,
		&c.UsageOfBuilding, &c.DepartmentPaid, &c.Cesses, &c.Interest, &c.PenaltyArrears,
		&c.TotalAmount, &c.Remarks, &c.NumberOfFloors, &c.BasementFloorSqft, &c.GroundFloorSqft,
		&c.FirstFloorSqft, &c.SecondFloorSqft, &c.ThirdFloorSqft,
	}
}

// authorizeInstitution resolves the institution's owning division and checks
// it against the scope. Absent institutions are NotFound; present ones
// outside the scope are Forbidden.
func authorizeInstitution(ctx context.Context, q dbtx, scope Scope, institutionID string) error {
	var divisionID string
	err := q.QueryRowContext(ctx,
		`SELECT division_id FROM institution_users WHERE institution_id=$1`, institutionID,
	).Scan(&divisionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("resolve institution owner: %w", err)
	}
	if !scope.coversInstitution(institutionID, divisionID) {
		return ErrForbidden
	}
	return nil
}

// ListPaymentRecords lists the in-scope payment records, optionally only
// those for one payment year (year 0 means all years).
func (s *Postgres) ListPaymentRecords(ctx context.Context, scope Scope, year int) ([]PaymentRecordRow, error) {
	query := `SELECT p.sl_no, p.institution_id, ` + prefixCols("p", paymentCoreCols) + `,
		p.approval_status, u.institution_name, b.sl_no
		FROM institution_payment_details p
		JOIN institution_users u ON u.institution_id = p.institution_id
		LEFT JOIN institution_bills b ON b.sl_no = p.sl_no`
	var conds []string
	var args []any
	switch {
	case scope.Unrestricted():
	case scope.InstitutionID != "":
		args = append(args, scope.InstitutionID)
		conds = append(conds, fmt.Sprintf("p.institution_id=$%d", len(args)))
	default:
		args = append(args, scope.DivisionID)
		conds = append(conds, fmt.Sprintf("u.division_id=$%d", len(args)))
	}
	if year != 0 {
		args = append(args, year)
		conds = append(conds, fmt.Sprintf("p.payment_year=$%d", len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY p.sl_no`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	defer rows.Close()

	var records []PaymentRecordRow
	for rows.Next() {
		var row PaymentRecordRow
		dests := []any{&row.SlNo, &row.InstitutionID}
		dests = append(dests, coreDests(&row.PaymentCore)...)
		dests = append(dests, &row.ApprovalStatus, &row.InstitutionName, &row.BillSlNo)
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scan payment record: %w", err)
		}
		records = append(records, row)
	}
	return records, rows.Err()
}

func (s *Postgres) GetPaymentRecord(ctx context.Context, scope Scope, slNo int) (PaymentRecord, error) {
	return getPaymentRecord(ctx, s.db, scope, slNo)
}

func getPaymentRecord(ctx context.Context, q dbtx, scope Scope, slNo int) (PaymentRecord, error) {
	var record PaymentRecord
	var divisionID string
	dests := []any{&record.SlNo, &record.InstitutionID}
	dests = append(dests, coreDests(&record.PaymentCore)...)
	dests = append(dests, &record.ApprovalStatus, &divisionID)

	err := q.QueryRowContext(ctx,
		`SELECT p.sl_no, p.institution_id, `+prefixCols("p", paymentCoreCols)+`,
		 p.approval_status, u.division_id
		 FROM institution_payment_details p
		 JOIN institution_users u ON u.institution_id = p.institution_id
		 WHERE p.sl_no=$1`, slNo,
	).Scan(dests...)
	if errors.Is(err, sql.ErrNoRows) {
		return PaymentRecord{}, ErrNotFound
	}
	if err != nil {
		return PaymentRecord{}, fmt.Errorf("get payment record: %w", err)
	}
	if !scope.coversInstitution(record.InstitutionID, divisionID) {
		return PaymentRecord{}, ErrForbidden
	}
	return record, nil
}

// CreatePaymentRecord inserts the record and its bill attachment atomically
// and returns the assigned serial.
func (s *Postgres) CreatePaymentRecord(ctx context.Context, scope Scope, record PaymentRecord, bill *Bill) (int, error) {
	var slNo int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := authorizeInstitution(ctx, tx, scope, record.InstitutionID); err != nil {
			return err
		}
		args := []any{record.InstitutionID}
		args = append(args, coreArgs(record.PaymentCore)...)
		err := tx.QueryRowContext(ctx,
			`INSERT INTO institution_payment_details (institution_id, `+paymentCoreCols+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
			 RETURNING sl_no`, args...).Scan(&slNo)
		if err != nil {
			return translateUnique(fmt.Errorf("insert payment record: %w", err))
		}
		if bill != nil {
			if err := putBill(ctx, tx, "institution_bills", slNo, *bill); err != nil {
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

// UpdatePaymentRecord rewrites the shared columns and, when a new bill is
// supplied, replaces the attachment in the same transaction. Approval status
// is untouched here; only ApprovePaymentRecord moves it, and only forward.
func (s *Postgres) UpdatePaymentRecord(ctx context.Context, scope Scope, record PaymentRecord, bill *Bill) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getPaymentRecord(ctx, tx, scope, record.SlNo); err != nil {
			return err
		}
		args := coreArgs(record.PaymentCore)
		args = append(args, record.SlNo)
		_, err := tx.ExecContext(ctx,
			`UPDATE institution_payment_details SET
			   payment_year=$1, receipt_no_or_date=$2, property_tax=$3, rebate=$4, service_tax=$5,
			   dimension_of_vacant_area_sqft=$6, dimension_of_building_area_sqft=$7,
			   total_dimension_in_sqft=$8, usage_of_building=$9, to_which_department_paid=$10,
			   cesses=$11, interest=$12, penalty_arrears=$13, total_amount=$14, remarks=$15,
			   number_of_floors=$16, basement_floor_sqft=$17, ground_floor_sqft=$18,
			   first_floor_sqft=$19, second_floor_sqft=$20, third_floor_sqft=$21
			 WHERE sl_no=$22`, args...)
		if err != nil {
			return translateUnique(fmt.Errorf("update payment record: %w", err))
		}
		if bill != nil {
			if err := putBill(ctx, tx, "institution_bills", record.SlNo, *bill); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) DeletePaymentRecord(ctx context.Context, scope Scope, slNo int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getPaymentRecord(ctx, tx, scope, slNo); err != nil {
			return err
		}
		// institution_bills rows go with the record via ON DELETE CASCADE.
		_, err := tx.ExecContext(ctx,
			`DELETE FROM institution_payment_details WHERE sl_no=$1`, slNo)
		if err != nil {
			return fmt.Errorf("delete payment record: %w", err)
		}
		return nil
	})
}

// ApprovePaymentRecord marks a record approved. Approval never reverts;
// approving an already-approved record is a no-op.
func (s *Postgres) ApprovePaymentRecord(ctx context.Context, scope Scope, slNo int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getPaymentRecord(ctx, tx, scope, slNo); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE institution_payment_details SET approval_status=TRUE WHERE sl_no=$1`, slNo)
		if err != nil {
			return fmt.Errorf("approve payment record: %w", err)
		}
		return nil
	})
}

// UnpaidInstitutions lists in-scope institutions with no payment record for
// the given year.
func (s *Postgres) UnpaidInstitutions(ctx context.Context, scope Scope, year int) ([]UnpaidInstitution, error) {
	query := `SELECT u.institution_id, u.institution_name, u.khatha_or_property_no,
		u.phone_number, u.email
		FROM institution_users u
		WHERE NOT EXISTS (
			SELECT 1 FROM institution_payment_details p
			WHERE p.institution_id = u.institution_id AND p.payment_year = $1
		)`
	args := []any{year}
	if !scope.Unrestricted() {
		query += ` AND u.division_id=$2`
		args = append(args, scope.DivisionID)
	}
	query += ` ORDER BY u.institution_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unpaid institutions: %w", err)
	}
	defer rows.Close()

	var unpaid []UnpaidInstitution
	for rows.Next() {
		var u UnpaidInstitution
		if err := rows.Scan(&u.InstitutionID, &u.InstitutionName, &u.KhathaOrPropertyNo, &u.PhoneNumber, &u.Email); err != nil {
			return nil, fmt.Errorf("scan unpaid institution: %w", err)
		}
		unpaid = append(unpaid, u)
	}
	return unpaid, rows.Err()
}

// PaymentYearTaken reports whether the institution already has a record for
// the year, optionally excluding one serial during edits.
func (s *Postgres) PaymentYearTaken(ctx context.Context, institutionID string, year, excludeSlNo int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM institution_payment_details
		  WHERE institution_id=$1 AND payment_year=$2 AND sl_no<>$3)`,
		institutionID, year, excludeSlNo).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check payment year: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ReceiptTaken(ctx context.Context, institutionID, receipt string, excludeSlNo int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM institution_payment_details
		  WHERE institution_id=$1 AND receipt_no_or_date=$2 AND sl_no<>$3)`,
		institutionID, receipt, excludeSlNo).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check receipt: %w", err)
	}
	return exists, nil
}
