package store

import (
	"context"
	"fmt"
)

// ComprehensiveReport joins every in-scope institution with each of its
// payment records. Institutions with no payments still get one row so the
// report shows them as outstanding.
func (s *Postgres) ComprehensiveReport(ctx context.Context, scope Scope) ([]ReportRow, error) {
	query := `SELECT u.institution_id, u.institution_name, u.division_id,
		u.khatha_or_property_no, COALESCE(u.pid,''), u.name_of_khathadar,
		p.sl_no, ` + prefixCols("p", paymentCoreCols) + `, p.approval_status
		FROM institution_users u
		LEFT JOIN institution_payment_details p ON p.institution_id = u.institution_id`
	var args []any
	if !scope.Unrestricted() {
		query += ` WHERE u.division_id=$1`
		args = append(args, scope.DivisionID)
	}
	query += ` ORDER BY u.institution_id, p.payment_year`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("comprehensive report: %w", err)
	}
	defer rows.Close()

	var report []ReportRow
	for rows.Next() {
		var row ReportRow
		var slNo *int
		core := nullableCoreDests()
		dests := []any{&row.InstitutionID, &row.InstitutionName, &row.DivisionID,
			&row.KhathaOrPropertyNo, &row.PID, &row.NameOfKhathadar, &slNo}
		dests = append(dests, core.dests...)
		var approved *bool
		dests = append(dests, &approved)
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		if slNo != nil {
			row.HasPayment = true
			row.Payment.SlNo = *slNo
			row.Payment.InstitutionID = row.InstitutionID
			row.Payment.PaymentCore = core.value()
			if approved != nil {
				row.Payment.ApprovalStatus = *approved
			}
		}
		report = append(report, row)
	}
	return report, rows.Err()
}

// nullableCore scans the shared payment columns from a LEFT JOIN where the
// whole record may be absent.
type nullableCore struct {
	ints  [17]*int
	strs  [4]*string
	dests []any
}

func nullableCoreDests() *nullableCore {
	c := &nullableCore{}
	// same order as paymentCoreCols
	c.dests = []any{
		&c.ints[0], &c.strs[0], &c.ints[1], &c.ints[2], &c.ints[3],
		&c.ints[4], &c.ints[5], &c.ints[6],
		&c.strs[1], &c.strs[2], &c.ints[7], &c.ints[8], &c.ints[9],
		&c.ints[10], &c.strs[3], &c.ints[11], &c.ints[12], &c.ints[13],
		&c.ints[14], &c.ints[15], &c.ints[16],
	}
	return c
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (c *nullableCore) value() PaymentCore {
	return PaymentCore{
		PaymentYear:        deref(c.ints[0]),
		ReceiptNoOrDate:    derefStr(c.strs[0]),
		PropertyTax:        deref(c.ints[1]),
		Rebate:             deref(c.ints[2]),
		ServiceTax:         deref(c.ints[3]),
		VacantAreaSqft:     deref(c.ints[4]),
		BuildingAreaSqft:   deref(c.ints[5]),
		TotalDimensionSqft: deref(c.ints[6]),
		UsageOfBuilding:    derefStr(c.strs[1]),
		DepartmentPaid:     derefStr(c.strs[2]),
		Cesses:             deref(c.ints[7]),
		Interest:           deref(c.ints[8]),
		PenaltyArrears:     deref(c.ints[9]),
		TotalAmount:        deref(c.ints[10]),
		Remarks:            derefStr(c.strs[3]),
		NumberOfFloors:     deref(c.ints[11]),
		BasementFloorSqft:  deref(c.ints[12]),
		GroundFloorSqft:    deref(c.ints[13]),
		FirstFloorSqft:     deref(c.ints[14]),
		SecondFloorSqft:    deref(c.ints[15]),
		ThirdFloorSqft:     deref(c.ints[16]),
	}
}

// LocalReport lists the in-scope property roster without payment data.
func (s *Postgres) LocalReport(ctx context.Context, scope Scope) ([]PropertySummary, error) {
	query := `SELECT institution_id, institution_name, khatha_or_property_no,
		name_of_khathadar, COALESCE(pid,'')
		FROM institution_users`
	var args []any
	if !scope.Unrestricted() {
		query += ` WHERE division_id=$1`
		args = append(args, scope.DivisionID)
	}
	query += ` ORDER BY institution_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("local report: %w", err)
	}
	defer rows.Close()

	var summaries []PropertySummary
	for rows.Next() {
		var p PropertySummary
		if err := rows.Scan(&p.InstitutionID, &p.InstitutionName, &p.KhathaOrPropertyNo, &p.NameOfKhathadar, &p.PID); err != nil {
			return nil, fmt.Errorf("scan property summary: %w", err)
		}
		summaries = append(summaries, p)
	}
	return summaries, rows.Err()
}

// SearchInstitutions is the database fallback for property search, used
// when the search index is down or unconfigured.
func (s *Postgres) SearchInstitutions(ctx context.Context, scope Scope, term string) ([]InstitutionUser, error) {
	pattern := "%" + term + "%"
	query := selectInstitutionUser + `
		WHERE (institution_name ILIKE $1 OR name_of_khathadar ILIKE $1
		   OR khatha_or_property_no ILIKE $1 OR COALESCE(pid,'') ILIKE $1
		   OR village_or_city ILIKE $1)`
	args := []any{pattern}
	if !scope.Unrestricted() {
		query += ` AND division_id=$2`
		args = append(args, scope.DivisionID)
	}
	query += ` ORDER BY institution_id LIMIT 50`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search institutions: %w", err)
	}
	defer rows.Close()

	var users []InstitutionUser
	for rows.Next() {
		var user InstitutionUser
		if err := rows.Scan(&user.InstitutionID, &user.DivisionID, &user.Email, &user.PasswordHash,
			&user.PhoneNumber, &user.Country, &user.State, &user.District, &user.Taluk,
			&user.InstitutionName, &user.VillageOrCity, &user.PID, &user.KhathaOrPropertyNo,
			&user.NameOfKhathadar, &user.TypeOfBuilding); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
