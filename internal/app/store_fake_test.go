package app

import (
	"context"
	"sort"

	"taxportal/api/internal/rbac"
	"taxportal/api/internal/store"
)

// fakeStore is an in-memory dataStore for handler tests. It mirrors the
// Postgres store's scope semantics so the guards can be exercised without
// a database.
type fakeStore struct {
	admins       []store.Admin
	divisions    []store.DivisionUser
	institutions []store.InstitutionUser
	payments     map[int]store.PaymentRecord
	staged       map[int]store.StagedRecord
	bills        map[int]store.Bill
	stagedBills  map[int]store.Bill
	nextSlNo     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments:    map[int]store.PaymentRecord{},
		staged:      map[int]store.StagedRecord{},
		bills:       map[int]store.Bill{},
		stagedBills: map[int]store.Bill{},
		nextSlNo:    1000,
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetAdminByEmail(_ context.Context, email string) (store.Admin, error) {
	for _, a := range f.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return store.Admin{}, store.ErrNotFound
}

func (f *fakeStore) GetDivisionUserByEmail(_ context.Context, email string) (store.DivisionUser, error) {
	for _, d := range f.divisions {
		if d.Email == email {
			return d, nil
		}
	}
	return store.DivisionUser{}, store.ErrNotFound
}

func (f *fakeStore) GetInstitutionUserByEmail(_ context.Context, email string) (store.InstitutionUser, error) {
	for _, u := range f.institutions {
		if u.Email == email {
			return u, nil
		}
	}
	return store.InstitutionUser{}, store.ErrNotFound
}

func (f *fakeStore) ListDivisionUsers(context.Context) ([]store.DivisionUser, error) {
	out := append([]store.DivisionUser(nil), f.divisions...)
	return out, nil
}

func (f *fakeStore) GetDivisionUser(_ context.Context, divisionID string) (store.DivisionUser, error) {
	for _, d := range f.divisions {
		if d.DivisionID == divisionID {
			return d, nil
		}
	}
	return store.DivisionUser{}, store.ErrNotFound
}

func (f *fakeStore) CreateDivisionUser(_ context.Context, user store.DivisionUser) error {
	for _, d := range f.divisions {
		if d.DivisionID == user.DivisionID {
			return store.ErrDuplicate
		}
	}
	f.divisions = append(f.divisions, user)
	return nil
}

func (f *fakeStore) UpdateDivisionUser(_ context.Context, user store.DivisionUser) error {
	for i, d := range f.divisions {
		if d.DivisionID == user.DivisionID {
			f.divisions[i] = user
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) DeleteDivisionUser(_ context.Context, divisionID string) error {
	for i, d := range f.divisions {
		if d.DivisionID == divisionID {
			f.divisions = append(f.divisions[:i], f.divisions[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) findInstitution(institutionID string) (store.InstitutionUser, bool) {
	for _, u := range f.institutions {
		if u.InstitutionID == institutionID {
			return u, true
		}
	}
	return store.InstitutionUser{}, false
}

func (f *fakeStore) covers(scope store.Scope, institutionID string) bool {
	switch scope.Role {
	case rbac.RoleAdmin:
		return true
	case rbac.RoleDivision:
		u, ok := f.findInstitution(institutionID)
		return ok && u.DivisionID == scope.DivisionID
	case rbac.RoleInstitution, rbac.RoleSite:
		return scope.InstitutionID == institutionID
	default:
		return false
	}
}

func (f *fakeStore) ListInstitutionUsers(_ context.Context, scope store.Scope) ([]store.InstitutionUser, error) {
	var out []store.InstitutionUser
	for _, u := range f.institutions {
		if scope.Unrestricted() || (scope.Role == rbac.RoleDivision && u.DivisionID == scope.DivisionID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) GetInstitutionUser(_ context.Context, scope store.Scope, institutionID string) (store.InstitutionUser, error) {
	u, ok := f.findInstitution(institutionID)
	if !ok {
		return store.InstitutionUser{}, store.ErrNotFound
	}
	if !f.covers(scope, institutionID) {
		return store.InstitutionUser{}, store.ErrForbidden
	}
	return u, nil
}

func (f *fakeStore) CreateInstitutionUser(_ context.Context, user store.InstitutionUser) error {
	if _, ok := f.findInstitution(user.InstitutionID); ok {
		return store.ErrDuplicate
	}
	f.institutions = append(f.institutions, user)
	return nil
}

func (f *fakeStore) UpdateInstitutionUser(_ context.Context, scope store.Scope, user store.InstitutionUser) error {
	if _, ok := f.findInstitution(user.InstitutionID); !ok {
		return store.ErrNotFound
	}
	if !f.covers(scope, user.InstitutionID) {
		return store.ErrForbidden
	}
	for i, u := range f.institutions {
		if u.InstitutionID == user.InstitutionID {
			f.institutions[i] = user
		}
	}
	return nil
}

func (f *fakeStore) DeleteInstitutionUser(_ context.Context, scope store.Scope, institutionID string) error {
	if _, ok := f.findInstitution(institutionID); !ok {
		return store.ErrNotFound
	}
	if !f.covers(scope, institutionID) {
		return store.ErrForbidden
	}
	for i, u := range f.institutions {
		if u.InstitutionID == institutionID {
			f.institutions = append(f.institutions[:i], f.institutions[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) EmailInUse(_ context.Context, email, excludeDivisionID, excludeInstitutionID string) (bool, error) {
	for _, a := range f.admins {
		if a.Email == email {
			return true, nil
		}
	}
	for _, d := range f.divisions {
		if d.Email == email && d.DivisionID != excludeDivisionID {
			return true, nil
		}
	}
	for _, u := range f.institutions {
		if u.Email == email && u.InstitutionID != excludeInstitutionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DivisionPhoneInUse(_ context.Context, phone, excludeDivisionID string) (bool, error) {
	for _, d := range f.divisions {
		if d.PhoneNumber == phone && d.DivisionID != excludeDivisionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InstitutionPhoneInUse(_ context.Context, phone, excludeInstitutionID string) (bool, error) {
	for _, u := range f.institutions {
		if u.PhoneNumber == phone && u.InstitutionID != excludeInstitutionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DivisionIDTaken(_ context.Context, divisionID string) (bool, error) {
	for _, d := range f.divisions {
		if d.DivisionID == divisionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InstitutionIDTaken(_ context.Context, institutionID string) (bool, error) {
	_, ok := f.findInstitution(institutionID)
	return ok, nil
}

func (f *fakeStore) ListPaymentRecords(_ context.Context, scope store.Scope, year int) ([]store.PaymentRecordRow, error) {
	var out []store.PaymentRecordRow
	for slNo, p := range f.payments {
		if !f.covers(scope, p.InstitutionID) {
			continue
		}
		if year != 0 && p.PaymentYear != year {
			continue
		}
		row := store.PaymentRecordRow{PaymentRecord: p}
		if u, ok := f.findInstitution(p.InstitutionID); ok {
			row.InstitutionName = u.InstitutionName
		}
		if _, ok := f.bills[slNo]; ok {
			n := slNo
			row.BillSlNo = &n
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlNo < out[j].SlNo })
	return out, nil
}

func (f *fakeStore) GetPaymentRecord(_ context.Context, scope store.Scope, slNo int) (store.PaymentRecord, error) {
	p, ok := f.payments[slNo]
	if !ok {
		return store.PaymentRecord{}, store.ErrNotFound
	}
	if !f.covers(scope, p.InstitutionID) {
		return store.PaymentRecord{}, store.ErrForbidden
	}
	return p, nil
}

func (f *fakeStore) CreatePaymentRecord(_ context.Context, scope store.Scope, record store.PaymentRecord, bill *store.Bill) (int, error) {
	if _, ok := f.findInstitution(record.InstitutionID); !ok {
		return 0, store.ErrNotFound
	}
	if !f.covers(scope, record.InstitutionID) {
		return 0, store.ErrForbidden
	}
	for _, p := range f.payments {
		if p.InstitutionID == record.InstitutionID && (p.PaymentYear == record.PaymentYear || p.ReceiptNoOrDate == record.ReceiptNoOrDate) {
			return 0, store.ErrDuplicate
		}
	}
	f.nextSlNo++
	record.SlNo = f.nextSlNo
	record.ApprovalStatus = false
	f.payments[record.SlNo] = record
	if bill != nil {
		f.bills[record.SlNo] = *bill
	}
	return record.SlNo, nil
}

func (f *fakeStore) UpdatePaymentRecord(_ context.Context, scope store.Scope, record store.PaymentRecord, bill *store.Bill) error {
	existing, ok := f.payments[record.SlNo]
	if !ok {
		return store.ErrNotFound
	}
	if !f.covers(scope, existing.InstitutionID) {
		return store.ErrForbidden
	}
	record.InstitutionID = existing.InstitutionID
	record.ApprovalStatus = existing.ApprovalStatus
	f.payments[record.SlNo] = record
	if bill != nil {
		f.bills[record.SlNo] = *bill
	}
	return nil
}

func (f *fakeStore) DeletePaymentRecord(_ context.Context, scope store.Scope, slNo int) error {
	p, ok := f.payments[slNo]
	if !ok {
		return store.ErrNotFound
	}
	if !f.covers(scope, p.InstitutionID) {
		return store.ErrForbidden
	}
	delete(f.payments, slNo)
	delete(f.bills, slNo)
	return nil
}

func (f *fakeStore) ApprovePaymentRecord(_ context.Context, scope store.Scope, slNo int) error {
	p, ok := f.payments[slNo]
	if !ok {
		return store.ErrNotFound
	}
	if !f.covers(scope, p.InstitutionID) {
		return store.ErrForbidden
	}
	p.ApprovalStatus = true
	f.payments[slNo] = p
	return nil
}

func (f *fakeStore) UnpaidInstitutions(_ context.Context, scope store.Scope, year int) ([]store.UnpaidInstitution, error) {
	var out []store.UnpaidInstitution
	for _, u := range f.institutions {
		if scope.Role == rbac.RoleDivision && u.DivisionID != scope.DivisionID {
			continue
		}
		paid := false
		for _, p := range f.payments {
			if p.InstitutionID == u.InstitutionID && p.PaymentYear == year {
				paid = true
				break
			}
		}
		if !paid {
			out = append(out, store.UnpaidInstitution{
				InstitutionID:      u.InstitutionID,
				InstitutionName:    u.InstitutionName,
				KhathaOrPropertyNo: u.KhathaOrPropertyNo,
				PhoneNumber:        u.PhoneNumber,
				Email:              u.Email,
			})
		}
	}
	return out, nil
}

func (f *fakeStore) PaymentYearTaken(_ context.Context, institutionID string, year, excludeSlNo int) (bool, error) {
	for _, p := range f.payments {
		if p.InstitutionID == institutionID && p.PaymentYear == year && p.SlNo != excludeSlNo {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ReceiptTaken(_ context.Context, institutionID, receipt string, excludeSlNo int) (bool, error) {
	for _, p := range f.payments {
		if p.InstitutionID == institutionID && p.ReceiptNoOrDate == receipt && p.SlNo != excludeSlNo {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListStagedRecords(context.Context) ([]store.StagedRecordRow, error) {
	var out []store.StagedRecordRow
	for slNo, rec := range f.staged {
		row := store.StagedRecordRow{StagedRecord: rec}
		if _, ok := f.stagedBills[slNo]; ok {
			n := slNo
			row.BillSlNo = &n
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlNo < out[j].SlNo })
	return out, nil
}

func (f *fakeStore) GetStagedRecord(_ context.Context, slNo int) (store.StagedRecord, error) {
	rec, ok := f.staged[slNo]
	if !ok {
		return store.StagedRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) CreateStagedRecord(_ context.Context, record store.StagedRecord, bill *store.Bill) (int, error) {
	for _, rec := range f.staged {
		if rec.ReceiptNoOrDate == record.ReceiptNoOrDate {
			return 0, store.ErrDuplicate
		}
	}
	f.nextSlNo++
	record.SlNo = f.nextSlNo
	f.staged[record.SlNo] = record
	if bill != nil {
		f.stagedBills[record.SlNo] = *bill
	}
	return record.SlNo, nil
}

func (f *fakeStore) StagedReceiptTaken(_ context.Context, receipt string, excludeSlNo int) (bool, error) {
	for _, rec := range f.staged {
		if rec.ReceiptNoOrDate == receipt && rec.SlNo != excludeSlNo {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) TransferStagedRecord(_ context.Context, stagedSlNo int, institutionID string) (int, error) {
	rec, ok := f.staged[stagedSlNo]
	if !ok {
		return 0, store.ErrNotFound
	}
	if _, ok := f.findInstitution(institutionID); !ok {
		return 0, store.ErrNotFound
	}
	for _, p := range f.payments {
		if p.InstitutionID == institutionID && (p.PaymentYear == rec.PaymentYear || p.ReceiptNoOrDate == rec.ReceiptNoOrDate) {
			return 0, store.ErrDuplicate
		}
	}
	f.nextSlNo++
	newSlNo := f.nextSlNo
	f.payments[newSlNo] = store.PaymentRecord{
		SlNo:          newSlNo,
		InstitutionID: institutionID,
		PaymentCore:   rec.PaymentCore,
	}
	if bill, ok := f.stagedBills[stagedSlNo]; ok {
		bill.SlNo = newSlNo
		f.bills[newSlNo] = bill
		delete(f.stagedBills, stagedSlNo)
	}
	delete(f.staged, stagedSlNo)
	return newSlNo, nil
}

func (f *fakeStore) GetBill(_ context.Context, slNo int) (store.Bill, error) {
	bill, ok := f.bills[slNo]
	if !ok {
		return store.Bill{}, store.ErrNotFound
	}
	return bill, nil
}

func (f *fakeStore) GetStagedBill(_ context.Context, slNo int) (store.Bill, error) {
	bill, ok := f.stagedBills[slNo]
	if !ok {
		return store.Bill{}, store.ErrNotFound
	}
	return bill, nil
}

func (f *fakeStore) BillOwnership(_ context.Context, slNo int) (string, string, error) {
	if _, ok := f.bills[slNo]; !ok {
		return "", "", store.ErrNotFound
	}
	p, ok := f.payments[slNo]
	if !ok {
		return "", "", store.ErrNotFound
	}
	u, ok := f.findInstitution(p.InstitutionID)
	if !ok {
		return "", "", store.ErrNotFound
	}
	return u.InstitutionID, u.DivisionID, nil
}

func (f *fakeStore) ComprehensiveReport(_ context.Context, scope store.Scope) ([]store.ReportRow, error) {
	var out []store.ReportRow
	for _, u := range f.institutions {
		if !f.covers(scope, u.InstitutionID) {
			continue
		}
		found := false
		for _, p := range f.payments {
			if p.InstitutionID != u.InstitutionID {
				continue
			}
			found = true
			out = append(out, store.ReportRow{
				InstitutionID:      u.InstitutionID,
				InstitutionName:    u.InstitutionName,
				DivisionID:         u.DivisionID,
				KhathaOrPropertyNo: u.KhathaOrPropertyNo,
				PID:                u.PID,
				NameOfKhathadar:    u.NameOfKhathadar,
				HasPayment:         true,
				Payment:            p,
			})
		}
		if !found {
			out = append(out, store.ReportRow{
				InstitutionID:      u.InstitutionID,
				InstitutionName:    u.InstitutionName,
				DivisionID:         u.DivisionID,
				KhathaOrPropertyNo: u.KhathaOrPropertyNo,
				PID:                u.PID,
				NameOfKhathadar:    u.NameOfKhathadar,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstitutionID < out[j].InstitutionID })
	return out, nil
}

func (f *fakeStore) LocalReport(_ context.Context, scope store.Scope) ([]store.PropertySummary, error) {
	var out []store.PropertySummary
	for _, u := range f.institutions {
		if !f.covers(scope, u.InstitutionID) {
			continue
		}
		out = append(out, store.PropertySummary{
			InstitutionID:      u.InstitutionID,
			InstitutionName:    u.InstitutionName,
			KhathaOrPropertyNo: u.KhathaOrPropertyNo,
			NameOfKhathadar:    u.NameOfKhathadar,
			PID:                u.PID,
		})
	}
	return out, nil
}
