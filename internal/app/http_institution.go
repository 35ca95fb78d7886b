package app

import (
	"net/http"
	"strings"

	"taxportal/api/internal/rbac"
	"taxportal/api/internal/store"
	"taxportal/api/internal/upload"
)

// handleListPayments serves all three payment listings; the scope on the
// principal decides whose records come back. An optional selected_year
// query narrows the listing to one payment year.
func (s *HTTPServer) handleListPayments(w http.ResponseWriter, r *http.Request, roles ...rbac.Role) {
	id, data, ok := s.requireRole(w, r, roles...)
	if !ok {
		return
	}
	year, err := queryInt(r, "selected_year")
	if err != nil {
		s.failTo(w, r, id, err, rbac.HomePath(data.Principal.Role))
		return
	}
	rows, err := s.service.ListPaymentRecords(r.Context(), data.Principal, year)
	if err != nil {
		s.failTo(w, r, id, err, rbac.HomePath(data.Principal.Role))
		return
	}
	s.render(w, r, id, data, "payments", "Payment records", struct {
		Rows         []store.PaymentRecordRow
		SelectedYear int
		CanEdit      bool
		CanApprove   bool
	}{
		Rows:         rows,
		SelectedYear: year,
		CanEdit:      data.Principal.Role == rbac.RoleInstitution,
		CanApprove:   data.Principal.Role == rbac.RoleDivision,
	})
}

func (s *HTTPServer) handleNewPayment(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleInstitution)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, id, data, "payment_form", "Record a payment", struct {
			Record store.PaymentRecord
			Edit   bool
		}{})

	case http.MethodPost:
		core, err := paymentCoreFromForm(r)
		if err != nil {
			s.failTo(w, r, id, err, "/new_institution_payment_details")
			return
		}
		bill, err := upload.BillFromForm(r, "bill")
		if err != nil {
			s.failTo(w, r, id, err, "/new_institution_payment_details")
			return
		}
		record := store.PaymentRecord{
			InstitutionID: data.Principal.InstitutionID,
			PaymentCore:   core,
		}
		if err := s.service.CreatePaymentRecord(r.Context(), data.Principal, record, bill); err != nil {
			s.failTo(w, r, id, err, "/new_institution_payment_details")
			return
		}
		s.redirectFlash(w, r, id, "success", "Payment record added", "/list_payment_details_in_institution")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *HTTPServer) handleModifyPayment(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleInstitution)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		slNo, err := queryInt(r, "sl_no")
		if err != nil || slNo == 0 {
			s.redirectFlash(w, r, id, "danger", "The data you are looking for is not available", "/list_payment_details_in_institution")
			return
		}
		record, err := s.service.GetPaymentRecord(r.Context(), data.Principal, slNo)
		if err != nil {
			s.failTo(w, r, id, err, "/list_payment_details_in_institution")
			return
		}
		s.render(w, r, id, data, "payment_form", "Modify payment record", struct {
			Record store.PaymentRecord
			Edit   bool
		}{record, true})

	case http.MethodPost:
		slNo, err := formInt(r, "sl_no")
		if err != nil || slNo == 0 {
			s.redirectFlash(w, r, id, "danger", "The data you are looking for is not available", "/list_payment_details_in_institution")
			return
		}
		existing, err := s.service.GetPaymentRecord(r.Context(), data.Principal, slNo)
		if err != nil {
			s.failTo(w, r, id, err, "/list_payment_details_in_institution")
			return
		}
		core, err := paymentCoreFromForm(r)
		if err != nil {
			s.failTo(w, r, id, err, "/list_payment_details_in_institution")
			return
		}
		bill, err := upload.BillFromForm(r, "bill")
		if err != nil {
			s.failTo(w, r, id, err, "/list_payment_details_in_institution")
			return
		}
		record := store.PaymentRecord{
			SlNo:           slNo,
			InstitutionID:  existing.InstitutionID,
			PaymentCore:    core,
			ApprovalStatus: existing.ApprovalStatus,
		}
		if err := s.service.UpdatePaymentRecord(r.Context(), data.Principal, record, bill); err != nil {
			s.failTo(w, r, id, err, "/list_payment_details_in_institution")
			return
		}
		s.redirectFlash(w, r, id, "success", "Payment record updated", "/list_payment_details_in_institution")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *HTTPServer) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleInstitution)
	if !ok {
		return
	}
	slNo, err := queryInt(r, "sl_no")
	if err != nil || slNo == 0 {
		s.redirectFlash(w, r, id, "danger", "The data you are looking for is not available", "/list_payment_details_in_institution")
		return
	}
	if err := s.service.DeletePaymentRecord(r.Context(), data.Principal, slNo); err != nil {
		s.failTo(w, r, id, err, "/list_payment_details_in_institution")
		return
	}
	s.redirectFlash(w, r, id, "success", "Payment record deleted", "/list_payment_details_in_institution")
}

// paymentCoreFromForm parses the shared payment columns from a multipart
// form. Numeric fields accept an empty value as zero.
func paymentCoreFromForm(r *http.Request) (store.PaymentCore, error) {
	var core store.PaymentCore
	var err error

	ints := []struct {
		field string
		dst   *int
	}{
		{"payment_year", &core.PaymentYear},
		{"property_tax", &core.PropertyTax},
		{"rebate", &core.Rebate},
		{"service_tax", &core.ServiceTax},
		{"vacant_area_sqft", &core.VacantAreaSqft},
		{"building_area_sqft", &core.BuildingAreaSqft},
		{"total_dimension_sqft", &core.TotalDimensionSqft},
		{"cesses", &core.Cesses},
		{"interest", &core.Interest},
		{"penalty_arrears", &core.PenaltyArrears},
		{"total_amount", &core.TotalAmount},
		{"number_of_floors", &core.NumberOfFloors},
		{"basement_floor_sqft", &core.BasementFloorSqft},
		{"ground_floor_sqft", &core.GroundFloorSqft},
		{"first_floor_sqft", &core.FirstFloorSqft},
		{"second_floor_sqft", &core.SecondFloorSqft},
		{"third_floor_sqft", &core.ThirdFloorSqft},
	}
	for _, in := range ints {
		*in.dst, err = formInt(r, in.field)
		if err != nil {
			return store.PaymentCore{}, err
		}
	}
	core.ReceiptNoOrDate = strings.TrimSpace(r.FormValue("receipt_no_or_date"))
	core.UsageOfBuilding = strings.TrimSpace(r.FormValue("usage_of_building"))
	core.DepartmentPaid = strings.TrimSpace(r.FormValue("department_paid"))
	core.Remarks = strings.TrimSpace(r.FormValue("remarks"))

	if core.PaymentYear == 0 {
		return store.PaymentCore{}, flashErr("danger", "Payment year is required")
	}
	if core.ReceiptNoOrDate == "" {
		return store.PaymentCore{}, flashErr("danger", "Receipt no / date is required")
	}
	return core, nil
}
