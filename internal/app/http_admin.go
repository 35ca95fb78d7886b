package app

import (
	"net/http"
	"strings"

	"taxportal/api/internal/rbac"
	"taxportal/api/internal/store"
	"taxportal/api/internal/upload"
)

func (s *HTTPServer) handleListDivisionUsers(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleAdmin)
	if !ok {
		return
	}
	users, err := s.service.ListDivisionUsers(r.Context())
	if err != nil {
		s.failTo(w, r, id, err, "/admin")
		return
	}
	s.render(w, r, id, data, "division_users", "Division users", users)
}

func (s *HTTPServer) handleCreateDivisionUser(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleAdmin)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, id, data, "division_form", "Register a division", struct {
			User store.DivisionUser
			Edit bool
		}{})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			s.redirectFlash(w, r, id, "danger", "Invalid form submission", "/create_new_division")
			return
		}
		in := divisionUserInputFromForm(r)
		if err := s.service.CreateDivisionUser(r.Context(), data.Principal, in); err != nil {
			s.failTo(w, r, id, err, "/create_new_division")
			return
		}
		s.redirectFlash(w, r, id, "success", "Division registered", "/list_all_division_users")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *HTTPServer) handleModifyDivisionUser(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleAdmin)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		divisionID := r.URL.Query().Get("division_id")
		user, err := s.service.GetDivisionUser(r.Context(), divisionID)
		if err != nil {
			s.failTo(w, r, id, err, "/list_all_division_users")
			return
		}
		s.render(w, r, id, data, "division_form", "Modify division", struct {
			User store.DivisionUser
			Edit bool
		}{user, true})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			s.redirectFlash(w, r, id, "danger", "Invalid form submission", "/list_all_division_users")
			return
		}
		in := divisionUserInputFromForm(r)
		if err := s.service.UpdateDivisionUser(r.Context(), in); err != nil {
			s.failTo(w, r, id, err, "/list_all_division_users")
			return
		}
		s.redirectFlash(w, r, id, "success", "Division updated", "/list_all_division_users")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *HTTPServer) handleDeleteDivisionUser(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.requireRole(w, r, rbac.RoleAdmin)
	if !ok {
		return
	}
	divisionID := r.URL.Query().Get("division_id")
	if err := s.service.DeleteDivisionUser(r.Context(), divisionID); err != nil {
		s.failTo(w, r, id, err, "/list_all_division_users")
		return
	}
	s.redirectFlash(w, r, id, "success", "Division deleted", "/list_all_division_users")
}

func (s *HTTPServer) handleListAllInstitutionUsers(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleAdmin)
	if !ok {
		return
	}
	users, err := s.service.ListInstitutionUsers(r.Context(), data.Principal)
	if err != nil {
		s.failTo(w, r, id, err, "/admin")
		return
	}
	s.render(w, r, id, data, "institution_users", "Institution users", struct {
		Users   []store.InstitutionUser
		CanEdit bool
	}{users, false})
}

// handleNewStagedRecord records a payment for a property whose institution
// is not registered yet.
func (s *HTTPServer) handleNewStagedRecord(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleAdmin)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, id, data, "staged_form", "Stage a payment record", struct {
			Record store.StagedRecord
		}{})

	case http.MethodPost:
		record, bill, err := stagedRecordFromForm(r)
		if err != nil {
			s.failTo(w, r, id, err, "/new_admin_payment_details")
			return
		}
		if err := s.service.CreateStagedRecord(r.Context(), record, bill); err != nil {
			s.failTo(w, r, id, err, "/new_admin_payment_details")
			return
		}
		s.redirectFlash(w, r, id, "success", "Payment record staged", "/transfer_admin_payment_details")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTransferStagedRecord lists staged records, shows the destination
// picker for one of them, and performs the transfer.
func (s *HTTPServer) handleTransferStagedRecord(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleAdmin)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		slNo, err := queryInt(r, "sl_no")
		if err != nil {
			s.failTo(w, r, id, err, "/transfer_admin_payment_details")
			return
		}
		if slNo == 0 {
			rows, err := s.service.ListStagedRecords(r.Context())
			if err != nil {
				s.failTo(w, r, id, err, "/admin")
				return
			}
			s.render(w, r, id, data, "staged_payments", "Staged payment records", rows)
			return
		}
		staged, err := s.service.GetStagedRecord(r.Context(), slNo)
		if err != nil {
			s.failTo(w, r, id, err, "/transfer_admin_payment_details")
			return
		}
		institutions, err := s.service.ListInstitutionUsers(r.Context(), data.Principal)
		if err != nil {
			s.failTo(w, r, id, err, "/transfer_admin_payment_details")
			return
		}
		s.render(w, r, id, data, "transfer_form", "Transfer staged record", struct {
			Staged       store.StagedRecord
			Institutions []store.InstitutionUser
		}{staged, institutions})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			s.redirectFlash(w, r, id, "danger", "Invalid form submission", "/transfer_admin_payment_details")
			return
		}
		slNo, err := formInt(r, "sl_no")
		if err != nil || slNo == 0 {
			s.redirectFlash(w, r, id, "danger", "The data you are looking for is not available", "/transfer_admin_payment_details")
			return
		}
		institutionID := strings.TrimSpace(r.FormValue("institution_id"))
		if err := s.service.TransferStagedRecord(r.Context(), data.Principal, slNo, institutionID); err != nil {
			s.failTo(w, r, id, err, "/transfer_admin_payment_details")
			return
		}
		s.redirectFlash(w, r, id, "success", "Record transferred", "/transfer_admin_payment_details")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func divisionUserInputFromForm(r *http.Request) DivisionUserInput {
	return DivisionUserInput{
		DivisionID:  strings.TrimSpace(r.FormValue("division_id")),
		Division:    strings.TrimSpace(r.FormValue("division")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Password:    r.FormValue("password"),
		PhoneNumber: strings.TrimSpace(r.FormValue("phone_number")),
	}
}

// stagedRecordFromForm parses the multipart staged-record submission,
// including the optional bill attachment.
func stagedRecordFromForm(r *http.Request) (store.StagedRecord, *store.Bill, error) {
	core, err := paymentCoreFromForm(r)
	if err != nil {
		return store.StagedRecord{}, nil, err
	}
	record := store.StagedRecord{
		PaymentCore:        core,
		PropertyName:       strings.TrimSpace(r.FormValue("property_name")),
		Country:            strings.TrimSpace(r.FormValue("country")),
		State:              strings.TrimSpace(r.FormValue("state")),
		District:           strings.TrimSpace(r.FormValue("district")),
		Taluk:              strings.TrimSpace(r.FormValue("taluk")),
		VillageOrCity:      strings.TrimSpace(r.FormValue("village_or_city")),
		PID:                strings.TrimSpace(r.FormValue("pid")),
		KhathaOrPropertyNo: strings.TrimSpace(r.FormValue("khatha_or_property_no")),
		NameOfKhathadar:    strings.TrimSpace(r.FormValue("name_of_khathadar")),
		TypeOfBuilding:     strings.TrimSpace(r.FormValue("type_of_building")),
	}
	if record.PropertyName == "" {
		return store.StagedRecord{}, nil, flashErr("danger", "Property name is required")
	}
	bill, err := upload.BillFromForm(r, "bill")
	if err != nil {
		return store.StagedRecord{}, nil, err
	}
	return record, bill, nil
}
