package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"taxportal/api/internal/rbac"
	"taxportal/api/internal/store"
)

func (s *HTTPServer) handleListInstitutionUsers(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleDivision)
	if !ok {
		return
	}
	users, err := s.service.ListInstitutionUsers(r.Context(), data.Principal)
	if err != nil {
		s.failTo(w, r, id, err, "/division")
		return
	}
	s.render(w, r, id, data, "institution_users", "Institution users", struct {
		Users   []store.InstitutionUser
		CanEdit bool
	}{users, true})
}

func (s *HTTPServer) handleCreateInstitutionUser(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleDivision)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, id, data, "institution_form", "Register an institution", struct {
			User store.InstitutionUser
			Edit bool
		}{})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			s.redirectFlash(w, r, id, "danger", "Invalid form submission", "/create_new_institution")
			return
		}
		in := institutionUserInputFromForm(r)
		if err := s.service.CreateInstitutionUser(r.Context(), data.Principal, in); err != nil {
			s.failTo(w, r, id, err, "/create_new_institution")
			return
		}
		s.redirectFlash(w, r, id, "success", "Institution registered", "/list_institution_users_in_division")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *HTTPServer) handleModifyInstitutionUser(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleDivision)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		institutionID := r.URL.Query().Get("institution_id")
		user, err := s.service.GetInstitutionUser(r.Context(), data.Principal, institutionID)
		if err != nil {
			s.failTo(w, r, id, err, "/list_institution_users_in_division")
			return
		}
		s.render(w, r, id, data, "institution_form", "Modify institution", struct {
			User store.InstitutionUser
			Edit bool
		}{user, true})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			s.redirectFlash(w, r, id, "danger", "Invalid form submission", "/list_institution_users_in_division")
			return
		}
		in := institutionUserInputFromForm(r)
		if err := s.service.UpdateInstitutionUser(r.Context(), data.Principal, in); err != nil {
			s.failTo(w, r, id, err, "/list_institution_users_in_division")
			return
		}
		s.redirectFlash(w, r, id, "success", "Institution updated", "/list_institution_users_in_division")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *HTTPServer) handleDeleteInstitutionUser(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleDivision)
	if !ok {
		return
	}
	institutionID := r.URL.Query().Get("institution_id")
	if err := s.service.DeleteInstitutionUser(r.Context(), data.Principal, institutionID); err != nil {
		s.failTo(w, r, id, err, "/list_institution_users_in_division")
		return
	}
	s.redirectFlash(w, r, id, "success", "Institution deleted", "/list_institution_users_in_division")
}

// handleApprovePayment flips a record's approval flag. Approving an
// already approved record redirects without complaint.
func (s *HTTPServer) handleApprovePayment(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleDivision)
	if !ok {
		return
	}
	slNo, err := queryInt(r, "sl_no")
	if err != nil || slNo == 0 {
		s.redirectFlash(w, r, id, "danger", "The data you are looking for is not available", "/list_payment_details_in_division")
		return
	}
	if err := s.service.ApprovePaymentRecord(r.Context(), data.Principal, slNo); err != nil {
		s.failTo(w, r, id, err, "/list_payment_details_in_division")
		return
	}
	s.redirectFlash(w, r, id, "success", "Payment record approved", "/list_payment_details_in_division")
}

func (s *HTTPServer) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleDivision)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sent, err := s.service.SendPaymentReminders(r.Context(), data.Principal, time.Now().Year())
	if err != nil {
		s.failTo(w, r, id, err, "/division")
		return
	}
	s.redirectFlash(w, r, id, "success", fmt.Sprintf("Sent %d payment reminders", sent), "/division")
}

func institutionUserInputFromForm(r *http.Request) InstitutionUserInput {
	return InstitutionUserInput{
		InstitutionID:      strings.TrimSpace(r.FormValue("institution_id")),
		Email:              strings.TrimSpace(r.FormValue("email")),
		Password:           r.FormValue("password"),
		PhoneNumber:        strings.TrimSpace(r.FormValue("phone_number")),
		Country:            strings.TrimSpace(r.FormValue("country")),
		State:              strings.TrimSpace(r.FormValue("state")),
		District:           strings.TrimSpace(r.FormValue("district")),
		Taluk:              strings.TrimSpace(r.FormValue("taluk")),
		InstitutionName:    strings.TrimSpace(r.FormValue("institution_name")),
		VillageOrCity:      strings.TrimSpace(r.FormValue("village_or_city")),
		PID:                strings.TrimSpace(r.FormValue("pid")),
		KhathaOrPropertyNo: strings.TrimSpace(r.FormValue("khatha_or_property_no")),
		NameOfKhathadar:    strings.TrimSpace(r.FormValue("name_of_khathadar")),
		TypeOfBuilding:     strings.TrimSpace(r.FormValue("type_of_building")),
	}
}
