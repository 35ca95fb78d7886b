package app

import (
	"log"
	"net/http"
	"strings"
	"time"

	"taxportal/api/internal/rbac"
	"taxportal/api/internal/store"
)

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id, data := s.currentSession(r)
		if data.IsLoggedIn() {
			http.Redirect(w, r, rbac.HomePath(data.Principal.Role), http.StatusFound)
			return
		}
		if id == "" {
			id = s.ensureSession(w, r)
		}
		s.render(w, r, id, data, "login", "Login", nil)

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			sessionID := s.ensureSession(w, r)
			s.redirectFlash(w, r, sessionID, "danger", "Invalid form submission", "/login")
			return
		}
		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		oldID, _ := s.currentSession(r)

		newID, principal, err := s.service.Login(r.Context(), oldID, email, password)
		if err != nil {
			sessionID := s.ensureSession(w, r)
			s.failTo(w, r, sessionID, err, "/login")
			return
		}
		s.setSessionCookie(w, newID)
		http.Redirect(w, r, rbac.HomePath(principal.Role), http.StatusFound)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := s.currentSession(r)
	if err := s.service.Logout(r.Context(), id); err != nil {
		log.Printf("logout: %v", err)
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// handleHome dispatches a logged-in user to their role's landing page.
// /go_back shares this route so every page can offer one safe exit.
func (s *HTTPServer) handleHome(w http.ResponseWriter, r *http.Request) {
	_, data, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, rbac.HomePath(data.Principal.Role), http.StatusFound)
}

func (s *HTTPServer) handleAdminHome(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleAdmin)
	if !ok {
		return
	}
	s.render(w, r, id, data, "admin_home", "Administration", nil)
}

// handleDivisionHome renders the division dashboard with the institutions
// that have no payment record for the current year.
func (s *HTTPServer) handleDivisionHome(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleDivision)
	if !ok {
		return
	}
	year := time.Now().Year()
	unpaid, err := s.service.UnpaidInstitutions(r.Context(), data.Principal, year)
	if err != nil {
		log.Printf("dashboard: unpaid institutions: %v", err)
		unpaid = nil
	}
	s.render(w, r, id, data, "division_home", data.Principal.DivisionName, struct {
		Unpaid []store.UnpaidInstitution
		Year   int
	}{unpaid, year})
}

func (s *HTTPServer) handleInstitutionHome(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleInstitution, rbac.RoleSite)
	if !ok {
		return
	}
	s.render(w, r, id, data, "institution_home", data.Principal.InstitutionName, nil)
}
