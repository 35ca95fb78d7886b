package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"taxportal/api/internal/export"
	"taxportal/api/internal/rbac"
	"taxportal/api/internal/store"
)

func (s *HTTPServer) handleComprehensiveReport(w http.ResponseWriter, r *http.Request, roles ...rbac.Role) {
	id, data, ok := s.requireRole(w, r, roles...)
	if !ok {
		return
	}
	rows, err := s.service.ComprehensiveReport(r.Context(), data.Principal)
	if err != nil {
		s.failTo(w, r, id, err, rbac.HomePath(data.Principal.Role))
		return
	}
	s.render(w, r, id, data, "report", "Comprehensive report", rows)
}

func (s *HTTPServer) handleLocalReport(w http.ResponseWriter, r *http.Request, roles ...rbac.Role) {
	id, data, ok := s.requireRole(w, r, roles...)
	if !ok {
		return
	}
	rows, err := s.service.LocalReport(r.Context(), data.Principal)
	if err != nil {
		s.failTo(w, r, id, err, rbac.HomePath(data.Principal.Role))
		return
	}
	s.render(w, r, id, data, "local_report", "Local report", rows)
}

func (s *HTTPServer) handleSearchProperties(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r, rbac.RoleAdmin, rbac.RoleDivision)
	if !ok {
		return
	}
	text := strings.TrimSpace(r.URL.Query().Get("q"))
	resp := s.service.SearchProperties(r.Context(), data.Principal, text)
	s.render(w, r, id, data, "search", "Search properties", resp)
}

// handleExportReport prints the caller's comprehensive report to PDF.
func (s *HTTPServer) handleExportReport(w http.ResponseWriter, r *http.Request) {
	id, data, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result, err := s.service.ExportReport(r.Context(), data.Principal)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			s.redirectFlash(w, r, id, "warning", "PDF export is not available on this server", rbac.HomePath(data.Principal.Role))
			return
		}
		s.failTo(w, r, id, err, rbac.HomePath(data.Principal.Role))
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	_, _ = w.Write(result.Data)
}

// handleViewImage serves a bill attachment after walking the ownership
// chain. A type=admin query asks for a staged bill, which only admins may
// see. Every failure lands back on /home with a flash.
func (s *HTTPServer) handleViewImage(w http.ResponseWriter, r *http.Request, rawSlNo string) {
	id, data, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	slNo, err := strconv.Atoi(rawSlNo)
	if err != nil || slNo <= 0 {
		s.redirectFlash(w, r, id, "danger", "No image found", "/home")
		return
	}
	staged := r.URL.Query().Get("type") == "admin"

	bill, err := s.service.ViewBill(r.Context(), data.Principal, slNo, staged)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.redirectFlash(w, r, id, "danger", "No image found", "/home")
			return
		}
		s.failTo(w, r, id, err, "/home")
		return
	}
	w.Header().Set("Content-Type", bill.Filetype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", bill.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(bill.Data)))
	_, _ = w.Write(bill.Data)
}
