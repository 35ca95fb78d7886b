package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taxportal/api/internal/authn"
	"taxportal/api/internal/rbac"
	"taxportal/api/internal/session"
	"taxportal/api/internal/store"
	"taxportal/api/internal/upload"
	"taxportal/api/internal/view"
)

type HTTPServer struct {
	service    *Service
	cookieName string
}

func NewHTTPServer(service *Service, cookieName string) *HTTPServer {
	return &HTTPServer{service: service, cookieName: cookieName}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/health" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.service.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) == 2 && parts[0] == "view_image" && r.Method == http.MethodGet {
		s.handleViewImage(w, r, parts[1])
		return
	}

	switch r.URL.Path {
	case "/":
		s.handleRoot(w, r)
	case "/login":
		s.handleLogin(w, r)
	case "/logout":
		s.handleLogout(w, r)
	case "/home", "/go_back":
		s.handleHome(w, r)

	case "/admin":
		s.handleAdminHome(w, r)
	case "/list_all_division_users":
		s.handleListDivisionUsers(w, r)
	case "/create_new_division":
		s.handleCreateDivisionUser(w, r)
	case "/modify_division_user":
		s.handleModifyDivisionUser(w, r)
	case "/delete_division_user":
		s.handleDeleteDivisionUser(w, r)
	case "/list_all_institution_users":
		s.handleListAllInstitutionUsers(w, r)
	case "/list_all_payment_details":
		s.handleListPayments(w, r, rbac.RoleAdmin)
	case "/new_admin_payment_details":
		s.handleNewStagedRecord(w, r)
	case "/transfer_admin_payment_details":
		s.handleTransferStagedRecord(w, r)
	case "/comprehensive_report_admin":
		s.handleComprehensiveReport(w, r, rbac.RoleAdmin)
	case "/local_report_admin":
		s.handleLocalReport(w, r, rbac.RoleAdmin)

	case "/division":
		s.handleDivisionHome(w, r)
	case "/list_institution_users_in_division":
		s.handleListInstitutionUsers(w, r)
	case "/create_new_institution":
		s.handleCreateInstitutionUser(w, r)
	case "/modify_institution_users":
		s.handleModifyInstitutionUser(w, r)
	case "/delete_institution":
		s.handleDeleteInstitutionUser(w, r)
	case "/list_payment_details_in_division":
		s.handleListPayments(w, r, rbac.RoleDivision)
	case "/approve_institution_payment_details":
		s.handleApprovePayment(w, r)
	case "/send_payment_reminders":
		s.handleSendReminders(w, r)
	case "/comprehensive_report_division":
		s.handleComprehensiveReport(w, r, rbac.RoleDivision)
	case "/local_report_division":
		s.handleLocalReport(w, r, rbac.RoleDivision)

	case "/institution":
		s.handleInstitutionHome(w, r)
	case "/list_payment_details_in_institution":
		s.handleListPayments(w, r, rbac.RoleInstitution, rbac.RoleSite)
	case "/new_institution_payment_details":
		s.handleNewPayment(w, r)
	case "/modify_institution_payment_details":
		s.handleModifyPayment(w, r)
	case "/delete_institution_payment_details":
		s.handleDeletePayment(w, r)
	case "/comprehensive_report_institution":
		s.handleComprehensiveReport(w, r, rbac.RoleInstitution, rbac.RoleSite)
	case "/local_report_institution":
		s.handleLocalReport(w, r, rbac.RoleInstitution, rbac.RoleSite)

	case "/search_properties":
		s.handleSearchProperties(w, r)
	case "/export_report":
		s.handleExportReport(w, r)

	default:
		http.NotFound(w, r)
	}
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	_, data := s.currentSession(r)
	if data.IsLoggedIn() {
		http.Redirect(w, r, rbac.HomePath(data.Principal.Role), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// currentSession resolves the caller's session from the cookie. A missing
// or expired session comes back as an empty id and zero data.
func (s *HTTPServer) currentSession(r *http.Request) (string, session.Data) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return "", session.Data{}
	}
	data, err := s.service.Sessions().Get(r.Context(), cookie.Value)
	if err != nil {
		return "", session.Data{}
	}
	return cookie.Value, data
}

// ensureSession returns the caller's session id, creating an anonymous
// session when there is none. Anonymous sessions exist so that a failed
// login can carry its flash message.
func (s *HTTPServer) ensureSession(w http.ResponseWriter, r *http.Request) string {
	id, _ := s.currentSession(r)
	if id != "" {
		return id
	}
	id, err := s.service.Sessions().Create(r.Context(), session.Data{CreatedAt: time.Now()})
	if err != nil {
		log.Printf("session: create anonymous: %v", err)
		return ""
	}
	s.setSessionCookie(w, id)
	return id
}

func (s *HTTPServer) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireRole gates a handler on an authenticated principal with one of
// the given roles. Both failure modes redirect to /login; the log line
// tells them apart.
func (s *HTTPServer) requireRole(w http.ResponseWriter, r *http.Request, roles ...rbac.Role) (string, session.Data, bool) {
	id, data := s.currentSession(r)
	if !data.IsLoggedIn() {
		log.Printf("access: unauthenticated request to %s", r.URL.Path)
		sessionID := s.ensureSession(w, r)
		s.redirectFlash(w, r, sessionID, "danger", "Please log in to continue", "/login")
		return "", session.Data{}, false
	}
	if !rbac.Allowed(data.Principal, roles...) {
		log.Printf("access: role %s denied on %s", data.Principal.Role, r.URL.Path)
		s.redirectFlash(w, r, id, "danger", "Not authorized", "/login")
		return "", session.Data{}, false
	}
	return id, data, true
}

// redirectFlash queues a one-shot flash and issues the 302. Every
// user-visible failure in the portal goes through here.
func (s *HTTPServer) redirectFlash(w http.ResponseWriter, r *http.Request, sessionID, category, message, location string) {
	if sessionID != "" {
		if err := session.AddFlash(r.Context(), s.service.Sessions(), sessionID, category, message); err != nil {
			log.Printf("session: add flash: %v", err)
		}
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// failTo translates a service error into its flash and redirects.
func (s *HTTPServer) failTo(w http.ResponseWriter, r *http.Request, sessionID string, err error, location string) {
	if !isExpectedError(err) {
		log.Printf("handler: %s %s: %v", r.Method, r.URL.Path, err)
	}
	category, message := flashForError(err)
	s.redirectFlash(w, r, sessionID, category, message, location)
}

// render draws a page with the session's principal and consumed flashes.
func (s *HTTPServer) render(w http.ResponseWriter, r *http.Request, sessionID string, data session.Data, name, title string, pageData any) {
	flashes, err := session.ConsumeFlash(r.Context(), s.service.Sessions(), sessionID)
	if err != nil {
		log.Printf("session: consume flash: %v", err)
	}
	page := view.Page{
		Title:     title,
		Principal: data.Principal,
		Flashes:   flashes,
		Data:      pageData,
	}
	if err := view.Render(w, name, page); err != nil {
		log.Printf("view: render %s: %v", name, err)
	}
}

// formInt parses a numeric form field. Empty means zero; anything else
// must be an integer.
func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, flashErr("danger", "Invalid number in "+field)
	}
	return n, nil
}

func queryInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, flashErr("danger", "Invalid "+field)
	}
	return n, nil
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("X-Request-ID", requestID)
		writer.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// isExpectedError reports whether an error is a routine user-facing
// condition not worth a log line.
func isExpectedError(err error) bool {
	var flash *FlashError
	if errors.As(err, &flash) {
		return true
	}
	return errors.Is(err, authn.ErrInvalidCredentials) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrForbidden) ||
		errors.Is(err, store.ErrDuplicate) ||
		errors.Is(err, upload.ErrTooLarge) ||
		errors.Is(err, upload.ErrBadType)
}
