package app

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strconv"
	"time"

	"taxportal/api/internal/authn"
	"taxportal/api/internal/blob"
	"taxportal/api/internal/email"
	"taxportal/api/internal/export"
	"taxportal/api/internal/journal"
	"taxportal/api/internal/rbac"
	"taxportal/api/internal/search"
	"taxportal/api/internal/session"
	"taxportal/api/internal/store"
)

// dataStore is everything the portal needs from persistence.
type dataStore interface {
	authn.CredentialStore

	ListDivisionUsers(ctx context.Context) ([]store.DivisionUser, error)
	GetDivisionUser(ctx context.Context, divisionID string) (store.DivisionUser, error)
	CreateDivisionUser(ctx context.Context, user store.DivisionUser) error
	UpdateDivisionUser(ctx context.Context, user store.DivisionUser) error
	DeleteDivisionUser(ctx context.Context, divisionID string) error

	ListInstitutionUsers(ctx context.Context, scope store.Scope) ([]store.InstitutionUser, error)
	GetInstitutionUser(ctx context.Context, scope store.Scope, institutionID string) (store.InstitutionUser, error)
	CreateInstitutionUser(ctx context.Context, user store.InstitutionUser) error
	UpdateInstitutionUser(ctx context.Context, scope store.Scope, user store.InstitutionUser) error
	DeleteInstitutionUser(ctx context.Context, scope store.Scope, institutionID string) error

	EmailInUse(ctx context.Context, email, excludeDivisionID, excludeInstitutionID string) (bool, error)
	DivisionPhoneInUse(ctx context.Context, phone, excludeDivisionID string) (bool, error)
	InstitutionPhoneInUse(ctx context.Context, phone, excludeInstitutionID string) (bool, error)
	DivisionIDTaken(ctx context.Context, divisionID string) (bool, error)
	InstitutionIDTaken(ctx context.Context, institutionID string) (bool, error)

	ListPaymentRecords(ctx context.Context, scope store.Scope, year int) ([]store.PaymentRecordRow, error)
	GetPaymentRecord(ctx context.Context, scope store.Scope, slNo int) (store.PaymentRecord, error)
	CreatePaymentRecord(ctx context.Context, scope store.Scope, record store.PaymentRecord, bill *store.Bill) (int, error)
	UpdatePaymentRecord(ctx context.Context, scope store.Scope, record store.PaymentRecord, bill *store.Bill) error
	DeletePaymentRecord(ctx context.Context, scope store.Scope, slNo int) error
	ApprovePaymentRecord(ctx context.Context, scope store.Scope, slNo int) error
	UnpaidInstitutions(ctx context.Context, scope store.Scope, year int) ([]store.UnpaidInstitution, error)
	PaymentYearTaken(ctx context.Context, institutionID string, year, excludeSlNo int) (bool, error)
	ReceiptTaken(ctx context.Context, institutionID, receipt string, excludeSlNo int) (bool, error)

	ListStagedRecords(ctx context.Context) ([]store.StagedRecordRow, error)
	GetStagedRecord(ctx context.Context, slNo int) (store.StagedRecord, error)
	CreateStagedRecord(ctx context.Context, record store.StagedRecord, bill *store.Bill) (int, error)
	StagedReceiptTaken(ctx context.Context, receipt string, excludeSlNo int) (bool, error)
	TransferStagedRecord(ctx context.Context, stagedSlNo int, institutionID string) (int, error)

	GetBill(ctx context.Context, slNo int) (store.Bill, error)
	GetStagedBill(ctx context.Context, slNo int) (store.Bill, error)
	BillOwnership(ctx context.Context, slNo int) (institutionID, divisionID string, err error)

	ComprehensiveReport(ctx context.Context, scope store.Scope) ([]store.ReportRow, error)
	LocalReport(ctx context.Context, scope store.Scope) ([]store.PropertySummary, error)

	Ping(ctx context.Context) error
}

// searcher is the optional property-search backend.
type searcher interface {
	Search(ctx context.Context, scope store.Scope, text string, limit int) search.Response
	IndexInstitution(user store.InstitutionUser)
	DeleteInstitution(id string)
}

type Service struct {
	store    dataStore
	sessions session.Store
	authn    *authn.Service

	search  searcher         // nil when search is not configured
	archive *blob.Archive    // nil when the bill archive is not configured
	journal *journal.Service // nil when the audit journal is not configured
	email   *email.Service   // nil or unconfigured disables reminders
}

func NewService(data dataStore, sessions session.Store) *Service {
	return &Service{
		store:    data,
		sessions: sessions,
		authn:    authn.NewService(data),
	}
}

func (s *Service) WithSearch(sr searcher) *Service { s.search = sr; return s }
func (s *Service) WithArchive(a *blob.Archive) *Service { s.archive = a; return s }
func (s *Service) WithJournal(j *journal.Service) *Service { s.journal = j; return s }
func (s *Service) WithEmail(e *email.Service) *Service { s.email = e; return s }

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Sessions() session.Store {
	return s.sessions
}

// Login authenticates and binds a fresh session to the principal. The old
// anonymous session, if any, is discarded so login always rotates the
// session identifier.
func (s *Service) Login(ctx context.Context, oldSessionID, email, password string) (string, rbac.Principal, error) {
	principal, err := s.authn.Authenticate(ctx, email, password)
	if err != nil {
		return "", rbac.Principal{}, err
	}
	if oldSessionID != "" {
		_ = s.sessions.Delete(ctx, oldSessionID)
	}
	id, err := s.sessions.Create(ctx, session.Data{Principal: principal, CreatedAt: time.Now()})
	if err != nil {
		return "", rbac.Principal{}, fmt.Errorf("create session: %w", err)
	}
	return id, principal, nil
}

// Logout invalidates the session synchronously. Logging out an already
// absent session is a no-op.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// Division user management (admin).

type DivisionUserInput struct {
	DivisionID  string
	Division    string
	Email       string
	Password    string
	PhoneNumber string
}

func (s *Service) ListDivisionUsers(ctx context.Context) ([]store.DivisionUser, error) {
	return s.store.ListDivisionUsers(ctx)
}

func (s *Service) GetDivisionUser(ctx context.Context, divisionID string) (store.DivisionUser, error) {
	return s.store.GetDivisionUser(ctx, divisionID)
}

func (s *Service) CreateDivisionUser(ctx context.Context, principal rbac.Principal, in DivisionUserInput) error {
	if err := validateContact(in.Email, in.PhoneNumber); err != nil {
		return err
	}
	taken, err := s.store.DivisionIDTaken(ctx, in.DivisionID)
	if err != nil {
		return err
	}
	if taken {
		return flashErr("danger", "Division ID already exists")
	}
	if err := s.checkEmailFree(ctx, in.Email, "", ""); err != nil {
		return err
	}
	if err := s.checkDivisionPhoneFree(ctx, in.PhoneNumber, ""); err != nil {
		return err
	}
	hash, err := authn.HashPassword(in.Password)
	if err != nil {
		return flashErr("danger", "Password must be at least 8 characters")
	}
	return s.store.CreateDivisionUser(ctx, store.DivisionUser{
		DivisionID:   in.DivisionID,
		AdminID:      principal.AdminID,
		Division:     in.Division,
		Email:        in.Email,
		PasswordHash: hash,
		PhoneNumber:  in.PhoneNumber,
	})
}

// UpdateDivisionUser rewrites a division user. A blank password keeps the
// stored hash.
func (s *Service) UpdateDivisionUser(ctx context.Context, in DivisionUserInput) error {
	if err := validateContact(in.Email, in.PhoneNumber); err != nil {
		return err
	}
	existing, err := s.store.GetDivisionUser(ctx, in.DivisionID)
	if err != nil {
		return err
	}
	if err := s.checkEmailFree(ctx, in.Email, in.DivisionID, ""); err != nil {
		return err
	}
	if err := s.checkDivisionPhoneFree(ctx, in.PhoneNumber, in.DivisionID); err != nil {
		return err
	}
	hash := existing.PasswordHash
	if in.Password != "" {
		hash, err = authn.HashPassword(in.Password)
		if err != nil {
			return flashErr("danger", "Password must be at least 8 characters")
		}
	}
	existing.Division = in.Division
	existing.Email = in.Email
	existing.PasswordHash = hash
	existing.PhoneNumber = in.PhoneNumber
	return s.store.UpdateDivisionUser(ctx, existing)
}

func (s *Service) DeleteDivisionUser(ctx context.Context, divisionID string) error {
	return s.store.DeleteDivisionUser(ctx, divisionID)
}

// Institution user management (division, or admin listing).

type InstitutionUserInput struct {
	InstitutionID      string
	Email              string
	Password           string
	PhoneNumber        string
	Country            string
	State              string
	District           string
	Taluk              string
	InstitutionName    string
	VillageOrCity      string
	PID                string
	KhathaOrPropertyNo string
	NameOfKhathadar    string
	TypeOfBuilding     string
}

func (s *Service) ListInstitutionUsers(ctx context.Context, principal rbac.Principal) ([]store.InstitutionUser, error) {
	return s.store.ListInstitutionUsers(ctx, store.ScopeFor(principal))
}

func (s *Service) GetInstitutionUser(ctx context.Context, principal rbac.Principal, institutionID string) (store.InstitutionUser, error) {
	return s.store.GetInstitutionUser(ctx, store.ScopeFor(principal), institutionID)
}

func (s *Service) CreateInstitutionUser(ctx context.Context, principal rbac.Principal, in InstitutionUserInput) error {
	if err := validateContact(in.Email, in.PhoneNumber); err != nil {
		return err
	}
	taken, err := s.store.InstitutionIDTaken(ctx, in.InstitutionID)
	if err != nil {
		return err
	}
	if taken {
		return flashErr("danger", "Institution ID already exists")
	}
	if err := s.checkEmailFree(ctx, in.Email, "", ""); err != nil {
		return err
	}
	if err := s.checkInstitutionPhoneFree(ctx, in.PhoneNumber, ""); err != nil {
		return err
	}
	hash, err := authn.HashPassword(in.Password)
	if err != nil {
		return flashErr("danger", "Password must be at least 8 characters")
	}
	user := institutionUserFrom(in)
	user.DivisionID = principal.DivisionID
	user.PasswordHash = hash
	if err := s.store.CreateInstitutionUser(ctx, user); err != nil {
		return err
	}
	if s.search != nil {
		s.search.IndexInstitution(user)
	}
	return nil
}

func (s *Service) UpdateInstitutionUser(ctx context.Context, principal rbac.Principal, in InstitutionUserInput) error {
	if err := validateContact(in.Email, in.PhoneNumber); err != nil {
		return err
	}
	scope := store.ScopeFor(principal)
	existing, err := s.store.GetInstitutionUser(ctx, scope, in.InstitutionID)
	if err != nil {
		return err
	}
	if err := s.checkEmailFree(ctx, in.Email, "", in.InstitutionID); err != nil {
		return err
	}
	if err := s.checkInstitutionPhoneFree(ctx, in.PhoneNumber, in.InstitutionID); err != nil {
		return err
	}
	hash := existing.PasswordHash
	if in.Password != "" {
		hash, err = authn.HashPassword(in.Password)
		if err != nil {
			return flashErr("danger", "Password must be at least 8 characters")
		}
	}
	user := institutionUserFrom(in)
	user.DivisionID = existing.DivisionID
	user.PasswordHash = hash
	if err := s.store.UpdateInstitutionUser(ctx, scope, user); err != nil {
		return err
	}
	if s.search != nil {
		s.search.IndexInstitution(user)
	}
	return nil
}

func (s *Service) DeleteInstitutionUser(ctx context.Context, principal rbac.Principal, institutionID string) error {
	if err := s.store.DeleteInstitutionUser(ctx, store.ScopeFor(principal), institutionID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteInstitution(institutionID)
	}
	return nil
}

func institutionUserFrom(in InstitutionUserInput) store.InstitutionUser {
	return store.InstitutionUser{
		InstitutionID:      in.InstitutionID,
		Email:              in.Email,
		PhoneNumber:        in.PhoneNumber,
		Country:            in.Country,
		State:              in.State,
		District:           in.District,
		Taluk:              in.Taluk,
		InstitutionName:    in.InstitutionName,
		VillageOrCity:      in.VillageOrCity,
		PID:                in.PID,
		KhathaOrPropertyNo: in.KhathaOrPropertyNo,
		NameOfKhathadar:    in.NameOfKhathadar,
		TypeOfBuilding:     in.TypeOfBuilding,
	}
}

// Payment records.

func (s *Service) ListPaymentRecords(ctx context.Context, principal rbac.Principal, year int) ([]store.PaymentRecordRow, error) {
	return s.store.ListPaymentRecords(ctx, store.ScopeFor(principal), year)
}

func (s *Service) GetPaymentRecord(ctx context.Context, principal rbac.Principal, slNo int) (store.PaymentRecord, error) {
	return s.store.GetPaymentRecord(ctx, store.ScopeFor(principal), slNo)
}

func (s *Service) CreatePaymentRecord(ctx context.Context, principal rbac.Principal, record store.PaymentRecord, bill *store.Bill) error {
	taken, err := s.store.PaymentYearTaken(ctx, record.InstitutionID, record.PaymentYear, 0)
	if err != nil {
		return err
	}
	if taken {
		return flashErr("danger", "Year already exists")
	}
	taken, err = s.store.ReceiptTaken(ctx, record.InstitutionID, record.ReceiptNoOrDate, 0)
	if err != nil {
		return err
	}
	if taken {
		return flashErr("danger", "Receipt number already exists")
	}

	slNo, err := s.store.CreatePaymentRecord(ctx, store.ScopeFor(principal), record, bill)
	if err != nil {
		return err
	}
	record.SlNo = slNo
	s.afterPaymentChange(ctx, principal, record, bill, "create",
		fmt.Sprintf("Add payment record %d", slNo))
	return nil
}

func (s *Service) UpdatePaymentRecord(ctx context.Context, principal rbac.Principal, record store.PaymentRecord, bill *store.Bill) error {
	taken, err := s.store.PaymentYearTaken(ctx, record.InstitutionID, record.PaymentYear, record.SlNo)
	if err != nil {
		return err
	}
	if taken {
		return flashErr("danger", "Year already exists")
	}
	taken, err = s.store.ReceiptTaken(ctx, record.InstitutionID, record.ReceiptNoOrDate, record.SlNo)
	if err != nil {
		return err
	}
	if taken {
		return flashErr("danger", "Receipt number already exists")
	}

	if err := s.store.UpdatePaymentRecord(ctx, store.ScopeFor(principal), record, bill); err != nil {
		return err
	}
	s.afterPaymentChange(ctx, principal, record, bill, "update",
		fmt.Sprintf("Modify payment record %d", record.SlNo))
	return nil
}

func (s *Service) DeletePaymentRecord(ctx context.Context, principal rbac.Principal, slNo int) error {
	record, err := s.store.GetPaymentRecord(ctx, store.ScopeFor(principal), slNo)
	if err != nil {
		return err
	}
	if err := s.store.DeletePaymentRecord(ctx, store.ScopeFor(principal), slNo); err != nil {
		return err
	}
	if s.archive != nil {
		s.archive.RemoveBill(ctx, record.InstitutionID, slNo)
	}
	s.journalChange(ctx, record, "delete", principal.Email,
		fmt.Sprintf("Delete payment record %d", slNo))
	return nil
}

// ApprovePaymentRecord flips approval to true. There is no reverse
// operation anywhere in the portal.
func (s *Service) ApprovePaymentRecord(ctx context.Context, principal rbac.Principal, slNo int) error {
	if err := s.store.ApprovePaymentRecord(ctx, store.ScopeFor(principal), slNo); err != nil {
		return err
	}
	record, err := s.store.GetPaymentRecord(ctx, store.ScopeFor(principal), slNo)
	if err == nil {
		s.journalChange(ctx, record, "approve", principal.Email,
			fmt.Sprintf("Approve payment record %d", slNo))
	}
	return nil
}

// afterPaymentChange runs the non-authoritative side effects of a payment
// write: the archive copy and the journal commit. Both are best-effort.
func (s *Service) afterPaymentChange(ctx context.Context, principal rbac.Principal, record store.PaymentRecord, bill *store.Bill, action, message string) {
	if s.archive != nil && bill != nil {
		s.archive.ArchiveBill(ctx, record.InstitutionID, record.SlNo, *bill)
	}
	s.journalChange(ctx, record, action, principal.Email, message)
}

func (s *Service) journalChange(ctx context.Context, record store.PaymentRecord, action, actor, message string) {
	if s.journal == nil {
		return
	}
	divisionID := s.divisionOf(ctx, record.InstitutionID)
	if divisionID == "" {
		return
	}
	err := s.journal.RecordChange(divisionID, journal.Entry{
		SlNo:           record.SlNo,
		InstitutionID:  record.InstitutionID,
		Action:         action,
		ApprovalStatus: record.ApprovalStatus,
		Payment:        record.PaymentCore,
	}, actor, message)
	if err != nil {
		log.Printf("journal: record change for %s: %v", divisionID, err)
	}
}

func (s *Service) divisionOf(ctx context.Context, institutionID string) string {
	user, err := s.store.GetInstitutionUser(ctx, store.Scope{Role: rbac.RoleAdmin}, institutionID)
	if err != nil {
		log.Printf("journal: resolve division of %s: %v", institutionID, err)
		return ""
	}
	return user.DivisionID
}

// Admin staging and transfer.

func (s *Service) ListStagedRecords(ctx context.Context) ([]store.StagedRecordRow, error) {
	return s.store.ListStagedRecords(ctx)
}

func (s *Service) GetStagedRecord(ctx context.Context, slNo int) (store.StagedRecord, error) {
	return s.store.GetStagedRecord(ctx, slNo)
}

func (s *Service) CreateStagedRecord(ctx context.Context, record store.StagedRecord, bill *store.Bill) error {
	taken, err := s.store.StagedReceiptTaken(ctx, record.ReceiptNoOrDate, 0)
	if err != nil {
		return err
	}
	if taken {
		return flashErr("danger", "Receipt number already exists")
	}
	_, err = s.store.CreateStagedRecord(ctx, record, bill)
	return err
}

// TransferStagedRecord moves a staged record onto a registered
// institution. The destination's year and receipt uniqueness is re-checked
// and the whole move is one transaction.
func (s *Service) TransferStagedRecord(ctx context.Context, principal rbac.Principal, stagedSlNo int, institutionID string) error {
	staged, err := s.store.GetStagedRecord(ctx, stagedSlNo)
	if err != nil {
		return err
	}
	taken, err := s.store.PaymentYearTaken(ctx, institutionID, staged.PaymentYear, 0)
	if err != nil {
		return err
	}
	if taken {
		return flashErr("danger", "The destination institution already has a record for that year")
	}
	taken, err = s.store.ReceiptTaken(ctx, institutionID, staged.ReceiptNoOrDate, 0)
	if err != nil {
		return err
	}
	if taken {
		return flashErr("danger", "The destination institution already has that receipt number")
	}

	newSlNo, err := s.store.TransferStagedRecord(ctx, stagedSlNo, institutionID)
	if err != nil {
		return err
	}
	record := store.PaymentRecord{SlNo: newSlNo, InstitutionID: institutionID, PaymentCore: staged.PaymentCore}
	s.journalChange(ctx, record, "transfer", principal.Email,
		fmt.Sprintf("Transfer staged record %d to %s as %d", stagedSlNo, institutionID, newSlNo))
	return nil
}

// ViewBill authorizes and returns a bill attachment. Staged bills are
// admin-only. Institution bills walk the ownership chain from the bill to
// its payment record to the owning institution to that institution's
// division: Admin bypasses the walk, a Division principal must match at the
// division hop, an Institution principal at the institution hop.
func (s *Service) ViewBill(ctx context.Context, principal rbac.Principal, slNo int, staged bool) (store.Bill, error) {
	if staged {
		if principal.Role != rbac.RoleAdmin {
			return store.Bill{}, store.ErrForbidden
		}
		return s.store.GetStagedBill(ctx, slNo)
	}

	if principal.Role != rbac.RoleAdmin {
		institutionID, divisionID, err := s.store.BillOwnership(ctx, slNo)
		if err != nil {
			return store.Bill{}, err
		}
		switch principal.Role {
		case rbac.RoleDivision:
			if divisionID != principal.DivisionID {
				return store.Bill{}, store.ErrForbidden
			}
		case rbac.RoleInstitution, rbac.RoleSite:
			if institutionID != principal.InstitutionID {
				return store.Bill{}, store.ErrForbidden
			}
		default:
			return store.Bill{}, store.ErrForbidden
		}
	}
	return s.store.GetBill(ctx, slNo)
}

// Reports and dashboards.

func (s *Service) ComprehensiveReport(ctx context.Context, principal rbac.Principal) ([]store.ReportRow, error) {
	return s.store.ComprehensiveReport(ctx, store.ScopeFor(principal))
}

func (s *Service) LocalReport(ctx context.Context, principal rbac.Principal) ([]store.PropertySummary, error) {
	return s.store.LocalReport(ctx, store.ScopeFor(principal))
}

func (s *Service) UnpaidInstitutions(ctx context.Context, principal rbac.Principal, year int) ([]store.UnpaidInstitution, error) {
	return s.store.UnpaidInstitutions(ctx, store.ScopeFor(principal), year)
}

// ExportReport renders the caller's comprehensive report as a PDF.
func (s *Service) ExportReport(ctx context.Context, principal rbac.Principal) (*export.Result, error) {
	rows, err := s.store.ComprehensiveReport(ctx, store.ScopeFor(principal))
	if err != nil {
		return nil, err
	}
	scopeLabel := "All divisions"
	switch principal.Role {
	case rbac.RoleDivision:
		scopeLabel = principal.DivisionName
	case rbac.RoleInstitution, rbac.RoleSite:
		scopeLabel = principal.InstitutionName
	}
	html, err := export.RenderReportHTML(export.ReportData{
		Title:       "Comprehensive Property Tax Report",
		ScopeLabel:  scopeLabel,
		GeneratedAt: time.Now(),
		Rows:        rows,
	})
	if err != nil {
		return nil, err
	}
	return export.RenderPDF(html, "Comprehensive Tax Report "+scopeLabel)
}

// SearchProperties answers a property search, or an empty response when no
// search backend is wired.
func (s *Service) SearchProperties(ctx context.Context, principal rbac.Principal, text string) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(ctx, store.ScopeFor(principal), text, 50)
}

// SendPaymentReminders emails every in-scope institution with no payment
// record for the given year. Returns how many reminders went out.
func (s *Service) SendPaymentReminders(ctx context.Context, principal rbac.Principal, year int) (int, error) {
	if s.email == nil || !s.email.IsConfigured() {
		return 0, flashErr("warning", "Email is not configured; no reminders were sent")
	}
	unpaid, err := s.store.UnpaidInstitutions(ctx, store.ScopeFor(principal), year)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, u := range unpaid {
		if err := s.email.SendPaymentReminder(u.Email, u.InstitutionName, principal.DivisionName, year); err != nil {
			log.Printf("email: reminder to %s: %v", u.InstitutionID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// validateContact enforces the shared email and phone shape checks.
func validateContact(address, phone string) error {
	if _, err := mail.ParseAddress(address); err != nil {
		return flashErr("danger", "Invalid email")
	}
	if len(phone) != 10 {
		return flashErr("danger", "Invalid phone number")
	}
	if _, err := strconv.Atoi(phone); err != nil {
		return flashErr("danger", "Invalid phone number")
	}
	return nil
}

func (s *Service) checkEmailFree(ctx context.Context, address, excludeDivisionID, excludeInstitutionID string) error {
	inUse, err := s.store.EmailInUse(ctx, address, excludeDivisionID, excludeInstitutionID)
	if err != nil {
		return err
	}
	if inUse {
		return flashErr("danger", "Email already exists")
	}
	return nil
}

func (s *Service) checkDivisionPhoneFree(ctx context.Context, phone, excludeDivisionID string) error {
	inUse, err := s.store.DivisionPhoneInUse(ctx, phone, excludeDivisionID)
	if err != nil {
		return err
	}
	if inUse {
		return flashErr("danger", "Phone number already exists")
	}
	return nil
}

func (s *Service) checkInstitutionPhoneFree(ctx context.Context, phone, excludeInstitutionID string) error {
	inUse, err := s.store.InstitutionPhoneInUse(ctx, phone, excludeInstitutionID)
	if err != nil {
		return err
	}
	if inUse {
		return flashErr("danger", "Phone number already exists")
	}
	return nil
}
