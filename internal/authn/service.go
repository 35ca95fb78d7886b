// Package authn provides email/password authentication across the three
// role tables.
package authn

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"taxportal/api/internal/rbac"
	"taxportal/api/internal/store"
)

// ErrInvalidCredentials is the only failure login reports to the client.
// It covers unknown email and wrong password alike so the form never
// reveals which accounts exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialStore defines the lookups authentication needs.
type CredentialStore interface {
	GetAdminByEmail(ctx context.Context, email string) (store.Admin, error)
	GetDivisionUserByEmail(ctx context.Context, email string) (store.DivisionUser, error)
	GetInstitutionUserByEmail(ctx context.Context, email string) (store.InstitutionUser, error)
}

type Service struct {
	store CredentialStore
}

func NewService(store CredentialStore) *Service {
	return &Service{store: store}
}

// Authenticate probes the role tables in fixed order and resolves a
// principal from the first row whose email matches. A matched email with a
// wrong password fails right there; later tables are never consulted, so an
// email can only ever authenticate as the role of its first match.
func (s *Service) Authenticate(ctx context.Context, email, password string) (rbac.Principal, error) {
	if email == "" || password == "" {
		return rbac.Principal{}, ErrInvalidCredentials
	}

	admin, err := s.store.GetAdminByEmail(ctx, email)
	switch {
	case err == nil:
		if compare(admin.PasswordHash, password) != nil {
			return rbac.Principal{}, ErrInvalidCredentials
		}
		return rbac.Principal{Role: rbac.RoleAdmin, Email: admin.Email, AdminID: admin.AdminID}, nil
	case !errors.Is(err, store.ErrNotFound):
		return rbac.Principal{}, fmt.Errorf("authenticate: %w", err)
	}

	division, err := s.store.GetDivisionUserByEmail(ctx, email)
	switch {
	case err == nil:
		if compare(division.PasswordHash, password) != nil {
			return rbac.Principal{}, ErrInvalidCredentials
		}
		return rbac.Principal{
			Role:         rbac.RoleDivision,
			Email:        division.Email,
			DivisionID:   division.DivisionID,
			DivisionName: division.Division,
		}, nil
	case !errors.Is(err, store.ErrNotFound):
		return rbac.Principal{}, fmt.Errorf("authenticate: %w", err)
	}

	institution, err := s.store.GetInstitutionUserByEmail(ctx, email)
	switch {
	case err == nil:
		if compare(institution.PasswordHash, password) != nil {
			return rbac.Principal{}, ErrInvalidCredentials
		}
		return rbac.Principal{
			Role:            rbac.RoleInstitution,
			Email:           institution.Email,
			InstitutionID:   institution.InstitutionID,
			InstitutionName: institution.InstitutionName,
		}, nil
	case !errors.Is(err, store.ErrNotFound):
		return rbac.Principal{}, fmt.Errorf("authenticate: %w", err)
	}

	return rbac.Principal{}, ErrInvalidCredentials
}

func compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
