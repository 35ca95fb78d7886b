package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside one transaction, rolling back on any error. Every
// multi-step mutation in the store goes through here.
func (s *Postgres) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Credential lookups, one per role table. The authenticator probes them in
// fixed priority order.

func (s *Postgres) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	var admin Admin
	err := s.db.QueryRowContext(ctx,
		`SELECT admin_id, email, password_hash FROM admins WHERE email=$1`, email,
	).Scan(&admin.AdminID, &admin.Email, &admin.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Admin{}, ErrNotFound
	}
	if err != nil {
		return Admin{}, fmt.Errorf("lookup admin: %w", err)
	}
	return admin, nil
}

func (s *Postgres) GetDivisionUserByEmail(ctx context.Context, email string) (DivisionUser, error) {
	var user DivisionUser
	err := s.db.QueryRowContext(ctx,
		`SELECT division_id, admin_id, division, email, password_hash, phone_number
		 FROM division_users WHERE email=$1`, email,
	).Scan(&user.DivisionID, &user.AdminID, &user.Division, &user.Email, &user.PasswordHash, &user.PhoneNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return DivisionUser{}, ErrNotFound
	}
	if err != nil {
		return DivisionUser{}, fmt.Errorf("lookup division user: %w", err)
	}
	return user, nil
}

func (s *Postgres) GetInstitutionUserByEmail(ctx context.Context, email string) (InstitutionUser, error) {
	row := s.db.QueryRowContext(ctx, selectInstitutionUser+` WHERE email=$1`, email)
	return scanInstitutionUser(row)
}

// Division users (admin-owned).

func (s *Postgres) ListDivisionUsers(ctx context.Context) ([]DivisionUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT division_id, admin_id, division, email, password_hash, phone_number
		 FROM division_users ORDER BY division_id`)
	if err != nil {
		return nil, fmt.Errorf("list division users: %w", err)
	}
	defer rows.Close()

	var users []DivisionUser
	for rows.Next() {
		var user DivisionUser
		if err := rows.Scan(&user.DivisionID, &user.AdminID, &user.Division, &user.Email, &user.PasswordHash, &user.PhoneNumber); err != nil {
			return nil, fmt.Errorf("scan division user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Postgres) GetDivisionUser(ctx context.Context, divisionID string) (DivisionUser, error) {
	var user DivisionUser
	err := s.db.QueryRowContext(ctx,
		`SELECT division_id, admin_id, division, email, password_hash, phone_number
		 FROM division_users WHERE division_id=$1`, divisionID,
	).Scan(&user.DivisionID, &user.AdminID, &user.Division, &user.Email, &user.PasswordHash, &user.PhoneNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return DivisionUser{}, ErrNotFound
	}
	if err != nil {
		return DivisionUser{}, fmt.Errorf("get division user: %w", err)
	}
	return user, nil
}

func (s *Postgres) CreateDivisionUser(ctx context.Context, user DivisionUser) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO division_users (division_id, admin_id, division, email, password_hash, phone_number)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		user.DivisionID, user.AdminID, user.Division, user.Email, user.PasswordHash, user.PhoneNumber)
	if err != nil {
		return translateUnique(fmt.Errorf("insert division user: %w", err))
	}
	return nil
}

func (s *Postgres) UpdateDivisionUser(ctx context.Context, user DivisionUser) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE division_users SET division=$1, email=$2, password_hash=$3, phone_number=$4
		 WHERE division_id=$5`,
		user.Division, user.Email, user.PasswordHash, user.PhoneNumber, user.DivisionID)
	if err != nil {
		return translateUnique(fmt.Errorf("update division user: %w", err))
	}
	return requireAffected(result)
}

func (s *Postgres) DeleteDivisionUser(ctx context.Context, divisionID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM division_users WHERE division_id=$1`, divisionID)
	if err != nil {
		return fmt.Errorf("delete division user: %w", err)
	}
	return requireAffected(result)
}

// Institution users (division-owned). List paths are query-scoped; the
// single-record paths fetch first and compare the owner, so a wrong-tenant
// id is Forbidden rather than silently absent.

const selectInstitutionUser = `
	SELECT institution_id, division_id, email, password_hash, phone_number,
	       country, state, district, taluk, institution_name, village_or_city,
	       COALESCE(pid,''), khatha_or_property_no, name_of_khathadar, type_of_building
	FROM institution_users`

func scanInstitutionUser(row *sql.Row) (InstitutionUser, error) {
	var user InstitutionUser
	err := row.Scan(&user.InstitutionID, &user.DivisionID, &user.Email, &user.PasswordHash,
		&user.PhoneNumber, &user.Country, &user.State, &user.District, &user.Taluk,
		&user.InstitutionName, &user.VillageOrCity, &user.PID, &user.KhathaOrPropertyNo,
		&user.NameOfKhathadar, &user.TypeOfBuilding)
	if errors.Is(err, sql.ErrNoRows) {
		return InstitutionUser{}, ErrNotFound
	}
	if err != nil {
		return InstitutionUser{}, fmt.Errorf("scan institution user: %w", err)
	}
	return user, nil
}

func (s *Postgres) ListInstitutionUsers(ctx context.Context, scope Scope) ([]InstitutionUser, error) {
	query := selectInstitutionUser
	var args []any
	if !scope.Unrestricted() {
		query += ` WHERE division_id=$1`
		args = append(args, scope.DivisionID)
	}
	query += ` ORDER BY institution_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list institution users: %w", err)
	}
	defer rows.Close()

	var users []InstitutionUser
	for rows.Next() {
		var user InstitutionUser
		if err := rows.Scan(&user.InstitutionID, &user.DivisionID, &user.Email, &user.PasswordHash,
			&user.PhoneNumber, &user.Country, &user.State, &user.District, &user.Taluk,
			&user.InstitutionName, &user.VillageOrCity, &user.PID, &user.KhathaOrPropertyNo,
			&user.NameOfKhathadar, &user.TypeOfBuilding); err != nil {
			return nil, fmt.Errorf("scan institution user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Postgres) GetInstitutionUser(ctx context.Context, scope Scope, institutionID string) (InstitutionUser, error) {
	row := s.db.QueryRowContext(ctx, selectInstitutionUser+` WHERE institution_id=$1`, institutionID)
	user, err := scanInstitutionUser(row)
	if err != nil {
		return InstitutionUser{}, err
	}
	if !scope.coversInstitution(user.InstitutionID, user.DivisionID) {
		return InstitutionUser{}, ErrForbidden
	}
	return user, nil
}

func (s *Postgres) CreateInstitutionUser(ctx context.Context, user InstitutionUser) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO institution_users (institution_id, division_id, email, password_hash, phone_number,
		   country, state, district, taluk, institution_name, village_or_city, pid,
		   khatha_or_property_no, name_of_khathadar, type_of_building)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''),$13,$14,$15)`,
		user.InstitutionID, user.DivisionID, user.Email, user.PasswordHash, user.PhoneNumber,
		user.Country, user.State, user.District, user.Taluk, user.InstitutionName,
		user.VillageOrCity, user.PID, user.KhathaOrPropertyNo, user.NameOfKhathadar, user.TypeOfBuilding)
	if err != nil {
		return translateUnique(fmt.Errorf("insert institution user: %w", err))
	}
	return nil
}

func (s *Postgres) UpdateInstitutionUser(ctx context.Context, scope Scope, user InstitutionUser) error {
	if _, err := s.GetInstitutionUser(ctx, scope, user.InstitutionID); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE institution_users SET email=$1, password_hash=$2, phone_number=$3,
		   country=$4, state=$5, district=$6, taluk=$7, institution_name=$8,
		   village_or_city=$9, pid=NULLIF($10,''), khatha_or_property_no=$11,
		   name_of_khathadar=$12, type_of_building=$13
		 WHERE institution_id=$14`,
		user.Email, user.PasswordHash, user.PhoneNumber, user.Country, user.State,
		user.District, user.Taluk, user.InstitutionName, user.VillageOrCity, user.PID,
		user.KhathaOrPropertyNo, user.NameOfKhathadar, user.TypeOfBuilding, user.InstitutionID)
	if err != nil {
		return translateUnique(fmt.Errorf("update institution user: %w", err))
	}
	return requireAffected(result)
}

func (s *Postgres) DeleteInstitutionUser(ctx context.Context, scope Scope, institutionID string) error {
	if _, err := s.GetInstitutionUser(ctx, scope, institutionID); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM institution_users WHERE institution_id=$1`, institutionID)
	if err != nil {
		return fmt.Errorf("delete institution user: %w", err)
	}
	return requireAffected(result)
}

// Uniqueness pre-checks. Email spans every role table because login resolves
// a role from the email alone.

func (s *Postgres) EmailInUse(ctx context.Context, email, excludeDivisionID, excludeInstitutionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM admins WHERE email=$1
			UNION
			SELECT 1 FROM division_users WHERE email=$1 AND division_id IS DISTINCT FROM NULLIF($2,'')
			UNION
			SELECT 1 FROM institution_users WHERE email=$1 AND institution_id IS DISTINCT FROM NULLIF($3,'')
		)`, email, excludeDivisionID, excludeInstitutionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (s *Postgres) DivisionPhoneInUse(ctx context.Context, phone, excludeDivisionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM division_users
		  WHERE phone_number=$1 AND division_id IS DISTINCT FROM NULLIF($2,''))`,
		phone, excludeDivisionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check division phone: %w", err)
	}
	return exists, nil
}

func (s *Postgres) InstitutionPhoneInUse(ctx context.Context, phone, excludeInstitutionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM institution_users
		  WHERE phone_number=$1 AND institution_id IS DISTINCT FROM NULLIF($2,''))`,
		phone, excludeInstitutionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check institution phone: %w", err)
	}
	return exists, nil
}

func (s *Postgres) DivisionIDTaken(ctx context.Context, divisionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM division_users WHERE division_id=$1)`, divisionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check division id: %w", err)
	}
	return exists, nil
}

func (s *Postgres) InstitutionIDTaken(ctx context.Context, institutionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM institution_users WHERE institution_id=$1)`, institutionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check institution id: %w", err)
	}
	return exists, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
