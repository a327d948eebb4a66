package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/identity"
)

const identitySelect = `
SELECT i.id, i.name, i.email, i.role, ip.department, sp.date_of_birth,
       i.is_active, i.password_hash, i.created_at, i.updated_at
FROM identities i
LEFT JOIN instructor_profiles ip ON ip.identity_id = i.id
LEFT JOIN student_profiles sp ON sp.identity_id = i.id`

type identityRow struct {
	ID           int         `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	Department   null.String `db:"department"`
	DateOfBirth  null.Time   `db:"date_of_birth"`
	IsActive     bool        `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r identityRow) toIdentity() identity.Identity {
	idt := identity.Identity{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         identity.Role(r.Role),
		Department:   r.Department.String,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.DateOfBirth.Valid {
		dob := core.Date(r.DateOfBirth.Time)
		idt.DateOfBirth = &dob
	}
	return idt
}

type identityRepository struct {
	m *TxManager
}

var _ identity.Repository = (*identityRepository)(nil) // interface compliance check

func NewIdentityRepository(m *TxManager) identity.Repository {
	return &identityRepository{m: m}
}

// CreateIdentity inserts the identity along with its role profile.
func (repo *identityRepository) CreateIdentity(ctx context.Context, idt identity.Identity) (identity.Identity, error) {
	err := repo.m.WithinTx(ctx, func(ctx context.Context) error {
		exec := repo.m.exec(ctx)
		err := exec.QueryRowxContext(ctx, `
			INSERT INTO identities (name, email, role, is_active, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			idt.Name, idt.Email, string(idt.Role), idt.IsActive, idt.PasswordHash, idt.CreatedAt, idt.UpdatedAt,
		).Scan(&idt.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return identity.ErrEmailExists
			}
			return errors.Wrap(err, "inserting identity")
		}

		switch idt.Role {
		case identity.RoleInstructor:
			_, err = exec.ExecContext(ctx,
				"INSERT INTO instructor_profiles (identity_id, department) VALUES ($1, $2)", idt.ID, idt.Department)
		case identity.RoleStudent:
			_, err = exec.ExecContext(ctx,
				"INSERT INTO student_profiles (identity_id, date_of_birth) VALUES ($1, $2)", idt.ID, null.TimeFromPtr(idt.DateOfBirth))
		}
		return errors.Wrap(err, "inserting profile")
	})
	if err != nil {
		return identity.Identity{}, trapErr(err)
	}
	return idt, nil
}

func (repo *identityRepository) GetIdentity(ctx context.Context, id int) (identity.Identity, error) {
	var row identityRow
	if err := repo.m.exec(ctx).GetContext(ctx, &row, identitySelect+" WHERE i.id = $1", id); err != nil {
		return identity.Identity{}, trapErr(err, identity.ErrNotFound)
	}
	return row.toIdentity(), nil
}

func (repo *identityRepository) GetIdentityByEmail(ctx context.Context, email string) (identity.Identity, error) {
	var row identityRow
	if err := repo.m.exec(ctx).GetContext(ctx, &row, identitySelect+" WHERE i.email = $1", email); err != nil {
		return identity.Identity{}, trapErr(err, identity.ErrNotFound)
	}
	return row.toIdentity(), nil
}

func (repo *identityRepository) QueryIdentities(ctx context.Context, filter identity.QueryFilter) ([]identity.Identity, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conds = append(conds, fmt.Sprintf("i.role = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conds = append(conds, fmt.Sprintf("i.is_active = $%d", len(args)))
	}
	q := identitySelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY i.id"

	var rows []identityRow
	if err := repo.m.exec(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, trapErr(err)
	}
	idts := make([]identity.Identity, 0, len(rows))
	for _, r := range rows {
		idts = append(idts, r.toIdentity())
	}
	return idts, nil
}

func (repo *identityRepository) UpdatePassword(ctx context.Context, id int, hash []byte) (int64, error) {
	res, err := repo.m.exec(ctx).ExecContext(ctx,
		"UPDATE identities SET password_hash = $1, updated_at = $2 WHERE id = $3", hash, core.Now(), id)
	if err != nil {
		return 0, trapErr(err)
	}
	return res.RowsAffected()
}

func (repo *identityRepository) SetActive(ctx context.Context, id int, active bool) (identity.Identity, error) {
	res, err := repo.m.exec(ctx).ExecContext(ctx,
		"UPDATE identities SET is_active = $1, updated_at = $2 WHERE id = $3", active, core.Now(), id)
	if err != nil {
		return identity.Identity{}, trapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return identity.Identity{}, identity.ErrNotFound
	}
	return repo.GetIdentity(ctx, id)
}

// UpdateProfile updates the identity row and upserts its role profile in one transaction.
func (repo *identityRepository) UpdateProfile(ctx context.Context, idt identity.Identity) (identity.Identity, error) {
	var updated identity.Identity
	err := repo.m.WithinTx(ctx, func(ctx context.Context) error {
		exec := repo.m.exec(ctx)
		res, err := exec.ExecContext(ctx,
			"UPDATE identities SET name = $1, updated_at = $2 WHERE id = $3", idt.Name, idt.UpdatedAt, idt.ID)
		if err != nil {
			return errors.Wrap(err, "updating identity")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return identity.ErrNotFound
		}

		switch idt.Role {
		case identity.RoleInstructor:
			_, err = exec.ExecContext(ctx, `
				INSERT INTO instructor_profiles (identity_id, department) VALUES ($1, $2)
				ON CONFLICT (identity_id) DO UPDATE SET department = EXCLUDED.department`,
				idt.ID, idt.Department)
		case identity.RoleStudent:
			_, err = exec.ExecContext(ctx, `
				INSERT INTO student_profiles (identity_id, date_of_birth) VALUES ($1, $2)
				ON CONFLICT (identity_id) DO UPDATE SET date_of_birth = EXCLUDED.date_of_birth`,
				idt.ID, null.TimeFromPtr(idt.DateOfBirth))
		}
		if err != nil {
			return errors.Wrap(err, "updating profile")
		}

		updated, err = repo.GetIdentity(ctx, idt.ID)
		return err
	})
	if err != nil {
		return identity.Identity{}, trapErr(err)
	}
	return updated, nil
}
