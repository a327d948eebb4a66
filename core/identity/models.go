package identity

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

type Role string

// Roles
const (
	RoleStudent       Role = "student"
	RoleInstructor    Role = "instructor"
	RoleAdministrator Role = "administrator"
)

// RolePriority is the legacy role priority (highest first). Emails are unique across roles, so it only
// orders identities that are listed together.
var RolePriority = []Role{RoleStudent, RoleInstructor, RoleAdministrator}

func (r Role) Valid() bool {
	return r.Priority() >= 0
}

// Priority returns the position of r in RolePriority, or -1 for an unknown role.
func (r Role) Priority() int {
	for i, role := range RolePriority {
		if role == r {
			return i
		}
	}
	return -1
}

type Identity struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	Department   string     `json:"department,omitempty"`    // instructors
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"` // students
	IsActive     bool       `json:"is_active"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
}

func (idt *Identity) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	idt.PasswordHash = hash
	return nil
}

func (idt *Identity) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(idt.PasswordHash, []byte(pwd))
}

func (idt *Identity) IsStudent() bool       { return idt.Role == RoleStudent }
func (idt *Identity) IsInstructor() bool    { return idt.Role == RoleInstructor }
func (idt *Identity) IsAdministrator() bool { return idt.Role == RoleAdministrator }

// NewIdentity contains information needed to create a new Identity.
type NewIdentity struct {
	Name            string     `json:"name" validate:"required,notblank"`
	Email           string     `json:"email" validate:"required,email"`
	Role            Role       `json:"role" validate:"required,role"`
	Department      string     `json:"department"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	Password        string     `json:"password" validate:"required"`
	PasswordConfirm string     `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ni *NewIdentity) Validate(v *core.Validator) error {
	ni.Name = core.CleanString(ni.Name)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	ni.Role = Role(core.CleanString(string(ni.Role), true /* lower */))
	ni.Department = core.CleanString(ni.Department)
	return v.Struct(ni)
}

// PasswordChange carries a new password for an existing Identity.
// The password policy compares the password against the identity's own attributes.
type PasswordChange struct {
	Password string `json:"new_password" validate:"required"`

	name  string
	email string
}

func NewPasswordChange(idt Identity, pwd string) PasswordChange {
	return PasswordChange{Password: pwd, name: idt.Name, email: idt.Email}
}

func (pc PasswordChange) Validate(v *core.Validator) error { return v.Struct(pc) }

// ProfileUpdate carries the editable profile of an existing Identity.
// Department only applies to instructors, DateOfBirth only to students.
type ProfileUpdate struct {
	Name        string     `json:"name" validate:"required,notblank"`
	Department  string     `json:"department"`
	DateOfBirth *time.Time `json:"date_of_birth"`

	role Role
}

func (pu *ProfileUpdate) Validate(v *core.Validator) error {
	pu.Name = core.CleanString(pu.Name)
	pu.Department = core.CleanString(pu.Department)
	return v.Struct(pu)
}

type QueryFilter struct {
	Role     Role  `query:"role"`
	IsActive *bool `query:"is_active"`
}
