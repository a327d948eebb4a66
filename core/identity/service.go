package identity

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("identity not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	dummyHash     []byte
	dummyHashInit sync.Once
)

type (
	Repository interface {
		CreateIdentity(ctx context.Context, idt Identity) (Identity, error)
		GetIdentity(ctx context.Context, id int) (Identity, error)
		// GetIdentityByEmail does a single lookup on the unique email index, whatever the role.
		GetIdentityByEmail(ctx context.Context, email string) (Identity, error)
		QueryIdentities(ctx context.Context, filter QueryFilter) ([]Identity, error)
		// UpdatePassword returns the number of identities updated.
		UpdatePassword(ctx context.Context, id int, hash []byte) (int64, error)
		SetActive(ctx context.Context, id int, active bool) (Identity, error)
		// UpdateProfile writes the name, the role profile and updated_at of idt.
		UpdateProfile(ctx context.Context, idt Identity) (Identity, error)
	}

	Service struct {
		repo      Repository
		validator *core.Validator
	}
)

func NewService(repo Repository, v *core.Validator) *Service {
	return &Service{repo: repo, validator: v}
}

func (svc *Service) Create(ctx context.Context, ni NewIdentity) (Identity, error) {
	if err := ni.Validate(svc.validator); err != nil {
		return Identity{}, err
	}
	if _, err := svc.repo.GetIdentityByEmail(ctx, ni.Email); err == nil {
		return Identity{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if !errors.Is(err, ErrNotFound) {
		return Identity{}, errors.Wrap(err, "checking email uniqueness")
	}

	now := core.Now()
	idt := Identity{
		Name:      ni.Name,
		Email:     ni.Email,
		Role:      ni.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch ni.Role {
	case RoleInstructor:
		idt.Department = ni.Department
	case RoleStudent:
		if ni.DateOfBirth != nil {
			dob := core.Date(*ni.DateOfBirth)
			idt.DateOfBirth = &dob
		}
	}
	if err := idt.SetPassword(ni.Password); err != nil {
		return Identity{}, errors.Wrap(err, "hashing password")
	}
	idt, err := svc.repo.CreateIdentity(ctx, idt)
	if errors.Is(err, ErrEmailExists) {
		return Identity{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	}
	return idt, err
}

func (svc *Service) Get(ctx context.Context, id int) (Identity, error) {
	return svc.repo.GetIdentity(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Identity, error) {
	return svc.repo.GetIdentityByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Query lists identities ordered by role priority, then name.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Identity, error) {
	idts, err := svc.repo.QueryIdentities(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(idts, func(i, j int) bool {
		pi, pj := idts[i].Role.Priority(), idts[j].Role.Priority()
		if pi != pj {
			return pi < pj
		}
		return idts[i].Name < idts[j].Name
	})
	return idts, nil
}

// VerifyCredentials returns the active identity matching email and pwd, or ErrInvalidCredentials.
// An unknown email still pays for one hash comparison so response times do not reveal which accounts exist.
func (svc *Service) VerifyCredentials(ctx context.Context, email, pwd string) (Identity, error) {
	idt, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(getDummyHash(), []byte(pwd))
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, errors.Wrap(err, "finding identity by email")
	}
	if err = idt.CheckPassword(pwd); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	if !idt.IsActive {
		return Identity{}, ErrInvalidCredentials
	}
	return idt, nil
}

// SetPassword validates pwd against the password policy and stores its hash on the identity with that email.
// It reports whether an identity was updated.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) (bool, error) {
	idt, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "finding identity by email")
	}
	if err = NewPasswordChange(idt, pwd).Validate(svc.validator); err != nil {
		return false, err
	}
	if err = idt.SetPassword(pwd); err != nil {
		return false, errors.Wrap(err, "hashing password")
	}
	n, err := svc.repo.UpdatePassword(ctx, idt.ID, idt.PasswordHash)
	if err != nil {
		return false, errors.Wrap(err, "updating password")
	}
	return n > 0, nil
}

// UpdateProfile replaces the profile of the identity. Email, role and password are not part of it.
func (svc *Service) UpdateProfile(ctx context.Context, id int, pu ProfileUpdate) (Identity, error) {
	idt, err := svc.repo.GetIdentity(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	pu.role = idt.Role
	if err = pu.Validate(svc.validator); err != nil {
		return Identity{}, err
	}

	idt.Name = pu.Name
	switch idt.Role {
	case RoleInstructor:
		idt.Department = pu.Department
	case RoleStudent:
		idt.DateOfBirth = nil
		if pu.DateOfBirth != nil {
			dob := core.Date(*pu.DateOfBirth)
			idt.DateOfBirth = &dob
		}
	}
	idt.UpdatedAt = core.Now()
	return svc.repo.UpdateProfile(ctx, idt)
}

// Deactivate disables an account. Identities are never deleted.
func (svc *Service) Deactivate(ctx context.Context, id int) (Identity, error) {
	return svc.repo.SetActive(ctx, id, false)
}

func (svc *Service) Activate(ctx context.Context, id int) (Identity, error) {
	return svc.repo.SetActive(ctx, id, true)
}

func getDummyHash() []byte {
	dummyHashInit.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("academia-dummy-password"), bcrypt.DefaultCost)
	})
	return dummyHash
}
