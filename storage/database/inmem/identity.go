package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/identity"
)

type identityRepository struct {
	db *DB
}

var _ identity.Repository = (*identityRepository)(nil) // interface compliance check

func NewIdentityRepository(db *DB) identity.Repository {
	return &identityRepository{db: db}
}

func (repo *identityRepository) CreateIdentity(ctx context.Context, idt identity.Identity) (identity.Identity, error) {
	defer repo.db.lock(ctx)()

	for _, other := range repo.db.identities {
		if other.Email == idt.Email {
			return identity.Identity{}, identity.ErrEmailExists
		}
	}
	idt.ID = repo.db.nextID("identities")
	repo.db.identities[idt.ID] = idt
	return idt, nil
}

func (repo *identityRepository) GetIdentity(ctx context.Context, id int) (identity.Identity, error) {
	defer repo.db.lock(ctx)()

	if idt, ok := repo.db.identities[id]; ok {
		return idt, nil
	}
	return identity.Identity{}, identity.ErrNotFound
}

func (repo *identityRepository) GetIdentityByEmail(ctx context.Context, email string) (identity.Identity, error) {
	defer repo.db.lock(ctx)()

	for _, idt := range repo.db.identities {
		if idt.Email == email {
			return idt, nil
		}
	}
	return identity.Identity{}, identity.ErrNotFound
}

func (repo *identityRepository) QueryIdentities(ctx context.Context, filter identity.QueryFilter) ([]identity.Identity, error) {
	defer repo.db.lock(ctx)()

	idts := make([]identity.Identity, 0, len(repo.db.identities))
	for _, idt := range repo.db.identities {
		if filter.Role != "" && idt.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && idt.IsActive != *filter.IsActive {
			continue
		}
		idts = append(idts, idt)
	}
	sort.Slice(idts, func(i, j int) bool { return idts[i].ID < idts[j].ID })
	return idts, nil
}

func (repo *identityRepository) UpdatePassword(ctx context.Context, id int, hash []byte) (int64, error) {
	defer repo.db.lock(ctx)()

	idt, ok := repo.db.identities[id]
	if !ok {
		return 0, nil
	}
	idt.PasswordHash = hash
	idt.UpdatedAt = core.Now()
	repo.db.identities[id] = idt
	return 1, nil
}

func (repo *identityRepository) SetActive(ctx context.Context, id int, active bool) (identity.Identity, error) {
	defer repo.db.lock(ctx)()

	idt, ok := repo.db.identities[id]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	idt.IsActive = active
	idt.UpdatedAt = core.Now()
	repo.db.identities[id] = idt
	return idt, nil
}

func (repo *identityRepository) UpdateProfile(ctx context.Context, idt identity.Identity) (identity.Identity, error) {
	defer repo.db.lock(ctx)()

	stored, ok := repo.db.identities[idt.ID]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	stored.Name = idt.Name
	stored.Department = idt.Department
	stored.DateOfBirth = idt.DateOfBirth
	stored.UpdatedAt = idt.UpdatedAt
	repo.db.identities[idt.ID] = stored
	return stored, nil
}
