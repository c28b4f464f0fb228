package services

import (
	"context"

	"github.com/contactsbook/apiserver/types"
)

// ContactRepository defines persistence operations for contacts.
type ContactRepository interface {
	GetByID(ctx context.Context, id, userID int) (types.Contact, error)
	ListByCriteria(ctx context.Context, criteria types.ContactCriteria, limit, offset, userID int) ([]types.Contact, error)
	ListBirthdays(ctx context.Context, periodDays, limit, offset, userID int) ([]types.Contact, error)
	Create(ctx context.Context, contact types.Contact) (types.Contact, error)
	Update(ctx context.Context, contact types.Contact) (types.Contact, error)
	Delete(ctx context.Context, id, userID int) error
	ListAll(ctx context.Context, limit, offset int) ([]types.Contact, error)
}

// ContactService encapsulates contact use-cases. All operations except
// ListAll are scoped to the owning user; ListAll is reserved for the
// role-guarded unscoped endpoint.
type ContactService struct {
	repo ContactRepository
}

func NewContactService(repo ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

func (s *ContactService) GetByID(ctx context.Context, id, userID int) (types.Contact, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *ContactService) ListByCriteria(ctx context.Context, criteria types.ContactCriteria, limit, offset, userID int) ([]types.Contact, error) {
	return s.repo.ListByCriteria(ctx, criteria, limit, offset, userID)
}

func (s *ContactService) ListBirthdays(ctx context.Context, periodDays, limit, offset, userID int) ([]types.Contact, error) {
	return s.repo.ListBirthdays(ctx, periodDays, limit, offset, userID)
}

func (s *ContactService) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	return s.repo.Create(ctx, contact)
}

func (s *ContactService) Update(ctx context.Context, contact types.Contact) (types.Contact, error) {
	return s.repo.Update(ctx, contact)
}

func (s *ContactService) Delete(ctx context.Context, id, userID int) error {
	return s.repo.Delete(ctx, id, userID)
}

func (s *ContactService) ListAll(ctx context.Context, limit, offset int) ([]types.Contact, error) {
	return s.repo.ListAll(ctx, limit, offset)
}
