package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/contactsbook/apiserver/internal/store"
	"github.com/contactsbook/apiserver/types"
)

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}, nextID: 1}
}

func (r *fakeUserRepo) add(user types.User) types.User {
	if user.ID == 0 {
		user.ID = r.nextID
	}
	if user.ID >= r.nextID {
		r.nextID = user.ID + 1
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, store.ErrConflict
	}
	return r.add(user), nil
}

func (r *fakeUserRepo) UpdateRefreshToken(_ context.Context, id int, token string) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.RefreshToken = token
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) ConfirmEmail(ctx context.Context, email string) error {
	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	user.Confirmed = true
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateAvatar(_ context.Context, id int, avatarURL string) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Avatar = avatarURL
	r.users[id] = user
	return nil
}

// fakeContactRepo is an in-memory services.ContactRepository with the
// same ownership scoping as the SQL implementation.
type fakeContactRepo struct {
	contacts map[int]types.Contact
	nextID   int
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: map[int]types.Contact{}, nextID: 1}
}

func (r *fakeContactRepo) add(contact types.Contact) types.Contact {
	contact.ID = r.nextID
	r.nextID++
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	r.contacts[contact.ID] = contact
	return contact
}

func (r *fakeContactRepo) GetByID(_ context.Context, id, userID int) (types.Contact, error) {
	contact, ok := r.contacts[id]
	if !ok || contact.UserID != userID {
		return types.Contact{}, store.ErrNotFound
	}
	return contact, nil
}

func (r *fakeContactRepo) ListByCriteria(_ context.Context, criteria types.ContactCriteria, limit, offset, userID int) ([]types.Contact, error) {
	matched := []types.Contact{}
	for id := 1; id < r.nextID; id++ {
		contact, ok := r.contacts[id]
		if !ok || contact.UserID != userID {
			continue
		}
		if criteria.FirstName != "" && contact.FirstName != criteria.FirstName {
			continue
		}
		if criteria.LastName != "" && contact.LastName != criteria.LastName {
			continue
		}
		if criteria.Email != "" && contact.Email != criteria.Email {
			continue
		}
		matched = append(matched, contact)
	}
	return page(matched, limit, offset), nil
}

func (r *fakeContactRepo) ListBirthdays(_ context.Context, periodDays, limit, offset, userID int) ([]types.Contact, error) {
	today := time.Now()
	end := today.AddDate(0, 0, periodDays)
	matched := []types.Contact{}
	for id := 1; id < r.nextID; id++ {
		contact, ok := r.contacts[id]
		if !ok || contact.UserID != userID || contact.BirthDate == nil {
			continue
		}
		month, day := int(contact.BirthDate.Month()), contact.BirthDate.Day()
		if month >= int(today.Month()) && month <= int(end.Month()) &&
			day >= today.Day() && day <= end.Day() {
			matched = append(matched, contact)
		}
	}
	return page(matched, limit, offset), nil
}

func (r *fakeContactRepo) Create(_ context.Context, contact types.Contact) (types.Contact, error) {
	for _, existing := range r.contacts {
		if existing.Email == contact.Email {
			return types.Contact{}, store.ErrConflict
		}
	}
	return r.add(contact), nil
}

func (r *fakeContactRepo) Update(_ context.Context, contact types.Contact) (types.Contact, error) {
	existing, ok := r.contacts[contact.ID]
	if !ok || existing.UserID != contact.UserID {
		return types.Contact{}, store.ErrNotFound
	}
	contact.CreatedAt = existing.CreatedAt
	contact.UpdatedAt = time.Now()
	r.contacts[contact.ID] = contact
	return contact, nil
}

func (r *fakeContactRepo) Delete(_ context.Context, id, userID int) error {
	contact, ok := r.contacts[id]
	if !ok || contact.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.contacts, id)
	return nil
}

func (r *fakeContactRepo) ListAll(_ context.Context, limit, offset int) ([]types.Contact, error) {
	all := []types.Contact{}
	for id := 1; id < r.nextID; id++ {
		if contact, ok := r.contacts[id]; ok {
			all = append(all, contact)
		}
	}
	return page(all, limit, offset), nil
}

func page(contacts []types.Contact, limit, offset int) []types.Contact {
	if offset >= len(contacts) {
		return []types.Contact{}
	}
	contacts = contacts[offset:]
	if limit < len(contacts) {
		contacts = contacts[:limit]
	}
	return contacts
}

// discardSender drops verification mail and remembers the last token.
type discardSender struct {
	lastTo    string
	lastToken string
	err       error
}

func (s *discardSender) SendVerification(_ context.Context, to, _, token string) error {
	if s.err != nil {
		return s.err
	}
	s.lastTo = to
	s.lastToken = token
	return nil
}
