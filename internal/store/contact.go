package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contactsbook/apiserver/types"
)

// ContactRepository handles persistence for contacts. Every operation
// except ListAll is scoped to the owning user.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, first_name, last_name, email, phone_number, birth_date, additional_data, created_at, updated_at, user_id`

func scanContact(row interface{ Scan(...any) error }) (types.Contact, error) {
	var contact types.Contact
	err := row.Scan(
		&contact.ID,
		&contact.FirstName,
		&contact.LastName,
		&contact.Email,
		&contact.PhoneNumber,
		&contact.BirthDate,
		&contact.AdditionalData,
		&contact.CreatedAt,
		&contact.UpdatedAt,
		&contact.UserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Contact{}, ErrNotFound
		}
		return types.Contact{}, err
	}
	return contact, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id, userID int) (types.Contact, error) {
	const query = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE id = $1 AND user_id = $2`
	return scanContact(r.db.QueryRowContext(ctx, query, id, userID))
}

// ListByCriteria returns the user's contacts matching the set criteria
// fields; unset fields are omitted from the filter.
func (r *ContactRepository) ListByCriteria(ctx context.Context, criteria types.ContactCriteria, limit, offset, userID int) ([]types.Contact, error) {
	query, args := buildCriteriaQuery(criteria, limit, offset, userID)
	return r.list(ctx, query, args...)
}

// buildCriteriaQuery assembles the filtered listing query. Split out so
// the clause construction is testable without a database.
func buildCriteriaQuery(criteria types.ContactCriteria, limit, offset, userID int) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1`)
	args := []any{userID}

	for _, filter := range []struct {
		column string
		value  string
	}{
		{"first_name", criteria.FirstName},
		{"last_name", criteria.LastName},
		{"email", criteria.Email},
	} {
		if filter.value == "" {
			continue
		}
		args = append(args, filter.value)
		fmt.Fprintf(&sb, " AND %s = $%d", filter.column, len(args))
	}

	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY id LIMIT $%d", len(args))
	args = append(args, offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	return sb.String(), args
}

// ListBirthdays returns the user's contacts whose birth month/day falls
// within [today, today+periodDays]. The comparison ranges over month and
// day independently, so windows that cross a year boundary match nothing;
// that matches the shipped query-by-month-then-day policy.
func (r *ContactRepository) ListBirthdays(ctx context.Context, periodDays, limit, offset, userID int) ([]types.Contact, error) {
	startMonth, endMonth, startDay, endDay := birthdayWindow(time.Now(), periodDays)

	const query = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE user_id = $1
			AND birth_date IS NOT NULL
			AND EXTRACT(MONTH FROM birth_date) BETWEEN $2 AND $3
			AND EXTRACT(DAY FROM birth_date) BETWEEN $4 AND $5
		ORDER BY EXTRACT(MONTH FROM birth_date), EXTRACT(DAY FROM birth_date)
		LIMIT $6 OFFSET $7`
	return r.list(ctx, query, userID, startMonth, endMonth, startDay, endDay, limit, offset)
}

func birthdayWindow(today time.Time, periodDays int) (startMonth, endMonth, startDay, endDay int) {
	end := today.AddDate(0, 0, periodDays)
	return int(today.Month()), int(end.Month()), today.Day(), end.Day()
}

func (r *ContactRepository) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	const query = `
		INSERT INTO contacts (first_name, last_name, email, phone_number, birth_date, additional_data, created_at, updated_at, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.PhoneNumber,
		contact.BirthDate,
		contact.AdditionalData,
		contact.CreatedAt,
		contact.UpdatedAt,
		contact.UserID,
	).Scan(&contact.ID); err != nil {
		return types.Contact{}, translateError(err)
	}
	return contact, nil
}

// Update replaces the mutable fields of the contact matching id and
// owner. Returns ErrNotFound when no owned contact matches.
func (r *ContactRepository) Update(ctx context.Context, contact types.Contact) (types.Contact, error) {
	contact.UpdatedAt = time.Now()

	const query = `
		UPDATE contacts
		SET first_name = $1,
			last_name = $2,
			email = $3,
			phone_number = $4,
			birth_date = $5,
			additional_data = $6,
			updated_at = $7
		WHERE id = $8 AND user_id = $9
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.PhoneNumber,
		contact.BirthDate,
		contact.AdditionalData,
		contact.UpdatedAt,
		contact.ID,
		contact.UserID,
	).Scan(&contact.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Contact{}, ErrNotFound
		}
		return types.Contact{}, translateError(err)
	}
	return contact, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id, userID int) error {
	const query = `DELETE FROM contacts WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns contacts across all users. Access is restricted to
// admin and moderator roles at the route layer.
func (r *ContactRepository) ListAll(ctx context.Context, limit, offset int) ([]types.Contact, error) {
	const query = `
		SELECT ` + contactColumns + `
		FROM contacts
		ORDER BY id
		LIMIT $1 OFFSET $2`
	return r.list(ctx, query, limit, offset)
}

func (r *ContactRepository) list(ctx context.Context, query string, args ...any) ([]types.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []types.Contact{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}
