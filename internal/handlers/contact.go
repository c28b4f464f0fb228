package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/contactsbook/apiserver/internal/services"
	"github.com/contactsbook/apiserver/internal/store"
	"github.com/contactsbook/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 10
	minListLimit     = 10
	maxListLimit     = 500

	defaultBirthdayPeriod = 7
	defaultBirthdayLimit  = 10
	maxBirthdayLimit      = 1000

	maxNameLength  = 25
	maxPhoneLength = 20

	birthDateLayout = "2006-01-02"
)

// ContactHandler provides HTTP handlers for contacts.
type ContactHandler struct {
	contactService *services.ContactService
	userService    *services.UserService
}

func NewContactHandler(contactService *services.ContactService, userService *services.UserService) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		userService:    userService,
	}
}

// ContactRouter registers contact routes. Every route requires an
// access token; creation is additionally rate limited when a limiter is
// configured, and the unscoped listing is restricted to admins and
// moderators.
func ContactRouter(
	r chi.Router,
	contactService *services.ContactService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
	createLimiter func(http.Handler) http.Handler,
) {
	handler := NewContactHandler(contactService, userService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListContacts)
	r.With(RequireRoles(types.RoleAdmin, types.RoleModerator)).Get("/all", handler.ListAllContacts)
	r.Get("/birthdays/", handler.ListBirthdays)
	if createLimiter != nil {
		r.With(createLimiter).Post("/", handler.CreateContact)
	} else {
		r.Post("/", handler.CreateContact)
	}
	r.Route("/{contactID}", func(r chi.Router) {
		r.Get("/", handler.GetContact)
		r.Put("/", handler.UpdateContact)
		r.Delete("/", handler.DeleteContact)
	})
}

// ContactResponse augments a contact with its owner's public profile.
type ContactResponse struct {
	types.Contact
	User types.PublicUser `json:"user"`
}

func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset, err := parseListParams(r, defaultListLimit, minListLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	criteria := types.ContactCriteria{
		FirstName: strings.TrimSpace(r.URL.Query().Get("first_name")),
		LastName:  strings.TrimSpace(r.URL.Query().Get("last_name")),
		Email:     strings.TrimSpace(r.URL.Query().Get("email")),
	}

	contacts, err := h.contactService.ListByCriteria(r.Context(), criteria, limit, offset, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}

	writeJSON(w, http.StatusOK, contactResponses(contacts, user.Public()))
}

func (h *ContactHandler) ListAllContacts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseListParams(r, defaultListLimit, minListLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	contacts, err := h.contactService.ListAll(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}

	responses := make([]ContactResponse, 0, len(contacts))
	owners := map[int]types.PublicUser{}
	for _, contact := range contacts {
		owner, ok := owners[contact.UserID]
		if !ok {
			ownerUser, err := h.userService.GetByID(r.Context(), contact.UserID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to load contact owner")
				return
			}
			owner = ownerUser.Public()
			owners[contact.UserID] = owner
		}
		responses = append(responses, ContactResponse{Contact: contact, User: owner})
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *ContactHandler) ListBirthdays(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	period, err := queryInt(r, "period", defaultBirthdayPeriod)
	if err != nil || period < 1 {
		writeError(w, http.StatusUnprocessableEntity, "invalid period")
		return
	}
	limit, err := queryInt(r, "limit", defaultBirthdayLimit)
	if err != nil || limit < 1 || limit > maxBirthdayLimit {
		writeError(w, http.StatusUnprocessableEntity, "invalid limit")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusUnprocessableEntity, "invalid offset")
		return
	}

	contacts, err := h.contactService.ListBirthdays(r.Context(), period, limit, offset, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list birthdays")
		return
	}

	writeJSON(w, http.StatusOK, contactResponses(contacts, user.Public()))
}

func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseContactID(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	contact, err := h.contactService.GetByID(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgContactNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch contact")
		return
	}

	writeJSON(w, http.StatusOK, ContactResponse{Contact: contact, User: user.Public()})
}

func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := parseContactBody(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	body.UserID = user.ID

	contact, err := h.contactService.Create(r.Context(), body)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, msgContactExists)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create contact")
		return
	}

	writeJSON(w, http.StatusCreated, ContactResponse{Contact: contact, User: user.Public()})
}

func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseContactID(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	body, err := parseContactBody(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	body.ID = id
	body.UserID = user.ID

	contact, err := h.contactService.Update(r.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, msgContactNotFound)
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, msgContactExists)
		default:
			writeError(w, http.StatusInternalServerError, "failed to update contact")
		}
		return
	}

	writeJSON(w, http.StatusOK, ContactResponse{Contact: contact, User: user.Public()})
}

func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseContactID(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.contactService.Delete(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgContactNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete contact")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func contactResponses(contacts []types.Contact, owner types.PublicUser) []ContactResponse {
	responses := make([]ContactResponse, 0, len(contacts))
	for _, contact := range contacts {
		responses = append(responses, ContactResponse{Contact: contact, User: owner})
	}
	return responses
}

// ContactBody is the create/update request payload.
type ContactBody struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	BirthDate      string `json:"birth_date"`
	AdditionalData string `json:"additional_data"`
}

func parseContactBody(r *http.Request) (types.Contact, error) {
	var body ContactBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return types.Contact{}, errors.New("invalid request body")
	}

	body.FirstName = strings.TrimSpace(body.FirstName)
	body.LastName = strings.TrimSpace(body.LastName)
	body.Email = strings.TrimSpace(body.Email)

	switch {
	case body.FirstName == "" || len(body.FirstName) > maxNameLength:
		return types.Contact{}, errors.New("invalid first name")
	case len(body.LastName) > maxNameLength:
		return types.Contact{}, errors.New("invalid last name")
	case !validEmail(body.Email):
		return types.Contact{}, errors.New(msgInvalidEmail)
	case len(body.PhoneNumber) > maxPhoneLength:
		return types.Contact{}, errors.New("invalid phone number")
	}

	contact := types.Contact{
		FirstName:      body.FirstName,
		LastName:       body.LastName,
		Email:          body.Email,
		PhoneNumber:    body.PhoneNumber,
		AdditionalData: body.AdditionalData,
	}

	if body.BirthDate != "" {
		birthDate, err := time.Parse(birthDateLayout, body.BirthDate)
		if err != nil {
			return types.Contact{}, errors.New("invalid birth date")
		}
		contact.BirthDate = &birthDate
	}

	return contact, nil
}

func parseContactID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "contactID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid contact id")
	}
	return id, nil
}

func parseListParams(r *http.Request, defaultLimit, minLimit, maxLimit int) (limit, offset int, err error) {
	limit, err = queryInt(r, "limit", defaultLimit)
	if err != nil || limit < minLimit || limit > maxLimit {
		return 0, 0, errors.New("invalid limit")
	}
	offset, err = queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		return 0, 0, errors.New("invalid offset")
	}
	return limit, offset, nil
}

func queryInt(r *http.Request, name string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}
