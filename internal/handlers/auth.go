package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/contactsbook/apiserver/internal/services"
	"github.com/contactsbook/apiserver/internal/store"
	"github.com/contactsbook/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const minPasswordLength = 6

// AuthHandler provides signup, login, token refresh, and email
// verification endpoints.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService) {
	handler := NewAuthHandler(authService)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Get("/refresh_token", handler.Refresh)
	r.Get("/confirmed_email/{token}", handler.ConfirmEmail)
	r.Post("/request_email", handler.RequestEmail)
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupResponse struct {
	User    types.PublicUser `json:"user"`
	Message string           `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Signup creates an unconfirmed account and queues a verification mail.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Username == "" || len(req.Username) > 50:
		writeError(w, http.StatusUnprocessableEntity, "invalid username")
		return
	case !validEmail(req.Email):
		writeError(w, http.StatusUnprocessableEntity, msgInvalidEmail)
		return
	case len(req.Password) < minPasswordLength:
		writeError(w, http.StatusUnprocessableEntity, "password too short")
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, msgAccountExists)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, SignupResponse{
		User:    user.Public(),
		Message: "check your email for confirmation",
	})
}

// Login verifies credentials and returns an access/refresh token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request")
		return
	}

	pair, err := h.authService.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail):
			writeError(w, http.StatusUnauthorized, msgInvalidEmail)
		case errors.Is(err, services.ErrInvalidPassword):
			writeError(w, http.StatusUnauthorized, msgInvalidPassword)
		case errors.Is(err, services.ErrEmailNotConfirmed):
			writeError(w, http.StatusUnauthorized, msgEmailNotConfirmed)
		default:
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// Refresh exchanges a refresh token presented as a bearer credential
// for a new token pair. A token that does not match the stored one
// invalidates the session.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgInvalidRefreshToken)
		return
	}

	pair, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			writeError(w, http.StatusUnauthorized, msgInvalidRefreshToken)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to refresh tokens")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// ConfirmEmail redeems the verification token from the mailed link.
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	already, err := h.authService.ConfirmEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			writeError(w, http.StatusBadRequest, "verification error")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to confirm email")
		return
	}

	message := "email confirmed"
	if already {
		message = "your email is already confirmed"
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// RequestEmail re-sends the verification mail. The response does not
// reveal whether the address belongs to an account.
func (h *AuthHandler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request")
		return
	}
	if !validEmail(strings.TrimSpace(req.Email)) {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidEmail)
		return
	}

	if err := h.authService.RequestVerification(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to send email")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "check your email for confirmation"})
}
