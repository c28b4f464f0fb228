package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/contactsbook/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// Fixed API messages. Single-resource misses always answer with
// msgContactNotFound so clients can key off a stable body.
const (
	msgContactNotFound     = "contact not found"
	msgInvalidEmail        = "invalid email"
	msgInvalidPassword     = "invalid password"
	msgInvalidRefreshToken = "invalid refresh token"
	msgEmailNotConfirmed   = "email not confirmed"
	msgAccountExists       = "account already exists"
	msgContactExists       = "contact with this email already exists"
	msgBanned              = "you are banned"
	msgDatabaseDown        = "error connecting to the database"
)

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func userFromContext(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok || user.ID < 1 {
		return types.User{}, errors.New("missing user")
	}
	return user, nil
}

func contextWithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

func validEmail(address string) bool {
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == address
}
