package handlers

import (
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/contactsbook/apiserver/internal/services"
	"github.com/contactsbook/apiserver/internal/storage"
)

const maxAvatarBytes = 5 << 20

var avatarExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// UserHandler provides profile endpoints for the authenticated user.
type UserHandler struct {
	userService *services.UserService
	avatars     storage.ObjectStorage
}

// NewUserHandler constructs a handler. A nil storage disables avatar
// uploads.
func NewUserHandler(userService *services.UserService, avatars storage.ObjectStorage) *UserHandler {
	return &UserHandler{
		userService: userService,
		avatars:     avatars,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, avatars storage.ObjectStorage, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService, avatars)

	r.Use(authMiddleware)
	r.Get("/me", handler.Me)
	r.Patch("/avatar", handler.UpdateAvatar)
}

// Me returns the current authenticated user's public profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// UpdateAvatar stores the uploaded image in object storage and records
// its URL on the user. A previous avatar stored under a different key
// is removed.
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "avatar file is required")
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		writeError(w, http.StatusUnprocessableEntity, "avatar file too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := avatarExtensions[ext]; !ok {
		writeError(w, http.StatusUnprocessableEntity, "unsupported avatar file type")
		return
	}

	key := fmt.Sprintf("avatars/%d%s", user.ID, ext)
	contentType := header.Header.Get("Content-Type")
	if err := h.avatars.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	if old := avatarKey(user.Avatar); old != "" && old != key {
		_ = h.avatars.Delete(r.Context(), old)
	}

	avatarURL := h.avatars.ObjectURL(key)
	if err := h.userService.UpdateAvatar(r.Context(), user.ID, avatarURL); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update avatar")
		return
	}

	user.Avatar = avatarURL
	writeJSON(w, http.StatusOK, user.Public())
}

// avatarKey extracts the storage key from a stored avatar URL; keys
// live under the avatars/ prefix.
func avatarKey(avatarURL string) string {
	idx := strings.Index(avatarURL, "/avatars/")
	if idx < 0 {
		return ""
	}
	return path.Clean(avatarURL[idx+1:])
}
