package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/narvanalabs/matchday/internal/api/middleware"
	"github.com/narvanalabs/matchday/internal/blob"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
)

// photoField is the multipart form field carrying the uploaded image.
const photoField = "photo"

// ProfileHandler handles the caller's own profile.
type ProfileHandler struct {
	users  store.UserStore
	photos blob.Uploader
	logger *slog.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(users store.UserStore, photos blob.Uploader, logger *slog.Logger) *ProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if photos == nil {
		photos = blob.Disabled{}
	}
	return &ProfileHandler{
		users:  users,
		photos: photos,
		logger: logger,
	}
}

// Get handles GET /v1/me.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to get profile", err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// UpdateProfileRequest is the body of PATCH /v1/me. Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Name           *string  `json:"name"`
	FavoriteSports []string `json:"favorite_sports"`
}

// Update handles PATCH /v1/me.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	user, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to get profile", err)
		return
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
		if err := user.ValidateName(); err != nil {
			WriteBadRequest(w, r, err.Error())
			return
		}
	}
	if req.FavoriteSports != nil {
		user.FavoriteSports = models.NormalizeSports(req.FavoriteSports)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.users.Update(r.Context(), user); err != nil {
		WriteDomainError(w, r, h.logger, "failed to update profile", err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// UploadPhoto handles POST /v1/me/photo with a multipart "photo" field.
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, blob.MaxPhotoSize+(1<<20))
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteBadRequest(w, r, "photo must be 5 MB or smaller")
			return
		}
		WriteBadRequest(w, r, "expected a multipart form with a photo field")
		return
	}
	file, header, err := r.FormFile(photoField)
	if err != nil {
		WriteBadRequest(w, r, "photo field is required")
		return
	}
	defer file.Close()

	if header.Size > blob.MaxPhotoSize {
		WriteBadRequest(w, r, "photo must be 5 MB or smaller")
		return
	}

	url, err := h.photos.UploadPhoto(r.Context(), userID, file, header.Header.Get("Content-Type"))
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to upload photo", err)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to get profile", err)
		return
	}
	user.PhotoURL = url
	user.UpdatedAt = time.Now().UTC()
	if err := h.users.Update(r.Context(), user); err != nil {
		WriteDomainError(w, r, h.logger, "failed to save photo url", err)
		return
	}

	requestLog(r, h.logger).Info("profile photo updated")
	WriteJSON(w, http.StatusOK, user)
}
