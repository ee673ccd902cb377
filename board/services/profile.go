package services

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sustainboard/board/auth"
	"sustainboard/board/schema"
	"sustainboard/board/storage"
	"sustainboard/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileService struct {
	db        *gorm.DB
	storage   storage.Storage
	authChain chi.Middlewares
}

func (s *ProfileService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.authChain...)

	r.Route("/{profile_id}", func(r chi.Router) {
		r.Get("/", s.GetProfile)
		r.Put("/", s.UpdateProfile)

		r.Get("/picture", s.GetPicture)
		r.Put("/picture", s.UploadPicture)
	})

	return r
}

// loadOwnProfileOrAdmin enforces the self-or-admin rule: a profile is
// visible and writable only to its owning user or to an admin.
func (s *ProfileService) loadOwnProfileOrAdmin(r *http.Request) (schema.Profile, error) {
	profileId, err := utils.URLParamUUID(r, "profile_id")
	if err != nil {
		return schema.Profile{}, CodedError(err, http.StatusBadRequest)
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		return schema.Profile{}, CodedError(err, http.StatusInternalServerError)
	}

	profile, err := schema.GetProfile(profileId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrProfileNotFound) {
			return schema.Profile{}, CodedError(err, http.StatusNotFound)
		}
		return schema.Profile{}, CodedError(err, http.StatusInternalServerError)
	}

	if profile.UserId != user.Id && !auth.IsAdmin(user) {
		return schema.Profile{}, CodedError(fmt.Errorf("user %v cannot access profile %v", user.Id, profileId), http.StatusForbidden)
	}

	return profile, nil
}

type ProfileInfo struct {
	Id           uuid.UUID `json:"id"`
	UserId       uuid.UUID `json:"userId"`
	Name         string    `json:"name"`
	JobTitle     string    `json:"jobTitle"`
	Department   string    `json:"department"`
	Organization string    `json:"organization"`
	Location     string    `json:"location"`
	HasPicture   bool      `json:"hasPicture"`
}

func profileInfo(profile schema.Profile) ProfileInfo {
	return ProfileInfo{
		Id:           profile.Id,
		UserId:       profile.UserId,
		Name:         profile.Name,
		JobTitle:     profile.JobTitle,
		Department:   profile.Department,
		Organization: profile.Organization,
		Location:     profile.Location,
		HasPicture:   profile.AvatarPath != "",
	}
}

func (s *ProfileService) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.loadOwnProfileOrAdmin(r)
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, profileInfo(profile))
}

func (s *ProfileService) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.loadOwnProfileOrAdmin(r)
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	var params profileFields
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" {
		http.Error(w, "missing required field 'name'", http.StatusBadRequest)
		return
	}

	profile.Name = params.Name
	profile.JobTitle = params.JobTitle
	profile.Department = params.Department
	profile.Organization = params.Organization
	profile.Location = params.Location

	result := s.db.Save(&profile)
	if result.Error != nil {
		slog.Error("sql error updating profile", "profile_id", profile.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error updating profile: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, profileInfo(profile))
}

// checkDiskUsage rejects uploads once free space drops below 20% of the
// disk or 1Gb, whichever is smaller.
func checkDiskUsage(store storage.Storage) error {
	stats, err := store.Usage()
	if err != nil {
		slog.Error("unable to get disk usage from storage", "error", err)
		return CodedError(errors.New("unable to get disk usage"), http.StatusInternalServerError)
	}
	oneMib := uint64(1024 * 1024)
	threshold := min(stats.TotalBytes/5, 1024*oneMib)
	if stats.FreeBytes < threshold {
		return CodedError(errors.New("insufficient disk space available for upload"), http.StatusInsufficientStorage)
	}
	return nil
}

func avatarPath(profileId uuid.UUID) string {
	return filepath.Join("avatars", profileId.String())
}

// The picture is an opaque blob, no format validation is applied.
func (s *ProfileService) UploadPicture(w http.ResponseWriter, r *http.Request) {
	profile, err := s.loadOwnProfileOrAdmin(r)
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	if err := checkDiskUsage(s.storage); err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	path := avatarPath(profile.Id)
	if err := s.storage.Write(path, r.Body); err != nil {
		http.Error(w, "error storing profile picture", http.StatusInternalServerError)
		return
	}

	result := s.db.Model(&schema.Profile{}).Where("id = ?", profile.Id).Update("avatar_path", path)
	if result.Error != nil {
		slog.Error("sql error updating profile avatar path", "profile_id", profile.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error updating profile: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteSuccess(w)
}

func (s *ProfileService) GetPicture(w http.ResponseWriter, r *http.Request) {
	profile, err := s.loadOwnProfileOrAdmin(r)
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	if profile.AvatarPath == "" {
		http.Error(w, fmt.Sprintf("profile %v has no picture", profile.Id), http.StatusNotFound)
		return
	}

	exists, err := s.storage.Exists(profile.AvatarPath)
	if err != nil {
		http.Error(w, "error reading profile picture", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, fmt.Sprintf("profile %v has no picture", profile.Id), http.StatusNotFound)
		return
	}

	data, err := s.storage.Read(profile.AvatarPath)
	if err != nil {
		http.Error(w, "error reading profile picture", http.StatusInternalServerError)
		return
	}
	defer data.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, data); err != nil {
		slog.Error("error streaming profile picture", "profile_id", profile.Id, "error", err)
	}
}
