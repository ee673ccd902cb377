package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sustainboard/board/auth"
	"sustainboard/board/consistency"
	"sustainboard/board/schema"
	"sustainboard/board/settings"
	"sustainboard/board/storage"
	"sustainboard/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	db        *gorm.DB
	storage   storage.Storage
	tokens    *auth.TokenFactory
	gates     *settings.Store
	authChain chi.Middlewares
}

// deleteAvatarBlobs removes the stored pictures of deleted profiles. Runs
// after the deleting transaction commits, so a failure here leaves an
// orphaned blob rather than a half-deleted user.
func (s *UserService) deleteAvatarBlobs(paths []string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := s.storage.Delete(path); err != nil {
			slog.Error("error deleting avatar blob", "path", path, "error", err)
		}
	}
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	// Admin bootstrap is unauthenticated, it is gated by the master
	// password instead.
	r.Post("/admin/create", s.CreateAdmin)

	r.Group(func(r chi.Router) {
		r.Use(s.authChain...)

		r.Put("/email", s.UpdateEmail)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authChain...)
		r.Use(auth.AdminOnly())

		r.Get("/admin/all", s.List)
		r.Delete("/admin/delete-all-non-admin", s.DeleteAllNonAdmin)
		r.Delete("/admin/{user_id}", s.DeleteUser)
	})

	return r
}

type createAdminRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	MasterPassword string `json:"masterPassword"`
	profileFields
}

func (s *UserService) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var params createAdminRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	required := []struct{ field, value string }{
		{"email", params.Email},
		{"password", params.Password},
		{"masterPassword", params.MasterPassword},
		{"name", params.Name},
	}
	for _, req := range required {
		if req.value == "" {
			http.Error(w, fmt.Sprintf("missing required field '%v'", req.field), http.StatusBadRequest)
			return
		}
	}

	if !s.gates.CheckMasterPassword(params.MasterPassword) {
		utils.WriteUnauthorized(w, "invalid master password")
		return
	}

	var user schema.User
	var profile schema.Profile
	err := s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		user, profile, err = createUserWithProfile(txn, params.Email, params.Password, schema.RoleAdmin, params.profileFields)
		return err
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error creating admin user: %v", err), GetResponseCode(err))
		return
	}

	token, err := s.tokens.IssueToken(user.Id, user.Email, user.Role)
	if err != nil {
		http.Error(w, "error generating access token", http.StatusInternalServerError)
		return
	}

	slog.Info("admin user created", "user_id", user.Id)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, registerResponse{
		UserId:      user.Id,
		ProfileId:   profile.Id,
		AccessToken: token,
	})
}

type updateEmailRequest struct {
	Email string `json:"email"`
}

func (s *UserService) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params updateEmailRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Email == "" {
		http.Error(w, "missing required field 'email'", http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var existing schema.User
		result := txn.Limit(1).Find(&existing, "email = ? and id <> ?", params.Email, user.Id)
		if result.Error != nil {
			slog.Error("sql error checking for existing email", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			return CodedError(errEmailAlreadyInUse, http.StatusConflict)
		}

		result = txn.Model(&schema.User{}).Where("id = ?", user.Id).Update("email", params.Email)
		if result.Error != nil {
			slog.Error("sql error updating user email", "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating email: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type UserInfo struct {
	Id    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
	Name  string    `json:"name"`
}

func (s *UserService) List(w http.ResponseWriter, r *http.Request) {
	var users []schema.User
	result := s.db.Preload("Profile").Find(&users)
	if result.Error != nil {
		slog.Error("sql error listing users", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing users: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]UserInfo, 0, len(users))
	for _, user := range users {
		info := UserInfo{Id: user.Id, Email: user.Email, Role: user.Role}
		if user.Profile != nil {
			info.Name = user.Profile.Name
		}
		infos = append(infos, info)
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *UserService) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var avatarPath string
	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, userId); err != nil {
			return err
		}

		profile, err := schema.GetProfileForUser(userId, txn)
		if err == nil {
			avatarPath = profile.AvatarPath
		} else if !errors.Is(err, schema.ErrProfileNotFound) {
			return CodedError(err, http.StatusInternalServerError)
		}

		if err := consistency.DeleteUser(txn, userId); err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting user %v: %v", userId, err), GetResponseCode(err))
		return
	}

	s.deleteAvatarBlobs([]string{avatarPath})

	slog.Info("user deleted", "user_id", userId)

	utils.WriteNoContent(w)
}

type deleteAllNonAdminResponse struct {
	Deleted int `json:"deleted"`
}

func (s *UserService) DeleteAllNonAdmin(w http.ResponseWriter, r *http.Request) {
	var deleted int
	var avatarPaths []string
	err := s.db.Transaction(func(txn *gorm.DB) error {
		result := txn.Model(&schema.Profile{}).
			Joins("join users on users.id = profiles.user_id").
			Where("users.role <> ? and profiles.avatar_path <> ''", schema.RoleAdmin).
			Pluck("profiles.avatar_path", &avatarPaths)
		if result.Error != nil {
			slog.Error("sql error listing avatar paths of non-admin users", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		var err error
		deleted, err = consistency.DeleteAllNonAdminUsers(txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting non-admin users: %v", err), GetResponseCode(err))
		return
	}

	s.deleteAvatarBlobs(avatarPaths)

	slog.Info("deleted all non-admin users", "count", deleted)

	utils.WriteJsonResponse(w, deleteAllNonAdminResponse{Deleted: deleted})
}
