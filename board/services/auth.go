package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sustainboard/board/auth"
	"sustainboard/board/schema"
	"sustainboard/board/settings"
	"sustainboard/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthService handles the unauthenticated entrypoints: gated registration
// and login. Failures never reveal whether an account exists.
type AuthService struct {
	db     *gorm.DB
	tokens *auth.TokenFactory
	gates  *settings.Store
}

func (s *AuthService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", s.Register)
	r.Post("/login", s.Login)

	return r
}

type profileFields struct {
	Name         string `json:"name"`
	JobTitle     string `json:"jobTitle"`
	Department   string `json:"department"`
	Organization string `json:"organization"`
	Location     string `json:"location"`
}

type registerRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	RegistrationCode string `json:"registrationCode"`
	profileFields
}

type registerResponse struct {
	UserId      uuid.UUID `json:"userId"`
	ProfileId   uuid.UUID `json:"profileId"`
	AccessToken string    `json:"accessToken"`
}

var errEmailAlreadyInUse = errors.New("email is already in use")

// createUserWithProfile creates the credential record and its 1:1 profile
// as one unit, enforcing email uniqueness inside the transaction.
func createUserWithProfile(txn *gorm.DB, email, password, role string, fields profileFields) (schema.User, schema.Profile, error) {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		return schema.User{}, schema.Profile{}, CodedError(errors.New("error processing password"), http.StatusInternalServerError)
	}

	var existing schema.User
	result := txn.Limit(1).Find(&existing, "email = ?", email)
	if result.Error != nil {
		slog.Error("sql error checking for existing email", "error", result.Error)
		return schema.User{}, schema.Profile{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	if result.RowsAffected != 0 {
		return schema.User{}, schema.Profile{}, CodedError(errEmailAlreadyInUse, http.StatusConflict)
	}

	user := schema.User{Id: uuid.New(), Email: email, Password: hashed, Role: role}
	result = txn.Create(&user)
	if result.Error != nil {
		slog.Error("sql error creating new user entry", "error", result.Error)
		return schema.User{}, schema.Profile{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	profile := schema.Profile{
		Id:           uuid.New(),
		UserId:       user.Id,
		Name:         fields.Name,
		JobTitle:     fields.JobTitle,
		Department:   fields.Department,
		Organization: fields.Organization,
		Location:     fields.Location,
	}
	result = txn.Create(&profile)
	if result.Error != nil {
		slog.Error("sql error creating new profile entry", "error", result.Error)
		return schema.User{}, schema.Profile{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return user, profile, nil
}

func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	var params registerRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	required := []struct{ field, value string }{
		{"email", params.Email},
		{"password", params.Password},
		{"registrationCode", params.RegistrationCode},
		{"name", params.Name},
	}
	for _, req := range required {
		if req.value == "" {
			http.Error(w, fmt.Sprintf("missing required field '%v'", req.field), http.StatusBadRequest)
			return
		}
	}

	if !s.gates.CheckRegistrationCode(params.RegistrationCode) {
		utils.WriteUnauthorized(w, "invalid registration code")
		return
	}

	var user schema.User
	var profile schema.Profile
	err := s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		user, profile, err = createUserWithProfile(txn, params.Email, params.Password, schema.RoleUser, params.profileFields)
		return err
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error registering user: %v", err), GetResponseCode(err))
		return
	}

	token, err := s.tokens.IssueToken(user.Id, user.Email, user.Role)
	if err != nil {
		http.Error(w, "error generating access token", http.StatusInternalServerError)
		return
	}

	slog.Info("user registered", "user_id", user.Id)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, registerResponse{
		UserId:      user.Id,
		ProfileId:   profile.Id,
		AccessToken: token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserId      uuid.UUID `json:"userId"`
	AccessToken string    `json:"accessToken"`
}

func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var params loginRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	// Account-not-found and wrong-password collapse to the same response.
	var user schema.User
	result := s.db.First(&user, "email = ?", params.Email)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.Error("sql error looking up user by email", "error", result.Error)
			http.Error(w, schema.ErrDbAccessFailed.Error(), http.StatusInternalServerError)
			return
		}
		utils.WriteUnauthorized(w, "invalid email or password")
		return
	}

	if !auth.VerifyPassword(user.Password, params.Password) {
		utils.WriteUnauthorized(w, "invalid email or password")
		return
	}

	token, err := s.tokens.IssueToken(user.Id, user.Email, user.Role)
	if err != nil {
		http.Error(w, "error generating access token", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, loginResponse{UserId: user.Id, AccessToken: token})
}
