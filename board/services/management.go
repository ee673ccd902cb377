package services

import (
	"fmt"
	"net/http"
	"sustainboard/board/auth"
	"sustainboard/board/settings"
	"sustainboard/utils"

	"github.com/go-chi/chi/v5"
)

// ManagementService exposes the admin-only controls for the registration
// gates. Values are stored in the app_settings table and fall back to the
// configured defaults until an admin overrides them.
type ManagementService struct {
	gates     *settings.Store
	authChain chi.Middlewares
}

func (s *ManagementService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.authChain...)
	r.Use(auth.AdminOnly())

	r.Get("/registration-code", s.GetRegistrationCode)
	r.Post("/registration-code", s.SetRegistrationCode)

	r.Get("/master-password", s.GetMasterPassword)
	r.Post("/master-password", s.SetMasterPassword)

	return r
}

type registrationCodeResponse struct {
	RegistrationCode string `json:"registrationCode"`
}

func (s *ManagementService) GetRegistrationCode(w http.ResponseWriter, r *http.Request) {
	utils.WriteJsonResponse(w, registrationCodeResponse{RegistrationCode: s.gates.RegistrationCode()})
}

type setRegistrationCodeRequest struct {
	RegistrationCode string `json:"registrationCode"`
}

func (s *ManagementService) SetRegistrationCode(w http.ResponseWriter, r *http.Request) {
	var params setRegistrationCodeRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.RegistrationCode == "" {
		http.Error(w, "missing required field 'registrationCode'", http.StatusBadRequest)
		return
	}

	if err := s.gates.SetRegistrationCode(params.RegistrationCode); err != nil {
		http.Error(w, fmt.Sprintf("error updating registration code: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteSuccess(w)
}

type masterPasswordResponse struct {
	MasterPassword string `json:"masterPassword"`
}

func (s *ManagementService) GetMasterPassword(w http.ResponseWriter, r *http.Request) {
	utils.WriteJsonResponse(w, masterPasswordResponse{MasterPassword: s.gates.MasterPassword()})
}

type setMasterPasswordRequest struct {
	MasterPassword string `json:"masterPassword"`
}

func (s *ManagementService) SetMasterPassword(w http.ResponseWriter, r *http.Request) {
	var params setMasterPasswordRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.MasterPassword == "" {
		http.Error(w, "missing required field 'masterPassword'", http.StatusBadRequest)
		return
	}

	if err := s.gates.SetMasterPassword(params.MasterPassword); err != nil {
		http.Error(w, fmt.Sprintf("error updating master password: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteSuccess(w)
}
