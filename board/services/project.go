package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sustainboard/board/auth"
	"sustainboard/board/consistency"
	"sustainboard/board/schema"
	"sustainboard/utils"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectService struct {
	db        *gorm.DB
	authChain chi.Middlewares
}

func (s *ProjectService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.authChain...)

	r.Get("/", s.List)
	r.Post("/", s.Create)

	r.Route("/{project_id}", func(r chi.Router) {
		r.With(auth.ProjectAccessOnly(s.db, auth.ViewPermission)).Get("/", s.Get)
		r.With(auth.ProjectAccessOnly(s.db, auth.EditPermission)).Put("/", s.Update)
		r.With(auth.ProjectAccessOnly(s.db, auth.OwnerPermission)).Delete("/", s.Delete)

		r.With(auth.ProjectAccessOnly(s.db, auth.ViewPermission)).Get("/analysis", s.Analysis)

		r.Route("/collaborators", func(r chi.Router) {
			r.With(auth.ProjectAccessOnly(s.db, auth.ViewPermission)).Get("/", s.ListCollaborators)
			r.With(auth.ProjectAccessOnly(s.db, auth.OwnerPermission)).Post("/", s.AddCollaborator)
			r.Delete("/{profile_id}", s.RemoveCollaborator)
		})
	})

	return r
}

type ProjectInfo struct {
	Id             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	OwnerProfileId uuid.UUID `json:"ownerProfileId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func projectInfo(project schema.Project) ProjectInfo {
	return ProjectInfo{
		Id:             project.Id,
		Title:          project.Title,
		Description:    project.Description,
		OwnerProfileId: project.ProfileId,
		CreatedAt:      project.CreatedAt,
		UpdatedAt:      project.UpdatedAt,
	}
}

// List returns the projects the caller owns or collaborates on.
func (s *ProjectService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	profile, err := callerProfile(s.db, user.Id)
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	var projects []schema.Project
	result := s.db.Distinct("projects.*").
		Joins("LEFT JOIN project_collaborators ON project_collaborators.project_id = projects.id AND project_collaborators.profile_id = ?", profile.Id).
		Where("projects.profile_id = ? OR project_collaborators.profile_id IS NOT NULL", profile.Id).
		Find(&projects)
	if result.Error != nil {
		slog.Error("sql error listing projects", "profile_id", profile.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing projects: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]ProjectInfo, 0, len(projects))
	for _, project := range projects {
		infos = append(infos, projectInfo(project))
	}

	utils.WriteJsonResponse(w, infos)
}

type projectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *ProjectService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	profile, err := callerProfile(s.db, user.Id)
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	var params projectRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Title == "" {
		http.Error(w, "missing required field 'title'", http.StatusBadRequest)
		return
	}

	project := schema.Project{
		Id:          uuid.New(),
		Title:       params.Title,
		Description: params.Description,
		ProfileId:   profile.Id,
	}

	result := s.db.Create(&project)
	if result.Error != nil {
		slog.Error("sql error creating new project entry", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating project: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	slog.Info("project created", "project_id", project.Id, "profile_id", profile.Id)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, projectInfo(project))
}

func (s *ProjectService) Get(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	project, err := schema.GetProject(projectId, s.db, false)
	if err != nil {
		if errors.Is(err, schema.ErrProjectNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, projectInfo(project))
}

func (s *ProjectService) Update(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params projectRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Title == "" {
		http.Error(w, "missing required field 'title'", http.StatusBadRequest)
		return
	}

	var project schema.Project
	err = s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		project, err = schema.GetProject(projectId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrProjectNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		project.Title = params.Title
		project.Description = params.Description

		result := txn.Save(&project)
		if result.Error != nil {
			slog.Error("sql error updating project", "project_id", projectId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating project: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, projectInfo(project))
}

func (s *ProjectService) Delete(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProjectExists(txn, projectId); err != nil {
			return err
		}
		if err := consistency.DeleteProject(txn, projectId); err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting project: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("project deleted", "project_id", projectId)

	utils.WriteNoContent(w)
}

// Analysis is computed over the already-authorized project's impact set,
// it never mutates state.
func (s *ProjectService) Analysis(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var impacts []schema.Impact
	result := s.db.Preload("Sdgs").Find(&impacts, "project_id = ?", projectId)
	if result.Error != nil {
		slog.Error("sql error loading impacts for analysis", "project_id", projectId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error loading project impacts: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, Analyze(impacts))
}

type CollaboratorInfo struct {
	ProfileId uuid.UUID `json:"profileId"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Since     time.Time `json:"since"`
}

func (s *ProjectService) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var collaborators []schema.ProjectCollaborator
	result := s.db.Preload("Profile").Order("created_at asc, profile_id asc").Find(&collaborators, "project_id = ?", projectId)
	if result.Error != nil {
		slog.Error("sql error listing collaborators", "project_id", projectId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing collaborators: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]CollaboratorInfo, 0, len(collaborators))
	for _, collaborator := range collaborators {
		info := CollaboratorInfo{
			ProfileId: collaborator.ProfileId,
			Role:      collaborator.Role,
			Since:     collaborator.CreatedAt,
		}
		if collaborator.Profile != nil {
			info.Name = collaborator.Profile.Name
		}
		infos = append(infos, info)
	}

	utils.WriteJsonResponse(w, infos)
}

type addCollaboratorRequest struct {
	ProfileId uuid.UUID `json:"profileId"`
	Role      string    `json:"role"`
}

func (s *ProjectService) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params addCollaboratorRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.ProfileId == uuid.Nil {
		http.Error(w, "missing required field 'profileId'", http.StatusBadRequest)
		return
	}

	if params.Role == "" {
		params.Role = schema.CollaboratorViewer
	}
	if err := schema.CheckValidCollaboratorRole(params.Role); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		err := consistency.AddCollaborator(txn, projectId, params.ProfileId, params.Role)
		if err != nil {
			switch {
			case errors.Is(err, consistency.ErrDuplicateCollaborator):
				return CodedError(err, http.StatusConflict)
			case errors.Is(err, schema.ErrProjectNotFound), errors.Is(err, schema.ErrProfileNotFound):
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error adding collaborator: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("collaborator added", "project_id", projectId, "profile_id", params.ProfileId, "role", params.Role)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, struct{}{})
}

// RemoveCollaborator is permitted to the project owner (or an admin) and to
// a collaborator removing themselves. Removing the owner triggers the
// ownership transfer or, with no collaborator left, deletes the project.
func (s *ProjectService) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	profileId, err := utils.URLParamUUID(r, "profile_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	caller, err := callerProfile(s.db, user.Id)
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	if caller.Id != profileId {
		permission, err := auth.GetProjectPermissions(projectId, user, s.db)
		if err != nil {
			if errors.Is(err, schema.ErrProjectNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if permission < auth.OwnerPermission {
			http.Error(w, fmt.Sprintf("user %v cannot remove collaborator %v from project %v", user.Id, profileId, projectId), http.StatusForbidden)
			return
		}
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		err := consistency.RemoveCollaborator(txn, projectId, profileId)
		if err != nil {
			switch {
			case errors.Is(err, schema.ErrProjectNotFound), errors.Is(err, schema.ErrCollaboratorNotFound):
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error removing collaborator: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("collaborator removed", "project_id", projectId, "profile_id", profileId)

	utils.WriteNoContent(w)
}
