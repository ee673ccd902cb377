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

type ImpactService struct {
	db        *gorm.DB
	authChain chi.Middlewares
}

func (s *ImpactService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.authChain...)

	r.Get("/", s.List)
	r.Post("/", s.Create)

	r.Route("/{impact_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Put("/", s.Update)
		r.Delete("/", s.Delete)
	})

	return r
}

type ImpactInfo struct {
	Id           uuid.UUID `json:"id"`
	ProjectId    uuid.UUID `json:"projectId"`
	SectionType  string    `json:"sectionType"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Score        int       `json:"score"`
	Dimension    string    `json:"dimension"`
	RelationType string    `json:"relationType"`
	Sdgs         []int     `json:"sdgs"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func impactInfo(impact schema.Impact) ImpactInfo {
	sdgs := make([]int, 0, len(impact.Sdgs))
	for _, link := range impact.Sdgs {
		sdgs = append(sdgs, link.SdgId)
	}

	return ImpactInfo{
		Id:           impact.Id,
		ProjectId:    impact.ProjectId,
		SectionType:  impact.SectionType,
		Title:        impact.Title,
		Description:  impact.Description,
		Score:        impact.Score,
		Dimension:    impact.Dimension,
		RelationType: impact.RelationType,
		Sdgs:         sdgs,
		CreatedAt:    impact.CreatedAt,
		UpdatedAt:    impact.UpdatedAt,
	}
}

// requireProjectAccess re-runs the ownership/collaboration check for the
// impact's project. Impacts carry their project id in the body or query
// rather than the url, so the route middleware cannot do this.
func (s *ImpactService) requireProjectAccess(w http.ResponseWriter, r *http.Request, projectId uuid.UUID, write bool) bool {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}

	permission, err := auth.GetProjectPermissions(projectId, user, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrProfileNotFound) || errors.Is(err, schema.ErrProjectNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}

	minPermission := auth.ViewPermission
	if write {
		minPermission = auth.EditPermission
	}

	if permission < minPermission {
		http.Error(w, fmt.Sprintf("user %v does not have required permission for project %v", user.Id, projectId), http.StatusForbidden)
		return false
	}

	return true
}

func (s *ImpactService) List(w http.ResponseWriter, r *http.Request) {
	projectIdParam := r.URL.Query().Get("projectId")
	if projectIdParam == "" {
		http.Error(w, "missing required query parameter 'projectId'", http.StatusBadRequest)
		return
	}

	projectId, err := uuid.Parse(projectIdParam)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid uuid '%v' provided: %v", projectIdParam, err), http.StatusBadRequest)
		return
	}

	if !s.requireProjectAccess(w, r, projectId, false) {
		return
	}

	var impacts []schema.Impact
	result := s.db.Preload("Sdgs").Order("created_at asc").Find(&impacts, "project_id = ?", projectId)
	if result.Error != nil {
		slog.Error("sql error listing impacts", "project_id", projectId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing impacts: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]ImpactInfo, 0, len(impacts))
	for _, impact := range impacts {
		infos = append(infos, impactInfo(impact))
	}

	utils.WriteJsonResponse(w, infos)
}

type impactRequest struct {
	ProjectId    uuid.UUID `json:"projectId"`
	SectionType  string    `json:"sectionType"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Score        int       `json:"score"`
	Dimension    string    `json:"dimension"`
	RelationType string    `json:"relationType"`
	Sdgs         []int     `json:"sdgs"`
}

func (params *impactRequest) validate() error {
	if params.Title == "" {
		return errors.New("missing required field 'title'")
	}
	if params.Score < schema.MinImpactScore || params.Score > schema.MaxImpactScore {
		return fmt.Errorf("score must be between %d and %d", schema.MinImpactScore, schema.MaxImpactScore)
	}
	if err := schema.CheckValidDimension(params.Dimension); err != nil {
		return err
	}
	if err := schema.CheckValidRelationType(params.RelationType); err != nil {
		return err
	}
	return checkValidSdgIds(params.Sdgs)
}

func sdgLinks(impactId uuid.UUID, sdgIds []int) []schema.ImpactSdg {
	seen := make(map[int]struct{}, len(sdgIds))
	links := make([]schema.ImpactSdg, 0, len(sdgIds))
	for _, id := range sdgIds {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		links = append(links, schema.ImpactSdg{ImpactId: impactId, SdgId: id})
	}
	return links
}

func (s *ImpactService) Create(w http.ResponseWriter, r *http.Request) {
	var params impactRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.ProjectId == uuid.Nil {
		http.Error(w, "missing required field 'projectId'", http.StatusBadRequest)
		return
	}
	if err := params.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.requireProjectAccess(w, r, params.ProjectId, true) {
		return
	}

	impact := schema.Impact{
		Id:           uuid.New(),
		ProjectId:    params.ProjectId,
		SectionType:  params.SectionType,
		Title:        params.Title,
		Description:  params.Description,
		Score:        params.Score,
		Dimension:    params.Dimension,
		RelationType: params.RelationType,
		Sdgs:         sdgLinks(uuid.Nil, params.Sdgs),
	}
	for i := range impact.Sdgs {
		impact.Sdgs[i].ImpactId = impact.Id
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkProjectExists(txn, params.ProjectId); err != nil {
			return err
		}

		result := txn.Create(&impact)
		if result.Error != nil {
			slog.Error("sql error creating new impact entry", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error creating impact: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("impact created", "impact_id", impact.Id, "project_id", impact.ProjectId)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, impactInfo(impact))
}

func (s *ImpactService) Get(w http.ResponseWriter, r *http.Request) {
	impactId, err := utils.URLParamUUID(r, "impact_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	impact, err := schema.GetImpact(impactId, s.db, true)
	if err != nil {
		if errors.Is(err, schema.ErrImpactNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !s.requireProjectAccess(w, r, impact.ProjectId, false) {
		return
	}

	utils.WriteJsonResponse(w, impactInfo(impact))
}

func (s *ImpactService) Update(w http.ResponseWriter, r *http.Request) {
	impactId, err := utils.URLParamUUID(r, "impact_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params impactRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}
	if err := params.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	impact, err := schema.GetImpact(impactId, s.db, false)
	if err != nil {
		if errors.Is(err, schema.ErrImpactNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Impacts cannot move between projects.
	if !s.requireProjectAccess(w, r, impact.ProjectId, true) {
		return
	}

	impact.SectionType = params.SectionType
	impact.Title = params.Title
	impact.Description = params.Description
	impact.Score = params.Score
	impact.Dimension = params.Dimension
	impact.RelationType = params.RelationType

	err = s.db.Transaction(func(txn *gorm.DB) error {
		result := txn.Save(&impact)
		if result.Error != nil {
			slog.Error("sql error updating impact", "impact_id", impactId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		result = txn.Where("impact_id = ?", impactId).Delete(&schema.ImpactSdg{})
		if result.Error != nil {
			slog.Error("sql error clearing impact sdg links", "impact_id", impactId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		links := sdgLinks(impactId, params.Sdgs)
		if len(links) > 0 {
			result = txn.Create(&links)
			if result.Error != nil {
				slog.Error("sql error creating impact sdg links", "impact_id", impactId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		impact.Sdgs = links
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating impact: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, impactInfo(impact))
}

func (s *ImpactService) Delete(w http.ResponseWriter, r *http.Request) {
	impactId, err := utils.URLParamUUID(r, "impact_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	impact, err := schema.GetImpact(impactId, s.db, false)
	if err != nil {
		if errors.Is(err, schema.ErrImpactNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !s.requireProjectAccess(w, r, impact.ProjectId, true) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := consistency.DeleteImpact(txn, impactId); err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting impact: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("impact deleted", "impact_id", impactId)

	utils.WriteNoContent(w)
}
