package services

import (
	"fmt"
	"log/slog"
	"net/http"
	"sustainboard/board/schema"
	"sustainboard/utils"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// SdgService serves the fixed UN Sustainable Development Goal catalog.
type SdgService struct {
	db        *gorm.DB
	authChain chi.Middlewares
}

func (s *SdgService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.authChain...)

	r.Get("/", s.List)

	return r
}

type SdgInfo struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

func (s *SdgService) List(w http.ResponseWriter, r *http.Request) {
	var sdgs []schema.Sdg
	result := s.db.Order("id asc").Find(&sdgs)
	if result.Error != nil {
		slog.Error("sql error listing sdgs", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing sdgs: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]SdgInfo, 0, len(sdgs))
	for _, sdg := range sdgs {
		infos = append(infos, SdgInfo{Id: sdg.Id, Name: sdg.Name})
	}

	utils.WriteJsonResponse(w, infos)
}
