package handlers

import (
	"net/http"

	"github.com/xavierca1/prospect-crm/internal/entity"
	"github.com/xavierca1/prospect-crm/internal/usecase"
)

type DashboardHandler struct {
	repo ProspectService
}

func NewDashboardHandler(repo ProspectService) *DashboardHandler {
	return &DashboardHandler{repo: repo}
}

// Dashboard builds the view model over the cached list; refresh=true
// re-fetches first.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	prospects := h.repo.Prospects()
	if r.URL.Query().Get("refresh") == "true" {
		fresh, err := h.repo.List(r.Context())
		if err != nil {
			writeUsecaseError(w, err)
			return
		}
		prospects = fresh
	}

	writeJSON(w, http.StatusOK, usecase.BuildDashboard(prospects, r.URL.Query().Get("q")))
}

type StageResponse struct {
	Stage int    `json:"stage"`
	Name  string `json:"name"`
}

func (h *DashboardHandler) Stages(w http.ResponseWriter, r *http.Request) {
	stages := make([]StageResponse, 0, entity.LastStage)
	for stage := entity.FirstStage; stage <= entity.LastStage; stage++ {
		stages = append(stages, StageResponse{Stage: stage, Name: entity.StageNames[stage]})
	}
	writeJSON(w, http.StatusOK, stages)
}
