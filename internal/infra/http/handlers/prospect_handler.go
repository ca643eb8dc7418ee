package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xavierca1/prospect-crm/internal/entity"
	"github.com/xavierca1/prospect-crm/internal/infra/http/middleware"
	"github.com/xavierca1/prospect-crm/internal/usecase"
)

const maxBodyBytes = 1 << 20

// ProspectService is the repository surface the API needs.
// *usecase.ProspectRepository satisfies it.
type ProspectService interface {
	List(ctx context.Context) ([]entity.Prospect, error)
	Create(ctx context.Context, actor entity.Actor, input usecase.CreateProspectInput) (*entity.Prospect, error)
	Update(ctx context.Context, actor entity.Actor, id string, u entity.ProspectUpdate) (*entity.Prospect, error)
	Delete(ctx context.Context, actor entity.Actor, id string) error
	Activities(ctx context.Context, prospectID string) []entity.ProspectActivity
	Files(ctx context.Context, prospectID string) []entity.ProspectFile
	Prospects() []entity.Prospect
	Get(id string) (entity.Prospect, bool)
}

type ProspectHandler struct {
	repo ProspectService
	now  func() time.Time
}

func NewProspectHandler(repo ProspectService) *ProspectHandler {
	return &ProspectHandler{repo: repo, now: time.Now}
}

// List re-fetches from storage unless refresh=false asks for the cache.
func (h *ProspectHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "false" {
		writeJSON(w, http.StatusOK, h.repo.Prospects())
		return
	}
	prospects, err := h.repo.List(r.Context())
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prospects)
}

// Create accepts a full input, or an empty body for a placeholder record.
func (h *ProspectHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
		return
	}

	var input usecase.CreateProspectInput
	if len(bytes.TrimSpace(raw)) == 0 {
		input = usecase.PlaceholderProspect(actor, h.now())
	} else if err := decodeStrict(raw, &input); err != nil {
		writeError(w, http.StatusBadRequest, usecase.CodeValidation, "invalid JSON: "+err.Error())
		return
	}

	created, err := h.repo.Create(r.Context(), actor, input)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get serves from the cache, reloading once on a miss.
func (h *ProspectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := prospectID(w, r)
	if !ok {
		return
	}

	p, found := h.repo.Get(id)
	if !found {
		if _, err := h.repo.List(r.Context()); err != nil {
			writeUsecaseError(w, err)
			return
		}
		p, found = h.repo.Get(id)
	}
	if !found {
		writeError(w, http.StatusNotFound, usecase.CodeNotFound, "prospect not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProspectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := prospectID(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
		return
	}
	var u entity.ProspectUpdate
	if err := decodeStrict(raw, &u); err != nil {
		writeError(w, http.StatusBadRequest, usecase.CodeValidation, "invalid JSON: "+err.Error())
		return
	}

	updated, err := h.repo.Update(r.Context(), middleware.ActorFrom(r.Context()), id, u)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ProspectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := prospectID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		writeUsecaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProspectHandler) Activities(w http.ResponseWriter, r *http.Request) {
	id, ok := prospectID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.repo.Activities(r.Context(), id))
}

func (h *ProspectHandler) Files(w http.ResponseWriter, r *http.Request) {
	id, ok := prospectID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.repo.Files(r.Context(), id))
}

func prospectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, usecase.CodeValidation, "invalid prospect id")
		return "", false
	}
	return id, true
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
