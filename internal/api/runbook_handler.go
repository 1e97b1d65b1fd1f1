package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/scheduler"
)

// ListRunbooks возвращает список runbook'ов.
// GET /api/v1/runbooks
func (h *Handler) ListRunbooks(w http.ResponseWriter, r *http.Request) {
	runbooks, err := h.runbookRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunbookSummary, len(runbooks))
	for i := range runbooks {
		result[i] = h.summaryFromConfig(&runbooks[i])
	}

	List(w, result, len(result))
}

// CreateRunbook регистрирует новый runbook.
// POST /api/v1/runbooks
func (h *Handler) CreateRunbook(w http.ResponseWriter, r *http.Request) {
	var cfg domain.RunbookConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if cfg.ID == "" {
		BadRequest(w, "runbook id is required")
		return
	}

	// Конфигурация проверяется при регистрации, а не при запуске:
	// оператор узнаёт о цикле или битой зависимости сразу.
	if err := engine.Validate(&cfg); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if err := scheduler.ValidateSchedule(cfg.Schedule); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.runbookRepo.Create(r.Context(), &cfg); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("runbook created", "runbook_id", cfg.ID, "tasks", len(cfg.Tasks))
	Created(w, h.summaryFromConfig(&cfg))
}

// GetRunbook возвращает полную конфигурацию runbook.
// GET /api/v1/runbooks/{id}
func (h *Handler) GetRunbook(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.runbookRepo.GetByID(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "runbook not found") {
		return
	}

	Success(w, cfg)
}

// UpdateRunbook перезаписывает конфигурацию runbook.
// PUT /api/v1/runbooks/{id}
func (h *Handler) UpdateRunbook(w http.ResponseWriter, r *http.Request) {
	var cfg domain.RunbookConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	cfg.ID = r.PathValue("id")

	if err := engine.Validate(&cfg); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if err := scheduler.ValidateSchedule(cfg.Schedule); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.runbookRepo.Update(r.Context(), &cfg); HandleRepoError(w, h.logger, err, "runbook not found") {
		return
	}

	h.logger.Info("runbook updated", "runbook_id", cfg.ID)
	Success(w, h.summaryFromConfig(&cfg))
}

// DeleteRunbook удаляет runbook.
// DELETE /api/v1/runbooks/{id}
func (h *Handler) DeleteRunbook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.runbookRepo.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "runbook not found") {
		return
	}

	h.logger.Info("runbook deleted", "runbook_id", id)
	NoContent(w)
}
