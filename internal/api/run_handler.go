package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/orchestrator"
	"github.com/shaiso/Conductor/internal/repo"
)

// StartRun запускает runbook. Ответ 202: прогон выполняется асинхронно,
// клиент получает снимок начального состояния.
// POST /api/v1/runbooks/{id}/runs
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.runbookRepo.GetByID(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "runbook not found") {
		return
	}

	var req StartRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body")
			return
		}
	}

	snap, err := h.orch.Start(r.Context(), cfg, req.Variables, req.trigger())
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRunbook):
		BadRequest(w, err.Error())
		return
	case errors.Is(err, orchestrator.ErrStopped):
		Conflict(w, "orchestrator is shutting down")
		return
	case err != nil:
		InternalError(w, h.logger, err)
		return
	}

	Accepted(w, snap)
}

// GetRun возвращает состояние прогона: сначала ищет среди активных,
// затем в архиве завершённых.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	if snap, err := h.orch.GetStatus(runID); err == nil {
		Success(w, snap)
		return
	}

	record, err := h.runRepo.GetByID(r.Context(), runID)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, snapshotFromRecord(record))
}

// ListRuns возвращает архив прогонов с фильтрами по runbook и состоянию.
// GET /api/v1/runs?runbook_id=&state=&limit=&offset=
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{
		RunbookID: r.URL.Query().Get("runbook_id"),
	}

	if state := r.URL.Query().Get("state"); state != "" {
		// Состояния хранятся в нижнем регистре.
		filter.State = domain.RunState(strings.ToLower(state))
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	records, err := h.runRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunSummary, len(records))
	for i := range records {
		result[i] = summaryFromRecord(&records[i])
	}

	List(w, result, len(result))
}

// ListActiveRuns возвращает снимки всех выполняющихся прогонов.
// GET /api/v1/runs/active
func (h *Handler) ListActiveRuns(w http.ResponseWriter, r *http.Request) {
	snaps := h.orch.ActiveRuns()
	List(w, snaps, len(snaps))
}

// CancelRun запрашивает отмену прогона.
// POST /api/v1/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	h.runControl(w, r, h.orch.Cancel, "cancel")
}

// PauseRun приостанавливает выдачу следующих батчей прогона.
// POST /api/v1/runs/{id}/pause
func (h *Handler) PauseRun(w http.ResponseWriter, r *http.Request) {
	h.runControl(w, r, h.orch.Pause, "pause")
}

// ResumeRun возобновляет приостановленный прогон.
// POST /api/v1/runs/{id}/resume
func (h *Handler) ResumeRun(w http.ResponseWriter, r *http.Request) {
	h.runControl(w, r, h.orch.Resume, "resume")
}

// runControl — общая обёртка для cancel/pause/resume: парсит id,
// применяет операцию и возвращает свежий снимок прогона.
func (h *Handler) runControl(w http.ResponseWriter, r *http.Request, op func(uuid.UUID) error, name string) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	err = op(runID)
	switch {
	case errors.Is(err, orchestrator.ErrRunNotFound):
		NotFound(w, "run not found")
		return
	case errors.Is(err, orchestrator.ErrRunFinished),
		errors.Is(err, orchestrator.ErrRunNotPausable),
		errors.Is(err, orchestrator.ErrRunNotPaused):
		InvalidState(w, err.Error())
		return
	case err != nil:
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("run control applied", "run_id", runID, "op", name)

	snap, err := h.orch.GetStatus(runID)
	if err != nil {
		// Прогон успел завершиться между операцией и снимком.
		NoContent(w)
		return
	}

	Success(w, snap)
}
