// operations.go — обработчики /api/auth/operations endpoints.
// Чтение журнала изменяющих операций (доступно только при подключённой БД).
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/authadmin/internal/api/errors"
	"github.com/bigkaa/authadmin/internal/domain/model"
)

// operationResponse — запись журнала в ответе API.
type operationResponse struct {
	ID             string     `json:"id"`
	Operation      string     `json:"operation"`
	UserID         string     `json:"user_id,omitempty"`
	Actor          string     `json:"actor,omitempty"`
	Status         string     `json:"status"`
	CompletedSteps []string   `json:"completed_steps"`
	FailedStep     string     `json:"failed_step,omitempty"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// operationListResponse — страница журнала.
type operationListResponse struct {
	Items   []operationResponse `json:"items"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
	HasMore bool                `json:"has_more"`
}

// ListOperations — GET /api/auth/operations?user_id=&limit=&offset=.
func (h *APIHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	limitParam, err := queryInt(r, "limit")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	offsetParam, err := queryInt(r, "offset")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	limit, offset := paginationDefaults(limitParam, offsetParam)

	entries, total, err := h.journal.List(r.Context(), model.OperationFilter{
		UserID: r.URL.Query().Get("user_id"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]operationResponse, len(entries))
	for i, e := range entries {
		items[i] = mapOperation(e)
	}

	writeJSON(w, http.StatusOK, operationListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// GetOperation — GET /api/auth/operations/{id}.
func (h *APIHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	entry, err := h.journal.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOperation(entry))
}

// mapOperation конвертирует запись журнала в ответ API.
func mapOperation(e *model.OperationLogEntry) operationResponse {
	resp := operationResponse{
		ID:             e.ID,
		Operation:      e.Operation,
		UserID:         e.UserID,
		Actor:          e.Actor,
		Status:         string(e.Status),
		CompletedSteps: e.CompletedSteps,
		FailedStep:     e.FailedStep,
		Error:          e.Error,
		StartedAt:      e.StartedAt,
	}
	if resp.CompletedSteps == nil {
		resp.CompletedSteps = []string{}
	}
	if !e.FinishedAt.IsZero() {
		finished := e.FinishedAt
		resp.FinishedAt = &finished
	}
	return resp
}
