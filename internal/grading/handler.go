package grading

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"mockexam/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type gradingService interface {
	Score(ctx context.Context, req ScoreRequest) (*ScoreRecord, error)
	GetResult(ctx context.Context, id int64) (*ScoreRecord, error)
	ListResults(ctx context.Context, limit, offset int) ([]ScoreSummary, error)
	ExportResultXLSX(ctx context.Context, id int64) ([]byte, error)
}

type Handler struct {
	svc gradingService
}

func NewHandler(svc gradingService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.AttemptRef = strings.TrimSpace(req.AttemptRef)
	if req.AttemptRef == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "attempt_ref is required")
		return
	}
	if req.AnswerKeyID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "answer_key_id is required")
		return
	}

	rec, err := h.svc.Score(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, rec)
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid result id")
		return
	}

	rec, err := h.svc.GetResult(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, rec)
}

func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	limit, offset := 100, 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			offset = n
		}
	}

	items, err := h.svc.ListResults(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) ExportResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid result id")
		return
	}

	b, err := h.svc.ExportResultXLSX(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="score-result-`+strconv.FormatInt(id, 10)+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrAnswerKeyNotFound), errors.Is(err, ErrResultNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidScheme):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
