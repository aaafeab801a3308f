package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/api/middleware"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/api/shared"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/tasks"
)

// TaskHandler exposes the asynchronous task surface: submitting work to
// the queue and polling its status. Submission returns 202 with a task ID
// immediately; the work itself runs on the worker pool.
type TaskHandler struct {
	taskClient *task.Client
	quizStore  store.QuizStore
	validator  *validator.Validate
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskClient *task.Client, quizStore store.QuizStore) *TaskHandler {
	return &TaskHandler{
		taskClient: taskClient,
		quizStore:  quizStore,
		validator:  validator.New(),
	}
}

// GetStatus handles GET /api/tasks/{id}. Unknown and expired task IDs are
// indistinguishable: both return 404.
func (h *TaskHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	res, err := h.taskClient.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, task.ErrResultNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to fetch task status", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskStatusResponse{
		TaskID:      res.TaskID,
		State:       string(res.State),
		Result:      res.Payload,
		Error:       res.Error,
		RetryCount:  res.RetryCount,
		CompletedAt: res.CompletedAt,
	})
}

// NotifyQuiz handles POST /api/quizzes/{id}/notify. It verifies the quiz
// exists, then queues the bulk notification task.
func (h *TaskHandler) NotifyQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid quiz ID")
		return
	}

	if _, err := h.quizStore.GetByID(r.Context(), quizID); err != nil {
		if errors.Is(err, store.ErrQuizNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Quiz not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load quiz", err)
		return
	}

	taskID, err := h.taskClient.Enqueue(r.Context(), tasks.TaskQuizNotification, quizID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			"Failed to queue notification", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{
		TaskID: taskID,
		Status: "queued",
	})
}

// RunMonthlyReports handles POST /api/admin/reports/monthly, the on-demand
// twin of the scheduled beat. An empty body means the previous month.
func (h *TaskHandler) RunMonthlyReports(w http.ResponseWriter, r *http.Request) {
	var req MonthlyReportRequest
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	taskID, err := h.taskClient.Enqueue(r.Context(), tasks.TaskMonthlyReports, req.Month, req.Year)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			"Failed to queue report run", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{
		TaskID: taskID,
		Status: "queued",
	})
}

// SubmitScore handles POST /api/quizzes/{id}/scores. The attempt is
// written asynchronously by the quiz_results task.
func (h *TaskHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	quizID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid quiz ID")
		return
	}

	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SubmitScoreRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.TotalScored > req.MaxScore {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Score cannot exceed maximum")
		return
	}

	taskID, err := h.taskClient.Enqueue(r.Context(), tasks.TaskQuizResults,
		userID, quizID, req.TotalScored, req.MaxScore)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			"Failed to queue score submission", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{
		TaskID: taskID,
		Status: "queued",
	})
}
