package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned on successful register or login.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Token  string    `json:"token"`
}

// TaskAcceptedResponse acknowledges an accepted asynchronous operation.
// The task ID feeds the status polling endpoint.
type TaskAcceptedResponse struct {
	TaskID uuid.UUID `json:"task_id"`
	Status string    `json:"status"`
}

// TaskStatusResponse is the polling view of a task result.
type TaskStatusResponse struct {
	TaskID      uuid.UUID       `json:"task_id"`
	State       string          `json:"state"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	RetryCount  int             `json:"retry_count"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// MonthlyReportRequest is the payload for POST /api/admin/reports/monthly.
// Zero values for month and year select the previous calendar month.
type MonthlyReportRequest struct {
	Month int `json:"month" validate:"gte=0,lte=12"`
	Year  int `json:"year"  validate:"gte=0"`
}

// SubmitScoreRequest is the payload for POST /api/quizzes/{id}/scores.
type SubmitScoreRequest struct {
	TotalScored int `json:"total_scored" validate:"gte=0"`
	MaxScore    int `json:"max_score"    validate:"required,gt=0"`
}
