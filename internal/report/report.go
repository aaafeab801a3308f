// Package report is the report-rendering collaborator: it turns a user's
// monthly quiz activity into a document the report tasks attach to mail.
// Report content fidelity is business logic; the task layer only needs
// bytes to attach.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
)

// Generator renders a performance report for one user and month.
type Generator interface {
	// Render returns the report document, or (nil, nil) when the user
	// has no activity for the month and no report should be sent.
	Render(ctx context.Context, user *domain.User, month, year int) ([]byte, error)
}

var reportTemplate = template.Must(template.New("monthly_report").Parse(`<html>
<body>
  <h2>Quiz Master Monthly Performance Report</h2>
  <p>Hello {{.FullName}},</p>
  <p>Your activity for {{.MonthName}} {{.Year}}:</p>
  <ul>
    <li>Quizzes attempted: {{.QuizCount}}</li>
    <li>Total score: {{.TotalScored}} / {{.TotalMaximum}}</li>
    <li>Best score: {{.BestScore}}</li>
    <li>Average: {{printf "%.1f" .Average}}%</li>
  </ul>
  <p>Thank you for using Quiz Master!</p>
</body>
</html>
`))

// HTMLGenerator renders reports as HTML from the score store's monthly
// aggregates.
type HTMLGenerator struct {
	scores store.ScoreStore
}

// NewHTMLGenerator creates a Generator over the score store.
func NewHTMLGenerator(scores store.ScoreStore) *HTMLGenerator {
	return &HTMLGenerator{scores: scores}
}

// Render builds the monthly report for the user. Users without activity
// yield no document.
func (g *HTMLGenerator) Render(ctx context.Context, user *domain.User, month, year int) ([]byte, error) {
	summary, err := g.scores.MonthlySummary(ctx, user.ID, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly summary: %w", err)
	}
	if summary.QuizCount == 0 {
		return nil, nil
	}

	data := struct {
		FullName     string
		MonthName    string
		Year         int
		QuizCount    int
		TotalScored  int
		TotalMaximum int
		BestScore    int
		Average      float64
	}{
		FullName:     user.FullName,
		MonthName:    time.Month(month).String(),
		Year:         year,
		QuizCount:    summary.QuizCount,
		TotalScored:  summary.TotalScored,
		TotalMaximum: summary.TotalMaximum,
		BestScore:    summary.BestScore,
		Average:      summary.Average(),
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

// PreviousMonth resolves the month/year a periodic report run should cover
// when no explicit month was requested: the calendar month before now.
func PreviousMonth(now time.Time) (month, year int) {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := firstOfMonth.AddDate(0, 0, -1)
	return int(last.Month()), last.Year()
}
