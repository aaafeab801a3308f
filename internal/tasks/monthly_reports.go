package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/domain"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/mail"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/report"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
)

// ReportSummary is the payload of a completed monthly_reports run.
type ReportSummary struct {
	Month   int `json:"month"`
	Year    int `json:"year"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// NewMonthlyReportsHandler returns the handler for monthly_reports: render
// and mail each active user their performance report for one month.
// Args: [month, year]; zero values mean the previous calendar month (the
// periodic beat entry passes zeros). Individual per-user failures are
// counted, never escalated to a task failure.
func NewMonthlyReportsHandler(deps Deps) task.Handler {
	logger := deps.Logger.With("task_name", TaskMonthlyReports)

	return func(ctx context.Context, inv *task.Invocation) task.Outcome {
		var month, year int
		if err := inv.Arg(0, &month); err != nil {
			return task.Failed(err)
		}
		if err := inv.Arg(1, &year); err != nil {
			return task.Failed(err)
		}
		if month == 0 || year == 0 {
			month, year = report.PreviousMonth(time.Now().UTC())
		}
		if month < 1 || month > 12 {
			return task.Failed(fmt.Errorf("invalid month %d", month))
		}
		log := logger.With("month", month, "year", year)

		users, err := deps.Users.ListActive(ctx)
		if err != nil {
			return task.Failed(fmt.Errorf("failed to list active users: %w", err))
		}
		if len(users) == 0 {
			log.Info("no active users to send reports to")
			return task.Done(ReportSummary{Month: month, Year: year})
		}

		monthName := time.Month(month).String()
		subject := fmt.Sprintf("Quiz Master Monthly Performance Report - %s %d", monthName, year)
		summary := ReportSummary{Month: month, Year: year}

		batches := batchUsers(users, deps.Config.MailBatchSize)
		for i, batch := range batches {
			for _, user := range batch {
				switch err := sendUserReport(ctx, deps, user, subject, monthName, month, year); {
				case err == errNoActivity:
					summary.Skipped++
				case err != nil:
					summary.Failed++
					log.Warn("failed to send monthly report",
						"user_id", user.ID,
						"error", err)
				default:
					summary.Sent++
				}
			}

			if i < len(batches)-1 {
				pause(deps.Config.MailBatchPause, ctx.Done())
			}
		}

		log.Info("monthly reports completed",
			"sent", summary.Sent,
			"failed", summary.Failed,
			"skipped", summary.Skipped)
		return task.Done(summary)
	}
}

// errNoActivity marks users with nothing to report for the month.
var errNoActivity = fmt.Errorf("no activity for month")

func sendUserReport(ctx context.Context, deps Deps, user *domain.User, subject, monthName string, month, year int) error {
	doc, err := deps.Reports.Render(ctx, user, month, year)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if doc == nil {
		return errNoActivity
	}

	body := fmt.Sprintf(
		"<html><body><h2>Your Monthly Performance Report</h2><p>Hello %s,</p><p>Please find attached your Quiz Master performance report for %s %d.</p></body></html>",
		user.FullName, monthName, year,
	)
	attachment := mail.Attachment{
		Filename:    fmt.Sprintf("performance_report_%s_%d.html", monthName, year),
		ContentType: "text/html",
		Data:        doc,
	}

	if err := deps.Mailer.Send(ctx, []string{user.Email}, subject, body, []mail.Attachment{attachment}); err != nil {
		return fmt.Errorf("failed to mail report: %w", err)
	}
	return nil
}

func batchUsers(users []*domain.User, size int) [][]*domain.User {
	if size <= 0 {
		size = 1
	}
	var batches [][]*domain.User
	for start := 0; start < len(users); start += size {
		end := start + size
		if end > len(users) {
			end = len(users)
		}
		batches = append(batches, users[start:end])
	}
	return batches
}
