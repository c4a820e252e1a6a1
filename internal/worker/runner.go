package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"example.com/finance-tracker/backend/internal/events"
	"example.com/finance-tracker/backend/internal/finance"
)

type UserLister interface {
	ListUsersWithActive(ctx context.Context) ([]string, error)
}

type Generator interface {
	Generate(ctx context.Context, userID string, year, month *int) (finance.GenerateResult, error)
}

// Summary содержит итог одного прохода по всем пользователям.
type Summary struct {
	Users          int `json:"users"`
	GeneratedCount int `json:"generated_count"`
	SkippedCount   int `json:"skipped_count"`
	FailedCount    int `json:"failed_count"`
	UserErrors     int `json:"user_errors"`
}

// Runner запускает генерацию регулярных расходов для всех пользователей с активными шаблонами.
type Runner struct {
	users     UserLister
	generator Generator
	publisher events.Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

func NewRunner(users UserLister, generator Generator, publisher events.Publisher, logger *slog.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Runner{users: users, generator: generator, publisher: publisher, logger: logger, timeout: timeout}
}

// RunOnce генерирует расходы за текущий месяц. Ошибка одного пользователя логируется и не прерывает проход.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	userIDs, err := r.users.ListUsersWithActive(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list users with recurring items: %w", err)
	}

	summary := Summary{Users: len(userIDs)}
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := r.generator.Generate(ctx, userID, nil, nil)
		if err != nil {
			summary.UserErrors++
			r.logger.ErrorContext(ctx, "recurring generation failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			continue
		}

		summary.GeneratedCount += result.GeneratedCount
		summary.SkippedCount += result.SkippedCount
		summary.FailedCount += len(result.Failed)

		if result.GeneratedCount == 0 {
			continue
		}

		msg := events.NewRecurringGenerated(userID, result.Month, result.GeneratedCount, result.SkippedCount, len(result.Failed))
		if err := r.publisher.Publish(ctx, msg); err != nil {
			r.logger.WarnContext(ctx, "publish recurring event failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	return summary, nil
}

// Run выполняет проход сразу и затем по тикеру, пока не отменен ctx.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	r.runAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runAndLog(ctx)
		}
	}
}

func (r *Runner) runAndLog(ctx context.Context) {
	started := time.Now()
	summary, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "recurring run failed", slog.String("error", err.Error()))
		return
	}

	r.logger.InfoContext(ctx, "recurring run complete",
		slog.Int("users", summary.Users),
		slog.Int("generated", summary.GeneratedCount),
		slog.Int("skipped", summary.SkippedCount),
		slog.Int("failed", summary.FailedCount),
		slog.Int("user_errors", summary.UserErrors),
		slog.Duration("took", time.Since(started)),
	)
}
