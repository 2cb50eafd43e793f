package alert

import (
	"context"
	"dormancy-monitor/internal/dormancy"
	"log/slog"
)

// LogDispatcher writes alerts to the structured log instead of a broker.
// Used when alert publishing is not configured.
type LogDispatcher struct {
	logger *slog.Logger
}

var _ Dispatcher = (*LogDispatcher)(nil)

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &LogDispatcher{logger: logger.With(slog.String("component", "logDispatcher"))}
}

func (d *LogDispatcher) DispatchAlerts(ctx context.Context, runID string, alerts []DormancyAlert) error {
	for _, a := range alerts {
		accountIDs := make([]string, 0, len(a.Accounts))
		for _, account := range a.Accounts {
			accountIDs = append(accountIDs, account.AccountID)
		}
		d.logger.InfoContext(ctx, "Dormancy alert",
			slog.String("runID", runID),
			slog.String("tag", string(a.Tag)),
			slog.String("reason", a.Reason),
			slog.Int("accounts", len(a.Accounts)),
			slog.Any("accountIDs", accountIDs),
		)
	}
	return nil
}

func (d *LogDispatcher) DispatchSummary(ctx context.Context, result *dormancy.AnalysisResult) error {
	d.logger.InfoContext(ctx, "Dormancy run summary",
		slog.String("runID", result.RunID),
		slog.String("message", result.Message),
		slog.Int("total_accounts", result.TotalAccounts),
		slog.Int("communication_needed", len(result.CommunicationNeeded)),
		slog.Int("closure_needed", len(result.ClosureNeeded)),
	)
	return nil
}
