package batch

import (
	"context"
	"dormancy-monitor/internal/alert"
	"dormancy-monitor/internal/dormancy"
	"dormancy-monitor/internal/infrastructure/monitoring"
	"dormancy-monitor/internal/ledger"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned when a scan is requested while another one
// is still running. A run is a single sequential flow; overlapping runs
// would double the load on the provider API.
var ErrRunInProgress = errors.New("a dormancy scan is already in progress")

// AnalysisRunner runs one full dormancy analysis. Implemented by
// dormancy.Analyzer.
type AnalysisRunner interface {
	RunDormancyAnalysis(ctx context.Context) (*dormancy.AnalysisResult, error)
}

// DormancyScanJob is the scheduled entry point: it gates on the configured
// scan days, runs the analysis, records metrics and hands the flagged sets
// to the alert dispatcher. Dispatch failures are logged, never returned.
type DormancyScanJob struct {
	analyzer   AnalysisRunner
	dispatcher alert.Dispatcher
	scanDays   map[time.Weekday]bool
	logger     *slog.Logger
	now        func() time.Time
	running    atomic.Bool
}

func NewDormancyScanJob(analyzer AnalysisRunner, dispatcher alert.Dispatcher, scanDays []string, logger *slog.Logger) *DormancyScanJob {
	if analyzer == nil || dispatcher == nil || logger == nil {
		panic("DormancyScanJob dependencies cannot be nil")
	}
	return &DormancyScanJob{
		analyzer:   analyzer,
		dispatcher: dispatcher,
		scanDays:   parseScanDays(scanDays, logger),
		logger:     logger.With("job", "DormancyScan"),
		now:        time.Now,
	}
}

func parseScanDays(names []string, logger *slog.Logger) map[time.Weekday]bool {
	byName := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}

	days := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		day, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			logger.Warn("Ignoring unknown scan day in configuration", "day", name)
			continue
		}
		days[day] = true
	}
	return days
}

// Run executes one scan. A run on a non-scan day is a success with zero
// counts; the result message is the only way to tell it apart from a run
// that found nothing dormant.
func (j *DormancyScanJob) Run(ctx context.Context) (*dormancy.AnalysisResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer j.running.Store(false)

	startTime := j.now()
	j.logger.InfoContext(ctx, "Starting dormancy scan.")

	if len(j.scanDays) > 0 && !j.scanDays[startTime.Weekday()] {
		j.logger.InfoContext(ctx, "Not a scheduled scan day, skipping analysis.",
			slog.String("weekday", startTime.Weekday().String()))
		monitoring.RecordRun("skipped", time.Since(startTime))
		return &dormancy.AnalysisResult{
			RunID:        uuid.NewString(),
			StartedAt:    startTime,
			StatusCounts: map[ledger.AccountStatus]int{},
			Message:      fmt.Sprintf("not a scheduled scan day (%s)", startTime.Weekday()),
		}, nil
	}

	result, err := j.analyzer.RunDormancyAnalysis(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Dormancy scan aborted.", slog.Any("error", err))
		monitoring.RecordRun("failure", time.Since(startTime))
		return nil, fmt.Errorf("dormancy scan failed: %w", err)
	}

	monitoring.RecordRun("success", time.Since(startTime))
	monitoring.RecordScanResult(result.TotalAccounts, len(result.CommunicationNeeded), len(result.ClosureNeeded))

	j.dispatch(ctx, result)

	j.logger.InfoContext(ctx, "Dormancy scan finished.",
		slog.Duration("duration", time.Since(startTime)),
		slog.String("runID", result.RunID),
		slog.Int("total_accounts", result.TotalAccounts),
		slog.Int("communication_needed", len(result.CommunicationNeeded)),
		slog.Int("closure_needed", len(result.ClosureNeeded)),
		slog.Int("resolution_skipped", result.ResolutionSkipped),
	)
	return result, nil
}

func (j *DormancyScanJob) dispatch(ctx context.Context, result *dormancy.AnalysisResult) {
	alerts := alert.BuildAlerts(result)
	if len(alerts) > 0 {
		if err := j.dispatcher.DispatchAlerts(ctx, result.RunID, alerts); err != nil {
			j.logger.ErrorContext(ctx, "Failed to dispatch dormancy alerts.", slog.Any("error", err))
		}
	}
	if err := j.dispatcher.DispatchSummary(ctx, result); err != nil {
		j.logger.ErrorContext(ctx, "Failed to dispatch run summary.", slog.Any("error", err))
	}
}
