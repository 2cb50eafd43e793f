package dormancy

import (
	"context"
	"dormancy-monitor/internal/ledger"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AccountSource provides the full paginated account listing. Implemented
// by the ledger client.
type AccountSource interface {
	FetchAllAccounts(ctx context.Context) ([]ledger.Account, error)
}

// Enricher attaches optional identity and employer metadata. It is total:
// it never fails and never changes which records exist.
type Enricher interface {
	Enrich(ctx context.Context, activities []AccountActivity) []AccountActivity
}

// AnalysisResult is what one dormancy analysis run produces. A run with
// zero flagged accounts is a success; the Message field disambiguates
// "nothing dormant" from other zero-count outcomes.
type AnalysisResult struct {
	RunID     string    `json:"runId"`
	StartedAt time.Time `json:"startedAt"`

	TotalAccounts int                          `json:"totalAccounts"`
	StatusCounts  map[ledger.AccountStatus]int `json:"statusCounts"`
	// ResolutionSkipped counts accounts dropped by per-item recoverable
	// errors during activity resolution.
	ResolutionSkipped int `json:"resolutionSkipped"`

	CommunicationNeeded []AccountActivity `json:"communicationNeeded"`
	ClosureNeeded       []AccountActivity `json:"closureNeeded"`
	CommunicationSoon   []AccountActivity `json:"communicationSoon"`
	ClosureSoon         []AccountActivity `json:"closureSoon"`

	Message string `json:"message"`
}

// Analyzer runs the dormancy pipeline end to end: fetch all accounts,
// resolve per-account activity, enrich best-effort, classify. Stages run
// sequentially with pacing at the I/O boundaries; there is no concurrent
// fan-out across accounts.
type Analyzer struct {
	accounts AccountSource
	resolver *ActivityResolver
	enricher Enricher
	logger   *slog.Logger
}

func NewAnalyzer(accounts AccountSource, resolver *ActivityResolver, enricher Enricher, logger *slog.Logger) *Analyzer {
	if accounts == nil || resolver == nil || logger == nil {
		panic("analyzer dependencies cannot be nil")
	}
	return &Analyzer{
		accounts: accounts,
		resolver: resolver,
		enricher: enricher,
		logger:   logger.With(slog.String("component", "dormancyAnalyzer")),
	}
}

// RunDormancyAnalysis performs one full analysis. Per-item failures are
// absorbed inside the stages; only systemic upstream failures surface as
// errors here.
func (a *Analyzer) RunDormancyAnalysis(ctx context.Context) (*AnalysisResult, error) {
	runID := uuid.NewString()
	logger := a.logger.With(slog.String("runID", runID))
	startedAt := time.Now()

	logger.InfoContext(ctx, "Starting dormancy analysis run.")

	accounts, err := a.accounts.FetchAllAccounts(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Account fetch failed, aborting run.", slog.Any("error", err))
		return nil, fmt.Errorf("dormancy analysis aborted: %w", err)
	}

	statusCounts := make(map[ledger.AccountStatus]int, 3)
	for _, account := range accounts {
		statusCounts[account.Status]++
	}

	activities, skipped, err := a.resolver.ResolveAll(ctx, accounts)
	if err != nil {
		logger.ErrorContext(ctx, "Activity resolution failed, aborting run.", slog.Any("error", err))
		return nil, fmt.Errorf("dormancy analysis aborted: %w", err)
	}

	if a.enricher != nil {
		activities = a.enricher.Enrich(ctx, activities)
	}

	classification := Classify(activities)
	SortByBalanceDesc(classification.CommunicationNeeded)
	SortByBalanceDesc(classification.ClosureNeeded)

	result := &AnalysisResult{
		RunID:               runID,
		StartedAt:           startedAt,
		TotalAccounts:       len(accounts),
		StatusCounts:        statusCounts,
		ResolutionSkipped:   skipped,
		CommunicationNeeded: classification.CommunicationNeeded,
		ClosureNeeded:       classification.ClosureNeeded,
		CommunicationSoon:   classification.CommunicationSoon,
		ClosureSoon:         classification.ClosureSoon,
	}
	result.Message = summaryMessage(result)

	logger.InfoContext(ctx, "Dormancy analysis run finished.",
		slog.Duration("duration", time.Since(startedAt)),
		slog.Int("total_accounts", result.TotalAccounts),
		slog.Int("communication_needed", len(result.CommunicationNeeded)),
		slog.Int("closure_needed", len(result.ClosureNeeded)),
		slog.Int("resolution_skipped", result.ResolutionSkipped),
	)
	return result, nil
}

func summaryMessage(result *AnalysisResult) string {
	if len(result.CommunicationNeeded) == 0 && len(result.ClosureNeeded) == 0 {
		return fmt.Sprintf("no dormant accounts found across %d accounts", result.TotalAccounts)
	}
	return fmt.Sprintf("%d accounts need communication, %d accounts need closure (of %d scanned)",
		len(result.CommunicationNeeded), len(result.ClosureNeeded), result.TotalAccounts)
}
