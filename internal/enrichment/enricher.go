package enrichment

import (
	"context"
	"dormancy-monitor/internal/dormancy"
	"dormancy-monitor/internal/infrastructure/monitoring"
	"dormancy-monitor/internal/pkg/apperrors"
	"errors"
	"log/slog"
	"time"
)

// EmployerSource is the mapping-backed employer lookup. Implemented by
// EmployerDirectory.
type EmployerSource interface {
	Lookup(ctx context.Context, customerID string) (CompanyRecord, bool)
}

// IdentityEnricher attaches customer and employer metadata to activity
// records, best-effort. It is total: it never returns an error and never
// changes which records exist. A per-run failure budget acts as a circuit
// breaker so a broken identity service cannot drag out the run; a stage
// deadline bounds it in time. Either trip leaves remaining records
// unenriched and the pipeline unaffected.
type IdentityEnricher struct {
	customers     CustomerDirectory
	employers     EmployerSource
	failureBudget int
	stageTimeout  time.Duration
	logger        *slog.Logger
}

var _ dormancy.Enricher = (*IdentityEnricher)(nil)

func NewIdentityEnricher(customers CustomerDirectory, employers EmployerSource, failureBudget int, stageTimeout time.Duration, logger *slog.Logger) *IdentityEnricher {
	if logger == nil {
		panic("identity enricher logger cannot be nil")
	}
	if failureBudget <= 0 {
		failureBudget = 25
	}
	return &IdentityEnricher{
		customers:     customers,
		employers:     employers,
		failureBudget: failureBudget,
		stageTimeout:  stageTimeout,
		logger:        logger.With(slog.String("component", "identityEnricher")),
	}
}

// Enrich resolves identity details and employer labels for each record.
// Not-found lookups are benign and leave the record unenriched; transport,
// permission and rate-limit failures count against the failure budget.
// The circuit-breaker counter is local to one invocation.
func (e *IdentityEnricher) Enrich(ctx context.Context, activities []dormancy.AccountActivity) []dormancy.AccountActivity {
	stageCtx := ctx
	cancel := func() {}
	if e.stageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, e.stageTimeout)
	}
	defer cancel()

	failures := 0
	enriched := 0
	for i := range activities {
		if failures >= e.failureBudget {
			e.logger.WarnContext(ctx, "Enrichment failure budget exhausted, disabling enrichment for remaining accounts.",
				slog.Int("budget", e.failureBudget), slog.Int("remaining", len(activities)-i))
			break
		}
		if stageCtx.Err() != nil {
			e.logger.WarnContext(ctx, "Enrichment stage deadline exceeded, continuing with unenriched data.",
				slog.Int("remaining", len(activities)-i))
			break
		}

		result, err := e.enrichOne(stageCtx, activities[i].CustomerID)
		if err != nil {
			failures++
			monitoring.RecordEnrichmentFailure()
			e.logger.WarnContext(ctx, "Identity lookup failed for customer.",
				slog.String("customerID", activities[i].CustomerID),
				slog.Int("failures", failures), slog.Any("error", err))
			continue
		}
		if result != nil {
			activities[i].Enrichment = result
			enriched++
		}
	}

	e.logger.InfoContext(ctx, "Enrichment stage finished.",
		slog.Int("accounts", len(activities)), slog.Int("enriched", enriched), slog.Int("failures", failures))
	return activities
}

// enrichOne returns nil without error when nothing is known about the
// customer.
func (e *IdentityEnricher) enrichOne(ctx context.Context, customerID string) (*dormancy.Enrichment, error) {
	var result dormancy.Enrichment
	resolved := false

	if e.customers != nil {
		profile, err := e.customers.GetCustomer(ctx, customerID)
		switch {
		case err == nil:
			result.CustomerName = profile.Name
			result.CustomerEmail = profile.Email
			result.CustomerAddress = profile.Address
			resolved = true
		case errors.Is(err, apperrors.ErrNotFound):
			// Unknown customer, acceptable.
		default:
			return nil, err
		}
	}

	if e.employers != nil {
		if record, ok := e.employers.Lookup(ctx, customerID); ok {
			result.CompanyName = record.CompanyName
			result.CompanyID = record.CompanyID
			resolved = true
		}
	}

	if !resolved {
		return nil, nil
	}
	return &result, nil
}
