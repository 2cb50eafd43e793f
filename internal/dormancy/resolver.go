package dormancy

import (
	"context"
	"dormancy-monitor/internal/ledger"
	"dormancy-monitor/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// pacingBatchSize controls how often the resolver sleeps between account
// lookups. The delay applies every Nth account, not on every single one.
const pacingBatchSize = 100

// TransactionSource provides the single most-recent transaction for an
// account. Implemented by the ledger client.
type TransactionSource interface {
	LatestTransaction(ctx context.Context, accountID string) (*ledger.Transaction, error)
}

// ActivityResolver turns ledger accounts into AccountActivity records by
// looking up each account's most recent transaction. With lookups disabled
// (degraded mode, for providers without a transaction API) every account is
// treated as never active and classified on creation age alone.
type ActivityResolver struct {
	transactions  TransactionSource
	lookupEnabled bool
	pacing        time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func NewActivityResolver(transactions TransactionSource, lookupEnabled bool, pacing time.Duration, logger *slog.Logger) *ActivityResolver {
	if logger == nil {
		panic("activity resolver logger cannot be nil")
	}
	if lookupEnabled && transactions == nil {
		panic("activity resolver requires a transaction source when lookups are enabled")
	}
	return &ActivityResolver{
		transactions:  transactions,
		lookupEnabled: lookupEnabled,
		pacing:        pacing,
		logger:        logger.With(slog.String("component", "activityResolver")),
		now:           time.Now,
	}
}

// ResolveAll processes every account regardless of status, so the status
// tally downstream stays accurate. A single failing account is logged and
// skipped; a systemic upstream signal aborts the batch.
func (r *ActivityResolver) ResolveAll(ctx context.Context, accounts []ledger.Account) ([]AccountActivity, int, error) {
	r.logger.InfoContext(ctx, "Resolving account activity.",
		slog.Int("accounts", len(accounts)), slog.Bool("transaction_lookup", r.lookupEnabled))

	activities := make([]AccountActivity, 0, len(accounts))
	skipped := 0

	for i, account := range accounts {
		if i > 0 && i%pacingBatchSize == 0 && r.pacing > 0 {
			select {
			case <-ctx.Done():
				return nil, skipped, ctx.Err()
			case <-time.After(r.pacing):
			}
		}

		activity, err := r.Resolve(ctx, account)
		if err != nil {
			if apperrors.IsSystemic(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.logger.ErrorContext(ctx, "Systemic failure during activity resolution, aborting batch.",
					slog.String("accountID", account.ID), slog.Any("error", err))
				return nil, skipped, fmt.Errorf("activity resolution aborted at account %s: %w", account.ID, err)
			}
			r.logger.WarnContext(ctx, "Failed to resolve activity for account, skipping.",
				slog.String("accountID", account.ID), slog.Any("error", err))
			skipped++
			continue
		}
		activities = append(activities, activity)
	}

	r.logger.InfoContext(ctx, "Resolved account activity.",
		slog.Int("resolved", len(activities)), slog.Int("skipped", skipped))
	return activities, skipped, nil
}

// Resolve builds the activity record for one account. An account with no
// transactions at all is a normal outcome, not an error.
func (r *ActivityResolver) Resolve(ctx context.Context, account ledger.Account) (AccountActivity, error) {
	now := r.now()
	activity := AccountActivity{
		AccountID:         account.ID,
		CustomerID:        account.CustomerID,
		Balance:           account.Balance,
		Status:            account.Status,
		AccountCreated:    account.CreatedAt,
		DaysSinceCreation: CalendarDaysSince(now, account.CreatedAt),
	}

	if !r.lookupEnabled {
		return activity, nil
	}

	txn, err := r.transactions.LatestTransaction(ctx, account.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return activity, nil
		}
		return AccountActivity{}, err
	}

	last := txn.CreatedAt
	activity.HasActivity = true
	activity.LastActivity = &last
	activity.DaysSinceLastActivity = CalendarDaysSince(now, last)
	return activity, nil
}
