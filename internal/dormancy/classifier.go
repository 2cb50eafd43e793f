package dormancy

import (
	"dormancy-monitor/internal/ledger"
	"sort"
)

// Dormancy thresholds in calendar days. Boundaries are inclusive.
const (
	// CommunicationThresholdDays flags active accounts for customer
	// outreach after nine months without a transaction.
	CommunicationThresholdDays = 270
	// ClosureThresholdDays flags active accounts for closure after twelve
	// months without a transaction.
	ClosureThresholdDays = 365
	// NeverActiveClosureDays flags accounts that never saw a transaction.
	// There is no communication tier for never-active accounts.
	NeverActiveClosureDays = 120

	// Lower bounds of the half-open "upcoming" projection windows, used
	// for summaries rather than alerts.
	communicationSoonFloorDays      = 240
	closureSoonFloorDays            = 330
	neverActiveClosureSoonFloorDays = 100
)

// Classification holds the two disjoint alert sets plus the upcoming
// projections.
type Classification struct {
	CommunicationNeeded []AccountActivity
	ClosureNeeded       []AccountActivity
	CommunicationSoon   []AccountActivity
	ClosureSoon         []AccountActivity
}

// Classify applies the dormancy thresholds. Closed and Frozen accounts are
// never flagged, regardless of age or inactivity. At the 365-day boundary
// closure takes precedence over communication.
func Classify(activities []AccountActivity) Classification {
	var c Classification
	for _, activity := range activities {
		if activity.Status == ledger.StatusClosed || activity.Status == ledger.StatusFrozen {
			continue
		}

		if activity.HasActivity {
			switch {
			case activity.DaysSinceLastActivity >= ClosureThresholdDays:
				c.ClosureNeeded = append(c.ClosureNeeded, activity)
			case activity.DaysSinceLastActivity >= CommunicationThresholdDays:
				// An account already in the communication tier can at the
				// same time be approaching closure.
				c.CommunicationNeeded = append(c.CommunicationNeeded, activity)
				if activity.DaysSinceLastActivity >= closureSoonFloorDays {
					c.ClosureSoon = append(c.ClosureSoon, activity)
				}
			case activity.DaysSinceLastActivity >= communicationSoonFloorDays:
				c.CommunicationSoon = append(c.CommunicationSoon, activity)
			}
			continue
		}

		switch {
		case activity.DaysSinceCreation >= NeverActiveClosureDays:
			c.ClosureNeeded = append(c.ClosureNeeded, activity)
		case activity.DaysSinceCreation >= neverActiveClosureSoonFloorDays:
			c.ClosureSoon = append(c.ClosureSoon, activity)
		}
	}
	return c
}

// SortByBalanceDesc orders a flagged set with the largest balances first,
// the order reporting presents them in.
func SortByBalanceDesc(activities []AccountActivity) {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Balance > activities[j].Balance
	})
}
