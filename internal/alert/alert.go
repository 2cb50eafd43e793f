package alert

import (
	"context"
	"dormancy-monitor/internal/dormancy"
	"fmt"
)

type Tag string

const (
	TagCommunicationNeeded Tag = "communication_needed"
	TagClosureNeeded       Tag = "closure_needed"
)

// DormancyAlert groups the accounts flagged for one alert tier with a
// human-readable reason. Rendering, CSV export and large-batch
// summarization are the dispatcher's concern, past this boundary.
type DormancyAlert struct {
	Tag      Tag                        `json:"tag"`
	Reason   string                     `json:"reason"`
	Accounts []dormancy.AccountActivity `json:"accounts"`
}

// Dispatcher delivers classified alert sets to the team channel. Delivery
// failures must never fail the analysis run.
type Dispatcher interface {
	DispatchAlerts(ctx context.Context, runID string, alerts []DormancyAlert) error
	DispatchSummary(ctx context.Context, result *dormancy.AnalysisResult) error
}

// BuildAlerts turns an analysis result into dispatchable alerts, omitting
// empty tiers.
func BuildAlerts(result *dormancy.AnalysisResult) []DormancyAlert {
	var alerts []DormancyAlert
	if len(result.CommunicationNeeded) > 0 {
		alerts = append(alerts, DormancyAlert{
			Tag: TagCommunicationNeeded,
			Reason: fmt.Sprintf("no transaction activity for %d days or more; customer outreach needed before closure",
				dormancy.CommunicationThresholdDays),
			Accounts: result.CommunicationNeeded,
		})
	}
	if len(result.ClosureNeeded) > 0 {
		alerts = append(alerts, DormancyAlert{
			Tag: TagClosureNeeded,
			Reason: fmt.Sprintf("no transaction activity for %d days or more, or never active %d days after account creation",
				dormancy.ClosureThresholdDays, dormancy.NeverActiveClosureDays),
			Accounts: result.ClosureNeeded,
		})
	}
	return alerts
}
