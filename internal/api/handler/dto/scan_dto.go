package dto

import (
	"dormancy-monitor/internal/dormancy"
	"time"
)

type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type FlaggedAccount struct {
	AccountID             string `json:"accountId"`
	CustomerID            string `json:"customerId"`
	Balance               int64  `json:"balance"`
	DaysSinceCreation     int    `json:"daysSinceCreation"`
	DaysSinceLastActivity int    `json:"daysSinceLastActivity"`
	HasActivity           bool   `json:"hasActivity"`
	CustomerName          string `json:"customerName,omitempty"`
	CompanyName           string `json:"companyName,omitempty"`
}

type ScanResultResponse struct {
	RunID               string           `json:"runId"`
	StartedAt           time.Time        `json:"startedAt"`
	Message             string           `json:"message"`
	TotalAccounts       int              `json:"totalAccounts"`
	StatusCounts        map[string]int   `json:"statusCounts"`
	ResolutionSkipped   int              `json:"resolutionSkipped,omitempty"`
	CommunicationNeeded []FlaggedAccount `json:"communicationNeeded"`
	ClosureNeeded       []FlaggedAccount `json:"closureNeeded"`
	CommunicationSoon   int              `json:"communicationSoonCount"`
	ClosureSoon         int              `json:"closureSoonCount"`
}

func NewScanResultResponse(result *dormancy.AnalysisResult) ScanResultResponse {
	statusCounts := make(map[string]int, len(result.StatusCounts))
	for status, count := range result.StatusCounts {
		statusCounts[string(status)] = count
	}

	return ScanResultResponse{
		RunID:               result.RunID,
		StartedAt:           result.StartedAt,
		Message:             result.Message,
		TotalAccounts:       result.TotalAccounts,
		StatusCounts:        statusCounts,
		ResolutionSkipped:   result.ResolutionSkipped,
		CommunicationNeeded: toFlaggedAccounts(result.CommunicationNeeded),
		ClosureNeeded:       toFlaggedAccounts(result.ClosureNeeded),
		CommunicationSoon:   len(result.CommunicationSoon),
		ClosureSoon:         len(result.ClosureSoon),
	}
}

func toFlaggedAccounts(activities []dormancy.AccountActivity) []FlaggedAccount {
	accounts := make([]FlaggedAccount, 0, len(activities))
	for _, activity := range activities {
		account := FlaggedAccount{
			AccountID:             activity.AccountID,
			CustomerID:            activity.CustomerID,
			Balance:               activity.Balance,
			DaysSinceCreation:     activity.DaysSinceCreation,
			DaysSinceLastActivity: activity.DaysSinceLastActivity,
			HasActivity:           activity.HasActivity,
		}
		if activity.Enrichment != nil {
			account.CustomerName = activity.Enrichment.CustomerName
			account.CompanyName = activity.Enrichment.CompanyName
		}
		accounts = append(accounts, account)
	}
	return accounts
}
