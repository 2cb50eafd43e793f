package dormancy

import (
	"dormancy-monitor/internal/ledger"
	"time"
)

// Enrichment holds the optional identity and employer metadata resolved by
// the best-effort enrichment stage. Its absence never changes a
// classification outcome.
type Enrichment struct {
	CustomerName    string `json:"customerName,omitempty"`
	CustomerEmail   string `json:"customerEmail,omitempty"`
	CustomerAddress string `json:"customerAddress,omitempty"`
	CompanyName     string `json:"companyName,omitempty"`
	CompanyID       string `json:"companyId,omitempty"`
}

// AccountActivity is the central record of the dormancy pipeline: one per
// account per analysis run, constructed by the activity resolver and
// immutable afterward except for the optional Enrichment attachment. It is
// never persisted.
type AccountActivity struct {
	AccountID      string               `json:"accountId"`
	CustomerID     string               `json:"customerId"`
	Balance        int64                `json:"balance"`
	Status         ledger.AccountStatus `json:"status"`
	AccountCreated time.Time            `json:"accountCreated"`

	HasActivity bool `json:"hasActivity"`
	// LastActivity is set iff HasActivity is true.
	LastActivity *time.Time `json:"lastActivity,omitempty"`

	DaysSinceCreation     int `json:"daysSinceCreation"`
	DaysSinceLastActivity int `json:"daysSinceLastActivity"`

	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// CalendarDaysSince returns the whole-day difference between two instants,
// comparing calendar dates in UTC rather than dividing elapsed seconds. A
// transaction at 23:59 yesterday is one day ago regardless of the current
// time of day. Never negative.
func CalendarDaysSince(now, t time.Time) int {
	now = now.UTC()
	t = t.UTC()
	a := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
