package ledger

import "time"

type AccountStatus string

const (
	StatusOpen   AccountStatus = "OPEN"
	StatusFrozen AccountStatus = "FROZEN"
	StatusClosed AccountStatus = "CLOSED"
)

// Account is the upstream ledger entity, read-only to this service.
type Account struct {
	ID         string        `json:"id"`
	CustomerID string        `json:"customerId"`
	CreatedAt  time.Time     `json:"createdAt"`
	Balance    int64         `json:"balance"`
	Status     AccountStatus `json:"status"`
}

// Transaction belongs to exactly one account. Only the most recent
// transaction per account matters to the dormancy analysis.
type Transaction struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
}
