package ledger

import (
	"context"
	"dormancy-monitor/internal/config"
	"dormancy-monitor/internal/pkg/apperrors"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Client talks to the provider's ledger API. All requests share a single
// pacing limiter so sequential page and transaction fetches stay under the
// provider's rate limit. Pacing is not a retry mechanism: a failed request
// propagates to the caller.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	pageSize    int
	maxAccounts int
	pacer       *rate.Limiter
	logger      *slog.Logger
}

func NewClient(cfg config.LedgerConfig, logger *slog.Logger) *Client {
	if logger == nil {
		panic("ledger client logger cannot be nil")
	}
	pacing := cfg.PacingInterval
	if pacing <= 0 {
		pacing = 50 * time.Millisecond
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:     cfg.BaseURL,
		token:       cfg.APIToken,
		pageSize:    cfg.PageSize,
		maxAccounts: cfg.MaxAccounts,
		pacer:       rate.NewLimiter(rate.Every(pacing), 1),
		logger:      logger.With(slog.String("component", "ledgerClient")),
	}
}

type accountDTO struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	CreatedAt  time.Time `json:"createdAt"`
	Balance    string    `json:"balance"`
	Status     string    `json:"status"`
}

type transactionDTO struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
}

type accountPage struct {
	Items []accountDTO `json:"items"`
}

type transactionPage struct {
	Items []transactionDTO `json:"items"`
}

// FetchAllAccounts retrieves every account, page by page, ordered by
// creation time ascending. No status filter is applied: Closed and Frozen
// accounts are fetched too so the downstream status tally stays accurate.
// Fetching stops on a short page, or at the maxAccounts safety cap with a
// warning rather than a failure.
func (c *Client) FetchAllAccounts(ctx context.Context) ([]Account, error) {
	c.logger.InfoContext(ctx, "Fetching all accounts from ledger", slog.Int("page_size", c.pageSize))

	accounts := make([]Account, 0, c.pageSize)
	offset := 0
	for {
		page, err := c.fetchAccountPage(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch account page at offset %d: %w", offset, err)
		}

		for _, dto := range page {
			acct, convErr := dto.toAccount()
			if convErr != nil {
				c.logger.WarnContext(ctx, "Skipping malformed account record",
					slog.String("accountID", dto.ID), slog.Any("error", convErr))
				continue
			}
			accounts = append(accounts, acct)
		}

		if len(page) < c.pageSize {
			break
		}
		if c.maxAccounts > 0 && len(accounts) >= c.maxAccounts {
			c.logger.WarnContext(ctx, "Account fetch hit safety cap, truncating scan",
				slog.Int("cap", c.maxAccounts), slog.Int("fetched", len(accounts)))
			accounts = accounts[:c.maxAccounts]
			break
		}
		offset += c.pageSize
	}

	c.logger.InfoContext(ctx, "Fetched all accounts", slog.Int("count", len(accounts)))
	return accounts, nil
}

func (c *Client) fetchAccountPage(ctx context.Context, offset int) ([]accountDTO, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.pageSize))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("sort", "createdAt.asc")

	var page accountPage
	if err := c.get(ctx, "/v1/accounts", query, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// LatestTransaction returns the most recent transaction for an account.
// Accounts with no transactions at all are a normal outcome and surface as
// apperrors.ErrNotFound, never as a transport failure.
func (c *Client) LatestTransaction(ctx context.Context, accountID string) (*Transaction, error) {
	query := url.Values{}
	query.Set("limit", "1")
	query.Set("sort", "createdAt.desc")

	var page transactionPage
	err := c.get(ctx, "/v1/accounts/"+url.PathEscape(accountID)+"/transactions", query, &page)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, fmt.Errorf("no transactions for account %s: %w", accountID, apperrors.ErrNotFound)
	}

	dto := page.Items[0]
	return &Transaction{ID: dto.ID, AccountID: dto.AccountID, CreatedAt: dto.CreatedAt}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("pacing wait interrupted: %w", err)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewUpstreamError(resp.StatusCode, path, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (d accountDTO) toAccount() (Account, error) {
	amount, err := decimal.NewFromString(d.Balance)
	if err != nil {
		return Account{}, fmt.Errorf("%w: balance %q is not a decimal amount", apperrors.ErrInvalidArgument, d.Balance)
	}
	return Account{
		ID:         d.ID,
		CustomerID: d.CustomerID,
		CreatedAt:  d.CreatedAt,
		// The ledger reports balances as decimal strings; the core model
		// keeps integer minor units.
		Balance: amount.Shift(2).IntPart(),
		Status:  AccountStatus(d.Status),
	}, nil
}
