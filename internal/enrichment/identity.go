package enrichment

import (
	"context"
	"dormancy-monitor/internal/pkg/apperrors"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// CustomerProfile is what the identity system knows about a customer.
type CustomerProfile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// CustomerDirectory resolves customer identity details. A customer the
// identity system does not know is apperrors.ErrNotFound.
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, customerID string) (*CustomerProfile, error)
}

// IdentityClient fetches customer profiles from the provider's customer
// endpoint. It carries a shorter request timeout than the ledger path so a
// slow identity service cannot stall the dormancy analysis materially.
type IdentityClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

var _ CustomerDirectory = (*IdentityClient)(nil)

func NewIdentityClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *IdentityClient {
	if logger == nil {
		panic("identity client logger cannot be nil")
	}
	return &IdentityClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
		logger:     logger.With(slog.String("component", "identityClient")),
	}
}

func (c *IdentityClient) GetCustomer(ctx context.Context, customerID string) (*CustomerProfile, error) {
	path := "/v1/customers/" + url.PathEscape(customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewUpstreamError(resp.StatusCode, path, string(body))
	}

	var profile CustomerProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode customer profile: %w", err)
	}
	return &profile, nil
}
