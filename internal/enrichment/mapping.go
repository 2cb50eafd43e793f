package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// CompanyRecord is one entry of the employer mapping dataset.
type CompanyRecord struct {
	CustomerID  string `json:"customerId"`
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
}

// EmployerDirectory is the static employer mapping dataset, fetched over
// HTTP at most once per process lifetime. A failed load falls back to an
// empty mapping: lookups then miss, and enrichment degrades without
// affecting classification. Once populated the map is read-only and safe
// to share.
type EmployerDirectory struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger

	once       sync.Once
	byCustomer map[string]CompanyRecord
}

func NewEmployerDirectory(url string, timeout time.Duration, logger *slog.Logger) *EmployerDirectory {
	if logger == nil {
		panic("employer directory logger cannot be nil")
	}
	return &EmployerDirectory{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "employerDirectory")),
	}
}

// Lookup resolves a customer's employer by direct customer-id match. A
// miss is an absence, not an error.
func (d *EmployerDirectory) Lookup(ctx context.Context, customerID string) (CompanyRecord, bool) {
	d.once.Do(func() { d.load(ctx) })

	record, ok := d.byCustomer[customerID]
	return record, ok
}

func (d *EmployerDirectory) load(ctx context.Context) {
	d.byCustomer = map[string]CompanyRecord{}

	records, err := d.fetch(ctx)
	if err != nil {
		d.logger.WarnContext(ctx, "Failed to load employer mapping dataset, continuing with empty mapping.",
			slog.String("url", d.url), slog.Any("error", err))
		return
	}

	for _, record := range records {
		if record.CustomerID == "" {
			continue
		}
		d.byCustomer[record.CustomerID] = record
	}
	d.logger.InfoContext(ctx, "Loaded employer mapping dataset.", slog.Int("entries", len(d.byCustomer)))
}

func (d *EmployerDirectory) fetch(ctx context.Context) ([]CompanyRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build mapping request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapping request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mapping source returned %d: %s", resp.StatusCode, string(body))
	}

	var records []CompanyRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode mapping dataset: %w", err)
	}
	return records, nil
}
