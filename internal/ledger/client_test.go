package ledger_test

import (
	"context"
	"dormancy-monitor/internal/config"
	"dormancy-monitor/internal/ledger"
	"dormancy-monitor/internal/pkg/apperrors"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler, pageSize, maxAccounts int) (*ledger.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := ledger.NewClient(config.LedgerConfig{
		BaseURL:        server.URL,
		APIToken:       "test-token",
		PageSize:       pageSize,
		MaxAccounts:    maxAccounts,
		PacingInterval: time.Microsecond,
		RequestTimeout: 5 * time.Second,
	}, testLogger())
	return client, server
}

func accountJSON(i int) map[string]any {
	return map[string]any{
		"id":         fmt.Sprintf("acc-%03d", i),
		"customerId": fmt.Sprintf("cus-%03d", i),
		"createdAt":  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"balance":    "150.25",
		"status":     "OPEN",
	}
}

func pagedAccountsHandler(t *testing.T, total int, requests *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests++
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		require.Equal(t, "createdAt.asc", r.URL.Query().Get("sort"))

		items := make([]map[string]any, 0, limit)
		for i := offset; i < offset+limit && i < total; i++ {
			items = append(items, accountJSON(i))
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
}

func TestFetchAllAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("Short last page terminates without extra request", func(t *testing.T) {
		requests := 0
		client, _ := newTestClient(t, pagedAccountsHandler(t, 7, &requests), 3, 0)

		accounts, err := client.FetchAllAccounts(ctx)

		require.NoError(t, err)
		assert.Len(t, accounts, 7)
		// Pages of 3: 3 + 3 + 1. The short third page ends the loop.
		assert.Equal(t, 3, requests)
	})

	t.Run("Full last page triggers one more empty request", func(t *testing.T) {
		requests := 0
		client, _ := newTestClient(t, pagedAccountsHandler(t, 6, &requests), 3, 0)

		accounts, err := client.FetchAllAccounts(ctx)

		require.NoError(t, err)
		assert.Len(t, accounts, 6)
		assert.Equal(t, 3, requests)
	})

	t.Run("Safety cap stops the fetch without failing", func(t *testing.T) {
		requests := 0
		client, _ := newTestClient(t, pagedAccountsHandler(t, 100, &requests), 10, 25)

		accounts, err := client.FetchAllAccounts(ctx)

		require.NoError(t, err)
		assert.Len(t, accounts, 25)
	})

	t.Run("Converts balance to minor units", func(t *testing.T) {
		requests := 0
		client, _ := newTestClient(t, pagedAccountsHandler(t, 1, &requests), 10, 0)

		accounts, err := client.FetchAllAccounts(ctx)

		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, int64(15025), accounts[0].Balance)
		assert.Equal(t, ledger.StatusOpen, accounts[0].Status)
	})

	t.Run("Auth failure propagates as unauthorized", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"bad token"}`, http.StatusUnauthorized)
		})
		client, _ := newTestClient(t, handler, 10, 0)

		_, err := client.FetchAllAccounts(ctx)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.True(t, apperrors.IsSystemic(err))
	})

	t.Run("Server error aborts the fetch", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		client, _ := newTestClient(t, handler, 10, 0)

		_, err := client.FetchAllAccounts(ctx)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUpstream)
	})

	t.Run("Malformed balance is skipped, not fatal", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bad := accountJSON(0)
			bad["balance"] = "not-a-number"
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{bad, accountJSON(1)},
			})
		})
		client, _ := newTestClient(t, handler, 10, 0)

		accounts, err := client.FetchAllAccounts(ctx)

		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, "acc-001", accounts[0].ID)
	})
}

func TestLatestTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns most recent transaction", func(t *testing.T) {
		created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/accounts/acc-001/transactions", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			assert.Equal(t, "createdAt.desc", r.URL.Query().Get("sort"))
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{
					"id":        "txn-9",
					"accountId": "acc-001",
					"createdAt": created.Format(time.RFC3339),
				}},
			})
		})
		client, _ := newTestClient(t, handler, 10, 0)

		txn, err := client.LatestTransaction(ctx, "acc-001")

		require.NoError(t, err)
		assert.Equal(t, "txn-9", txn.ID)
		assert.True(t, txn.CreatedAt.Equal(created))
	})

	t.Run("Empty list is not found", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{}})
		})
		client, _ := newTestClient(t, handler, 10, 0)

		txn, err := client.LatestTransaction(ctx, "acc-001")

		assert.Nil(t, txn)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.False(t, apperrors.IsSystemic(err))
	})

	t.Run("HTTP 404 is not found", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such account", http.StatusNotFound)
		})
		client, _ := newTestClient(t, handler, 10, 0)

		_, err := client.LatestTransaction(ctx, "acc-001")

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Rate limit response is systemic", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		})
		client, _ := newTestClient(t, handler, 10, 0)

		_, err := client.LatestTransaction(ctx, "acc-001")

		assert.ErrorIs(t, err, apperrors.ErrRateLimited)
		assert.True(t, apperrors.IsSystemic(err))
	})
}
