package orderstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywatch/watcher-service/internal/domain"
)

func TestGetPendingParsesAndUppercasesReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("pending"))
		assert.Equal(t, "sekret", r.URL.Query().Get("secret"))
		_, _ = w.Write([]byte(`{
			"ok": true,
			"rows": [
				{"tax_id": "tax123", "email": "a@b.com", "plan": "Monthly", "amount": 15},
				{"tax_id": "TAX456", "email": "c@d.com", "plan": "", "amount": "40.00"},
				{"tax_id": "TAX789", "email": "e@f.com", "amount": null},
				{"tax_id": "  ", "email": "dropped@row.com"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sekret", 5*time.Second)
	pending, err := client.GetPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 3, "blank reference rows must be dropped")

	first, ok := pending["TAX123"]
	require.True(t, ok, "reference keys must be upper-cased")
	assert.Equal(t, "a@b.com", first.Email)
	assert.Equal(t, "Monthly", first.Plan)
	assert.True(t, first.ExpectedAmount.Equal(decimal.RequireFromString("15")))

	second := pending["TAX456"]
	assert.True(t, second.ExpectedAmount.Equal(decimal.RequireFromString("40.00")), "string amounts must parse")

	third := pending["TAX789"]
	assert.True(t, third.ExpectedAmount.IsZero(), "null amount means unset")
}

func TestGetPendingRejectedEnvelopeIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sekret", 5*time.Second)
	_, err := client.GetPending(context.Background())
	require.Error(t, err)
}

func TestGetPendingNon2xxIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sekret", 5*time.Second)
	_, err := client.GetPending(context.Background())
	require.Error(t, err, "a stale pending view must fail the run, not silently issue")
}

func TestCompletePendingPayload(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sekret", 5*time.Second)
	err := client.CompletePending(context.Background(), "TAX123", "tx1")
	require.NoError(t, err)

	assert.Equal(t, "sekret", got["token"])
	assert.Equal(t, "complete", got["action"])
	assert.Equal(t, "TAX123", got["tax_id"])
	assert.Equal(t, "tx1", got["txid"])
}

func TestIssueLicensePayload(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sekret", 5*time.Second)
	lic := domain.License{
		LicenseKey: "PRO-20260115-4F2A9C",
		Email:      "a@b.com",
		Plan:       "Monthly",
		ExpiresAt:  time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		SourceTxID: "tx1",
	}
	err := client.IssueLicense(context.Background(), lic, decimal.RequireFromString("15.00"))
	require.NoError(t, err)

	assert.Equal(t, "sekret", got["token"])
	assert.Equal(t, "a@b.com", got["email"])
	assert.Equal(t, "PRO-20260115-4F2A9C", got["license_key"])
	assert.Equal(t, "Monthly", got["plan"])
	assert.Equal(t, "2026-02-14", got["expires_at"])
	assert.Equal(t, "tx1", got["txid"])
	assert.Equal(t, "15", got["amount"])
	assert.Equal(t, "USDT", got["asset"])
	assert.Equal(t, "TRON", got["network"])
	assert.Equal(t, "active", got["status"])
	assert.Equal(t, "autodetected_tx", got["note"])
}

func TestIssueLicenseExplicitRejectionIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "error": "duplicate license"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sekret", 5*time.Second)
	err := client.IssueLicense(context.Background(), domain.License{}, decimal.Zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate license")
}

func TestWriteAckWithoutEnvelopeTrustsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("done"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sekret", 5*time.Second)
	err := client.CompletePending(context.Background(), "TAX123", "tx1")
	require.NoError(t, err, "plain-text 2xx acknowledgements are accepted")
}

func TestCompletePendingNon2xxIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sekret", 5*time.Second)
	err := client.CompletePending(context.Background(), "TAX123", "tx1")
	require.Error(t, err)
}
