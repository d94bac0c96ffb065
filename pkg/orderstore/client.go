/**
 * @description
 * This package provides a client for the external order/license store: an
 * Apps-Script-style HTTP API authenticated with a shared-secret token. It
 * encapsulates the three operations the watcher needs — reading the open
 * pending orders, writing an issued license, and marking a pending order as
 * completed — handling request construction, response parsing, and the
 * store's `{ok: bool}` envelope convention.
 *
 * @dependencies
 * - bytes, context, encoding/json, net/http, net/url, time: Standard Go libraries.
 * - github.com/shopspring/decimal: Expected-amount parsing on pending rows.
 */
package orderstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paywatch/watcher-service/internal/domain"
)

// Client is a client for the order store API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new order store client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// pendingResponse is the store's response to a pending-orders query.
type pendingResponse struct {
	OK   bool         `json:"ok"`
	Rows []pendingRow `json:"rows"`
}

type pendingRow struct {
	TaxID  string     `json:"tax_id"`
	Email  string     `json:"email"`
	Plan   string     `json:"plan"`
	Amount flexAmount `json:"amount"`
}

// ackResponse is the store's generic write acknowledgement. OK is a pointer
// so a body without the field (older store deployments) is not mistaken for
// a rejection.
type ackResponse struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

// flexAmount decodes a JSON number, numeric string, empty string, or null
// into a decimal. Unparsable values decode to zero ("unset").
type flexAmount struct {
	decimal.Decimal
}

func (f *flexAmount) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		f.Decimal = decimal.Zero
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		trimmed = strings.TrimSpace(s)
	}
	if trimmed == "" {
		f.Decimal = decimal.Zero
		return nil
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		f.Decimal = decimal.Zero
		return nil
	}
	f.Decimal = value
	return nil
}

// completeRequest is the payload marking a pending order as completed.
type completeRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"`
	TaxID  string `json:"tax_id"`
	TxID   string `json:"txid"`
}

// issueRequest is the payload writing an issued license to the store.
type issueRequest struct {
	Token      string `json:"token"`
	Email      string `json:"email"`
	LicenseKey string `json:"license_key"`
	Plan       string `json:"plan"`
	ExpiresAt  string `json:"expires_at"`
	TxID       string `json:"txid"`
	Amount     string `json:"amount"`
	Asset      string `json:"asset"`
	Network    string `json:"network"`
	Status     string `json:"status"`
	Note       string `json:"note"`
}

// GetPending fetches the currently open purchase orders, keyed by their
// upper-cased reference code. A failure here is fatal for the current run:
// no issuance may proceed without a fresh view of open orders.
func (c *Client) GetPending(ctx context.Context) (map[string]domain.PendingOrder, error) {
	query := url.Values{}
	query.Set("pending", "1")
	query.Set("secret", c.Token)

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute pending request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pending request returned status %d", resp.StatusCode)
	}

	var envelope pendingResponse
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode pending response: %w", err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("order store rejected pending request")
	}

	pending := make(map[string]domain.PendingOrder, len(envelope.Rows))
	for _, row := range envelope.Rows {
		reference := strings.ToUpper(strings.TrimSpace(row.TaxID))
		if reference == "" {
			continue
		}
		pending[reference] = domain.PendingOrder{
			ReferenceCode:  reference,
			Email:          strings.TrimSpace(row.Email),
			Plan:           strings.TrimSpace(row.Plan),
			ExpectedAmount: row.Amount.Decimal,
		}
	}
	return pending, nil
}

// CompletePending marks one pending order as completed by the given
// transaction. The operation is idempotent from the caller's perspective:
// the orchestrator logs and continues if the order was already completed.
func (c *Client) CompletePending(ctx context.Context, referenceCode, txid string) error {
	payload := completeRequest{
		Token:  c.Token,
		Action: "complete",
		TaxID:  referenceCode,
		TxID:   txid,
	}
	return c.postJSON(ctx, "complete", payload)
}

// IssueLicense writes a freshly issued license to the store.
func (c *Client) IssueLicense(ctx context.Context, lic domain.License, amount decimal.Decimal) error {
	payload := issueRequest{
		Token:      c.Token,
		Email:      lic.Email,
		LicenseKey: lic.LicenseKey,
		Plan:       lic.Plan,
		ExpiresAt:  lic.ExpiresAtDate(),
		TxID:       lic.SourceTxID,
		Amount:     amount.String(),
		Asset:      "USDT",
		Network:    "TRON",
		Status:     "active",
		Note:       "autodetected_tx",
	}
	return c.postJSON(ctx, "issue_license", payload)
}

// postJSON is a generic helper to execute write requests against the store.
func (c *Client) postJSON(ctx context.Context, op string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=orderstore_client op=%s status=%d msg=\"non-2xx response\"", op, resp.StatusCode)
		return fmt.Errorf("%s request returned status %d", op, resp.StatusCode)
	}

	var ack ackResponse
	if err := json.Unmarshal(bodyBytes, &ack); err != nil {
		// Some store deployments answer writes with plain text; a 2xx status
		// is the success signal there.
		log.Printf("level=warn component=orderstore_client op=%s msg=\"unparsable acknowledgement body; trusting status\" err=%v", op, err)
		return nil
	}
	if ack.OK != nil && !*ack.OK {
		if ack.Error != "" {
			return fmt.Errorf("order store rejected %s request: %s", op, ack.Error)
		}
		return fmt.Errorf("order store rejected %s request", op)
	}
	return nil
}
