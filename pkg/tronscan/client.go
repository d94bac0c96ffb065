/**
 * @description
 * This package provides a client for fetching incoming TRC-20 token transfers
 * for a watched wallet address. It queries a primary Tronscan-compatible
 * provider and falls back to a secondary one, normalizing either provider's
 * response into the common domain.Transfer shape so the reconciliation engine
 * never sees provider-specific field names.
 *
 * @dependencies
 * - net/http, encoding/json: Standard libraries for the provider API calls.
 * - github.com/shopspring/decimal: Exact normalization of raw token
 *   quantities by token precision.
 */
package tronscan

import (
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

const (
	transfersPath    = "/api/token_trc20/transfers"
	defaultPageLimit = 50
	defaultDecimals  = 6
)

// Provider is one upstream transfer source. All configured providers expose
// the same logical API shape; only the host differs.
type Provider struct {
	Name    string
	BaseURL string
}

// Client fetches and normalizes token transfers, trying each provider in
// order until one yields data.
type Client struct {
	Providers  []Provider
	HTTPClient *http.Client
}

// NewClient creates a transfer-source client with a primary and fallback
// provider. Empty URLs are skipped, so a single-provider setup works too.
func NewClient(primaryURL, fallbackURL string, timeout time.Duration) *Client {
	var providers []Provider
	if strings.TrimSpace(primaryURL) != "" {
		providers = append(providers, Provider{Name: "primary", BaseURL: strings.TrimRight(primaryURL, "/")})
	}
	if strings.TrimSpace(fallbackURL) != "" {
		providers = append(providers, Provider{Name: "fallback", BaseURL: strings.TrimRight(fallbackURL, "/")})
	}
	return &Client{
		Providers: providers,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// transfersResponse is the provider's response envelope.
type transfersResponse struct {
	TokenTransfers []rawTransfer `json:"token_transfers"`
}

// rawTransfer is one transfer record as the providers serialize it. Numeric
// fields arrive as either JSON numbers or strings depending on provider and
// record age, hence the flexString type.
type rawTransfer struct {
	TransactionID   string     `json:"transaction_id"`
	Hash            string     `json:"hash"`
	ToAddress       string     `json:"to_address"`
	FromAddress     string     `json:"from_address"`
	ContractAddress string     `json:"contract_address"`
	TokenInfo       *tokenInfo `json:"token_info"`
	Symbol          string     `json:"symbol"`
	Quant           flexString `json:"quant"`
	BlockTS         int64      `json:"block_ts"`
	Data            string     `json:"data"`
	Memo            string     `json:"memo"`
}

type tokenInfo struct {
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// flexString decodes a JSON string, number, or null into a plain string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(trimmed)
	return nil
}

// FetchTransfers returns recent incoming transfers for the address,
// normalized into domain.Transfer. Provider failures trigger fallback; if
// every provider fails or returns nothing, the result is an empty slice and
// a nil error ("nothing new this run" is not a fatal condition).
func (c *Client) FetchTransfers(ctx context.Context, address string) ([]domain.Transfer, error) {
	for _, provider := range c.Providers {
		transfers, err := c.fetchFromProvider(ctx, provider, address)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("level=warn component=tronscan_client provider=%s msg=\"fetch failed; trying next provider\" err=%v", provider.Name, err)
			continue
		}
		if len(transfers) == 0 {
			log.Printf("level=info component=tronscan_client provider=%s msg=\"no transfers returned\"", provider.Name)
			continue
		}
		return transfers, nil
	}
	return nil, nil
}

// fetchFromProvider queries one provider and normalizes its records.
func (c *Client) fetchFromProvider(ctx context.Context, provider Provider, address string) ([]domain.Transfer, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", defaultPageLimit))
	query.Set("toAddress", address)
	endpoint := provider.BaseURL + transfersPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfers request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute transfers request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transfers response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transfers request returned status %d", resp.StatusCode)
	}

	var envelope transfersResponse
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode transfers response: %w", err)
	}

	transfers := make([]domain.Transfer, 0, len(envelope.TokenTransfers))
	for _, raw := range envelope.TokenTransfers {
		transfer, ok := normalize(raw)
		if !ok {
			continue
		}
		transfers = append(transfers, transfer)
	}
	return transfers, nil
}

// normalize maps one raw provider record into the common Transfer shape.
// Records missing a transaction id or destination address are dropped.
func normalize(raw rawTransfer) (domain.Transfer, bool) {
	txid := strings.TrimSpace(raw.TransactionID)
	if txid == "" {
		txid = strings.TrimSpace(raw.Hash)
	}
	to := strings.TrimSpace(raw.ToAddress)
	if txid == "" || to == "" {
		return domain.Transfer{}, false
	}

	symbol := raw.Symbol
	decimals := int32(defaultDecimals)
	if raw.TokenInfo != nil {
		if raw.TokenInfo.Symbol != "" {
			symbol = raw.TokenInfo.Symbol
		}
		if raw.TokenInfo.Decimals > 0 {
			decimals = raw.TokenInfo.Decimals
		}
	}

	quant, err := decimal.NewFromString(strings.TrimSpace(string(raw.Quant)))
	if err != nil {
		quant = decimal.Zero
	}

	memo := strings.TrimSpace(raw.Data)
	if memo == "" {
		memo = strings.TrimSpace(raw.Memo)
	}

	return domain.Transfer{
		TxID:        txid,
		From:        strings.TrimSpace(raw.FromAddress),
		To:          to,
		Contract:    strings.TrimSpace(raw.ContractAddress),
		TokenSymbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Amount:      quant.Shift(-decimals),
		Timestamp:   time.UnixMilli(raw.BlockTS).UTC(),
		Memo:        memo,
	}, true
}
