/**
 * @description
 * This file defines the core domain models for the watcher-service.
 * These structs represent the entities flowing through the reconciliation
 * pipeline: normalized on-chain transfers, issuance requests derived from
 * them, and the per-run summary counters.
 *
 * @notes
 * - Using one normalized Transfer type isolates provider-specific field-name
 *   churn inside pkg/tronscan; the reconciliation engine never sees raw
 *   provider shapes.
 * - Amounts use decimal.Decimal to avoid floating-point drift in payment
 *   comparisons; tolerance checks always go through PlanTable's epsilon.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is a single incoming token transfer, normalized from whichever
// upstream provider supplied it. Immutable once fetched.
type Transfer struct {
	TxID        string          `json:"txid"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Contract    string          `json:"contract"`
	TokenSymbol string          `json:"token_symbol"`
	Amount      decimal.Decimal `json:"amount"` // normalized by token precision
	Timestamp   time.Time       `json:"timestamp"`
	Memo        string          `json:"memo"` // free-text reference field, may be empty
}

// IssuanceRequest is the transient output of the reconciliation engine and
// the input to the license issuer.
type IssuanceRequest struct {
	Email         string
	Plan          string
	DurationDays  int
	TxID          string
	Amount        decimal.Decimal
	ReferenceCode string
}

// RunSummary accumulates per-run counters for logging and tests. Only Issued
// implies a ledger mutation; every other outcome leaves the transfer eligible
// for re-evaluation on a future run (amount mismatches stay permanently
// unmatchable because the on-chain amount cannot change).
type RunSummary struct {
	Fetched        int
	AlreadySeen    int
	FilteredOut    int
	MissingMemo    int
	Unmatched      int
	AmountMismatch int
	Issued         int
	IssuanceFailed int
}
