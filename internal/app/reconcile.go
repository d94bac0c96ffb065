/**
 * @description
 * Reconciliation engine: the matching rules that decide whether one unseen
 * transfer corresponds to a pending purchase order and, if so, which plan it
 * pays for. The engine is pure over its inputs; all I/O lives in the run
 * orchestrator and the injected clients.
 */

package app

import (
	"fmt"
	"strings"

	"github.com/paywatch/watcher-service/internal/config"
	"github.com/paywatch/watcher-service/internal/domain"
)

// matchOutcome is the terminal state of evaluating one transfer in one run.
type matchOutcome int

const (
	outcomeMatched matchOutcome = iota
	// outcomeFilteredOut: not the watched token.
	outcomeFilteredOut
	// outcomeMissingMemo: no reference field, cannot be attributed to an order.
	outcomeMissingMemo
	// outcomeUnmatched: memo has no corresponding pending order, or no plan
	// tier matches the paid amount. Re-evaluated every future run.
	outcomeUnmatched
	// outcomeAmountMismatch: the order's expected amount disagrees with the
	// on-chain amount beyond tolerance. Permanent: the amount is immutable.
	outcomeAmountMismatch
)

// evaluate applies the matching rules to one transfer against the current
// pending-order view. On a match it returns the issuance request and removes
// the reference from the view, so a second transfer carrying the same memo
// within this run cannot consume the same order.
func (s *Service) evaluate(transfer domain.Transfer, pending map[string]domain.PendingOrder) (domain.IssuanceRequest, matchOutcome) {
	if !s.tokenMatches(transfer) {
		return domain.IssuanceRequest{}, outcomeFilteredOut
	}

	memo := strings.TrimSpace(transfer.Memo)
	if memo == "" {
		return domain.IssuanceRequest{}, outcomeMissingMemo
	}

	reference := strings.ToUpper(memo)
	order, ok := pending[reference]
	if !ok {
		return domain.IssuanceRequest{}, outcomeUnmatched
	}

	plan, resolved := s.plans.Resolve(transfer.Amount)
	if order.ExpectedAmount.IsPositive() {
		if !domain.WithinEpsilon(transfer.Amount, order.ExpectedAmount, s.plans.Epsilon) {
			return domain.IssuanceRequest{}, outcomeAmountMismatch
		}
		// The expected amount decides the plan; the paid amount only had to
		// agree with it.
		plan, resolved = s.plans.Resolve(order.ExpectedAmount)
	}
	if !resolved {
		return domain.IssuanceRequest{}, outcomeUnmatched
	}

	delete(pending, reference)

	return domain.IssuanceRequest{
		Email:         orderEmail(order, reference),
		Plan:          plan.Name,
		DurationDays:  plan.DurationDays,
		TxID:          transfer.TxID,
		Amount:        transfer.Amount,
		ReferenceCode: reference,
	}, outcomeMatched
}

// tokenMatches filters to the configured token identity: by contract id when
// one is configured, by symbol under the sentinel default.
func (s *Service) tokenMatches(transfer domain.Transfer) bool {
	if s.usdtContract != config.SymbolFilterSentinel {
		return strings.EqualFold(strings.TrimSpace(transfer.Contract), s.usdtContract)
	}
	return strings.EqualFold(transfer.TokenSymbol, "USDT")
}

// orderEmail falls back to a reference-derived placeholder when the order
// row carries no email, so the issued license is still attributable.
func orderEmail(order domain.PendingOrder, reference string) string {
	if order.Email != "" {
		return order.Email
	}
	return fmt.Sprintf("user+%s@example.com", strings.ToLower(reference))
}
