/**
 * @description
 * Run orchestrator: one strictly sequential pass over the pipeline. Fetch
 * the pending-order view (fail-closed), load the ledger, fetch transfers,
 * reconcile and issue newest-first, then persist the ledger only if at least
 * one new issuance succeeded.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/paywatch/watcher-service/internal/domain"
)

// Run executes one polling pass. The returned error is fatal for the run
// (pending-store fetch or ledger load failure); every per-transfer failure
// is absorbed into the summary so one bad transfer never blocks the rest.
func (s *Service) Run(ctx context.Context) (domain.RunSummary, error) {
	summary := domain.RunSummary{}

	pending, err := s.orders.GetPending(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch pending orders: %w", err)
	}

	seen, err := s.ledger.Load()
	if err != nil {
		// Proceeding without the ledger could double-issue, so an unreadable
		// ledger aborts the run the same way a pending-store failure does.
		return summary, fmt.Errorf("failed to load processed-transaction ledger: %w", err)
	}

	transfers, err := s.source.FetchTransfers(ctx, s.walletAddress)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch transfers: %w", err)
	}
	summary.Fetched = len(transfers)
	if len(transfers) == 0 {
		log.Printf("level=info component=service flow=run msg=\"no transfers found (or providers offline)\"")
		return summary, nil
	}

	// Newest first, so when one order could be paid by several transfers the
	// most recent payment wins deterministically.
	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].Timestamp.After(transfers[j].Timestamp)
	})

	for _, transfer := range transfers {
		if _, done := seen[transfer.TxID]; done {
			summary.AlreadySeen++
			continue
		}

		req, outcome := s.evaluate(transfer, pending)
		switch outcome {
		case outcomeFilteredOut:
			summary.FilteredOut++
			continue
		case outcomeMissingMemo:
			summary.MissingMemo++
			continue
		case outcomeUnmatched:
			summary.Unmatched++
			continue
		case outcomeAmountMismatch:
			summary.AmountMismatch++
			log.Printf("level=warn component=service flow=run msg=\"amount mismatch beyond tolerance\" txid=%s amount=%s memo=%q", transfer.TxID, transfer.Amount, transfer.Memo)
			continue
		}

		lic, issueErr := s.issue(ctx, req)
		if issueErr != nil {
			summary.IssuanceFailed++
			log.Printf("level=warn component=service flow=run msg=\"issuance failed; transfer stays eligible for retry\" txid=%s reference=%s err=%v", transfer.TxID, req.ReferenceCode, issueErr)
			continue
		}

		seen[transfer.TxID] = struct{}{}
		summary.Issued++
		log.Printf("level=info component=service flow=run msg=\"license issued\" reference=%s plan=%s txid=%s license_key=%s expires_at=%s",
			req.ReferenceCode, lic.Plan, lic.SourceTxID, lic.LicenseKey, lic.ExpiresAtDate())
	}

	if summary.Issued > 0 {
		if persistErr := s.ledger.Persist(seen); persistErr != nil {
			// Best effort: already-issued licenses are not rolled back. The
			// affected txids may be re-evaluated next run; the order-store
			// completion state then bounds the damage.
			log.Printf("level=error component=service flow=run msg=\"ledger persist failed\" err=%v", persistErr)
		}
	}

	return summary, nil
}
