/**
 * @description
 * This file defines the `LedgerRepository` interface, the contract for the
 * processed-transaction ledger: the persistent set of transaction ids that
 * have already been handled to completion. By defining an interface, the
 * reconciliation logic stays decoupled from the file-backed implementation
 * and tests can substitute an in-memory ledger.
 *
 * @notes
 * - The ledger is append-only from the pipeline's point of view: ids are
 *   added after successful issuance and never removed. It is the single
 *   idempotency gate that prevents duplicate licenses across runs.
 */

package store

// LedgerRepository defines the set of methods for the processed-transaction
// ledger.
type LedgerRepository interface {
	// Load returns the set of already-processed transaction ids. A missing
	// backing file yields an empty set, not an error.
	Load() (map[string]struct{}, error)

	// Persist durably replaces the stored set. It must be atomic with
	// respect to process crashes: a crash mid-write may lose this run's
	// additions but never corrupts or truncates the previous set.
	Persist(seen map[string]struct{}) error
}
