/**
 * @description
 * This file defines the core application Service for the watcher. The
 * Service owns the reconciliation-and-issuance pipeline: it consumes
 * normalized transfers from the source adapter, matches them against the
 * pending-order view, and drives license issuance and ledger persistence.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and the ledger contract.
 * - pkg/tronscan, pkg/orderstore (via the interfaces below): External
 *   collaborators, injected so tests can substitute fakes.
 */

package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paywatch/watcher-service/internal/domain"
	"github.com/paywatch/watcher-service/internal/store"
)

// TransferSource fetches recent incoming transfers for a wallet address.
type TransferSource interface {
	FetchTransfers(ctx context.Context, address string) ([]domain.Transfer, error)
}

// OrderStore is the external order/license store: the system of record for
// pending orders and issued licenses.
type OrderStore interface {
	GetPending(ctx context.Context) (map[string]domain.PendingOrder, error)
	CompletePending(ctx context.Context, referenceCode, txid string) error
	IssueLicense(ctx context.Context, lic domain.License, amount decimal.Decimal) error
}

// Service orchestrates one polling run: fetch, reconcile, issue, persist.
type Service struct {
	source TransferSource
	orders OrderStore
	ledger store.LedgerRepository

	plans         domain.PlanTable
	walletAddress string
	usdtContract  string

	// Injected for deterministic tests.
	now           func() time.Time
	newLicenseKey func(time.Time) string
}

// NewService creates the core application service with its dependencies.
func NewService(
	source TransferSource,
	orders OrderStore,
	ledger store.LedgerRepository,
	plans domain.PlanTable,
	walletAddress string,
	usdtContract string,
) *Service {
	return &Service{
		source:        source,
		orders:        orders,
		ledger:        ledger,
		plans:         plans,
		walletAddress: walletAddress,
		usdtContract:  usdtContract,
		now:           time.Now,
		newLicenseKey: NewLicenseKey,
	}
}
