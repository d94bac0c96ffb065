/**
 * @description
 * License issuer: turns an issuance request into a credential and the
 * corresponding writes to the external order/license store.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paywatch/watcher-service/internal/domain"
)

const licenseKeyPrefix = "PRO"

// NewLicenseKey generates a globally unique license key: a UTC date stamp
// plus a random suffix, e.g. PRO-20260115-4F2A9C. Uniqueness comes from the
// uuid-derived suffix; the date stamp is for operator legibility.
func NewLicenseKey(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", licenseKeyPrefix, now.UTC().Format("20060102"), suffix)
}

// issue creates the license for a matched transfer and records it in the
// external store. On an issuance failure the error propagates and the
// transfer's txid is withheld from the ledger, keeping it eligible for retry
// next run. A completion failure after a successful issuance is logged and
// swallowed: the license already exists, so retrying the whole transfer
// would double-issue.
func (s *Service) issue(ctx context.Context, req domain.IssuanceRequest) (domain.License, error) {
	issuedAt := s.now().UTC()
	lic := domain.License{
		LicenseKey: s.newLicenseKey(issuedAt),
		Email:      req.Email,
		Plan:       req.Plan,
		ExpiresAt:  issuedAt.AddDate(0, 0, req.DurationDays),
		SourceTxID: req.TxID,
	}

	if err := s.orders.IssueLicense(ctx, lic, req.Amount); err != nil {
		return domain.License{}, fmt.Errorf("failed to write license for txid %s: %w", req.TxID, err)
	}

	if err := s.orders.CompletePending(ctx, req.ReferenceCode, req.TxID); err != nil {
		log.Printf("level=warn component=service flow=issuance msg=\"complete-pending failed after successful issuance; order may already be completed\" reference=%s txid=%s err=%v",
			req.ReferenceCode, req.TxID, err)
	}

	return lic, nil
}
