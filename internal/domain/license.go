package domain

import "time"

// ExpiryDateLayout is how license expiry dates are serialized toward the
// order store: a plain calendar date, no time component.
const ExpiryDateLayout = "2006-01-02"

// License is the credential produced for one qualifying transfer. Stored
// externally via the issuance endpoint; the watcher keeps no local copy.
type License struct {
	LicenseKey string
	Email      string
	Plan       string
	ExpiresAt  time.Time
	SourceTxID string
}

// ExpiresAtDate returns the expiry serialized as a plain calendar date.
func (l License) ExpiresAtDate() string {
	return l.ExpiresAt.UTC().Format(ExpiryDateLayout)
}
