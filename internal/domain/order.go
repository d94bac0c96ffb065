package domain

import "github.com/shopspring/decimal"

// PendingOrder is one open purchase order from the external order store.
// The store owns these rows; the watcher only reads them and marks one as
// completed after a successful issuance. ReferenceCode is the upper-cased
// payment reference the buyer is asked to put in the transfer memo.
type PendingOrder struct {
	ReferenceCode  string
	Email          string
	Plan           string
	ExpectedAmount decimal.Decimal // zero means "unset"
}
