package models

import (
	"time"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

// Voucher is a discount definition evaluated at request creation.
// Validation order and discount math live in the fare service.
type Voucher struct {
	Code      string
	Active    bool
	StartDate time.Time
	EndDate   time.Time

	// UsageLimit of nil means unlimited.
	UsageLimit *int
	UsedCount  int

	// MinOrderValue of nil means no floor.
	MinOrderValue *float64

	DiscountType  types.DiscountType
	DiscountValue float64

	// MaxDiscountAmount caps PERCENTAGE discounts when set.
	MaxDiscountAmount *float64
}
