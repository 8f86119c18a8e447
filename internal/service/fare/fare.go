package fare

import (
	"math"
	"time"

	"github.com/marketfleet/dispatch/config"
	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
)

// Calculator computes distance-based fares and validates voucher
// discounts. It runs once at request creation; amounts are immutable
// afterwards.
type Calculator struct {
	tariffs map[types.RequestKind]config.TariffConfig
}

func NewCalculator(cfg config.TariffsConfig) *Calculator {
	return &Calculator{
		tariffs: map[types.RequestKind]config.TariffConfig{
			types.KindFoodOrder: cfg.FoodOrder,
			types.KindRide:      cfg.Ride,
		},
	}
}

// ComputeFare returns the shipping fee / fare: a flat base fee covering
// the first FreeKm, then PerKmRate for every kilometer beyond it.
func (c *Calculator) ComputeFare(distanceKm float64, kind types.RequestKind) float64 {
	t := c.tariffs[kind]

	if distanceKm <= t.FreeKm {
		return t.BaseFee
	}
	return t.BaseFee + (distanceKm-t.FreeKm)*t.PerKmRate
}

// ApplyDiscount validates the voucher against the order and returns the
// discount amount. Checks run in a fixed order and short-circuit on the
// first failure; the returned error names the specific rejection reason.
func (c *Calculator) ApplyDiscount(subtotal float64, v *models.Voucher, now time.Time) (float64, error) {
	if v == nil {
		return 0, types.ErrVoucherNotFound
	}
	if !v.Active {
		return 0, types.ErrVoucherInactive
	}
	if now.Before(v.StartDate) || !now.Before(v.EndDate) {
		return 0, types.ErrVoucherOutOfDate
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return 0, types.ErrVoucherExhausted
	}
	if v.MinOrderValue != nil && subtotal < *v.MinOrderValue {
		return 0, types.ErrVoucherBelowMinOrder
	}

	var discount float64
	switch v.DiscountType {
	case types.DiscountPercentage:
		discount = subtotal * v.DiscountValue / 100
		if v.MaxDiscountAmount != nil && discount > *v.MaxDiscountAmount {
			discount = *v.MaxDiscountAmount
		}
	case types.DiscountFixedAmount:
		discount = math.Min(v.DiscountValue, subtotal)
	}

	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

// Payable applies the discount to the fare, floored at zero.
func Payable(fareAmount, discountAmount float64) float64 {
	payable := fareAmount - discountAmount
	if payable < 0 {
		return 0
	}
	return payable
}
