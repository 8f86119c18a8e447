package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("requested item not found")
	ErrRequestNotFound = errors.New("delivery request not found")
	ErrCourierNotFound = errors.New("courier not found")

	// ErrAlreadyTaken means the caller lost the claim race. Expected under
	// concurrency; callers re-query candidates instead of retrying.
	ErrAlreadyTaken = errors.New("request already taken by another courier")

	// ErrNotEligible covers offline couriers, vehicle mismatches and
	// out-of-radius claims.
	ErrNotEligible = errors.New("courier not eligible for this request")

	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStaleUpdate signals an optimistic concurrency conflict: the record
	// changed between read and conditional write.
	ErrStaleUpdate = errors.New("record was modified concurrently")

	ErrCourierOffline     = errors.New("courier is offline")
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	ErrSettlementNotFound = errors.New("settlement record not found")
)

// Voucher rejections all wrap ErrVoucherRejected so callers can match the
// family with errors.Is while still surfacing the specific sub-reason.
var (
	ErrVoucherRejected = errors.New("voucher rejected")

	ErrVoucherNotFound      = fmt.Errorf("%w: not found", ErrVoucherRejected)
	ErrVoucherInactive      = fmt.Errorf("%w: not active", ErrVoucherRejected)
	ErrVoucherOutOfDate     = fmt.Errorf("%w: outside validity window", ErrVoucherRejected)
	ErrVoucherExhausted     = fmt.Errorf("%w: usage limit reached", ErrVoucherRejected)
	ErrVoucherBelowMinOrder = fmt.Errorf("%w: order below minimum value", ErrVoucherRejected)
)
