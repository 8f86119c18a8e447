package types

// RequestKind distinguishes the two marketplace products sharing one
// dispatch pipeline.
type RequestKind string

const (
	KindFoodOrder RequestKind = "FOOD_ORDER"
	KindRide      RequestKind = "RIDE"
)

func (k RequestKind) Valid() bool {
	return k == KindFoodOrder || k == KindRide
}

// RequestStatus is the unified lifecycle vocabulary. Kind-specific display
// vocabularies are derived from it, never stored.
type RequestStatus string

const (
	StatusPending    RequestStatus = "PENDING"
	StatusAssigned   RequestStatus = "ASSIGNED"
	StatusArriving   RequestStatus = "ARRIVING"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusCompleted  RequestStatus = "COMPLETED"
	StatusCancelled  RequestStatus = "CANCELLED"
)

// VehicleType is used as a candidate filter during matching.
type VehicleType string

const (
	VehicleMotorbike VehicleType = "MOTORBIKE"
	VehicleCar       VehicleType = "CAR"
	VehicleVan       VehicleType = "VAN"
)

// DiscountType enumerates voucher discount models.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// SubjectType identifies who a settlement record pays out to.
type SubjectType string

const (
	SubjectStore   SubjectType = "STORE"
	SubjectCourier SubjectType = "COURIER"
)

func (s SubjectType) Valid() bool {
	return s == SubjectStore || s == SubjectCourier
}

// SettlementStatus moves strictly forward, never backward.
type SettlementStatus string

const (
	SettlementPending    SettlementStatus = "PENDING"
	SettlementProcessing SettlementStatus = "PROCESSING"
	SettlementCompleted  SettlementStatus = "COMPLETED"
)

type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RoleCustomer UserRole = "CUSTOMER"
	RoleCourier  UserRole = "COURIER"
	RoleAdmin    UserRole = "ADMIN"
)
