package lifecycle

import (
	"github.com/marketfleet/dispatch/internal/domain/types"
)

// Food orders and rides expose different status vocabularies to clients
// while sharing one stored lifecycle. The mapping is pure presentation.
var foodDisplay = map[types.RequestStatus]string{
	types.StatusPending:    "READY_FOR_PICKUP",
	types.StatusAssigned:   "ACCEPTED",
	types.StatusArriving:   "PICKED_UP",
	types.StatusInProgress: "DELIVERING",
	types.StatusCompleted:  "COMPLETED",
	types.StatusCancelled:  "CANCELLED",
}

var rideDisplay = map[types.RequestStatus]string{
	types.StatusPending:    "pending",
	types.StatusAssigned:   "accepted",
	types.StatusArriving:   "arriving",
	types.StatusInProgress: "onway",
	types.StatusCompleted:  "completed",
	types.StatusCancelled:  "cancelled",
}

// DisplayStatus maps the unified status to the kind-specific vocabulary.
func DisplayStatus(kind types.RequestKind, s types.RequestStatus) string {
	var m map[types.RequestStatus]string
	switch kind {
	case types.KindFoodOrder:
		m = foodDisplay
	case types.KindRide:
		m = rideDisplay
	default:
		return string(s)
	}

	if v, ok := m[s]; ok {
		return v
	}
	return string(s)
}
