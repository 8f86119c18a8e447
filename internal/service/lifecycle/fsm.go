package lifecycle

import (
	"github.com/marketfleet/dispatch/internal/domain/types"
)

// transitions is the full legal transition graph for both request kinds.
// Anything not listed here is rejected. COMPLETED and CANCELLED are
// terminal.
var transitions = map[types.RequestStatus]map[types.RequestStatus]struct{}{
	types.StatusPending: {
		types.StatusAssigned:  {},
		types.StatusCancelled: {},
	},
	types.StatusAssigned: {
		types.StatusArriving:  {},
		types.StatusCancelled: {},
	},
	types.StatusArriving: {
		types.StatusInProgress: {},
	},
	types.StatusInProgress: {
		types.StatusCompleted: {},
	},
	types.StatusCompleted: {},
	types.StatusCancelled: {},
}

// courierEvents are the targets a courier may drive a request to. Cancel
// is never courier-initiated; it belongs to the requester or the system.
var courierEvents = map[types.RequestStatus]struct{}{
	types.StatusArriving:   {},
	types.StatusInProgress: {},
	types.StatusCompleted:  {},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to types.RequestStatus) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(s types.RequestStatus) bool {
	return s == types.StatusCompleted || s == types.StatusCancelled
}

// CourierEvent reports whether the target status is one the assigned
// courier may request.
func CourierEvent(to types.RequestStatus) bool {
	_, ok := courierEvents[to]
	return ok
}

// Cancellable reports whether the requester may still cancel. Once the
// courier is ARRIVING or later the request is irrevocable.
func Cancellable(s types.RequestStatus) bool {
	return s == types.StatusPending || s == types.StatusAssigned
}

// Statuses lists every lifecycle status; test helpers iterate it to
// verify graph closure.
func Statuses() []types.RequestStatus {
	return []types.RequestStatus{
		types.StatusPending,
		types.StatusAssigned,
		types.StatusArriving,
		types.StatusInProgress,
		types.StatusCompleted,
		types.StatusCancelled,
	}
}
