package lifecycle

import (
	"testing"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

func TestCanTransition(t *testing.T) {
	if !CanTransition(types.StatusPending, types.StatusAssigned) {
		t.Fatal("expected PENDING -> ASSIGNED to be allowed")
	}
	if !CanTransition(types.StatusAssigned, types.StatusArriving) {
		t.Fatal("expected ASSIGNED -> ARRIVING to be allowed")
	}
	if !CanTransition(types.StatusArriving, types.StatusInProgress) {
		t.Fatal("expected ARRIVING -> IN_PROGRESS to be allowed")
	}
	if !CanTransition(types.StatusInProgress, types.StatusCompleted) {
		t.Fatal("expected IN_PROGRESS -> COMPLETED to be allowed")
	}
	if !CanTransition(types.StatusAssigned, types.StatusCancelled) {
		t.Fatal("expected ASSIGNED -> CANCELLED to be allowed")
	}
	if CanTransition(types.StatusPending, types.StatusCompleted) {
		t.Fatal("unexpected transition allowed: PENDING -> COMPLETED")
	}
}

// TestTransitionGraphClosure verifies that only the listed edges exist:
// every other (from, to) pair must be rejected, and nothing ever leaves
// a terminal state.
func TestTransitionGraphClosure(t *testing.T) {
	allowed := map[[2]types.RequestStatus]bool{
		{types.StatusPending, types.StatusAssigned}:     true,
		{types.StatusPending, types.StatusCancelled}:    true,
		{types.StatusAssigned, types.StatusArriving}:    true,
		{types.StatusAssigned, types.StatusCancelled}:   true,
		{types.StatusArriving, types.StatusInProgress}:  true,
		{types.StatusInProgress, types.StatusCompleted}: true,
	}

	for _, from := range Statuses() {
		for _, to := range Statuses() {
			got := CanTransition(from, to)
			want := allowed[[2]types.RequestStatus{from, to}]
			if got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	for _, terminal := range []types.RequestStatus{types.StatusCompleted, types.StatusCancelled} {
		if !IsTerminal(terminal) {
			t.Errorf("expected %s to be terminal", terminal)
		}
		for _, to := range Statuses() {
			if CanTransition(terminal, to) {
				t.Errorf("terminal state %s must not transition to %s", terminal, to)
			}
		}
	}
}

func TestCancellable(t *testing.T) {
	if !Cancellable(types.StatusPending) || !Cancellable(types.StatusAssigned) {
		t.Fatal("expected PENDING and ASSIGNED to be cancellable")
	}
	for _, s := range []types.RequestStatus{
		types.StatusArriving, types.StatusInProgress, types.StatusCompleted, types.StatusCancelled,
	} {
		if Cancellable(s) {
			t.Errorf("expected %s to be irrevocable for the requester", s)
		}
	}
}

func TestDisplayStatus(t *testing.T) {
	cases := []struct {
		kind   types.RequestKind
		status types.RequestStatus
		want   string
	}{
		{types.KindFoodOrder, types.StatusPending, "READY_FOR_PICKUP"},
		{types.KindFoodOrder, types.StatusArriving, "PICKED_UP"},
		{types.KindFoodOrder, types.StatusInProgress, "DELIVERING"},
		{types.KindRide, types.StatusPending, "pending"},
		{types.KindRide, types.StatusInProgress, "onway"},
		{types.KindRide, types.StatusCancelled, "cancelled"},
	}

	for _, c := range cases {
		if got := DisplayStatus(c.kind, c.status); got != c.want {
			t.Errorf("DisplayStatus(%s, %s) = %q, want %q", c.kind, c.status, got, c.want)
		}
	}
}
