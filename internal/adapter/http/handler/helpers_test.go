package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

func TestGetCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{types.ErrInvalidCoordinates, http.StatusBadRequest},
		{types.ErrRequestNotFound, http.StatusNotFound},
		{types.ErrCourierNotFound, http.StatusNotFound},
		{types.ErrSettlementNotFound, http.StatusNotFound},
		{types.ErrAlreadyTaken, http.StatusConflict},
		{types.ErrInvalidTransition, http.StatusConflict},
		{types.ErrStaleUpdate, http.StatusConflict},
		{types.ErrCourierOffline, http.StatusConflict},
		{types.ErrNotEligible, http.StatusUnprocessableEntity},
		{types.ErrVoucherRejected, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", types.ErrAlreadyTaken), http.StatusConflict},
		{fmt.Errorf("%w: usage limit reached", types.ErrVoucherExhausted), http.StatusUnprocessableEntity},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		if got := GetCode(c.err); got != c.want {
			t.Errorf("GetCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
