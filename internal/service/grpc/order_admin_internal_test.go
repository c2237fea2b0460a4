package grpcsvc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"actor required", domain.ErrActorRequired, codes.Unauthenticated},
		{"validation", domain.ErrReasonTooLong, codes.InvalidArgument},
		{"forbidden", domain.ErrForbidden, codes.PermissionDenied},
		{"not found", fmt.Errorf("load: %w", domain.ErrOrderNotFound), codes.NotFound},
		{"transition", domain.NewTransitionError(domain.OrderStatusDelivered, domain.OrderStatusCancelled), codes.FailedPrecondition},
		{"stock", domain.ErrInsufficientStock, codes.FailedPrecondition},
		{"sales", domain.ErrInsufficientSales, codes.FailedPrecondition},
		{"conflict", domain.ErrOrderVersionConflict, codes.Aborted},
		{"compensated", &domain.InventoryAdjustmentError{Failure: domain.AdjustmentFailure{Err: domain.ErrBookNotFound}}, codes.Aborted},
		{"drift", &domain.InventoryAdjustmentError{CompensationErrs: []error{errors.New("db down")}}, codes.DataLoss},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"other", errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := codeFor(tt.err); got != tt.want {
				t.Fatalf("codeFor(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
