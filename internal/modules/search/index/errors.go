package index

import (
	"context"
	"errors"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

// storageErr tags backend failures as storage errors. Cancellation and
// already-coded errors pass through unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.Wrap(domain.CodeStorage, op, err)
}

func checkDim(op string, want int, vector []float32) error {
	if want > 0 && len(vector) != want {
		return domain.DimensionMismatch(op, want, len(vector))
	}
	return nil
}
