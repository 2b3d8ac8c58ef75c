package coupon

import (
	"context"
)

// Validator defines the interface for coupon validation.
type Validator interface {
	// Validate checks a coupon code and returns its discount percent.
	// A valid coupon must be active and inside its optional validity
	// window; matching is case-insensitive. Invalid codes return
	// model.ErrCouponInvalid.
	Validate(ctx context.Context, code string) (float64, error)
}
