package coupon

import (
	"context"
	"strings"
	"time"

	"loja-core/internal/model"
	"loja-core/internal/repository"

	"github.com/rs/zerolog"
)

// validator implements Validator against the coupon table.
type validator struct {
	repo   repository.CouponRepository
	now    func() time.Time
	logger zerolog.Logger
}

// NewValidator creates a new coupon validator.
func NewValidator(repo repository.CouponRepository, logger zerolog.Logger) Validator {
	return &validator{
		repo:   repo,
		now:    time.Now,
		logger: logger.With().Str("component", "coupon-validator").Logger(),
	}
}

// Validate checks a coupon code and returns its discount percent.
func (v *validator) Validate(ctx context.Context, code string) (float64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, model.ErrCouponInvalid
	}

	c, err := v.repo.GetByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	if c == nil {
		v.logger.Debug().Str("code", code).Msg("coupon not found")
		return 0, model.ErrCouponInvalid
	}

	if !c.ValidAt(v.now()) {
		v.logger.Debug().
			Str("code", code).
			Bool("active", c.Active).
			Msg("coupon outside validity window or inactive")
		return 0, model.ErrCouponInvalid
	}

	v.logger.Debug().
		Str("code", code).
		Float64("percent", c.Percent).
		Msg("coupon validated")

	return c.Percent, nil
}
