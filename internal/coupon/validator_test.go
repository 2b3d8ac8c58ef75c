package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"loja-core/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCouponRepository is a mock implementation of CouponRepository.
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func newTestValidator(repo *MockCouponRepository, now time.Time) *validator {
	return &validator{
		repo:   repo,
		now:    func() time.Time { return now },
		logger: zerolog.Nop(),
	}
}

func activeCoupon(code string, percent float64, start, end *time.Time) *model.Coupon {
	return &model.Coupon{
		ID:       uuid.New(),
		Code:     code,
		Percent:  percent,
		StartsAt: start,
		EndsAt:   end,
		Active:   true,
	}
}

func TestValidator_Validate_ActiveInsideWindow(t *testing.T) {
	now := time.Now()
	start := now.Add(-1 * time.Second)
	end := now.Add(1 * time.Hour)

	repo := new(MockCouponRepository)
	repo.On("GetByCode", mock.Anything, "PROMO10").
		Return(activeCoupon("PROMO10", 10, &start, &end), nil)

	v := newTestValidator(repo, now)

	percent, err := v.Validate(context.Background(), "PROMO10")
	require.NoError(t, err)
	assert.Equal(t, 10.0, percent)
}

func TestValidator_Validate_ExpiredWindow(t *testing.T) {
	now := time.Now()
	end := now.Add(-1 * time.Second)

	repo := new(MockCouponRepository)
	repo.On("GetByCode", mock.Anything, "PROMO10").
		Return(activeCoupon("PROMO10", 10, nil, &end), nil)

	v := newTestValidator(repo, now)

	_, err := v.Validate(context.Background(), "PROMO10")
	assert.ErrorIs(t, err, model.ErrCouponInvalid)
}

func TestValidator_Validate_NotYetStarted(t *testing.T) {
	now := time.Now()
	start := now.Add(1 * time.Hour)

	repo := new(MockCouponRepository)
	repo.On("GetByCode", mock.Anything, "PROMO10").
		Return(activeCoupon("PROMO10", 10, &start, nil), nil)

	v := newTestValidator(repo, now)

	_, err := v.Validate(context.Background(), "PROMO10")
	assert.ErrorIs(t, err, model.ErrCouponInvalid)
}

func TestValidator_Validate_InactiveRegardlessOfDates(t *testing.T) {
	now := time.Now()
	c := activeCoupon("PROMO10", 10, nil, nil)
	c.Active = false

	repo := new(MockCouponRepository)
	repo.On("GetByCode", mock.Anything, "PROMO10").Return(c, nil)

	v := newTestValidator(repo, now)

	_, err := v.Validate(context.Background(), "PROMO10")
	assert.ErrorIs(t, err, model.ErrCouponInvalid)
}

func TestValidator_Validate_NoWindowIsAlwaysValid(t *testing.T) {
	now := time.Now()
	repo := new(MockCouponRepository)
	repo.On("GetByCode", mock.Anything, "SEMPRE").
		Return(activeCoupon("SEMPRE", 5, nil, nil), nil)

	v := newTestValidator(repo, now)

	percent, err := v.Validate(context.Background(), "SEMPRE")
	require.NoError(t, err)
	assert.Equal(t, 5.0, percent)
}

func TestValidator_Validate_UnknownCode(t *testing.T) {
	repo := new(MockCouponRepository)
	repo.On("GetByCode", mock.Anything, "NADA").Return(nil, nil)

	v := newTestValidator(repo, time.Now())

	_, err := v.Validate(context.Background(), "NADA")
	assert.ErrorIs(t, err, model.ErrCouponInvalid)
}

func TestValidator_Validate_EmptyCode(t *testing.T) {
	repo := new(MockCouponRepository)
	v := newTestValidator(repo, time.Now())

	_, err := v.Validate(context.Background(), "   ")
	assert.ErrorIs(t, err, model.ErrCouponInvalid)
	repo.AssertNotCalled(t, "GetByCode")
}

func TestValidator_Validate_RepositoryError(t *testing.T) {
	repoErr := errors.New("connection refused")
	repo := new(MockCouponRepository)
	repo.On("GetByCode", mock.Anything, "PROMO10").Return(nil, repoErr)

	v := newTestValidator(repo, time.Now())

	_, err := v.Validate(context.Background(), "PROMO10")
	assert.ErrorIs(t, err, repoErr)
}
