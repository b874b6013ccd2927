package usecases

import (
	"context"
	"errors"
	"time"

	"wecom-relay/internal/entities"
	"wecom-relay/internal/interfaces"
)

var (
	ErrInvalidExpirationType = errors.New("invalid expiration type")
	ErrInvalidTier           = errors.New("invalid membership level")
)

// MembershipUsecase handles the administrative tier assignment.
type MembershipUsecase struct {
	store interfaces.MembershipStore
	now   func() time.Time
}

func NewMembershipUsecase(store interfaces.MembershipStore) *MembershipUsecase {
	return &MembershipUsecase{store: store, now: time.Now}
}

// SetLevel validates the input and overwrites the sender's membership
// record with the tier and a computed expiration instant.
func (uc *MembershipUsecase) SetLevel(ctx context.Context, userID, level, expirationType string, duration int) error {
	if !entities.ValidTier(level) {
		return ErrInvalidTier
	}
	expiresAt, err := calculateExpiration(uc.now(), expirationType, duration)
	if err != nil {
		return err
	}
	return uc.store.Set(ctx, entities.Membership{
		UserID:    userID,
		Level:     level,
		ExpiresAt: expiresAt,
	})
}

func calculateExpiration(now time.Time, expirationType string, duration int) (time.Time, error) {
	switch expirationType {
	case "month":
		return now.AddDate(0, duration, 0), nil
	case "year":
		return now.AddDate(duration, 0, 0), nil
	}
	return time.Time{}, ErrInvalidExpirationType
}
