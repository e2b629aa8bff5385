/**
 * @description
 * Bonus and referral logic. The one-shot guarantees (bonus credited once,
 * discount unlocked once, a referred account attributed once) all live in the
 * repository's conditional updates; this layer adds eligibility checks,
 * code generation, and operator notifications.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
)

// ClaimSignupBonus credits the one-time signup bonus and returns the new
// balance. A repeat claim surfaces store.ErrBonusClaimed.
func (s *Service) ClaimSignupBonus(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	balance, err := s.repo.ClaimSignupBonus(ctx, accountID, s.settings.SignupBonus)
	if err != nil {
		return decimal.Zero, err
	}

	log.Printf("level=info component=service flow=rewards msg=\"signup bonus claimed\" account_uid=%s amount=%s balance=%s",
		account.UID, s.settings.SignupBonus.StringFixed(2), balance.StringFixed(2))

	s.publishOperatorEvent(ctx, domain.EventBonusClaimed, domain.BonusClaimedEvent{
		AccountUID: account.UID,
		Amount:     s.settings.SignupBonus,
		Timestamp:  time.Now().UTC(),
	})

	return balance, nil
}

// EnsureReferralCode returns the account's shareable referral code, minting it
// on first use. Codes look like "REF-UID7F3K9Q2XA-X4QZ1B".
func (s *Service) EnsureReferralCode(ctx context.Context, accountID uuid.UUID) (string, error) {
	grant, err := s.repo.FindPrimaryReferral(ctx, accountID)
	if err == nil {
		return grant.Code, nil
	}
	if err != store.ErrReferralCodeNotFound {
		return "", err
	}

	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return "", err
	}

	fresh := &domain.ReferralGrant{
		ID:                uuid.New(),
		ReferrerAccountID: account.ID,
		Code:              fmt.Sprintf("REF-%s-%s", account.UID, randomToken(6)),
	}
	if err := s.repo.CreateReferralGrant(ctx, fresh); err != nil {
		// A concurrent request may have minted the code first; re-read.
		grant, findErr := s.repo.FindPrimaryReferral(ctx, accountID)
		if findErr == nil {
			return grant.Code, nil
		}
		return "", err
	}
	return fresh.Code, nil
}

// ConsumeReferralCode attributes the referred account to the code's owner. The
// attribution row is marked completed immediately; an account can be referred
// at most once and never by itself.
func (s *Service) ConsumeReferralCode(ctx context.Context, code string, referredAccountID uuid.UUID) (*domain.ReferralGrant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: referral code required", ErrValidation)
	}

	referrer, err := s.repo.FindReferrerByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer.ID == referredAccountID {
		return nil, ErrSelfReferral
	}

	referred := referredAccountID
	consumed := &domain.ReferralGrant{
		ID:                uuid.New(),
		ReferrerAccountID: referrer.ID,
		Code:              fmt.Sprintf("USED-%s-%d", code, time.Now().UnixMilli()),
		ReferredAccountID: &referred,
		Completed:         true,
	}
	if err := s.repo.CreateReferralGrant(ctx, consumed); err != nil {
		return nil, err
	}

	log.Printf("level=info component=service flow=rewards msg=\"referral completed\" referrer_uid=%s code=%s", referrer.UID, code)
	return consumed, nil
}

// ReferralSummary assembles the rewards-page view for an account.
func (s *Service) ReferralSummary(ctx context.Context, accountID uuid.UUID) (*domain.ReferralSummary, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	code, err := s.EnsureReferralCode(ctx, accountID)
	if err != nil {
		return nil, err
	}

	completed, err := s.repo.CountCompletedReferrals(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &domain.ReferralSummary{
		Code:               code,
		CompletedReferrals: completed,
		Threshold:          s.settings.ReferralThreshold,
		DiscountEligible:   completed >= s.settings.ReferralThreshold,
		DiscountUnlocked:   account.DiscountUnlocked,
	}, nil
}

// ClaimDiscountReward unlocks the permanent order discount once the account has
// completed enough referrals.
func (s *Service) ClaimDiscountReward(ctx context.Context, accountID uuid.UUID) error {
	completed, err := s.repo.CountCompletedReferrals(ctx, accountID)
	if err != nil {
		return err
	}
	if completed < s.settings.ReferralThreshold {
		return fmt.Errorf("%w: %d of %d referrals completed", ErrNotEligible, completed, s.settings.ReferralThreshold)
	}

	if err := s.repo.UnlockDiscount(ctx, accountID); err != nil {
		return err
	}
	log.Printf("level=info component=service flow=rewards msg=\"discount unlocked\" account_id=%s referrals=%d", accountID, completed)
	return nil
}
