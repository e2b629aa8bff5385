/**
 * @description
 * This file contains the core business logic for the storefront-service. The
 * `Service` struct orchestrates the wallet-ledger operations, coordinating
 * between the database repository and the operator event channel.
 *
 * Key features:
 * - First-login account provisioning with bcrypt credential hashing.
 * - Settlement, reconciliation, and reward flows built on the repository's
 *   atomic conditional updates.
 * - Fire-and-forget operator notifications: a publish failure is logged and
 *   swallowed, never rolled into the financial mutation's outcome.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: UUID generation.
 * - github.com/shopspring/decimal: Monetary amounts.
 * - golang.org/x/crypto/bcrypt: Credential hashing.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Operator event publishing.
 */

package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
	"github.com/instaboost/storefront-service/pkg/rabbitmq"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSelfReferral       = errors.New("cannot consume your own referral code")
	ErrNotEligible        = errors.New("referral threshold not met")
)

// Settings carries the product configuration for the reward and pricing rules.
// Thresholds and amounts are configuration, not constants, so operators can
// tune them without a deploy.
type Settings struct {
	SignupBonus       decimal.Decimal
	ReferralThreshold int
	DiscountPercent   int64 // percent off the catalog rate once unlocked, e.g. 50

	// Per-account write limits. A zero limit disables the scope.
	OrderRateLimit  int
	OrderRateWindow time.Duration
	ClaimRateLimit  int
	ClaimRateWindow time.Duration
}

// Service provides the core business logic for the storefront.
type Service struct {
	repo     store.Repository
	events   rabbitmq.Publisher
	settings Settings
	limiter  RateLimiter
}

// NewService creates a new storefront service instance.
func NewService(repo store.Repository, events rabbitmq.Publisher, settings Settings) *Service {
	if settings.ReferralThreshold <= 0 {
		settings.ReferralThreshold = 5
	}
	if settings.DiscountPercent <= 0 || settings.DiscountPercent > 100 {
		settings.DiscountPercent = 50
	}
	if settings.SignupBonus.LessThanOrEqual(decimal.Zero) {
		settings.SignupBonus = decimal.NewFromInt(10)
	}
	return &Service{repo: repo, events: events, settings: settings}
}

// SetRateLimiter attaches an optional distributed rate limiter. A nil limiter
// disables limiting; callers stay on the happy path either way.
func (s *Service) SetRateLimiter(limiter RateLimiter) {
	s.limiter = limiter
}

// Login authenticates an Instagram handle, creating the account on first login.
// A referral code supplied with a brand-new account is consumed best-effort: a
// bad code never fails the login itself.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Account, bool, int, error) {
	handle := strings.TrimSpace(req.InstagramUsername)
	if handle == "" || req.Password == "" {
		return nil, false, 0, fmt.Errorf("%w: username and password required", ErrValidation)
	}

	account, err := s.repo.FindAccountByHandle(ctx, handle)
	newAccount := false
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(account.CredentialHash), []byte(req.Password)) != nil {
			return nil, false, 0, ErrInvalidCredentials
		}
	case errors.Is(err, store.ErrAccountNotFound):
		account, err = s.provisionAccount(ctx, handle, req.Password)
		if err != nil {
			return nil, false, 0, err
		}
		newAccount = true
		if code := strings.TrimSpace(req.ReferralCode); code != "" {
			if _, refErr := s.ConsumeReferralCode(ctx, code, account.ID); refErr != nil {
				log.Printf("level=warn component=service flow=login msg=\"referral attribution skipped\" account_uid=%s err=%v", account.UID, refErr)
			}
		}
	default:
		return nil, false, 0, fmt.Errorf("login: account lookup failed: %w", err)
	}

	loginCount, err := s.repo.RecordLogin(ctx, account.ID, account.InstagramHandle)
	if err != nil {
		// Login auditing is best-effort; the session is still issued.
		log.Printf("level=warn component=service flow=login msg=\"login log write failed\" account_uid=%s err=%v", account.UID, err)
		loginCount = 0
	}

	return account, newAccount, loginCount, nil
}

// GetAccount returns the authenticated account's profile.
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.repo.FindAccountByID(ctx, accountID)
}

func (s *Service) provisionAccount(ctx context.Context, handle, password string) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("login: credential hash failed: %w", err)
	}

	account := &domain.Account{
		ID:              uuid.New(),
		UID:             generateUID(),
		InstagramHandle: handle,
		CredentialHash:  string(hash),
		Balance:         decimal.Zero,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicateHandle) {
			// A concurrent first login won the insert; use its row and verify
			// against it instead of failing the request.
			existing, findErr := s.repo.FindAccountByHandle(ctx, handle)
			if findErr != nil {
				return nil, fmt.Errorf("login: duplicate-handle recovery failed: %w", findErr)
			}
			if bcrypt.CompareHashAndPassword([]byte(existing.CredentialHash), []byte(password)) != nil {
				return nil, ErrInvalidCredentials
			}
			return existing, nil
		}
		return nil, fmt.Errorf("login: account create failed: %w", err)
	}
	log.Printf("level=info component=service flow=login msg=\"account created\" account_uid=%s", account.UID)
	return account, nil
}

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomToken(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform's entropy source is
			// broken; fall back to a time-derived index rather than panic.
			b[i] = idAlphabet[int(time.Now().UnixNano())%len(idAlphabet)]
			continue
		}
		b[i] = idAlphabet[idx.Int64()]
	}
	return string(b)
}

// generateUID produces the public account identifier, e.g. "UID7F3K9Q2XA".
func generateUID() string {
	return "UID" + randomToken(9)
}

// generateOrderID produces order identifiers like "ORDER1718000000000X4QZ".
func generateOrderID(now time.Time) string {
	return fmt.Sprintf("ORDER%d%s", now.UnixMilli(), randomToken(4))
}

// publishOperatorEvent notifies the operator channel. Best-effort by contract:
// failures are logged, never propagated.
func (s *Service) publishOperatorEvent(ctx context.Context, routingKey string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, rabbitmq.StorefrontExchange, routingKey, payload); err != nil {
		log.Printf("level=warn component=service msg=\"operator event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}

func (s *Service) consumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) error {
	if s.limiter == nil {
		return nil
	}
	count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, scope, subject, limit, window)
	if err != nil {
		// The limiter is protective, not load-bearing: on Redis failure the
		// request proceeds.
		log.Printf("level=warn component=service msg=\"rate limiter unavailable\" scope=%s err=%v", scope, err)
		return nil
	}
	if limit > 0 && count > limit {
		return &RateLimitedError{Scope: scope, RetryAfterSeconds: retryAfter}
	}
	return nil
}
