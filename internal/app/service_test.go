package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
)

// fakeRepo is an in-memory Repository with the same conditional-update
// semantics as the PostgreSQL implementation: every balance or flag mutation
// happens under one lock and checks its precondition before writing.
type fakeRepo struct {
	mu sync.Mutex

	accounts map[uuid.UUID]*domain.Account
	byHandle map[string]uuid.UUID
	logins   map[uuid.UUID]int
	services map[int64]*domain.CatalogService
	orders   []domain.Order
	claims   map[uuid.UUID]*domain.PaymentClaim
	byRef    map[string]uuid.UUID
	grants   []*domain.ReferralGrant
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts: make(map[uuid.UUID]*domain.Account),
		byHandle: make(map[string]uuid.UUID),
		logins:   make(map[uuid.UUID]int),
		services: make(map[int64]*domain.CatalogService),
		claims:   make(map[uuid.UUID]*domain.PaymentClaim),
		byRef:    make(map[string]uuid.UUID),
	}
}

func (f *fakeRepo) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeRepo) FindAccountByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byHandle[handle]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *f.accounts[id]
	return &copied, nil
}

func (f *fakeRepo) CreateAccount(ctx context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byHandle[account.InstagramHandle]; exists {
		return store.ErrDuplicateHandle
	}
	account.CreatedAt = time.Now()
	copied := *account
	f.accounts[account.ID] = &copied
	f.byHandle[account.InstagramHandle] = account.ID
	return nil
}

func (f *fakeRepo) RecordLogin(ctx context.Context, accountID uuid.UUID, handle string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[accountID]; !ok {
		return 0, store.ErrAccountNotFound
	}
	f.logins[accountID]++
	return f.logins[accountID], nil
}

func (f *fakeRepo) ListActiveServices(ctx context.Context) ([]domain.CatalogService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CatalogService
	for _, svc := range f.services {
		if svc.Active {
			out = append(out, *svc)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindServiceByID(ctx context.Context, id int64) (*domain.CatalogService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc, ok := f.services[id]
	if !ok || !svc.Active {
		return nil, store.ErrServiceNotFound
	}
	copied := *svc
	return &copied, nil
}

func (f *fakeRepo) SettleOrder(ctx context.Context, order *domain.Order) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[order.AccountID]
	if !ok {
		return decimal.Zero, store.ErrAccountNotFound
	}
	if account.Balance.LessThan(order.Price) {
		return decimal.Zero, store.ErrInsufficientFunds
	}
	account.Balance = account.Balance.Sub(order.Price)
	order.CreatedAt = time.Now()
	f.orders = append(f.orders, *order)
	return account.Balance, nil
}

func (f *fakeRepo) FindOrdersByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].AccountID == accountID {
			out = append(out, f.orders[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) CreatePaymentClaim(ctx context.Context, claim *domain.PaymentClaim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byRef[claim.ReferenceNumber]; exists {
		return store.ErrDuplicateReference
	}
	claim.CreatedAt = time.Now()
	copied := *claim
	f.claims[claim.ID] = &copied
	f.byRef[claim.ReferenceNumber] = claim.ID
	return nil
}

func (f *fakeRepo) FindPaymentClaimByID(ctx context.Context, id uuid.UUID) (*domain.PaymentClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claim, ok := f.claims[id]
	if !ok {
		return nil, store.ErrClaimNotFound
	}
	copied := *claim
	return &copied, nil
}

func (f *fakeRepo) FindPaymentClaimsByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PaymentClaim
	for _, claim := range f.claims {
		if claim.AccountID == accountID {
			out = append(out, *claim)
		}
	}
	return out, nil
}

func (f *fakeRepo) ApprovePaymentClaim(ctx context.Context, claimID uuid.UUID) (*domain.PaymentClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claim, ok := f.claims[claimID]
	if !ok {
		return nil, store.ErrClaimNotFound
	}
	if claim.Status != domain.ClaimStatusPending {
		return nil, store.ErrClaimResolved
	}
	account, ok := f.accounts[claim.AccountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	now := time.Now()
	claim.Status = domain.ClaimStatusApproved
	claim.ResolvedAt = &now
	account.Balance = account.Balance.Add(claim.Amount)
	copied := *claim
	return &copied, nil
}

func (f *fakeRepo) RejectPaymentClaim(ctx context.Context, claimID uuid.UUID) (*domain.PaymentClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claim, ok := f.claims[claimID]
	if !ok {
		return nil, store.ErrClaimNotFound
	}
	if claim.Status != domain.ClaimStatusPending {
		return nil, store.ErrClaimResolved
	}
	now := time.Now()
	claim.Status = domain.ClaimStatusRejected
	claim.ResolvedAt = &now
	copied := *claim
	return &copied, nil
}

func (f *fakeRepo) ClaimSignupBonus(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return decimal.Zero, store.ErrAccountNotFound
	}
	if account.BonusClaimed {
		return decimal.Zero, store.ErrBonusClaimed
	}
	account.BonusClaimed = true
	account.Balance = account.Balance.Add(amount)
	return account.Balance, nil
}

func (f *fakeRepo) FindPrimaryReferral(ctx context.Context, accountID uuid.UUID) (*domain.ReferralGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, grant := range f.grants {
		if grant.ReferrerAccountID == accountID && grant.ReferredAccountID == nil {
			copied := *grant
			return &copied, nil
		}
	}
	return nil, store.ErrReferralCodeNotFound
}

func (f *fakeRepo) CreateReferralGrant(ctx context.Context, grant *domain.ReferralGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.grants {
		if grant.ReferredAccountID == nil && existing.ReferrerAccountID == grant.ReferrerAccountID && existing.ReferredAccountID == nil {
			return store.ErrReferralCodeNotFound
		}
		if grant.ReferredAccountID != nil && existing.ReferredAccountID != nil && *existing.ReferredAccountID == *grant.ReferredAccountID {
			return store.ErrAlreadyReferred
		}
	}
	grant.CreatedAt = time.Now()
	copied := *grant
	f.grants = append(f.grants, &copied)
	return nil
}

func (f *fakeRepo) FindReferrerByCode(ctx context.Context, code string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, grant := range f.grants {
		if grant.Code == code && grant.ReferredAccountID == nil {
			copied := *f.accounts[grant.ReferrerAccountID]
			return &copied, nil
		}
	}
	return nil, store.ErrReferralCodeNotFound
}

func (f *fakeRepo) CountCompletedReferrals(ctx context.Context, accountID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, grant := range f.grants {
		if grant.ReferrerAccountID == accountID && grant.Completed && grant.ReferredAccountID != nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) UnlockDiscount(ctx context.Context, accountID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	if account.DiscountUnlocked {
		return store.ErrDiscountClaimed
	}
	account.DiscountUnlocked = true
	return nil
}

// capturingPublisher records every operator event the service publishes.
type capturingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

func (p *capturingPublisher) Close() {}

func (p *capturingPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func newTestService(repo *fakeRepo) (*Service, *capturingPublisher) {
	publisher := &capturingPublisher{}
	svc := NewService(repo, publisher, Settings{
		SignupBonus:       decimal.RequireFromString("10.00"),
		ReferralThreshold: 5,
		DiscountPercent:   50,
	})
	return svc, publisher
}

func seedAccount(t *testing.T, repo *fakeRepo, handle, password, balance string) *domain.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}
	account := &domain.Account{
		ID:              uuid.New(),
		UID:             generateUID(),
		InstagramHandle: handle,
		CredentialHash:  string(hash),
		Balance:         decimal.RequireFromString(balance),
	}
	if err := repo.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("seeding account failed: %v", err)
	}
	return account
}

func seedService(repo *fakeRepo, id int64, rate string, min, max int) {
	repo.services[id] = &domain.CatalogService{
		ID:           id,
		Name:         "Instagram Followers - Indian",
		Category:     "Followers",
		Rate:         decimal.RequireFromString(rate),
		MinOrder:     min,
		MaxOrder:     max,
		DeliveryTime: "0-6 hours",
		Active:       true,
	}
}

func TestLogin_CreatesAccountOnFirstUse(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	account, newAccount, loginCount, err := svc.Login(context.Background(), domain.LoginRequest{
		InstagramUsername: "first_timer",
		Password:          "hunter2pass",
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !newAccount {
		t.Fatal("expected newAccount=true on first login")
	}
	if loginCount != 1 {
		t.Fatalf("expected login count 1, got %d", loginCount)
	}
	if !strings.HasPrefix(account.UID, "UID") || len(account.UID) != 12 {
		t.Fatalf("unexpected UID format: %q", account.UID)
	}
	if !account.Balance.IsZero() {
		t.Fatalf("expected zero starting balance, got %s", account.Balance)
	}
}

func TestLogin_ReturningAccountVerifiesPassword(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	seeded := seedAccount(t, repo, "regular", "correct-password", "25.00")

	account, newAccount, _, err := svc.Login(context.Background(), domain.LoginRequest{
		InstagramUsername: "regular",
		Password:          "correct-password",
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if newAccount {
		t.Fatal("expected newAccount=false for returning user")
	}
	if account.ID != seeded.ID {
		t.Fatalf("expected existing account %s, got %s", seeded.ID, account.ID)
	}

	_, _, _, err = svc.Login(context.Background(), domain.LoginRequest{
		InstagramUsername: "regular",
		Password:          "wrong-password",
	})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_RejectsMissingFields(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	tests := []struct {
		name string
		req  domain.LoginRequest
	}{
		{"missing username", domain.LoginRequest{Password: "something"}},
		{"missing password", domain.LoginRequest{InstagramUsername: "someone"}},
		{"whitespace username", domain.LoginRequest{InstagramUsername: "   ", Password: "something"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := svc.Login(context.Background(), tt.req)
			if !errorsIsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLogin_CountsLogins(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	seedAccount(t, repo, "counter", "pass-word-1", "0.00")

	var last int
	for i := 0; i < 3; i++ {
		_, _, count, err := svc.Login(context.Background(), domain.LoginRequest{
			InstagramUsername: "counter",
			Password:          "pass-word-1",
		})
		if err != nil {
			t.Fatalf("Login %d returned error: %v", i+1, err)
		}
		last = count
	}
	if last != 3 {
		t.Fatalf("expected login count 3, got %d", last)
	}
}

func TestLogin_ReferralCodeAttributesNewAccount(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	referrer := seedAccount(t, repo, "referrer", "referrer-pass", "0.00")

	code, err := svc.EnsureReferralCode(context.Background(), referrer.ID)
	if err != nil {
		t.Fatalf("EnsureReferralCode returned error: %v", err)
	}

	_, newAccount, _, err := svc.Login(context.Background(), domain.LoginRequest{
		InstagramUsername: "invitee",
		Password:          "invitee-pass",
		ReferralCode:      code,
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !newAccount {
		t.Fatal("expected new account")
	}

	completed, err := repo.CountCompletedReferrals(context.Background(), referrer.ID)
	if err != nil {
		t.Fatalf("CountCompletedReferrals returned error: %v", err)
	}
	if completed != 1 {
		t.Fatalf("expected 1 completed referral, got %d", completed)
	}
}

func TestLogin_BadReferralCodeDoesNotFailLogin(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, newAccount, _, err := svc.Login(context.Background(), domain.LoginRequest{
		InstagramUsername: "optimist",
		Password:          "optimist-pass",
		ReferralCode:      "REF-DOES-NOT-EXIST",
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !newAccount {
		t.Fatal("expected account to be created despite bad referral code")
	}
}

func errorsIsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
