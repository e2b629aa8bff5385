package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
)

func TestFileClaim_RecordsPendingClaim(t *testing.T) {
	repo := newFakeRepo()
	svc, publisher := newTestService(repo)
	account := seedAccount(t, repo, "depositor", "depositor-pw", "0.00")

	claim, err := svc.FileClaim(context.Background(), account.ID, domain.FileClaimRequest{
		Amount:          decimal.RequireFromString("500.00"),
		ReferenceNumber: "utr123456789012",
		Method:          "UPI",
	})
	if err != nil {
		t.Fatalf("FileClaim returned error: %v", err)
	}
	if claim.Status != domain.ClaimStatusPending {
		t.Fatalf("expected Pending status, got %s", claim.Status)
	}
	if claim.ReferenceNumber != "UTR123456789012" {
		t.Fatalf("expected uppercased reference, got %q", claim.ReferenceNumber)
	}
	if claim.Method != "upi" {
		t.Fatalf("expected normalized method upi, got %q", claim.Method)
	}

	// Filing must not touch the wallet.
	stored, _ := repo.FindAccountByID(context.Background(), account.ID)
	if !stored.Balance.IsZero() {
		t.Fatalf("expected zero balance after filing, got %s", stored.Balance)
	}

	keys := publisher.routingKeys()
	if len(keys) != 1 || keys[0] != domain.EventPaymentFiled {
		t.Fatalf("expected one payment-filed event, got %v", keys)
	}
}

func TestFileClaim_AcceptsShortBankReferences(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	account := seedAccount(t, repo, "shortref", "shortref-pw1", "0.00")

	claim, err := svc.FileClaim(context.Background(), account.ID, domain.FileClaimRequest{
		Amount:          decimal.RequireFromString("500.00"),
		ReferenceNumber: "utr123",
		Method:          "upi",
	})
	if err != nil {
		t.Fatalf("FileClaim returned error for short reference: %v", err)
	}
	if claim.Status != domain.ClaimStatusPending {
		t.Fatalf("expected Pending status, got %s", claim.Status)
	}
	if claim.ReferenceNumber != "UTR123" {
		t.Fatalf("expected uppercased reference UTR123, got %q", claim.ReferenceNumber)
	}

	// Short references still participate in duplicate detection.
	other := seedAccount(t, repo, "shortcopy", "shortcopy-pw", "0.00")
	_, err = svc.FileClaim(context.Background(), other.ID, domain.FileClaimRequest{
		Amount:          decimal.RequireFromString("500.00"),
		ReferenceNumber: "UTR123",
		Method:          "upi",
	})
	if !errors.Is(err, store.ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}
}

func TestFileClaim_Validation(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	account := seedAccount(t, repo, "filer", "filer-pass-1", "0.00")

	tests := []struct {
		name string
		req  domain.FileClaimRequest
	}{
		{"zero amount", domain.FileClaimRequest{Amount: decimal.Zero, ReferenceNumber: "UTR123456789012", Method: "upi"}},
		{"negative amount", domain.FileClaimRequest{Amount: decimal.RequireFromString("-5"), ReferenceNumber: "UTR123456789012", Method: "upi"}},
		{"empty reference", domain.FileClaimRequest{Amount: decimal.RequireFromString("10"), ReferenceNumber: "   ", Method: "upi"}},
		{"reference with symbols", domain.FileClaimRequest{Amount: decimal.RequireFromString("10"), ReferenceNumber: "UTR-12345678-9012", Method: "upi"}},
		{"unknown method", domain.FileClaimRequest{Amount: decimal.RequireFromString("10"), ReferenceNumber: "UTR123456789012", Method: "cash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.FileClaim(context.Background(), account.ID, tt.req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestFileClaim_DuplicateReferenceRejected(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	first := seedAccount(t, repo, "honest", "honest-pass1", "0.00")
	second := seedAccount(t, repo, "copycat", "copycat-pass", "0.00")

	req := domain.FileClaimRequest{
		Amount:          decimal.RequireFromString("100.00"),
		ReferenceNumber: "UTR999888777666",
		Method:          "imps",
	}
	if _, err := svc.FileClaim(context.Background(), first.ID, req); err != nil {
		t.Fatalf("first FileClaim returned error: %v", err)
	}
	_, err := svc.FileClaim(context.Background(), second.ID, req)
	if !errors.Is(err, store.ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}
}

func TestApproveClaim_CreditsWalletExactlyOnce(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	account := seedAccount(t, repo, "payer", "payer-pass-1", "0.00")

	claim, err := svc.FileClaim(context.Background(), account.ID, domain.FileClaimRequest{
		Amount:          decimal.RequireFromString("250.00"),
		ReferenceNumber: "UTR111222333444",
		Method:          "neft",
	})
	if err != nil {
		t.Fatalf("FileClaim returned error: %v", err)
	}

	approved, err := svc.ApproveClaim(context.Background(), claim.ID, "ops-1")
	if err != nil {
		t.Fatalf("ApproveClaim returned error: %v", err)
	}
	if approved.Status != domain.ClaimStatusApproved {
		t.Fatalf("expected Approved status, got %s", approved.Status)
	}
	if approved.ResolvedAt == nil {
		t.Fatal("expected resolved_at to be set")
	}

	stored, _ := repo.FindAccountByID(context.Background(), account.ID)
	if stored.Balance.StringFixed(2) != "250.00" {
		t.Fatalf("expected balance 250.00, got %s", stored.Balance.StringFixed(2))
	}

	// A second approval must not double-credit.
	_, err = svc.ApproveClaim(context.Background(), claim.ID, "ops-2")
	if !errors.Is(err, store.ErrClaimResolved) {
		t.Fatalf("expected ErrClaimResolved, got %v", err)
	}
	stored, _ = repo.FindAccountByID(context.Background(), account.ID)
	if stored.Balance.StringFixed(2) != "250.00" {
		t.Fatalf("expected balance still 250.00, got %s", stored.Balance.StringFixed(2))
	}
}

func TestRejectClaim_LeavesWalletUntouched(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	account := seedAccount(t, repo, "hopeful", "hopeful-pass", "5.00")

	claim, err := svc.FileClaim(context.Background(), account.ID, domain.FileClaimRequest{
		Amount:          decimal.RequireFromString("1000.00"),
		ReferenceNumber: "UTR555666777888",
		Method:          "rtgs",
	})
	if err != nil {
		t.Fatalf("FileClaim returned error: %v", err)
	}

	rejected, err := svc.RejectClaim(context.Background(), claim.ID, "ops-1")
	if err != nil {
		t.Fatalf("RejectClaim returned error: %v", err)
	}
	if rejected.Status != domain.ClaimStatusRejected {
		t.Fatalf("expected Rejected status, got %s", rejected.Status)
	}

	stored, _ := repo.FindAccountByID(context.Background(), account.ID)
	if stored.Balance.StringFixed(2) != "5.00" {
		t.Fatalf("expected balance unchanged at 5.00, got %s", stored.Balance.StringFixed(2))
	}

	// Approval after rejection must fail; the verdict is final.
	_, err = svc.ApproveClaim(context.Background(), claim.ID, "ops-2")
	if !errors.Is(err, store.ErrClaimResolved) {
		t.Fatalf("expected ErrClaimResolved, got %v", err)
	}
}

func TestResolveClaim_ConcurrentDecisionsPickOneWinner(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	account := seedAccount(t, repo, "contested", "contested-pw", "0.00")

	claim, err := svc.FileClaim(context.Background(), account.ID, domain.FileClaimRequest{
		Amount:          decimal.RequireFromString("100.00"),
		ReferenceNumber: "UTR000111222333",
		Method:          "upi",
	})
	if err != nil {
		t.Fatalf("FileClaim returned error: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		approve := i%2 == 0
		wg.Add(1)
		go func(approve bool) {
			defer wg.Done()
			var err error
			if approve {
				_, err = svc.ApproveClaim(context.Background(), claim.ID, "racer")
			} else {
				_, err = svc.RejectClaim(context.Background(), claim.ID, "racer")
			}
			results <- err
		}(approve)
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else if !errors.Is(err, store.ErrClaimResolved) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning decision, got %d", winners)
	}

	stored, _ := repo.FindAccountByID(context.Background(), account.ID)
	balance := stored.Balance.StringFixed(2)
	if balance != "0.00" && balance != "100.00" {
		t.Fatalf("expected balance 0.00 or 100.00, got %s", balance)
	}
}

func TestResolveClaim_UnknownClaim(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.ApproveClaim(context.Background(), uuid.New(), "ops-1")
	if !errors.Is(err, store.ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}
