package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/instaboost/storefront-service/internal/domain"
)

const testSecret = "test-session-secret"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("token mint failed: %v", err)
	}
	return token
}

func TestSessionAuthMiddleware(t *testing.T) {
	accountID := uuid.New()
	validClaims := jwt.MapClaims{
		"sub": accountID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not a bearer token", "Basic abc123", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + mintToken(t, "other-secret", validClaims), http.StatusUnauthorized},
		{"expired token", "Bearer " + mintToken(t, testSecret, jwt.MapClaims{
			"sub": accountID.String(),
			"exp": time.Now().Add(-time.Hour).Unix(),
		}), http.StatusUnauthorized},
		{"non-uuid subject", "Bearer " + mintToken(t, testSecret, jwt.MapClaims{
			"sub": "not-a-uuid",
			"exp": time.Now().Add(time.Hour).Unix(),
		}), http.StatusUnauthorized},
		{"valid token", "Bearer " + mintToken(t, testSecret, validClaims), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAccountID uuid.UUID
			handler := SessionAuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, ok := GetAccountID(r.Context())
				if !ok {
					t.Fatal("expected account ID in context")
				}
				gotAccountID = id
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK && gotAccountID != accountID {
				t.Fatalf("expected account ID %s in context, got %s", accountID, gotAccountID)
			}
		})
	}
}

func TestInternalAuthMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		requiredKey string
		providedKey string
		wantStatus  int
	}{
		{"no key configured passes through", "", "", http.StatusOK},
		{"missing key rejected", "secret-key", "", http.StatusUnauthorized},
		{"wrong key rejected", "secret-key", "wrong", http.StatusUnauthorized},
		{"matching key accepted", "secret-key", "secret-key", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := InternalAuthMiddleware(tt.requiredKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/operator/claims/"+uuid.NewString()+"/approve", nil)
			if tt.providedKey != "" {
				req.Header.Set("X-Internal-API-Key", tt.providedKey)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestMintSessionToken_RoundTrip(t *testing.T) {
	h := NewStorefrontHandlers(nil, testSecret, time.Hour)
	account := &domain.Account{ID: uuid.New(), UID: "UIDTESTACCT1"}

	token, err := h.mintSessionToken(account)
	if err != nil {
		t.Fatalf("mintSessionToken returned error: %v", err)
	}

	var gotAccountID uuid.UUID
	handler := SessionAuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccountID, _ = GetAccountID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected minted token to be accepted, got status %d", rec.Code)
	}
	if gotAccountID != account.ID {
		t.Fatalf("expected account ID %s, got %s", account.ID, gotAccountID)
	}
}
