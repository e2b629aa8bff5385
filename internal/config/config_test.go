package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{"SERVER_PORT", "PORT", "SIGNUP_BONUS", "REFERRAL_THRESHOLD", "DISCOUNT_PERCENT", "SESSION_TTL_HOURS"} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.SignupBonus != "10.00" {
		t.Fatalf("expected default signup bonus 10.00, got %q", cfg.SignupBonus)
	}
	if cfg.ReferralThreshold != 5 {
		t.Fatalf("expected default referral threshold 5, got %d", cfg.ReferralThreshold)
	}
	if cfg.DiscountPercent != 50 {
		t.Fatalf("expected default discount percent 50, got %d", cfg.DiscountPercent)
	}
	if cfg.SessionTTLHours != 72 {
		t.Fatalf("expected default session TTL 72h, got %d", cfg.SessionTTLHours)
	}
	if cfg.OperatorDecisionQueue != "storefront_service.operator_decisions" {
		t.Fatalf("unexpected default decision queue %q", cfg.OperatorDecisionQueue)
	}
}

func TestLoadConfig_UsesStorefrontServiceInternalAPIKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "INTERNAL_API_KEY")
	setEnvWithCleanup(t, "STOREFRONT_SERVICE_INTERNAL_API_KEY", "alias-only-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InternalAPIKey != "alias-only-key" {
		t.Fatalf("expected InternalAPIKey from alias env var, got %q", cfg.InternalAPIKey)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9999")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9999" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_InvalidSignupBonusFallsBack(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SIGNUP_BONUS", "not-a-number")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SignupBonus != "10.00" {
		t.Fatalf("expected fallback bonus 10.00, got %q", cfg.SignupBonus)
	}
}

func TestLoadConfig_DiscountPercentOutOfRangeFallsBack(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "DISCOUNT_PERCENT", "150")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DiscountPercent != 50 {
		t.Fatalf("expected fallback discount 50, got %d", cfg.DiscountPercent)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		}
	})
}
