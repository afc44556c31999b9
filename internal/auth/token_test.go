package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tmorioka/sharefood/internal/auth"
	"github.com/tmorioka/sharefood/internal/email"
	"github.com/tmorioka/sharefood/internal/krypto"
)

func Test_GenerateVerificationToken(t *testing.T) {
	addr := must(email.ParseAddress("alice@example.com"))
	now := time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC)

	t.Run("ok, round-trips through parse", func(t *testing.T) {
		token, err := auth.GenerateVerificationToken(addr, now)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		parsed, err := auth.ParseVerificationToken(string(token))
		if err != nil {
			t.Fatalf("failed to parse token: %v", err)
		}

		if parsed != token {
			t.Errorf("got %v, want %v", parsed, token)
		}
	})

	t.Run("ok, tokens are unique", func(t *testing.T) {
		// Identical inputs still produce different tokens because of
		// the random component.
		a, err := auth.GenerateVerificationToken(addr, now)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		b, err := auth.GenerateVerificationToken(addr, now)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		if a == b {
			t.Errorf("expected two generated tokens to differ")
		}
	})
}

func Test_ParseVerificationToken(t *testing.T) {
	failCases := map[string]string{
		"empty":          "",
		"too short":      "abcdef",
		"too long":       "4ca7a87b3afcd1f15d2f6bb7fb7a4e32fba62d60bad26f67467dc5688659bcb3aa",
		"not hex":        "zz<7a87b3afcd1f15d2f6bb7fb7a4e32fba62d60bad26f67467dc5688659bcb3",
		"right len only": "................................................................",
	}

	for name, raw := range failCases {
		t.Run("fail, "+name, func(t *testing.T) {
			_, err := auth.ParseVerificationToken(raw)
			if !errors.Is(err, auth.ErrTokenInvalid) {
				t.Errorf("expected %v, but got %v (via errors.Is)", auth.ErrTokenInvalid, err)
			}
		})
	}
}

func Test_VerificationToken_LogValue(t *testing.T) {
	token, err := auth.GenerateVerificationToken(must(email.ParseAddress("alice@example.com")), time.Now())
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if got := token.LogValue().String(); got != krypto.SecretMarker {
		t.Errorf("expected log value to be redacted, got %s", got)
	}
}
