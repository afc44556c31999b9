package krypto_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tmorioka/sharefood/internal/krypto"
)

func Test_Token_GenerateAndParse(t *testing.T) {
	t.Run("ok, round trip via string", func(t *testing.T) {
		tok, err := krypto.GenerateToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		got, err := krypto.ParseToken(tok.String())
		if err != nil {
			t.Fatalf("failed to parse token: %v", err)
		}

		if got != tok {
			t.Errorf("got %v, want %v", got, tok)
		}
	})

	t.Run("ok, two tokens differ", func(t *testing.T) {
		a, err := krypto.GenerateToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		b, err := krypto.GenerateToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		if a == b {
			t.Errorf("expected two generated tokens to differ")
		}
	})

	failTests := map[string]string{
		"fail, empty":     "",
		"fail, too short": "abcdef",
		"fail, too long":  strings.Repeat("ab", 33),
		"fail, non-hex":   strings.Repeat("zz", 32),
	}

	for name, raw := range failTests {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.ParseToken(raw)
			if !errors.Is(err, krypto.ErrInvalidToken) {
				t.Errorf("expected %v, got %v (via errors.Is)", krypto.ErrInvalidToken, err)
			}
		})
	}
}

func Test_Token_DoesNotLeakViaLogValue(t *testing.T) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	got := tok.LogValue().String()
	if got != krypto.SecretMarker {
		t.Errorf("got %q, want %q", got, krypto.SecretMarker)
	}
}

func Test_Key_ParseAndRedact(t *testing.T) {
	raw := strings.Repeat("ab", 32)

	k, err := krypto.ParseKey(raw)
	if err != nil {
		t.Fatalf("failed to parse key: %v", err)
	}

	if len(k.SecretValue()) != 32 {
		t.Errorf("got %d bytes, want 32", len(k.SecretValue()))
	}

	if got := fmt.Sprintf("%v", k); got != krypto.SecretMarker {
		t.Errorf("got %q, want %q", got, krypto.SecretMarker)
	}

	failTests := map[string]string{
		"fail, empty":     "",
		"fail, too short": "abcd",
		"fail, non-hex":   strings.Repeat("zz", 32),
	}

	for name, raw := range failTests {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.ParseKey(raw)
			if !errors.Is(err, krypto.ErrInvalidKey) {
				t.Errorf("expected %v, got %v (via errors.Is)", krypto.ErrInvalidKey, err)
			}
		})
	}
}
