package utils

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"
)

func TestGenerateCardNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		number, err := GenerateCardNumber("400000", 16)
		if err != nil {
			t.Fatalf("GenerateCardNumber: %v", err)
		}
		if len(number) != 16 {
			t.Fatalf("card number length = %d, want 16", len(number))
		}
		if !strings.HasPrefix(number, "400000") {
			t.Errorf("card number %s missing prefix", number)
		}
		if !ValidCardNumber(number) {
			t.Errorf("card number %s fails the Luhn check", number)
		}
	}
}

func TestGenerateCardNumberRejectsBadLength(t *testing.T) {
	if _, err := GenerateCardNumber("400000", 6); err == nil {
		t.Error("expected error when length does not exceed prefix")
	}
	if _, err := GenerateCardNumber("400000", 20); err == nil {
		t.Error("expected error for lengths over 19")
	}
}

func TestValidCardNumber(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"4111111111111111", true},
		{"4111111111111112", false},
		{"", false},
		{"4111a11111111111", false},
	}
	for _, tc := range tests {
		if got := ValidCardNumber(tc.number); got != tc.want {
			t.Errorf("ValidCardNumber(%q) = %v, want %v", tc.number, got, tc.want)
		}
	}
}

func TestGenerateExpiryDate(t *testing.T) {
	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	if got := GenerateExpiryDate(now); got != "03/27" {
		t.Errorf("expiry = %s, want 03/27", got)
	}
}

func TestMaskCardNumber(t *testing.T) {
	if got := MaskCardNumber("4111111111111111"); got != "************1111" {
		t.Errorf("masked = %s", got)
	}
	if got := MaskCardNumber("123"); got != "123" {
		t.Errorf("short numbers pass through, got %s", got)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := hex.DecodeString("a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6")
	if err != nil {
		t.Fatal(err)
	}

	for _, plaintext := range []string{"4111111111111111", "03/27", "x"} {
		encrypted, err := Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if encrypted == plaintext {
			t.Errorf("ciphertext equals plaintext for %q", plaintext)
		}
		decrypted, err := Decrypt(encrypted, key)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip = %q, want %q", decrypted, plaintext)
		}
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	key := make([]byte, 32)
	if _, err := Decrypt("not-hex", key); err == nil {
		t.Error("expected error for non-hex input")
	}
	if _, err := Decrypt("abcd", key); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestGenerateHMACIsDeterministic(t *testing.T) {
	a := GenerateHMAC("4111111111111111", "03/27", "123", "secret")
	b := GenerateHMAC("4111111111111111", "03/27", "123", "secret")
	if a != b {
		t.Error("HMAC not deterministic for identical inputs")
	}
	if a == GenerateHMAC("4111111111111111", "03/27", "124", "secret") {
		t.Error("HMAC unchanged for different CVV")
	}
}
