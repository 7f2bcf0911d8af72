package main

import (
	"encoding/hex"
	"testing"
)

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != tokenByteLength*2 {
		t.Errorf("len = %d, want %d", len(a), tokenByteLength*2)
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Errorf("token is not hex: %v", err)
	}
	if len(a) < minCredentialSecretLen {
		t.Error("generated token shorter than the credential secret minimum")
	}

	b, err := GenerateSecureToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Error("two generated tokens were identical")
	}
}
