package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenByteLength is the entropy of generated secrets. Hex encoding doubles
// it to 64 characters, comfortably above CREDENTIAL_SECRET's minimum.
const tokenByteLength = 32

// GenerateSecureToken returns a random hex token. Generated values are
// written straight to SSM and never shown to the operator.
func GenerateSecureToken() (string, error) {
	buf := make([]byte, tokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secure token: crypto/rand failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
