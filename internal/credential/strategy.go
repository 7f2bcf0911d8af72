package credential

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fernet/fernet-go"
	"github.com/klauspost/compress/zlib"
)

// Strategy turns a scanned token into candidate JSON plaintext. Strategies
// are tried in order by the Codec; each one is independently testable and
// new ones can be appended without touching callers.
type Strategy interface {
	Name() string
	Open(token string) ([]byte, error)
}

// maxInflatedSize bounds zlib output so a hostile token cannot balloon.
const maxInflatedSize = 64 << 10

// DefaultMaxTokenAge is how old a cipher token may be before Fernet rejects
// it. Payload expiry is enforced separately by the Validator.
const DefaultMaxTokenAge = 5 * 365 * 24 * time.Hour

// PlainStrategy reads the token as base64url-encoded JSON.
type PlainStrategy struct{}

// Name implements Strategy.
func (PlainStrategy) Name() string { return "base64url" }

// Open repairs URL-safe substitutions and padding, then decodes.
func (PlainStrategy) Open(token string) ([]byte, error) {
	raw, err := decodeBase64URL(token)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		return nil, errors.New("decoded token is not UTF-8 text")
	}
	return raw, nil
}

// CipherStrategy decrypts a Fernet token with a fixed key and inflates the
// plaintext when it carries a zlib header.
type CipherStrategy struct {
	name   string
	key    *fernet.Key
	maxAge time.Duration
}

// NewDerivedKeyStrategy keys the cipher with SHA256(secret).
func NewDerivedKeyStrategy(secret string, maxAge time.Duration) *CipherStrategy {
	var k fernet.Key
	sum := sha256.Sum256([]byte(secret))
	copy(k[:], sum[:])
	return &CipherStrategy{name: "fernet-sha256", key: &k, maxAge: normalizeAge(maxAge)}
}

// NewRawKeyStrategy uses the secret itself as the cipher key, either as an
// encoded Fernet key or as 32 raw bytes. Older credentials were issued this
// way.
func NewRawKeyStrategy(secret string, maxAge time.Duration) (*CipherStrategy, error) {
	k, err := fernet.DecodeKey(secret)
	if err != nil {
		if len(secret) != len(fernet.Key{}) {
			return nil, fmt.Errorf("credential: secret is not usable as a raw cipher key: %w", err)
		}
		k = new(fernet.Key)
		copy(k[:], secret)
	}
	return &CipherStrategy{name: "fernet-raw", key: k, maxAge: normalizeAge(maxAge)}, nil
}

// Name implements Strategy.
func (s *CipherStrategy) Name() string { return s.name }

// Open verifies and decrypts the token.
func (s *CipherStrategy) Open(token string) ([]byte, error) {
	tok := []byte(strings.TrimSpace(token))
	msg := fernet.VerifyAndDecrypt(tok, s.maxAge, []*fernet.Key{s.key})
	if msg == nil {
		return nil, errors.New("token failed cipher verification")
	}
	return maybeInflate(msg)
}

// Seal encrypts plaintext under this strategy's key.
func (s *CipherStrategy) Seal(plaintext []byte) (string, error) {
	tok, err := fernet.EncryptAndSign(plaintext, s.key)
	if err != nil {
		return "", fmt.Errorf("credential: encrypt: %w", err)
	}
	return string(tok), nil
}

func normalizeAge(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultMaxTokenAge
	}
	return d
}

// decodeBase64URL accepts standard or URL-safe alphabets, with or without
// padding, and tolerates surrounding whitespace.
func decodeBase64URL(token string) ([]byte, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return nil, errors.New("empty token")
	}
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	s = strings.TrimRight(s, "=")
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("token is not base64url: %w", err)
	}
	return raw, nil
}

// maybeInflate decompresses b when it starts with a zlib header; any other
// plaintext is returned unchanged.
func maybeInflate(b []byte) ([]byte, error) {
	if !hasZlibHeader(b) {
		return b, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("inflate plaintext: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxInflatedSize+1))
	if err != nil {
		return nil, fmt.Errorf("inflate plaintext: %w", err)
	}
	if len(out) > maxInflatedSize {
		return nil, errors.New("inflated plaintext exceeds size limit")
	}
	return out, nil
}

// hasZlibHeader checks the RFC 1950 CMF/FLG pair: deflate method and a
// header checksum divisible by 31.
func hasZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
