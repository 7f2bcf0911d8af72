// Package credential decodes, verifies and issues site QR credentials and
// gates reading submission on them.
//
// A scanned token is run through an ordered list of Strategies (plain
// base64url JSON, then Fernet with a SHA256-derived key, then Fernet keyed
// with the raw secret). The first strategy that yields a schema-valid
// payload wins. The embedded validation hash is then recomputed; a mismatch
// is surfaced as IntegrityWarning rather than a rejection unless the Codec
// runs in strict mode.
package credential

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"hydrosnap/internal/types"
)

// Options configures a Codec.
type Options struct {
	// MaxTokenAge bounds the age of cipher tokens. Zero uses DefaultMaxTokenAge.
	MaxTokenAge time.Duration
	// StrictIntegrity rejects hash mismatches instead of flagging them.
	StrictIntegrity bool
	Logger          types.Logger
}

// Codec decodes credential tokens. It holds no mutable state and is safe
// for concurrent use.
type Codec struct {
	strategies []Strategy
	validate   *validator.Validate
	strict     bool
	logger     types.Logger
}

// NewCodec builds the standard strategy chain for secret. The raw-key
// strategy is only included when the secret can serve as a cipher key.
func NewCodec(secret types.SecretString, opts Options) *Codec {
	strategies := []Strategy{
		PlainStrategy{},
		NewDerivedKeyStrategy(secret.Unmask(), opts.MaxTokenAge),
	}
	if raw, err := NewRawKeyStrategy(secret.Unmask(), opts.MaxTokenAge); err == nil {
		strategies = append(strategies, raw)
	}
	return NewCodecWithStrategies(strategies, opts)
}

// NewCodecWithStrategies builds a Codec over an explicit strategy list.
func NewCodecWithStrategies(strategies []Strategy, opts Options) *Codec {
	logger := opts.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Codec{
		strategies: strategies,
		validate:   validator.New(),
		strict:     opts.StrictIntegrity,
		logger:     logger,
	}
}

// Decode returns the payload carried by token.
//
// Errors are *types.AppError with code credential_malformed when some
// strategy produced JSON that failed the schema, credential_unparseable
// when no strategy produced JSON at all, and credential_tampered when the
// hash mismatches in strict mode.
func (c *Codec) Decode(token string) (*types.SiteCredentialPayload, error) {
	var schemaErr error

	for _, s := range c.strategies {
		raw, err := s.Open(token)
		if err != nil {
			continue
		}
		payload, err := parsePayload(raw, c.validate)
		if errors.Is(err, errNotJSON) {
			continue
		}
		if err != nil {
			if schemaErr == nil {
				schemaErr = err
			}
			continue
		}

		if err := c.checkIntegrity(payload, s.Name()); err != nil {
			return nil, err
		}
		return payload, nil
	}

	if schemaErr != nil {
		return nil, schemaErr
	}
	return nil, types.NewAppError(types.ErrCodeCredentialUnparseable,
		"QR code could not be read; please rescan", nil)
}

func (c *Codec) checkIntegrity(p *types.SiteCredentialPayload, strategy string) error {
	expected := ValidationHash(p.SiteID, p.Name, p.Coordinates.Latitude, p.Coordinates.Longitude)
	if expected == p.ValidationHash {
		return nil
	}
	if c.strict {
		return types.NewAppErrorWithDetails(types.ErrCodeCredentialTampered,
			"QR code data failed its integrity check", nil,
			map[string]any{"site_id": p.SiteID})
	}
	p.IntegrityWarning = true
	c.logger.Warn("credential validation hash mismatch",
		"site_id", p.SiteID,
		"strategy", strategy,
	)
	return nil
}

// DecodeCredential decodes token with the default strategy chain for secret.
func DecodeCredential(token string, secret types.SecretString) (*types.SiteCredentialPayload, error) {
	return NewCodec(secret, Options{}).Decode(token)
}
