package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeConnector struct {
	err   error
	calls int
}

func (f *fakeConnector) Connect(context.Context, string) error {
	f.calls++
	return f.err
}

func TestValidateDatabaseURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		connErr   error
		wantValid bool
		wantCalls int
		wantMsg   string
	}{
		{"valid", "postgres://u:p@db.internal:5432/hydrosnap", nil, true, 1, "db.internal"},
		{"postgresql scheme", "postgresql://u:p@db.internal/hydrosnap", nil, true, 1, "verified"},
		{"wrong scheme", "mysql://u:p@db/hydrosnap", nil, false, 0, "scheme"},
		{"no host", "postgres:///hydrosnap", nil, false, 0, "no host"},
		{"connect fails", "postgres://u:p@db/hydrosnap", errors.New("password authentication failed"), false, 1, "connection failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConnector{err: tt.connErr}
			v := NewValidatorWithDeps(conn)

			res := v.ValidateDatabaseURL(context.Background(), tt.url)
			if res.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (%s)", res.Valid, tt.wantValid, res.Message)
			}
			if conn.calls != tt.wantCalls {
				t.Errorf("connect calls = %d, want %d", conn.calls, tt.wantCalls)
			}
			if !strings.Contains(res.Message, tt.wantMsg) {
				t.Errorf("message %q does not contain %q", res.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateCredentialSecret(t *testing.T) {
	v := NewValidatorWithDeps(nil)

	if res := v.ValidateCredentialSecret(context.Background(), "short"); res.Valid {
		t.Error("expected short secret to be rejected")
	}
	if res := v.ValidateCredentialSecret(context.Background(), "   padded    "); res.Valid {
		t.Error("expected whitespace not to count toward length")
	}
	if res := v.ValidateCredentialSecret(context.Background(), "0123456789abcdef"); !res.Valid {
		t.Errorf("expected 16-char secret to pass: %s", res.Message)
	}
}

func TestValidateWebhookURL(t *testing.T) {
	v := NewValidatorWithDeps(nil)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://hooks.example.com/alerts", true},
		{"http://hooks.example.com/alerts", false},
		{"hooks.example.com/alerts", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if res := v.ValidateWebhookURL(context.Background(), tt.url); res.Valid != tt.want {
			t.Errorf("ValidateWebhookURL(%q) = %v, want %v (%s)", tt.url, res.Valid, tt.want, res.Message)
		}
	}
}
