package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// mockSSMClient records calls and returns configurable responses.
type mockSSMClient struct {
	getParameterFn func(ctx context.Context, input *ssm.GetParameterInput) (*ssm.GetParameterOutput, error)
	putParameterFn func(ctx context.Context, input *ssm.PutParameterInput) (*ssm.PutParameterOutput, error)

	getCalls []*ssm.GetParameterInput
	putCalls []*ssm.PutParameterInput
}

func (m *mockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	m.getCalls = append(m.getCalls, params)
	if m.getParameterFn != nil {
		return m.getParameterFn(ctx, params)
	}
	return &ssm.GetParameterOutput{}, nil
}

func (m *mockSSMClient) PutParameter(ctx context.Context, params *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	m.putCalls = append(m.putCalls, params)
	if m.putParameterFn != nil {
		return m.putParameterFn(ctx, params)
	}
	return &ssm.PutParameterOutput{Version: 1}, nil
}

func newTestSSMManager(mock *mockSSMClient, env string) (*SSMManager, *bytes.Buffer) {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewSSMManagerWithClient(mock, env, logger), logs
}

func TestSSMPath(t *testing.T) {
	tests := []struct {
		env, key, want string
	}{
		{"dev", "database/url", "/dev/hydrosnap/database/url"},
		{"prod", "credential/secret", "/prod/hydrosnap/credential/secret"},
		{"staging", "webhook/url", "/staging/hydrosnap/webhook/url"},
	}
	for _, tt := range tests {
		mgr, _ := newTestSSMManager(&mockSSMClient{}, tt.env)
		if got := mgr.SSMPath(tt.key); got != tt.want {
			t.Errorf("SSMPath(%q) in %s = %q, want %q", tt.key, tt.env, got, tt.want)
		}
	}
}

func TestParameterExists(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock := &mockSSMClient{}
		mgr, _ := newTestSSMManager(mock, "dev")

		exists, err := mgr.ParameterExists(context.Background(), "/dev/hydrosnap/database/url")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !exists {
			t.Error("expected parameter to exist")
		}
		if len(mock.getCalls) != 1 || aws.ToBool(mock.getCalls[0].WithDecryption) {
			t.Error("existence check must not request decryption")
		}
	})

	t.Run("not found", func(t *testing.T) {
		mock := &mockSSMClient{
			getParameterFn: func(context.Context, *ssm.GetParameterInput) (*ssm.GetParameterOutput, error) {
				return nil, &ssmtypes.ParameterNotFound{Message: aws.String("nope")}
			},
		}
		mgr, _ := newTestSSMManager(mock, "dev")

		exists, err := mgr.ParameterExists(context.Background(), "/dev/hydrosnap/x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exists {
			t.Error("expected parameter to be missing")
		}
	})

	t.Run("access denied", func(t *testing.T) {
		mock := &mockSSMClient{
			getParameterFn: func(context.Context, *ssm.GetParameterInput) (*ssm.GetParameterOutput, error) {
				return nil, errors.New("AccessDeniedException")
			},
		}
		mgr, _ := newTestSSMManager(mock, "dev")

		if _, err := mgr.ParameterExists(context.Background(), "/dev/hydrosnap/x"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestPutSecret_DoesNotLogValue(t *testing.T) {
	mock := &mockSSMClient{}
	mgr, logs := newTestSSMManager(mock, "dev")

	if err := mgr.PutSecret(context.Background(), "/dev/hydrosnap/credential/secret", "super-secret-value", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := mock.putCalls[0]
	if call.Type != ssmtypes.ParameterTypeSecureString {
		t.Errorf("type = %v, want SecureString", call.Type)
	}
	if aws.ToBool(call.Overwrite) {
		t.Error("overwrite should be false")
	}
	if strings.Contains(logs.String(), "super-secret-value") {
		t.Error("secret value leaked into logs")
	}
	if !strings.Contains(logs.String(), "value_length=18") {
		t.Errorf("expected value length in logs, got %q", logs.String())
	}
}

func TestPutString_Overwrites(t *testing.T) {
	mock := &mockSSMClient{}
	mgr, _ := newTestSSMManager(mock, "dev")

	if err := mgr.PutString(context.Background(), "/dev/hydrosnap/webhook/url", "https://hooks.example.com/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := mock.putCalls[0]
	if call.Type != ssmtypes.ParameterTypeString {
		t.Errorf("type = %v, want String", call.Type)
	}
	if !aws.ToBool(call.Overwrite) {
		t.Error("PutString should always overwrite")
	}
}

func TestPutParameter_RejectsEmpty(t *testing.T) {
	mock := &mockSSMClient{}
	mgr, _ := newTestSSMManager(mock, "dev")

	if err := mgr.PutSecret(context.Background(), "", "v", false); err == nil {
		t.Error("expected error for empty path")
	}
	if err := mgr.PutSecret(context.Background(), "/dev/hydrosnap/x", "", false); err == nil {
		t.Error("expected error for empty value")
	}
	if len(mock.putCalls) != 0 {
		t.Errorf("expected no put calls, got %d", len(mock.putCalls))
	}
}

func TestPutParameter_AlreadyExists(t *testing.T) {
	mock := &mockSSMClient{
		putParameterFn: func(context.Context, *ssm.PutParameterInput) (*ssm.PutParameterOutput, error) {
			return nil, &ssmtypes.ParameterAlreadyExists{Message: aws.String("exists")}
		},
	}
	mgr, _ := newTestSSMManager(mock, "dev")

	err := mgr.PutSecret(context.Background(), "/dev/hydrosnap/x", "v", false)
	var exists *ssmtypes.ParameterAlreadyExists
	if !errors.As(err, &exists) {
		t.Fatalf("expected ParameterAlreadyExists in chain, got %v", err)
	}
}
