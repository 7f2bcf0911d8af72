package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// mockGetParameterExisting reports ParameterNotFound for paths not in existing.
func mockGetParameterExisting(existing map[string]bool) func(context.Context, *ssm.GetParameterInput) (*ssm.GetParameterOutput, error) {
	return func(_ context.Context, input *ssm.GetParameterInput) (*ssm.GetParameterOutput, error) {
		path := aws.ToString(input.Name)
		if existing[path] {
			return &ssm.GetParameterOutput{
				Parameter: &ssmtypes.Parameter{Name: aws.String(path), Value: aws.String("***")},
			}, nil
		}
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("not found")}
	}
}

func newBootstrapTestRunner(mock *mockSSMClient, stdin string) (*BootstrapRunner, *bytes.Buffer) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stderr := &bytes.Buffer{}
	return &BootstrapRunner{
		SSM:       NewSSMManagerWithClient(mock, "dev", logger),
		Validator: NewValidatorWithDeps(&fakeConnector{}),
		Stdin:     strings.NewReader(stdin),
		Stderr:    stderr,
	}, stderr
}

func alwaysValid(context.Context, string) ValidationResult {
	return ValidationResult{Valid: true, Message: "ok"}
}

func testStep() BootstrapStep {
	return BootstrapStep{
		HumanLabel:     "Test Key",
		SSMCategoryKey: "test/key",
		EnvVar:         "TEST_KEY",
		ParamType:      ParamSecureString,
		Source:         SourcePrompt,
		Prompt:         "Enter test key:",
		IsSecret:       true,
		ValidateFn:     alwaysValid,
	}
}

func TestBuildInventory(t *testing.T) {
	inv := BuildInventory(NewValidatorWithDeps(&fakeConnector{}))

	want := map[string]string{
		"database/url":      "DATABASE_URL",
		"credential/secret": "CREDENTIAL_SECRET",
		"redis/password":    "REDIS_PASSWORD",
		"webhook/url":       "ALERT_WEBHOOK_URL",
		"webhook/secret":    "ALERT_WEBHOOK_SECRET",
	}
	if len(inv) != len(want) {
		t.Fatalf("inventory has %d steps, want %d", len(inv), len(want))
	}
	for _, step := range inv {
		env, ok := want[step.SSMCategoryKey]
		if !ok {
			t.Errorf("unexpected step %q", step.SSMCategoryKey)
			continue
		}
		if step.EnvVar != env {
			t.Errorf("%s: EnvVar = %q, want %q", step.SSMCategoryKey, step.EnvVar, env)
		}
		if step.Source == SourceGenerated && step.Prompt != "" {
			t.Errorf("%s: generated step should have no prompt", step.SSMCategoryKey)
		}
		if step.IsSecret && step.ParamType != ParamSecureString {
			t.Errorf("%s: secret step must be SecureString", step.SSMCategoryKey)
		}
	}
	if inv[0].SSMCategoryKey != "database/url" || inv[1].SSMCategoryKey != "credential/secret" {
		t.Error("database and credential secret must be collected first")
	}
}

func TestProcessStep_NewParameterWritten(t *testing.T) {
	mock := &mockSSMClient{getParameterFn: mockGetParameterExisting(nil)}
	runner, _ := newBootstrapTestRunner(mock, "my-secret-value\n")

	res, err := runner.processStep(context.Background(), testStep())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "written" {
		t.Errorf("action = %q, want written", res.Action)
	}
	if len(mock.putCalls) != 1 {
		t.Fatalf("expected 1 put call, got %d", len(mock.putCalls))
	}
	call := mock.putCalls[0]
	if aws.ToString(call.Name) != "/dev/hydrosnap/test/key" {
		t.Errorf("put path = %q", aws.ToString(call.Name))
	}
	if aws.ToString(call.Value) != "my-secret-value" {
		t.Errorf("put value = %q", aws.ToString(call.Value))
	}
	if aws.ToBool(call.Overwrite) {
		t.Error("overwrite should be false for a new parameter")
	}
}

func TestProcessStep_ExistingSkipped(t *testing.T) {
	mock := &mockSSMClient{getParameterFn: mockGetParameterExisting(map[string]bool{"/dev/hydrosnap/test/key": true})}
	runner, _ := newBootstrapTestRunner(mock, "s\n")

	res, err := runner.processStep(context.Background(), testStep())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "skipped" {
		t.Errorf("action = %q, want skipped", res.Action)
	}
	if len(mock.putCalls) != 0 {
		t.Error("skipped parameter must not be written")
	}
}

func TestProcessStep_ExistingOverwritten(t *testing.T) {
	mock := &mockSSMClient{getParameterFn: mockGetParameterExisting(map[string]bool{"/dev/hydrosnap/test/key": true})}
	runner, _ := newBootstrapTestRunner(mock, "maybe\no\nnew-value\n")

	res, err := runner.processStep(context.Background(), testStep())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "overwritten" {
		t.Errorf("action = %q, want overwritten", res.Action)
	}
	if !aws.ToBool(mock.putCalls[0].Overwrite) {
		t.Error("overwrite flag should be set")
	}
}

func TestProcessStep_Generated(t *testing.T) {
	mock := &mockSSMClient{getParameterFn: mockGetParameterExisting(nil)}
	runner, stderr := newBootstrapTestRunner(mock, "")

	step := testStep()
	step.Source = SourceGenerated
	step.Prompt = ""

	res, err := runner.processStep(context.Background(), step)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "generated" {
		t.Errorf("action = %q, want generated", res.Action)
	}
	value := aws.ToString(mock.putCalls[0].Value)
	if len(value) != tokenByteLength*2 {
		t.Errorf("generated value length = %d", len(value))
	}
	if strings.Contains(stderr.String(), value) {
		t.Error("generated value must not be printed")
	}
}

func TestProcessStep_ValidationRetry(t *testing.T) {
	mock := &mockSSMClient{getParameterFn: mockGetParameterExisting(nil)}
	runner, stderr := newBootstrapTestRunner(mock, "bad\ngood\n")

	step := testStep()
	step.ValidateFn = func(_ context.Context, in string) ValidationResult {
		return ValidationResult{Valid: in == "good", Message: "checked"}
	}

	if _, err := runner.processStep(context.Background(), step); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(mock.putCalls[0].Value) != "good" {
		t.Errorf("stored %q, want good", aws.ToString(mock.putCalls[0].Value))
	}
	if !strings.Contains(stderr.String(), "Validation failed") {
		t.Error("expected a validation failure message")
	}
}

func TestProcessStep_MaxRetriesExceeded(t *testing.T) {
	mock := &mockSSMClient{getParameterFn: mockGetParameterExisting(nil)}
	runner, _ := newBootstrapTestRunner(mock, strings.Repeat("bad\n", maxRetries))

	step := testStep()
	step.ValidateFn = func(context.Context, string) ValidationResult {
		return ValidationResult{Message: "never"}
	}

	_, err := runner.processStep(context.Background(), step)
	if err == nil || !strings.Contains(err.Error(), "maximum retries") {
		t.Fatalf("expected max retries error, got %v", err)
	}
	if len(mock.putCalls) != 0 {
		t.Error("nothing should be written")
	}
}

func TestProcessStep_EmptyInput(t *testing.T) {
	t.Run("required retries then skips", func(t *testing.T) {
		mock := &mockSSMClient{getParameterFn: mockGetParameterExisting(nil)}
		runner, _ := newBootstrapTestRunner(mock, "\nr\n\ns\n")

		res, err := runner.processStep(context.Background(), testStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Action != "skipped" {
			t.Errorf("action = %q, want skipped", res.Action)
		}
	})

	t.Run("optional skips immediately", func(t *testing.T) {
		mock := &mockSSMClient{getParameterFn: mockGetParameterExisting(nil)}
		runner, _ := newBootstrapTestRunner(mock, "\n")

		step := testStep()
		step.Optional = true
		res, err := runner.processStep(context.Background(), step)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Action != "skipped" {
			t.Errorf("action = %q, want skipped", res.Action)
		}
		if len(mock.putCalls) != 0 {
			t.Error("nothing should be written")
		}
	})
}

func TestProcessStep_SSMErrors(t *testing.T) {
	t.Run("existence check", func(t *testing.T) {
		mock := &mockSSMClient{
			getParameterFn: func(context.Context, *ssm.GetParameterInput) (*ssm.GetParameterOutput, error) {
				return nil, errors.New("throttled")
			},
		}
		runner, _ := newBootstrapTestRunner(mock, "v\n")
		if _, err := runner.processStep(context.Background(), testStep()); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("write", func(t *testing.T) {
		mock := &mockSSMClient{
			getParameterFn: mockGetParameterExisting(nil),
			putParameterFn: func(context.Context, *ssm.PutParameterInput) (*ssm.PutParameterOutput, error) {
				return nil, errors.New("kms key disabled")
			},
		}
		runner, _ := newBootstrapTestRunner(mock, "v\n")
		if _, err := runner.processStep(context.Background(), testStep()); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestPromptChoice_EOF(t *testing.T) {
	runner, _ := newBootstrapTestRunner(&mockSSMClient{}, "")
	if _, err := runner.promptChoice("? ", "skip", "overwrite"); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadSecretInput_NonTerminal(t *testing.T) {
	runner, _ := newBootstrapTestRunner(&mockSSMClient{}, "piped-secret\n")
	got, err := runner.readSecretInput("> ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "piped-secret" {
		t.Errorf("got %q", got)
	}
}

func TestRun_SummaryListsSSMParamPointers(t *testing.T) {
	mock := &mockSSMClient{getParameterFn: mockGetParameterExisting(map[string]bool{
		"/dev/hydrosnap/redis/password": true,
	})}

	inv := BuildInventory(NewValidatorWithDeps(&fakeConnector{}))
	for i := range inv {
		if inv[i].ValidateFn != nil {
			inv[i].ValidateFn = alwaysValid
		}
	}

	// database url, credential secret, skip existing redis password, webhook url.
	stdin := "postgres://u:p@db/hydrosnap\n0123456789abcdef\ns\nhttps://hooks.example.com\n"
	runner, stderr := newBootstrapTestRunner(mock, stdin)
	runner.inventoryOverride = inv

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.putCalls) != 4 {
		t.Errorf("put calls = %d, want 4", len(mock.putCalls))
	}

	out := stderr.String()
	for _, line := range []string{
		"DATABASE_URL_SSM_PARAM=/dev/hydrosnap/database/url",
		"CREDENTIAL_SECRET_SSM_PARAM=/dev/hydrosnap/credential/secret",
		"ALERT_WEBHOOK_URL_SSM_PARAM=/dev/hydrosnap/webhook/url",
		"ALERT_WEBHOOK_SECRET_SSM_PARAM=/dev/hydrosnap/webhook/secret",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("summary missing %q", line)
		}
	}
	if strings.Contains(out, "REDIS_PASSWORD_SSM_PARAM") {
		t.Error("skipped parameter should not be listed")
	}
	if strings.Contains(out, "0123456789abcdef") {
		t.Error("secret input echoed to output")
	}
}
