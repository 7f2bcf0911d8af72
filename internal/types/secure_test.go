package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

const testSecret = "hydro-credential-secret-0001"

func TestSecretStringRedactsFormatting(t *testing.T) {
	s := SecretString(testSecret)

	for _, verb := range []string{"%s", "%v", "%+v"} {
		if out := fmt.Sprintf(verb, s); strings.Contains(out, testSecret) || out != redactedPlaceholder {
			t.Errorf("Sprintf(%q) = %q, want %q", verb, out, redactedPlaceholder)
		}
	}
}

func TestSecretStringMarshalJSON(t *testing.T) {
	cfg := struct {
		Secret SecretString `json:"secret"`
		Name   string       `json:"name"`
	}{Secret: SecretString(testSecret), Name: "api"}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), testSecret) {
		t.Fatalf("secret leaked: %s", data)
	}
	want := `{"secret":"` + redactedPlaceholder + `","name":"api"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestSecretStringUnmaskAndIsZero(t *testing.T) {
	s := SecretString(testSecret)
	if s.Unmask() != testSecret {
		t.Errorf("Unmask() = %q", s.Unmask())
	}
	if s.IsZero() {
		t.Error("non-empty secret reported zero")
	}
	if !SecretString("").IsZero() {
		t.Error("empty secret should be zero")
	}
	if SecretString("").String() != redactedPlaceholder {
		t.Error("empty secret should still render the placeholder")
	}
}
