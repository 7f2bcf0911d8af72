package config

import "context"

// SecretProvider resolves secret pointers. SSMProvider serves deployed
// environments; EnvVarProvider serves local runs and tests.
type SecretProvider interface {
	// GetParametersBatch returns the values for keys. Keys that do not
	// resolve are absent from the map.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
