package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"skillmatch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

type fakeSecrets map[string]map[string]string

func (f fakeSecrets) GetStringSecret(path, key string) (string, error) {
	data, ok := f[path]
	if !ok {
		return "", fmt.Errorf("secret not found at path: %s", path)
	}
	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	return value, nil
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "test/path")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseKVv2(t *testing.T) {
	secret, err := parseKVv2(map[string]any{
		"data":     map[string]any{"api_key": "abc"},
		"metadata": map[string]any{"version": "3"},
	}, "secret/data/skillmatch")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
	assert.Equal(t, "abc", secret.Data["api_key"])

	_, err = parseKVv2(map[string]any{"api_key": "abc"}, "kv1/path")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = parseKVv2(map[string]any{"data": map[string]any{}}, "kv2/path")
	assert.ErrorContains(t, err, "missing 'metadata' field")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd****6789", maskSecret("abcdef0123456789"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}

func TestSplitKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitKeys(" a, b,,c "))
	assert.Empty(t, SplitKeys(""))
}

func TestApplySecrets(t *testing.T) {
	client := fakeSecrets{
		"secret/data/backend": {"api_key": "backend-key"},
		"secret/data/server":  {"keys": "k1, k2"},
	}

	cfg := &Config{Vault: VaultConfig{Enabled: true, Secrets: VaultSecrets{
		APIKey:     "secret/data/backend",
		ServerKeys: "secret/data/server",
	}}}
	require.NoError(t, applySecrets(client, cfg, newTestLogger()))
	assert.Equal(t, "backend-key", cfg.API.APIKey)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
}

func TestApplySecretsKeepsExistingOnEmpty(t *testing.T) {
	client := fakeSecrets{"secret/data/backend": {"api_key": ""}}
	cfg := &Config{
		API:   APIConfig{APIKey: "from-env"},
		Vault: VaultConfig{Secrets: VaultSecrets{APIKey: "secret/data/backend"}},
	}
	require.NoError(t, applySecrets(client, cfg, nil))
	assert.Equal(t, "from-env", cfg.API.APIKey)
}

func TestApplySecretsMissingKey(t *testing.T) {
	client := fakeSecrets{"secret/data/backend": {"other": "x"}}
	cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{APIKey: "secret/data/backend"}}}
	err := applySecrets(client, cfg, nil)
	assert.ErrorContains(t, err, "failed to load backend API key from vault")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, ApplyVaultSecrets(cfg, newTestLogger()))
}

func TestResolveVaultToken(t *testing.T) {
	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct"})
		require.NoError(t, err)
		assert.Equal(t, "direct", token)
	})

	t.Run("token from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("  from-file\n"), 0600))
		token, err := resolveVaultToken(VaultConfig{TokenFile: path})
		require.NoError(t, err)
		assert.Equal(t, "from-file", token)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{})
		assert.Error(t, err)
	})
}

func TestNewVaultClientDisabled(t *testing.T) {
	client, err := NewVaultClient(VaultConfig{Enabled: false}, newTestLogger())
	assert.NoError(t, err)
	assert.Nil(t, client)

	_, err = client.GetSecretV2("secret/data/x")
	assert.ErrorContains(t, err, "not initialized")
}
