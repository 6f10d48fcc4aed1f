package server

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"skillmatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockVaultClient struct {
	mu      sync.Mutex
	secrets map[string]*config.VaultSecret
	err     error
}

func (m *mockVaultClient) GetSecretV2(path string) (*config.VaultSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if secret, exists := m.secrets[path]; exists {
		return secret, nil
	}
	return nil, stderrors.New("secret not found at path: " + path)
}

func (m *mockVaultClient) set(path string, secret *config.VaultSecret) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[path] = secret
}

func TestVaultWatcherPollRotatesOnNewVersion(t *testing.T) {
	client := &mockVaultClient{secrets: map[string]*config.VaultSecret{
		"secret/data/keys": {Data: map[string]any{"keys": "a, b"}, Version: 2},
	}}
	var got [][]string
	vw := NewVaultWatcher(client, "secret/data/keys", time.Minute, func(keys []string) { got = append(got, keys) }, nil)

	require.NoError(t, vw.poll())
	require.NoError(t, vw.poll(), "same version is a no-op")
	assert.Equal(t, [][]string{{"a", "b"}}, got)

	client.set("secret/data/keys", &config.VaultSecret{Data: map[string]any{"keys": "c"}, Version: 3})
	require.NoError(t, vw.poll())
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, got)
	assert.Equal(t, int64(3), vw.Status()["last_version"])
}

func TestVaultWatcherRejectsEmptyKeys(t *testing.T) {
	client := &mockVaultClient{secrets: map[string]*config.VaultSecret{
		"secret/data/keys": {Data: map[string]any{"keys": " , "}, Version: 1},
	}}
	called := false
	vw := NewVaultWatcher(client, "secret/data/keys", time.Minute, func([]string) { called = true }, nil)

	assert.Error(t, vw.poll())
	assert.False(t, called, "an empty rotation must not lock everyone out")
	assert.Contains(t, vw.Status()["last_error"], "has no keys")
}

func TestVaultWatcherReadError(t *testing.T) {
	vw := NewVaultWatcher(&mockVaultClient{err: stderrors.New("sealed")}, "p", time.Minute, func([]string) {}, nil)
	assert.ErrorContains(t, vw.poll(), "sealed")
}

func TestVaultWatcherStartStop(t *testing.T) {
	client := &mockVaultClient{secrets: map[string]*config.VaultSecret{
		"p": {Data: map[string]any{"keys": "k1"}, Version: 1},
	}}
	rotated := make(chan []string, 1)
	vw := NewVaultWatcher(client, "p", 10*time.Millisecond, func(keys []string) {
		select {
		case rotated <- keys:
		default:
		}
	}, nil)

	require.NoError(t, vw.Start())
	assert.Error(t, vw.Start())

	select {
	case keys := <-rotated:
		assert.Equal(t, []string{"k1"}, keys)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never polled")
	}

	require.NoError(t, vw.Stop())
	assert.NoError(t, vw.Stop())
	assert.Equal(t, false, vw.Status()["running"])

	zero := NewVaultWatcher(client, "p", 0, func([]string) {}, nil)
	assert.Error(t, zero.Start())
}
