package server

import (
	"fmt"
	"sync"
	"time"

	"skillmatch/internal/config"
	"skillmatch/internal/errors"
)

// VaultClientInterface defines the interface for Vault operations
type VaultClientInterface interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// KeysCallback receives the rotated server API keys
type KeysCallback func(keys []string)

// VaultWatcher polls the server keys secret and hands out the new key set
// whenever the KVv2 version moves forward.
type VaultWatcher struct {
	mu sync.RWMutex

	client       VaultClientInterface
	secretPath   string
	pollInterval time.Duration
	onKeys       KeysCallback
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastError   string
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client VaultClientInterface, secretPath string, pollInterval time.Duration, onKeys KeysCallback, logger *errors.Logger) *VaultWatcher {
	return &VaultWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		onKeys:       onKeys,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start begins polling Vault for secret changes
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}
	if vw.pollInterval <= 0 {
		return fmt.Errorf("vault poll interval must be positive")
	}
	vw.running = true
	go vw.pollLoop()
	vw.logger.Info("Vault key watcher started", "secret_path", vw.secretPath, "poll_interval", vw.pollInterval)
	return nil
}

// Stop stops the Vault watcher
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if !vw.running {
		return nil
	}
	close(vw.stopChan)
	vw.running = false
	vw.logger.Info("Vault key watcher stopped")
	return nil
}

func (vw *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := vw.poll(); err != nil {
				vw.logger.LogError(err, "Failed to check Vault for key rotation")
			}
		case <-vw.stopChan:
			return
		}
	}
}

// poll reads the secret once and applies it if its version is newer
func (vw *VaultWatcher) poll() error {
	secret, err := vw.client.GetSecretV2(vw.secretPath)
	if err != nil {
		vw.setLastError(err)
		return fmt.Errorf("failed to read secret: %w", err)
	}

	vw.mu.Lock()
	if secret.Version <= vw.lastVersion {
		vw.mu.Unlock()
		return nil
	}
	raw, _ := secret.Data["keys"].(string)
	keys := config.SplitKeys(raw)
	if len(keys) == 0 {
		vw.mu.Unlock()
		err := fmt.Errorf("secret %s version %d has no keys", vw.secretPath, secret.Version)
		vw.setLastError(err)
		return err
	}
	vw.lastVersion = secret.Version
	vw.lastError = ""
	vw.mu.Unlock()

	vw.logger.Info("Server API keys rotated", "version", secret.Version, "count", len(keys))
	vw.onKeys(keys)
	return nil
}

func (vw *VaultWatcher) setLastError(err error) {
	vw.mu.Lock()
	vw.lastError = err.Error()
	vw.mu.Unlock()
}

// Status returns the current status of the VaultWatcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	status := map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
	}
	if vw.lastError != "" {
		status["last_error"] = vw.lastError
	}
	return status
}
