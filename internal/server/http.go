// Package server exposes one analysis session over HTTP.
//
// A single controller backs the server, so every client sees and drives the
// same session: the same inputs, results and modal. Clients poll /state for
// the current ViewModel and any queued notifications.
package server

import (
	"sync"
	"time"

	"skillmatch/internal/config"
	"skillmatch/internal/controller"
	"skillmatch/internal/errors"
	"skillmatch/internal/observability"
	"skillmatch/internal/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StateResponse is the session snapshot plus notifications raised since the last poll
type StateResponse struct {
	types.ViewModel
	Notifications []string `json:"notifications,omitempty"`
}

// ModeRequest switches an input group between file and text
type ModeRequest struct {
	Mode types.Mode `json:"mode"`
}

// TextRequest replaces the pasted text of an input group
type TextRequest struct {
	Text string `json:"text"`
}

// ModalCloseRequest reports where a pointer event on the modal landed
type ModalCloseRequest struct {
	Target types.ClickTarget `json:"target"`
}

// BackendStatus reports the health of the analysis backend client
type BackendStatus interface {
	Stats() map[string]any
	IsHealthy() bool
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Session
	Controller    *controller.Controller
	Notifications *NotificationQueue
	Backend       BackendStatus

	// API Authentication, replaced by the key watcher on rotation
	keysMu  sync.RWMutex
	apiKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limits
	MaxRequestSize int64
	MaxFileSize    int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Observability *observability.ObservabilityManager
	KeyWatcher    *VaultWatcher

	// Logger
	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	MaxFileSize    int64
	RateLimit      *config.RateLimitConfig

	Controller    *controller.Controller
	Notifications *NotificationQueue
	Backend       BackendStatus
	Observability *observability.ObservabilityManager
}

// ServerConfigFromConfig fills the listener and limit settings from application config
func ServerConfigFromConfig(appCfg *config.Config, version string) ServerConfig {
	rateLimit := appCfg.Server.RateLimit
	return ServerConfig{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		APIKeys:        appCfg.Server.APIKeys,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.Server.MaxRequestSize,
		MaxFileSize:    appCfg.App.MaxFileSize,
		RateLimit:      &rateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *errors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	notifications := cfg.Notifications
	if notifications == nil {
		notifications = NewNotificationQueue(0)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		Controller:     cfg.Controller,
		Notifications:  notifications,
		Backend:        cfg.Backend,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		MaxFileSize:    cfg.MaxFileSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Observability:  cfg.Observability,
		Logger:         logger,
	}
	s.SetAPIKeys(cfg.APIKeys)
	return s
}

// SetAPIKeys replaces the accepted API keys. An empty set disables authentication.
func (s *Server) SetAPIKeys(keys []string) {
	keyMap := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			keyMap[key] = true
		}
	}
	s.keysMu.Lock()
	s.apiKeys = keyMap
	s.keysMu.Unlock()
}

// apiKeyState reports whether auth is on and whether key is accepted
func (s *Server) apiKeyState(key string) (enabled, valid bool) {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.apiKeys) > 0, s.apiKeys[key]
}

func (s *Server) apiKeyCount() int {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.apiKeys)
}
