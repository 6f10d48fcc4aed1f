package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"skillmatch/internal/api"
	"skillmatch/internal/config"
	"skillmatch/internal/controller"
	"skillmatch/internal/errors"
	"skillmatch/internal/observability"
	"skillmatch/internal/report"
)

const telemetryShutdownTimeout = 5 * time.Second

// session holds the backend client and telemetry shared by every command
// that talks to the analysis backend
type session struct {
	client *api.Client
	obs    *observability.ObservabilityManager
	logger *errors.Logger
}

func newSession(cfg *config.Config, logger *errors.Logger) (*session, error) {
	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return &session{
		client: api.NewClient(api.OptionsFromConfig(cfg), logger),
		obs:    om,
		logger: logger,
	}, nil
}

// newController builds a controller on top of the session's backend client
func (s *session) newController(cfg *config.Config, notifier controller.Notifier) *controller.Controller {
	return controller.New(controller.Options{
		Backend:  s.client,
		Notifier: notifier,
		Saver:    report.DirSaver{Dir: cfg.Report.OutputDir},
		Metrics:  s.obs.GetMetrics(),
		Logger:   s.logger,
	})
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := s.obs.Shutdown(ctx); err != nil {
		s.logger.LogError(err, "Failed to shut down telemetry")
	}
}

// writerNotifier prints user-facing messages, one per line
func writerNotifier(w io.Writer) controller.Notifier {
	return controller.NotifierFunc(func(message string) {
		fmt.Fprintln(w, message)
	})
}
