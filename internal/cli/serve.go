package cli

import (
	"skillmatch/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve one analysis session over HTTP",
	Long: `Start an HTTP server that drives a single analysis session.

Available endpoints:
- GET /state: Current view, plus pending notifications
- PUT /inputs/{group}/mode: Switch a group between file and text
- PUT /inputs/{group}/text: Replace a group's text
- POST /inputs/{group}/file: Upload a PDF (multipart field "file")
- DELETE /inputs/{group}/file: Clear the selected file
- POST /analyze: Submit both groups to the backend
- POST /skills/{name}: Open the learning resources modal for a missing skill
- POST /modal/close: Dismiss the modal
- GET /report: Download the PDF report
- GET /explain: Learning resources for every missing skill
- GET /health: Health check endpoint
- GET /stats: Backend client and rate limiting info`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	// flags override config only when given
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}

	sess, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.close()

	queue := server.NewNotificationQueue(0)
	serverCfg := server.ServerConfigFromConfig(cfg, Version)
	ctrl := sess.newController(cfg, queue)
	defer ctrl.Close()
	serverCfg.Controller = ctrl
	serverCfg.Notifications = queue
	serverCfg.Backend = sess.client
	serverCfg.Observability = sess.obs

	return server.NewServer(cfg, serverCfg, logger).Start(ctx)
}
