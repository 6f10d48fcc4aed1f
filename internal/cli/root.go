package cli

import (
	"context"

	"skillmatch/internal/config"
	"skillmatch/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "skillmatch",
	Short: "Compare a resume against a job description",
	Long: `Skillmatch sends a resume and a job description to the analysis backend,
shows the match score with matched and missing skills, looks up learning
resources for missing skills and exports the result as a PDF report.`,
	SilenceUsage: true,
}

// Execute runs the command tree with cfg and logger available to every subcommand
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = withDeps(ctx, cfg, logger)
	rootCmd.SetContext(ctx)
	// cobra only hands the root context to subcommands that have none yet
	for _, sub := range rootCmd.Commands() {
		sub.SetContext(ctx)
	}
	return rootCmd.Execute()
}

func withDeps(ctx context.Context, cfg *config.Config, logger *errors.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey, cfg)
	return context.WithValue(ctx, loggerKey, logger)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
