package cli

import (
	"context"
	"fmt"
	"time"

	"skillmatch/internal/common"
	"skillmatch/internal/controller"
	"skillmatch/internal/errors"
	"skillmatch/internal/types"
	"skillmatch/internal/watch"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Match a resume against a job description",
	Long: `Send a resume and a job description to the analysis backend and print
the match score with the matched and missing skills.

Each side is given either as a PDF or as text:
  --resume-pdf | --resume-text | --resume-text-file
  --jd-pdf     | --jd-text     | --jd-text-file

Use --explain-missing to look up learning resources for every missing skill,
--export to save the PDF report, and --watch to re-run the analysis whenever
an input file changes.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(analyzeOpts.Output.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		analyzeOpts.Output.OutputFormat = format
		return nil
	},
	RunE: runAnalyze,
}

type analyzeOptions struct {
	Inputs         inputFlags
	Output         common.CommandConfig
	Export         bool
	ExplainMissing bool
	ExplainLimit   int
	Watch          bool
}

var analyzeOpts analyzeOptions

func init() {
	analyzeOpts.Inputs.register(analyzeCmd)

	flags := analyzeCmd.Flags()
	flags.StringVarP(&analyzeOpts.Output.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	flags.StringVar(&analyzeOpts.Output.OutputFormat, "format", "", "Output format: json, text, or markdown")
	flags.BoolVar(&analyzeOpts.Export, "export", false, "Save the PDF report into report.outputDir")
	flags.BoolVar(&analyzeOpts.ExplainMissing, "explain-missing", false, "Look up learning resources for each missing skill")
	flags.IntVar(&analyzeOpts.ExplainLimit, "explain-limit", controller.DefaultExplainLimit, "Concurrent skill lookups for --explain-missing")
	flags.BoolVar(&analyzeOpts.Watch, "watch", false, "Re-run the analysis when an input file changes")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)
	opts := analyzeOpts

	sess, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.close()

	ctrl := sess.newController(cfg, writerNotifier(cmd.ErrOrStderr()))
	defer ctrl.Close()
	loader := inputLoader{
		files:   common.NewFileProcessor(logger, cfg.App.MaxFileSize),
		maxSize: cfg.App.MaxFileSize,
	}
	for _, id := range []types.GroupID{types.GroupResume, types.GroupJobDescription} {
		g, _ := ctrl.Group(id)
		if err := loader.load(g, opts.Inputs.get(id)); err != nil {
			return err
		}
	}

	run := func(ctx context.Context) error {
		return analyzeAndPrint(ctx, cmd, sess, ctrl, opts)
	}

	if !opts.Watch {
		return run(ctx)
	}
	return watchAndRerun(ctx, ctrl, loader, opts.Inputs, cfg.Watch.DebounceDelay, run, logger)
}

// analyzeAndPrint submits the loaded inputs once and writes the outcome
func analyzeAndPrint(ctx context.Context, cmd *cobra.Command, sess *session, ctrl *controller.Controller, opts analyzeOptions) error {
	ctx, span := sess.obs.Tracer("skillmatch/cli").Start(ctx, "cli.analyze")
	defer span.End()

	logger := sess.logger
	operation := func(ctx context.Context) (any, error) {
		if err := ctrl.Submit(ctx); err != nil {
			return nil, err
		}
		if opts.ExplainMissing {
			return ctrl.ExplainMissing(ctx, opts.ExplainLimit)
		}
		result, _ := ctrl.CurrentResult()
		return result, nil
	}
	logDetails := func(c common.CommandConfig) {
		logger.Info("Analyzing resume against job description",
			"format", c.OutputFormat,
			"output", c.OutputFile,
			"explain_missing", opts.ExplainMissing)
	}

	out := common.NewOutputHandlerWithWriter(logger, cmd.OutOrStdout())
	if err := common.RunCommand(ctx, logger, opts.Output, out, operation, logDetails); err != nil {
		span.RecordError(err)
		return err
	}

	if result, ok := ctrl.CurrentResult(); ok {
		span.SetAttributes(
			attribute.Float64("match.score", result.Score),
			attribute.Int("skills.missing", len(result.MissingSkills)))
	}

	if opts.Export {
		location, err := ctrl.ExportReport(ctx)
		if err != nil {
			span.RecordError(err)
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", location)
	}
	return nil
}

// watchAndRerun runs once, then reloads changed input files and runs again
// until ctx is cancelled. Failed runs are logged and do not stop the loop.
func watchAndRerun(ctx context.Context, ctrl *controller.Controller, loader inputLoader, flags inputFlags, delay time.Duration, run func(context.Context) error, logger *errors.Logger) error {
	files := flags.watchedFiles()
	if len(files) == 0 {
		return errors.NewValidationError(errors.ErrCodeMissingInput, "--watch needs at least one file input", nil)
	}

	rerun := make(chan struct{}, 1)
	onChange := func(changed []types.GroupID) {
		for _, id := range changed {
			g, err := ctrl.Group(id)
			if err != nil {
				continue
			}
			if err := loader.load(g, flags.get(id)); err != nil {
				logger.LogError(err, "Failed to reload input", "group", string(id))
				return
			}
		}
		select {
		case rerun <- struct{}{}:
		default:
		}
	}

	watcher, err := watch.NewInputWatcher(files, delay, onChange, logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			logger.LogError(err, "Failed to stop input watcher")
		}
	}()

	if err := run(ctx); err != nil {
		logger.LogError(err, "Analysis failed, waiting for input changes")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rerun:
			logger.Info("Input changed, re-running analysis")
			if err := run(ctx); err != nil {
				logger.LogError(err, "Analysis failed, waiting for input changes")
			}
		}
	}
}
