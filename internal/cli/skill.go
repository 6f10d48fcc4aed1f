package cli

import (
	"context"

	"skillmatch/internal/common"
	"skillmatch/internal/types"

	"github.com/spf13/cobra"
)

var skillCmd = &cobra.Command{
	Use:   "skill <name>",
	Short: "Look up a description and learning link for a skill",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(skillConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		skillConfig.OutputFormat = format
		return nil
	},
	RunE: runSkill,
}

var skillConfig common.CommandConfig

func init() {
	skillCmd.Flags().StringVarP(&skillConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	skillCmd.Flags().StringVar(&skillConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
}

func runSkill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)
	skill := args[0]

	sess, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.close()

	lookup := func(ctx context.Context) (types.SkillInfo, error) {
		info, err := sess.client.SkillInfo(ctx, skill)
		sess.obs.GetMetrics().RecordSkillLookup(ctx, err == nil)
		return info, err
	}

	return common.RunCommand(ctx, logger, skillConfig,
		common.NewOutputHandlerWithWriter(logger, cmd.OutOrStdout()),
		lookup,
		func(c common.CommandConfig) {
			logger.Info("Looking up skill", "skill", skill, "format", c.OutputFormat)
		})
}
