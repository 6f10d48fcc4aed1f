package controller

import (
	"context"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"golang.org/x/sync/errgroup"
)

// DefaultExplainLimit bounds concurrent skill lookups
const DefaultExplainLimit = 4

// ExplainMissing looks up every missing skill of the current result without
// touching the modal. Individual lookup failures are recorded per skill.
func (c *Controller) ExplainMissing(ctx context.Context, limit int) (types.SkillReport, error) {
	result, ok := c.CurrentResult()
	if !ok {
		return types.SkillReport{}, errors.NewPreconditionError(errors.ErrCodeNoResult, NoResultMessage)
	}
	if limit <= 0 {
		limit = DefaultExplainLimit
	}

	explained := make([]types.ExplainedSkill, len(result.MissingSkills))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, skill := range result.MissingSkills {
		g.Go(func() error {
			info, err := c.callSkillInfo(gctx, skill)
			c.metrics.RecordSkillLookup(gctx, err == nil)
			explained[i] = types.ExplainedSkill{Skill: skill}
			if err != nil {
				explained[i].Error = errors.UserMessage(err)
				return nil
			}
			explained[i].Info = &info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.SkillReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.SkillReport{}, err
	}

	return types.SkillReport{Result: result, Explained: explained}, nil
}
