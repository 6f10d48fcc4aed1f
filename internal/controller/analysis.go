package controller

import (
	"context"
	"fmt"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"
)

// Submit validates both groups, sends them to the backend and renders the
// outcome. Validation failures notify the user and never reach the network.
// Whatever happens after the request is sent, the submit control is restored
// exactly once, unless a newer submission has taken it over.
func (c *Controller) Submit(ctx context.Context) error {
	req, err := c.buildRequest()
	if err != nil {
		c.notify(errors.UserMessage(err))
		return err
	}

	gen, _ := c.beginLoading(false)
	return c.run(ctx, gen, req)
}

// TrySubmit is Submit that refuses with ErrBusy while another submission is
// loading. The check and the switch to Loading happen under one lock.
func (c *Controller) TrySubmit(ctx context.Context) error {
	req, err := c.buildRequest()
	if err != nil {
		c.notify(errors.UserMessage(err))
		return err
	}

	gen, ok := c.beginLoading(true)
	if !ok {
		return ErrBusy
	}
	return c.run(ctx, gen, req)
}

func (c *Controller) run(ctx context.Context, gen uint64, req types.AnalysisRequest) error {
	defer c.finishLoading(gen)

	result, err := c.callAnalyze(ctx, req)
	return c.resolve(ctx, gen, result, err)
}

// buildRequest validates resume first, then the job description
func (c *Controller) buildRequest() (types.AnalysisRequest, error) {
	resume, err := c.resume.Source()
	if err != nil {
		return types.AnalysisRequest{}, err
	}
	jd, err := c.jd.Source()
	if err != nil {
		return types.AnalysisRequest{}, err
	}
	return types.AnalysisRequest{Resume: resume, JobDescription: jd}, nil
}

// beginLoading enters Loading for a new generation. With exclusive set it
// fails instead when a submission is already loading.
func (c *Controller) beginLoading(exclusive bool) (uint64, bool) {
	c.mu.Lock()
	if exclusive && c.loading {
		c.mu.Unlock()
		return 0, false
	}
	c.analysisGen++
	gen := c.analysisGen
	c.loading = true
	c.resultsVisible = false
	c.lastError = ""
	c.mu.Unlock()

	c.publish()
	return gen, true
}

// finishLoading re-enables the controls that belong to submission gen
func (c *Controller) finishLoading(gen uint64) {
	c.mu.Lock()
	if gen != c.analysisGen {
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.mu.Unlock()

	c.publish()
}

// callAnalyze is the only suspension point of a submission. A panic in the
// backend is turned into an error so cleanup still runs.
func (c *Controller) callAnalyze(ctx context.Context, req types.AnalysisRequest) (result types.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewInternalError(errors.ErrCodeUnexpectedPanic, fmt.Sprint(r), nil)
		}
	}()

	err = c.metrics.TrackAnalysis(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = c.backend.Analyze(ctx, req)
		return callErr
	})
	return result, err
}

func (c *Controller) resolve(ctx context.Context, gen uint64, result types.AnalysisResult, callErr error) error {
	c.mu.Lock()
	if gen != c.analysisGen {
		c.mu.Unlock()
		c.metrics.RecordStaleResponse(ctx, "analysis")
		c.logger.Debug("Discarding stale analysis response", "generation", gen)
		return ErrSuperseded
	}

	if callErr == nil {
		result = cloneResult(result)
		view, err := c.renderer.Render(result)
		if err == nil {
			c.currentResult = &result
			c.results = &view
			c.resultsVisible = true
			c.mu.Unlock()
			c.logger.Info("Analysis completed", "score", result.Score,
				"matched", len(result.MatchedSkills), "missing", len(result.MissingSkills))
			return nil
		}
		callErr = errors.NewInternalError(errors.ErrCodeInvalidResponse, "Failed to render results", err)
	}

	message := errors.UserMessage(callErr)
	c.lastError = message
	c.mu.Unlock()

	c.logger.LogError(callErr, "Error fetching analysis")
	c.notify("An error occurred: " + message)
	return callErr
}
