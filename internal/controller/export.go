package controller

import (
	"context"

	"skillmatch/internal/errors"
	"skillmatch/internal/report"
)

// NoResultMessage is shown when exporting before any analysis succeeded
const NoResultMessage = "Please run an analysis first."

// ExportReport writes the report for the current result through the
// configured saver and returns where it went
func (c *Controller) ExportReport(ctx context.Context) (string, error) {
	return c.ExportReportTo(ctx, c.saver)
}

// ExportReportTo is ExportReport with an explicit destination
func (c *Controller) ExportReportTo(ctx context.Context, saver report.Saver) (string, error) {
	result, ok := c.CurrentResult()
	if !ok {
		c.notify(NoResultMessage)
		return "", errors.NewPreconditionError(errors.ErrCodeNoResult, NoResultMessage)
	}

	data, err := c.reports.Generate(result)
	if err != nil {
		c.metrics.RecordReportExported(ctx, false)
		c.logger.LogError(err, "Report generation failed")
		return "", err
	}

	location, err := saver.Save(report.FileName, data)
	c.metrics.RecordReportExported(ctx, err == nil)
	if err != nil {
		c.logger.LogError(err, "Report save failed")
		return "", err
	}

	c.logger.Info("Report exported", "location", location, "bytes", len(data))
	return location, nil
}
