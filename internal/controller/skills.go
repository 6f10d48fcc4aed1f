package controller

import (
	"context"
	"fmt"
	"slices"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"
)

// OnSkillSelected opens the modal for a rendered missing skill and fills it
// from the backend. Lookup failures stay inside the modal.
func (c *Controller) OnSkillSelected(ctx context.Context, name string) error {
	c.mu.Lock()
	if !c.isRenderedMissingLocked(name) {
		c.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%q is not a missing skill in the current results", name), nil)
	}
	c.lookupGen++
	gen := c.lookupGen
	c.modal = types.ModalView{
		Open:        true,
		Loading:     true,
		Title:       name,
		Description: "Loading info for " + name + "...",
	}
	c.mu.Unlock()
	c.publish()

	info, err := c.callSkillInfo(ctx, name)
	c.metrics.RecordSkillLookup(ctx, err == nil)

	c.mu.Lock()
	if gen != c.lookupGen {
		c.mu.Unlock()
		c.metrics.RecordStaleResponse(ctx, "lookup")
		return ErrSuperseded
	}

	if err != nil {
		message := "Could not fetch learning resources. " + errors.UserMessage(err)
		c.modal.Loading = false
		c.modal.Failed = true
		c.modal.Description = message
		c.mu.Unlock()
		c.publish()

		c.logger.LogError(err, "Skill lookup failed", "skill", name)
		return errors.NewLookupError(errors.ErrCodeLookupFailed, message, err).WithContext("skill", name)
	}

	c.modal = types.ModalView{
		Open:        true,
		Title:       name,
		Description: info.Description,
		Link:        info.Link,
		LinkVisible: true,
	}
	c.mu.Unlock()
	c.publish()
	return nil
}

func (c *Controller) callSkillInfo(ctx context.Context, name string) (info types.SkillInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewInternalError(errors.ErrCodeUnexpectedPanic, fmt.Sprint(r), nil)
		}
	}()
	return c.backend.SkillInfo(ctx, name)
}

func (c *Controller) isRenderedMissingLocked(name string) bool {
	if !c.resultsVisible || c.results == nil {
		return false
	}
	return slices.ContainsFunc(c.results.Missing, func(e types.SkillEntry) bool {
		return e.Clickable && e.Label == name
	})
}

// CloseModal closes the modal. Any lookup still in flight is dropped.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	if !c.modal.Open {
		c.mu.Unlock()
		return
	}
	c.modal = types.ModalView{}
	c.lookupGen++
	c.mu.Unlock()
	c.publish()
}

// Close ends the session view: the modal closes and the live chart is
// destroyed. Late responses are still dropped by their generation checks.
func (c *Controller) Close() {
	c.CloseModal()
	c.renderer.Close()
}

// DismissModal handles a pointer event on the modal. The backdrop and the
// close control close it; clicks on the content do not. It reports whether
// the modal was closed.
func (c *Controller) DismissModal(target types.ClickTarget) bool {
	switch target {
	case types.TargetBackdrop, types.TargetClose:
		c.mu.Lock()
		open := c.modal.Open
		c.mu.Unlock()
		c.CloseModal()
		return open
	default:
		return false
	}
}
