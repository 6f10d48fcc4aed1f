// Package controller owns the view state of one analysis session.
//
// The controller validates the two input groups, submits them to the
// analysis backend, renders the result, runs skill lookups for the modal and
// exports reports. It publishes an immutable ViewModel after every change;
// whatever draws the UI only reads those snapshots.
package controller

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"

	"skillmatch/internal/errors"
	"skillmatch/internal/inputs"
	"skillmatch/internal/observability"
	"skillmatch/internal/render"
	"skillmatch/internal/report"
	"skillmatch/internal/types"
)

// Submit control labels
const (
	LabelAnalyze   = "Analyze"
	LabelAnalyzing = "Analyzing..."
)

// ErrSuperseded is returned when a response arrives after a newer request
// for the same flow has started. The response is dropped.
var ErrSuperseded = stderrors.New("response superseded by a newer request")

// ErrBusy is returned by TrySubmit while a submission is loading
var ErrBusy = stderrors.New("analysis already in progress")

// Backend is the remote analysis service
type Backend interface {
	Analyze(ctx context.Context, req types.AnalysisRequest) (types.AnalysisResult, error)
	SkillInfo(ctx context.Context, skill string) (types.SkillInfo, error)
}

// Notifier shows a blocking message to the user
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// ReportGenerator turns a result into a document
type ReportGenerator interface {
	Generate(result types.AnalysisResult) ([]byte, error)
}

// Options wires a controller to its collaborators. Backend is required.
type Options struct {
	Backend  Backend
	Notifier Notifier
	Renderer *render.ResultsRenderer
	Reports  ReportGenerator
	Saver    report.Saver
	Metrics  *observability.Metrics
	Logger   *errors.Logger
}

// Controller is safe for concurrent use. No lock is held while waiting on
// the backend.
type Controller struct {
	resume *inputs.Group
	jd     *inputs.Group

	backend  Backend
	notifier Notifier
	renderer *render.ResultsRenderer
	reports  ReportGenerator
	saver    report.Saver
	metrics  *observability.Metrics
	logger   *errors.Logger

	mu             sync.Mutex
	loading        bool
	analysisGen    uint64
	lastError      string
	currentResult  *types.AnalysisResult
	results        *types.ResultsView
	resultsVisible bool
	modal          types.ModalView
	lookupGen      uint64
	subscribers    []func(types.ViewModel)
}

// New creates a controller in the Idle state with both groups in file mode
func New(opts Options) *Controller {
	c := &Controller{
		resume:   inputs.NewGroup(types.GroupResume),
		jd:       inputs.NewGroup(types.GroupJobDescription),
		backend:  opts.Backend,
		notifier: opts.Notifier,
		renderer: opts.Renderer,
		reports:  opts.Reports,
		saver:    opts.Saver,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if c.notifier == nil {
		c.notifier = NotifierFunc(func(string) {})
	}
	if c.renderer == nil {
		c.renderer = render.NewResultsRenderer(nil)
	}
	if c.reports == nil {
		c.reports = report.NewGenerator()
	}
	if c.saver == nil {
		c.saver = report.DirSaver{Dir: "."}
	}

	for _, g := range []*inputs.Group{c.resume, c.jd} {
		g.OnChange(func(ch inputs.Change) {
			c.logger.Debug("Input changed", "group", string(ch.Group), "kind", string(ch.Kind), "label", ch.View.FileLabel)
			c.publish()
		})
	}
	return c
}

// Resume returns the resume input group
func (c *Controller) Resume() *inputs.Group { return c.resume }

// JobDescription returns the job description input group
func (c *Controller) JobDescription() *inputs.Group { return c.jd }

// Group looks up an input group by id
func (c *Controller) Group(id types.GroupID) (*inputs.Group, error) {
	switch id {
	case types.GroupResume:
		return c.resume, nil
	case types.GroupJobDescription:
		return c.jd, nil
	default:
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "unknown input group: "+string(id), nil)
	}
}

// Subscribe registers fn to receive a snapshot after every state change
func (c *Controller) Subscribe(fn func(types.ViewModel)) {
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.mu.Unlock()
}

// CurrentResult returns a copy of the last successful result
func (c *Controller) CurrentResult() (types.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentResult == nil {
		return types.AnalysisResult{}, false
	}
	return cloneResult(*c.currentResult), true
}

// View returns the current snapshot
func (c *Controller) View() types.ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() types.ViewModel {
	vm := types.ViewModel{
		State:              c.uiStateLocked(),
		Resume:             c.resume.View(),
		JobDescription:     c.jd.View(),
		Submit:             types.SubmitControl{Enabled: !c.loading, Label: LabelAnalyze},
		SpinnerVisible:     c.loading,
		ResultsVisible:     c.resultsVisible,
		PlaceholderVisible: !c.resultsVisible,
		ExportVisible:      c.resultsVisible,
		Modal:              c.modal,
		LastError:          c.lastError,
	}
	if c.loading {
		vm.Submit.Label = LabelAnalyzing
	}
	if c.resultsVisible && c.results != nil {
		results := cloneView(*c.results)
		vm.Results = &results
	}
	return vm
}

// uiStateLocked derives the UI state; it is never stored
func (c *Controller) uiStateLocked() types.UIState {
	switch {
	case c.loading:
		return types.UIStateLoading
	case c.resultsVisible:
		return types.UIStateResultsShown
	case c.lastError != "":
		return types.UIStateError
	default:
		return types.UIStateIdle
	}
}

func (c *Controller) publish() {
	c.mu.Lock()
	vm := c.viewLocked()
	subscribers := slices.Clone(c.subscribers)
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(vm)
	}
}

func (c *Controller) notify(message string) {
	c.notifier.Notify(message)
}

func cloneResult(r types.AnalysisResult) types.AnalysisResult {
	r.MatchedSkills = slices.Clone(r.MatchedSkills)
	r.MissingSkills = slices.Clone(r.MissingSkills)
	return r.Normalize()
}

func cloneView(v types.ResultsView) types.ResultsView {
	v.Segments = slices.Clone(v.Segments)
	v.Matched = slices.Clone(v.Matched)
	v.Missing = slices.Clone(v.Missing)
	return v
}
