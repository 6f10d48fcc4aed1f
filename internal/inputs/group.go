// Package inputs manages the two input groups of the analysis form.
//
// Each group holds a file selection and a pasted text value. The active mode
// decides which of the two is authoritative when a request is built.
package inputs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"
)

// NoFileLabel is shown when the file picker is empty
const NoFileLabel = "No file selected"

// ChangeKind says what changed in a group
type ChangeKind string

const (
	ModeChanged ChangeKind = "mode"
	FileChanged ChangeKind = "file"
	TextChanged ChangeKind = "text"
)

// Change is delivered to listeners after a group mutates
type Change struct {
	Group types.GroupID
	Kind  ChangeKind
	View  types.GroupView
}

// Group is one side of the form. It is safe for concurrent use.
type Group struct {
	mu        sync.Mutex
	id        types.GroupID
	mode      types.Mode
	file      *types.FileRef
	text      string
	listeners []func(Change)
}

// NewGroup returns a group in file mode with nothing selected
func NewGroup(id types.GroupID) *Group {
	return &Group{id: id, mode: types.ModeFile}
}

// ID returns the group identifier
func (g *Group) ID() types.GroupID {
	return g.id
}

// OnChange registers a listener. Listeners run outside the group lock.
func (g *Group) OnChange(fn func(Change)) {
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

// SetMode switches the active tab and the visible panel together
func (g *Group) SetMode(mode types.Mode) error {
	if !mode.Valid() {
		return errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown input mode %q", mode), nil)
	}
	g.mu.Lock()
	g.mode = mode
	g.mu.Unlock()
	g.emit(ModeChanged)
	return nil
}

// Mode returns the active mode
func (g *Group) Mode() types.Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// SelectFile is the picker's "pick" capability
func (g *Group) SelectFile(file *types.FileRef) {
	g.mu.Lock()
	g.file = file
	g.mu.Unlock()
	g.fileChanged()
}

// ClearFile is the picker's "clear" capability. It resets the selection and
// then goes through the same change path a pick does. Clearing an empty
// picker does nothing.
func (g *Group) ClearFile() {
	g.mu.Lock()
	if g.file == nil {
		g.mu.Unlock()
		return
	}
	g.file = nil
	g.mu.Unlock()
	g.fileChanged()
}

func (g *Group) fileChanged() {
	g.emit(FileChanged)
}

// File returns the selected file, if any
func (g *Group) File() *types.FileRef {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.file
}

// SetText stores the pasted text as-is
func (g *Group) SetText(text string) {
	g.mu.Lock()
	g.text = text
	g.mu.Unlock()
	g.emit(TextChanged)
}

// Text returns the pasted text
func (g *Group) Text() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text
}

// Source returns the authoritative content for the active mode. Text is
// checked trimmed but returned untouched.
func (g *Group) Source() (types.Source, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode == types.ModeFile {
		if g.file == nil {
			return types.Source{}, errors.NewValidationError(errors.ErrCodeMissingInput, missingMessage(g.id, g.mode), nil).
				WithContext("group", string(g.id))
		}
		return types.PDFSource(g.file), nil
	}

	if strings.TrimSpace(g.text) == "" {
		return types.Source{}, errors.NewValidationError(errors.ErrCodeMissingInput, missingMessage(g.id, g.mode), nil).
			WithContext("group", string(g.id))
	}
	return types.TextSource(g.text), nil
}

// View renders the group's visible state
func (g *Group) View() types.GroupView {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.viewLocked()
}

func (g *Group) viewLocked() types.GroupView {
	view := types.GroupView{
		ID:              g.id,
		ActiveTab:       g.mode,
		VisiblePanel:    g.mode,
		FileLabel:       NoFileLabel,
		FileLabelItalic: true,
		TextLength:      len(g.text),
	}
	if g.file != nil {
		view.FileLabel = FileLabel(g.file)
		view.FileLabelItalic = false
		view.ClearVisible = true
	}
	return view
}

func (g *Group) emit(kind ChangeKind) {
	g.mu.Lock()
	change := Change{Group: g.id, Kind: kind, View: g.viewLocked()}
	listeners := append([]func(Change){}, g.listeners...)
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

// FileLabel formats the picker label for a selected file
func FileLabel(file *types.FileRef) string {
	switch file.Pages {
	case 0:
		return file.Name
	case 1:
		return file.Name + " · 1 page"
	default:
		return file.Name + " · " + strconv.Itoa(file.Pages) + " pages"
	}
}

func missingMessage(id types.GroupID, mode types.Mode) string {
	switch {
	case id == types.GroupResume && mode == types.ModeFile:
		return "Please upload your resume PDF."
	case id == types.GroupResume:
		return "Please paste your resume text."
	case mode == types.ModeFile:
		return "Please upload the job description PDF."
	default:
		return "Please paste the job description text."
	}
}
