package types

// UIState governs button, spinner and visibility. It is derived, never set.
type UIState string

const (
	UIStateIdle         UIState = "idle"
	UIStateLoading      UIState = "loading"
	UIStateResultsShown UIState = "results_shown"
	UIStateError        UIState = "error"
)

// ClickTarget identifies what a pointer event on the modal landed on
type ClickTarget string

const (
	TargetBackdrop ClickTarget = "backdrop"
	TargetContent  ClickTarget = "content"
	TargetClose    ClickTarget = "close"
)

// GroupView is the rendered state of one input group
type GroupView struct {
	ID              GroupID `json:"id"`
	ActiveTab       Mode    `json:"activeTab"`
	VisiblePanel    Mode    `json:"visiblePanel"`
	FileLabel       string  `json:"fileLabel"`
	FileLabelItalic bool    `json:"fileLabelItalic"`
	ClearVisible    bool    `json:"clearVisible"`
	TextLength      int     `json:"textLength"`
}

// SubmitControl is the analyze button
type SubmitControl struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
}

// Segment is one slice of the score chart
type Segment struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// SkillEntry is one row in a skill list
type SkillEntry struct {
	Label     string `json:"label"`
	Clickable bool   `json:"clickable"`
}

// ResultsView is the rendered form of an AnalysisResult
type ResultsView struct {
	ScoreText     string       `json:"scoreText"`
	Segments      []Segment    `json:"segments"`
	Gauge         string       `json:"gauge"`
	Matched       []SkillEntry `json:"matched"`
	Missing       []SkillEntry `json:"missing"`
	ExportVisible bool         `json:"exportVisible"`
}

// ModalView is the skill detail dialog
type ModalView struct {
	Open        bool   `json:"open"`
	Loading     bool   `json:"loading"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link,omitempty"`
	LinkVisible bool   `json:"linkVisible"`
	Failed      bool   `json:"failed"`
}

// ViewModel is an immutable snapshot handed to whatever renders the UI
type ViewModel struct {
	State              UIState       `json:"state"`
	Resume             GroupView     `json:"resume"`
	JobDescription     GroupView     `json:"jobDescription"`
	Submit             SubmitControl `json:"submit"`
	SpinnerVisible     bool          `json:"spinnerVisible"`
	PlaceholderVisible bool          `json:"placeholderVisible"`
	ResultsVisible     bool          `json:"resultsVisible"`
	Results            *ResultsView  `json:"results,omitempty"`
	ExportVisible      bool          `json:"exportVisible"`
	Modal              ModalView     `json:"modal"`
	LastError          string        `json:"lastError,omitempty"`
}
