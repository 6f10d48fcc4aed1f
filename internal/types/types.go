package types

import (
	"bytes"
	"io"
)

// Mode selects whether an input group supplies a file or pasted text
type Mode string

const (
	ModeFile Mode = "file"
	ModeText Mode = "text"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeFile || m == ModeText
}

// GroupID names one side of the analysis form
type GroupID string

const (
	GroupResume         GroupID = "resume"
	GroupJobDescription GroupID = "jd"
)

// FileRef is a handle to a selected file. The content is opened lazily.
type FileRef struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages,omitempty"`

	open func() (io.ReadCloser, error)
}

// NewFileRef creates a file handle backed by the given opener
func NewFileRef(name string, size int64, open func() (io.ReadCloser, error)) *FileRef {
	return &FileRef{Name: name, Size: size, open: open}
}

// NewBytesFileRef creates a file handle over in-memory content
func NewBytesFileRef(name string, data []byte) *FileRef {
	return NewFileRef(name, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// Open returns a fresh reader over the file content
func (f *FileRef) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return f.open()
}

// SourceKind tags a Source
type SourceKind string

const (
	SourcePDF  SourceKind = "pdf"
	SourceText SourceKind = "text"
)

// Source is the authoritative content of one input group at submit time
type Source struct {
	Kind SourceKind
	File *FileRef
	Text string
}

// PDFSource builds a file-backed source
func PDFSource(file *FileRef) Source {
	return Source{Kind: SourcePDF, File: file}
}

// TextSource builds a text-backed source
func TextSource(text string) Source {
	return Source{Kind: SourceText, Text: text}
}

// AnalysisRequest is built fresh for every submission and never persisted
type AnalysisRequest struct {
	Resume         Source
	JobDescription Source
}

// AnalysisResult is the scored outcome of comparing a resume to a job description
type AnalysisResult struct {
	Score         float64  `json:"score" validate:"gte=0,lte=100"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
}

// Normalize replaces nil skill lists with empty ones
func (r AnalysisResult) Normalize() AnalysisResult {
	if r.MatchedSkills == nil {
		r.MatchedSkills = []string{}
	}
	if r.MissingSkills == nil {
		r.MissingSkills = []string{}
	}
	return r
}

// SkillInfo is supplementary information about a missing skill
type SkillInfo struct {
	Description string `json:"description" validate:"required"`
	Link        string `json:"link" validate:"required,url"`
}

// ExplainedSkill pairs a missing skill with its lookup outcome
type ExplainedSkill struct {
	Skill string     `json:"skill"`
	Info  *SkillInfo `json:"info,omitempty"`
	Error string     `json:"error,omitempty"`
}

// SkillReport is an analysis result enriched with skill explanations
type SkillReport struct {
	Result    AnalysisResult   `json:"result"`
	Explained []ExplainedSkill `json:"explained"`
}
