// Package report lays out the downloadable analysis report.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"skillmatch/internal/errors"
	"skillmatch/internal/render"
	"skillmatch/internal/types"
)

// FileName is the fixed name of every exported report
const FileName = "AI_Resume_Analysis_Report.pdf"

const (
	Title          = "AI Resume Analysis Report"
	MatchedHeading = "Matched Skills"
	MissingHeading = "Missing Skills"
)

var (
	MatchedColor = RGB{16, 185, 129}
	MissingColor = RGB{239, 68, 68}
)

// Generator builds reports. It never touches the network.
type Generator struct {
	NewDocument func() Document
}

// NewGenerator returns a generator producing compressed PDFs
func NewGenerator() *Generator {
	return &Generator{NewDocument: func() Document { return NewPDFDocument(true) }}
}

// Generate lays out result and returns the encoded document
func (g *Generator) Generate(result types.AnalysisResult) ([]byte, error) {
	newDoc := g.NewDocument
	if newDoc == nil {
		newDoc = func() Document { return NewPDFDocument(true) }
	}
	result = result.Normalize()
	doc := newDoc()

	doc.SetFont("Helvetica", "B", 22)
	doc.CenteredText(20, Title)
	doc.SetFont("Helvetica", "B", 16)
	doc.CenteredText(35, "Overall Match Score: "+render.ScoreText(result.Score))

	finalY := doc.Table(Table{StartY: 50, Head: MatchedHeading, Rows: result.MatchedSkills, HeadColor: MatchedColor})
	doc.Table(Table{StartY: finalY + 15, Head: MissingHeading, Rows: result.MissingSkills, HeadColor: MissingColor})

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeExportFailed, "Failed to generate report", err)
	}
	return buf.Bytes(), nil
}

// Saver delivers a generated document
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// DirSaver writes reports into a directory
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(name string, data []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", errors.NewIOError("DIRECTORY_CREATE_FAILED", fmt.Sprintf("Cannot create directory: %s", dir), err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("Cannot write file: %s", path), err)
	}
	return path, nil
}
