package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"skillmatch/internal/render"
	"skillmatch/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisResult", &ResultTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisResult", &ResultMarkdownFormatter{})
	registry.RegisterFormatter("text", "SkillInfo", &SkillTextFormatter{})
	registry.RegisterFormatter("markdown", "SkillInfo", &SkillMarkdownFormatter{})
	registry.RegisterFormatter("text", "SkillReport", &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", "SkillReport", &ReportMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult:
		return "AnalysisResult"
	case types.SkillInfo:
		return "SkillInfo"
	case types.SkillReport:
		return "SkillReport"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ResultTextFormatter renders an analysis result as plain text
type ResultTextFormatter struct{}

func (f *ResultTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}
	var output strings.Builder
	writeResultText(&output, result.Normalize())
	return output.String(), nil
}

func (f *ResultTextFormatter) SupportedType() string {
	return "AnalysisResult"
}

func writeResultText(output *strings.Builder, result types.AnalysisResult) {
	output.WriteString("=== MATCH SCORE ===\n")
	output.WriteString(render.ScoreText(result.Score))
	output.WriteString("\n\n")

	output.WriteString("=== MATCHED SKILLS ===\n")
	writeBullets(output, result.MatchedSkills, "(none)")
	output.WriteString("\n")

	output.WriteString("=== MISSING SKILLS ===\n")
	writeBullets(output, result.MissingSkills, "(none)")
}

// ResultMarkdownFormatter renders an analysis result as markdown
type ResultMarkdownFormatter struct{}

func (f *ResultMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}
	var output strings.Builder
	output.WriteString("# Resume Analysis\n\n")
	writeResultMarkdown(&output, result.Normalize())
	return output.String(), nil
}

func (f *ResultMarkdownFormatter) SupportedType() string {
	return "AnalysisResult"
}

func writeResultMarkdown(output *strings.Builder, result types.AnalysisResult) {
	fmt.Fprintf(output, "**Overall Match Score:** %s\n\n", render.ScoreText(result.Score))

	output.WriteString("## Matched Skills\n\n")
	writeBullets(output, result.MatchedSkills, "_None_")
	output.WriteString("\n")

	output.WriteString("## Missing Skills\n\n")
	writeBullets(output, result.MissingSkills, "_None_")
}

// SkillTextFormatter renders one skill lookup as plain text
type SkillTextFormatter struct{}

func (f *SkillTextFormatter) Format(data any) (string, error) {
	info, ok := data.(types.SkillInfo)
	if !ok {
		return "", fmt.Errorf("expected SkillInfo, got %T", data)
	}
	var output strings.Builder
	output.WriteString(info.Description)
	output.WriteString("\n")
	if info.Link != "" {
		fmt.Fprintf(&output, "Learn more: %s\n", info.Link)
	}
	return output.String(), nil
}

func (f *SkillTextFormatter) SupportedType() string {
	return "SkillInfo"
}

// SkillMarkdownFormatter renders one skill lookup as markdown
type SkillMarkdownFormatter struct{}

func (f *SkillMarkdownFormatter) Format(data any) (string, error) {
	info, ok := data.(types.SkillInfo)
	if !ok {
		return "", fmt.Errorf("expected SkillInfo, got %T", data)
	}
	var output strings.Builder
	output.WriteString(info.Description)
	output.WriteString("\n")
	if info.Link != "" {
		fmt.Fprintf(&output, "\n[Learn more](%s)\n", info.Link)
	}
	return output.String(), nil
}

func (f *SkillMarkdownFormatter) SupportedType() string {
	return "SkillInfo"
}

// ReportTextFormatter renders a result with its explained missing skills
type ReportTextFormatter struct{}

func (f *ReportTextFormatter) Format(data any) (string, error) {
	rep, ok := data.(types.SkillReport)
	if !ok {
		return "", fmt.Errorf("expected SkillReport, got %T", data)
	}

	var output strings.Builder
	writeResultText(&output, rep.Result.Normalize())

	if len(rep.Explained) > 0 {
		output.WriteString("\n=== LEARNING RESOURCES ===\n")
		for _, e := range rep.Explained {
			fmt.Fprintf(&output, "%s:\n", e.Skill)
			switch {
			case e.Info != nil:
				fmt.Fprintf(&output, "  %s\n  %s\n", e.Info.Description, e.Info.Link)
			case e.Error != "":
				fmt.Fprintf(&output, "  Could not fetch learning resources. %s\n", e.Error)
			}
		}
	}
	return output.String(), nil
}

func (f *ReportTextFormatter) SupportedType() string {
	return "SkillReport"
}

// ReportMarkdownFormatter renders a result with its explained missing skills
type ReportMarkdownFormatter struct{}

func (f *ReportMarkdownFormatter) Format(data any) (string, error) {
	rep, ok := data.(types.SkillReport)
	if !ok {
		return "", fmt.Errorf("expected SkillReport, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Resume Analysis\n\n")
	writeResultMarkdown(&output, rep.Result.Normalize())

	if len(rep.Explained) > 0 {
		output.WriteString("\n## Learning Resources\n")
		for _, e := range rep.Explained {
			fmt.Fprintf(&output, "\n### %s\n\n", e.Skill)
			switch {
			case e.Info != nil:
				fmt.Fprintf(&output, "%s\n\n[Learn more](%s)\n", e.Info.Description, e.Info.Link)
			case e.Error != "":
				fmt.Fprintf(&output, "_Could not fetch learning resources. %s_\n", e.Error)
			}
		}
	}
	return output.String(), nil
}

func (f *ReportMarkdownFormatter) SupportedType() string {
	return "SkillReport"
}

func writeBullets(output *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		output.WriteString(empty)
		output.WriteString("\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(output, "- %s\n", item)
	}
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
