// package formatter exports the ledger of a download run to CSV, JSON, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/tasks"
)

// Format names a report encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Columns is the header row shared by every tabular export.
var Columns = []string{"Outcome", "Artist", "Title", "Filename", "Tier", "URL", "Error"}

// Row is one track of a run report.
type Row struct {
	Outcome  string `json:"outcome"`
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Filename string `json:"filename,omitempty"`
	Tier     string `json:"tier,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r Row) record() []string {
	return []string{r.Outcome, r.Artist, r.Title, r.Filename, r.Tier, r.URL, r.Error}
}

// Summary carries the per-outcome counts of a run.
type Summary struct {
	Total           int `json:"total"`
	Downloaded      int `json:"downloaded"`
	SkippedExisting int `json:"skipped_existing"`
	SkippedNoResult int `json:"skipped_no_result"`
	Failed          int `json:"failed"`
}

// Report is the JSON document written for a run.
type Report struct {
	RunID     string  `json:"run_id"`
	Source    string  `json:"source,omitempty"`
	OutputDir string  `json:"output_dir"`
	StartedAt string  `json:"started_at,omitempty"`
	Duration  string  `json:"duration"`
	Summary   Summary `json:"summary"`
	Tracks    []Row   `json:"tracks"`
}

// ParseFormat accepts csv, json, md, markdown, txt or text (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q (csv, json, markdown, text)", shared.ErrInvalidFlag, s)
	}
}

// FormatFromPath picks a format from the file extension, falling back to text.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return FormatText
}

// Rows flattens the results of a run in input order.
func Rows(result *tasks.RunResult) []Row {
	rows := make([]Row, 0, len(result.Results))
	for _, res := range result.Results {
		row := Row{
			Outcome:  res.Outcome.String(),
			Artist:   res.Track.Artist(),
			Title:    res.Track.Title(),
			Filename: res.Filename,
			Error:    res.ErrorString(),
		}
		if res.Media != nil {
			row.Tier = res.Media.Tier.String()
			row.URL = res.Media.URL
		}
		rows = append(rows, row)
	}
	return rows
}

func summarize(result *tasks.RunResult) Summary {
	return Summary{
		Total:           result.Total,
		Downloaded:      result.Downloaded,
		SkippedExisting: result.SkippedExisting,
		SkippedNoResult: result.SkippedNoResult,
		Failed:          result.Failed,
	}
}

// ExportToCSV converts a RunResult to CSV with the [Columns] header.
func ExportToCSV(result *tasks.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range Rows(result) {
		if err := writer.Write(row.record()); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a RunResult to an indented [Report] document.
func ExportToJSON(result *tasks.RunResult) ([]byte, error) {
	report := Report{
		RunID:     result.RunID,
		Source:    result.Source,
		OutputDir: result.OutputDir,
		Duration:  result.Duration.Round(time.Millisecond).String(),
		Summary:   summarize(result),
		Tracks:    Rows(result),
	}
	if !result.StartedAt.IsZero() {
		report.StartedAt = result.StartedAt.Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToMarkdown converts a RunResult to a Markdown summary and track table.
func ExportToMarkdown(result *tasks.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	s := summarize(result)

	buf.WriteString(fmt.Sprintf("# Run %s\n\n", result.RunID))
	if result.Source != "" {
		buf.WriteString(fmt.Sprintf("**Source**: %s\n\n", result.Source))
	}
	buf.WriteString(fmt.Sprintf("**Output**: `%s`\n\n", result.OutputDir))

	buf.WriteString("| Downloaded | Existing | No result | Failed | Total |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	buf.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d |\n\n", s.Downloaded, s.SkippedExisting, s.SkippedNoResult, s.Failed, s.Total))

	buf.WriteString("## Tracks\n\n")
	buf.WriteString("| # | " + strings.Join(Columns, " | ") + " |\n")
	buf.WriteString("|---" + strings.Repeat("|---", len(Columns)) + "|\n")
	for i, row := range Rows(result) {
		cells := row.record()
		for j, c := range cells {
			cells[j] = escapeCell(c)
		}
		buf.WriteString(fmt.Sprintf("| %d | %s |\n", i+1, strings.Join(cells, " | ")))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a RunResult to plain status lines.
func ExportToText(result *tasks.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	s := summarize(result)

	buf.WriteString(fmt.Sprintf("Run: %s\n", result.RunID))
	if result.Source != "" {
		buf.WriteString(fmt.Sprintf("Source: %s\n", result.Source))
	}
	buf.WriteString(fmt.Sprintf("Output: %s\n", result.OutputDir))
	buf.WriteString(fmt.Sprintf("Downloaded: %d, existing: %d, no result: %d, failed: %d (of %d)\n\n",
		s.Downloaded, s.SkippedExisting, s.SkippedNoResult, s.Failed, s.Total))

	for i, res := range result.Results {
		line := fmt.Sprintf("%d. %s %s", i+1, res.Outcome.Symbol(), res.Track.String())
		switch res.Outcome {
		case models.Downloaded:
			line += " -> " + res.Filename
		case models.Failed, models.SkippedNoResult:
			if msg := res.ErrorString(); msg != "" {
				line += " (" + msg + ")"
			}
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// Export renders result in the given format.
func Export(result *tasks.RunResult, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(result)
	case FormatJSON:
		return ExportToJSON(result)
	case FormatMarkdown:
		return ExportToMarkdown(result)
	case FormatText:
		return ExportToText(result)
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidFlag, format)
	}
}

// Write renders result and writes it to w.
func Write(w io.Writer, result *tasks.RunResult, format Format) error {
	data, err := Export(result, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteReport writes the run report to path.
//
// An empty format is inferred from the extension. Paths inside outputDir are rejected so the output directory
// only ever holds audio files.
func WriteReport(path string, format Format, result *tasks.RunResult, outputDir string) error {
	if err := ValidateReportPath(path, outputDir); err != nil {
		return err
	}

	if format == "" {
		format = FormatFromPath(path)
	}
	data, err := Export(result, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrFilesystem, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write report: %w", shared.ErrFilesystem, err)
	}
	return nil
}

// ValidateReportPath rejects an empty path or one inside outputDir.
func ValidateReportPath(path, outputDir string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: report path", shared.ErrMissingArgument)
	}
	inside, err := within(outputDir, path)
	if err != nil {
		return err
	}
	if inside {
		return fmt.Errorf("%w: report %s would be written inside the output directory %s", shared.ErrInvalidArgument, path, outputDir)
	}
	return nil
}

func within(dir, path string) (bool, error) {
	if dir == "" {
		return false, nil
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
