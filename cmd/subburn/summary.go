package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subburn/internal/pipeline"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSummary(w io.Writer, report pipeline.Report) string {
	tbl := newTextTable("#", "Video", "Result", "Output", "Cues", "Time").alignRight(0, 4, 5)
	for _, o := range report.Outcomes {
		tbl.row(
			strconv.Itoa(o.Index),
			filepath.Base(o.Source),
			outcomeLabel(o),
			outcomeDetail(o),
			strconv.Itoa(o.Cues),
			formatElapsed(o.Duration),
		)
	}
	var b strings.Builder
	b.WriteString(tbl.render(w))
	succeeded := len(report.Outcomes) - report.Failed()
	fmt.Fprintf(&b, "\n%d succeeded, %d failed in %s", succeeded, report.Failed(), formatElapsed(report.Duration()))
	return b.String()
}

func outcomeLabel(o pipeline.Outcome) string {
	switch o.Kind {
	case pipeline.KindSubtitledVideo:
		return "subtitled"
	case pipeline.KindSubtitleOnly:
		return "subtitles only"
	default:
		return "failed (" + o.Stage + ")"
	}
}

// outcomeDetail lists the produced paths, or the failure reason.
func outcomeDetail(o pipeline.Outcome) string {
	if !o.OK() {
		if o.Err == nil {
			return ""
		}
		return o.Err.Error()
	}
	var parts []string
	if o.OutputPath != "" {
		parts = append(parts, o.OutputPath)
	}
	if o.SubtitlePath != "" {
		parts = append(parts, o.SubtitlePath)
	}
	return strings.Join(parts, "\n")
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}

type jsonOutcome struct {
	Index        int     `json:"index"`
	Source       string  `json:"source"`
	Result       string  `json:"result"`
	OutputPath   string  `json:"output_path,omitempty"`
	SubtitlePath string  `json:"subtitle_path,omitempty"`
	Cues         int     `json:"cues"`
	Stage        string  `json:"stage,omitempty"`
	Error        string  `json:"error,omitempty"`
	Seconds      float64 `json:"seconds"`
}

type jsonReport struct {
	RunID     string        `json:"run_id"`
	OK        bool          `json:"ok"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Seconds   float64       `json:"seconds"`
	Videos    []jsonOutcome `json:"videos"`
}

func newJSONReport(report pipeline.Report) jsonReport {
	out := jsonReport{
		RunID:     report.RunID,
		OK:        report.OK(),
		Succeeded: len(report.Outcomes) - report.Failed(),
		Failed:    report.Failed(),
		Seconds:   report.Duration().Seconds(),
		Videos:    make([]jsonOutcome, 0, len(report.Outcomes)),
	}
	for _, o := range report.Outcomes {
		v := jsonOutcome{
			Index:        o.Index,
			Source:       o.Source,
			Result:       string(o.Kind),
			OutputPath:   o.OutputPath,
			SubtitlePath: o.SubtitlePath,
			Cues:         o.Cues,
			Stage:        o.Stage,
			Seconds:      o.Duration.Seconds(),
		}
		if o.Err != nil {
			v.Error = o.Err.Error()
		}
		out.Videos = append(out.Videos, v)
	}
	return out
}
