package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-drop/drop"
	"github.com/RyanBlaney/sonido-drop/store"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(name string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(name)); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", name)
	}
}

// resultView is a batch result with its error flattened for encoding
type resultView struct {
	Source string       `json:"source" yaml:"source"`
	Report *drop.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Error  string       `json:"error,omitempty" yaml:"error,omitempty"`
}

func writeResults(w io.Writer, format outputFormat, results []drop.Result) error {
	views := make([]resultView, len(results))
	for i, r := range results {
		views[i] = resultView{Source: r.Source, Report: r.Report}
		if r.Err != nil {
			views[i].Error = r.Err.Error()
		}
	}

	switch format {
	case formatJSON:
		return encodeJSON(w, views)
	case formatYAML:
		return encodeYAML(w, views)
	}

	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeReportText(w, v)
	}
	return nil
}

func writeReportText(w io.Writer, v resultView) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, v.Source)

	if v.Error != "" {
		fmt.Fprintf(w, "  %s %s\n", color.RedString("failed:"), v.Error)
		return
	}

	r := v.Report
	fmt.Fprintf(w, "  duration  %.2f s (%d Hz, %d ch, %.3f s trimmed)\n", r.Duration, r.SampleRate, r.Channels, r.TrimmedSeconds)

	hinted := ""
	if r.Tempo.Hinted {
		hinted = ", from hint"
	}
	fmt.Fprintf(w, "  tempo     %g BPM (raw %.1f%s)\n", r.Tempo.BPM, r.Tempo.RawBPM, hinted)
	fmt.Fprintf(w, "  band      %s [%g, %g) Hz, %s mode\n", r.Band.Name, r.Band.StartHz, r.Band.StopHz, r.Mode)

	if r.MeanLevel != nil {
		fmt.Fprintf(w, "  level     %.2f dB\n", *r.MeanLevel)
		return
	}

	if r.Sensitivity != nil {
		fmt.Fprintf(w, "  threshold %gth percentile\n", *r.Sensitivity)
	}
	if r.Drop == nil {
		fmt.Fprintf(w, "  drop      %s\n", color.YellowString("none found"))
		return
	}
	fmt.Fprintf(w, "  drop      %s\n", color.GreenString("%.2f s", *r.Drop))
	if len(r.Events) > 1 {
		fmt.Fprintf(w, "  events    %s\n", formatTimes(r.Events))
	}
}

func formatTimes(times []float64) string {
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = fmt.Sprintf("%.2f", t)
	}
	return strings.Join(parts, " ")
}

func writeTempo(w io.Writer, format outputFormat, results []tempoResult) error {
	switch format {
	case formatJSON:
		return encodeJSON(w, results)
	case formatYAML:
		return encodeYAML(w, results)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tBPM\tRAW\tBEATS\tNEAREST")
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\t%s\t\t\t\n", r.Source, color.RedString(r.Error))
			continue
		}
		nearest := "-"
		if r.Nearest != nil {
			nearest = fmt.Sprintf("%g", *r.Nearest)
		}
		fmt.Fprintf(tw, "%s\t%g\t%.2f\t%d\t%s\n", r.Source, r.BPM, r.RawBPM, r.Beats, nearest)
	}
	return tw.Flush()
}

func writeHistory(w io.Writer, format outputFormat, records []store.Record) error {
	switch format {
	case formatJSON:
		return encodeJSON(w, records)
	case formatYAML:
		return encodeYAML(w, records)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tANALYZED\tSOURCE\tBPM\tBAND\tMODE\tDROP")
	for _, r := range records {
		result := "-"
		switch {
		case r.Drop != nil:
			result = fmt.Sprintf("%.2f s", *r.Drop)
		case r.MeanLevel != nil:
			result = fmt.Sprintf("%.2f dB", *r.MeanLevel)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%s\t%s\t%s\n",
			r.ID, r.AnalyzedAt.Format("2006-01-02 15:04:05"), r.Source, r.BPM, r.Band, r.Mode, result)
	}
	return tw.Flush()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
