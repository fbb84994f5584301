package formats

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"labtrace/internal/models"
	"labtrace/internal/rawfile"
	"labtrace/internal/util"
)

// nanopore covers the family of artifacts a Nanopore run leaves behind. The
// registry sees one format; the extractor switches on the sub-kind, which is
// reported in metadata as nanopore_kind.
var nanopore = Format{
	ID: "nanopore",
	Matches: func(c *rawfile.Content) bool {
		return nanoporeKind(c) != ""
	},
	Extract: extractNanopore,
}

func nanoporeKind(c *rawfile.Content) string {
	name := strings.ToLower(filepath.Base(c.Path))
	switch {
	case strings.HasSuffix(name, ".csv"):
		first := strings.ToLower(c.Line(0))
		switch {
		case strings.Contains(first, "protocol_run_id"):
			return "sample_sheet"
		case strings.Contains(first, "channel state"):
			return "pore_activity"
		case strings.Contains(first, "experiment time"):
			return "throughput"
		case strings.Contains(first, "mux_scan_assessment"):
			return "pore_scan"
		case strings.Contains(first, "current_target_temperature"):
			return "temperature"
		}
	case strings.HasSuffix(name, ".txt") && strings.HasPrefix(name, "final_summary"):
		return "final_summary"
	case strings.HasSuffix(name, ".txt") && strings.HasPrefix(name, "sequencing_summary"):
		return "sequencing_summary"
	case strings.HasSuffix(name, ".json") && strings.Contains(name, "report"):
		return "json_report"
	case strings.HasSuffix(name, ".md") && strings.Contains(name, "report"):
		return "markdown_report"
	}
	return ""
}

func extractNanopore(c *rawfile.Content) (models.Record, error) {
	kind := nanoporeKind(c)
	metadata := map[string]any{"nanopore_kind": kind}
	var samples []map[string]any
	var err error

	switch kind {
	case "sample_sheet":
		samples = tableRecords(c.Rows, nil)
		if len(samples) > 0 {
			for k, v := range samples[0] {
				metadata[normalizeKey(k)] = v
			}
		}
	case "pore_activity":
		err = nanoporePoreActivity(c, metadata)
	case "throughput":
		err = nanoporeLastRow(c, metadata, map[string]string{
			"Reads":                     "total_reads",
			"Basecalled Reads Passed":   "passed_reads",
			"Basecalled Bases":          "bases",
			"Experiment Time (minutes)": "run_time_minutes",
		})
	case "temperature":
		err = nanoporeLastRow(c, metadata, map[string]string{
			"current_target_temperature": "last_target_temperature",
			"current_speed":              "last_sequencing_speed",
			"num_reads":                  "total_recorded_reads",
			"acquisition_duration":       "run_duration_at_log",
		})
	case "pore_scan":
		err = nanoporePoreScan(c, metadata)
	case "final_summary":
		for _, line := range c.Lines {
			k, v, found := strings.Cut(line, "=")
			if !found {
				continue
			}
			metadata[normalizeKey(k)] = strings.TrimSpace(v)
		}
	case "sequencing_summary":
		err = nanoporeSequencingSummary(c, metadata)
	case "json_report":
		var doc map[string]any
		if jsonErr := json.Unmarshal(c.Raw, &doc); jsonErr != nil {
			err = fmt.Errorf("nanopore json report: %w", util.ErrMalformedInput)
		} else if host, ok := doc["host"].(map[string]any); ok {
			metadata["instrument_info"] = host
		}
	case "markdown_report":
		err = nanoporeTrackingID(c, metadata)
	}
	if err != nil {
		return models.Record{}, err
	}

	return models.Record{
		FileType:   "nanopore",
		Metadata:   metadata,
		Samples:    samples,
		SourcePath: c.Path,
	}, nil
}

// nanoporePoreActivity sums time spent per channel state over the whole run.
func nanoporePoreActivity(c *rawfile.Content, metadata map[string]any) error {
	rows := tableRecords(c.Rows, nil)
	if len(rows) == 0 {
		return fmt.Errorf("nanopore pore activity rows: %w", util.ErrMalformedInput)
	}
	states := map[string]float64{}
	maxMinutes := 0.0
	for _, row := range rows {
		state, _ := row["Channel State"].(string)
		if state == "" {
			continue
		}
		states[state] += asFloat(row["State Time (samples)"])
		if m := asFloat(row["Experiment Time (minutes)"]); m > maxMinutes {
			maxMinutes = m
		}
	}
	summary := map[string]any{}
	for state, total := range states {
		summary[normalizeKey(state)] = total
	}
	metadata["states_total_samples"] = summary
	metadata["total_logged_minutes"] = int(maxMinutes)
	return nil
}

// nanoporeLastRow keeps the final entry of a cumulative log.
func nanoporeLastRow(c *rawfile.Content, metadata map[string]any, fields map[string]string) error {
	rows := tableRecords(c.Rows, nil)
	if len(rows) == 0 {
		return fmt.Errorf("nanopore cumulative log rows: %w", util.ErrMalformedInput)
	}
	last := rows[len(rows)-1]
	for col, key := range fields {
		if v, ok := last[col]; ok {
			metadata[key] = v
		}
	}
	return nil
}

func nanoporePoreScan(c *rawfile.Content, metadata map[string]any) error {
	rows := tableRecords(c.Rows, nil)
	if len(rows) == 0 {
		return fmt.Errorf("nanopore mux scan rows: %w", util.ErrMalformedInput)
	}
	counts := map[string]int{}
	for _, row := range rows {
		if v, ok := row["mux_scan_assessment"].(string); ok {
			counts[v]++
		}
	}
	metadata["available_pores"] = counts["single_pore"]
	metadata["saturated_wells"] = counts["saturated"]
	metadata["total_wells"] = len(rows)
	return nil
}

// nanoporeSequencingSummary aggregates the tab-separated per-read summary
// into run-level QC metrics.
func nanoporeSequencingSummary(c *rawfile.Content, metadata map[string]any) error {
	rows := make([][]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		rows = append(rows, strings.Split(line, "\t"))
	}
	reads := tableRecords(rows, nil)
	if len(reads) == 0 {
		return fmt.Errorf("nanopore sequencing summary rows: %w", util.ErrMalformedInput)
	}

	passed := 0
	qsum := 0.0
	uniqueSamples := map[string]bool{}
	uniqueRuns := map[string]bool{}
	poreTypes := map[string]bool{}
	for _, read := range reads {
		if v, ok := read["passes_filtering"].(string); ok && strings.EqualFold(v, "true") {
			passed++
		}
		if v, ok := read["sample_id"].(string); ok && v != "" {
			uniqueSamples[v] = true
		}
		if v, ok := read["run_id"].(string); ok && v != "" {
			uniqueRuns[v] = true
		}
		if v, ok := read["pore_type"].(string); ok && v != "" {
			poreTypes[v] = true
		}
		qsum += asFloat(read["mean_qscore_template"])
	}
	metadata["total_reads"] = len(reads)
	metadata["passed_filtering_count"] = passed
	metadata["mean_qscore"] = qsum / float64(len(reads))
	metadata["unique_samples"] = sortedKeys(uniqueSamples)
	metadata["unique_run_ids"] = sortedKeys(uniqueRuns)
	metadata["pore_types"] = sortedKeys(poreTypes)
	return nil
}

// nanoporeTrackingID pulls the Tracking ID JSON object out of the markdown
// report.
func nanoporeTrackingID(c *rawfile.Content, metadata map[string]any) error {
	text := string(c.Raw)
	if !strings.Contains(text, "Tracking ID") {
		return fmt.Errorf("nanopore markdown tracking id: %w", util.ErrMalformedInput)
	}
	start := strings.Index(text, "{")
	end := strings.Index(text, "}")
	if start < 0 || end < start {
		return fmt.Errorf("nanopore markdown tracking id json: %w", util.ErrMalformedInput)
	}
	var tracking map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &tracking); err != nil {
		return fmt.Errorf("nanopore markdown tracking id json: %w", util.ErrMalformedInput)
	}
	metadata["tracking_id"] = tracking
	return nil
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
