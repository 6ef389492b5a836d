package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/klyr/redirector/internal/logging"
)

type Summary struct {
	Total            int            `json:"total"`
	Matched          int            `json:"matched"`
	Unmatched        int            `json:"unmatched"`
	CustomTemplates  int            `json:"custom_templates"`
	TemplateFailures int            `json:"template_failures"`
	Start            time.Time      `json:"start"`
	End              time.Time      `json:"end"`
	TopPatterns      []CountItem    `json:"top_patterns"`
	TopUnmatched     []CountItem    `json:"top_unmatched"`
	TopFailedSlots   []CountItem    `json:"top_failed_slots"`
	Latency          LatencySummary `json:"latency"`
}

type CountItem struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type LatencySummary struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Reader loads decisions from a JSONL decision log. Zero-valued fields do
// not filter.
type Reader struct {
	Since  time.Time
	Slot   string
	Source string
}

func (r *Reader) Read(path string) ([]logging.Decision, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var decisions []logging.Decision
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var d logging.Decision
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			return nil, err
		}
		if !r.Since.IsZero() && d.Timestamp.Before(r.Since) {
			continue
		}
		if r.Slot != "" && d.Slot != r.Slot {
			continue
		}
		if r.Source != "" && d.Source != r.Source {
			continue
		}
		decisions = append(decisions, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return decisions, nil
}

func Summarize(decisions []logging.Decision) Summary {
	var summary Summary
	if len(decisions) == 0 {
		return summary
	}

	summary.Start = decisions[0].Timestamp
	summary.End = decisions[0].Timestamp

	patternCounts := map[string]int{}
	unmatchedCounts := map[string]int{}
	failedSlotCounts := map[string]int{}
	latencies := make([]int64, 0, len(decisions))

	for _, d := range decisions {
		summary.Total++
		if d.Timestamp.Before(summary.Start) {
			summary.Start = d.Timestamp
		}
		if d.Timestamp.After(summary.End) {
			summary.End = d.Timestamp
		}

		if d.Matched {
			summary.Matched++
			patternCounts[d.Pattern]++
		} else {
			summary.Unmatched++
			unmatchedCounts[d.URI]++
		}

		switch d.Source {
		case "override":
			summary.CustomTemplates++
		case "fallback":
			summary.TemplateFailures++
			failedSlotCounts[d.Slot]++
		}

		latencies = append(latencies, d.DurationMS)
	}

	summary.TopPatterns = topCounts(patternCounts, 5)
	summary.TopUnmatched = topCounts(unmatchedCounts, 5)
	summary.TopFailedSlots = topCounts(failedSlotCounts, 5)
	summary.Latency = latencySummary(latencies)

	return summary
}

func topCounts(counts map[string]int, n int) []CountItem {
	items := make([]CountItem, 0, len(counts))
	for key, count := range counts {
		items = append(items, CountItem{Key: key, Count: count})
	}
	if len(items) == 0 {
		return nil
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Key < items[j].Key
		}
		return items[i].Count > items[j].Count
	})

	if len(items) > n {
		items = items[:n]
	}
	return items
}

func latencySummary(values []int64) LatencySummary {
	if len(values) == 0 {
		return LatencySummary{}
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencySummary{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
	}
}

func percentile(values []int64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	idx := int(float64(len(values)-1) * p)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return float64(values[idx])
}

func RenderText(summary Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total: %d\n", summary.Total)
	fmt.Fprintf(&b, "Matched: %d\n", summary.Matched)
	fmt.Fprintf(&b, "Unmatched: %d\n", summary.Unmatched)
	fmt.Fprintf(&b, "Custom templates: %d\n", summary.CustomTemplates)
	fmt.Fprintf(&b, "Template failures: %d\n", summary.TemplateFailures)
	fmt.Fprintf(&b, "Latency p50/p95/p99 (ms): %.0f/%.0f/%.0f\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCounts(&b, "Top patterns", summary.TopPatterns)
	writeCounts(&b, "Top unmatched URIs", summary.TopUnmatched)
	writeCounts(&b, "Template failures by slot", summary.TopFailedSlots)

	return b.String()
}

func RenderMarkdown(summary Summary) string {
	var b strings.Builder
	b.WriteString("# Redirector Report\n\n")
	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Total: %d\n", summary.Total)
	fmt.Fprintf(&b, "- Matched: %d\n", summary.Matched)
	fmt.Fprintf(&b, "- Unmatched: %d\n", summary.Unmatched)
	fmt.Fprintf(&b, "- Custom templates: %d\n", summary.CustomTemplates)
	fmt.Fprintf(&b, "- Template failures: %d\n", summary.TemplateFailures)
	fmt.Fprintf(&b, "- Latency p50/p95/p99 (ms): %.0f/%.0f/%.0f\n\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCountsMarkdown(&b, "Top patterns", summary.TopPatterns)
	writeCountsMarkdown(&b, "Top unmatched URIs", summary.TopUnmatched)
	writeCountsMarkdown(&b, "Template failures by slot", summary.TopFailedSlots)

	return b.String()
}

func RenderJSON(summary Summary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

func writeCounts(b *strings.Builder, title string, items []CountItem) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
}

func writeCountsMarkdown(b *strings.Builder, title string, items []CountItem) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n\n")
	if len(items) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
	b.WriteString("\n")
}

func WriteOutput(w io.Writer, path string, content []byte) error {
	if path == "" {
		_, err := io.Copy(w, bytes.NewReader(content))
		return err
	}
	return os.WriteFile(path, content, 0o600)
}
