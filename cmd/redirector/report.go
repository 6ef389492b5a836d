package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/klyr/redirector/internal/render"
	"github.com/klyr/redirector/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var inputPath string
	var since string
	var format string
	var outPath string
	var slot string
	var source string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize redirect decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("input path is required")
			}

			switch render.Slot(slot) {
			case "", render.SlotRedirect, render.SlotFallback:
			default:
				return fmt.Errorf("unknown slot %q", slot)
			}
			switch render.Source(source) {
			case "", render.SourceBuiltin, render.SourceOverride, render.SourceFallback:
			default:
				return fmt.Errorf("unknown template source %q", source)
			}

			reader := report.Reader{Slot: slot, Source: source}
			if since != "" {
				dur, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid since duration: %w", err)
				}
				reader.Since = time.Now().Add(-dur)
			}

			decisions, err := reader.Read(inputPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary := report.Summarize(decisions)
			switch format {
			case "", "text":
				return report.WriteOutput(out, outPath, []byte(report.RenderText(summary)))
			case "md":
				return report.WriteOutput(out, outPath, []byte(report.RenderMarkdown(summary)))
			case "json":
				data, err := report.RenderJSON(summary)
				if err != nil {
					return err
				}
				return report.WriteOutput(out, outPath, data)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Path to decision log JSONL")
	cmd.Flags().StringVar(&since, "since", "", "Only include entries newer than this duration (e.g. 10m)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|md|json")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default stdout)")
	cmd.Flags().StringVar(&slot, "slot", "", "Only include decisions rendered through this slot: redirect|fallback")
	cmd.Flags().StringVar(&source, "source", "", "Only include decisions whose template came from: builtin|override|fallback")

	return cmd
}
