package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// outputResult writes result to w in the selected format.
func outputResult(w io.Writer, format string, result CLIResult) error {
	if format == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIPruneResult:
		formatPruneText(w, v)
	case []CLIFileReport:
		formatReportText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatPruneText prints pruned declarations when they were not written to
// files, and a status table when they were.
func formatPruneText(w io.Writer, results []CLIPruneResult) {
	written := false
	for _, r := range results {
		if r.Written != "" {
			written = true
			break
		}
	}

	if !written {
		for i, r := range results {
			if len(results) > 1 {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "// %s\n", r.File)
			}
			fmt.Fprint(w, r.Output)
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tWRITTEN\tCACHED\tDIAGNOSTICS\tCHANGES")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\n",
			r.File, r.Written, r.Cached, len(r.Diagnostics), changeSummary(r.Delta))
	}
	tw.Flush()
}

// changeSummary renders a surface delta as "+added ~changed -removed".
func changeSummary(delta []CLISurfaceChange) string {
	if len(delta) == 0 {
		return "-"
	}
	var parts []string
	for _, c := range delta {
		switch c.Change {
		case "added":
			parts = append(parts, "+"+c.Name)
		case "changed":
			parts = append(parts, "~"+c.Name)
		case "removed":
			parts = append(parts, "-"+c.Name)
		}
	}
	return strings.Join(parts, " ")
}

// formatReportText prints each file's run history, the latest run's
// diagnostics and the surface delta between its two latest runs.
func formatReportText(w io.Writer, reports []CLIFileReport) {
	for i, rep := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "File: %s\n", rep.Path)
		fmt.Fprintf(w, "Hash: %s\n", shortHash(rep.Hash))
		fmt.Fprintf(w, "Last pruned: %s\n", rep.LastPruned.Format(time.RFC3339))
		fmt.Fprintln(w)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  RUN\tCREATED\tFILE HASH\tCONFIG HASH\tDIAGNOSTICS")
		for _, r := range rep.Runs {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%d\n",
				r.ID, r.CreatedAt.Format(time.RFC3339), shortHash(r.FileHash), shortHash(r.ConfigHash), r.DiagCount)
		}
		tw.Flush()

		if len(rep.Runs) > 0 && len(rep.Runs[0].Diagnostics) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Diagnostics:")
			for _, d := range rep.Runs[0].Diagnostics {
				fmt.Fprintf(w, "  %s:%d:%d: %s: %s\n", d.File, d.Line, d.Col, d.Kind, d.Message)
			}
		}

		if len(rep.Delta) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Surface changes:")
			for _, c := range rep.Delta {
				fmt.Fprintf(w, "  %s %s %s\n", c.Change, c.Kind, c.Name)
			}
		}
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
