package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/services"
)

// printResult writes v to w in the selected output format.
func printResult(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printReport(w io.Writer, report services.ImportReport) error {
	fmt.Fprintf(w, "saved %d entities (%d instruments, %d albums, %d musicians, %d pairings, %d concerts)\n",
		report.Saved(), report.Instruments, report.Albums, report.Musicians, report.MusicianInstruments, report.Concerts)
	for _, r := range report.Rejected {
		fmt.Fprintf(w, "rejected %s %s: %s\n", r.Kind, r.Key, r.Reason)
	}
	return nil
}
