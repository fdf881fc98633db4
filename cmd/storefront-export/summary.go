package main

import (
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/storefront-export/pkg/exporter"
	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed, color.Bold)
	dimColor    = color.New(color.Faint)
)

// printSummary writes the per-file outcome of a run to w.
func printSummary(w io.Writer, s *exporter.Summary) {
	headerColor.Fprintf(w, "Export summary (run %s)\n", s.RunID)
	fmt.Fprintf(w, "  Scope:    %s\n", s.Scope)

	pages := fmt.Sprintf("%d fetched", s.PagesFetched)
	if len(s.PagesFailed) > 0 {
		pages += fmt.Sprintf(", %d failed %v", len(s.PagesFailed), s.PagesFailed)
	}
	fmt.Fprintf(w, "  Pages:    %s\n", pages)

	if len(s.Files) == 0 {
		dimColor.Fprintln(w, "  No files written")
	}
	for _, f := range s.Files {
		if f.Err != nil {
			name := f.Path
			if f.Collection != "" {
				name = "collection " + f.Collection
			}
			failColor.Fprintf(w, "  FAIL %s: %v\n", name, f.Err)
			continue
		}
		okColor.Fprintf(w, "  OK   %s", f.Path)
		fmt.Fprintf(w, " (%d products, %d rows)\n", f.Products, f.Rows)
	}

	fmt.Fprintf(w, "  Duration: %s\n", s.Duration.Round(time.Millisecond))
}
