// Package cli provides output formatting for the WebRAG command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/webrag/internal/client"
	"github.com/hyperjump/webrag/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteIngest writes an ingest summary to w in the given format.
func WriteIngest(w io.Writer, resp *models.IngestResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	fmt.Fprintf(w, "Scope: %s\n", resp.Scope)
	fmt.Fprintf(w, "Ingested %d URLs (%d chunks), skipped %d already stored\n",
		resp.IngestedURLs, resp.IngestedChunks, resp.SkippedURLs)
	if len(resp.Errors) > 0 {
		fmt.Fprintf(w, "\n%d errors:\n", len(resp.Errors))
		for _, e := range resp.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	return nil
}

// WriteQuery writes a query result to w. Text output is the context followed by its sources.
func WriteQuery(w io.Writer, resp *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	writeContext(w, resp.Context, resp.Sources)
	return nil
}

// WriteAsk writes an ask result to w.
func WriteAsk(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	if resp.IngestedURLs > 0 {
		fmt.Fprintf(w, "Ingested %d URLs (%d chunks) into %s\n\n", resp.IngestedURLs, resp.IngestedChunks, resp.Scope)
	}
	writeContext(w, resp.Context, resp.Sources)
	return nil
}

func writeContext(w io.Writer, context string, sources []string) {
	fmt.Fprint(w, context)
	if !strings.HasSuffix(context, "\n") {
		fmt.Fprintln(w)
	}
	if len(sources) == 0 {
		fmt.Fprintln(w, "\nNo sources matched.")
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, s := range sources {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, s)
	}
}

// WriteCollections writes the collection listing to w.
func WriteCollections(w io.Writer, resp *client.CollectionsResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	if len(resp.Collections) == 0 {
		fmt.Fprintln(w, "No collections.")
	}
	for _, c := range resp.Collections {
		fmt.Fprintf(w, "%-40s %8d chunks\n", c.Name, c.Chunks)
	}
	if resp.DiskBytes != nil {
		fmt.Fprintf(w, "\nDisk usage: %s\n", FormatBytes(*resp.DiskBytes))
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
