package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show processing statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// statsPayload mirrors the daemon's stats response loosely; unknown
// fields are preserved for JSON output.
type statsPayload struct {
	Pipeline struct {
		Processed     int64            `json:"documents_processed"`
		Failed        int64            `json:"documents_failed"`
		ByLevel       map[string]int64 `json:"alerts_by_level"`
		AvgLatencyMS  float64          `json:"avg_processing_ms"`
		UptimeSeconds float64          `json:"uptime_seconds"`
		FilesPerHour  float64          `json:"files_per_hour"`
		SuccessRate   float64          `json:"success_rate"`
	} `json:"pipeline"`
	Files json.RawMessage `json:"files"`
}

func runStats(cmd *cobra.Command, args []string) error {
	var payload statsPayload
	if err := apiCall("GET", "/api/v1/stats", nil, nil, &payload); err != nil {
		return err
	}

	if output == "json" {
		printJSON(payload)
		return nil
	}

	p := payload.Pipeline
	fmt.Printf("processed:      %d\n", p.Processed)
	fmt.Printf("failed:         %d\n", p.Failed)
	fmt.Printf("success rate:   %.1f%%\n", p.SuccessRate)
	fmt.Printf("avg latency:    %.1f ms\n", p.AvgLatencyMS)
	fmt.Printf("files per hour: %.1f\n", p.FilesPerHour)
	fmt.Printf("uptime:         %.0f s\n", p.UptimeSeconds)

	if len(p.ByLevel) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LEVEL\tCOUNT")
		levels := make([]string, 0, len(p.ByLevel))
		for lvl := range p.ByLevel {
			levels = append(levels, lvl)
		}
		sort.Strings(levels)
		for _, lvl := range levels {
			fmt.Fprintf(w, "%s\t%d\n", lvl, p.ByLevel[lvl])
		}
		return w.Flush()
	}
	return nil
}
