package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	searchPatient string
	searchLimit   int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search processed reports and alerts",
	Long: `Search the daemon's report index by free text or patient ID.

Examples:
  radctl search "pulmonary embolism"
  radctl search --patient PAT001`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchPatient, "patient", "p", "", "search by exact patient ID")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum results")
	rootCmd.AddCommand(searchCmd)
}

// searchResult mirrors one entry of the daemon's search response.
type searchResult struct {
	Entry struct {
		Kind      string    `json:"kind"`
		ID        string    `json:"id"`
		PatientID string    `json:"patient_id"`
		Level     string    `json:"alert_level"`
		Snippet   string    `json:"snippet"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"entry"`
	Score float64 `json:"score"`
}

type searchPayload struct {
	Query   string         `json:"query"`
	Total   int            `json:"total"`
	Results []searchResult `json:"results"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && searchPatient == "" {
		return fmt.Errorf("a query or --patient is required")
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(searchLimit))
	if searchPatient != "" {
		query.Set("patient_id", searchPatient)
	} else {
		query.Set("q", args[0])
	}

	var payload searchPayload
	if err := apiCall("GET", "/api/v1/search", query, nil, &payload); err != nil {
		return err
	}

	if output == "json" {
		printJSON(payload)
		return nil
	}

	if payload.Total == 0 {
		fmt.Println("no results")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tKIND\tID\tPATIENT\tSNIPPET")
	for _, r := range payload.Results {
		fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\t%s\n",
			r.Score, r.Entry.Kind, r.Entry.ID, r.Entry.PatientID, r.Entry.Snippet)
	}
	return w.Flush()
}
