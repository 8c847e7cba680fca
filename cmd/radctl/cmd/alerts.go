package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

var (
	alertsLevel   string
	alertsPatient string
	alertsUnacked bool
	alertsLimit   int
	alertsOverdue bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts [alert-id]",
	Short: "List alerts or show one alert",
	Long: `List alerts raised by the daemon, or show a single alert by ID.

Examples:
  radctl alerts
  radctl alerts --level RED --unacknowledged
  radctl alerts --overdue
  radctl alerts ALERT_20260830_141502_a1b2c3d4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAlerts,
}

func init() {
	alertsCmd.Flags().StringVarP(&alertsLevel, "level", "l", "", "filter by alert level (RED, ORANGE, YELLOW, GREEN)")
	alertsCmd.Flags().StringVarP(&alertsPatient, "patient", "p", "", "filter by patient ID")
	alertsCmd.Flags().BoolVarP(&alertsUnacked, "unacknowledged", "u", false, "only unacknowledged alerts")
	alertsCmd.Flags().IntVarP(&alertsLimit, "limit", "n", 100, "maximum alerts to return")
	alertsCmd.Flags().BoolVar(&alertsOverdue, "overdue", false, "only alerts past their escalation deadline")
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		var alert models.Alert
		if err := apiCall("GET", "/api/v1/alerts/"+url.PathEscape(args[0]), nil, nil, &alert); err != nil {
			return err
		}
		printJSON(alert)
		return nil
	}

	path := "/api/v1/alerts"
	query := url.Values{}
	if alertsOverdue {
		path = "/api/v1/alerts/escalations"
	} else {
		if alertsLevel != "" {
			query.Set("level", strings.ToUpper(alertsLevel))
		}
		if alertsPatient != "" {
			query.Set("patient_id", alertsPatient)
		}
		if alertsUnacked {
			query.Set("unacknowledged", "true")
		}
		query.Set("limit", strconv.Itoa(alertsLimit))
	}

	var alerts []models.Alert
	if err := apiCall("GET", path, query, nil, &alerts); err != nil {
		return err
	}

	if output == "json" {
		printJSON(alerts)
		return nil
	}

	if len(alerts) == 0 {
		fmt.Println("no alerts")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLEVEL\tPATIENT\tCONDITIONS\tCREATED\tACK")
	for _, a := range alerts {
		ack := "-"
		if a.Acknowledged {
			ack = a.AcknowledgedBy
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Level, a.PatientID,
			strings.Join(a.Conditions, ","),
			a.CreatedAt.Local().Format(time.DateTime),
			ack,
		)
	}
	return w.Flush()
}
