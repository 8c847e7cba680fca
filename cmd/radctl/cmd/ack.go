package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

var ackBy string

var ackCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an alert",
	Long: `Acknowledge an alert, stopping its escalation countdown. The first
acknowledgement wins; acknowledging twice is an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runAck,
}

func init() {
	ackCmd.Flags().StringVarP(&ackBy, "by", "b", "", "acknowledging clinician (required)")
	ackCmd.MarkFlagRequired("by")
	rootCmd.AddCommand(ackCmd)
}

func runAck(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(map[string]string{"acknowledged_by": ackBy})
	if err != nil {
		return err
	}

	var alert models.Alert
	path := "/api/v1/alerts/" + url.PathEscape(args[0]) + "/ack"
	if err := apiCall("POST", path, nil, bytes.NewReader(body), &alert); err != nil {
		return err
	}

	if output == "json" {
		printJSON(alert)
		return nil
	}
	fmt.Printf("alert %s acknowledged by %s\n", alert.ID, alert.AcknowledgedBy)
	return nil
}
