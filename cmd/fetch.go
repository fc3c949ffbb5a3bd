package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calmackay/commutecast/pkg/transportapi"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one manual fetch cycle and print the briefing",
	Long: `Fetches live departures for the configured stop as a user-triggered
refresh, which may dip into the quota slice reserved for manual calls.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if validate, _ := cmd.Flags().GetBool("validate"); validate {
			return validateCredentials(cmd)
		}

		engine, db := buildEngine()
		defer db.Close()

		b := engine.Run(cmd.Context(), true)

		snap := b.Snapshot
		fmt.Printf("Stop:   %s", snap.StopCode)
		if snap.StopName != "" {
			fmt.Printf(" (%s)", snap.StopName)
		}
		fmt.Println()
		fmt.Printf("Source: %s\n", snap.Source)
		for _, d := range snap.Departures {
			line := fmt.Sprintf("  %-4s", d.Route)
			if d.DueMins != nil {
				line += fmt.Sprintf(" %3d min", *d.DueMins)
			} else {
				line += "     ? "
			}
			if d.Destination != "" {
				line += "  to " + d.Destination
			}
			line += "  [" + d.Status + "]"
			fmt.Println(line)
		}
		fmt.Println()
		fmt.Println(b.Message)
		fmt.Printf("\nQuota: %d/%d calls today (%d automatic)\n",
			b.Quota.CallsToday, b.Quota.DailyQuota, b.Quota.AutoCallsToday)

		if notify, _ := cmd.Flags().GetBool("notify"); notify {
			engine.Notify(cmd.Context(), b)
		}
		return nil
	},
}

// validateCredentials spends one metered call to prove the configured
// app id/key pair works.
func validateCredentials(cmd *cobra.Command) error {
	stop := viper.GetString("stops.primary")
	if stop == "" {
		return fmt.Errorf("stops.primary must be configured to validate credentials")
	}
	client := transportapi.NewClient(
		viper.GetString("transportapi.base_url"),
		viper.GetString("transportapi.app_id"),
		viper.GetString("transportapi.app_key"),
	)
	if err := client.ValidateCredentials(cmd.Context(), stop); err != nil {
		return err
	}
	fmt.Println("TransportAPI credentials OK")
	return nil
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().Bool("notify", false, "Also send the briefing notification")
	fetchCmd.Flags().Bool("validate", false, "Only validate the TransportAPI credentials (spends one call)")
}
