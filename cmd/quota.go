package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show today's API call ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, db := openLedger()
		defer db.Close()

		state := ledger.Snapshot()
		fmt.Printf("Day:              %s\n", state.Day)
		fmt.Printf("Calls today:      %d / %d\n", state.CallsToday, state.DailyQuota)
		fmt.Printf("Automatic calls:  %d\n", state.AutoCallsToday)
		fmt.Printf("Remaining:        %d\n", state.Remaining)
		fmt.Printf("Auto admitted:    %v\n", ledger.CanAdmitAutomatic())
		fmt.Printf("Manual admitted:  %v\n", ledger.CanAdmitManual())

		history, _ := cmd.Flags().GetInt("history")
		if history > 0 && db != nil {
			briefings, err := db.RecentBriefings(cmd.Context(), history)
			if err != nil {
				return err
			}
			if len(briefings) > 0 {
				fmt.Println("\nRecent briefings:")
				for _, b := range briefings {
					line := fmt.Sprintf("  %s  %-14s stop %s", b.GeneratedAt.Format("2006-01-02 15:04"), b.Source, b.StopCode)
					if b.Route != "" {
						line += "  next " + b.Route
						if b.DueMins != nil {
							line += fmt.Sprintf(" in %d min", *b.DueMins)
						}
					}
					fmt.Println(line)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quotaCmd)
	quotaCmd.Flags().Int("history", 0, "Also show the last N archived briefings")
}
