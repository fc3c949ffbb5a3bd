package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/calmackay/commutecast/internal/utils"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run periodic automatic fetch cycles with threshold alerts",
	Long: `Runs the fetch cycle on a timer under the automatic quota rules.
A notification goes out only on commute days, inside the commute
window, and when traffic or bus data actually looks troublesome.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		engine, db := buildEngine()
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		utils.Log.Infof("watching, fetch cycle every %s", interval)
		for {
			b := engine.Run(ctx, false)
			if d := b.Snapshot.Next(); d != nil {
				utils.Log.Infof("cycle complete: source=%s next=%s delay=+%dmin", b.Snapshot.Source, d.Route, b.TrafficDelay)
			} else {
				utils.Log.Infof("cycle complete: source=%s no departures delay=+%dmin", b.Snapshot.Source, b.TrafficDelay)
			}

			if engine.ShouldNotify(b) {
				engine.Notify(ctx, b)
			}

			select {
			case <-ctx.Done():
				utils.Log.Info("watch loop stopped")
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", 30*time.Minute, "Time between automatic fetch cycles")
}
