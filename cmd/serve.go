package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calmackay/commutecast/internal/scraper"
	"github.com/calmackay/commutecast/internal/server"
	"github.com/calmackay/commutecast/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the departure scraper service",
	Long: `Runs the browser-backed scraper behind an HTTP surface so fetch
cycles can fall back to it when the metered API is off limits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := viper.GetString("serve.listen")
		cacheTTL := time.Duration(viper.GetInt("serve.cache_ttl")) * time.Second
		requestTimeout := time.Duration(viper.GetInt("serve.request_timeout")) * time.Second
		baseURL := viper.GetString("serve.base_url")
		prewarm, _ := cmd.Flags().GetBool("prewarm")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sc := scraper.New(baseURL, requestTimeout)
		defer sc.Close()
		if prewarm {
			if err := sc.Prewarm(); err != nil {
				utils.Log.Warnf("browser pre-warm failed, will retry on first request: %v", err)
			}
		}

		svc := scraper.NewService(sc, scraper.NewCache(cacheTTL))
		return server.New(svc).Start(ctx, listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8765", "HTTP listen address")
	serveCmd.Flags().Int("cache-ttl", int(scraper.DefaultCacheTTL.Seconds()), "Departure cache TTL in seconds")
	serveCmd.Flags().Int("request-timeout", int(scraper.DefaultRequestTimeout.Seconds()), "Per-scrape timeout in seconds")
	serveCmd.Flags().String("base-url", scraper.DefaultBaseURL, "Live bus times page to scrape")
	serveCmd.Flags().Bool("prewarm", true, "Launch the browser at startup instead of on first request")

	viper.BindPFlag("serve.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("serve.cache_ttl", serveCmd.Flags().Lookup("cache-ttl"))
	viper.BindPFlag("serve.request_timeout", serveCmd.Flags().Lookup("request-timeout"))
	viper.BindPFlag("serve.base_url", serveCmd.Flags().Lookup("base-url"))
}
