package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calmackay/commutecast/internal/utils"
	"github.com/calmackay/commutecast/pkg/scraperapi"
	"github.com/calmackay/commutecast/pkg/transportapi"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "commutecast",
	Short: "Quota-aware commute briefings from live bus and traffic data.",
	Long: `commutecast watches a metered live-departures API alongside a free
scraped fallback, spends the daily API quota carefully, and turns the
result into a morning commute briefing.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.commutecast.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".commutecast")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.commutecast.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	home, _ := homedir.Dir()

	viper.SetDefault("transportapi.app_id", "")
	viper.SetDefault("transportapi.app_key", "")
	viper.SetDefault("transportapi.base_url", transportapi.DefaultBaseURL)
	viper.SetDefault("stops.primary", "")
	viper.SetDefault("stops.backup", "")
	viper.SetDefault("routes", "")
	viper.SetDefault("commute.baseline", 45)
	viper.SetDefault("commute.window_start", "08:00")
	viper.SetDefault("commute.window_end", "09:00")
	viper.SetDefault("thresholds.traffic_delay", 10)
	viper.SetDefault("thresholds.bus_gap", 20)
	viper.SetDefault("quota.daily", 30)
	viper.SetDefault("quota.reserved_manual", 6)
	viper.SetDefault("quota.max_auto", 10)
	viper.SetDefault("scraper.url", scraperapi.DefaultBaseURL)
	viper.SetDefault("hass.url", "")
	viper.SetDefault("hass.token", "")
	viper.SetDefault("entities.calendar", "")
	viper.SetDefault("entities.travel_time", "")
	viper.SetDefault("keywords.office", "Office,Edinburgh")
	viper.SetDefault("keywords.wfh", "WFH,Home,Remote")
	viper.SetDefault("notify.service", "")
	viper.SetDefault("storage.path", filepath.Join(home, ".commutecast.db"))

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
