package cmd

import (
	"github.com/spf13/viper"

	"github.com/calmackay/commutecast/internal/utils"
	"github.com/calmackay/commutecast/pkg/briefing"
	"github.com/calmackay/commutecast/pkg/hass"
	"github.com/calmackay/commutecast/pkg/quota"
	"github.com/calmackay/commutecast/pkg/scraperapi"
	"github.com/calmackay/commutecast/pkg/storage"
	"github.com/calmackay/commutecast/pkg/transportapi"
)

func briefingConfig() briefing.Config {
	return briefing.Config{
		PrimaryStop:           viper.GetString("stops.primary"),
		BackupStop:            viper.GetString("stops.backup"),
		Routes:                utils.SplitList(viper.GetString("routes")),
		BaselineMins:          viper.GetInt("commute.baseline"),
		TrafficDelayThreshold: viper.GetInt("thresholds.traffic_delay"),
		BusGapThreshold:       viper.GetInt("thresholds.bus_gap"),
		WindowStart:           viper.GetString("commute.window_start"),
		WindowEnd:             viper.GetString("commute.window_end"),
		CalendarEntity:        viper.GetString("entities.calendar"),
		TravelEntity:          viper.GetString("entities.travel_time"),
		OfficeKeywords:        utils.SplitListLower(viper.GetString("keywords.office")),
		WFHKeywords:           utils.SplitListLower(viper.GetString("keywords.wfh")),
		NotifyService:         viper.GetString("notify.service"),
	}
}

// openLedger builds the quota ledger, backed by the sqlite call log when
// it can be opened. The returned DB may be nil; storage failures never
// stop a fetch.
func openLedger() (*quota.Ledger, *storage.DB) {
	var db *storage.DB
	var store quota.Store
	if path := viper.GetString("storage.path"); path != "" {
		d, err := storage.Open(path)
		if err != nil {
			utils.Log.Warnf("could not open ledger database, quota counters will not survive restarts: %v", err)
		} else {
			db = d
			store = d
		}
	}
	ledger := quota.NewLedger(quota.Config{
		DailyQuota:        viper.GetInt("quota.daily"),
		ReservedForManual: viper.GetInt("quota.reserved_manual"),
		MaxAutoCalls:      viper.GetInt("quota.max_auto"),
	}, store)
	return ledger, db
}

// buildEngine wires a briefing engine from configuration. Callers own
// closing the returned DB (nil-safe).
func buildEngine() (*briefing.Engine, *storage.DB) {
	ledger, db := openLedger()

	primary := transportapi.NewClient(
		viper.GetString("transportapi.base_url"),
		viper.GetString("transportapi.app_id"),
		viper.GetString("transportapi.app_key"),
	)
	fallback := scraperapi.NewClient(viper.GetString("scraper.url"))

	engine := briefing.NewEngine(briefingConfig(), ledger, primary, fallback)
	if hassURL := viper.GetString("hass.url"); hassURL != "" {
		client := hass.NewClient(hassURL, viper.GetString("hass.token"))
		engine.WithContextSource(client).WithNotifier(client)
	}
	if db != nil {
		engine.WithHistory(db)
	}
	return engine, db
}
