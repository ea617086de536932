// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with other packages.
const (
	DefaultBaseURL       = "https://sirekapreview.rakagunarto.com/"
	DefaultTotalExpected = 823236
	DefaultMetricsListen = "127.0.0.1:9464"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("api.baseurl", DefaultBaseURL)
	viper.SetDefault("api.timeout", 15*time.Second)
	viper.SetDefault("api.useragent", "sheetreview")
	viper.SetDefault("api.ratelimit", 0.0)

	viper.SetDefault("ledger.backend", LedgerBackendFile)
	viper.SetDefault("ledger.path", "")

	viper.SetDefault("progress.totalexpected", DefaultTotalExpected)
	viper.SetDefault("progress.cachettl", time.Minute)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/sheetreview.log")
	viper.SetDefault("logging.file_output.level", "debug")

	viper.SetDefault("notification.console", true)
	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("notification.timeout", 10*time.Second)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", DefaultMetricsListen)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
