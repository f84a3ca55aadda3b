package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/offerhub/userfed/internal/flagx"
	"github.com/offerhub/userfed/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files. Duration fields accept both strings ("30s") and
// integer nanoseconds via timex.Duration; after unmarshalling, values are
// copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN                  string         `json:"database_dsn"`
	FederationRootDSN            string         `json:"federation_root_dsn"`
	RetryMaxAttempts             int            `json:"retry_max_attempts"`
	RetryInitialDelay            timex.Duration `json:"retry_initial_delay"`
	RetryDelayIncrement          timex.Duration `json:"retry_delay_increment"`
	FederationRefreshInterval    timex.Duration `json:"federation_refresh_interval"`
	FederationStaleThreshold     timex.Duration `json:"federation_stale_threshold"`
	ConfirmationMaxRetryCount    int            `json:"confirmation_max_retry_count"`
	ConfirmationValidityDuration timex.Duration `json:"confirmation_validity_duration"`
	LinkTokenSecret              string         `json:"link_token_secret"`
	LinkTokenValidityDuration    timex.Duration `json:"link_token_validity_duration"`
	EnableProviderCache          bool           `json:"enable_provider_cache"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. An unreadable or
// invalid file panics: a requested-but-broken config is a startup bug.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.FederationRootDSN = c.FederationRootDSN
	config.RetryMaxAttempts = c.RetryMaxAttempts
	config.RetryInitialDelay = time.Duration(c.RetryInitialDelay.Duration)
	config.RetryDelayIncrement = time.Duration(c.RetryDelayIncrement.Duration)
	config.FederationRefreshInterval = time.Duration(c.FederationRefreshInterval.Duration)
	config.FederationStaleThreshold = time.Duration(c.FederationStaleThreshold.Duration)
	config.ConfirmationMaxRetryCount = c.ConfirmationMaxRetryCount
	config.ConfirmationValidityDuration = time.Duration(c.ConfirmationValidityDuration.Duration)
	config.LinkTokenSecret = c.LinkTokenSecret
	config.LinkTokenValidityDuration = time.Duration(c.LinkTokenValidityDuration.Duration)
	config.EnableProviderCache = c.EnableProviderCache
}
