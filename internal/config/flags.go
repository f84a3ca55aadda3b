package config

import (
	"flag"
	"os"
	"time"

	"github.com/offerhub/userfed/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN for the identity store
//	-f string   federation root DSN (defaults to -d)
//	-n int      retry max attempts
//	-i int      federation refresh interval, seconds
//	-t int      federation staleness threshold, seconds
//	-m int      confirmation max retry count
//	-x int      confirmation code validity, hours
//	-s string   account-link token HMAC secret
//	-p bool     enable the provider-id lookup cache
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-f", "-n", "-i", "-t", "-m", "-x", "-s", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.FederationRootDSN, "f", config.FederationRootDSN, "federation root DSN")
	fs.IntVar(&config.RetryMaxAttempts, "n", config.RetryMaxAttempts, "retry max attempts")

	refreshInterval := fs.Int("i", int(config.FederationRefreshInterval.Seconds()), "federation refresh interval (in seconds)")
	staleThreshold := fs.Int("t", int(config.FederationStaleThreshold.Seconds()), "federation staleness threshold (in seconds)")

	fs.IntVar(&config.ConfirmationMaxRetryCount, "m", config.ConfirmationMaxRetryCount, "confirmation max retry count")
	confirmationValidity := fs.Int("x", int(config.ConfirmationValidityDuration.Hours()), "confirmation code validity (in hours)")

	fs.StringVar(&config.LinkTokenSecret, "s", config.LinkTokenSecret, "account-link token secret")
	fs.BoolVar(&config.EnableProviderCache, "p", config.EnableProviderCache, "enable provider lookup cache")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.FederationRefreshInterval = time.Duration(*refreshInterval) * time.Second
	config.FederationStaleThreshold = time.Duration(*staleThreshold) * time.Second
	config.ConfirmationValidityDuration = time.Duration(*confirmationValidity) * time.Hour
}
