package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-d", "db", "-f", "fedroot", "-n", "3",
			"-i", "60", "-t", "900", "-m", "10", "-x", "48", "-s", "secret", "-p",
		}, expectPanic: false,
			expected: &Config{
				DatabaseDSN:                  "db",
				FederationRootDSN:            "fedroot",
				RetryMaxAttempts:             3,
				FederationRefreshInterval:    60 * time.Second,
				FederationStaleThreshold:     900 * time.Second,
				ConfirmationMaxRetryCount:    10,
				ConfirmationValidityDuration: 48 * time.Hour,
				LinkTokenSecret:              "secret",
				EnableProviderCache:          true,
			}},
		{name: "Test2 no args leaves zero values", args: []string{"cmd"}, expectPanic: false,
			expected: &Config{}},
		{name: "Test3 malformed int panics", args: []string{"cmd", "-n", "many"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
