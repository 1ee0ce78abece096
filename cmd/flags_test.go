package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFlagValidation(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	port := flags.Int("port", 8080, "")
	AddFlagValidation(flags, "port", ValidatePort)
	AddFlagValidation(flags, "missing", ValidatePort)

	require.NoError(t, flags.Set("port", "9000"))
	assert.Equal(t, 9000, *port)

	assert.Error(t, flags.Set("port", "0"))
	assert.Error(t, flags.Set("port", "http"))
	assert.Equal(t, 9000, *port, "rejected values are not applied")
}

func TestValidators(t *testing.T) {
	testCases := []struct {
		name     string
		validate func(string) error
		value    string
		valid    bool
	}{
		{"port ok", ValidatePort, "443", true},
		{"port too large", ValidatePort, "70000", false},
		{"non-negative zero", ValidateNonNegative, "0", true},
		{"non-negative negative", ValidateNonNegative, "-1", false},
		{"log level", ValidateLogLevel, "WARN", true},
		{"log level unknown", ValidateLogLevel, "loud", false},
		{"locale ru", ValidateLocale, "ru", true},
		{"locale de", ValidateLocale, "de", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.validate(tc.value)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestServeFlagsValidated(t *testing.T) {
	assert.Error(t, serveCmd.Flags().Set("port", "-3"))
	assert.Error(t, rootCmd.PersistentFlags().Set("locale", "fr"))
}
