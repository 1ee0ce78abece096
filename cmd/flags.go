package cmd

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/logging"
)

// AddFlagValidation wraps a flag so that its value is checked when set.
func AddFlagValidation(flags *pflag.FlagSet, flagName string, validator func(string) error) {
	flag := flags.Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort checks that portStr is a usable TCP port.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateNonNegative checks that s is an integer >= 0.
func ValidateNonNegative(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number: %s", s)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

// ValidateLogLevel accepts the levels understood by the logger.
func ValidateLogLevel(level string) error {
	_, err := logging.ParseLevel(level)
	return err
}

// ValidateLocale accepts the bundled message languages.
func ValidateLocale(lang string) error {
	if slices.Contains([]string{i18n.English, i18n.Russian}, lang) {
		return nil
	}
	return fmt.Errorf("unsupported locale: %s (supported: %s, %s)", lang, i18n.English, i18n.Russian)
}

func validateServeFlags(cmd *cobra.Command) {
	AddFlagValidation(cmd.Flags(), "port", ValidatePort)
	AddFlagValidation(cmd.Flags(), "max-connections", ValidateNonNegative)
}
