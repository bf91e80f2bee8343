// Package util holds small helpers shared by Aluuna's entrypoint and modules.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// Boolean spellings accepted by ParseBoolEnv.
var (
	truthy = map[string]bool{"true": true, "1": true, "yes": true, "on": true}
	falsy  = map[string]bool{"false": true, "0": true, "no": true, "off": true}
)

// ParseBoolEnv reads a boolean environment variable. An unset variable or an
// unrecognized value yields the default; unrecognized values are logged.
func ParseBoolEnv(key string, defaultValue bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch {
	case raw == "":
		return defaultValue
	case truthy[raw]:
		return true
	case falsy[raw]:
		return false
	}
	slog.Warn("util.ParseBoolEnv: unrecognized boolean value, using default", "key", key, "value", raw, "default", defaultValue)
	return defaultValue
}
