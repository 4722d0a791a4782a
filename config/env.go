package config

import (
	"os"
	"time"
)

// DurationEnv parses a duration from the named environment variable,
// falling back to def when unset or malformed.
func DurationEnv(name string, def time.Duration) time.Duration {
	if env := os.Getenv(name); env != "" {
		if d, err := time.ParseDuration(env); err == nil && d > 0 {
			return d
		}
	}
	return def
}
