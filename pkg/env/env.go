// Package env reads raw environment variables for the handful of knobs
// needed before envconfig runs, such as logger bootstrap.
package env

import "os"

// Get returns the variable's value, or fallback when it is unset or
// empty. Empty is treated as unset because container runtimes often
// export blank placeholders.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
