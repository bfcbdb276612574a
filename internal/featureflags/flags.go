package featureflags

import (
	"os"
	"strings"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes/on (case-insensitive).
func Enabled(name string) bool {
	switch strings.ToLower(os.Getenv("FLAG_" + strings.ToUpper(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
